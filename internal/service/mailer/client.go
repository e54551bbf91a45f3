package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"storefront/internal/logger"
)

const (
	CodeRetryAfter = "retry-after"
	CodeRejected   = "rejected"
	CodeUnknown    = "unknown"
)

type Error struct {
	Code string

	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("code: %s, retry_after: %d, error: %v", e.Code, e.RetryAfter, e.Err)
}

func NewError(code string, retryAfter int, err error) *Error {
	return &Error{
		Code:       code,
		RetryAfter: time.Duration(retryAfter) * time.Second,
		Err:        err,
	}
}

type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Client for the internal mail gateway
type Client struct {
	GatewayAddr string

	client *http.Client
	logger logger.Logger
}

func NewClient(addr string, logger logger.Logger) *Client {
	return &Client{
		GatewayAddr: addr,
		client:      &http.Client{},
		logger:      logger,
	}
}

// Send posts the message to the gateway. The gateway queues delivery, an
// accepted message is not a delivered one.
func (c *Client) Send(ctx context.Context, msg Message) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	body, err := json.Marshal(msg)
	if err != nil {
		return NewError(CodeUnknown, 0, fmt.Errorf("failed to encode message: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.GatewayAddr+"/api/messages", bytes.NewReader(body))
	if err != nil {
		return NewError(CodeUnknown, 0, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return NewError(CodeUnknown, 0, fmt.Errorf("failed to send request: %w", err))
	}
	defer resp.Body.Close() // nolint:errcheck

	switch resp.StatusCode {
	case http.StatusOK, http.StatusAccepted:
		c.logger.Debug("Mail accepted by gateway", "to", msg.To, "subject", msg.Subject)
		return nil

	case http.StatusTooManyRequests:
		return c.processTooManyRequests(resp)

	case http.StatusUnprocessableEntity:
		return NewError(CodeRejected, 0, fmt.Errorf("gateway rejected message to %s", msg.To))

	default:
		c.logger.Warn("Failed to send mail", "status_code", resp.StatusCode, "to", msg.To)
		return NewError(CodeUnknown, 0, fmt.Errorf("unknown status code %d", resp.StatusCode))
	}
}

func (c *Client) processTooManyRequests(resp *http.Response) error {
	header := resp.Header.Get("Retry-After")
	retryAfter, err := strconv.Atoi(strings.TrimSpace(header))
	if err != nil {
		retryAfter = 60 // default to 60 seconds if parsing fails
	}

	c.logger.Warn("Mail gateway throttled", "retry_after", retryAfter)
	return NewError(CodeRetryAfter, retryAfter, fmt.Errorf("retry after %d seconds", retryAfter))
}
