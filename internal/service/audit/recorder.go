package audit

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"storefront/internal/logger"
	"storefront/internal/models"
	"storefront/internal/repository"
)

const (
	defaultCountWorkers = 4   // Number of workers writing entries
	defaultQueueSize    = 256 // Entries buffered before Record starts dropping
)

// Actions recorded in the trail
const (
	ActionLogin   = "auth.login"
	ActionLogout  = "auth.logout"
	ActionRefresh = "auth.refresh"
	ActionLockout = "auth.lockout"
	ActionCreate  = "entity.create"
	ActionUpdate  = "entity.update"
	ActionDelete  = "entity.delete"
)

type Entry struct {
	UserID    *uuid.UUID
	Action    string
	Entity    string
	EntityID  string
	Detail    string
	IPAddress string
}

// Recorder writes audit entries in the background. Recording is best
// effort: a full queue drops the entry so a slow database never holds
// a request hostage.
type Recorder struct {
	countWorkers int
	queue        chan Entry

	auditRepo repository.AuditLogRepo
	logger    logger.Logger
}

func NewRecorder(auditRepo repository.AuditLogRepo, logger logger.Logger) *Recorder {
	return &Recorder{
		countWorkers: defaultCountWorkers,
		queue:        make(chan Entry, defaultQueueSize),
		auditRepo:    auditRepo,
		logger:       logger,
	}
}

// Record enqueues the entry without blocking
func (r *Recorder) Record(entry Entry) {
	select {
	case r.queue <- entry:
	default:
		r.logger.Warn("Audit queue full, entry dropped", "action", entry.Action, "entity", entry.Entity)
	}
}

// Run starts the workers. The returned channel closes when every worker
// has stopped after the context is done.
func (r *Recorder) Run(ctx context.Context) <-chan struct{} {
	idleStopped := make(chan struct{})

	var wg sync.WaitGroup
	for range r.countWorkers {
		wg.Add(1)
		go func() {
			r.worker(ctx)
			wg.Done()
		}()
	}

	go func() {
		defer close(idleStopped)
		wg.Wait()
		r.logger.Debug("Audit recorder stopped")
	}()

	return idleStopped
}

func (r *Recorder) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case entry := <-r.queue:
			_, err := r.auditRepo.Create(ctx, repository.CreateAuditLogParams{
				UserID:    entry.UserID,
				Action:    entry.Action,
				Entity:    entry.Entity,
				EntityID:  entry.EntityID,
				Detail:    entry.Detail,
				IPAddress: entry.IPAddress,
			})
			if err != nil {
				r.logger.Error("Failed to write audit entry", "error", err, "action", entry.Action)
			}
		}
	}
}

// History lists the newest entries for the user
func (r *Recorder) History(ctx context.Context, userID uuid.UUID, limit int) ([]models.AuditLog, error) {
	return r.auditRepo.ListByUser(ctx, userID, limit)
}
