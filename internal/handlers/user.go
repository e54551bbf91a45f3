package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"storefront/internal/handlers/render"
	"storefront/internal/handlers/userctx"
)

func handleUserMe() http.Handler {
	type response struct {
		ID             uuid.UUID `json:"id"`
		Username       string    `json:"username"`
		FullName       string    `json:"full_name,omitempty"`
		Email          string    `json:"email,omitempty"`
		EmailConfirmed bool      `json:"email_confirmed"`
		Roles          []string  `json:"roles"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _ := userctx.FromContext(r.Context())
		render.JSON(w, response{
			ID:             user.ID,
			Username:       user.Username,
			FullName:       user.FullName,
			Email:          user.Email,
			EmailConfirmed: user.EmailConfirmed,
			Roles:          user.Roles,
		})
	})
}
