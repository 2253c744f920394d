package handler

import (
	"errors"
	"net/http"

	"github.com/boddenberg/agenda-bfa-go/internal/domain"
	"github.com/boddenberg/agenda-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Permissions Handlers
// ============================================================

func myModulesHandler(svc *service.PermissionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/me/modules")
		defer span.End()

		userID := UserIDFromContext(ctx)
		span.SetAttributes(attribute.String("user.id", userID))

		resp, err := svc.ModulesForUser(ctx, userID)
		var notFound *domain.ErrNotFound
		if errors.As(err, &notFound) {
			// Signed in but not provisioned: an empty menu rather than an error page.
			writeJSON(w, http.StatusOK, domain.ModulesResponse{
				UserID:      userID,
				Permissions: []string{},
				Modules:     []*domain.Module{},
			})
			return
		}
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func myPermissionHandler(svc *service.PermissionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/me/permissions/{code}")
		defer span.End()

		code := chi.URLParam(r, "code")
		ok, err := svc.HasPermission(ctx, UserIDFromContext(ctx), code)
		var notFound *domain.ErrNotFound
		if err != nil && !errors.As(err, &notFound) {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"code":    code,
			"granted": ok,
		})
	}
}
