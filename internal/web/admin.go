package web

import (
	"errors"
	"net/http"
	"strings"

	"donorhub/internal/session/roles"
	"donorhub/pkg/platform/httputil"
	"donorhub/pkg/requestcontext"
)

func (h *Handler) handleAdmin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data := base(r, "Administration")
	data.Guard = RouteRequirements["/admin"].String()

	admins, err := h.roles.Administrators(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list administrators",
			"request_id", requestID(r),
			"error", err,
		)
		data.Notice = "The administrator list is unavailable right now."
	}
	data.Administrators = admins
	h.render(w, r, http.StatusOK, "admin", data)
}

// handleChangeRole grants or revokes the administrator role, then re-resolves
// every open session of the affected identity so its pages re-check access.
func (h *Handler) handleChangeRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := requestcontext.IdentityID(ctx)

	if err := r.ParseForm(); err != nil {
		httputil.WriteError(w, httputil.Wrap(err, httputil.CodeBadRequest, "invalid form"))
		return
	}
	identityID := strings.TrimSpace(r.PostForm.Get("identity_id"))
	action := r.PostForm.Get("action")

	var err error
	switch action {
	case "grant":
		err = h.roles.Grant(ctx, identityID)
	case "revoke":
		if identityID == actor {
			httputil.WriteError(w, httputil.New(httputil.CodeConflict, "administrators cannot revoke their own role"))
			return
		}
		err = h.roles.Revoke(ctx, identityID)
	default:
		httputil.WriteError(w, httputil.New(httputil.CodeBadRequest, "action must be grant or revoke"))
		return
	}
	if err != nil {
		if errors.Is(err, roles.ErrEmptyIdentityID) {
			httputil.WriteError(w, httputil.Wrap(err, httputil.CodeBadRequest, "identity_id is required"))
			return
		}
		h.logger.ErrorContext(ctx, "failed to change administrator role",
			"request_id", requestID(r),
			"action", action,
			"identity_id", identityID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	refreshed := h.sessions.RefreshIdentity(ctx, identityID)
	h.metrics.IncrementRoleChange(action)
	h.logger.InfoContext(ctx, "administrator role changed",
		"request_id", requestID(r),
		"actor", actor,
		"identity_id", identityID,
		"action", action,
		"sessions_refreshed", refreshed,
	)
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}
