// Package users serves the user-role management admin surface.
package users

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/bookshelf-cms/bookshelf/internal/rbac"
	"github.com/bookshelf-cms/bookshelf/internal/shared"
	"github.com/bookshelf-cms/bookshelf/internal/view"
)

// Handler manages user-role assignment endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *rbac.Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	rbac      rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *rbac.Service, templates *view.Engine, csrf *shared.CSRFManager, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf, rbac: rbac}
}

// MountRoutes registers user management routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission(shared.PermManageUsers))
		r.Get("/", h.listUsers)
		r.Post("/{userID}/roles", h.changeUserRole)
	})
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	members, err := h.service.ListMembers(r.Context())
	if err != nil {
		h.logger.Error("list users", slog.Any("error", err))
		h.render(w, r, map[string]any{"Errors": map[string]string{"general": shared.UserSafeMessage(err)}}, http.StatusInternalServerError)
		return
	}
	roleList, err := h.service.ListRoles(r.Context())
	if err != nil {
		h.logger.Error("list roles", slog.Any("error", err))
		h.render(w, r, map[string]any{"Errors": map[string]string{"general": shared.UserSafeMessage(err)}}, http.StatusInternalServerError)
		return
	}
	h.render(w, r, map[string]any{"Members": members, "Roles": roleList}, http.StatusOK)
}

// changeUserRole assigns or removes a role according to the form's
// action field. Both directions are idempotent.
func (h *Handler) changeUserRole(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.redirectWithFlash(w, r, "/users", "error", "Invalid form input")
		return
	}
	roleID, err := strconv.ParseInt(r.PostFormValue("role_id"), 10, 64)
	if err != nil {
		h.redirectWithFlash(w, r, "/users", "error", "Invalid form input")
		return
	}
	role, err := h.service.GetRole(r.Context(), roleID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			h.redirectWithFlash(w, r, "/users", "error", "Unknown role")
			return
		}
		h.logger.Error("load role", slog.Any("error", err))
		h.redirectWithFlash(w, r, "/users", "error", shared.UserSafeMessage(err))
		return
	}

	actor := shared.UserFromContext(r.Context())
	var actorID int64
	if actor != nil {
		actorID = actor.ID
	}

	action := r.PostFormValue("action")
	if action == "remove" {
		err = h.service.RemoveRole(r.Context(), actorID, userID, roleID)
	} else {
		err = h.service.AssignRole(r.Context(), actorID, userID, roleID)
	}
	if err != nil {
		h.logger.Error("change user role", slog.Int64("user_id", userID), slog.Int64("role_id", roleID), slog.Any("error", err))
		h.redirectWithFlash(w, r, "/users", "error", shared.UserSafeMessage(err))
		return
	}
	if action == "remove" {
		h.redirectWithFlash(w, r, "/users", "success", "Role "+role.Name+" removed")
		return
	}
	h.redirectWithFlash(w, r, "/users", "success", "Role "+role.Name+" assigned")
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       "Users",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		CurrentUser: shared.UserFromContext(r.Context()),
		Locale:      view.LocaleFromContext(r.Context()),
		Data:        data,
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	if err := h.templates.Render(w, "pages/users/list.html", viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err))
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}
