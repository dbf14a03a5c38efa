// Package roles serves the role-management admin surface on top of the
// RBAC service.
package roles

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

// Handler manages role management endpoints.
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

// MountRoutes registers role routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission(shared.PermManageRoles))
		r.Get("/", h.listRoles)
		r.Post("/", h.createRole)
		r.Get("/{roleID}", h.showEditRole)
		r.Post("/{roleID}/edit", h.editRole)
		r.Post("/{roleID}/delete", h.deleteRole)
	})
}

type roleForm struct {
	Name          string
	Description   string
	PermissionIDs []int64
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roleList, err := h.service.ListRolesWithPermissions(r.Context())
	if err != nil {
		h.renderError(w, r, "pages/roles/list.html", err)
		return
	}
	perms, err := h.service.ListPermissions(r.Context())
	if err != nil {
		h.renderError(w, r, "pages/roles/list.html", err)
		return
	}
	h.render(w, r, "pages/roles/list.html", map[string]any{"Roles": roleList, "Permissions": perms}, http.StatusOK)
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	form, err := parseRoleForm(r)
	if err != nil {
		h.redirectWithFlash(w, r, "/roles", "error", "Invalid form input")
		return
	}
	if _, err := h.service.CreateRole(r.Context(), form.Name, form.Description, form.PermissionIDs); err != nil {
		h.logger.Warn("create role", slog.Any("error", err))
		h.redirectWithFlash(w, r, "/roles", "error", roleErrorMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/roles", "success", "Role created")
}

func (h *Handler) showEditRole(w http.ResponseWriter, r *http.Request) {
	roleID, err := strconv.ParseInt(chi.URLParam(r, "roleID"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	role, err := h.service.GetRole(r.Context(), roleID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.renderError(w, r, "pages/roles/edit.html", err)
		return
	}
	attached, err := h.service.RolePermissions(r.Context(), roleID)
	if err != nil {
		h.renderError(w, r, "pages/roles/edit.html", err)
		return
	}
	perms, err := h.service.ListPermissions(r.Context())
	if err != nil {
		h.renderError(w, r, "pages/roles/edit.html", err)
		return
	}
	h.render(w, r, "pages/roles/edit.html", map[string]any{
		"Role":        role,
		"Attached":    attached,
		"Permissions": perms,
	}, http.StatusOK)
}

func (h *Handler) editRole(w http.ResponseWriter, r *http.Request) {
	roleID, err := strconv.ParseInt(chi.URLParam(r, "roleID"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	form, err := parseRoleForm(r)
	if err != nil {
		h.redirectWithFlash(w, r, "/roles", "error", "Invalid form input")
		return
	}
	if _, err := h.service.UpdateRole(r.Context(), roleID, form.Name, form.Description, form.PermissionIDs); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Warn("edit role", slog.Int64("role_id", roleID), slog.Any("error", err))
		h.redirectWithFlash(w, r, "/roles", "error", roleErrorMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/roles", "success", "Role updated")
}

func (h *Handler) deleteRole(w http.ResponseWriter, r *http.Request) {
	roleID, err := strconv.ParseInt(chi.URLParam(r, "roleID"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if err := h.service.DeleteRole(r.Context(), roleID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("delete role", slog.Int64("role_id", roleID), slog.Any("error", err))
		h.redirectWithFlash(w, r, "/roles", "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/roles", "success", "Role deleted")
}

func parseRoleForm(r *http.Request) (roleForm, error) {
	if err := r.ParseForm(); err != nil {
		return roleForm{}, err
	}
	form := roleForm{
		Name:        r.PostFormValue("name"),
		Description: r.PostFormValue("description"),
	}
	for _, raw := range r.PostForm["permissions"] {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return roleForm{}, err
		}
		form.PermissionIDs = append(form.PermissionIDs, id)
	}
	return form, nil
}

func roleErrorMessage(err error) string {
	if errors.Is(err, rbac.ErrNoPermissions) {
		return "Select at least one permission"
	}
	return shared.UserSafeMessage(err)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template string, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       "Roles",
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
	if err := h.templates.Render(w, template, viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err))
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, template string, err error) {
	h.logger.Error("roles handler", slog.Any("error", err))
	h.render(w, r, template, map[string]any{"Errors": map[string]string{"general": shared.UserSafeMessage(err)}}, http.StatusInternalServerError)
}
