package rbac

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bookshelf-cms/bookshelf/internal/shared"
	"github.com/bookshelf-cms/bookshelf/internal/view"
)

// AdminHandler serves the admin panel and baseline seeding endpoint.
type AdminHandler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	rbac      Middleware
}

// NewAdminHandler builds AdminHandler instance.
func NewAdminHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, rbac Middleware) *AdminHandler {
	return &AdminHandler{logger: logger, service: service, templates: templates, csrf: csrf, rbac: rbac}
}

// MountRoutes registers admin routes. The whole surface requires the
// admin role, matching the panel's original reachability.
func (h *AdminHandler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireRole(shared.RoleAdmin))
		r.Get("/", h.showPanel)
		r.Get("/permissions", h.listPermissions)
		r.Post("/init", h.initBaseline)
	})
}

func (h *AdminHandler) showPanel(w http.ResponseWriter, r *http.Request) {
	members, err := h.service.ListMembers(r.Context())
	if err != nil {
		h.fail(w, r, "load users", err)
		return
	}
	roles, err := h.service.ListRolesWithPermissions(r.Context())
	if err != nil {
		h.fail(w, r, "load roles", err)
		return
	}
	perms, err := h.service.ListPermissions(r.Context())
	if err != nil {
		h.fail(w, r, "load permissions", err)
		return
	}
	h.render(w, r, "pages/admin/panel.html", map[string]any{
		"Members":     members,
		"Roles":       roles,
		"Permissions": perms,
	}, http.StatusOK)
}

func (h *AdminHandler) listPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.service.ListPermissions(r.Context())
	if err != nil {
		h.fail(w, r, "load permissions", err)
		return
	}
	h.render(w, r, "pages/admin/permissions.html", map[string]any{"Permissions": perms}, http.StatusOK)
}

func (h *AdminHandler) initBaseline(w http.ResponseWriter, r *http.Request) {
	if err := h.service.EnsureBaseline(r.Context()); err != nil {
		h.logger.Error("baseline seeding failed", slog.Any("error", err))
		h.redirectWithFlash(w, r, "/admin", "error", "Initialization failed, no changes were applied")
		return
	}
	h.redirectWithFlash(w, r, "/admin", "success", "Roles and permissions initialized")
}

func (h *AdminHandler) fail(w http.ResponseWriter, r *http.Request, what string, err error) {
	h.logger.Error(what, slog.Any("error", err))
	h.render(w, r, "pages/admin/panel.html", map[string]any{"Errors": map[string]string{"general": shared.UserSafeMessage(err)}}, http.StatusInternalServerError)
}

func (h *AdminHandler) render(w http.ResponseWriter, r *http.Request, template string, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       "Admin",
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

func (h *AdminHandler) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}
