package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/bookshelf-cms/bookshelf/internal/shared"
	"github.com/bookshelf-cms/bookshelf/internal/view"
)

// Handler wires HTTP endpoints for registration and login flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	templates      *view.Engine
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, sessions *shared.SessionManager, csrf *shared.CSRFManager) *Handler {
	return &Handler{
		logger:         logger,
		service:        service,
		templates:      templates,
		sessionManager: sessions,
		csrfManager:    csrf,
		validator:      validator.New(),
	}
}

// MountRoutes registers auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/login", h.showLogin)
	r.Post("/login", h.handleLogin)
	r.Get("/register", h.showRegister)
	r.Post("/register", h.handleRegister)
	r.Get("/logout", h.handleLogout)
	r.Post("/logout", h.handleLogout)
}

type loginForm struct {
	Handle   string `validate:"required"`
	Password string `validate:"required"`
	Next     string
}

type registerForm struct {
	Handle          string `validate:"required,min=3,max=25"`
	Email           string `validate:"required,email"`
	Password        string `validate:"required,min=6"`
	ConfirmPassword string `validate:"required,eqfield=Password"`
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	if shared.UserFromContext(r.Context()) != nil {
		http.Redirect(w, r, "/books", http.StatusSeeOther)
		return
	}
	form := loginForm{Next: SafeNext(r.URL.Query().Get("next"))}
	h.renderLogin(w, r, form, nil, http.StatusOK)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if shared.UserFromContext(r.Context()) != nil {
		http.Redirect(w, r, "/books", http.StatusSeeOther)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := loginForm{
		Handle:   strings.TrimSpace(r.PostFormValue("handle")),
		Password: r.PostFormValue("password"),
		Next:     SafeNext(r.PostFormValue("next")),
	}
	errs := h.validate(form)
	if len(errs) == 0 {
		user, err := h.service.Authenticate(r.Context(), form.Handle, form.Password)
		if err != nil {
			errs = map[string]string{"general": shared.UserSafeMessage(shared.ErrInvalidCredentials)}
		} else {
			h.establishSession(w, r, user, form.Next)
			return
		}
	}
	h.renderLogin(w, r, form, errs, http.StatusBadRequest)
}

// establishSession rotates the session ID, binds it to the user and
// records the session row in postgres.
func (h *Handler) establishSession(w http.ResponseWriter, r *http.Request, user *User, next string) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if err := h.sessionManager.Renew(r.Context(), sess); err != nil {
		h.logger.Error("renew session", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.csrfManager.Rotate(sess)
	sess.SetUser(strconv.FormatInt(user.ID, 10))
	sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Welcome back"})

	expiresAt := time.Now().Add(h.sessionManager.TTL())
	if err := h.service.RegisterSession(r.Context(), sess.ID, user.ID, expiresAt, r.RemoteAddr, r.UserAgent()); err != nil {
		h.logger.Warn("register session", slog.Any("error", err))
	}

	target := next
	if target == "" {
		target = "/books"
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *Handler) showRegister(w http.ResponseWriter, r *http.Request) {
	if shared.UserFromContext(r.Context()) != nil {
		http.Redirect(w, r, "/books", http.StatusSeeOther)
		return
	}
	h.renderRegister(w, r, registerForm{}, nil, http.StatusOK)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if shared.UserFromContext(r.Context()) != nil {
		http.Redirect(w, r, "/books", http.StatusSeeOther)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := registerForm{
		Handle:          strings.TrimSpace(r.PostFormValue("handle")),
		Email:           strings.TrimSpace(r.PostFormValue("email")),
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("confirm_password"),
	}
	errs := h.validate(form)
	if len(errs) == 0 {
		_, err := h.service.Register(r.Context(), form.Handle, form.Email, form.Password)
		switch {
		case err == nil:
			if sess := shared.SessionFromContext(r.Context()); sess != nil {
				sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Registration successful, please log in"})
			}
			http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
			return
		default:
			errs = map[string]string{"general": shared.UserSafeMessage(err)}
		}
	}
	h.renderRegister(w, r, form, errs, http.StatusBadRequest)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if user := shared.UserFromContext(r.Context()); user != nil {
		h.service.RecordLogout(r.Context(), user.ID)
	}
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if err := h.service.RemoveSession(r.Context(), sess.ID); err != nil {
			h.logger.Warn("remove session", slog.Any("error", err))
		}
		h.sessionManager.Destroy(sess)
	}
	http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
}

// ShowLoginForTest exposes the GET handler for tests.
func (h *Handler) ShowLoginForTest(w http.ResponseWriter, r *http.Request) {
	h.showLogin(w, r)
}

// HandleLoginForTest exposes the POST handler for tests.
func (h *Handler) HandleLoginForTest(w http.ResponseWriter, r *http.Request) {
	h.handleLogin(w, r)
}

// HandleRegisterForTest exposes the registration POST handler for tests.
func (h *Handler) HandleRegisterForTest(w http.ResponseWriter, r *http.Request) {
	h.handleRegister(w, r)
}

// HandleLogoutForTest exposes the logout handler for tests.
func (h *Handler) HandleLogoutForTest(w http.ResponseWriter, r *http.Request) {
	h.handleLogout(w, r)
}

func (h *Handler) validate(form any) map[string]string {
	errs := make(map[string]string)
	if err := h.validator.Struct(form); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fieldErr := range fieldErrs {
				errs[fieldErr.Field()] = fieldErr.Error()
			}
		} else {
			errs["general"] = "Invalid input"
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func (h *Handler) renderLogin(w http.ResponseWriter, r *http.Request, form loginForm, errs map[string]string, status int) {
	h.render(w, r, "pages/login.html", "Sign in", map[string]any{"Form": form, "Errors": errs}, status)
}

func (h *Handler) renderRegister(w http.ResponseWriter, r *http.Request, form registerForm, errs map[string]string, status int) {
	h.render(w, r, "pages/register.html", "Create account", map[string]any{"Form": form, "Errors": errs}, status)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template, title string, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrfManager.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       title,
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
		h.logger.Error("render template", slog.String("template", template), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// SafeNext accepts a post-login redirect target only when it is a local
// absolute path. Anything scheme-relative or external is discarded.
func SafeNext(next string) string {
	if next == "" {
		return ""
	}
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.ContainsAny(next, "\\\r\n") {
		return ""
	}
	return next
}
