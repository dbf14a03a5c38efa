package books

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

// Handler serves the book pages. Each operation sits behind its own
// permission; viewing and mutating are separately grantable.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	rbac      rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf, rbac: rbac}
}

// MountRoutes registers book routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission(shared.PermViewBooks))
		r.Get("/", h.listBooks)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission(shared.PermCreateBook))
		r.Post("/", h.createBook)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission(shared.PermEditBook))
		r.Post("/{bookID}/edit", h.editBook)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission(shared.PermDeleteBook))
		r.Post("/{bookID}/delete", h.deleteBook)
	})
}

func (h *Handler) listBooks(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListBooks(r.Context())
	if err != nil {
		h.logger.Error("list books", slog.Any("error", err))
		h.render(w, r, map[string]any{"Errors": map[string]string{"general": shared.UserSafeMessage(err)}}, http.StatusInternalServerError)
		return
	}
	h.render(w, r, map[string]any{"Books": list}, http.StatusOK)
}

func (h *Handler) createBook(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.redirectWithFlash(w, r, "/books", "error", "Invalid form input")
		return
	}
	if _, err := h.service.CreateBook(r.Context(), r.PostFormValue("name"), r.PostFormValue("content")); err != nil {
		h.redirectWithFlash(w, r, "/books", "error", bookErrorMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/books", "success", "Book created")
}

func (h *Handler) editBook(w http.ResponseWriter, r *http.Request) {
	bookID, err := strconv.ParseInt(chi.URLParam(r, "bookID"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.redirectWithFlash(w, r, "/books", "error", "Invalid form input")
		return
	}
	if _, err := h.service.UpdateBook(r.Context(), bookID, r.PostFormValue("name"), r.PostFormValue("content")); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.redirectWithFlash(w, r, "/books", "error", bookErrorMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/books", "success", "Book updated")
}

func (h *Handler) deleteBook(w http.ResponseWriter, r *http.Request) {
	bookID, err := strconv.ParseInt(chi.URLParam(r, "bookID"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if err := h.service.DeleteBook(r.Context(), bookID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("delete book", slog.Int64("book_id", bookID), slog.Any("error", err))
		h.redirectWithFlash(w, r, "/books", "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/books", "success", "Book deleted")
}

func bookErrorMessage(err error) string {
	if errors.Is(err, ErrInvalidBook) {
		return "A book needs a name and at most 350 characters of content"
	}
	return shared.UserSafeMessage(err)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       "Books",
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
	if err := h.templates.Render(w, "pages/books/list.html", viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err))
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}
