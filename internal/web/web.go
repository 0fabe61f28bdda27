// Package web serves the server-rendered admin console mounted under /admin.
// Pages own the form state and hand values and callbacks to the ui components.
package web

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/wellness-hub/internal/auth"
	"github.com/terra-clan/wellness-hub/internal/i18n"
	"github.com/terra-clan/wellness-hub/internal/models"
	"github.com/terra-clan/wellness-hub/internal/services"
	"github.com/terra-clan/wellness-hub/internal/ui"
)

const sessionCookie = "wellness_admin"

//go:embed templates/*.html
var templateFS embed.FS

// Config controls the admin console.
type Config struct {
	DefaultLocale string
	CookieSecure  bool
}

// Handler renders the admin pages.
type Handler struct {
	cfg       Config
	resources *services.ResourceService
	users     *services.UserService
	pages     map[string]*template.Template
}

// NewHandler parses the page templates.
func NewHandler(cfg Config, resources *services.ResourceService, users *services.UserService) (*Handler, error) {
	if cfg.DefaultLocale == "" {
		cfg.DefaultLocale = i18n.Default
	}
	base, err := template.New("layout").Funcs(template.FuncMap{"t": i18n.T}).
		ParseFS(templateFS, "templates/layout.html")
	if err != nil {
		return nil, err
	}

	pages := make(map[string]*template.Template)
	for _, name := range []string{"login", "resources", "resource_form", "users"} {
		clone, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if pages[name], err = clone.ParseFS(templateFS, "templates/"+name+".html"); err != nil {
			return nil, err
		}
	}

	return &Handler{cfg: cfg, resources: resources, users: users, pages: pages}, nil
}

// Routes returns the admin router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/login", h.handleLoginPage)
	r.Post("/login", h.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAdmin)

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/admin/resources", http.StatusSeeOther)
		})
		r.Post("/logout", h.handleLogout)

		r.Get("/resources", h.handleResources)
		r.Get("/resources/new", h.handleNewResource)
		r.Post("/resources/new", h.handleCreateResource)
		r.Get("/resources/{id}/edit", h.handleEditResource)
		r.Post("/resources/{id}/edit", h.handleUpdateResource)
		r.Post("/resources/{id}/delete", h.handleDeleteResource)

		r.Get("/users", h.handleUsers)
		r.Post("/users/{id}/admin", h.handleSetAdmin)
		r.Post("/users/{id}/delete", h.handleDeleteUser)
	})

	return r
}

type adminKey struct{}

type adminSession struct {
	user   *models.User
	claims *auth.Claims
}

func sessionFrom(ctx context.Context) *adminSession {
	s, _ := ctx.Value(adminKey{}).(*adminSession)
	return s
}

// requireAdmin resolves the session cookie and checks the stored admin flag.
func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(sessionCookie)
		if err != nil || c.Value == "" {
			http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
			return
		}
		claims, err := h.users.Authenticate(r.Context(), c.Value)
		if err != nil {
			h.clearSession(w)
			http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
			return
		}
		u, err := h.users.Get(r.Context(), claims.UID)
		if err != nil || !u.IsAdmin {
			h.clearSession(w)
			http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
			return
		}
		ctx := context.WithValue(r.Context(), adminKey{}, &adminSession{user: u, claims: claims})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) setSession(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/admin",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/admin",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) locale(r *http.Request) string {
	return i18n.DetermineLocale(r.URL.Query().Get("lang"), r.Header.Get("Accept-Language"), h.cfg.DefaultLocale)
}

type pageData struct {
	Title  string
	Locale string
	Logo   template.HTML
	Nav    template.HTML
	Flash  string
	Data   any
}

// render executes page into a buffer so a template failure still yields a clean 500.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, page, title, flash string, data any) {
	loc := h.locale(r)
	pd := pageData{Title: title, Locale: loc, Flash: flash, Data: data}

	var err error
	if pd.Logo, err = ui.HTML(ui.Logo{Locale: loc}); err != nil {
		h.fail(w, page, err)
		return
	}
	if sessionFrom(r.Context()) != nil {
		nav := ui.DesktopNavigation{
			Items: []ui.NavItem{
				{Title: i18n.T(loc, "nav.resources"), Path: "/admin/resources"},
				{Title: i18n.T(loc, "nav.users"), Path: "/admin/users"},
			},
			CurrentPath: r.URL.Path,
		}
		if pd.Nav, err = ui.HTML(nav); err != nil {
			h.fail(w, page, err)
			return
		}
	}

	var buf bytes.Buffer
	if err := h.pages[page].ExecuteTemplate(&buf, "layout", pd); err != nil {
		h.fail(w, page, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func (h *Handler) fail(w http.ResponseWriter, page string, err error) {
	slog.Error("failed to render admin page", "page", page, "error", err)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// flashFor returns a displayable message for a service error.
func flashFor(err error) (int, string) {
	if se, ok := services.AsServiceError(err); ok {
		switch se.Code {
		case services.ErrorNotFound:
			return http.StatusNotFound, se.Message
		case services.ErrorConflict:
			return http.StatusConflict, se.Message
		case services.ErrorForbidden:
			return http.StatusForbidden, se.Message
		case services.ErrorUnauthorized:
			return http.StatusUnauthorized, se.Message
		case services.ErrorTooManyRequests:
			return http.StatusTooManyRequests, se.Message
		default:
			return http.StatusBadRequest, se.Message
		}
	}
	slog.Error("admin request failed", "error", err)
	return http.StatusInternalServerError, "internal server error"
}

// Login

type loginData struct {
	Email string
}

func (h *Handler) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	loc := h.locale(r)
	h.render(w, r, http.StatusOK, "login", i18n.T(loc, "login.title"), "", loginData{})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	loc := h.locale(r)
	if err := r.ParseForm(); err != nil {
		h.render(w, r, http.StatusBadRequest, "login", i18n.T(loc, "login.title"), "invalid form", loginData{})
		return
	}
	email := r.PostForm.Get("email")

	sess, err := h.users.Login(r.Context(), email, r.PostForm.Get("password"))
	if err != nil {
		status, msg := flashFor(err)
		h.render(w, r, status, "login", i18n.T(loc, "login.title"), msg, loginData{Email: email})
		return
	}
	if !sess.User.IsAdmin {
		slog.Warn("non-admin console login", "user_id", sess.User.ID)
		h.render(w, r, http.StatusForbidden, "login", i18n.T(loc, "login.title"), i18n.T(loc, "login.forbidden"), loginData{Email: email})
		return
	}

	h.setSession(w, sess.Token, sess.ExpiresAt)
	http.Redirect(w, r, "/admin/resources", http.StatusSeeOther)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if s := sessionFrom(r.Context()); s != nil {
		if err := h.users.Logout(r.Context(), s.claims); err != nil {
			slog.Warn("failed to revoke admin session", "error", err)
		}
	}
	h.clearSession(w)
	http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
}
