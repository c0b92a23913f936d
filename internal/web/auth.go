package web

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/jkoblar/garrison/internal/auth"
	"github.com/jkoblar/garrison/internal/logistics"
	"github.com/jkoblar/garrison/internal/model"
)

// LoginPage handles GET /login.
func (s *Server) LoginPage(w http.ResponseWriter, r *http.Request) {
	data := &PageData{Title: "Sign in", Error: r.URL.Query().Get("error")}
	if r.URL.Query().Get("registered") != "" {
		data.Success = "Account created. Sign in to continue."
	}
	s.Templates.Render(w, "login.html", data)
}

// LoginSubmit handles POST /login.
func (s *Server) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	username := r.FormValue("username")
	password := r.FormValue("password")

	if username == "" || password == "" {
		redirectWithError(w, r, "/login", "Enter a username and password.")
		return
	}

	result, err := s.API.Login(r.Context(), username, password)
	if err != nil {
		slog.Warn("login failed", "username", username, "error", err)
		redirectWithError(w, r, "/login", logistics.ErrorMessage(err, "Invalid username or password."))
		return
	}

	user := model.User{Role: result.Role, BaseID: result.BaseID}
	sessionID, err := s.Sessions.Login(r.Context(), result.Token, user)
	if err != nil {
		slog.Error("failed to store session", "error", err)
		redirectWithError(w, r, "/login", "Sign-in failed.")
		return
	}

	cookie, err := auth.SignCookie(s.CookieSecret, sessionID)
	if err != nil {
		slog.Error("failed to sign session cookie", "error", err)
		redirectWithError(w, r, "/login", "Sign-in failed.")
		return
	}

	setSessionCookie(w, cookie)
	slog.Info("user signed in", "username", username, "role", result.Role)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// RegisterPage handles GET /register.
func (s *Server) RegisterPage(w http.ResponseWriter, r *http.Request) {
	s.Templates.Render(w, "register.html", &PageData{
		Title: "Register",
		Error: r.URL.Query().Get("error"),
	})
}

// RegisterSubmit handles POST /register.
func (s *Server) RegisterSubmit(w http.ResponseWriter, r *http.Request) {
	username := r.FormValue("username")
	password := r.FormValue("password")
	role := r.FormValue("role")
	baseIDRaw := r.FormValue("base_id")

	if username == "" || password == "" || !model.ValidRole(role) {
		redirectWithError(w, r, "/register", "Fill in all fields.")
		return
	}

	// Admins carry no home base; every other role requires one.
	var baseID *int64
	if role != model.RoleAdmin {
		id, err := strconv.ParseInt(baseIDRaw, 10, 64)
		if err != nil {
			redirectWithError(w, r, "/register", "A base is required for this role.")
			return
		}
		baseID = &id
	}

	if err := s.API.Register(r.Context(), username, password, role, baseID); err != nil {
		slog.Warn("registration failed", "username", username, "error", err)
		redirectWithError(w, r, "/register", logistics.ErrorMessage(err, "Registration failed."))
		return
	}

	slog.Info("user registered", "username", username, "role", role)
	http.Redirect(w, r, "/login?registered=1", http.StatusSeeOther)
}

// Logout handles POST /logout. The session row and cookie are cleared
// unconditionally, regardless of prior state.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookie); err == nil && cookie.Value != "" {
		if sessionID, err := auth.VerifyCookie(s.CookieSecret, cookie.Value); err == nil {
			if err := s.Sessions.Logout(r.Context(), sessionID); err != nil {
				slog.Error("failed to delete session", "error", err)
			}
		}
	}

	clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
