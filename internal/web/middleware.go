package web

import (
	"context"
	"net/http"
	"net/url"

	"github.com/jkoblar/garrison/internal/auth"
	"github.com/jkoblar/garrison/internal/logistics"
	"github.com/jkoblar/garrison/internal/session"
)

type webContextKey string

const webSessionKey webContextKey = "websession"

const sessionCookie = "session"

// RequireSession is the route guard for the protected area. It restores the
// session named by the signed cookie and puts it, plus the upstream bearer
// credential, into the request context. Any failure clears the cookie and
// redirects to the login page; there is no intermediate state.
func (s *Server) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := s.sessionFromRequest(r)
		if sess == nil {
			clearSessionCookie(w)
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		ctx := context.WithValue(r.Context(), webSessionKey, sess)
		ctx = logistics.WithToken(ctx, sess.Token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RedirectIfAuthenticated sends logged-in users from public pages to the
// dashboard.
func (s *Server) RedirectIfAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.sessionFromRequest(r) != nil {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// sessionFromRequest restores a session from the request cookie, or nil.
func (s *Server) sessionFromRequest(r *http.Request) *session.Session {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil || cookie.Value == "" {
		return nil
	}

	sessionID, err := auth.VerifyCookie(s.CookieSecret, cookie.Value)
	if err != nil {
		return nil
	}

	sess, err := s.Sessions.Get(r.Context(), sessionID)
	if err != nil {
		return nil
	}
	return sess
}

// GetSession retrieves the restored session from the request context.
func GetSession(ctx context.Context) *session.Session {
	sess, _ := ctx.Value(webSessionKey).(*session.Session)
	return sess
}

func setSessionCookie(w http.ResponseWriter, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   int(auth.CookieExpiry.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// redirectWithError sends the browser back to path with a user-visible error
// string. Validation failures use this without any upstream call.
func redirectWithError(w http.ResponseWriter, r *http.Request, path, msg string) {
	http.Redirect(w, r, path+"?error="+url.QueryEscape(msg), http.StatusSeeOther)
}
