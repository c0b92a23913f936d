package web

import (
	"net/http"

	"github.com/jkoblar/garrison/internal/logistics"
	"github.com/jkoblar/garrison/internal/session"
	webembed "github.com/jkoblar/garrison/web"
)

// NewRouter creates the page router with all routes registered. Mutating
// routes sit behind a per-IP rate limit to stop duplicate form submissions.
func NewRouter(api *logistics.Client, sessions *session.Store, cookieSecret string) (http.Handler, error) {
	templates, err := LoadTemplates()
	if err != nil {
		return nil, err
	}

	s := &Server{
		API:          api,
		Sessions:     sessions,
		Templates:    templates,
		CookieSecret: cookieSecret,
	}

	mux := http.NewServeMux()
	guard := s.RequireSession
	public := s.RedirectIfAuthenticated
	// A single-token bucket so the second request of a double-clicked
	// submit is rejected before it reaches the upstream.
	limited := func(h http.HandlerFunc) http.Handler {
		return RateLimit(guard(h), 1, 2)
	}

	// Static assets.
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(webembed.StaticFS()))))

	// Public routes.
	mux.Handle("GET /login", public(http.HandlerFunc(s.LoginPage)))
	mux.Handle("POST /login", RateLimit(http.HandlerFunc(s.LoginSubmit), 5, 2))
	mux.Handle("GET /register", public(http.HandlerFunc(s.RegisterPage)))
	mux.Handle("POST /register", RateLimit(http.HandlerFunc(s.RegisterSubmit), 5, 2))
	mux.HandleFunc("POST /logout", s.Logout)

	// Protected routes.
	mux.Handle("GET /{$}", guard(http.HandlerFunc(s.Dashboard)))

	mux.Handle("GET /assets", guard(http.HandlerFunc(s.AssetsPage)))
	mux.Handle("POST /assets", limited(s.AssetCreateSubmit))
	mux.Handle("POST /assets/adjust", limited(s.AssetAdjustSubmit))

	mux.Handle("GET /purchases", guard(http.HandlerFunc(s.PurchasesPage)))
	mux.Handle("POST /purchases", limited(s.PurchaseCreateSubmit))

	mux.Handle("GET /assignments", guard(http.HandlerFunc(s.AssignmentsPage)))
	mux.Handle("POST /assignments", limited(s.AssignmentCreateSubmit))
	mux.Handle("POST /assignments/{id}/expend", limited(s.AssignmentExpendSubmit))

	mux.Handle("GET /transfers", guard(http.HandlerFunc(s.TransfersPage)))
	mux.Handle("POST /transfers", limited(s.TransferCreateSubmit))

	// Unknown paths redirect to the root, which re-resolves per session state.
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
	})

	return mux, nil
}
