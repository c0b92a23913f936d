// Package logisticstest provides an in-memory fake of the upstream logistics
// API for tests. It mirrors the upstream's routes, response envelope, and
// error shape, and records every request it receives so tests can assert on
// traffic (or the absence of it).
package logisticstest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jkoblar/garrison/internal/model"
)

// Account is a registered upstream user.
type Account struct {
	Password string
	Role     string
	BaseID   *int64
}

// Request is one recorded upstream request.
type Request struct {
	Method        string
	Path          string
	Authorization string
}

// Server is the fake upstream. Collections are plain exported slices so
// tests can seed them directly; mutations through the API append to them.
type Server struct {
	mu sync.Mutex

	Bases       []model.Base
	Assets      []model.Asset
	Purchases   []model.Purchase
	Assignments []model.Assignment
	Transfers   []model.Transfer
	Metrics     model.Metrics

	Accounts map[string]Account
	tokens   map[string]string

	// FailWith forces a status code for requests whose "METHOD /path"
	// matches the key, with a message body.
	FailWith map[string]int

	requests []Request
	nextID   int64
	handler  http.Handler
}

// New creates an empty fake upstream with one seeded account.
func New() *Server {
	s := &Server{
		Accounts: map[string]Account{},
		tokens:   map[string]string{},
		FailWith: map[string]int{},
		nextID:   100,
	}
	s.handler = s.routes()
	return s
}

// Start runs the fake upstream on a test listener.
func (s *Server) Start(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(s)
	t.Cleanup(ts.Close)
	return ts
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests = append(s.requests, Request{
		Method:        r.Method,
		Path:          r.URL.Path,
		Authorization: r.Header.Get("Authorization"),
	})
	forced, ok := s.FailWith[r.Method+" "+r.URL.Path]
	s.mu.Unlock()

	if ok {
		writeError(w, forced, "forced failure")
		return
	}
	s.handler.ServeHTTP(w, r)
}

// Requests returns a copy of all recorded requests.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// RequestCount counts recorded requests matching method and path.
func (s *Server) RequestCount(method, path string) int {
	n := 0
	for _, req := range s.Requests() {
		if req.Method == method && req.Path == path {
			n++
		}
	}
	return n
}

// Token registers and returns a valid bearer token for username.
func (s *Server) Token(username string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	token := "tok-" + username
	s.tokens[token] = username
	return token
}

// SeedAsset appends an asset and returns it.
func (s *Server) SeedAsset(name, assetType string, quantity int, baseID int64) model.Asset {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	a := model.Asset{ID: s.nextID, Name: name, Type: assetType, CurrentQuantity: quantity, BaseID: baseID}
	s.Assets = append(s.Assets, a)
	return a
}

// SeedBase appends a base and returns it.
func (s *Server) SeedBase(name, location string) model.Base {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	b := model.Base{ID: s.nextID, Name: name, Location: location}
	s.Bases = append(s.Bases, b)
	return b
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/login", s.login)
	mux.HandleFunc("POST /auth/register", s.register)

	auth := s.requireAuth

	mux.Handle("GET /base", auth(s.listBases))
	mux.Handle("GET /asset", auth(s.listAssets))
	mux.Handle("GET /asset/{baseId}", auth(s.assetsByBase))
	mux.Handle("POST /asset", auth(s.createAsset))
	mux.Handle("PATCH /asset/{id}", auth(s.adjustAsset))
	mux.Handle("GET /purchase", auth(s.listPurchases))
	mux.Handle("POST /purchase", auth(s.createPurchase))
	mux.Handle("GET /assignment", auth(s.listAssignments))
	mux.Handle("POST /assignment", auth(s.createAssignment))
	mux.Handle("PATCH /assignment/{id}/expend", auth(s.expendAssignment))
	mux.Handle("GET /transfer", auth(s.listTransfers))
	mux.Handle("POST /transfer", auth(s.createTransfer))
	mux.Handle("GET /dashboard/metrics", auth(s.dashboardMetrics))

	return mux
}

func (s *Server) requireAuth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "missing or invalid authorization header")
			return
		}
		s.mu.Lock()
		_, ok := s.tokens[strings.TrimPrefix(header, "Bearer ")]
		s.mu.Unlock()
		if !ok {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next(w, r)
	})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.mu.Lock()
	account, ok := s.Accounts[req.Username]
	s.mu.Unlock()
	if !ok || account.Password != req.Password {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token := s.Token(req.Username)
	writeData(w, http.StatusOK, map[string]any{
		"token":  token,
		"role":   account.Role,
		"baseId": account.BaseID,
	})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Role     string `json:"role"`
		BaseID   *int64 `json:"baseId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.Accounts[req.Username]; exists {
		writeError(w, http.StatusConflict, "username already taken")
		return
	}
	s.Accounts[req.Username] = Account{Password: req.Password, Role: req.Role, BaseID: req.BaseID}
	writeData(w, http.StatusCreated, nil)
}

func (s *Server) listBases(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeData(w, http.StatusOK, emptyNotNil(s.Bases))
}

func (s *Server) listAssets(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeData(w, http.StatusOK, emptyNotNil(s.Assets))
}

func (s *Server) assetsByBase(w http.ResponseWriter, r *http.Request) {
	baseID, err := strconv.ParseInt(r.PathValue("baseId"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid base id")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	assets := []model.Asset{}
	for _, a := range s.Assets {
		if a.BaseID == baseID {
			assets = append(assets, a)
		}
	}
	writeData(w, http.StatusOK, assets)
}

func (s *Server) createAsset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type     string `json:"type"`
		Name     string `json:"name"`
		Quantity int    `json:"quantity"`
		BaseID   int64  `json:"baseId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.Assets = append(s.Assets, model.Asset{
		ID: s.nextID, Type: req.Type, Name: req.Name,
		CurrentQuantity: req.Quantity, BaseID: req.BaseID,
	})
	writeData(w, http.StatusCreated, nil)
}

func (s *Server) adjustAsset(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid asset id")
		return
	}
	var req struct {
		Quantity  int    `json:"quantity"`
		Operation string `json:"operation"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Assets {
		if s.Assets[i].ID != id {
			continue
		}
		switch req.Operation {
		case "add":
			s.Assets[i].CurrentQuantity += req.Quantity
		case "remove":
			if s.Assets[i].CurrentQuantity < req.Quantity {
				writeError(w, http.StatusBadRequest, "insufficient quantity")
				return
			}
			s.Assets[i].CurrentQuantity -= req.Quantity
		default:
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown operation %q", req.Operation))
			return
		}
		writeData(w, http.StatusOK, nil)
		return
	}
	writeError(w, http.StatusNotFound, "asset not found")
}

func (s *Server) listPurchases(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeData(w, http.StatusOK, emptyNotNil(s.Purchases))
}

func (s *Server) createPurchase(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AssetID  int64 `json:"assetId"`
		Quantity int   `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.Purchases = append(s.Purchases, model.Purchase{
		ID: s.nextID, AssetID: req.AssetID, Quantity: req.Quantity,
		Date: model.Date{Time: time.Now()},
	})
	writeData(w, http.StatusCreated, nil)
}

func (s *Server) listAssignments(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeData(w, http.StatusOK, emptyNotNil(s.Assignments))
}

func (s *Server) createAssignment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AssetID  int64      `json:"assetId"`
		Quantity int        `json:"quantity"`
		Assignee string     `json:"assignee"`
		Date     model.Date `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.Assignments = append(s.Assignments, model.Assignment{
		ID: s.nextID, AssetID: req.AssetID, Quantity: req.Quantity,
		Assignee: req.Assignee, Date: req.Date,
	})
	writeData(w, http.StatusCreated, nil)
}

func (s *Server) expendAssignment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid assignment id")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Assignments {
		if s.Assignments[i].ID == id {
			s.Assignments[i].Expended = true
			writeData(w, http.StatusOK, nil)
			return
		}
	}
	writeError(w, http.StatusNotFound, "assignment not found")
}

func (s *Server) listTransfers(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeData(w, http.StatusOK, emptyNotNil(s.Transfers))
}

func (s *Server) createTransfer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AssetID    int64 `json:"assetId"`
		FromBaseID int64 `json:"fromBaseId"`
		ToBaseID   int64 `json:"toBaseId"`
		Quantity   int   `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.Transfers = append(s.Transfers, model.Transfer{
		ID: s.nextID, AssetID: req.AssetID,
		FromBaseID: req.FromBaseID, ToBaseID: req.ToBaseID,
		Quantity: req.Quantity, Timestamp: model.Date{Time: time.Now()},
	})
	writeData(w, http.StatusCreated, nil)
}

func (s *Server) dashboardMetrics(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeData(w, http.StatusOK, s.Metrics)
}

// emptyNotNil keeps JSON arrays as [] instead of null, matching the upstream.
func emptyNotNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": message})
}
