package web

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/jkoblar/garrison/internal/logistics"
	"github.com/jkoblar/garrison/internal/model"
)

// AssignmentsPage handles GET /assignments.
func (s *Server) AssignmentsPage(w http.ResponseWriter, r *http.Request) {
	sess := GetSession(r.Context())
	data := &struct {
		PageData
		Assignments []model.Assignment
		Assets      []model.Asset
	}{
		PageData: PageData{Title: "Assignments", Active: "assignments", User: &sess.User, Error: r.URL.Query().Get("error")},
	}

	assets, err := s.API.ListAssets(r.Context())
	var assignments []model.Assignment
	if err == nil {
		assignments, err = s.API.ListAssignments(r.Context())
	}
	if err != nil {
		slog.Error("failed to load assignments page", "error", err)
		if data.Error == "" {
			data.Error = "Failed to load assignments or assets."
		}
		s.Templates.Render(w, "assignments.html", data)
		return
	}

	assetLookup := model.AssetLookup(assets)
	for i := range assignments {
		if assignments[i].Asset == nil {
			if asset, ok := assetLookup[assignments[i].AssetID]; ok {
				assignments[i].Asset = &asset
			}
		}
	}
	data.Assets = assets
	data.Assignments = assignments

	s.Templates.Render(w, "assignments.html", data)
}

// AssignmentCreateSubmit handles POST /assignments.
func (s *Server) AssignmentCreateSubmit(w http.ResponseWriter, r *http.Request) {
	assetID, _ := strconv.ParseInt(r.FormValue("asset_id"), 10, 64)
	quantity, _ := strconv.Atoi(r.FormValue("quantity"))
	assignee := r.FormValue("assignee")
	date := r.FormValue("date")

	if assetID == 0 || assignee == "" || quantity <= 0 || date == "" {
		redirectWithError(w, r, "/assignments", "Fill in all fields with valid values.")
		return
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		redirectWithError(w, r, "/assignments", "Enter the date as YYYY-MM-DD.")
		return
	}

	if err := s.API.CreateAssignment(r.Context(), assetID, quantity, assignee, date); err != nil {
		slog.Warn("assignment creation failed", "asset", assetID, "error", err)
		redirectWithError(w, r, "/assignments", logistics.ErrorMessage(err, "Failed to create assignment."))
		return
	}

	slog.Info("assignment created", "asset", assetID, "assignee", assignee, "quantity", quantity)
	http.Redirect(w, r, "/assignments", http.StatusSeeOther)
}

// AssignmentExpendSubmit handles POST /assignments/{id}/expend. The expended
// transition is one-way; failures are surfaced on the page like any other
// mutation.
func (s *Server) AssignmentExpendSubmit(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		redirectWithError(w, r, "/assignments", "Unknown assignment.")
		return
	}

	if err := s.API.ExpendAssignment(r.Context(), id); err != nil {
		slog.Warn("failed to mark assignment expended", "assignment", id, "error", err)
		redirectWithError(w, r, "/assignments", logistics.ErrorMessage(err, "Failed to mark assignment as expended."))
		return
	}

	slog.Info("assignment expended", "assignment", id)
	http.Redirect(w, r, "/assignments", http.StatusSeeOther)
}
