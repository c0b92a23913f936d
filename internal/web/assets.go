package web

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/jkoblar/garrison/internal/logistics"
	"github.com/jkoblar/garrison/internal/model"
)

// AssetsPage handles GET /assets.
func (s *Server) AssetsPage(w http.ResponseWriter, r *http.Request) {
	sess := GetSession(r.Context())
	data := &struct {
		PageData
		Assets []model.Asset
		Bases  []model.Base
	}{
		PageData: PageData{Title: "Assets", Active: "assets", User: &sess.User, Error: r.URL.Query().Get("error")},
	}

	assets, err := s.API.ListAssets(r.Context())
	if err == nil {
		var basesErr error
		data.Bases, basesErr = s.API.ListBases(r.Context())
		err = basesErr
	}
	if err != nil {
		slog.Error("failed to load assets page", "error", err)
		if data.Error == "" {
			data.Error = "Failed to load assets or bases."
		}
		s.Templates.Render(w, "assets.html", data)
		return
	}

	// Resolve the owning base for rows the upstream returned without one.
	baseLookup := model.BaseLookup(data.Bases)
	for i := range assets {
		if assets[i].Base == nil {
			if base, ok := baseLookup[assets[i].BaseID]; ok {
				assets[i].Base = &base
			}
		}
	}
	data.Assets = assets

	s.Templates.Render(w, "assets.html", data)
}

// AssetCreateSubmit handles POST /assets.
func (s *Server) AssetCreateSubmit(w http.ResponseWriter, r *http.Request) {
	assetType := r.FormValue("type")
	name := r.FormValue("name")
	quantity, _ := strconv.Atoi(r.FormValue("quantity"))
	baseID, _ := strconv.ParseInt(r.FormValue("base_id"), 10, 64)

	if assetType == "" || name == "" || baseID == 0 || quantity <= 0 {
		redirectWithError(w, r, "/assets", "Fill in all fields with valid values.")
		return
	}

	if err := s.API.CreateAsset(r.Context(), assetType, name, quantity, baseID); err != nil {
		slog.Warn("asset creation failed", "name", name, "error", err)
		redirectWithError(w, r, "/assets", logistics.ErrorMessage(err, "Failed to create asset."))
		return
	}

	slog.Info("asset created", "name", name, "type", assetType, "quantity", quantity)
	http.Redirect(w, r, "/assets", http.StatusSeeOther)
}

// AssetAdjustSubmit handles POST /assets/adjust.
func (s *Server) AssetAdjustSubmit(w http.ResponseWriter, r *http.Request) {
	assetID, _ := strconv.ParseInt(r.FormValue("asset_id"), 10, 64)
	quantity, _ := strconv.Atoi(r.FormValue("quantity"))
	operation := r.FormValue("operation")

	if assetID == 0 || quantity <= 0 {
		redirectWithError(w, r, "/assets", "Select an asset and enter a valid quantity.")
		return
	}
	if operation != logistics.OpAdd && operation != logistics.OpRemove {
		redirectWithError(w, r, "/assets", "Unknown operation.")
		return
	}

	if err := s.API.AdjustAsset(r.Context(), assetID, quantity, operation); err != nil {
		slog.Warn("asset adjustment failed", "asset", assetID, "error", err)
		redirectWithError(w, r, "/assets", logistics.ErrorMessage(err, "Failed to update asset."))
		return
	}

	slog.Info("asset quantity adjusted", "asset", assetID, "operation", operation, "quantity", quantity)
	http.Redirect(w, r, "/assets", http.StatusSeeOther)
}
