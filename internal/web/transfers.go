package web

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/jkoblar/garrison/internal/logistics"
	"github.com/jkoblar/garrison/internal/model"
)

// TransfersPage handles GET /transfers.
func (s *Server) TransfersPage(w http.ResponseWriter, r *http.Request) {
	sess := GetSession(r.Context())
	data := &struct {
		PageData
		Transfers []model.Transfer
		Assets    []model.Asset
		Bases     []model.Base
	}{
		PageData: PageData{Title: "Transfers", Active: "transfers", User: &sess.User, Error: r.URL.Query().Get("error")},
	}

	transfers, err := s.API.ListTransfers(r.Context())
	if err == nil {
		data.Assets, err = s.API.ListAssets(r.Context())
	}
	if err == nil {
		data.Bases, err = s.API.ListBases(r.Context())
	}
	if err != nil {
		slog.Error("failed to load transfers page", "error", err)
		if data.Error == "" {
			data.Error = "Failed to load transfers."
		}
		data.Assets, data.Bases = nil, nil
		s.Templates.Render(w, "transfers.html", data)
		return
	}

	assetLookup := model.AssetLookup(data.Assets)
	baseLookup := model.BaseLookup(data.Bases)
	for i := range transfers {
		t := &transfers[i]
		if t.Asset == nil {
			if asset, ok := assetLookup[t.AssetID]; ok {
				t.Asset = &asset
			}
		}
		if t.FromBase == nil {
			if base, ok := baseLookup[t.FromBaseID]; ok {
				t.FromBase = &base
			}
		}
		if t.ToBase == nil {
			if base, ok := baseLookup[t.ToBaseID]; ok {
				t.ToBase = &base
			}
		}
	}
	data.Transfers = transfers

	s.Templates.Render(w, "transfers.html", data)
}

// TransferCreateSubmit handles POST /transfers. A transfer between identical
// bases is rejected here, before any upstream call.
func (s *Server) TransferCreateSubmit(w http.ResponseWriter, r *http.Request) {
	assetID, _ := strconv.ParseInt(r.FormValue("asset_id"), 10, 64)
	fromBaseID, _ := strconv.ParseInt(r.FormValue("from_base_id"), 10, 64)
	toBaseID, _ := strconv.ParseInt(r.FormValue("to_base_id"), 10, 64)
	quantity, _ := strconv.Atoi(r.FormValue("quantity"))

	if assetID == 0 || fromBaseID == 0 || toBaseID == 0 || quantity <= 0 {
		redirectWithError(w, r, "/transfers", "Fill in all fields with valid values.")
		return
	}
	if fromBaseID == toBaseID {
		redirectWithError(w, r, "/transfers", "From and To base cannot be the same.")
		return
	}

	if err := s.API.CreateTransfer(r.Context(), assetID, fromBaseID, toBaseID, quantity); err != nil {
		slog.Warn("transfer creation failed", "asset", assetID, "error", err)
		redirectWithError(w, r, "/transfers", logistics.ErrorMessage(err, "Failed to create transfer."))
		return
	}

	slog.Info("transfer created", "asset", assetID, "from", fromBaseID, "to", toBaseID, "quantity", quantity)
	http.Redirect(w, r, "/transfers", http.StatusSeeOther)
}
