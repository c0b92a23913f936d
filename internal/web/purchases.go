package web

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/jkoblar/garrison/internal/logistics"
	"github.com/jkoblar/garrison/internal/model"
)

// PurchasesPage handles GET /purchases.
func (s *Server) PurchasesPage(w http.ResponseWriter, r *http.Request) {
	sess := GetSession(r.Context())
	data := &struct {
		PageData
		Purchases []model.Purchase
		Assets    []model.Asset
	}{
		PageData: PageData{Title: "Purchases", Active: "purchases", User: &sess.User, Error: r.URL.Query().Get("error")},
	}

	assets, err := s.API.ListAssets(r.Context())
	var purchases []model.Purchase
	if err == nil {
		purchases, err = s.API.ListPurchases(r.Context())
	}
	if err != nil {
		slog.Error("failed to load purchases page", "error", err)
		if data.Error == "" {
			data.Error = "Failed to load purchases or assets."
		}
		s.Templates.Render(w, "purchases.html", data)
		return
	}

	assetLookup := model.AssetLookup(assets)
	for i := range purchases {
		if purchases[i].Asset == nil {
			if asset, ok := assetLookup[purchases[i].AssetID]; ok {
				purchases[i].Asset = &asset
			}
		}
	}
	data.Assets = assets
	data.Purchases = purchases

	s.Templates.Render(w, "purchases.html", data)
}

// PurchaseCreateSubmit handles POST /purchases.
func (s *Server) PurchaseCreateSubmit(w http.ResponseWriter, r *http.Request) {
	assetID, _ := strconv.ParseInt(r.FormValue("asset_id"), 10, 64)
	quantity, _ := strconv.Atoi(r.FormValue("quantity"))

	if assetID == 0 || quantity <= 0 {
		redirectWithError(w, r, "/purchases", "Select an asset and enter a valid quantity.")
		return
	}

	if err := s.API.CreatePurchase(r.Context(), assetID, quantity); err != nil {
		slog.Warn("purchase creation failed", "asset", assetID, "error", err)
		redirectWithError(w, r, "/purchases", logistics.ErrorMessage(err, "Failed to create purchase."))
		return
	}

	slog.Info("purchase created", "asset", assetID, "quantity", quantity)
	http.Redirect(w, r, "/purchases", http.StatusSeeOther)
}
