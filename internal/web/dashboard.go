package web

import (
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/jkoblar/garrison/internal/model"
	"github.com/jkoblar/garrison/internal/report"
)

var monthLabels = [report.Months]string{
	"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
}

// Dashboard handles GET /. The variant is picked by the session's role.
func (s *Server) Dashboard(w http.ResponseWriter, r *http.Request) {
	if GetSession(r.Context()).User.IsAdmin() {
		s.adminDashboard(w, r)
		return
	}
	s.baseDashboard(w, r)
}

// monthRow is one chart bucket, with bar heights precomputed as percentages.
type monthRow struct {
	Label        string
	Purchased    int
	In           int
	Out          int
	PurchasedPct int
	InPct        int
	OutPct       int
}

// baseDashboard renders the commander view: upstream metrics plus
// month-bucketed purchase and transfer sums for the user's home base.
// The three fetches run together; if any fails the whole page fails.
func (s *Server) baseDashboard(w http.ResponseWriter, r *http.Request) {
	sess := GetSession(r.Context())
	ctx := r.Context()

	var (
		metrics   model.Metrics
		purchases []model.Purchase
		transfers []model.Transfer
		errs      [3]error
		wg        sync.WaitGroup
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		metrics, errs[0] = s.API.DashboardMetrics(ctx)
	}()
	go func() {
		defer wg.Done()
		purchases, errs[1] = s.API.ListPurchases(ctx)
	}()
	go func() {
		defer wg.Done()
		transfers, errs[2] = s.API.ListTransfers(ctx)
	}()
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			slog.Error("failed to load dashboard", "error", err)
			s.renderDashboardError(w, "Failed to load dashboard.")
			return
		}
	}

	year := time.Now().Year()
	purchased := report.MonthlyPurchaseTotals(purchases, year)
	in, out := report.MonthlyTransferFlow(transfers, sess.User.HomeBase())
	max := report.Max(purchased, in, out)

	months := make([]monthRow, report.Months)
	for i := range months {
		months[i] = monthRow{
			Label:        monthLabels[i],
			Purchased:    purchased[i],
			In:           in[i],
			Out:          out[i],
			PurchasedPct: purchased[i] * 100 / max,
			InPct:        in[i] * 100 / max,
			OutPct:       out[i] * 100 / max,
		}
	}

	s.Templates.Render(w, "dashboard_base.html", &struct {
		PageData
		Metrics         model.Metrics
		Purchases       []model.Purchase
		Transfers       []model.Transfer
		Months          []monthRow
		Year            int
		YearPurchased   int
		YearTransferred int
	}{
		PageData:        PageData{Title: "Base Dashboard", Active: "dashboard", User: &sess.User},
		Metrics:         metrics,
		Purchases:       purchases,
		Transfers:       transfers,
		Months:          months,
		Year:            year,
		YearPurchased:   report.Sum(purchased),
		YearTransferred: report.Sum(in) + report.Sum(out),
	})
}

// transferRow is a display row for the admin transfer table.
type transferRow struct {
	Date      string
	AssetName string
	Quantity  int
	FromName  string
	ToName    string
}

// adminDashboard renders the operator view: a base selector, that base's
// assets, and every transfer annotated with asset names resolved locally.
func (s *Server) adminDashboard(w http.ResponseWriter, r *http.Request) {
	sess := GetSession(r.Context())
	ctx := r.Context()

	bases, err := s.API.ListBases(ctx)
	if err != nil {
		slog.Error("failed to load bases for admin dashboard", "error", err)
		s.renderDashboardError(w, "Failed to load dashboard.")
		return
	}

	// Default to the first base when none is selected.
	selected, _ := strconv.ParseInt(r.URL.Query().Get("base"), 10, 64)
	if selected == 0 && len(bases) > 0 {
		selected = bases[0].ID
	}

	var assets []model.Asset
	if selected != 0 {
		assets, err = s.API.AssetsByBase(ctx, selected)
		if err != nil {
			slog.Error("failed to load base assets", "base", selected, "error", err)
			s.renderDashboardError(w, "Failed to load dashboard.")
			return
		}
	}

	transfers, err := s.API.ListTransfers(ctx)
	if err != nil {
		slog.Error("failed to load transfers for admin dashboard", "error", err)
		s.renderDashboardError(w, "Failed to load dashboard.")
		return
	}

	assetNames := model.BuildLookup(assets, func(a model.Asset) int64 { return a.ID })
	baseLookup := model.BaseLookup(bases)

	rows := make([]transferRow, 0, len(transfers))
	for _, t := range transfers {
		row := transferRow{
			Date:      t.Timestamp.Display(),
			AssetName: "—",
			Quantity:  t.Quantity,
			FromName:  "—",
			ToName:    "—",
		}
		if asset, ok := assetNames[t.AssetID]; ok {
			row.AssetName = asset.Name
		} else if t.Asset != nil {
			row.AssetName = t.Asset.Name
		}
		if t.FromBase != nil {
			row.FromName = t.FromBase.Name
		} else if base, ok := baseLookup[t.FromBaseID]; ok {
			row.FromName = base.Name
		}
		if t.ToBase != nil {
			row.ToName = t.ToBase.Name
		} else if base, ok := baseLookup[t.ToBaseID]; ok {
			row.ToName = base.Name
		}
		rows = append(rows, row)
	}

	selectedName := ""
	if base, ok := baseLookup[selected]; ok {
		selectedName = base.Name
	}

	s.Templates.Render(w, "dashboard_admin.html", &struct {
		PageData
		Bases        []model.Base
		Selected     int64
		SelectedName string
		Assets       []model.Asset
		Transfers    []transferRow
	}{
		PageData:     PageData{Title: "Admin Dashboard", Active: "dashboard", User: &sess.User},
		Bases:        bases,
		Selected:     selected,
		SelectedName: selectedName,
		Assets:       assets,
		Transfers:    rows,
	})
}

// renderDashboardError shows the blocking failure view whose only action is
// logging out.
func (s *Server) renderDashboardError(w http.ResponseWriter, msg string) {
	s.Templates.Render(w, "dashboard_error.html", &PageData{
		Title: "Dashboard",
		Error: msg,
	})
}
