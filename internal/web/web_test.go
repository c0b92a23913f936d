package web_test

import (
	"database/sql"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/jkoblar/garrison/internal/db"
	"github.com/jkoblar/garrison/internal/logistics"
	"github.com/jkoblar/garrison/internal/logistics/logisticstest"
	"github.com/jkoblar/garrison/internal/model"
	"github.com/jkoblar/garrison/internal/session"
	"github.com/jkoblar/garrison/internal/web"
)

// fixture runs the full page server against a fake upstream and a fresh
// session database. The HTTP client carries cookies but does not follow
// redirects, so tests can assert on each hop.
type fixture struct {
	upstream *logisticstest.Server
	server   *httptest.Server
	client   *http.Client
	db       *sql.DB
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	upstream := logisticstest.New()
	up := upstream.Start(t)

	database := db.NewTestDB(t)
	store := session.NewStore(database)

	router, err := web.NewRouter(logistics.New(up.URL), store, "test-cookie-secret")
	if err != nil {
		t.Fatalf("creating router: %v", err)
	}
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("creating cookie jar: %v", err)
	}
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &fixture{upstream: upstream, server: ts, client: client, db: database}
}

func (f *fixture) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := f.client.Get(f.server.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (f *fixture) postForm(t *testing.T, path string, form url.Values) *http.Response {
	t.Helper()
	resp, err := f.client.PostForm(f.server.URL+path, form)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// login seeds an upstream account and signs in through the page flow.
func (f *fixture) login(t *testing.T, username, role string, baseID *int64) {
	t.Helper()
	f.upstream.Accounts[username] = logisticstest.Account{
		Password: "pw", Role: role, BaseID: baseID,
	}
	resp := f.postForm(t, "/login", url.Values{
		"username": {username},
		"password": {"pw"},
	})
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/" {
		t.Fatalf("login: status %d, location %q", resp.StatusCode, resp.Header.Get("Location"))
	}
}

func (f *fixture) sessionCount(t *testing.T) int {
	t.Helper()
	var n int
	if err := f.db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&n); err != nil {
		t.Fatalf("counting sessions: %v", err)
	}
	return n
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	return string(data)
}

func assertRedirect(t *testing.T, resp *http.Response, location string) {
	t.Helper()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", resp.StatusCode)
	}
	if got := resp.Header.Get("Location"); got != location {
		t.Errorf("location = %q, want %q", got, location)
	}
}

func assertRedirectPrefix(t *testing.T, resp *http.Response, prefix string) {
	t.Helper()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", resp.StatusCode)
	}
	if got := resp.Header.Get("Location"); !strings.HasPrefix(got, prefix) {
		t.Errorf("location = %q, want prefix %q", got, prefix)
	}
}

func TestGuardRedirectsAnonymous(t *testing.T) {
	f := newFixture(t)

	for _, path := range []string{"/", "/assets", "/purchases", "/assignments", "/transfers"} {
		resp := f.get(t, path)
		if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/login" {
			t.Errorf("GET %s: status %d location %q, want 303 /login",
				path, resp.StatusCode, resp.Header.Get("Location"))
		}
	}
}

func TestUnknownPathRedirectsToRoot(t *testing.T) {
	f := newFixture(t)

	resp := f.get(t, "/no-such-page")
	assertRedirect(t, resp, "/")
}

func TestLoginCreatesSession(t *testing.T) {
	f := newFixture(t)
	baseID := int64(1)
	f.login(t, "cmdr", model.RoleBaseCommander, &baseID)

	if got := f.sessionCount(t); got != 1 {
		t.Errorf("session rows = %d, want 1", got)
	}

	// The cookie now unlocks protected pages.
	resp := f.get(t, "/assets")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /assets after login: status %d, want 200", resp.StatusCode)
	}
}

func TestLoginPageRedirectsWhenAuthenticated(t *testing.T) {
	f := newFixture(t)
	f.login(t, "admin", model.RoleAdmin, nil)

	assertRedirect(t, f.get(t, "/login"), "/")
	assertRedirect(t, f.get(t, "/register"), "/")
}

func TestLoginInvalidCredentials(t *testing.T) {
	f := newFixture(t)
	f.upstream.Accounts["cmdr"] = logisticstest.Account{Password: "pw", Role: model.RoleAdmin}

	resp := f.postForm(t, "/login", url.Values{
		"username": {"cmdr"},
		"password": {"wrong"},
	})
	assertRedirectPrefix(t, resp, "/login?error=")

	if got := f.sessionCount(t); got != 0 {
		t.Errorf("session rows = %d, want 0", got)
	}
}

func TestLoginMissingFieldsSkipsUpstream(t *testing.T) {
	f := newFixture(t)

	resp := f.postForm(t, "/login", url.Values{"username": {"cmdr"}})
	assertRedirectPrefix(t, resp, "/login?error=")

	if n := f.upstream.RequestCount(http.MethodPost, "/auth/login"); n != 0 {
		t.Errorf("upstream login calls = %d, want 0", n)
	}
}

func TestRegisterFlow(t *testing.T) {
	f := newFixture(t)

	// A non-admin role without a base is rejected before any upstream call.
	resp := f.postForm(t, "/register", url.Values{
		"username": {"officer"},
		"password": {"pw"},
		"role":     {model.RoleLogisticsOfficer},
	})
	assertRedirectPrefix(t, resp, "/register?error=")
	if n := f.upstream.RequestCount(http.MethodPost, "/auth/register"); n != 0 {
		t.Errorf("upstream register calls = %d, want 0", n)
	}

	resp = f.postForm(t, "/register", url.Values{
		"username": {"officer"},
		"password": {"pw"},
		"role":     {model.RoleLogisticsOfficer},
		"base_id":  {"3"},
	})
	assertRedirect(t, resp, "/login?registered=1")

	account, ok := f.upstream.Accounts["officer"]
	if !ok {
		t.Fatal("account not created upstream")
	}
	if account.Role != model.RoleLogisticsOfficer || account.BaseID == nil || *account.BaseID != 3 {
		t.Errorf("account = %+v", account)
	}
}

func TestRegisterRejectsUnknownRole(t *testing.T) {
	f := newFixture(t)

	resp := f.postForm(t, "/register", url.Values{
		"username": {"x"},
		"password": {"pw"},
		"role":     {"admin"}, // roles are case-sensitive
	})
	assertRedirectPrefix(t, resp, "/register?error=")
	if n := f.upstream.RequestCount(http.MethodPost, "/auth/register"); n != 0 {
		t.Errorf("upstream register calls = %d, want 0", n)
	}
}

func TestLogoutClearsSession(t *testing.T) {
	f := newFixture(t)
	f.login(t, "admin", model.RoleAdmin, nil)

	assertRedirect(t, f.postForm(t, "/logout", nil), "/login")

	if got := f.sessionCount(t); got != 0 {
		t.Errorf("session rows = %d, want 0", got)
	}
	assertRedirect(t, f.get(t, "/"), "/login")
}

func TestAssetCreateValidationSkipsUpstream(t *testing.T) {
	cases := []struct {
		name string
		form url.Values
	}{
		{"missing name", url.Values{"type": {"Weapon"}, "name": {""}, "base_id": {"1"}, "quantity": {"5"}}},
		{"missing type", url.Values{"type": {""}, "name": {"Rifle"}, "base_id": {"1"}, "quantity": {"5"}}},
		{"zero quantity", url.Values{"type": {"Weapon"}, "name": {"Rifle"}, "base_id": {"1"}, "quantity": {"0"}}},
		{"negative quantity", url.Values{"type": {"Weapon"}, "name": {"Rifle"}, "base_id": {"1"}, "quantity": {"-2"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			baseID := int64(1)
			f.login(t, "cmdr", model.RoleBaseCommander, &baseID)

			resp := f.postForm(t, "/assets", tc.form)
			assertRedirectPrefix(t, resp, "/assets?error=")

			if n := f.upstream.RequestCount(http.MethodPost, "/asset"); n != 0 {
				t.Errorf("upstream asset creates = %d, want 0", n)
			}
		})
	}
}

func TestDoubleSubmitCreatesOnce(t *testing.T) {
	f := newFixture(t)
	from := f.upstream.SeedBase("Fort Alpha", "North")
	to := f.upstream.SeedBase("Fort Bravo", "South")
	asset := f.upstream.SeedAsset("Truck", "Vehicle", 10, from.ID)
	baseID := from.ID
	f.login(t, "cmdr", model.RoleBaseCommander, &baseID)

	form := url.Values{
		"asset_id":     {itoa(asset.ID)},
		"from_base_id": {itoa(from.ID)},
		"to_base_id":   {itoa(to.ID)},
		"quantity":     {"4"},
	}

	// A double-clicked submit button: two identical back-to-back posts.
	first := f.postForm(t, "/transfers", form)
	second := f.postForm(t, "/transfers", form)

	assertRedirect(t, first, "/transfers")
	if second.StatusCode != http.StatusTooManyRequests {
		t.Errorf("second submit status = %d, want 429", second.StatusCode)
	}
	if n := f.upstream.RequestCount(http.MethodPost, "/transfer"); n != 1 {
		t.Errorf("upstream transfer creates = %d, want 1", n)
	}
	if len(f.upstream.Transfers) != 1 {
		t.Errorf("upstream transfers = %d, want 1", len(f.upstream.Transfers))
	}
}

func TestAssetCreate(t *testing.T) {
	f := newFixture(t)
	base := f.upstream.SeedBase("Fort Alpha", "North")
	baseID := base.ID
	f.login(t, "cmdr", model.RoleBaseCommander, &baseID)

	resp := f.postForm(t, "/assets", url.Values{
		"type":     {"Vehicle"},
		"name":     {"Truck"},
		"base_id":  {"1"},
		"quantity": {"10"},
	})
	assertRedirect(t, resp, "/assets")

	if len(f.upstream.Assets) != 1 {
		t.Fatalf("upstream assets = %d, want 1", len(f.upstream.Assets))
	}
	if got := f.upstream.Assets[0]; got.Name != "Truck" || got.CurrentQuantity != 10 {
		t.Errorf("asset = %+v", got)
	}
}

func TestAssetCreateUpstreamFailureSurfaced(t *testing.T) {
	f := newFixture(t)
	baseID := int64(1)
	f.login(t, "cmdr", model.RoleBaseCommander, &baseID)
	f.upstream.FailWith["POST /asset"] = http.StatusBadRequest

	resp := f.postForm(t, "/assets", url.Values{
		"type":     {"Weapon"},
		"name":     {"Rifle"},
		"base_id":  {"1"},
		"quantity": {"5"},
	})
	assertRedirectPrefix(t, resp, "/assets?error=")
	loc, _ := url.Parse(resp.Header.Get("Location"))
	if got := loc.Query().Get("error"); got != "forced failure" {
		t.Errorf("error = %q, want upstream message", got)
	}
}

func TestTransferSameBaseRejectedLocally(t *testing.T) {
	f := newFixture(t)
	baseID := int64(1)
	f.login(t, "cmdr", model.RoleBaseCommander, &baseID)

	resp := f.postForm(t, "/transfers", url.Values{
		"asset_id":     {"5"},
		"from_base_id": {"1"},
		"to_base_id":   {"1"},
		"quantity":     {"3"},
	})
	assertRedirectPrefix(t, resp, "/transfers?error=")
	loc, _ := url.Parse(resp.Header.Get("Location"))
	if got := loc.Query().Get("error"); got != "From and To base cannot be the same." {
		t.Errorf("error = %q", got)
	}

	if n := f.upstream.RequestCount(http.MethodPost, "/transfer"); n != 0 {
		t.Errorf("upstream transfer creates = %d, want 0", n)
	}
}

func TestTransferCreate(t *testing.T) {
	f := newFixture(t)
	from := f.upstream.SeedBase("Fort Alpha", "North")
	to := f.upstream.SeedBase("Fort Bravo", "South")
	asset := f.upstream.SeedAsset("Truck", "Vehicle", 10, from.ID)
	baseID := from.ID
	f.login(t, "cmdr", model.RoleBaseCommander, &baseID)

	resp := f.postForm(t, "/transfers", url.Values{
		"asset_id":     {itoa(asset.ID)},
		"from_base_id": {itoa(from.ID)},
		"to_base_id":   {itoa(to.ID)},
		"quantity":     {"4"},
	})
	assertRedirect(t, resp, "/transfers")

	if len(f.upstream.Transfers) != 1 {
		t.Fatalf("upstream transfers = %d, want 1", len(f.upstream.Transfers))
	}
}

func TestAssignmentDateValidation(t *testing.T) {
	f := newFixture(t)
	baseID := int64(1)
	f.login(t, "cmdr", model.RoleBaseCommander, &baseID)

	resp := f.postForm(t, "/assignments", url.Values{
		"asset_id": {"5"},
		"quantity": {"2"},
		"assignee": {"Sgt. Pepper"},
		"date":     {"14-03-2026"},
	})
	assertRedirectPrefix(t, resp, "/assignments?error=")

	if n := f.upstream.RequestCount(http.MethodPost, "/assignment"); n != 0 {
		t.Errorf("upstream assignment creates = %d, want 0", n)
	}
}

func TestExpendFailureSurfaced(t *testing.T) {
	f := newFixture(t)
	baseID := int64(1)
	f.login(t, "cmdr", model.RoleBaseCommander, &baseID)
	f.upstream.FailWith["PATCH /assignment/42/expend"] = http.StatusConflict

	resp := f.postForm(t, "/assignments/42/expend", nil)
	assertRedirectPrefix(t, resp, "/assignments?error=")
	loc, _ := url.Parse(resp.Header.Get("Location"))
	if got := loc.Query().Get("error"); got != "forced failure" {
		t.Errorf("error = %q, want upstream message", got)
	}
}

func TestExpendMalformedID(t *testing.T) {
	f := newFixture(t)
	baseID := int64(1)
	f.login(t, "cmdr", model.RoleBaseCommander, &baseID)

	resp := f.postForm(t, "/assignments/not-a-number/expend", nil)
	assertRedirectPrefix(t, resp, "/assignments?error=")

	for _, req := range f.upstream.Requests() {
		if req.Method == http.MethodPatch {
			t.Errorf("unexpected upstream call: %s %s", req.Method, req.Path)
		}
	}
}

func TestExpendSuccess(t *testing.T) {
	f := newFixture(t)
	asset := f.upstream.SeedAsset("Rifle", "Weapon", 50, 1)
	f.upstream.Assignments = append(f.upstream.Assignments, model.Assignment{
		ID: 42, AssetID: asset.ID, Quantity: 5, Assignee: "Pvt. Ryan",
	})
	baseID := int64(1)
	f.login(t, "cmdr", model.RoleBaseCommander, &baseID)

	resp := f.postForm(t, "/assignments/42/expend", nil)
	assertRedirect(t, resp, "/assignments")

	if !f.upstream.Assignments[0].Expended {
		t.Error("assignment not marked expended upstream")
	}
}

func TestAssignmentsPageShowsAssetNames(t *testing.T) {
	f := newFixture(t)
	asset := f.upstream.SeedAsset("M4 Carbine", "Weapon", 50, 1)
	f.upstream.Assignments = append(f.upstream.Assignments, model.Assignment{
		ID: 1, AssetID: asset.ID, Quantity: 5, Assignee: "Sgt. Pepper",
	})
	baseID := int64(1)
	f.login(t, "cmdr", model.RoleBaseCommander, &baseID)

	resp := f.get(t, "/assignments")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	html := body(t, resp)
	if !strings.Contains(html, "M4 Carbine") {
		t.Error("assignment row missing resolved asset name")
	}
	if !strings.Contains(html, "Sgt. Pepper") {
		t.Error("assignment row missing assignee")
	}
}

func TestBaseDashboard(t *testing.T) {
	f := newFixture(t)
	base := f.upstream.SeedBase("Fort Alpha", "North")
	f.upstream.Metrics = model.Metrics{TotalAssets: 7}
	baseID := base.ID
	f.login(t, "cmdr", model.RoleBaseCommander, &baseID)

	resp := f.get(t, "/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	html := body(t, resp)
	if !strings.Contains(html, "Base Dashboard") {
		t.Error("missing base dashboard title")
	}
}

func TestBaseDashboardUpstreamFailure(t *testing.T) {
	f := newFixture(t)
	baseID := int64(1)
	f.login(t, "cmdr", model.RoleBaseCommander, &baseID)
	f.upstream.FailWith["GET /dashboard/metrics"] = http.StatusInternalServerError

	resp := f.get(t, "/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	html := body(t, resp)
	if !strings.Contains(html, "Failed to load dashboard.") {
		t.Error("missing dashboard failure message")
	}
}

func TestAdminDashboard(t *testing.T) {
	f := newFixture(t)
	base := f.upstream.SeedBase("Fort Alpha", "North")
	f.upstream.SeedBase("Fort Bravo", "South")
	f.upstream.SeedAsset("Truck", "Vehicle", 10, base.ID)
	f.login(t, "admin", model.RoleAdmin, nil)

	resp := f.get(t, "/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	html := body(t, resp)
	if !strings.Contains(html, "Fort Alpha") {
		t.Error("missing selected base name")
	}
	if !strings.Contains(html, "Truck") {
		t.Error("missing asset held at the selected base")
	}
}

func TestAssetsPageUpstreamFailure(t *testing.T) {
	f := newFixture(t)
	baseID := int64(1)
	f.login(t, "cmdr", model.RoleBaseCommander, &baseID)
	f.upstream.FailWith["GET /asset"] = http.StatusInternalServerError

	resp := f.get(t, "/assets")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(body(t, resp), "Failed to load") {
		t.Error("missing load failure message")
	}
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
