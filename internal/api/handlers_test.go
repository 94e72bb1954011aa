package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rewired-gh/lottosmart/internal/generator"
	"github.com/rewired-gh/lottosmart/internal/history"
	"github.com/rewired-gh/lottosmart/internal/ledger"
	"github.com/rewired-gh/lottosmart/internal/lottery"
	"github.com/rewired-gh/lottosmart/internal/models"
	"github.com/rewired-gh/lottosmart/internal/storage"
)

const latestQuina = 6500

// fakeSource serves synthetic quina draws up to latestQuina; other games are unknown.
type fakeSource struct {
	down bool
}

func quinaNumbers(n int) []int {
	return []int{1 + n%10, 20 + n%10, 40 + n%10, 60 + n%10, 71 + n%9}
}

func (f *fakeSource) FetchDraw(_ context.Context, game models.Game, number int) (*models.Draw, error) {
	if f.down {
		return nil, models.ErrUpstreamUnavailable
	}
	if game.ID != "quina" {
		return nil, models.ErrUpstreamUnavailable
	}
	if number <= 0 {
		number = latestQuina
	}
	if number > latestQuina {
		return nil, models.ErrDrawNotFound
	}
	return &models.Draw{
		Game:               "quina",
		Number:             number,
		Date:               "01/09/2024",
		Numbers:            quinaNumbers(number),
		NextDrawNumber:     number + 1,
		EstimatedNextPrize: 700000,
		Prizes: []models.PrizeRow{
			{Tier: 1, Amount: 0},
			{Tier: 2, Winners: 30, Amount: 8000},
			{Tier: 3, Winners: 3000, Amount: 100},
			{Tier: 4, Winners: 80000, Amount: 4.5},
		},
	}, nil
}

type testServer struct {
	*httptest.Server
	source *fakeSource
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test storage: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	catalog := models.DefaultCatalog()
	src := &fakeSource{}
	svc := lottery.New(catalog, src, store, history.New(src, store, 20, 4), nil, generator.New(7), lottery.Options{})
	bets := ledger.New(catalog, src, store, nil)

	ts := httptest.NewServer(NewRouter(NewHandler(svc, bets, store), RouterOptions{RequestTimeout: 5 * time.Second}))
	t.Cleanup(ts.Close)
	return &testServer{Server: ts, source: src}
}

func (ts *testServer) do(t *testing.T, method, path, body string) (int, map[string]json.RawMessage) {
	t.Helper()
	req, err := http.NewRequest(method, ts.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var out map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("%s %s: decoding body: %v", method, path, err)
	}
	return resp.StatusCode, out
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("unmarshal %s: %v", raw, err)
	}
	return v
}

func TestHealthAndGames(t *testing.T) {
	ts := newTestServer(t)

	status, body := ts.do(t, http.MethodGet, "/health", "")
	if status != http.StatusOK || decode[string](t, body["status"]) != "healthy" {
		t.Errorf("health = %d %s", status, body["status"])
	}

	status, body = ts.do(t, http.MethodGet, "/api/games", "")
	if status != http.StatusOK {
		t.Fatalf("games status = %d", status)
	}
	games := decode[[]models.Game](t, body["data"])
	if len(games) != 4 {
		t.Errorf("got %d games, want 4", len(games))
	}
}

func TestLotteryRoutes(t *testing.T) {
	ts := newTestServer(t)

	status, body := ts.do(t, http.MethodGet, "/api/lottery/quina/latest", "")
	if status != http.StatusOK {
		t.Fatalf("latest status = %d", status)
	}
	if d := decode[models.Draw](t, body["data"]); d.Number != latestQuina {
		t.Errorf("latest = %d, want %d", d.Number, latestQuina)
	}
	if decode[bool](t, body["cached"]) {
		t.Error("fresh draw flagged as cached")
	}

	status, body = ts.do(t, http.MethodGet, "/api/lottery/quina/history?limit=5", "")
	if status != http.StatusOK {
		t.Fatalf("history status = %d", status)
	}
	draws := decode[[]models.Draw](t, body["data"])
	if len(draws) != 5 || decode[int](t, body["count"]) != 5 {
		t.Fatalf("history returned %d draws", len(draws))
	}
	for i := 1; i < len(draws); i++ {
		if draws[i].Number >= draws[i-1].Number {
			t.Errorf("history not newest first: %d then %d", draws[i-1].Number, draws[i].Number)
		}
	}

	status, body = ts.do(t, http.MethodGet, "/api/lottery/quina/statistics", "")
	if status != http.StatusOK {
		t.Fatalf("statistics status = %d", status)
	}
	stats := decode[models.Statistics](t, body["data"])
	if stats.Snapshot.TotalDrawsAnalyzed == 0 || len(stats.Snapshot.HotNumbers) == 0 {
		t.Errorf("statistics = %+v", stats.Snapshot)
	}

	status, body = ts.do(t, http.MethodGet, "/api/lottery/quina/next-draw", "")
	if status != http.StatusOK {
		t.Fatalf("next-draw status = %d", status)
	}
	if next := decode[models.NextDraw](t, body["data"]); next.NextDrawNumber != latestQuina+1 {
		t.Errorf("next draw = %+v", next)
	}
}

func TestLotteryRoutes_Errors(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name string
		path string
		want int
	}{
		{"unknown game", "/api/lottery/bingo/latest", http.StatusBadRequest},
		{"unknown game statistics", "/api/lottery/bingo/statistics", http.StatusBadRequest},
		{"non-numeric limit", "/api/lottery/quina/history?limit=abc", http.StatusBadRequest},
		{"limit above max", "/api/lottery/quina/history?limit=500", http.StatusBadRequest},
		{"zero limit", "/api/lottery/quina/history?limit=0", http.StatusBadRequest},
		{"empty limit", "/api/lottery/quina/history?limit=", http.StatusBadRequest},
		{"negative limit", "/api/lottery/quina/history?limit=-1", http.StatusBadRequest},
		{"no data anywhere", "/api/lottery/megasena/latest", http.StatusServiceUnavailable},
		{"no next draw", "/api/lottery/megasena/next-draw", http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := ts.do(t, http.MethodGet, tt.path, "")
			if status != tt.want {
				t.Errorf("status = %d, want %d", status, tt.want)
			}
			if decode[int](t, body["code"]) != tt.want {
				t.Errorf("error body code = %s", body["code"])
			}
		})
	}
}

func TestLatest_ServesCacheWhenUpstreamDown(t *testing.T) {
	ts := newTestServer(t)

	if status, _ := ts.do(t, http.MethodGet, "/api/lottery/quina/latest", ""); status != http.StatusOK {
		t.Fatalf("warm-up status = %d", status)
	}
	ts.source.down = true

	status, body := ts.do(t, http.MethodGet, "/api/lottery/quina/latest", "")
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if !decode[bool](t, body["cached"]) {
		t.Error("fallback draw not flagged as cached")
	}
}

func TestGenerateBets(t *testing.T) {
	ts := newTestServer(t)

	status, body := ts.do(t, http.MethodPost, "/api/bets/generate?lottery_type=quina&strategy=hot&count=3", "")
	if status != http.StatusOK {
		t.Fatalf("generate status = %d", status)
	}
	bets := decode[[]models.Bet](t, body["data"])
	if len(bets) == 0 || len(bets) > 3 {
		t.Fatalf("got %d bets, want 1..3", len(bets))
	}
	quina, _ := models.DefaultCatalog().Get("quina")
	for _, b := range bets {
		if err := models.ValidateNumbers(quina, b.Numbers); err != nil {
			t.Errorf("generated bet %v: %v", b.Numbers, err)
		}
	}
	if decode[string](t, body["strategy_used"]) != "hot" {
		t.Errorf("strategy_used = %s", body["strategy_used"])
	}
	if _, ok := body["statistics_summary"]; !ok {
		t.Error("missing statistics_summary")
	}

	// Generated bets are not persisted.
	_, body = ts.do(t, http.MethodGet, "/api/bets", "")
	if n := decode[int](t, body["count"]); n != 0 {
		t.Errorf("generate persisted %d bets", n)
	}

	for _, path := range []string{
		"/api/bets/generate?lottery_type=bingo",
		"/api/bets/generate?lottery_type=quina&strategy=lucky",
		"/api/bets/generate?lottery_type=quina&count=x",
		"/api/bets/generate?lottery_type=quina&count=11",
	} {
		if status, _ := ts.do(t, http.MethodPost, path, ""); status != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", path, status)
		}
	}
}

func TestBetLifecycle(t *testing.T) {
	ts := newTestServer(t)

	// 6500 draws 1 20 40 60 73; this bet hits 1 and 20 (duque).
	status, body := ts.do(t, http.MethodPost, "/api/bets", `{"lottery_type":"quina","numbers":[20,1,2,3,4]}`)
	if status != http.StatusCreated {
		t.Fatalf("save status = %d", status)
	}
	saved := decode[models.Bet](t, body["data"])
	if saved.ID == "" || saved.Strategy != "manual" || saved.Numbers[0] != 1 {
		t.Errorf("saved = %+v", saved)
	}

	if status, _ := ts.do(t, http.MethodPost, "/api/bets", `{"lottery_type":"quina","numbers":[1,2,3,4,20]}`); status != http.StatusConflict {
		t.Errorf("duplicate save status = %d, want 409", status)
	}

	if _, body := ts.do(t, http.MethodPost, "/api/bets", `{"lottery_type":"quina","numbers":[10,11,12,13,14]}`); body == nil {
		t.Fatal("second save returned no body")
	}

	status, body = ts.do(t, http.MethodGet, "/api/bets?lottery_type=quina", "")
	if status != http.StatusOK || decode[int](t, body["count"]) != 2 {
		t.Fatalf("list = %d count %s", status, body["count"])
	}

	status, body = ts.do(t, http.MethodPost, "/api/bets/check/"+saved.ID, "")
	if status != http.StatusOK {
		t.Fatalf("check status = %d", status)
	}
	checked := decode[models.Bet](t, body["data"])
	if !checked.Checked || checked.Result == nil || !checked.Result.IsWinner || checked.Result.MatchCount != 2 {
		t.Fatalf("checked = %+v", checked)
	}
	if checked.Result.PrizeValue == nil || *checked.Result.PrizeValue != 4.5 {
		t.Errorf("prize = %v, want 4.5", checked.Result.PrizeValue)
	}

	status, body = ts.do(t, http.MethodPost, "/api/bets/check-all?lottery_type=quina", "")
	if status != http.StatusOK {
		t.Fatalf("check-all status = %d", status)
	}
	if s := decode[models.CheckSummary](t, body["data"]); s.Checked != 1 || s.Winners != 0 {
		t.Errorf("check-all summary = %+v, want only the unchecked bet", s)
	}

	if status, _ := ts.do(t, http.MethodDelete, "/api/bets/"+saved.ID, ""); status != http.StatusOK {
		t.Errorf("delete status = %d", status)
	}
	if status, _ := ts.do(t, http.MethodDelete, "/api/bets/"+saved.ID, ""); status != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", status)
	}
	if status, _ := ts.do(t, http.MethodPost, "/api/bets/check/"+saved.ID, ""); status != http.StatusNotFound {
		t.Errorf("check of deleted bet status = %d, want 404", status)
	}

	status, body = ts.do(t, http.MethodDelete, "/api/bets?lottery_type=quina", "")
	if status != http.StatusOK || decode[int](t, body["deleted"]) != 1 {
		t.Errorf("delete all = %d deleted %s", status, body["deleted"])
	}
}

func TestSaveBet_Invalid(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"lottery_type":`},
		{"unknown game", `{"lottery_type":"bingo","numbers":[1,2,3,4,5]}`},
		{"too few numbers", `{"lottery_type":"quina","numbers":[1,2,3]}`},
		{"out of range", `{"lottery_type":"quina","numbers":[1,2,3,4,81]}`},
		{"repeated", `{"lottery_type":"quina","numbers":[1,1,2,3,4]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if status, _ := ts.do(t, http.MethodPost, "/api/bets", tt.body); status != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", status)
			}
		})
	}
}

func TestCheckBet_UpstreamDown(t *testing.T) {
	ts := newTestServer(t)

	_, body := ts.do(t, http.MethodPost, "/api/bets", `{"lottery_type":"quina","numbers":[1,2,3,4,5]}`)
	saved := decode[models.Bet](t, body["data"])
	ts.source.down = true

	if status, _ := ts.do(t, http.MethodPost, "/api/bets/check/"+saved.ID, ""); status != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", status)
	}
	if status, _ := ts.do(t, http.MethodPost, "/api/bets/check/"+saved.ID+"?concurso=-3", ""); status != http.StatusBadRequest {
		t.Errorf("negative concurso status = %d, want 400", status)
	}
}

func TestCheckBet_UnknownDraw(t *testing.T) {
	ts := newTestServer(t)

	_, body := ts.do(t, http.MethodPost, "/api/bets", `{"lottery_type":"quina","numbers":[1,2,3,4,5]}`)
	saved := decode[models.Bet](t, body["data"])

	status, body := ts.do(t, http.MethodPost, "/api/bets/check/"+saved.ID+"?concurso=9999", "")
	if status != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", status)
	}
	if decode[int](t, body["code"]) != http.StatusNotFound {
		t.Errorf("error body code = %s", body["code"])
	}
}

func TestListBets_Limit(t *testing.T) {
	ts := newTestServer(t)
	for _, path := range []string{"/api/bets?limit=0", "/api/bets?limit=201", "/api/bets?lottery_type=bingo"} {
		if status, _ := ts.do(t, http.MethodGet, path, ""); status != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", path, status)
		}
	}
}
