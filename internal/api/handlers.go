// Package api exposes the lottery and bet operations over HTTP.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rewired-gh/lottosmart/internal/lottery"
	"github.com/rewired-gh/lottosmart/internal/models"
)

const (
	defaultBetLimit = 50
	maxBetLimit     = 200
	maxBodyBytes    = 64 << 10
)

// LotteryService is the read side used by the lottery routes.
type LotteryService interface {
	Games() []models.Game
	Latest(ctx context.Context, game string) (*lottery.LatestDraw, error)
	NextDraw(ctx context.Context, game string) (*models.NextDraw, error)
	History(ctx context.Context, game string, limit int) ([]models.Draw, error)
	Statistics(ctx context.Context, game string) (*models.Statistics, error)
	Generate(ctx context.Context, game, strategy string, count int) (*lottery.Generated, error)
}

// BetLedger is the bet lifecycle used by the bet routes.
type BetLedger interface {
	Save(bet models.Bet) (*models.Bet, error)
	List(f models.BetFilter) ([]models.Bet, error)
	Check(ctx context.Context, id string, drawNumber int) (*models.Bet, error)
	CheckAll(ctx context.Context, game string) (models.CheckSummary, error)
	Delete(id string) error
	DeleteAll(game string) (int, error)
}

// Pinger reports store health.
type Pinger interface {
	Ping() error
}

// Handler holds the HTTP handlers.
type Handler struct {
	lottery LotteryService
	bets    BetLedger
	db      Pinger
}

// NewHandler creates a Handler.
func NewHandler(lottery LotteryService, bets BetLedger, db Pinger) *Handler {
	return &Handler{lottery: lottery, bets: bets, db: db}
}

// HealthCheck reports whether the store answers.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(); err != nil {
		respondError(w, http.StatusServiceUnavailable, "database unhealthy")
		return
	}
	respondJSON(w, http.StatusOK, envelope{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"service":   "lottosmart",
	})
}

// ListGames returns the supported games and their prize tiers.
func (h *Handler) ListGames(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, ok(h.lottery.Games()))
}

// GetLatest returns the newest draw, flagged when served from the cache.
func (h *Handler) GetLatest(w http.ResponseWriter, r *http.Request) {
	latest, err := h.lottery.Latest(r.Context(), chi.URLParam(r, "game"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	resp := ok(latest.Draw)
	resp["cached"] = latest.Cached
	respondJSON(w, http.StatusOK, resp)
}

// GetHistory returns recent draws. Query params: limit (default from config)
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", 0)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	// An explicit limit must be positive; 0 is reserved for "use the default".
	if r.URL.Query().Has("limit") && limit < 1 {
		respondErr(w, r, fmt.Errorf("%w: limit must be positive", models.ErrInvalidRequest))
		return
	}
	draws, err := h.lottery.History(r.Context(), chi.URLParam(r, "game"), limit)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	resp := ok(draws)
	resp["count"] = len(draws)
	respondJSON(w, http.StatusOK, resp)
}

// GetStatistics returns the frequency snapshot and pattern profile.
func (h *Handler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.lottery.Statistics(r.Context(), chi.URLParam(r, "game"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, ok(stats))
}

// GetNextDraw returns the upcoming draw summary.
func (h *Handler) GetNextDraw(w http.ResponseWriter, r *http.Request) {
	next, err := h.lottery.NextDraw(r.Context(), chi.URLParam(r, "game"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, ok(next))
}

// GenerateBets generates bets without saving them.
// Query params: lottery_type, strategy, count
func (h *Handler) GenerateBets(w http.ResponseWriter, r *http.Request) {
	count, err := intParam(r, "count", 1)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	q := r.URL.Query()
	gen, err := h.lottery.Generate(r.Context(), q.Get("lottery_type"), q.Get("strategy"), count)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	resp := ok(gen.Bets)
	resp["strategy_used"] = gen.StrategyUsed
	resp["statistics_summary"] = gen.Summary
	respondJSON(w, http.StatusOK, resp)
}

type saveBetRequest struct {
	Game        string `json:"lottery_type"`
	Numbers     []int  `json:"numbers"`
	Strategy    string `json:"strategy"`
	Explanation string `json:"explanation"`
}

// SaveBet stores a bet; the same game and number set can only be saved once.
func (h *Handler) SaveBet(w http.ResponseWriter, r *http.Request) {
	var req saveBetRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		respondErr(w, r, fmt.Errorf("%w: malformed body: %v", models.ErrInvalidBet, err))
		return
	}
	bet, err := h.bets.Save(models.Bet{
		Game:        req.Game,
		Numbers:     req.Numbers,
		Strategy:    req.Strategy,
		Explanation: req.Explanation,
	})
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, ok(bet))
}

// ListBets returns saved bets, newest first. Query params: lottery_type, limit
func (h *Handler) ListBets(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", defaultBetLimit)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if limit < 1 || limit > maxBetLimit {
		respondErr(w, r, fmt.Errorf("%w: limit must be in [1, %d]", models.ErrInvalidRequest, maxBetLimit))
		return
	}
	bets, err := h.bets.List(models.BetFilter{Game: r.URL.Query().Get("lottery_type"), Limit: limit})
	if err != nil {
		respondErr(w, r, err)
		return
	}
	resp := ok(bets)
	resp["count"] = len(bets)
	respondJSON(w, http.StatusOK, resp)
}

// DeleteBet removes one saved bet.
func (h *Handler) DeleteBet(w http.ResponseWriter, r *http.Request) {
	if err := h.bets.Delete(chi.URLParam(r, "id")); err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, envelope{"success": true, "message": "bet deleted"})
}

// DeleteBets removes every saved bet, or those of one game. Query params: lottery_type
func (h *Handler) DeleteBets(w http.ResponseWriter, r *http.Request) {
	n, err := h.bets.DeleteAll(r.URL.Query().Get("lottery_type"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, envelope{"success": true, "deleted": n})
}

// CheckBet checks one bet against a draw. Query params: concurso (default latest)
func (h *Handler) CheckBet(w http.ResponseWriter, r *http.Request) {
	drawNumber, err := intParam(r, "concurso", 0)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if drawNumber < 0 {
		respondErr(w, r, fmt.Errorf("%w: concurso must be positive", models.ErrInvalidRequest))
		return
	}
	bet, err := h.bets.Check(r.Context(), chi.URLParam(r, "id"), drawNumber)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, ok(bet))
}

// CheckAllBets checks every unchecked bet. Query params: lottery_type
func (h *Handler) CheckAllBets(w http.ResponseWriter, r *http.Request) {
	summary, err := h.bets.CheckAll(r.Context(), r.URL.Query().Get("lottery_type"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, ok(summary))
}
