// Package ledger stores saved bets and checks them against official draws.
package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rewired-gh/lottosmart/internal/logger"
	"github.com/rewired-gh/lottosmart/internal/models"
)

const (
	manualStrategy    = "manual"
	manualExplanation = "Aposta manual"
)

// Source fetches a single draw; number <= 0 means the latest.
type Source interface {
	FetchDraw(ctx context.Context, game models.Game, number int) (*models.Draw, error)
}

// Store persists bets and caches the draws they are checked against.
type Store interface {
	UpsertDraw(d *models.Draw) error
	InsertBet(b *models.Bet) error
	GetBet(id string) (*models.Bet, error)
	FindBets(f models.BetFilter) ([]models.Bet, error)
	UpdateBetResult(id string, r *models.MatchResult) error
	DeleteBet(id string) error
	DeleteBets(f models.BetFilter) (int, error)
}

// Notifier is told about check-all runs that produced winners.
type Notifier interface {
	SendWinners(summary models.CheckSummary) error
}

// Ledger owns the bet lifecycle: save, check, list, delete.
type Ledger struct {
	catalog  *models.Catalog
	source   Source
	store    Store
	notifier Notifier
	now      func() time.Time
}

// New creates a Ledger. notifier may be nil.
func New(catalog *models.Catalog, source Source, store Store, notifier Notifier) *Ledger {
	return &Ledger{
		catalog:  catalog,
		source:   source,
		store:    store,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Save validates and persists bet with a fresh id and timestamp. A bet whose
// game and number set are already stored yields models.ErrDuplicateBet.
func (l *Ledger) Save(bet models.Bet) (*models.Bet, error) {
	game, err := l.catalog.Get(bet.Game)
	if err != nil {
		return nil, err
	}
	if err := models.ValidateNumbers(game, bet.Numbers); err != nil {
		return nil, err
	}

	saved := models.Bet{
		ID:          uuid.NewString(),
		Game:        game.ID,
		Numbers:     models.SortedCopy(bet.Numbers),
		Strategy:    strings.TrimSpace(bet.Strategy),
		Explanation: strings.TrimSpace(bet.Explanation),
		CreatedAt:   l.now(),
	}
	if saved.Strategy == "" {
		saved.Strategy = manualStrategy
	}
	if saved.Explanation == "" {
		saved.Explanation = manualExplanation
	}
	saved.Hash = models.ContentHash(saved.Game, saved.Numbers)

	if err := l.store.InsertBet(&saved); err != nil {
		return nil, err
	}
	logger.Info("Saved %s bet %s %v", saved.Game, saved.ID, saved.Numbers)
	return &saved, nil
}

// List returns saved bets matching f, newest first.
func (l *Ledger) List(f models.BetFilter) ([]models.Bet, error) {
	if f.Game != "" {
		if _, err := l.catalog.Get(f.Game); err != nil {
			return nil, err
		}
	}
	return l.store.FindBets(f)
}

// Check matches bet id against draw number drawNumber (the latest when <= 0)
// and stores the result on the bet.
func (l *Ledger) Check(ctx context.Context, id string, drawNumber int) (*models.Bet, error) {
	bet, err := l.store.GetBet(id)
	if err != nil {
		return nil, err
	}
	game, err := l.catalog.Get(bet.Game)
	if err != nil {
		return nil, err
	}
	draw, err := l.fetch(ctx, game, drawNumber)
	if err != nil {
		return nil, err
	}
	if err := l.apply(game, bet, draw); err != nil {
		return nil, err
	}
	return bet, nil
}

// CheckAll checks every unchecked bet, optionally restricted to one game,
// against the latest draw of its game. A failing bet is logged and skipped.
func (l *Ledger) CheckAll(ctx context.Context, gameID string) (models.CheckSummary, error) {
	summary := models.CheckSummary{Results: []models.Bet{}}
	if gameID != "" {
		if _, err := l.catalog.Get(gameID); err != nil {
			return summary, err
		}
	}
	bets, err := l.store.FindBets(models.BetFilter{Game: gameID, UncheckedOnly: true})
	if err != nil {
		return summary, err
	}

	// One latest draw per game for the whole run.
	type latest struct {
		draw *models.Draw
		err  error
	}
	draws := map[string]latest{}

	for i := range bets {
		bet := &bets[i]
		game, err := l.catalog.Get(bet.Game)
		if err != nil {
			logger.Error("Skipping bet %s: %v", bet.ID, err)
			summary.Failed++
			continue
		}
		cached, ok := draws[game.ID]
		if !ok {
			cached.draw, cached.err = l.fetch(ctx, game, 0)
			draws[game.ID] = cached
		}
		if cached.err != nil {
			logger.Error("Skipping bet %s: %v", bet.ID, cached.err)
			summary.Failed++
			continue
		}
		if err := l.apply(game, bet, cached.draw); err != nil {
			logger.Error("Skipping bet %s: %v", bet.ID, err)
			summary.Failed++
			continue
		}

		summary.Checked++
		if bet.Result.IsWinner {
			summary.Winners++
			if bet.Result.PrizeValue != nil {
				summary.TotalPrize += *bet.Result.PrizeValue
			}
		}
		summary.Results = append(summary.Results, *bet)
	}

	logger.Info("Checked %d bets (%d failed, %d winners)", summary.Checked, summary.Failed, summary.Winners)
	if summary.Winners > 0 && l.notifier != nil {
		if err := l.notifier.SendWinners(summary); err != nil {
			logger.Error("Failed to send winners notification: %v", err)
		}
	}
	return summary, nil
}

// Delete removes one bet.
func (l *Ledger) Delete(id string) error {
	return l.store.DeleteBet(id)
}

// DeleteAll removes every bet, or only those of gameID when it is set.
func (l *Ledger) DeleteAll(gameID string) (int, error) {
	if gameID != "" {
		if _, err := l.catalog.Get(gameID); err != nil {
			return 0, err
		}
	}
	n, err := l.store.DeleteBets(models.BetFilter{Game: gameID})
	if err != nil {
		return 0, err
	}
	logger.Info("Deleted %d bets", n)
	return n, nil
}

func (l *Ledger) fetch(ctx context.Context, game models.Game, number int) (*models.Draw, error) {
	draw, err := l.source.FetchDraw(ctx, game, number)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s draw: %w", game.ID, err)
	}
	if err := l.store.UpsertDraw(draw); err != nil {
		logger.Warn("Failed to cache %s draw %d: %v", game.ID, draw.Number, err)
	}
	return draw, nil
}

func (l *Ledger) apply(game models.Game, bet *models.Bet, draw *models.Draw) error {
	result := Match(game, bet.Numbers, draw)
	result.CheckedAt = l.now()
	if err := l.store.UpdateBetResult(bet.ID, &result); err != nil {
		return err
	}
	bet.Checked = true
	bet.Result = &result
	return nil
}

// Match compares numbers with draw. For dual-draw games the second set wins
// only with strictly more matches; its prize rows follow the first set's.
func Match(game models.Game, numbers []int, draw *models.Draw) models.MatchResult {
	drawn := draw.Numbers
	matches := models.Intersect(numbers, drawn)
	tierOffset := 0
	second := false
	if game.DualDraw && len(draw.SecondNumbers) > 0 {
		if alt := models.Intersect(numbers, draw.SecondNumbers); len(alt) > len(matches) {
			drawn, matches = draw.SecondNumbers, alt
			tierOffset = len(game.PrizeTiers)
			second = true
		}
	}

	result := models.MatchResult{
		DrawNumber:   draw.Number,
		DrawDate:     draw.Date,
		DrawnNumbers: models.SortedCopy(drawn),
		Matches:      matches,
		MatchCount:   len(matches),
		IsWinner:     len(matches) >= game.MinPrize,
		SecondDraw:   second,
	}
	if !result.IsWinner {
		return result
	}
	if tier := game.PrizeTier(result.MatchCount); tier != "" {
		result.PrizeTier = &tier
	}
	if amount, ok := draw.PrizeFor(game.TierIndex(result.MatchCount) + tierOffset); ok {
		result.PrizeValue = &amount
	}
	return result
}
