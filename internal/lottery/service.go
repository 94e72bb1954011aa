// Package lottery is the read side of the service: latest and historical
// draws, statistics and bet generation.
package lottery

import (
	"context"
	"fmt"

	"github.com/rewired-gh/lottosmart/internal/analysis"
	"github.com/rewired-gh/lottosmart/internal/generator"
	"github.com/rewired-gh/lottosmart/internal/logger"
	"github.com/rewired-gh/lottosmart/internal/models"
)

// Source fetches a single draw; number <= 0 means the latest.
type Source interface {
	FetchDraw(ctx context.Context, game models.Game, number int) (*models.Draw, error)
}

// Store is the draw cache.
type Store interface {
	UpsertDraw(d *models.Draw) error
	RecentDraws(game string, limit int) ([]models.Draw, error)
}

// Assembler returns up to count recent draws, newest first.
type Assembler interface {
	Assemble(ctx context.Context, game models.Game, count int) []models.Draw
}

// StatsCache holds computed statistics between requests. A miss is (nil, nil).
type StatsCache interface {
	Get(ctx context.Context, game string) (*models.Statistics, error)
	Set(ctx context.Context, stats *models.Statistics) error
	Invalidate(ctx context.Context, game string) error
}

// Options tunes window sizes and request bounds.
type Options struct {
	StatsWindow     int
	DefaultLimit    int
	MaxLimit        int
	MaxCount        int
	DefaultStrategy generator.Strategy
}

// Service composes the draw source, cache, analyzers and generator.
type Service struct {
	catalog   *models.Catalog
	source    Source
	store     Store
	history   Assembler
	cache     StatsCache
	generator *generator.Generator
	opts      Options
}

// New creates a Service. cache may be nil.
func New(catalog *models.Catalog, source Source, store Store, history Assembler, cache StatsCache, gen *generator.Generator, opts Options) *Service {
	if opts.StatsWindow <= 0 {
		opts.StatsWindow = 100
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = 20
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = 100
	}
	if opts.MaxCount <= 0 {
		opts.MaxCount = 10
	}
	if opts.DefaultStrategy == "" {
		opts.DefaultStrategy = generator.Balanced
	}
	return &Service{
		catalog:   catalog,
		source:    source,
		store:     store,
		history:   history,
		cache:     cache,
		generator: gen,
		opts:      opts,
	}
}

// Games returns the supported games.
func (s *Service) Games() []models.Game {
	return s.catalog.All()
}

// LatestDraw is the newest draw of a game; Cached marks a store fallback.
type LatestDraw struct {
	Draw   *models.Draw
	Cached bool
}

// Latest fetches the newest draw and caches it. When the upstream fails it
// serves the newest stored draw, and fails with ErrUpstreamUnavailable only
// when there is none.
func (s *Service) Latest(ctx context.Context, gameID string) (*LatestDraw, error) {
	game, err := s.catalog.Get(gameID)
	if err != nil {
		return nil, err
	}
	draw, fetchErr := s.source.FetchDraw(ctx, game, 0)
	if fetchErr == nil {
		s.storeLatest(ctx, game, draw)
		return &LatestDraw{Draw: draw}, nil
	}

	logger.Warn("Latest %s draw unavailable: %v", game.ID, fetchErr)
	cached, err := s.store.RecentDraws(game.ID, 1)
	if err != nil {
		logger.Error("Failed to read cached %s draws: %v", game.ID, err)
	}
	if len(cached) == 0 {
		return nil, fmt.Errorf("%w: %s", models.ErrUpstreamUnavailable, game.ID)
	}
	return &LatestDraw{Draw: &cached[0], Cached: true}, nil
}

// storeLatest caches draw. A draw newer than anything stored makes the cached
// statistics of its game stale.
func (s *Service) storeLatest(ctx context.Context, game models.Game, draw *models.Draw) {
	prev, err := s.store.RecentDraws(game.ID, 1)
	if err != nil {
		logger.Warn("Failed to read cached %s draws: %v", game.ID, err)
	}
	if err := s.store.UpsertDraw(draw); err != nil {
		logger.Warn("Failed to cache %s draw %d: %v", game.ID, draw.Number, err)
		return
	}
	if s.cache == nil || (len(prev) > 0 && prev[0].Number >= draw.Number) {
		return
	}
	logger.Debug("New %s draw %d, dropping cached statistics", game.ID, draw.Number)
	if err := s.cache.Invalidate(ctx, game.ID); err != nil {
		logger.Warn("Stats cache invalidation for %s failed: %v", game.ID, err)
	}
}

// NextDraw summarizes the upcoming draw. It needs a fresh upstream response.
func (s *Service) NextDraw(ctx context.Context, gameID string) (*models.NextDraw, error) {
	game, err := s.catalog.Get(gameID)
	if err != nil {
		return nil, err
	}
	draw, err := s.source.FetchDraw(ctx, game, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %s next draw: %v", models.ErrUpstreamUnavailable, game.ID, err)
	}
	next := draw.Next()
	return &next, nil
}

// History refreshes the cache through the assembler and returns the newest
// limit stored draws. limit 0 means the default.
func (s *Service) History(ctx context.Context, gameID string, limit int) ([]models.Draw, error) {
	game, err := s.catalog.Get(gameID)
	if err != nil {
		return nil, err
	}
	if limit == 0 {
		limit = s.opts.DefaultLimit
	}
	if limit < 1 || limit > s.opts.MaxLimit {
		return nil, fmt.Errorf("%w: limit must be in [1, %d]", models.ErrInvalidRequest, s.opts.MaxLimit)
	}

	assembled := s.history.Assemble(ctx, game, limit)
	stored, err := s.store.RecentDraws(game.ID, limit)
	if err != nil {
		logger.Warn("Failed to read %s history, serving assembled draws: %v", game.ID, err)
		return assembled, nil
	}
	if stored == nil {
		stored = []models.Draw{}
	}
	return stored, nil
}

// Statistics returns the frequency snapshot and pattern profile of the
// recent window, through the stats cache when one is configured.
func (s *Service) Statistics(ctx context.Context, gameID string) (*models.Statistics, error) {
	game, err := s.catalog.Get(gameID)
	if err != nil {
		return nil, err
	}
	return s.statistics(ctx, game), nil
}

func (s *Service) statistics(ctx context.Context, game models.Game) *models.Statistics {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, game.ID)
		if err != nil {
			logger.Warn("Stats cache read for %s failed: %v", game.ID, err)
		}
		if cached != nil {
			logger.Debug("Stats cache hit for %s", game.ID)
			return cached
		}
	}

	draws := s.history.Assemble(ctx, game, s.opts.StatsWindow)
	stats := &models.Statistics{
		Game:     game.ID,
		Snapshot: analysis.Analyze(draws, game),
		Profile:  analysis.AnalyzeWinningPatterns(draws, game),
	}
	// An empty window is not worth remembering.
	if s.cache != nil && len(draws) > 0 {
		if err := s.cache.Set(ctx, stats); err != nil {
			logger.Warn("Stats cache write for %s failed: %v", game.ID, err)
		}
	}
	return stats
}

// StatsSummary is the part of the statistics echoed with generated bets.
type StatsSummary struct {
	TotalDrawsAnalyzed int                   `json:"total_draws_analyzed"`
	TopHotNumbers      []int                 `json:"top_hot_numbers"`
	TopColdNumbers     []int                 `json:"top_cold_numbers"`
	Patterns           models.PatternProfile `json:"patterns"`
}

// Generated is the result of a generate call.
type Generated struct {
	Bets         []models.Bet `json:"bets"`
	StrategyUsed string       `json:"strategy_used"`
	Summary      StatsSummary `json:"statistics_summary"`
}

// ParseGenerateRequest validates generate arguments without computing
// anything. Empty strategy and zero count take the defaults.
func (s *Service) ParseGenerateRequest(gameID, strategy string, count int) (models.Game, generator.Strategy, int, error) {
	game, err := s.catalog.Get(gameID)
	if err != nil {
		return models.Game{}, "", 0, err
	}
	strat := s.opts.DefaultStrategy
	if strategy != "" {
		if strat, err = generator.ParseStrategy(strategy); err != nil {
			return models.Game{}, "", 0, err
		}
	}
	if count == 0 {
		count = 1
	}
	if count < 1 || count > s.opts.MaxCount {
		return models.Game{}, "", 0, fmt.Errorf("%w: count must be in [1, %d]", models.ErrInvalidRequest, s.opts.MaxCount)
	}
	return game, strat, count, nil
}

// Generate produces up to count distinct bets from the current statistics.
func (s *Service) Generate(ctx context.Context, gameID, strategy string, count int) (*Generated, error) {
	game, strat, count, err := s.ParseGenerateRequest(gameID, strategy, count)
	if err != nil {
		return nil, err
	}
	stats := s.statistics(ctx, game)
	bets := s.generator.GenerateBatch(&stats.Snapshot, game, strat, &stats.Profile, count)
	logger.Debug("Generated %d/%d %s bets with %s", len(bets), count, game.ID, strat)

	hot, cold := stats.Snapshot.Hot(), stats.Snapshot.Cold()
	return &Generated{
		Bets:         bets,
		StrategyUsed: string(strat),
		Summary: StatsSummary{
			TotalDrawsAnalyzed: stats.Snapshot.TotalDrawsAnalyzed,
			TopHotNumbers:      hot[:min(5, len(hot))],
			TopColdNumbers:     cold[:min(5, len(cold))],
			Patterns:           stats.Profile,
		},
	}, nil
}
