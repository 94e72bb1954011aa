// Package history assembles the most recent draws of a game from the upstream
// source and the local cache.
package history

import (
	"context"

	"github.com/rewired-gh/lottosmart/internal/logger"
	"github.com/rewired-gh/lottosmart/internal/models"
	"github.com/sourcegraph/conc/pool"
)

// DefaultMaxFetch caps how far back one assembly walks.
const DefaultMaxFetch = 50

// Source fetches a single draw; number <= 0 means the latest.
type Source interface {
	FetchDraw(ctx context.Context, game models.Game, number int) (*models.Draw, error)
}

// Store is the keyed draw cache.
type Store interface {
	UpsertDraw(d *models.Draw) error
	GetDraw(game string, number int) (*models.Draw, error)
	RecentDraws(game string, limit int) ([]models.Draw, error)
}

// Assembler merges fresh upstream draws with cached ones.
type Assembler struct {
	source   Source
	store    Store
	maxFetch int
	workers  int
}

// New creates an Assembler. maxFetch bounds the walk, workers bounds the
// number of concurrent lookups during the walk.
func New(source Source, store Store, maxFetch, workers int) *Assembler {
	if maxFetch <= 0 {
		maxFetch = DefaultMaxFetch
	}
	if workers <= 0 {
		workers = 1
	}
	return &Assembler{source: source, store: store, maxFetch: maxFetch, workers: workers}
}

// Assemble returns up to count draws of game, newest first. When the latest
// draw cannot be fetched it degrades to whatever the cache holds; an empty
// result is valid and not an error.
func (a *Assembler) Assemble(ctx context.Context, game models.Game, count int) []models.Draw {
	if count <= 0 {
		return []models.Draw{}
	}

	latest, err := a.source.FetchDraw(ctx, game, 0)
	if err != nil {
		logger.Warn("Latest %s draw unavailable, serving cache: %v", game.ID, err)
		cached, err := a.store.RecentDraws(game.ID, count)
		if err != nil {
			logger.Error("Failed to read cached %s draws: %v", game.ID, err)
			return []models.Draw{}
		}
		if cached == nil {
			cached = []models.Draw{}
		}
		return cached
	}
	a.upsert(latest)

	steps := min(count, a.maxFetch) - 1
	slots := make([]*models.Draw, steps)

	p := pool.New().WithMaxGoroutines(a.workers)
	for i := 0; i < steps; i++ {
		number := latest.Number - (i + 1)
		if number <= 0 {
			break
		}
		p.Go(func() {
			slots[i] = a.lookup(ctx, game, number)
		})
	}
	p.Wait()

	draws := make([]models.Draw, 0, steps+1)
	draws = append(draws, *latest)
	for _, d := range slots {
		if d != nil {
			draws = append(draws, *d)
		}
	}
	logger.Debug("Assembled %d/%d %s draws (latest %d)", len(draws), count, game.ID, latest.Number)
	return draws
}

// lookup prefers the cached copy and falls back to the source; a miss is
// skipped rather than failing the walk.
func (a *Assembler) lookup(ctx context.Context, game models.Game, number int) *models.Draw {
	cached, err := a.store.GetDraw(game.ID, number)
	if err != nil {
		logger.Warn("Cache read for %s draw %d failed: %v", game.ID, number, err)
	}
	if cached != nil {
		return cached
	}
	if ctx.Err() != nil {
		return nil
	}
	d, err := a.source.FetchDraw(ctx, game, number)
	if err != nil {
		logger.Debug("Skipping %s draw %d: %v", game.ID, number, err)
		return nil
	}
	a.upsert(d)
	return d
}

func (a *Assembler) upsert(d *models.Draw) {
	if err := a.store.UpsertDraw(d); err != nil {
		logger.Warn("Failed to cache %s draw %d: %v", d.Game, d.Number, err)
	}
}
