// Package models defines the core domain entities: games, draws, bets, and derived statistics.
package models

import (
	"fmt"
	"sort"
	"strings"
)

// Game is the static configuration of one supported lottery.
type Game struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	APIName       string         `json:"-"`
	MaxNumber     int            `json:"max_number"`
	NumbersToPick int            `json:"numbers_to_pick"`
	DualDraw      bool           `json:"dual_draw"`
	PrizeTiers    map[int]string `json:"prize_tiers"`
	MinPrize      int            `json:"min_prize"`
}

// Third returns the width of one low/mid/high band (integer division).
func (g Game) Third() int {
	return g.MaxNumber / 3
}

// Band classifies n as 0 (low), 1 (mid) or 2 (high).
func (g Game) Band(n int) int {
	third := g.Third()
	switch {
	case n <= third:
		return 0
	case n <= 2*third:
		return 1
	default:
		return 2
	}
}

// PrizeTier returns the tier label for matchCount, or "" when it does not pay.
func (g Game) PrizeTier(matchCount int) string {
	if matchCount < g.MinPrize {
		return ""
	}
	return g.PrizeTiers[matchCount]
}

// TierIndex maps a match count to the 1-based index used by the upstream prize table,
// where index 1 is the top prize.
func (g Game) TierIndex(matchCount int) int {
	return g.NumbersToPick - matchCount + 1
}

// Validate checks the invariants of a game configuration.
func (g Game) Validate() error {
	if g.ID == "" {
		return fmt.Errorf("game id must not be empty")
	}
	if g.NumbersToPick < 1 || g.NumbersToPick > g.MaxNumber {
		return fmt.Errorf("game %s: numbers_to_pick must be in [1, max_number]", g.ID)
	}
	if g.MinPrize < 1 || g.MinPrize > g.NumbersToPick {
		return fmt.Errorf("game %s: min_prize must be in [1, numbers_to_pick]", g.ID)
	}
	return nil
}

// Catalog is an immutable lookup of supported games built once at startup.
type Catalog struct {
	games map[string]Game
	order []string
}

// NewCatalog builds a catalog, rejecting invalid or duplicate games.
func NewCatalog(games ...Game) (*Catalog, error) {
	c := &Catalog{games: make(map[string]Game, len(games))}
	for _, g := range games {
		if err := g.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.games[g.ID]; dup {
			return nil, fmt.Errorf("duplicate game id %q", g.ID)
		}
		c.games[g.ID] = g
		c.order = append(c.order, g.ID)
	}
	return c, nil
}

// DefaultCatalog returns the four Caixa games.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(
		Game{
			ID: "quina", Name: "Quina", APIName: "quina",
			MaxNumber: 80, NumbersToPick: 5, MinPrize: 2,
			PrizeTiers: map[int]string{
				5: "Quina (5 acertos)",
				4: "Quadra (4 acertos)",
				3: "Terno (3 acertos)",
				2: "Duque (2 acertos)",
			},
		},
		Game{
			ID: "dupla_sena", Name: "Dupla Sena", APIName: "duplasena",
			MaxNumber: 50, NumbersToPick: 6, MinPrize: 3, DualDraw: true,
			PrizeTiers: map[int]string{
				6: "Sena (6 acertos)",
				5: "Quina (5 acertos)",
				4: "Quadra (4 acertos)",
				3: "Terno (3 acertos)",
			},
		},
		Game{
			ID: "lotofacil", Name: "Lotofácil", APIName: "lotofacil",
			MaxNumber: 25, NumbersToPick: 15, MinPrize: 11,
			PrizeTiers: map[int]string{
				15: "15 acertos",
				14: "14 acertos",
				13: "13 acertos",
				12: "12 acertos",
				11: "11 acertos",
			},
		},
		Game{
			ID: "megasena", Name: "Mega-Sena", APIName: "megasena",
			MaxNumber: 60, NumbersToPick: 6, MinPrize: 4,
			PrizeTiers: map[int]string{
				6: "Sena (6 acertos)",
				5: "Quina (5 acertos)",
				4: "Quadra (4 acertos)",
			},
		},
	)
	if err != nil {
		panic(err)
	}
	return c
}

// Get looks up a game by id, returning ErrInvalidGame when unknown. The error
// lists the supported ids.
func (c *Catalog) Get(id string) (Game, error) {
	g, ok := c.games[id]
	if !ok {
		return Game{}, fmt.Errorf("%w: %q (supported: %s)", ErrInvalidGame, id, strings.Join(c.IDs(), ", "))
	}
	return g, nil
}

// All returns the games in registration order.
func (c *Catalog) All() []Game {
	out := make([]Game, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.games[id])
	}
	return out
}

// IDs returns the sorted game ids.
func (c *Catalog) IDs() []string {
	ids := append([]string(nil), c.order...)
	sort.Strings(ids)
	return ids
}
