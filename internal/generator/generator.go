// Package generator produces candidate bets from a frequency snapshot and an
// optional pattern profile using bounded rejection sampling.
package generator

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rewired-gh/lottosmart/internal/models"
)

// Strategy names a sampling policy.
type Strategy string

const (
	Smart    Strategy = "smart"
	Hot      Strategy = "hot"
	Cold     Strategy = "cold"
	Balanced Strategy = "balanced"
	Coverage Strategy = "coverage"
)

// Attempt bounds for each strategy's rejection loop.
const (
	SmartAttempts    = 50
	HotAttempts      = 20
	ColdAttempts     = 20
	BalancedAttempts = 30
	CoverageAttempts = 20
	MaxParitySwaps   = 10

	// BatchAttemptFactor multiplies the requested count to bound batch retries.
	BatchAttemptFactor = 5
	// smartHotWindow is how many top hot numbers a smart candidate is scored against.
	smartHotWindow = 10
)

var strategies = []Strategy{Smart, Hot, Cold, Balanced, Coverage}

// Strategies returns every supported strategy.
func Strategies() []Strategy {
	return append([]Strategy(nil), strategies...)
}

// ParseStrategy validates a strategy name.
func ParseStrategy(name string) (Strategy, error) {
	for _, s := range strategies {
		if string(s) == name {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", models.ErrInvalidStrategy, name)
}

// Generator is safe for concurrent use; all randomness comes from one source.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// New creates a Generator with a deterministic source derived from seed.
func New(seed uint64) *Generator {
	return &Generator{
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// NewRandom creates a Generator seeded from the runtime's random source.
func NewRandom() *Generator {
	return New(rand.Uint64())
}

// Generate returns one bet for game. It never fails: an exhausted strategy
// falls back to a uniform fill. profile may be nil.
func (g *Generator) Generate(snap *models.FrequencySnapshot, game models.Game, strategy Strategy, profile *models.PatternProfile) models.Bet {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.generate(newSampler(g.rng, snap, game, profile), strategy)
}

// GenerateBatch returns up to count bets with distinct number sets. After
// count*BatchAttemptFactor attempts it returns whatever it has.
func (g *Generator) GenerateBatch(snap *models.FrequencySnapshot, game models.Game, strategy Strategy, profile *models.PatternProfile, count int) []models.Bet {
	g.mu.Lock()
	defer g.mu.Unlock()

	s := newSampler(g.rng, snap, game, profile)
	bets := make([]models.Bet, 0, count)
	seen := make(map[string]bool, count)
	for attempt := 0; attempt < count*BatchAttemptFactor && len(bets) < count; attempt++ {
		bet := g.generate(s, strategy)
		if seen[bet.Hash] {
			continue
		}
		seen[bet.Hash] = true
		bets = append(bets, bet)
	}
	return bets
}

func (g *Generator) generate(s *sampler, strategy Strategy) models.Bet {
	var nums []int
	switch strategy {
	case Smart:
		nums = s.smart()
	case Hot:
		nums = s.hot()
	case Cold:
		nums = s.cold()
	case Coverage:
		nums = s.coverage()
	default:
		strategy = Balanced
		nums = s.balanced()
	}
	nums = s.finalize(nums)

	return models.Bet{
		ID:          uuid.NewString(),
		Game:        s.game.ID,
		Numbers:     nums,
		Strategy:    string(strategy),
		Explanation: explain(strategy, nums),
		Hash:        models.ContentHash(s.game.ID, nums),
		CreatedAt:   g.now(),
	}
}

var strategyNotes = map[Strategy]string{
	Smart:    "Combinação inteligente alinhada aos padrões vencedores recentes",
	Hot:      "Foco em números quentes (mais frequentes)",
	Cold:     "Foco em números frios e atrasados (menos frequentes)",
	Balanced: "Combinação equilibrada por faixas, priorizando números quentes",
	Coverage: "Máxima cobertura nas faixas baixa, média e alta",
}

func explain(strategy Strategy, nums []int) string {
	even := evenCount(nums)
	parts := []string{
		strategyNotes[strategy],
		fmt.Sprintf("Pares: %d, Ímpares: %d", even, len(nums)-even),
		fmt.Sprintf("Soma: %d", sum(nums)),
	}
	if consecutivePairs(nums) > 2 {
		parts = append(parts, "Contém algumas sequências (pode ser ajustado)")
	}
	return strings.Join(parts, " | ")
}
