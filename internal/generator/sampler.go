package generator

import (
	"math/rand/v2"
	"sort"

	"github.com/rewired-gh/lottosmart/internal/models"
)

// sampler holds the inputs of one generation call.
type sampler struct {
	rng     *rand.Rand
	game    models.Game
	profile *models.PatternProfile

	hotRank     []int
	hotSet      map[int]bool
	coldRank    []int
	delayedRank []int
	bands       [3][]int
}

func newSampler(rng *rand.Rand, snap *models.FrequencySnapshot, game models.Game, profile *models.PatternProfile) *sampler {
	s := &sampler{rng: rng, game: game, profile: profile, hotSet: map[int]bool{}}
	if snap != nil {
		s.hotRank = inRange(snap.Hot(), game.MaxNumber)
		s.coldRank = inRange(snap.Cold(), game.MaxNumber)
		s.delayedRank = inRange(snap.Delayed(), game.MaxNumber)
	}
	for _, n := range s.hotRank {
		s.hotSet[n] = true
	}
	for n := 1; n <= game.MaxNumber; n++ {
		b := game.Band(n)
		s.bands[b] = append(s.bands[b], n)
	}
	return s
}

func inRange(nums []int, maxNumber int) []int {
	out := nums[:0:0]
	for _, n := range nums {
		if n >= 1 && n <= maxNumber {
			out = append(out, n)
		}
	}
	return out
}

// valid reports whether nums has the right size and sits inside the
// profile's sum and parity targets. Absent targets impose no constraint.
func (s *sampler) valid(nums []int) bool {
	if len(nums) != s.game.NumbersToPick {
		return false
	}
	if s.profile == nil {
		return true
	}
	if r := s.profile.Sum; r != nil {
		// [Min*0.8, Max*1.15], scaled by 100 to stay in integers.
		total := sum(nums) * 100
		if total < r.Min*80 || total > r.Max*115 {
			return false
		}
	}
	if opt := s.profile.OptimalEven; opt != nil {
		if abs(evenCount(nums)-*opt) > 2 {
			return false
		}
	}
	return true
}

func (s *sampler) smart() []int {
	top := s.hotRank[:min(smartHotWindow, len(s.hotRank))]
	var best, fallback []int
	bestScore, fallbackScore := -1, -1
	for range SmartAttempts {
		c := s.rangeTargeted(true)
		score := len(models.Intersect(c, top))
		if score > fallbackScore {
			fallback, fallbackScore = c, score
		}
		if s.valid(c) && score > bestScore {
			best, bestScore = c, score
		}
	}
	if best != nil {
		return best
	}
	return fallback
}

func (s *sampler) hot() []int {
	pool := union(s.hotRank, s.sample(s.all(), s.game.MaxNumber/4))
	for range HotAttempts {
		c := s.sample(pool, s.game.NumbersToPick)
		if s.valid(c) {
			return c
		}
	}
	if len(s.hotRank) >= 20 {
		return s.sample(s.hotRank[:20], s.game.NumbersToPick)
	}
	return s.sample(s.all(), s.game.NumbersToPick)
}

func (s *sampler) cold() []int {
	pool := union(s.coldRank, s.delayedRank)
	if len(pool) < s.game.NumbersToPick {
		pool = union(pool, s.all())
	}
	var c []int
	for range ColdAttempts {
		c = s.sample(pool, s.game.NumbersToPick)
		if s.valid(c) {
			break
		}
	}
	return c
}

func (s *sampler) balanced() []int {
	var c []int
	for range BalancedAttempts {
		c = s.rangeTargeted(true)
		if s.valid(c) {
			break
		}
	}
	return c
}

func (s *sampler) coverage() []int {
	var c []int
	for range CoverageAttempts {
		c = s.rangeTargeted(false)
		if s.valid(c) {
			break
		}
	}
	return c
}

// rangeTargeted fills each band up to its target count, then tops up from
// the whole range. With preferHot, hot numbers are taken first at every step
// and the parity is nudged towards the profile's optimal even count.
func (s *sampler) rangeTargeted(preferHot bool) []int {
	targets := s.bandTargets()
	chosen := make(map[int]bool, s.game.NumbersToPick)
	var out []int
	take := func(candidates []int, limit int) {
		for _, n := range candidates {
			if len(out) >= limit {
				return
			}
			if !chosen[n] {
				chosen[n] = true
				out = append(out, n)
			}
		}
	}

	order := s.shuffled
	if preferHot {
		order = s.hotFirst
	}
	for b, members := range s.bands {
		take(order(members), len(out)+targets[b])
	}
	take(order(s.all()), s.game.NumbersToPick)

	if preferHot {
		s.balanceParity(out, chosen)
	}
	return out
}

// bandTargets derives low/mid/high counts from the profile, or splits the pick
// evenly with the remainder going to the middle band when the profile has no
// usable split. Targets are clamped to band sizes and never sum past the pick
// size.
func (s *sampler) bandTargets() [3]int {
	pick := s.game.NumbersToPick
	var t [3]int
	if r := s.optimalRange(); r != nil {
		t = [3]int{r.Low, r.Mid, r.High}
	} else {
		base := pick / 3
		t = [3]int{base, base + pick%3, base}
	}
	for b := range t {
		t[b] = max(0, min(t[b], len(s.bands[b])))
	}
	for t[0]+t[1]+t[2] > pick {
		largest := 0
		for b := range t {
			if t[b] > t[largest] {
				largest = b
			}
		}
		t[largest]--
	}
	return t
}

// optimalRange is the profile's split, or nil when absent or all zero.
func (s *sampler) optimalRange() *models.BandSplit {
	if s.profile == nil || s.profile.OptimalRange == nil || s.profile.OptimalRange.Total() == 0 {
		return nil
	}
	return s.profile.OptimalRange
}

// balanceParity swaps members in place until the even count is within one of
// the profile's optimum, or MaxParitySwaps is reached.
func (s *sampler) balanceParity(nums []int, chosen map[int]bool) {
	if s.profile == nil || s.profile.OptimalEven == nil {
		return
	}
	target := *s.profile.OptimalEven
	for range MaxParitySwaps {
		diff := evenCount(nums) - target
		if abs(diff) <= 1 {
			return
		}
		// Too many evens: drop an even and bring in an odd, and vice versa.
		surplus := 0
		if diff < 0 {
			surplus = 1
		}
		var outgoing []int
		for i, n := range nums {
			if n%2 == surplus {
				outgoing = append(outgoing, i)
			}
		}
		var incoming []int
		for _, n := range s.hotFirst(s.all()) {
			if !chosen[n] && n%2 != surplus {
				incoming = append(incoming, n)
				break
			}
		}
		if len(outgoing) == 0 || len(incoming) == 0 {
			return
		}
		i := outgoing[s.rng.IntN(len(outgoing))]
		delete(chosen, nums[i])
		nums[i] = incoming[0]
		chosen[incoming[0]] = true
	}
}

// finalize dedupes, drops out-of-range values, sorts, truncates and pads with
// uniformly random unused numbers so the result has exactly NumbersToPick.
func (s *sampler) finalize(nums []int) []int {
	pick := s.game.NumbersToPick
	seen := make(map[int]bool, pick)
	out := make([]int, 0, pick)
	for _, n := range nums {
		if n >= 1 && n <= s.game.MaxNumber && !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	sort.Ints(out)
	if len(out) > pick {
		out = out[:pick]
	}
	if len(out) < pick {
		var unused []int
		for _, n := range s.all() {
			if !seen[n] {
				unused = append(unused, n)
			}
		}
		out = append(out, s.sample(unused, pick-len(out))...)
		sort.Ints(out)
	}
	return out
}

func (s *sampler) all() []int {
	out := make([]int, 0, s.game.MaxNumber)
	for _, band := range s.bands {
		out = append(out, band...)
	}
	return out
}

// sample returns up to k distinct members of pool in random order.
func (s *sampler) sample(pool []int, k int) []int {
	return s.shuffled(pool)[:min(k, len(pool))]
}

func (s *sampler) shuffled(pool []int) []int {
	out := append([]int(nil), pool...)
	s.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// hotFirst shuffles pool, then moves its hot members to the front.
func (s *sampler) hotFirst(pool []int) []int {
	var hot, other []int
	for _, n := range s.shuffled(pool) {
		if s.hotSet[n] {
			hot = append(hot, n)
		} else {
			other = append(other, n)
		}
	}
	return append(hot, other...)
}

func union(a, b []int) []int {
	seen := make(map[int]bool, len(a)+len(b))
	var out []int
	for _, list := range [][]int{a, b} {
		for _, n := range list {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	return out
}

func sum(nums []int) int {
	total := 0
	for _, n := range nums {
		total += n
	}
	return total
}

func evenCount(nums []int) int {
	even := 0
	for _, n := range nums {
		if n%2 == 0 {
			even++
		}
	}
	return even
}

func consecutivePairs(nums []int) int {
	sorted := models.SortedCopy(nums)
	pairs := 0
	for i := 1; i < len(sorted); i++ {
		if sorted[i]-sorted[i-1] == 1 {
			pairs++
		}
	}
	return pairs
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
