// Package analysis derives frequency rankings and winning-combination patterns
// from a window of draws. Everything here is pure: no I/O, no randomness.
package analysis

import (
	"math"
	"sort"

	"github.com/rewired-gh/lottosmart/internal/models"
)

const (
	// RankSize is the length of the hot, cold and delayed lists.
	RankSize = 15
	// DelayThreshold is how many draws back a number's last appearance must be
	// before it counts as delayed.
	DelayThreshold = 5
)

// Analyze computes the frequency snapshot of draws, which must be ordered
// newest first.
func Analyze(draws []models.Draw, game models.Game) models.FrequencySnapshot {
	snap := models.FrequencySnapshot{
		HotNumbers:     []models.NumberFrequency{},
		ColdNumbers:    []models.NumberFrequency{},
		DelayedNumbers: []models.DelayedNumber{},
	}
	if len(draws) == 0 {
		return snap
	}

	maxNumber := game.MaxNumber
	counts := make([]int, maxNumber+1)
	lastSeen := make([]int, maxNumber+1)
	for i := range lastSeen {
		lastSeen[i] = -1
	}

	var occurrences []int
	tally := func(n int) bool {
		if n < 1 || n > maxNumber {
			return false
		}
		counts[n]++
		occurrences = append(occurrences, n)
		return true
	}
	for idx, d := range draws {
		for _, n := range d.Numbers {
			if tally(n) && lastSeen[n] == -1 {
				lastSeen[n] = idx
			}
		}
		if game.DualDraw {
			for _, n := range d.SecondNumbers {
				tally(n)
			}
		}
	}

	total := len(draws)
	snap.TotalDrawsAnalyzed = total
	freq := func(n int) models.NumberFrequency {
		return models.NumberFrequency{
			Number:     n,
			Frequency:  counts[n],
			Percentage: round1(float64(counts[n]) / float64(total) * 100),
		}
	}

	all := make([]int, 0, maxNumber)
	for n := 1; n <= maxNumber; n++ {
		all = append(all, n)
	}

	var seen []int
	for _, n := range all {
		if counts[n] > 0 {
			seen = append(seen, n)
		}
	}
	sort.SliceStable(seen, func(i, j int) bool { return counts[seen[i]] > counts[seen[j]] })
	for _, n := range seen[:min(RankSize, len(seen))] {
		snap.HotNumbers = append(snap.HotNumbers, freq(n))
	}

	cold := append([]int(nil), all...)
	sort.SliceStable(cold, func(i, j int) bool { return counts[cold[i]] < counts[cold[j]] })
	for _, n := range cold[:min(RankSize, len(cold))] {
		snap.ColdNumbers = append(snap.ColdNumbers, freq(n))
	}

	snap.DelayedNumbers = delayed(all, lastSeen)
	snap.EvenOddRatio = evenOdd(occurrences)
	snap.RangeDistribution = rangeDistribution(occurrences, game)
	return snap
}

// delayed ranks numbers not seen within DelayThreshold draws. Never-seen
// numbers rank above every finite distance.
func delayed(all, lastSeen []int) []models.DelayedNumber {
	var out []models.DelayedNumber
	for _, n := range all {
		switch {
		case lastSeen[n] == -1:
			out = append(out, models.DelayedNumber{Number: n, NeverSeen: true})
		case lastSeen[n] > DelayThreshold:
			out = append(out, models.DelayedNumber{Number: n, DrawsSince: lastSeen[n]})
		}
	}
	key := func(d models.DelayedNumber) int {
		if d.NeverSeen {
			return math.MaxInt
		}
		return d.DrawsSince
	}
	sort.SliceStable(out, func(i, j int) bool { return key(out[i]) > key(out[j]) })
	if len(out) > RankSize {
		out = out[:RankSize]
	}
	if out == nil {
		out = []models.DelayedNumber{}
	}
	return out
}

func evenOdd(occurrences []int) models.EvenOdd {
	if len(occurrences) == 0 {
		return models.EvenOdd{}
	}
	even := 0
	for _, n := range occurrences {
		if n%2 == 0 {
			even++
		}
	}
	total := float64(len(occurrences))
	return models.EvenOdd{
		Even: round1(float64(even) / total * 100),
		Odd:  round1(float64(len(occurrences)-even) / total * 100),
	}
}

func rangeDistribution(occurrences []int, game models.Game) models.RangeDistribution {
	var rd models.RangeDistribution
	for _, n := range occurrences {
		switch game.Band(n) {
		case 0:
			rd.Low++
		case 1:
			rd.Medium++
		default:
			rd.High++
		}
	}
	return rd
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
