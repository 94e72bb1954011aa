package analysis

import (
	"math"

	"github.com/rewired-gh/lottosmart/internal/models"
)

// PatternWindow bounds how many recent draws feed the pattern profile.
const PatternWindow = 50

// AnalyzeWinningPatterns aggregates the shape of the winning combinations in
// draws (newest first). Draws whose primary set does not have exactly
// NumbersToPick numbers are skipped. With no qualifying draw every optional
// field of the profile is left nil.
func AnalyzeWinningPatterns(draws []models.Draw, game models.Game) models.PatternProfile {
	if len(draws) > PatternWindow {
		draws = draws[:PatternWindow]
	}

	var (
		evens, lows, mids, highs welford
		sums, consecutive        welford
		repeats                  welford
		prev                     []int
	)
	for _, d := range draws {
		if len(d.Numbers) != game.NumbersToPick {
			continue
		}
		nums := models.SortedCopy(d.Numbers)

		even := 0
		var split models.BandSplit
		sum := 0
		for _, n := range nums {
			if n%2 == 0 {
				even++
			}
			switch game.Band(n) {
			case 0:
				split.Low++
			case 1:
				split.Mid++
			default:
				split.High++
			}
			sum += n
		}
		evens.add(float64(even))
		lows.add(float64(split.Low))
		mids.add(float64(split.Mid))
		highs.add(float64(split.High))
		sums.add(float64(sum))
		consecutive.add(float64(consecutivePairs(nums)))

		if prev != nil {
			repeats.add(float64(len(models.Intersect(nums, prev))))
		}
		prev = nums
	}

	profile := models.PatternProfile{SampleSize: sums.count}
	if sums.count == 0 {
		return profile
	}

	optEven := int(math.Round(evens.mean))
	optOdd := game.NumbersToPick - optEven
	profile.OptimalEven = &optEven
	profile.OptimalOdd = &optOdd

	profile.Sum = &models.SumRange{
		Min:    int(sums.mean * 0.85),
		Max:    int(sums.mean * 1.15),
		Mean:   round1(sums.mean),
		StdDev: round1(sums.stdDev()),
	}

	avgConsecutive := round1(consecutive.mean)
	profile.AvgConsecutive = &avgConsecutive

	profile.OptimalRange = &models.BandSplit{
		Low:  int(math.Round(lows.mean)),
		Mid:  int(math.Round(mids.mean)),
		High: int(math.Round(highs.mean)),
	}

	if repeats.count > 0 {
		avgRepeats := round1(repeats.mean)
		profile.AvgRepeatsFromPrev = &avgRepeats
	}
	return profile
}

// consecutivePairs counts adjacent differences of exactly one in sorted nums.
func consecutivePairs(nums []int) int {
	pairs := 0
	for i := 1; i < len(nums); i++ {
		if nums[i]-nums[i-1] == 1 {
			pairs++
		}
	}
	return pairs
}
