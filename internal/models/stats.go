package models

// NumberFrequency is one entry of the hot/cold rankings.
type NumberFrequency struct {
	Number     int     `json:"number"`
	Frequency  int     `json:"frequency"`
	Percentage float64 `json:"percentage"`
}

// DelayedNumber is a number absent from the most recent draws.
// NeverSeen ranks above any finite DrawsSince.
type DelayedNumber struct {
	Number     int  `json:"number"`
	DrawsSince int  `json:"draws_since"`
	NeverSeen  bool `json:"never_seen"`
}

// EvenOdd holds percentages of even and odd drawn occurrences.
type EvenOdd struct {
	Even float64 `json:"even"`
	Odd  float64 `json:"odd"`
}

// RangeDistribution counts drawn occurrences per band of the number space.
type RangeDistribution struct {
	Low    int `json:"low"`
	Medium int `json:"medium"`
	High   int `json:"high"`
}

// FrequencySnapshot is derived from a window of draws and never persisted.
type FrequencySnapshot struct {
	HotNumbers         []NumberFrequency `json:"hot_numbers"`
	ColdNumbers        []NumberFrequency `json:"cold_numbers"`
	DelayedNumbers     []DelayedNumber   `json:"delayed_numbers"`
	EvenOddRatio       EvenOdd           `json:"even_odd_ratio"`
	RangeDistribution  RangeDistribution `json:"range_distribution"`
	TotalDrawsAnalyzed int               `json:"total_draws_analyzed"`
}

// Hot returns the hot numbers in rank order.
func (s *FrequencySnapshot) Hot() []int {
	return numbersOf(s.HotNumbers)
}

// Cold returns the cold numbers in rank order.
func (s *FrequencySnapshot) Cold() []int {
	return numbersOf(s.ColdNumbers)
}

// Delayed returns the delayed numbers in rank order.
func (s *FrequencySnapshot) Delayed() []int {
	out := make([]int, len(s.DelayedNumbers))
	for i, d := range s.DelayedNumbers {
		out[i] = d.Number
	}
	return out
}

func numbersOf(freqs []NumberFrequency) []int {
	out := make([]int, len(freqs))
	for i, f := range freqs {
		out[i] = f.Number
	}
	return out
}

// BandSplit is a low/mid/high count of numbers in one combination.
type BandSplit struct {
	Low  int `json:"low"`
	Mid  int `json:"mid"`
	High int `json:"high"`
}

// Total returns Low+Mid+High.
func (b BandSplit) Total() int {
	return b.Low + b.Mid + b.High
}

// SumRange is the targeted band of combination sums.
type SumRange struct {
	Min    int     `json:"min"`
	Max    int     `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

// PatternProfile aggregates the shape of recent winning combinations.
// A nil field means there was no qualifying data and imposes no constraint.
type PatternProfile struct {
	SampleSize         int        `json:"sample_size"`
	OptimalEven        *int       `json:"optimal_even,omitempty"`
	OptimalOdd         *int       `json:"optimal_odd,omitempty"`
	Sum                *SumRange  `json:"sum_range,omitempty"`
	AvgConsecutive     *float64   `json:"avg_consecutive,omitempty"`
	OptimalRange       *BandSplit `json:"optimal_range,omitempty"`
	AvgRepeatsFromPrev *float64   `json:"avg_repeats_from_previous,omitempty"`
}

// Statistics is the read model served for a game: frequency plus pattern analysis.
type Statistics struct {
	Game     string            `json:"game"`
	Snapshot FrequencySnapshot `json:"frequency"`
	Profile  PatternProfile    `json:"patterns"`
}
