package models

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Bet is a generated or user-submitted combination. Generated bets are only
// persisted when explicitly saved; saved bets carry a content hash.
type Bet struct {
	ID          string       `json:"id"`
	Game        string       `json:"lottery_type"`
	Numbers     []int        `json:"numbers"`
	Strategy    string       `json:"strategy"`
	Explanation string       `json:"explanation"`
	Hash        string       `json:"hash,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	Checked     bool         `json:"checked"`
	Result      *MatchResult `json:"result"`
}

// MatchResult is the outcome of checking a bet against one draw.
type MatchResult struct {
	DrawNumber   int       `json:"concurso"`
	DrawDate     string    `json:"data"`
	DrawnNumbers []int     `json:"drawn_numbers"`
	Matches      []int     `json:"matches"`
	MatchCount   int       `json:"match_count"`
	PrizeTier    *string   `json:"prize_tier"`
	PrizeValue   *float64  `json:"prize_value,omitempty"`
	IsWinner     bool      `json:"is_winner"`
	SecondDraw   bool      `json:"second_draw,omitempty"`
	CheckedAt    time.Time `json:"checked_at"`
}

// BetFilter narrows bet queries. Zero values mean "any".
type BetFilter struct {
	Game          string
	UncheckedOnly bool
	Limit         int
}

// ContentHash is the deterministic digest of (game, sorted numbers) that
// identifies a bet regardless of number order.
func ContentHash(game string, numbers []int) string {
	sorted := SortedCopy(numbers)
	parts := make([]string, len(sorted))
	for i, n := range sorted {
		parts[i] = strconv.Itoa(n)
	}
	sum := md5.Sum([]byte(game + ":" + strings.Join(parts, ",")))
	return hex.EncodeToString(sum[:])
}

// SortedCopy returns an ascending copy of nums.
func SortedCopy(nums []int) []int {
	out := append([]int(nil), nums...)
	sort.Ints(out)
	return out
}

// ValidateNumbers checks that nums is a well-formed combination for g:
// exactly NumbersToPick distinct integers in [1, MaxNumber].
func ValidateNumbers(g Game, nums []int) error {
	if len(nums) != g.NumbersToPick {
		return fmt.Errorf("%w: %s requires %d numbers, got %d", ErrInvalidBet, g.ID, g.NumbersToPick, len(nums))
	}
	if err := checkNumbers(nums, g.MaxNumber); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBet, err)
	}
	return nil
}

// Intersect returns the members of bet that also appear in drawn, ascending.
func Intersect(bet, drawn []int) []int {
	in := make(map[int]bool, len(drawn))
	for _, n := range drawn {
		in[n] = true
	}
	matches := []int{}
	for _, n := range SortedCopy(bet) {
		if in[n] {
			matches = append(matches, n)
		}
	}
	return matches
}

// CheckSummary aggregates one check-all run. Counts only reflect bets that
// were checked successfully; Failed counts the ones that were skipped.
type CheckSummary struct {
	Checked    int     `json:"checked"`
	Failed     int     `json:"failed"`
	Winners    int     `json:"winners"`
	TotalPrize float64 `json:"total_prize"`
	Results    []Bet   `json:"results"`
}
