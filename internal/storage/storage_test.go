package storage

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rewired-gh/lottosmart/internal/models"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test storage: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testDraw(game string, number int, nums ...int) *models.Draw {
	return &models.Draw{
		Game:      game,
		Number:    number,
		Date:      "01/02/2025",
		Numbers:   nums,
		FetchedAt: time.Now(),
	}
}

func testBet(id, game string, nums ...int) *models.Bet {
	return &models.Bet{
		ID:          id,
		Game:        game,
		Numbers:     nums,
		Strategy:    "manual",
		Explanation: "Aposta manual",
		Hash:        models.ContentHash(game, nums),
		CreatedAt:   time.Now(),
	}
}

func TestStorage_UpsertAndGetDraw(t *testing.T) {
	s := newTestStorage(t)
	d := testDraw("dupla_sena", 2700, 1, 2, 3, 4, 5, 6)
	d.SecondNumbers = []int{7, 8, 9, 10, 11, 12}
	d.Prizes = []models.PrizeRow{{Tier: 1, Description: "Sena", Winners: 0, Amount: 0}}
	d.Accumulated = true
	d.NextDrawNumber = 2701

	if err := s.UpsertDraw(d); err != nil {
		t.Fatalf("UpsertDraw: %v", err)
	}
	got, err := s.GetDraw("dupla_sena", 2700)
	if err != nil {
		t.Fatalf("GetDraw: %v", err)
	}
	if got == nil {
		t.Fatal("expected draw, got nil")
	}
	if len(got.Numbers) != 6 || got.Numbers[5] != 6 {
		t.Errorf("numbers = %v", got.Numbers)
	}
	if len(got.SecondNumbers) != 6 || got.SecondNumbers[0] != 7 {
		t.Errorf("second numbers = %v", got.SecondNumbers)
	}
	if !got.Accumulated || got.NextDrawNumber != 2701 {
		t.Errorf("pass-through fields lost: %+v", got)
	}
	if len(got.Prizes) != 1 || got.Prizes[0].Description != "Sena" {
		t.Errorf("prizes = %+v", got.Prizes)
	}
}

func TestStorage_GetDraw_Absent(t *testing.T) {
	s := newTestStorage(t)
	got, err := s.GetDraw("quina", 1)
	if err != nil {
		t.Fatalf("GetDraw: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for absent draw, got %+v", got)
	}
}

func TestStorage_UpsertDraw_Idempotent(t *testing.T) {
	s := newTestStorage(t)
	d := testDraw("quina", 6000, 5, 15, 25, 35, 45)
	if err := s.UpsertDraw(d); err != nil {
		t.Fatalf("UpsertDraw: %v", err)
	}
	first, _ := s.GetDraw("quina", 6000)

	d.FetchedAt = d.FetchedAt.Add(time.Minute)
	if err := s.UpsertDraw(d); err != nil {
		t.Fatalf("second UpsertDraw: %v", err)
	}
	second, _ := s.GetDraw("quina", 6000)

	draws, err := s.RecentDraws("quina", 10)
	if err != nil {
		t.Fatalf("RecentDraws: %v", err)
	}
	if len(draws) != 1 {
		t.Fatalf("got %d draws after double upsert, want 1", len(draws))
	}
	first.FetchedAt, second.FetchedAt = time.Time{}, time.Time{}
	if fmt.Sprintf("%+v", first) != fmt.Sprintf("%+v", second) {
		t.Errorf("draw changed beyond fetched_at:\n%+v\n%+v", first, second)
	}
}

func TestStorage_UpsertDraw_InvalidKey(t *testing.T) {
	s := newTestStorage(t)
	if err := s.UpsertDraw(testDraw("quina", 0, 1, 2, 3, 4, 5)); err == nil {
		t.Error("expected error for non-positive draw number")
	}
}

func TestStorage_RecentDraws_OrderAndLimit(t *testing.T) {
	s := newTestStorage(t)
	for _, n := range []int{3, 1, 5, 2, 4} {
		if err := s.UpsertDraw(testDraw("megasena", n, 1, 2, 3, 4, 5, 6)); err != nil {
			t.Fatalf("UpsertDraw: %v", err)
		}
	}
	if err := s.UpsertDraw(testDraw("quina", 99, 1, 2, 3, 4, 5)); err != nil {
		t.Fatalf("UpsertDraw: %v", err)
	}

	draws, err := s.RecentDraws("megasena", 3)
	if err != nil {
		t.Fatalf("RecentDraws: %v", err)
	}
	want := []int{5, 4, 3}
	if len(draws) != len(want) {
		t.Fatalf("got %d draws, want %d", len(draws), len(want))
	}
	for i, d := range draws {
		if d.Number != want[i] {
			t.Errorf("draws[%d] = %d, want %d", i, d.Number, want[i])
		}
	}
}

func TestStorage_InsertBet_DuplicateHash(t *testing.T) {
	s := newTestStorage(t)
	if err := s.InsertBet(testBet("a", "quina", 5, 15, 25, 35, 45)); err != nil {
		t.Fatalf("InsertBet: %v", err)
	}
	err := s.InsertBet(testBet("b", "quina", 45, 35, 25, 15, 5))
	if !errors.Is(err, models.ErrDuplicateBet) {
		t.Fatalf("expected ErrDuplicateBet, got %v", err)
	}
	bets, _ := s.FindBets(models.BetFilter{})
	if len(bets) != 1 {
		t.Errorf("got %d bets, want 1", len(bets))
	}
}

func TestStorage_GetBet_NotFound(t *testing.T) {
	s := newTestStorage(t)
	if _, err := s.GetBet("missing"); !errors.Is(err, models.ErrBetNotFound) {
		t.Errorf("expected ErrBetNotFound, got %v", err)
	}
}

func TestStorage_UpdateBetResult(t *testing.T) {
	s := newTestStorage(t)
	if err := s.InsertBet(testBet("a", "quina", 5, 15, 25, 35, 45)); err != nil {
		t.Fatalf("InsertBet: %v", err)
	}
	tier := "Duque (2 acertos)"
	r := &models.MatchResult{
		DrawNumber: 6000, Matches: []int{5, 15}, MatchCount: 2,
		PrizeTier: &tier, IsWinner: true, CheckedAt: time.Now(),
	}
	if err := s.UpdateBetResult("a", r); err != nil {
		t.Fatalf("UpdateBetResult: %v", err)
	}
	got, err := s.GetBet("a")
	if err != nil {
		t.Fatalf("GetBet: %v", err)
	}
	if !got.Checked {
		t.Error("bet not marked checked")
	}
	if got.Result == nil || got.Result.MatchCount != 2 || *got.Result.PrizeTier != tier {
		t.Errorf("result = %+v", got.Result)
	}

	if err := s.UpdateBetResult("missing", r); !errors.Is(err, models.ErrBetNotFound) {
		t.Errorf("expected ErrBetNotFound, got %v", err)
	}
}

func TestStorage_FindBets_Filters(t *testing.T) {
	s := newTestStorage(t)
	now := time.Now()
	for i := 0; i < 4; i++ {
		b := testBet(fmt.Sprintf("q-%d", i), "quina", i+1, 20, 30, 40, 50)
		b.CreatedAt = now.Add(time.Duration(i) * time.Second)
		if err := s.InsertBet(b); err != nil {
			t.Fatalf("InsertBet: %v", err)
		}
	}
	if err := s.InsertBet(testBet("d-0", "dupla_sena", 1, 2, 3, 4, 5, 6)); err != nil {
		t.Fatalf("InsertBet: %v", err)
	}
	if err := s.UpdateBetResult("q-0", &models.MatchResult{}); err != nil {
		t.Fatalf("UpdateBetResult: %v", err)
	}

	tests := []struct {
		name   string
		filter models.BetFilter
		want   int
	}{
		{"all", models.BetFilter{}, 5},
		{"by game", models.BetFilter{Game: "quina"}, 4},
		{"unchecked", models.BetFilter{UncheckedOnly: true}, 4},
		{"unchecked by game", models.BetFilter{Game: "quina", UncheckedOnly: true}, 3},
		{"limit", models.BetFilter{Game: "quina", Limit: 2}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bets, err := s.FindBets(tt.filter)
			if err != nil {
				t.Fatalf("FindBets: %v", err)
			}
			if len(bets) != tt.want {
				t.Errorf("got %d bets, want %d", len(bets), tt.want)
			}
		})
	}

	bets, _ := s.FindBets(models.BetFilter{Game: "quina"})
	if bets[0].ID != "q-3" {
		t.Errorf("expected newest first, got %s", bets[0].ID)
	}
}

func TestStorage_DeleteBets(t *testing.T) {
	s := newTestStorage(t)
	_ = s.InsertBet(testBet("q", "quina", 1, 2, 3, 4, 5))
	_ = s.InsertBet(testBet("d", "dupla_sena", 1, 2, 3, 4, 5, 6))
	_ = s.InsertBet(testBet("m", "megasena", 1, 2, 3, 4, 5, 6))

	if err := s.DeleteBet("q"); err != nil {
		t.Fatalf("DeleteBet: %v", err)
	}
	if err := s.DeleteBet("q"); !errors.Is(err, models.ErrBetNotFound) {
		t.Errorf("expected ErrBetNotFound on second delete, got %v", err)
	}

	n, err := s.DeleteBets(models.BetFilter{Game: "quina"})
	if err != nil || n != 0 {
		t.Errorf("DeleteBets(quina) = %d, %v; want 0, nil", n, err)
	}
	n, err = s.DeleteBets(models.BetFilter{Game: "dupla_sena"})
	if err != nil || n != 1 {
		t.Errorf("DeleteBets(dupla_sena) = %d, %v; want 1, nil", n, err)
	}
	n, err = s.DeleteBets(models.BetFilter{})
	if err != nil || n != 1 {
		t.Errorf("DeleteBets(all) = %d, %v; want 1, nil", n, err)
	}
}
