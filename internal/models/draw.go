package models

import (
	"errors"
	"fmt"
	"time"
)

// PrizeRow is one row of the prize table published with a draw.
// Tier 1 is the top prize; dual-draw games continue numbering for the second draw.
type PrizeRow struct {
	Tier        int     `json:"tier"`
	Description string  `json:"description"`
	Winners     int     `json:"winners"`
	Amount      float64 `json:"amount"`
}

// Draw is one official draw of a game in canonical form.
type Draw struct {
	Game               string     `json:"game"`
	Number             int        `json:"concurso"`
	Date               string     `json:"data"`
	Numbers            []int      `json:"dezenas"`
	SecondNumbers      []int      `json:"dezenas_segundo_sorteio,omitempty"`
	Accumulated        bool       `json:"acumulado"`
	AccumulatedAmount  float64    `json:"valor_acumulado"`
	NextDrawNumber     int        `json:"proximo_concurso,omitempty"`
	NextDrawDate       string     `json:"data_proximo_concurso,omitempty"`
	EstimatedNextPrize float64    `json:"valor_estimado_proximo"`
	Prizes             []PrizeRow `json:"premiacoes,omitempty"`
	FetchedAt          time.Time  `json:"fetched_at"`
}

// Validate checks draw field constraints against its game.
func (d *Draw) Validate(g Game) error {
	if d.Number <= 0 {
		return errors.New("draw number must be positive")
	}
	if d.Game != g.ID {
		return fmt.Errorf("draw game %q does not match %q", d.Game, g.ID)
	}
	if err := checkNumbers(d.Numbers, g.MaxNumber); err != nil {
		return fmt.Errorf("drawn numbers: %w", err)
	}
	if len(d.SecondNumbers) > 0 {
		if !g.DualDraw {
			return fmt.Errorf("game %s has no second draw", g.ID)
		}
		if err := checkNumbers(d.SecondNumbers, g.MaxNumber); err != nil {
			return fmt.Errorf("second draw numbers: %w", err)
		}
	}
	return nil
}

// PrizeFor returns the prize amount published for a tier index, if any.
func (d *Draw) PrizeFor(tier int) (float64, bool) {
	for _, p := range d.Prizes {
		if p.Tier == tier {
			return p.Amount, true
		}
	}
	return 0, false
}

// NextDraw is the upcoming-draw summary derived from the latest draw.
type NextDraw struct {
	Game               string  `json:"game"`
	NextDrawNumber     int     `json:"proximo_concurso"`
	NextDrawDate       string  `json:"data_proximo_concurso"`
	EstimatedNextPrize float64 `json:"valor_estimado"`
	Accumulated        bool    `json:"acumulado"`
	AccumulatedAmount  float64 `json:"valor_acumulado"`
}

// Next summarizes the upcoming draw announced with d.
func (d *Draw) Next() NextDraw {
	return NextDraw{
		Game:               d.Game,
		NextDrawNumber:     d.NextDrawNumber,
		NextDrawDate:       d.NextDrawDate,
		EstimatedNextPrize: d.EstimatedNextPrize,
		Accumulated:        d.Accumulated,
		AccumulatedAmount:  d.AccumulatedAmount,
	}
}

func checkNumbers(nums []int, maxNumber int) error {
	if len(nums) == 0 {
		return errors.New("must not be empty")
	}
	seen := make(map[int]bool, len(nums))
	for _, n := range nums {
		if n < 1 || n > maxNumber {
			return fmt.Errorf("number %d out of range [1, %d]", n, maxNumber)
		}
		if seen[n] {
			return fmt.Errorf("number %d repeated", n)
		}
		seen[n] = true
	}
	return nil
}
