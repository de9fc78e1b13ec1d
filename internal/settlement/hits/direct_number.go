package hits

import (
	"fmt"
	"time"

	"github.com/radieske/pool-settlement/internal/settlement/domain"
)

// DirectNumber: acerto por igualdade exata de string (ex.: milhar seca)
type DirectNumber struct {
	Digits int
}

func (d DirectNumber) GameType() domain.GameType { return domain.GameDirectNumber }

func (d DirectNumber) MaxHits() int { return 1 }

func (d DirectNumber) CheckComplete(rs domain.ResultSet) error {
	if rs.GameType() != domain.GameDirectNumber {
		return fmt.Errorf("%w: expected %s result, got %s", domain.ErrInvalidResult, domain.GameDirectNumber, rs.GameType())
	}
	if rs.DrawnValue() == "" {
		return fmt.Errorf("%w: drawn number missing", domain.ErrIncompleteResult)
	}
	if len(rs.DrawnValue()) != d.Digits {
		return fmt.Errorf("%w: drawn number %q must have %d digits", domain.ErrInvalidResult, rs.DrawnValue(), d.Digits)
	}
	return nil
}

func (d DirectNumber) ValidatePick(p domain.Pick) error {
	if len(p.Number) != d.Digits {
		return fmt.Errorf("%w: number %q must have %d digits", domain.ErrInvalidPick, p.Number, d.Digits)
	}
	for _, r := range p.Number {
		if r < '0' || r > '9' {
			return fmt.Errorf("%w: number %q is not numeric", domain.ErrInvalidPick, p.Number)
		}
	}
	if len(p.Outcomes) > 0 || p.Hour != nil || p.Minute != nil {
		return fmt.Errorf("%w: unexpected fields for %s", domain.ErrInvalidPick, domain.GameDirectNumber)
	}
	return nil
}

func (d DirectNumber) Classify(p domain.Pick, rs domain.ResultSet) (Result, error) {
	if err := d.CheckComplete(rs); err != nil {
		return Result{}, err
	}
	if err := d.ValidatePick(p); err != nil {
		return Result{}, err
	}
	if p.Number == rs.DrawnValue() {
		return Result{Hits: 1}, nil
	}
	return Result{}, nil
}

// Candidates enumera todos os números com Digits dígitos
func (d DirectNumber) Candidates(drawID string, _ []domain.TicketSnapshot, _ int) ([]domain.ResultSet, error) {
	total := 1
	for i := 0; i < d.Digits; i++ {
		total *= 10
	}
	out := make([]domain.ResultSet, 0, total)
	for n := 0; n < total; n++ {
		rs, err := domain.NewDrawnValue(drawID, domain.GameDirectNumber, fmt.Sprintf("%0*d", d.Digits, n), time.Time{})
		if err != nil {
			return nil, err
		}
		out = append(out, rs)
	}
	return out, nil
}
