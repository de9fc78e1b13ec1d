package hits

import (
	"fmt"
	"strconv"
	"time"

	"github.com/radieske/pool-settlement/internal/settlement/domain"
)

const (
	// TimeWindowTop: hora e minuto conferem
	TimeWindowTop = 2
	// TimeWindowHourOnly: só a hora confere (faixa parcial, se habilitada)
	TimeWindowHourOnly = 1
)

// TimeWindow deriva hora e minuto da milhar sorteada.
// HourOnly liga a faixa parcial "só a hora".
type TimeWindow struct {
	HourOnly bool
}

func (t TimeWindow) GameType() domain.GameType { return domain.GameTimeWindow }

func (t TimeWindow) MaxHits() int { return TimeWindowTop }

// DeriveHourMinute: hora = dois primeiros dígitos mod 24, minuto = dois últimos mod 60.
// Exige pelo menos quatro dígitos.
func DeriveHourMinute(value string) (hour, minute int, err error) {
	if len(value) < 4 {
		return 0, 0, fmt.Errorf("%w: drawn value %q needs at least 4 digits", domain.ErrIncompleteResult, value)
	}
	h, err := strconv.Atoi(value[:2])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: drawn value %q: %v", domain.ErrInvalidResult, value, err)
	}
	m, err := strconv.Atoi(value[len(value)-2:])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: drawn value %q: %v", domain.ErrInvalidResult, value, err)
	}
	return h % 24, m % 60, nil
}

func (t TimeWindow) CheckComplete(rs domain.ResultSet) error {
	if rs.GameType() != domain.GameTimeWindow {
		return fmt.Errorf("%w: expected %s result, got %s", domain.ErrInvalidResult, domain.GameTimeWindow, rs.GameType())
	}
	_, _, err := DeriveHourMinute(rs.DrawnValue())
	return err
}

func (t TimeWindow) ValidatePick(p domain.Pick) error {
	if p.Hour == nil || p.Minute == nil {
		return fmt.Errorf("%w: hour and purchase minute required", domain.ErrInvalidPick)
	}
	if *p.Hour < 0 || *p.Hour > 23 {
		return fmt.Errorf("%w: hour %d out of range", domain.ErrInvalidPick, *p.Hour)
	}
	if *p.Minute < 0 || *p.Minute > 59 {
		return fmt.Errorf("%w: minute %d out of range", domain.ErrInvalidPick, *p.Minute)
	}
	if len(p.Outcomes) > 0 || p.Number != "" {
		return fmt.Errorf("%w: unexpected fields for %s", domain.ErrInvalidPick, domain.GameTimeWindow)
	}
	return nil
}

func (t TimeWindow) Classify(p domain.Pick, rs domain.ResultSet) (Result, error) {
	if err := t.CheckComplete(rs); err != nil {
		return Result{}, err
	}
	if err := t.ValidatePick(p); err != nil {
		return Result{}, err
	}
	hour, minute, _ := DeriveHourMinute(rs.DrawnValue())
	res := Result{
		HourMatch:   *p.Hour == hour,
		MinuteMatch: *p.Minute == minute,
	}
	switch {
	case res.HourMatch && res.MinuteMatch:
		res.Hits = TimeWindowTop
	case res.HourMatch && t.HourOnly:
		res.Hits = TimeWindowHourOnly
	}
	return res, nil
}

// Candidates gera os 24×60 pares hora/minuto como milhar "HHMM"
func (t TimeWindow) Candidates(drawID string, _ []domain.TicketSnapshot, _ int) ([]domain.ResultSet, error) {
	out := make([]domain.ResultSet, 0, 24*60)
	for h := 0; h < 24; h++ {
		for m := 0; m < 60; m++ {
			rs, err := domain.NewDrawnValue(drawID, domain.GameTimeWindow, fmt.Sprintf("%02d%02d", h, m), time.Time{})
			if err != nil {
				return nil, err
			}
			out = append(out, rs)
		}
	}
	return out, nil
}
