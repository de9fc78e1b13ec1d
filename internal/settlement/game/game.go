// Package game descreve a configuração dos jogos: tipo, tabela de faixas,
// percentual de retorno e limite de exposição.
package game

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/radieske/pool-settlement/internal/settlement/domain"
	"github.com/radieske/pool-settlement/internal/settlement/hits"
	"github.com/radieske/pool-settlement/internal/settlement/prize"
)

// Valores padrão quando o catálogo não informa
const (
	DefaultMatchCount   = 14
	DefaultNumberDigits = 4
)

// DefaultWarnRatio: exposição ≥ 90% do limite gera alerta
var DefaultWarnRatio = decimal.RequireFromString("0.90")

// Game é a configuração de um jogo; não muda entre concursos
type Game struct {
	ID                string
	Name              string
	Type              domain.GameType
	PayoutRatio       decimal.Decimal
	Tiers             prize.TierTable
	MatchCount        int  // FIXED_POOL
	NumberDigits      int  // DIRECT_NUMBER
	HourOnlyTier      bool // TIME_WINDOW: habilita a faixa "só a hora"
	MaxLiabilityCents int64
	WarnRatio         decimal.Decimal
}

// Validate confere a consistência entre tipo de jogo e tabela de faixas
func (g Game) Validate() error {
	if g.ID == "" {
		return fmt.Errorf("%w: game id required", domain.ErrUnknownGame)
	}
	if !g.Type.Valid() {
		return fmt.Errorf("%w: game %s has type %q", domain.ErrUnknownGame, g.ID, g.Type)
	}
	if err := prize.ValidateRatio(g.PayoutRatio); err != nil {
		return fmt.Errorf("game %s: %w", g.ID, err)
	}
	if err := g.Tiers.Validate(); err != nil {
		return fmt.Errorf("game %s: %w", g.ID, err)
	}
	calc, err := g.Calculator()
	if err != nil {
		return err
	}
	for _, t := range g.Tiers {
		if t.Threshold > calc.MaxHits() {
			return fmt.Errorf("%w: game %s tier %q threshold %d above max hits %d",
				domain.ErrInvalidTierTable, g.ID, t.Name, t.Threshold, calc.MaxHits())
		}
	}
	if g.Type == domain.GameTimeWindow && !g.HourOnlyTier {
		if _, ok := g.Tiers.Find(hits.TimeWindowHourOnly); ok {
			return fmt.Errorf("%w: game %s has an hour-only tier but hour_only_tier is disabled",
				domain.ErrInvalidTierTable, g.ID)
		}
	}
	return nil
}

// Calculator seleciona a regra de acerto do jogo
func (g Game) Calculator() (hits.Calculator, error) {
	switch g.Type {
	case domain.GameFixedPool:
		n := g.MatchCount
		if n <= 0 {
			n = DefaultMatchCount
		}
		return hits.FixedPool{Matches: n}, nil
	case domain.GameTimeWindow:
		return hits.TimeWindow{HourOnly: g.HourOnlyTier}, nil
	case domain.GameDirectNumber:
		d := g.NumberDigits
		if d <= 0 {
			d = DefaultNumberDigits
		}
		return hits.DirectNumber{Digits: d}, nil
	}
	return nil, fmt.Errorf("%w: type %q", domain.ErrUnknownGame, g.Type)
}
