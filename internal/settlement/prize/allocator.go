// Package prize faz o rateio do prêmio entre as faixas de acerto.
// Valores monetários são inteiros em centavos; razões e percentuais são decimais
// e o arredondamento é sempre truncamento.
package prize

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/radieske/pool-settlement/internal/settlement/domain"
)

// Tier mapeia uma quantidade exata de acertos a uma fração do prêmio distribuível
type Tier struct {
	Name       string          `json:"name"`
	Threshold  int             `json:"threshold"`
	Percentage decimal.Decimal `json:"percentage"` // 0.50 = 50%
}

// TierTable é a tabela de faixas do jogo, ordenada por threshold decrescente
type TierTable []Tier

// NewTierTable valida e ordena as faixas
func NewTierTable(tiers ...Tier) (TierTable, error) {
	t := make(TierTable, len(tiers))
	copy(t, tiers)
	if err := t.Validate(); err != nil {
		return nil, err
	}
	sort.SliceStable(t, func(i, j int) bool { return t[i].Threshold > t[j].Threshold })
	return t, nil
}

// Validate: thresholds únicos e ≥ 1, percentuais em [0,1] somando no máximo 1
func (t TierTable) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("%w: no tiers", domain.ErrInvalidTierTable)
	}
	seen := make(map[int]struct{}, len(t))
	sum := decimal.Zero
	for _, tier := range t {
		if tier.Threshold < 1 {
			return fmt.Errorf("%w: tier %q threshold %d", domain.ErrInvalidTierTable, tier.Name, tier.Threshold)
		}
		if _, dup := seen[tier.Threshold]; dup {
			return fmt.Errorf("%w: duplicated threshold %d", domain.ErrInvalidTierTable, tier.Threshold)
		}
		seen[tier.Threshold] = struct{}{}
		if tier.Percentage.IsNegative() || tier.Percentage.GreaterThan(decimal.NewFromInt(1)) {
			return fmt.Errorf("%w: tier %q percentage %s", domain.ErrInvalidTierTable, tier.Name, tier.Percentage)
		}
		sum = sum.Add(tier.Percentage)
	}
	if sum.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: percentages sum to %s", domain.ErrInvalidTierTable, sum)
	}
	return nil
}

// Lowest é o menor threshold da tabela
func (t TierTable) Lowest() int {
	low := 0
	for i, tier := range t {
		if i == 0 || tier.Threshold < low {
			low = tier.Threshold
		}
	}
	return low
}

// Find devolve o índice da faixa com threshold exatamente igual a hits
func (t TierTable) Find(hits int) (int, bool) {
	for i, tier := range t {
		if tier.Threshold == hits {
			return i, true
		}
	}
	return -1, false
}

// ValidateRatio: payoutRatio precisa estar em [0,1]
func ValidateRatio(ratio decimal.Decimal) error {
	if ratio.IsNegative() || ratio.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: payout ratio %s", domain.ErrInvalidTierTable, ratio)
	}
	return nil
}

// TierAllocation é o rateio calculado de uma faixa
type TierAllocation struct {
	Tier       Tier
	PoolCents  int64
	Winners    int
	PrizeCents int64 // por ganhador
	PaidCents  int64
	Residual   int64 // centavos da divisão que não são pagos
	Forfeited  bool  // faixa sem ganhadores: a cota não é redistribuída
}

// Allocation é o resultado do rateio de um concurso
type Allocation struct {
	TotalStakeCents        int64
	PayoutRatio            decimal.Decimal
	DistributablePoolCents int64
	Tiers                  []TierAllocation
	TotalDistributedCents  int64
	ForfeitedCents         int64
	RoundingResidualCents  int64
}

// DistributablePool = totalStake × ratio, truncado em centavos
func DistributablePool(totalStakeCents int64, ratio decimal.Decimal) int64 {
	return decimal.NewFromInt(totalStakeCents).Mul(ratio).Truncate(0).IntPart()
}

// Allocate reparte o prêmio distribuível entre as faixas.
// hits é a população classificada (um valor por bilhete válido); bilhetes abaixo da
// menor faixa contam só para o total apostado, não como ganhadores.
// Cada faixa é independente: cota sem ganhador é perdida, resto da divisão é descartado.
func Allocate(totalStakeCents int64, ratio decimal.Decimal, table TierTable, hits []int) (Allocation, error) {
	if totalStakeCents < 0 {
		return Allocation{}, fmt.Errorf("%w: total stake %d", domain.ErrInvalidStake, totalStakeCents)
	}
	if err := ValidateRatio(ratio); err != nil {
		return Allocation{}, err
	}
	if err := table.Validate(); err != nil {
		return Allocation{}, err
	}

	counts := make(map[int]int, len(table))
	for _, h := range hits {
		counts[h]++
	}
	return allocateCounts(totalStakeCents, ratio, table, counts), nil
}

func allocateCounts(totalStakeCents int64, ratio decimal.Decimal, table TierTable, counts map[int]int) Allocation {
	pool := DistributablePool(totalStakeCents, ratio)
	a := Allocation{
		TotalStakeCents:        totalStakeCents,
		PayoutRatio:            ratio,
		DistributablePoolCents: pool,
		Tiers:                  make([]TierAllocation, 0, len(table)),
	}

	ordered := make(TierTable, len(table))
	copy(ordered, table)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Threshold > ordered[j].Threshold })

	for _, tier := range ordered {
		ta := TierAllocation{
			Tier:      tier,
			PoolCents: decimal.NewFromInt(pool).Mul(tier.Percentage).Truncate(0).IntPart(),
			Winners:   counts[tier.Threshold],
		}
		if ta.Winners == 0 {
			ta.Forfeited = true
			a.ForfeitedCents += ta.PoolCents
		} else {
			ta.PrizeCents = ta.PoolCents / int64(ta.Winners)
			ta.PaidCents = ta.PrizeCents * int64(ta.Winners)
			ta.Residual = ta.PoolCents - ta.PaidCents
			a.TotalDistributedCents += ta.PaidCents
			a.RoundingResidualCents += ta.Residual
		}
		a.Tiers = append(a.Tiers, ta)
	}
	return a
}

// PrizeFor devolve o prêmio por ganhador da faixa de hits; ok=false se não há faixa
func (a Allocation) PrizeFor(hits int) (TierAllocation, bool) {
	for _, ta := range a.Tiers {
		if ta.Tier.Threshold == hits {
			return ta, true
		}
	}
	return TierAllocation{}, false
}

// Summaries converte para o formato do resultado da apuração
func (a Allocation) Summaries() []domain.TierSummary {
	out := make([]domain.TierSummary, len(a.Tiers))
	for i, ta := range a.Tiers {
		out[i] = domain.TierSummary{
			Name:       ta.Tier.Name,
			Threshold:  ta.Tier.Threshold,
			Percentage: ta.Tier.Percentage.String(),
			PoolCents:  ta.PoolCents,
			Winners:    ta.Winners,
			PrizeCents: ta.PrizeCents,
			PaidCents:  ta.PaidCents,
		}
	}
	return out
}
