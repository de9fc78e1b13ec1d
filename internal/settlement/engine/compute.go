// Package engine orquestra a apuração de concursos: classifica bilhetes, faz o
// rateio e grava o resultado uma única vez.
package engine

import (
	"errors"
	"fmt"
	"sort"

	"github.com/radieske/pool-settlement/internal/settlement/domain"
	"github.com/radieske/pool-settlement/internal/settlement/game"
	"github.com/radieske/pool-settlement/internal/settlement/hits"
	"github.com/radieske/pool-settlement/internal/settlement/prize"
)

// Compute calcula a apuração completa de um concurso sem efeitos colaterais.
// Só bilhetes pagáveis entram; palpites inválidos contam para o total apostado,
// mas saem do rateio com status INVALID e a anomalia registrada.
func Compute(g game.Game, calc hits.Calculator, draw domain.Draw, tickets []domain.TicketSnapshot) (domain.SettlementResult, error) {
	if draw.Results == nil {
		return domain.SettlementResult{}, fmt.Errorf("%w: draw %s has no results", domain.ErrIncompleteResult, draw.ID)
	}
	rs := *draw.Results
	if rs.DrawID() != draw.ID {
		return domain.SettlementResult{}, fmt.Errorf("%w: results belong to draw %s, not %s",
			domain.ErrInvalidResult, rs.DrawID(), draw.ID)
	}
	if calc.GameType() != draw.GameType {
		return domain.SettlementResult{}, fmt.Errorf("%w: calculator %s for %s draw",
			domain.ErrUnknownGame, calc.GameType(), draw.GameType)
	}
	if err := calc.CheckComplete(rs); err != nil {
		return domain.SettlementResult{}, err
	}

	payable := make([]domain.TicketSnapshot, 0, len(tickets))
	for _, t := range tickets {
		if t.Status.Payable() && t.DrawID == draw.ID {
			payable = append(payable, t)
		}
	}
	sort.Slice(payable, func(i, j int) bool { return payable[i].ID < payable[j].ID })

	var totalStake int64
	hitCounts := make([]int, 0, len(payable))
	classified := make([]*int, len(payable))
	anomalies := make([]string, len(payable))
	for i, t := range payable {
		totalStake += t.StakeCents
		res, err := calc.Classify(t.Pick, rs)
		if err != nil {
			if !errors.Is(err, domain.ErrInvalidPick) {
				return domain.SettlementResult{}, fmt.Errorf("ticket %s: %w", t.ID, err)
			}
			anomalies[i] = err.Error()
			continue
		}
		h := res.Hits
		classified[i] = &h
		hitCounts = append(hitCounts, h)
	}

	alloc, err := prize.Allocate(totalStake, g.PayoutRatio, g.Tiers, hitCounts)
	if err != nil {
		return domain.SettlementResult{}, err
	}

	out := domain.SettlementResult{
		DrawID:                 draw.ID,
		GameID:                 draw.GameID,
		GameType:               draw.GameType,
		PayoutRatio:            g.PayoutRatio.String(),
		TotalStakeCents:        alloc.TotalStakeCents,
		DistributablePoolCents: alloc.DistributablePoolCents,
		TotalDistributedCents:  alloc.TotalDistributedCents,
		ForfeitedCents:         alloc.ForfeitedCents,
		RoundingResidualCents:  alloc.RoundingResidualCents,
		Tiers:                  alloc.Summaries(),
		Tickets:                make([]domain.TicketOutcome, len(payable)),
		ResultsSubmittedAt:     rs.SubmittedAt(),
	}
	for i, t := range payable {
		to := domain.TicketOutcome{TicketID: t.ID, FinalStatus: domain.TicketNoPrize}
		if classified[i] == nil {
			to.FinalStatus = domain.TicketInvalid
			to.Anomaly = anomalies[i]
			out.InvalidTickets++
			out.Tickets[i] = to
			continue
		}
		to.HitCount = classified[i]
		if ta, ok := alloc.PrizeFor(*classified[i]); ok {
			to.Tier = ta.Tier.Name
			to.PrizeCents = ta.PrizeCents
			if ta.PrizeCents > 0 {
				to.FinalStatus = domain.TicketWinner
			}
		}
		out.Tickets[i] = to
	}
	return out, nil
}
