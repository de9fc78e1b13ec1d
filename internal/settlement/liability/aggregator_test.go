package liability

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/pool-settlement/internal/settlement/domain"
	"github.com/radieske/pool-settlement/internal/settlement/hits"
	"github.com/radieske/pool-settlement/internal/settlement/prize"
)

func numberTicket(id, number string, stake int64) domain.TicketSnapshot {
	return domain.TicketSnapshot{ID: id, DrawID: "d1", StakeCents: stake, Pick: domain.Pick{Number: number}, Status: domain.TicketPaid}
}

func singleTier(t *testing.T) prize.TierTable {
	t.Helper()
	table, err := prize.NewTierTable(prize.Tier{Name: "seco", Threshold: 1, Percentage: decimal.NewFromInt(1)})
	require.NoError(t, err)
	return table
}

func TestAggregate_DirectNumber(t *testing.T) {
	open := []domain.TicketSnapshot{
		numberTicket("a", "07", 100),
		numberTicket("b", "07", 100),
		numberTicket("c", "07", 100),
		numberTicket("d", "12", 100),
		numberTicket("bad", "7", 100),
		{ID: "x", DrawID: "d1", StakeCents: 999, Pick: domain.Pick{Number: "33"}, Status: domain.TicketCancelled},
	}
	rep, err := Aggregate(context.Background(), hits.DirectNumber{Digits: 2}, singleTier(t),
		decimal.RequireFromString("0.5"), open, Options{
			DrawID:            "d1",
			MaxLiabilityCents: 250,
			WarnRatio:         decimal.RequireFromString("0.9"),
			Concurrency:       3,
		})
	require.NoError(t, err)

	assert.Equal(t, int64(500), rep.TotalStakeCents)
	assert.Equal(t, int64(250), rep.DistributablePoolCents)
	assert.Equal(t, 5, rep.OpenTickets)
	assert.Equal(t, 1, rep.InvalidTickets)
	assert.Equal(t, 100, rep.CandidatesEvaluated)
	require.Len(t, rep.Records, 100)

	assert.Equal(t, Record{Candidate: "12", PayoutCents: 250, Winners: 1, Flag: FlagBreach}, rep.Records[0])
	assert.Equal(t, Record{Candidate: "07", PayoutCents: 249, Winners: 3, Flag: FlagWarn}, rep.Records[1])
	assert.Equal(t, Record{Candidate: "00", PayoutCents: 0, Winners: 0, Flag: FlagOK}, rep.Records[2])
	assert.Equal(t, Record{Candidate: "01", PayoutCents: 0, Winners: 0, Flag: FlagOK}, rep.Records[3])
	assert.Equal(t, FlagBreach, rep.Flag)

	worst, ok := rep.Worst()
	require.True(t, ok)
	assert.Equal(t, "12", worst.Candidate)
}

func TestAggregate_TopAndNoLimit(t *testing.T) {
	open := []domain.TicketSnapshot{numberTicket("a", "42", 1000)}
	rep, err := Aggregate(context.Background(), hits.DirectNumber{Digits: 2}, singleTier(t),
		decimal.RequireFromString("0.7"), open, Options{DrawID: "d1", Top: 1})
	require.NoError(t, err)
	require.Len(t, rep.Records, 1)
	assert.Equal(t, Record{Candidate: "42", PayoutCents: 700, Winners: 1, Flag: FlagOK}, rep.Records[0])
	assert.Equal(t, 100, rep.CandidatesEvaluated)
}

func TestAggregate_FixedPoolEnumerates(t *testing.T) {
	table, err := prize.NewTierTable(
		prize.Tier{Name: "3", Threshold: 3, Percentage: decimal.RequireFromString("0.6")},
		prize.Tier{Name: "2", Threshold: 2, Percentage: decimal.RequireFromString("0.4")},
	)
	require.NoError(t, err)
	pick := func(o ...domain.Outcome) domain.Pick { return domain.Pick{Outcomes: o} }
	f, x, s := domain.OutcomeFirst, domain.OutcomeDraw, domain.OutcomeSecond
	open := []domain.TicketSnapshot{
		{ID: "a", StakeCents: 500, Pick: pick(f, f, f), Status: domain.TicketPaid},
		{ID: "b", StakeCents: 500, Pick: pick(f, x, s), Status: domain.TicketPaid},
	}
	rep, err := Aggregate(context.Background(), hits.FixedPool{Matches: 3}, table,
		decimal.NewFromInt(1), open, Options{DrawID: "d1"})
	require.NoError(t, err)
	assert.Equal(t, 27, rep.CandidatesEvaluated)

	byLabel := make(map[string]Record, len(rep.Records))
	for _, r := range rep.Records {
		byLabel[r.Candidate] = r
	}
	// "111": a acerta 3 (600), b acerta 1 → 600
	assert.Equal(t, int64(600), byLabel["111"].PayoutCents)
	// "11X": a acerta 2, b acerta 1 → faixa de 2 com um ganhador = 400
	assert.Equal(t, int64(400), byLabel["11X"].PayoutCents)
	// "1X1": a 2 acertos, b 2 acertos
	assert.Equal(t, 2, byLabel["1X1"].Winners)
	// "222": ninguém
	assert.Equal(t, int64(0), byLabel["222"].PayoutCents)
	// "1X2": b 3 acertos (600), a 1 acerto
	assert.Equal(t, int64(600), byLabel["1X2"].PayoutCents)

	for i := 1; i < len(rep.Records); i++ {
		prev, cur := rep.Records[i-1], rep.Records[i]
		require.True(t, prev.PayoutCents > cur.PayoutCents ||
			(prev.PayoutCents == cur.PayoutCents && prev.Candidate < cur.Candidate))
	}
}

func TestAggregate_FixedPoolLowerTiersOutweighTop(t *testing.T) {
	table, err := prize.NewTierTable(
		prize.Tier{Name: "14", Threshold: 14, Percentage: decimal.RequireFromString("0.01")},
		prize.Tier{Name: "13", Threshold: 13, Percentage: decimal.RequireFromString("0.40")},
		prize.Tier{Name: "12", Threshold: 12, Percentage: decimal.RequireFromString("0.40")},
	)
	require.NoError(t, err)
	open := []domain.TicketSnapshot{
		{ID: "a", StakeCents: 1000, Pick: domain.Pick{Outcomes: vector("11111111111111")}, Status: domain.TicketPaid},
		{ID: "b", StakeCents: 1000, Pick: domain.Pick{Outcomes: vector("22111111111111")}, Status: domain.TicketPaid},
	}
	rep, err := Aggregate(context.Background(), hits.FixedPool{Matches: 14}, table,
		decimal.NewFromInt(1), open, Options{DrawID: "d1", MaxLiabilityCents: 1000})
	require.NoError(t, err)

	// duas vizinhanças de raio 2 (393 vetores cada) que se sobrepõem
	assert.Equal(t, 729, rep.CandidatesEvaluated)
	worst, ok := rep.Worst()
	require.True(t, ok)
	// um bilhete com 13 e outro com 12: 800 + 800, acima dos 820 de "111..."
	assert.Equal(t, Record{Candidate: "1X111111111111", PayoutCents: 1600, Winners: 2, Flag: FlagBreach}, worst)
	assert.Equal(t, FlagBreach, rep.Flag)

	// mesma resposta da apuração para o pior candidato
	rs := fixedResult(t, "1X111111111111")
	counts := make([]int, 0, len(open))
	for _, tk := range open {
		res, err := hits.FixedPool{Matches: 14}.Classify(tk.Pick, rs)
		require.NoError(t, err)
		counts = append(counts, res.Hits)
	}
	a, err := prize.Allocate(rep.TotalStakeCents, decimal.NewFromInt(1), table, counts)
	require.NoError(t, err)
	assert.Equal(t, a.TotalDistributedCents, worst.PayoutCents)
}

func vector(s string) []domain.Outcome {
	out := make([]domain.Outcome, 0, len(s))
	for _, c := range s {
		switch c {
		case '1':
			out = append(out, domain.OutcomeFirst)
		case 'X':
			out = append(out, domain.OutcomeDraw)
		case '2':
			out = append(out, domain.OutcomeSecond)
		}
	}
	return out
}

func fixedResult(t *testing.T, s string) domain.ResultSet {
	t.Helper()
	vec := vector(s)
	ms := make([]domain.MatchResult, len(vec))
	for i := range vec {
		o := vec[i]
		ms[i] = domain.MatchResult{Ordinal: i + 1, Outcome: &o}
	}
	rs, err := domain.NewMatchResults("d1", time.Time{}, ms)
	require.NoError(t, err)
	return rs
}

func TestAggregate_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Aggregate(ctx, hits.DirectNumber{Digits: 2}, singleTier(t),
		decimal.RequireFromString("0.5"), []domain.TicketSnapshot{numberTicket("a", "01", 10)}, Options{DrawID: "d1"})
	require.ErrorIs(t, err, context.Canceled)
}
