package hits

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/pool-settlement/internal/settlement/domain"
)

var submitted = time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)

func outcomes(s string) []domain.Outcome {
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

func matchResults(t *testing.T, s string) domain.ResultSet {
	t.Helper()
	vec := outcomes(s)
	ms := make([]domain.MatchResult, len(vec))
	for i := range vec {
		o := vec[i]
		ms[i] = domain.MatchResult{Ordinal: i + 1, Home: "Home", Away: "Away", Outcome: &o}
	}
	rs, err := domain.NewMatchResults("draw-1", submitted, ms)
	require.NoError(t, err)
	return rs
}

func TestFixedPool_Classify(t *testing.T) {
	calc := FixedPool{Matches: 14}
	rs := matchResults(t, "1X21X21X21X21X")

	tests := []struct {
		name string
		pick string
		want int
	}{
		{"all hits", "1X21X21X21X21X", 14},
		{"no hits", "X21X21X21X21X2", 0},
		{"thirteen", "1X21X21X21X212", 13},
		{"first half", "1X21X211X21X21", 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := calc.Classify(domain.Pick{Outcomes: outcomes(tt.pick)}, rs)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Hits)
			assert.GreaterOrEqual(t, got.Hits, 0)
			assert.LessOrEqual(t, got.Hits, calc.MaxHits())
		})
	}
}

func TestFixedPool_ComparesByOrdinalNotLabel(t *testing.T) {
	calc := FixedPool{Matches: 3}
	first, draw, second := domain.OutcomeFirst, domain.OutcomeDraw, domain.OutcomeSecond

	original, err := domain.NewMatchResults("d", submitted, []domain.MatchResult{
		{Ordinal: 1, Home: "Flamengo", Away: "Palmeiras", Outcome: &first},
		{Ordinal: 2, Home: "Grêmio", Away: "Internacional", Outcome: &draw},
		{Ordinal: 3, Home: "Santos", Away: "Corinthians", Outcome: &second},
	})
	require.NoError(t, err)
	// participantes invertidos e entrada fora de ordem
	swapped, err := domain.NewMatchResults("d", submitted, []domain.MatchResult{
		{Ordinal: 3, Home: "Corinthians", Away: "Santos", Outcome: &second},
		{Ordinal: 1, Home: "Palmeiras", Away: "Flamengo", Outcome: &first},
		{Ordinal: 2, Home: "Internacional", Away: "Grêmio", Outcome: &draw},
	})
	require.NoError(t, err)

	pick := domain.Pick{Outcomes: outcomes("1X1")}
	a, err := calc.Classify(pick, original)
	require.NoError(t, err)
	b, err := calc.Classify(pick, swapped)
	require.NoError(t, err)
	assert.Equal(t, 2, a.Hits)
	assert.Equal(t, a, b)
}

func TestFixedPool_IncompleteResult(t *testing.T) {
	calc := FixedPool{Matches: 3}
	first := domain.OutcomeFirst
	rs, err := domain.NewMatchResults("d", submitted, []domain.MatchResult{
		{Ordinal: 1, Outcome: &first},
		{Ordinal: 2},
		{Ordinal: 3, Outcome: &first},
	})
	require.NoError(t, err)

	err = calc.CheckComplete(rs)
	require.ErrorIs(t, err, domain.ErrIncompleteResult)
	assert.Contains(t, err.Error(), "[2]")

	_, err = calc.Classify(domain.Pick{Outcomes: outcomes("111")}, rs)
	require.ErrorIs(t, err, domain.ErrIncompleteResult)
}

func TestFixedPool_InvalidPick(t *testing.T) {
	calc := FixedPool{Matches: 3}
	rs := matchResults(t, "1X2")

	_, err := calc.Classify(domain.Pick{Outcomes: outcomes("1X")}, rs)
	require.ErrorIs(t, err, domain.ErrInvalidPick)

	_, err = calc.Classify(domain.Pick{Outcomes: []domain.Outcome{"1", "X", "2"}}, rs)
	require.ErrorIs(t, err, domain.ErrInvalidPick)
}

func TestFixedPool_Candidates(t *testing.T) {
	small := FixedPool{Matches: 3}
	cands, err := small.Candidates("d", nil, 3)
	require.NoError(t, err)
	assert.Len(t, cands, 27)
	assert.Equal(t, "111", Label(cands[0]))
	assert.Equal(t, "222", Label(cands[26]))

	big := FixedPool{Matches: 14}
	open := []domain.TicketSnapshot{
		{ID: "a", Pick: domain.Pick{Outcomes: outcomes("1X21X21X21X21X")}},
		{ID: "b", Pick: domain.Pick{Outcomes: outcomes("1X21X21X21X21X")}},
		{ID: "c", Pick: domain.Pick{Outcomes: outcomes("22222222222222")}},
		{ID: "bad", Pick: domain.Pick{Outcomes: outcomes("1")}},
	}
	// só a faixa máxima: a vizinhança é o próprio palpite
	cands, err = big.Candidates("d", open, 14)
	require.NoError(t, err)
	require.Len(t, cands, 2)
	assert.Equal(t, "1X21X21X21X21X", Label(cands[0]))
	require.NoError(t, big.CheckComplete(cands[1]))

	// faixas até 12 acertos: 1 + 14×2 + C(14,2)×4 vetores por palpite
	cands, err = big.Candidates("d", open[:1], 12)
	require.NoError(t, err)
	assert.Len(t, cands, 393)
	assert.Len(t, distinctLabels(cands), 393)
}

func TestFixedPool_CandidatesDedupOverlappingNeighbourhoods(t *testing.T) {
	big := FixedPool{Matches: 14}
	open := []domain.TicketSnapshot{
		{ID: "a", Pick: domain.Pick{Outcomes: outcomes("11111111111111")}},
		{ID: "b", Pick: domain.Pick{Outcomes: outcomes("X1111111111111")}},
	}
	cands, err := big.Candidates("d", open, 13)
	require.NoError(t, err)
	// 29 + 29 menos os 3 vetores comuns (os dois palpites e "2111...")
	assert.Len(t, cands, 55)
	labels := distinctLabels(cands)
	assert.Len(t, labels, 55)
	assert.Contains(t, labels, "21111111111111")
	assert.Contains(t, labels, "X1111111111112")
	assert.NotContains(t, labels, "X1111111111122")
}

func distinctLabels(cands []domain.ResultSet) map[string]struct{} {
	out := make(map[string]struct{}, len(cands))
	for _, rs := range cands {
		out[Label(rs)] = struct{}{}
	}
	return out
}

func TestTimeWindow_Classify(t *testing.T) {
	purchase := time.Date(2026, 3, 14, 10, 42, 13, 0, time.UTC)
	pick := domain.TimeWindowPick(19, purchase)

	tests := []struct {
		name     string
		hourOnly bool
		value    string
		want     Result
	}{
		{"top tier", false, "1942", Result{Hits: 2, HourMatch: true, MinuteMatch: true}},
		{"mod arithmetic, no match", false, "4279", Result{}},
		{"hour only disabled", false, "1917", Result{HourMatch: true}},
		{"hour only enabled", true, "1917", Result{Hits: 1, HourMatch: true}},
		{"minute only never pays", true, "2042", Result{MinuteMatch: true}},
		{"hour wraps", false, "4342", Result{Hits: 2, HourMatch: true, MinuteMatch: true}},
		{"five digits", false, "19742", Result{Hits: 2, HourMatch: true, MinuteMatch: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs, err := domain.NewDrawnValue("d", domain.GameTimeWindow, tt.value, submitted)
			require.NoError(t, err)
			got, err := TimeWindow{HourOnly: tt.hourOnly}.Classify(pick, rs)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDeriveHourMinute(t *testing.T) {
	h, m, err := DeriveHourMinute("4279")
	require.NoError(t, err)
	assert.Equal(t, 18, h)
	assert.Equal(t, 19, m)

	_, _, err = DeriveHourMinute("427")
	require.ErrorIs(t, err, domain.ErrIncompleteResult)
}

func TestTimeWindow_InvalidPickAndIncomplete(t *testing.T) {
	calc := TimeWindow{}
	empty, err := domain.NewDrawnValue("d", domain.GameTimeWindow, "", submitted)
	require.NoError(t, err)
	require.ErrorIs(t, calc.CheckComplete(empty), domain.ErrIncompleteResult)

	hour := 24
	minute := 10
	require.ErrorIs(t, calc.ValidatePick(domain.Pick{Hour: &hour, Minute: &minute}), domain.ErrInvalidPick)
	require.ErrorIs(t, calc.ValidatePick(domain.Pick{Minute: &minute}), domain.ErrInvalidPick)
}

func TestTimeWindow_Candidates(t *testing.T) {
	cands, err := TimeWindow{}.Candidates("d", nil, 2)
	require.NoError(t, err)
	require.Len(t, cands, 1440)
	assert.Equal(t, "0000", Label(cands[0]))
	assert.Equal(t, "2359", Label(cands[1439]))
}

func TestDirectNumber(t *testing.T) {
	calc := DirectNumber{Digits: 4}
	rs, err := domain.NewDrawnValue("d", domain.GameDirectNumber, "0427", submitted)
	require.NoError(t, err)

	got, err := calc.Classify(domain.Pick{Number: "0427"}, rs)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Hits)

	got, err = calc.Classify(domain.Pick{Number: "4270"}, rs)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Hits)

	_, err = calc.Classify(domain.Pick{Number: "427"}, rs)
	require.ErrorIs(t, err, domain.ErrInvalidPick)

	_, err = calc.Classify(domain.Pick{Number: "04a7"}, rs)
	require.ErrorIs(t, err, domain.ErrInvalidPick)

	empty, err := domain.NewDrawnValue("d", domain.GameDirectNumber, "", submitted)
	require.NoError(t, err)
	require.ErrorIs(t, calc.CheckComplete(empty), domain.ErrIncompleteResult)

	cands, err := DirectNumber{Digits: 2}.Candidates("d", nil, 1)
	require.NoError(t, err)
	require.Len(t, cands, 100)
	assert.Equal(t, "07", Label(cands[7]))
}
