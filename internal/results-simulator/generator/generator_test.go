package generator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/pool-settlement/internal/settlement-worker/consumer"
	"github.com/radieske/pool-settlement/internal/settlement/hits"
)

var at = time.Date(2026, 3, 14, 22, 0, 0, 0, time.UTC)

func TestGenerate_FixedPoolIsCompleteAndValid(t *testing.T) {
	ev, err := New(7).Generate("d1", Options{GameType: "FIXED_POOL", MatchCount: 14, Source: "test"}, at)
	require.NoError(t, err)
	require.Len(t, ev.Matches, 14)

	rs, err := consumer.ToResultSet(ev)
	require.NoError(t, err)
	require.NoError(t, hits.FixedPool{Matches: 14}.CheckComplete(rs))

	seen := map[string]bool{}
	for _, m := range ev.Matches {
		assert.False(t, seen[m.Home] || seen[m.Away], "team reused")
		seen[m.Home], seen[m.Away] = true, true
	}
}

func TestGenerate_Partial(t *testing.T) {
	ev, err := New(7).Generate("d1", Options{GameType: "FIXED_POOL", MatchCount: 3, Partial: 1}, at)
	require.NoError(t, err)
	assert.Empty(t, ev.Matches[2].Outcome)

	rs, err := consumer.ToResultSet(ev)
	require.NoError(t, err)
	require.Error(t, hits.FixedPool{Matches: 3}.CheckComplete(rs))
}

func TestGenerate_DrawnValues(t *testing.T) {
	g := New(1)
	ev, err := g.Generate("d1", Options{GameType: "TIME_WINDOW"}, at)
	require.NoError(t, err)
	rs, err := consumer.ToResultSet(ev)
	require.NoError(t, err)
	require.NoError(t, hits.TimeWindow{}.CheckComplete(rs))

	ev, err = g.Generate("d1", Options{GameType: "DIRECT_NUMBER", NumberDigits: 4}, at)
	require.NoError(t, err)
	assert.Len(t, ev.DrawnValue, 4)

	_, err = g.Generate("d1", Options{GameType: "BINGO"}, at)
	require.Error(t, err)
	_, err = g.Generate("d1", Options{GameType: "FIXED_POOL", MatchCount: 15}, at)
	require.Error(t, err)
}

func TestGenerate_SameSeedSameResults(t *testing.T) {
	a, err := New(42).Generate("d1", Options{GameType: "FIXED_POOL", MatchCount: 5}, at)
	require.NoError(t, err)
	b, err := New(42).Generate("d1", Options{GameType: "FIXED_POOL", MatchCount: 5}, at)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
