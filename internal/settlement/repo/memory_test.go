package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/pool-settlement/internal/settlement/domain"
	"github.com/radieske/pool-settlement/internal/settlement/engine"
)

func seeded(t *testing.T) *Memory {
	t.Helper()
	m := NewMemory()
	require.NoError(t, m.CreateDraw(context.Background(), domain.Draw{
		ID: "d1", GameID: "mini", GameType: domain.GameFixedPool, ScheduledAt: at, Status: domain.DrawOpen, CreatedAt: at,
	}))
	return m
}

func insert(t *testing.T, m *Memory, id string) {
	t.Helper()
	err := m.WithinDraw(context.Background(), "d1", func(tx engine.DrawTx) error {
		return tx.InsertTicket(context.Background(), domain.TicketSnapshot{
			ID:         id,
			DrawID:     "d1",
			StakeCents: 10,
			Status:     domain.TicketPaid,
			Pick:       domain.Pick{Outcomes: []domain.Outcome{domain.OutcomeFirst}},
		})
	})
	require.NoError(t, err)
}

func TestMemory_FailedTransactionDiscardsWrites(t *testing.T) {
	ctx := context.Background()
	m := seeded(t)
	insert(t, m, "a")

	boom := errors.New("boom")
	err := m.WithinDraw(ctx, "d1", func(tx engine.DrawTx) error {
		require.NoError(t, tx.InsertTicket(ctx, domain.TicketSnapshot{ID: "b", DrawID: "d1", StakeCents: 5, Status: domain.TicketPaid}))
		require.NoError(t, tx.SetTicketStatus(ctx, "a", domain.TicketCancelled))
		d := tx.Draw()
		d.Status = domain.DrawAwaitingResults
		require.NoError(t, tx.UpdateDraw(ctx, d))
		return boom
	})
	require.ErrorIs(t, err, boom)

	d, err := m.GetDraw(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, domain.DrawOpen, d.Status)
	_, err = m.GetTicket(ctx, "b")
	require.ErrorIs(t, err, domain.ErrTicketNotFound)
	a, err := m.GetTicket(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPaid, a.Status)
}

func TestMemory_CommitSettlement(t *testing.T) {
	ctx := context.Background()
	m := seeded(t)
	insert(t, m, "a")
	insert(t, m, "b")

	// só a partir de RESULTS_COMPLETE
	err := m.WithinDraw(ctx, "d1", func(tx engine.DrawTx) error {
		return tx.CommitSettlement(ctx, settlement(), []byte(`{}`), at)
	})
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	err = m.WithinDraw(ctx, "d1", func(tx engine.DrawTx) error {
		d := tx.Draw()
		d.Status = domain.DrawResultsComplete
		if err := tx.UpdateDraw(ctx, d); err != nil {
			return err
		}
		return tx.CommitSettlement(ctx, settlement(), []byte(`{"drawId":"d1"}`), at)
	})
	require.NoError(t, err)

	d, err := m.GetDraw(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, domain.DrawSettled, d.Status)
	require.NotNil(t, d.SettledAt)

	a, err := m.GetTicket(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketWinner, a.Status)
	assert.Equal(t, int64(56), a.PrizeCents)
	require.NotNil(t, a.HitCount)
	assert.Equal(t, 3, *a.HitCount)

	payable, err := m.ListPayableTickets(ctx, "d1")
	require.NoError(t, err)
	assert.Empty(t, payable)

	raw, err := m.StoredSettlement(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, `{"drawId":"d1"}`, string(raw))
}

func TestMemory_Errors(t *testing.T) {
	ctx := context.Background()
	m := seeded(t)
	require.ErrorIs(t, m.CreateDraw(ctx, domain.Draw{ID: "d1"}), domain.ErrDuplicate)

	_, err := m.GetDraw(ctx, "nope")
	require.ErrorIs(t, err, domain.ErrDrawNotFound)
	_, err = m.StoredSettlement(ctx, "d1")
	require.ErrorIs(t, err, domain.ErrNotSettled)
	err = m.WithinDraw(ctx, "nope", func(engine.DrawTx) error { return nil })
	require.ErrorIs(t, err, domain.ErrDrawNotFound)

	insert(t, m, "a")
	err = m.WithinDraw(ctx, "d1", func(tx engine.DrawTx) error {
		return tx.InsertTicket(ctx, domain.TicketSnapshot{ID: "a", DrawID: "d1", StakeCents: 1, Status: domain.TicketPaid})
	})
	require.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestMemory_TicketIDUniqueAcrossDraws(t *testing.T) {
	ctx := context.Background()
	m := seeded(t)
	require.NoError(t, m.CreateDraw(ctx, domain.Draw{
		ID: "d2", GameID: "mini", GameType: domain.GameFixedPool, ScheduledAt: at, Status: domain.DrawOpen, CreatedAt: at,
	}))
	insert(t, m, "dup")

	err := m.WithinDraw(ctx, "d2", func(tx engine.DrawTx) error {
		return tx.InsertTicket(ctx, domain.TicketSnapshot{ID: "dup", DrawID: "d2", StakeCents: 10, Status: domain.TicketPaid})
	})
	require.ErrorIs(t, err, domain.ErrDuplicate)

	tk, err := m.GetTicket(ctx, "dup")
	require.NoError(t, err)
	assert.Equal(t, "d1", tk.DrawID)
	tickets, err := m.ListPayableTickets(ctx, "d2")
	require.NoError(t, err)
	assert.Empty(t, tickets)
}

func TestMemory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := seeded(t)
	insert(t, m, "a")

	a, err := m.GetTicket(ctx, "a")
	require.NoError(t, err)
	a.Pick.Outcomes[0] = domain.OutcomeSecond

	again, err := m.GetTicket(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeFirst, again.Pick.Outcomes[0])
}
