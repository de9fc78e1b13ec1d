package repo

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/pool-settlement/internal/settlement/domain"
	"github.com/radieske/pool-settlement/internal/settlement/engine"
)

var (
	at       = time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)
	drawCols = []string{"id", "game_id", "game_type", "scheduled_at", "status", "results", "settled_at", "created_at"}
	tickCols = []string{"id", "draw_id", "stake_cents", "pick", "purchased_at", "status", "hit_count", "prize_cents"}
)

func newMock(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgres(db), mock
}

func resultsJSON(t *testing.T) string {
	t.Helper()
	first := domain.OutcomeFirst
	rs, err := domain.NewMatchResults("d1", at, []domain.MatchResult{{Ordinal: 1, Home: "A", Away: "B", Outcome: &first}})
	require.NoError(t, err)
	b, err := json.Marshal(rs)
	require.NoError(t, err)
	return string(b)
}

func TestMigrate_AppliesEveryStatement(t *testing.T) {
	p, mock := newMock(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS draws").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS tickets").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS idx_tickets_draw_status").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS draw_settlements").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, Migrate(context.Background(), p.db))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDraw_Duplicate(t *testing.T) {
	p, mock := newMock(t)
	mock.ExpectExec("INSERT INTO draws").
		WithArgs("d1", "mini", "FIXED_POOL", at, "OPEN", at).
		WillReturnError(&pq.Error{Code: "23505"})

	err := p.CreateDraw(context.Background(), domain.Draw{
		ID: "d1", GameID: "mini", GameType: domain.GameFixedPool, ScheduledAt: at, Status: domain.DrawOpen, CreatedAt: at,
	})
	require.ErrorIs(t, err, domain.ErrDuplicate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDraw(t *testing.T) {
	p, mock := newMock(t)
	mock.ExpectQuery(`FROM draws WHERE id=\$1`).WithArgs("d1").
		WillReturnRows(sqlmock.NewRows(drawCols).
			AddRow("d1", "mini", "FIXED_POOL", at, "RESULTS_COMPLETE", resultsJSON(t), nil, at))
	mock.ExpectQuery(`FROM draws WHERE id=\$1`).WithArgs("nope").
		WillReturnRows(sqlmock.NewRows(drawCols))

	d, err := p.GetDraw(context.Background(), "d1")
	require.NoError(t, err)
	assert.Equal(t, domain.DrawResultsComplete, d.Status)
	require.NotNil(t, d.Results)
	o, ok := d.Results.OutcomeAt(1)
	require.True(t, ok)
	assert.Equal(t, domain.OutcomeFirst, o)
	assert.Nil(t, d.SettledAt)

	_, err = p.GetDraw(context.Background(), "nope")
	require.ErrorIs(t, err, domain.ErrDrawNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListPayableTickets(t *testing.T) {
	p, mock := newMock(t)
	mock.ExpectQuery(`FROM tickets WHERE draw_id=\$1 AND status='PAID' ORDER BY id`).WithArgs("d1").
		WillReturnRows(sqlmock.NewRows(tickCols).
			AddRow("a", "d1", int64(100), `{"outcomes":["FIRST","DRAW"]}`, at, "PAID", nil, int64(0)).
			AddRow("b", "d1", int64(50), `{"number":"0427"}`, at, "PAID", nil, int64(0)))

	ts, err := p.ListPayableTickets(context.Background(), "d1")
	require.NoError(t, err)
	require.Len(t, ts, 2)
	assert.Equal(t, []domain.Outcome{domain.OutcomeFirst, domain.OutcomeDraw}, ts[0].Pick.Outcomes)
	assert.Equal(t, "0427", ts[1].Pick.Number)
	assert.Nil(t, ts[0].HitCount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoredSettlement(t *testing.T) {
	p, mock := newMock(t)
	mock.ExpectQuery("SELECT s.result FROM draws d").WithArgs("d1").
		WillReturnRows(sqlmock.NewRows([]string{"result"}).AddRow(nil))
	mock.ExpectQuery("SELECT s.result FROM draws d").WithArgs("d2").
		WillReturnRows(sqlmock.NewRows([]string{"result"}).AddRow(`{"drawId":"d2"}`))

	_, err := p.StoredSettlement(context.Background(), "d1")
	require.ErrorIs(t, err, domain.ErrNotSettled)

	raw, err := p.StoredSettlement(context.Background(), "d2")
	require.NoError(t, err)
	assert.Equal(t, `{"drawId":"d2"}`, string(raw))
	require.NoError(t, mock.ExpectationsWereMet())
}

func lockDraw(t *testing.T, mock sqlmock.Sqlmock, status string) {
	t.Helper()
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM draws WHERE id=\$1 FOR UPDATE`).WithArgs("d1").
		WillReturnRows(sqlmock.NewRows(drawCols).
			AddRow("d1", "mini", "FIXED_POOL", at, status, resultsJSON(t), nil, at))
}

func settlement() domain.SettlementResult {
	three := 3
	return domain.SettlementResult{
		DrawID: "d1",
		Tickets: []domain.TicketOutcome{
			{TicketID: "a", HitCount: &three, PrizeCents: 56, FinalStatus: domain.TicketWinner, Tier: "3"},
			{TicketID: "b", FinalStatus: domain.TicketInvalid, Anomaly: "invalid pick"},
		},
	}
}

func TestWithinDraw_CommitSettlement(t *testing.T) {
	p, mock := newMock(t)
	lockDraw(t, mock, "RESULTS_COMPLETE")
	mock.ExpectExec("UPDATE tickets t SET").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), "d1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`UPDATE draws SET status='SETTLED'`).WithArgs(at, "d1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO draw_settlements").WithArgs("d1", `{"drawId":"d1"}`, at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := p.WithinDraw(context.Background(), "d1", func(tx engine.DrawTx) error {
		assert.Equal(t, domain.DrawResultsComplete, tx.Draw().Status)
		if err := tx.CommitSettlement(context.Background(), settlement(), []byte(`{"drawId":"d1"}`), at); err != nil {
			return err
		}
		assert.Equal(t, domain.DrawSettled, tx.Draw().Status)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinDraw_GuardedStatusUpdate(t *testing.T) {
	p, mock := newMock(t)
	lockDraw(t, mock, "RESULTS_COMPLETE")
	mock.ExpectExec("UPDATE tickets t SET").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`UPDATE draws SET status='SETTLED'`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := p.WithinDraw(context.Background(), "d1", func(tx engine.DrawTx) error {
		return tx.CommitSettlement(context.Background(), settlement(), []byte(`{}`), at)
	})
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinDraw_TicketCountMismatch(t *testing.T) {
	p, mock := newMock(t)
	lockDraw(t, mock, "RESULTS_COMPLETE")
	mock.ExpectExec("UPDATE tickets t SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	err := p.WithinDraw(context.Background(), "d1", func(tx engine.DrawTx) error {
		return tx.CommitSettlement(context.Background(), settlement(), []byte(`{}`), at)
	})
	require.ErrorIs(t, err, domain.ErrPersistenceFailure)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinDraw_CommitFailure(t *testing.T) {
	p, mock := newMock(t)
	lockDraw(t, mock, "OPEN")
	mock.ExpectExec("INSERT INTO tickets").
		WithArgs("t1", "d1", int64(10), `{"outcomes":["FIRST"]}`, at, "PAID").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit().WillReturnError(errors.New("connection reset"))

	err := p.WithinDraw(context.Background(), "d1", func(tx engine.DrawTx) error {
		return tx.InsertTicket(context.Background(), domain.TicketSnapshot{
			ID:          "t1",
			StakeCents:  10,
			Pick:        domain.Pick{Outcomes: []domain.Outcome{domain.OutcomeFirst}},
			PurchasedAt: at,
			Status:      domain.TicketPaid,
		})
	})
	require.ErrorIs(t, err, domain.ErrPersistenceFailure)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinDraw_CallbackErrorRollsBack(t *testing.T) {
	p, mock := newMock(t)
	lockDraw(t, mock, "OPEN")
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := p.WithinDraw(context.Background(), "d1", func(engine.DrawTx) error { return boom })
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinDraw_DrawNotFound(t *testing.T) {
	p, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WithArgs("nope").WillReturnRows(sqlmock.NewRows(drawCols))
	mock.ExpectRollback()

	err := p.WithinDraw(context.Background(), "nope", func(engine.DrawTx) error { return nil })
	require.ErrorIs(t, err, domain.ErrDrawNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
