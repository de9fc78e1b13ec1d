// Package repo implementa a persistência do motor de apuração (Postgres e memória).
package repo

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/radieske/pool-settlement/internal/settlement/domain"
	"github.com/radieske/pool-settlement/internal/settlement/engine"
)

//go:embed schema.sql
var schema string

// Migrate aplica o schema (idempotente)
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Postgres implementa engine.Store em banco Postgres
type Postgres struct{ db *sql.DB }

// NewPostgres retorna uma instância do repositório de concursos
func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

const selectDraw = `SELECT id, game_id, game_type, scheduled_at, status, results, settled_at, created_at FROM draws`

const selectTicket = `SELECT id, draw_id, stake_cents, pick, purchased_at, status, hit_count, prize_cents FROM tickets`

// código de unique_violation do Postgres
const uniqueViolation = "23505"

// CreateDraw insere um concurso novo
func (p *Postgres) CreateDraw(ctx context.Context, d domain.Draw) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO draws (id, game_id, game_type, scheduled_at, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		d.ID, d.GameID, string(d.GameType), d.ScheduledAt, string(d.Status), d.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: draw %s", domain.ErrDuplicate, d.ID)
	}
	return err
}

// GetDraw lê o concurso sem travar
func (p *Postgres) GetDraw(ctx context.Context, drawID string) (domain.Draw, error) {
	d, err := scanDraw(p.db.QueryRowContext(ctx, selectDraw+` WHERE id=$1`, drawID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Draw{}, fmt.Errorf("%w: %s", domain.ErrDrawNotFound, drawID)
	}
	return d, err
}

func (p *Postgres) GetTicket(ctx context.Context, ticketID string) (domain.TicketSnapshot, error) {
	t, err := scanTicket(p.db.QueryRowContext(ctx, selectTicket+` WHERE id=$1`, ticketID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.TicketSnapshot{}, fmt.Errorf("%w: %s", domain.ErrTicketNotFound, ticketID)
	}
	return t, err
}

// ListPayableTickets lista os bilhetes PAID do concurso, ordenados por id
func (p *Postgres) ListPayableTickets(ctx context.Context, drawID string) ([]domain.TicketSnapshot, error) {
	return queryPayable(ctx, p.db, drawID)
}

// StoredSettlement devolve os bytes exatos gravados na apuração
func (p *Postgres) StoredSettlement(ctx context.Context, drawID string) ([]byte, error) {
	var raw sql.NullString
	err := p.db.QueryRowContext(ctx, `
		SELECT s.result FROM draws d
		LEFT JOIN draw_settlements s ON s.draw_id = d.id
		WHERE d.id=$1`, drawID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrDrawNotFound, drawID)
	}
	if err != nil {
		return nil, err
	}
	if !raw.Valid {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotSettled, drawID)
	}
	return []byte(raw.String), nil
}

// WithinDraw abre transação e trava a linha do concurso (lock pessimista).
// Vendas e apuração do mesmo concurso ficam serializadas por esse lock.
func (p *Postgres) WithinDraw(ctx context.Context, drawID string, fn func(tx engine.DrawTx) error) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", domain.ErrPersistenceFailure, err)
	}
	defer tx.Rollback()

	d, err := scanDraw(tx.QueryRowContext(ctx, selectDraw+` WHERE id=$1 FOR UPDATE`, drawID))
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", domain.ErrDrawNotFound, drawID)
	}
	if err != nil {
		return err
	}

	if err := fn(&pgTx{tx: tx, draw: d}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", domain.ErrPersistenceFailure, err)
	}
	return nil
}

type pgTx struct {
	tx   *sql.Tx
	draw domain.Draw
}

func (t *pgTx) Draw() domain.Draw { return t.draw }

func (t *pgTx) Ticket(ctx context.Context, ticketID string) (domain.TicketSnapshot, error) {
	tk, err := scanTicket(t.tx.QueryRowContext(ctx, selectTicket+` WHERE id=$1 AND draw_id=$2`, ticketID, t.draw.ID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.TicketSnapshot{}, fmt.Errorf("%w: %s", domain.ErrTicketNotFound, ticketID)
	}
	return tk, err
}

func (t *pgTx) PayableTickets(ctx context.Context) ([]domain.TicketSnapshot, error) {
	return queryPayable(ctx, t.tx, t.draw.ID)
}

func (t *pgTx) InsertTicket(ctx context.Context, tk domain.TicketSnapshot) error {
	pick, err := json.Marshal(tk.Pick)
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO tickets (id, draw_id, stake_cents, pick, purchased_at, status)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		tk.ID, t.draw.ID, tk.StakeCents, string(pick), tk.PurchasedAt, string(tk.Status),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: ticket %s", domain.ErrDuplicate, tk.ID)
	}
	return err
}

func (t *pgTx) SetTicketStatus(ctx context.Context, ticketID string, status domain.TicketStatus) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE tickets SET status=$1, updated_at=now() WHERE id=$2 AND draw_id=$3`,
		string(status), ticketID, t.draw.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrTicketNotFound, ticketID)
	}
	return nil
}

func (t *pgTx) UpdateDraw(ctx context.Context, d domain.Draw) error {
	var results any
	if d.Results != nil {
		b, err := json.Marshal(d.Results)
		if err != nil {
			return err
		}
		results = string(b)
	}
	if _, err := t.tx.ExecContext(ctx,
		`UPDATE draws SET status=$1, results=$2, updated_at=now() WHERE id=$3`,
		string(d.Status), results, t.draw.ID); err != nil {
		return err
	}
	t.draw.Status = d.Status
	t.draw.Results = d.Results
	return nil
}

func (t *pgTx) StoredSettlement(ctx context.Context) ([]byte, error) {
	var raw string
	err := t.tx.QueryRowContext(ctx, `SELECT result FROM draw_settlements WHERE draw_id=$1`, t.draw.ID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotSettled, t.draw.ID)
	}
	if err != nil {
		return nil, err
	}
	return []byte(raw), nil
}

// CommitSettlement grava bilhetes, status do concurso e resultado na mesma transação.
// A mudança de status só acontece a partir de RESULTS_COMPLETE.
func (t *pgTx) CommitSettlement(ctx context.Context, res domain.SettlementResult, raw []byte, settledAt time.Time) error {
	n := len(res.Tickets)
	ids := make([]string, n)
	statuses := make([]string, n)
	hitCounts := make([]int64, n)
	prizes := make([]int64, n)
	anomalies := make([]string, n)
	for i, o := range res.Tickets {
		ids[i] = o.TicketID
		statuses[i] = string(o.FinalStatus)
		hitCounts[i] = -1 // NULL para palpite inválido
		if o.HitCount != nil {
			hitCounts[i] = int64(*o.HitCount)
		}
		prizes[i] = o.PrizeCents
		anomalies[i] = o.Anomaly
	}

	if n > 0 {
		r, err := t.tx.ExecContext(ctx, `
			UPDATE tickets t SET
				status      = u.status,
				hit_count   = NULLIF(u.hit_count, -1),
				prize_cents = u.prize_cents,
				anomaly     = NULLIF(u.anomaly, ''),
				updated_at  = now()
			FROM unnest($1::text[], $2::text[], $3::int[], $4::bigint[], $5::text[])
				AS u(id, status, hit_count, prize_cents, anomaly)
			WHERE t.id = u.id AND t.draw_id = $6 AND t.status = 'PAID'`,
			pq.Array(ids), pq.Array(statuses), pq.Array(hitCounts), pq.Array(prizes), pq.Array(anomalies), t.draw.ID)
		if err != nil {
			return fmt.Errorf("%w: update tickets: %v", domain.ErrPersistenceFailure, err)
		}
		if got, _ := r.RowsAffected(); got != int64(n) {
			return fmt.Errorf("%w: updated %d of %d tickets", domain.ErrPersistenceFailure, got, n)
		}
	}

	r, err := t.tx.ExecContext(ctx, `
		UPDATE draws SET status='SETTLED', settled_at=$1, updated_at=now()
		WHERE id=$2 AND status='RESULTS_COMPLETE'`, settledAt.UTC(), t.draw.ID)
	if err != nil {
		return fmt.Errorf("%w: update draw: %v", domain.ErrPersistenceFailure, err)
	}
	if got, _ := r.RowsAffected(); got != 1 {
		return fmt.Errorf("%w: draw %s left RESULTS_COMPLETE", domain.ErrInvalidTransition, t.draw.ID)
	}

	if _, err := t.tx.ExecContext(ctx,
		`INSERT INTO draw_settlements (draw_id, result, settled_at) VALUES ($1,$2,$3)`,
		t.draw.ID, string(raw), settledAt.UTC()); err != nil {
		return fmt.Errorf("%w: insert settlement: %v", domain.ErrPersistenceFailure, err)
	}

	at := settledAt.UTC()
	t.draw.Status = domain.DrawSettled
	t.draw.SettledAt = &at
	return nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryPayable(ctx context.Context, q queryer, drawID string) ([]domain.TicketSnapshot, error) {
	rows, err := q.QueryContext(ctx, selectTicket+` WHERE draw_id=$1 AND status='PAID' ORDER BY id`, drawID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.TicketSnapshot
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDraw(s scanner) (domain.Draw, error) {
	var (
		d         domain.Draw
		gameType  string
		status    string
		results   sql.NullString
		settledAt sql.NullTime
	)
	if err := s.Scan(&d.ID, &d.GameID, &gameType, &d.ScheduledAt, &status, &results, &settledAt, &d.CreatedAt); err != nil {
		return domain.Draw{}, err
	}
	d.GameType = domain.GameType(gameType)
	d.Status = domain.DrawStatus(status)
	d.ScheduledAt = d.ScheduledAt.UTC()
	d.CreatedAt = d.CreatedAt.UTC()
	if results.Valid {
		var rs domain.ResultSet
		if err := json.Unmarshal([]byte(results.String), &rs); err != nil {
			return domain.Draw{}, fmt.Errorf("decode draw %s results: %w", d.ID, err)
		}
		d.Results = &rs
	}
	if settledAt.Valid {
		at := settledAt.Time.UTC()
		d.SettledAt = &at
	}
	return d, nil
}

func scanTicket(s scanner) (domain.TicketSnapshot, error) {
	var (
		t        domain.TicketSnapshot
		pick     []byte
		status   string
		hitCount sql.NullInt64
	)
	if err := s.Scan(&t.ID, &t.DrawID, &t.StakeCents, &pick, &t.PurchasedAt, &status, &hitCount, &t.PrizeCents); err != nil {
		return domain.TicketSnapshot{}, err
	}
	if err := json.Unmarshal(pick, &t.Pick); err != nil {
		return domain.TicketSnapshot{}, fmt.Errorf("decode ticket %s pick: %w", t.ID, err)
	}
	t.Status = domain.TicketStatus(status)
	t.PurchasedAt = t.PurchasedAt.UTC()
	if hitCount.Valid {
		h := int(hitCount.Int64)
		t.HitCount = &h
	}
	return t, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation
}
