package repo

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/radieske/pool-settlement/internal/settlement/domain"
	"github.com/radieske/pool-settlement/internal/settlement/engine"
)

// Memory implementa engine.Store em memória (testes e ambiente local).
// Cada concurso tem seu próprio lock; a transação trabalha numa cópia que só
// substitui o estado gravado se fn terminar sem erro.
type Memory struct {
	mu      sync.RWMutex
	draws   map[string]*memDraw
	tickets map[string]string // ticketID -> drawID
}

type memDraw struct {
	lock       sync.Mutex
	draw       domain.Draw
	tickets    map[string]domain.TicketSnapshot
	settlement []byte
}

func NewMemory() *Memory {
	return &Memory{draws: map[string]*memDraw{}, tickets: map[string]string{}}
}

func (m *Memory) CreateDraw(_ context.Context, d domain.Draw) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.draws[d.ID]; ok {
		return fmt.Errorf("%w: draw %s", domain.ErrDuplicate, d.ID)
	}
	m.draws[d.ID] = &memDraw{draw: copyDraw(d), tickets: map[string]domain.TicketSnapshot{}}
	return nil
}

func (m *Memory) GetDraw(_ context.Context, drawID string) (domain.Draw, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	md, ok := m.draws[drawID]
	if !ok {
		return domain.Draw{}, fmt.Errorf("%w: %s", domain.ErrDrawNotFound, drawID)
	}
	return copyDraw(md.draw), nil
}

func (m *Memory) GetTicket(_ context.Context, ticketID string) (domain.TicketSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	drawID, ok := m.tickets[ticketID]
	if !ok {
		return domain.TicketSnapshot{}, fmt.Errorf("%w: %s", domain.ErrTicketNotFound, ticketID)
	}
	return copyTicket(m.draws[drawID].tickets[ticketID]), nil
}

func (m *Memory) ListPayableTickets(_ context.Context, drawID string) ([]domain.TicketSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	md, ok := m.draws[drawID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrDrawNotFound, drawID)
	}
	return payable(md.tickets), nil
}

func (m *Memory) StoredSettlement(_ context.Context, drawID string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	md, ok := m.draws[drawID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrDrawNotFound, drawID)
	}
	if md.settlement == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotSettled, drawID)
	}
	return append([]byte(nil), md.settlement...), nil
}

// WithinDraw serializa as transações do mesmo concurso
func (m *Memory) WithinDraw(ctx context.Context, drawID string, fn func(tx engine.DrawTx) error) error {
	m.mu.RLock()
	md, ok := m.draws[drawID]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrDrawNotFound, drawID)
	}

	md.lock.Lock()
	defer md.lock.Unlock()

	m.mu.RLock()
	tx := &memTx{
		owner:      m,
		draw:       copyDraw(md.draw),
		tickets:    make(map[string]domain.TicketSnapshot, len(md.tickets)),
		settlement: md.settlement,
	}
	for id, t := range md.tickets {
		tx.tickets[id] = copyTicket(t)
	}
	m.mu.RUnlock()

	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistenceFailure, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// outro concurso pode ter gravado o mesmo id enquanto fn rodava
	for _, id := range tx.inserted {
		if owner, ok := m.tickets[id]; ok && owner != drawID {
			return fmt.Errorf("%w: ticket %s", domain.ErrDuplicate, id)
		}
	}
	md.draw = tx.draw
	md.tickets = tx.tickets
	md.settlement = tx.settlement
	for _, id := range tx.inserted {
		m.tickets[id] = drawID
	}
	return nil
}

type memTx struct {
	owner      *Memory
	draw       domain.Draw
	tickets    map[string]domain.TicketSnapshot
	settlement []byte
	inserted   []string
}

func (t *memTx) Draw() domain.Draw { return copyDraw(t.draw) }

func (t *memTx) Ticket(_ context.Context, ticketID string) (domain.TicketSnapshot, error) {
	tk, ok := t.tickets[ticketID]
	if !ok {
		return domain.TicketSnapshot{}, fmt.Errorf("%w: %s", domain.ErrTicketNotFound, ticketID)
	}
	return copyTicket(tk), nil
}

func (t *memTx) PayableTickets(context.Context) ([]domain.TicketSnapshot, error) {
	return payable(t.tickets), nil
}

func (t *memTx) InsertTicket(_ context.Context, tk domain.TicketSnapshot) error {
	if _, ok := t.tickets[tk.ID]; ok {
		return fmt.Errorf("%w: ticket %s", domain.ErrDuplicate, tk.ID)
	}
	// id de bilhete é único entre concursos, como a PK da tabela tickets
	t.owner.mu.RLock()
	_, taken := t.owner.tickets[tk.ID]
	t.owner.mu.RUnlock()
	if taken {
		return fmt.Errorf("%w: ticket %s", domain.ErrDuplicate, tk.ID)
	}
	t.tickets[tk.ID] = copyTicket(tk)
	t.inserted = append(t.inserted, tk.ID)
	return nil
}

func (t *memTx) SetTicketStatus(_ context.Context, ticketID string, status domain.TicketStatus) error {
	tk, ok := t.tickets[ticketID]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrTicketNotFound, ticketID)
	}
	tk.Status = status
	t.tickets[ticketID] = tk
	return nil
}

func (t *memTx) UpdateDraw(_ context.Context, d domain.Draw) error {
	if d.ID != t.draw.ID {
		return fmt.Errorf("%w: %s", domain.ErrDrawNotFound, d.ID)
	}
	t.draw.Status = d.Status
	t.draw.Results = d.Results
	return nil
}

func (t *memTx) StoredSettlement(context.Context) ([]byte, error) {
	if t.settlement == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotSettled, t.draw.ID)
	}
	return append([]byte(nil), t.settlement...), nil
}

func (t *memTx) CommitSettlement(_ context.Context, res domain.SettlementResult, raw []byte, settledAt time.Time) error {
	if t.draw.Status != domain.DrawResultsComplete {
		return fmt.Errorf("%w: draw %s is %s", domain.ErrInvalidTransition, t.draw.ID, t.draw.Status)
	}
	for _, o := range res.Tickets {
		tk, ok := t.tickets[o.TicketID]
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrTicketNotFound, o.TicketID)
		}
		tk.Status = o.FinalStatus
		tk.HitCount = o.HitCount
		tk.PrizeCents = o.PrizeCents
		t.tickets[o.TicketID] = tk
	}
	at := settledAt.UTC()
	t.draw.Status = domain.DrawSettled
	t.draw.SettledAt = &at
	t.settlement = append([]byte(nil), raw...)
	return nil
}

func payable(all map[string]domain.TicketSnapshot) []domain.TicketSnapshot {
	out := make([]domain.TicketSnapshot, 0, len(all))
	for _, t := range all {
		if t.Status.Payable() {
			out = append(out, copyTicket(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func copyDraw(d domain.Draw) domain.Draw {
	if d.SettledAt != nil {
		at := *d.SettledAt
		d.SettledAt = &at
	}
	// ResultSet é imutável, o ponteiro pode ser compartilhado
	return d
}

func copyTicket(t domain.TicketSnapshot) domain.TicketSnapshot {
	t.Pick = t.Pick.Clone()
	if t.HitCount != nil {
		h := *t.HitCount
		t.HitCount = &h
	}
	return t
}
