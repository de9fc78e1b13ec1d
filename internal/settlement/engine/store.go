package engine

import (
	"context"
	"time"

	"github.com/radieske/pool-settlement/internal/settlement/domain"
	"github.com/radieske/pool-settlement/internal/settlement/game"
)

// Store é a persistência usada pelo motor.
// Leituras fora de WithinDraw não bloqueiam e podem ver dados já superados.
type Store interface {
	CreateDraw(ctx context.Context, d domain.Draw) error
	GetDraw(ctx context.Context, drawID string) (domain.Draw, error)
	GetTicket(ctx context.Context, ticketID string) (domain.TicketSnapshot, error)
	ListPayableTickets(ctx context.Context, drawID string) ([]domain.TicketSnapshot, error)
	// StoredSettlement devolve os bytes gravados na apuração; ErrNotSettled se não houver
	StoredSettlement(ctx context.Context, drawID string) ([]byte, error)
	// WithinDraw executa fn com o concurso travado. Se fn retornar erro nada é gravado;
	// falha no commit volta como domain.ErrPersistenceFailure.
	WithinDraw(ctx context.Context, drawID string, fn func(tx DrawTx) error) error
}

// DrawTx são as operações disponíveis com o concurso travado
type DrawTx interface {
	Draw() domain.Draw
	Ticket(ctx context.Context, ticketID string) (domain.TicketSnapshot, error)
	PayableTickets(ctx context.Context) ([]domain.TicketSnapshot, error)
	InsertTicket(ctx context.Context, t domain.TicketSnapshot) error
	SetTicketStatus(ctx context.Context, ticketID string, status domain.TicketStatus) error
	// UpdateDraw grava status e resultados do concurso
	UpdateDraw(ctx context.Context, d domain.Draw) error
	StoredSettlement(ctx context.Context) ([]byte, error)
	// CommitSettlement grava o resultado de cada bilhete, o concurso como SETTLED e os bytes canônicos
	CommitSettlement(ctx context.Context, res domain.SettlementResult, raw []byte, settledAt time.Time) error
}

// GameResolver busca a configuração de um jogo
type GameResolver interface {
	Get(gameID string) (game.Game, error)
}
