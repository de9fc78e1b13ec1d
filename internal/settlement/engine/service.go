package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radieske/pool-settlement/internal/settlement/domain"
	"github.com/radieske/pool-settlement/internal/settlement/liability"
	"github.com/radieske/pool-settlement/internal/shared/clock"
)

// Hooks são callbacks de métricas; todos opcionais
type Hooks struct {
	OnSettled      func(res domain.SettlementResult, replayed bool, took time.Duration)
	OnSettleFailed func(drawID string, err error)
	OnInvalidPicks func(gameID string, n int)
	OnExposure     func(rep liability.Report)
}

// Service expõe as operações do ciclo de vida de um concurso
type Service struct {
	store Store
	games GameResolver
	clock clock.Clock
	log   *zap.Logger
	hooks Hooks

	ExposureWorkers int // concorrência do cálculo de exposição; 0 = GOMAXPROCS
}

func NewService(store Store, games GameResolver, clk clock.Clock, log *zap.Logger, hooks Hooks) *Service {
	if clk == nil {
		clk = clock.System()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, games: games, clock: clk, log: log, hooks: hooks}
}

// OpenDrawInput cria um concurso; ID vazio gera um uuid
type OpenDrawInput struct {
	ID          string
	GameID      string
	ScheduledAt time.Time
}

// OpenDraw cria um concurso em OPEN
func (s *Service) OpenDraw(ctx context.Context, in OpenDrawInput) (domain.Draw, error) {
	g, err := s.games.Get(in.GameID)
	if err != nil {
		return domain.Draw{}, err
	}
	id := in.ID
	if id == "" {
		id = uuid.NewString()
	}
	d := domain.Draw{
		ID:          id,
		GameID:      g.ID,
		GameType:    g.Type,
		ScheduledAt: in.ScheduledAt.UTC(),
		Status:      domain.DrawOpen,
		CreatedAt:   s.clock.Now().UTC(),
	}
	if err := s.store.CreateDraw(ctx, d); err != nil {
		return domain.Draw{}, err
	}
	s.log.Info("draw opened", zap.String("draw_id", d.ID), zap.String("game_id", d.GameID),
		zap.Time("scheduled_at", d.ScheduledAt))
	return d, nil
}

func (s *Service) GetDraw(ctx context.Context, drawID string) (domain.Draw, error) {
	return s.store.GetDraw(ctx, drawID)
}

func (s *Service) GetTicket(ctx context.Context, ticketID string) (domain.TicketSnapshot, error) {
	return s.store.GetTicket(ctx, ticketID)
}

// PlaceTicketInput é a venda de um bilhete. Só os campos do tipo de jogo são usados.
// TicketID informado torna a venda idempotente (mesmo id devolve o bilhete já gravado).
type PlaceTicketInput struct {
	TicketID   string
	DrawID     string
	StakeCents int64
	Outcomes   []domain.Outcome
	Hour       *int
	Number     string
}

// PlaceTicket grava o bilhete com o concurso travado. O minuto do palpite de
// TIME_WINDOW vem do relógio no momento da compra.
func (s *Service) PlaceTicket(ctx context.Context, in PlaceTicketInput) (domain.TicketSnapshot, error) {
	if in.StakeCents <= 0 {
		return domain.TicketSnapshot{}, fmt.Errorf("%w: stake must be positive, got %d", domain.ErrInvalidStake, in.StakeCents)
	}

	var out domain.TicketSnapshot
	err := s.store.WithinDraw(ctx, in.DrawID, func(tx DrawTx) error {
		d := tx.Draw()
		if in.TicketID != "" {
			existing, err := tx.Ticket(ctx, in.TicketID)
			if err == nil {
				out = existing
				return nil
			}
			if !errors.Is(err, domain.ErrTicketNotFound) {
				return err
			}
		}
		if !d.AcceptsTickets() {
			return fmt.Errorf("%w: draw %s is %s", domain.ErrSalesClosed, d.ID, d.Status)
		}
		g, err := s.games.Get(d.GameID)
		if err != nil {
			return err
		}
		calc, err := g.Calculator()
		if err != nil {
			return err
		}

		now := s.clock.Now().UTC()
		var pick domain.Pick
		switch d.GameType {
		case domain.GameFixedPool:
			pick = domain.Pick{Outcomes: append([]domain.Outcome(nil), in.Outcomes...)}
		case domain.GameTimeWindow:
			if in.Hour == nil {
				return fmt.Errorf("%w: hour required", domain.ErrInvalidPick)
			}
			pick = domain.TimeWindowPick(*in.Hour, now)
		case domain.GameDirectNumber:
			pick = domain.Pick{Number: in.Number}
		}
		if err := calc.ValidatePick(pick); err != nil {
			return err
		}

		id := in.TicketID
		if id == "" {
			id = uuid.NewString()
		}
		t := domain.TicketSnapshot{
			ID:          id,
			DrawID:      d.ID,
			StakeCents:  in.StakeCents,
			Pick:        pick,
			PurchasedAt: now,
			Status:      domain.TicketPaid,
		}
		if err := tx.InsertTicket(ctx, t); err != nil {
			return err
		}
		out = t
		return nil
	})
	if err != nil {
		return domain.TicketSnapshot{}, err
	}
	return out, nil
}

// CancelTicket cancela um bilhete pago enquanto o concurso está OPEN
func (s *Service) CancelTicket(ctx context.Context, drawID, ticketID string) (domain.TicketSnapshot, error) {
	var out domain.TicketSnapshot
	err := s.store.WithinDraw(ctx, drawID, func(tx DrawTx) error {
		d := tx.Draw()
		if d.Status != domain.DrawOpen {
			return fmt.Errorf("%w: draw %s is %s", domain.ErrSalesClosed, d.ID, d.Status)
		}
		t, err := tx.Ticket(ctx, ticketID)
		if err != nil {
			return err
		}
		if t.Status == domain.TicketCancelled {
			out = t
			return nil
		}
		if t.Status != domain.TicketPaid {
			return fmt.Errorf("%w: ticket %s is %s", domain.ErrInvalidTransition, t.ID, t.Status)
		}
		if err := tx.SetTicketStatus(ctx, t.ID, domain.TicketCancelled); err != nil {
			return err
		}
		t.Status = domain.TicketCancelled
		out = t
		return nil
	})
	if err != nil {
		return domain.TicketSnapshot{}, err
	}
	s.log.Info("ticket cancelled", zap.String("draw_id", drawID), zap.String("ticket_id", ticketID))
	return out, nil
}

// CloseSales move OPEN → AWAITING_RESULTS a partir do horário agendado
func (s *Service) CloseSales(ctx context.Context, drawID string) (domain.Draw, error) {
	var out domain.Draw
	err := s.store.WithinDraw(ctx, drawID, func(tx DrawTx) error {
		d := tx.Draw()
		if d.Status == domain.DrawAwaitingResults {
			out = d
			return nil
		}
		if !d.Status.CanTransition(domain.DrawAwaitingResults) {
			return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, d.Status, domain.DrawAwaitingResults)
		}
		if now := s.clock.Now(); now.Before(d.ScheduledAt) {
			return fmt.Errorf("%w: sales close at %s", domain.ErrInvalidTransition, d.ScheduledAt.Format(time.RFC3339))
		}
		d.Status = domain.DrawAwaitingResults
		if err := tx.UpdateDraw(ctx, d); err != nil {
			return err
		}
		out = d
		return nil
	})
	if err != nil {
		return domain.Draw{}, err
	}
	s.log.Info("sales closed", zap.String("draw_id", drawID))
	return out, nil
}

// RecordResults grava os resultados oficiais. Resultado completo leva o concurso a
// RESULTS_COMPLETE (também aceito como correção antes da apuração); resultado
// parcial fica gravado com o concurso ainda em AWAITING_RESULTS.
func (s *Service) RecordResults(ctx context.Context, drawID string, rs domain.ResultSet) (domain.Draw, error) {
	if rs.DrawID() != drawID {
		return domain.Draw{}, fmt.Errorf("%w: results for draw %s sent to %s", domain.ErrInvalidResult, rs.DrawID(), drawID)
	}
	var out domain.Draw
	err := s.store.WithinDraw(ctx, drawID, func(tx DrawTx) error {
		d := tx.Draw()
		switch d.Status {
		case domain.DrawSettled:
			return fmt.Errorf("%w: draw %s", domain.ErrAlreadySettled, d.ID)
		case domain.DrawOpen:
			return fmt.Errorf("%w: draw %s still open for sales", domain.ErrInvalidTransition, d.ID)
		}
		if rs.GameType() != d.GameType {
			return fmt.Errorf("%w: %s result for %s draw", domain.ErrInvalidResult, rs.GameType(), d.GameType)
		}
		g, err := s.games.Get(d.GameID)
		if err != nil {
			return err
		}
		calc, err := g.Calculator()
		if err != nil {
			return err
		}

		if err := calc.CheckComplete(rs); err != nil {
			if !errors.Is(err, domain.ErrIncompleteResult) || d.Status == domain.DrawResultsComplete {
				return err
			}
			// parcial: guarda e espera o restante
			d.Results = &rs
			if err := tx.UpdateDraw(ctx, d); err != nil {
				return err
			}
			out = d
			s.log.Info("partial results recorded", zap.String("draw_id", d.ID), zap.String("reason", err.Error()))
			return nil
		}

		if !d.Status.CanTransition(domain.DrawResultsComplete) {
			return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, d.Status, domain.DrawResultsComplete)
		}
		d.Status = domain.DrawResultsComplete
		d.Results = &rs
		if err := tx.UpdateDraw(ctx, d); err != nil {
			return err
		}
		out = d
		return nil
	})
	if err != nil {
		return domain.Draw{}, err
	}
	s.log.Info("results recorded", zap.String("draw_id", drawID), zap.String("status", string(out.Status)))
	return out, nil
}

// SettleOutcome é o retorno de Settle. Replayed indica que o concurso já estava
// apurado e o resultado gravado foi devolvido sem recalcular.
type SettleOutcome struct {
	Result   domain.SettlementResult
	Raw      []byte
	Replayed bool
}

// Settle faz a transição RESULTS_COMPLETE → SETTLED com o concurso travado:
// carrega os bilhetes pagáveis, calcula e grava tudo numa única unidade.
// Repetir a chamada depois de apurado devolve os mesmos bytes.
func (s *Service) Settle(ctx context.Context, drawID string) (SettleOutcome, error) {
	start := time.Now()
	var out SettleOutcome
	err := s.store.WithinDraw(ctx, drawID, func(tx DrawTx) error {
		d := tx.Draw()
		switch d.Status {
		case domain.DrawSettled:
			raw, err := tx.StoredSettlement(ctx)
			if err != nil {
				return err
			}
			res, err := domain.DecodeSettlement(raw)
			if err != nil {
				return fmt.Errorf("%w: decode stored settlement: %v", domain.ErrPersistenceFailure, err)
			}
			out = SettleOutcome{Result: res, Raw: raw, Replayed: true}
			return nil
		case domain.DrawAwaitingResults:
			return fmt.Errorf("%w: draw %s is %s", domain.ErrIncompleteResult, d.ID, d.Status)
		case domain.DrawOpen:
			return fmt.Errorf("%w: draw %s is %s", domain.ErrInvalidTransition, d.ID, d.Status)
		}

		g, err := s.games.Get(d.GameID)
		if err != nil {
			return err
		}
		calc, err := g.Calculator()
		if err != nil {
			return err
		}
		tickets, err := tx.PayableTickets(ctx)
		if err != nil {
			return err
		}
		res, err := Compute(g, calc, d, tickets)
		if err != nil {
			return err
		}
		raw, err := res.Canonical()
		if err != nil {
			return err
		}
		if err := tx.CommitSettlement(ctx, res, raw, s.clock.Now().UTC()); err != nil {
			if errors.Is(err, domain.ErrPersistenceFailure) {
				return err
			}
			return fmt.Errorf("%w: %v", domain.ErrPersistenceFailure, err)
		}
		out = SettleOutcome{Result: res, Raw: raw}
		return nil
	})
	if err != nil {
		s.log.Warn("settlement failed", zap.String("draw_id", drawID), zap.Error(err))
		if s.hooks.OnSettleFailed != nil {
			s.hooks.OnSettleFailed(drawID, err)
		}
		return SettleOutcome{}, err
	}

	took := time.Since(start)
	if out.Replayed {
		s.log.Info("draw already settled, returning stored result", zap.String("draw_id", drawID))
	} else {
		s.log.Info("draw settled",
			zap.String("draw_id", drawID),
			zap.Int64("total_stake_cents", out.Result.TotalStakeCents),
			zap.Int64("total_distributed_cents", out.Result.TotalDistributedCents),
			zap.Int64("forfeited_cents", out.Result.ForfeitedCents),
			zap.Int64("rounding_residual_cents", out.Result.RoundingResidualCents),
			zap.Int("tickets", len(out.Result.Tickets)),
			zap.Int("invalid_tickets", out.Result.InvalidTickets),
			zap.Duration("took", took),
		)
		for _, t := range out.Result.Tickets {
			if t.Anomaly != "" {
				s.log.Warn("ticket excluded from payout", zap.String("draw_id", drawID),
					zap.String("ticket_id", t.TicketID), zap.String("anomaly", t.Anomaly))
			}
		}
		if out.Result.InvalidTickets > 0 && s.hooks.OnInvalidPicks != nil {
			s.hooks.OnInvalidPicks(out.Result.GameID, out.Result.InvalidTickets)
		}
	}
	if s.hooks.OnSettled != nil {
		s.hooks.OnSettled(out.Result, out.Replayed, took)
	}
	return out, nil
}

// Settlement lê o resultado gravado de um concurso apurado
func (s *Service) Settlement(ctx context.Context, drawID string) (domain.SettlementResult, []byte, error) {
	raw, err := s.store.StoredSettlement(ctx, drawID)
	if err != nil {
		return domain.SettlementResult{}, nil, err
	}
	res, err := domain.DecodeSettlement(raw)
	if err != nil {
		return domain.SettlementResult{}, nil, fmt.Errorf("decode stored settlement: %w", err)
	}
	return res, raw, nil
}

// Exposure calcula a exposição com os bilhetes abertos; não grava nada
func (s *Service) Exposure(ctx context.Context, drawID string, top int) (liability.Report, error) {
	d, err := s.store.GetDraw(ctx, drawID)
	if err != nil {
		return liability.Report{}, err
	}
	if d.Status == domain.DrawSettled {
		return liability.Report{}, fmt.Errorf("%w: draw %s", domain.ErrAlreadySettled, d.ID)
	}
	g, err := s.games.Get(d.GameID)
	if err != nil {
		return liability.Report{}, err
	}
	calc, err := g.Calculator()
	if err != nil {
		return liability.Report{}, err
	}
	open, err := s.store.ListPayableTickets(ctx, drawID)
	if err != nil {
		return liability.Report{}, err
	}

	rep, err := liability.Aggregate(ctx, calc, g.Tiers, g.PayoutRatio, open, liability.Options{
		DrawID:            d.ID,
		MaxLiabilityCents: g.MaxLiabilityCents,
		WarnRatio:         g.WarnRatio,
		Concurrency:       s.ExposureWorkers,
		Top:               top,
	})
	if err != nil {
		return liability.Report{}, err
	}
	if rep.Flag != liability.FlagOK {
		worst, _ := rep.Worst()
		s.log.Warn("exposure above threshold",
			zap.String("draw_id", d.ID),
			zap.String("flag", string(rep.Flag)),
			zap.String("candidate", worst.Candidate),
			zap.Int64("payout_cents", worst.PayoutCents),
			zap.Int64("max_liability_cents", g.MaxLiabilityCents),
		)
	}
	if s.hooks.OnExposure != nil {
		s.hooks.OnExposure(rep)
	}
	return rep, nil
}
