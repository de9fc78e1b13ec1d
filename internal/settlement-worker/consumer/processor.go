package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/pool-settlement/internal/settlement/domain"
	"github.com/radieske/pool-settlement/internal/settlement/engine"
	"github.com/radieske/pool-settlement/internal/shared/clock"
	skafka "github.com/radieske/pool-settlement/internal/shared/kafka"
	"github.com/radieske/pool-settlement/pkg/contracts/events"
)

// Reader é o subconjunto de *kafka.Reader usado pelo loop (commit explícito)
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Settler são as operações do motor usadas pelo worker
type Settler interface {
	CloseSales(ctx context.Context, drawID string) (domain.Draw, error)
	RecordResults(ctx context.Context, drawID string, rs domain.ResultSet) (domain.Draw, error)
	Settle(ctx context.Context, drawID string) (engine.SettleOutcome, error)
}

// Publisher publica o evento de concurso apurado
type Publisher interface {
	PublishDrawSettled(ctx context.Context, e events.DrawSettled) error
}

// DeadLetter é o payload enviado à DLQ
type DeadLetter struct {
	Reason  string          `json:"reason"`
	Stage   string          `json:"stage"`
	Payload json.RawMessage `json:"payload"`
	Ts      time.Time       `json:"ts"`
}

// Processor consome draw_results_entered, grava os resultados, apura quando o
// resultado fica completo e publica draw_settled.
// Falhas de persistência são repetidas com backoff linear; esgotadas as tentativas
// (ou em erro de negócio) a mensagem vai para a DLQ.
type Processor struct {
	Log       *zap.Logger
	Reader    Reader
	Settler   Settler
	Publisher Publisher
	DLQ       skafka.MessageWriter // opcional
	Clock     clock.Clock

	MaxRetries int           // tentativas extras além da primeira
	Backoff    time.Duration // multiplicado pelo número da tentativa

	OnConsumed func()       // métricas (counter++)
	OnSettled  func(bool)   // métricas; true = reapresentado
	OnDLQ      func(string) // métricas por fase
	OnError    func(string) // métricas por fase
}

// Run inicia o loop principal de consumo; só retorna quando ctx é cancelado
func (p *Processor) Run(ctx context.Context) error {
	for {
		m, err := p.Reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.Log.Warn("kafka fetch failed", zap.Error(err))
			p.onError("read")
			p.sleep(ctx, 500*time.Millisecond)
			continue
		}
		if p.OnConsumed != nil {
			p.OnConsumed()
		}

		if err := p.Handle(ctx, m); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// sem commit: a mensagem volta no próximo rebalance
			p.Log.Error("message not handled", zap.String("key", string(m.Key)), zap.Error(err))
			p.sleep(ctx, 500*time.Millisecond)
			continue
		}
		if err := p.Reader.CommitMessages(ctx, m); err != nil {
			p.Log.Warn("kafka commit failed", zap.Error(err))
			p.onError("commit")
		}
	}
}

// Handle processa uma mensagem. Devolve erro só quando nem a DLQ aceitou:
// nesse caso a mensagem não deve ser confirmada.
func (p *Processor) Handle(ctx context.Context, m kafka.Message) error {
	var ev events.ResultsEntered
	if err := json.Unmarshal(m.Value, &ev); err != nil {
		p.Log.Warn("invalid message", zap.Error(err))
		p.onError("decode")
		return p.deadLetter(ctx, m, "decode", err)
	}
	rs, err := ToResultSet(ev)
	if err != nil {
		p.Log.Warn("invalid results", zap.String("draw_id", ev.DrawID), zap.Error(err))
		p.onError("validate")
		return p.deadLetter(ctx, m, "validate", err)
	}

	attempts := 1 + p.MaxRetries
	for i := 0; i < attempts; i++ {
		if i > 0 {
			p.sleep(ctx, time.Duration(i)*p.Backoff)
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
		err = p.processOne(ctx, ev.DrawID, rs)
		if err == nil {
			return nil
		}
		if permanent(err) {
			break
		}
		p.Log.Warn("settlement attempt failed",
			zap.String("draw_id", ev.DrawID), zap.Int("attempt", i+1), zap.Error(err))
		p.onError("settle")
	}
	p.Log.Error("sending results to dlq", zap.String("draw_id", ev.DrawID), zap.Error(err))
	return p.deadLetter(ctx, m, "settle", err)
}

// processOne grava o resultado e apura; repetir é seguro porque Settle reapresenta
// o resultado gravado quando o concurso já está apurado.
func (p *Processor) processOne(ctx context.Context, drawID string, rs domain.ResultSet) error {
	d, err := p.Settler.RecordResults(ctx, drawID, rs)
	switch {
	case errors.Is(err, domain.ErrAlreadySettled):
		// reentrega: segue para republicar o resultado gravado
	case errors.Is(err, domain.ErrInvalidTransition):
		// resultado chegou com vendas abertas: encerra e grava de novo
		if _, cerr := p.Settler.CloseSales(ctx, drawID); cerr != nil {
			return cerr
		}
		if d, err = p.Settler.RecordResults(ctx, drawID, rs); err != nil {
			return err
		}
		if d.Status != domain.DrawResultsComplete {
			return p.waiting(d)
		}
	case err != nil:
		return err
	case d.Status != domain.DrawResultsComplete:
		return p.waiting(d)
	}

	out, err := p.Settler.Settle(ctx, drawID)
	if errors.Is(err, domain.ErrIncompleteResult) {
		p.Log.Info("draw not ready for settlement", zap.String("draw_id", drawID), zap.Error(err))
		return nil
	}
	if err != nil {
		return err
	}
	if err := p.Publisher.PublishDrawSettled(ctx, engine.SettledEvent(out, p.now())); err != nil {
		return fmt.Errorf("publish draw_settled: %w", err)
	}
	if p.OnSettled != nil {
		p.OnSettled(out.Replayed)
	}
	return nil
}

func (p *Processor) waiting(d domain.Draw) error {
	p.Log.Info("partial results recorded, waiting for the rest",
		zap.String("draw_id", d.ID), zap.String("status", string(d.Status)))
	return nil
}

func (p *Processor) deadLetter(ctx context.Context, m kafka.Message, stage string, cause error) error {
	if p.OnDLQ != nil {
		p.OnDLQ(stage)
	}
	if p.DLQ == nil {
		return nil
	}
	dl := DeadLetter{Reason: cause.Error(), Stage: stage, Payload: m.Value, Ts: p.now()}
	if !json.Valid(m.Value) {
		raw, _ := json.Marshal(string(m.Value))
		dl.Payload = raw
	}
	if err := skafka.WriteJSON(ctx, p.DLQ, string(m.Key), dl); err != nil {
		p.onError("dlq")
		return fmt.Errorf("dlq write: %w", err)
	}
	return nil
}

// permanent: erros de negócio que nenhuma nova tentativa resolve
func permanent(err error) bool {
	for _, target := range []error{
		domain.ErrDrawNotFound,
		domain.ErrInvalidTransition,
		domain.ErrIncompleteResult, // correção parcial de um resultado já completo
		domain.ErrInvalidResult,
		domain.ErrUnknownGame,
		domain.ErrInvalidTierTable,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// ToResultSet converte o evento no snapshot imutável de resultados
func ToResultSet(ev events.ResultsEntered) (domain.ResultSet, error) {
	gt := domain.GameType(ev.GameType)
	if gt != domain.GameFixedPool {
		return domain.NewDrawnValue(ev.DrawID, gt, ev.DrawnValue, ev.SubmittedAt)
	}
	ms := make([]domain.MatchResult, 0, len(ev.Matches))
	for _, m := range ev.Matches {
		mr := domain.MatchResult{Ordinal: m.Ordinal, Home: m.Home, Away: m.Away}
		if m.Outcome != "" {
			o := domain.Outcome(m.Outcome)
			mr.Outcome = &o
		}
		ms = append(ms, mr)
	}
	return domain.NewMatchResults(ev.DrawID, ev.SubmittedAt, ms)
}

func (p *Processor) onError(stage string) {
	if p.OnError != nil {
		p.OnError(stage)
	}
}

func (p *Processor) now() time.Time {
	if p.Clock == nil {
		return time.Now().UTC()
	}
	return p.Clock.Now()
}

func (p *Processor) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
