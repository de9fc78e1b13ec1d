package dto

import (
	"fmt"
	"time"

	"github.com/radieske/pool-settlement/internal/settlement/domain"
)

// OpenDrawRequest abre um concurso; ID vazio gera um uuid
type OpenDrawRequest struct {
	ID          string    `json:"id"`
	GameID      string    `json:"gameId"`
	ScheduledAt time.Time `json:"scheduledAt"`
}

// PlaceTicketRequest registra um bilhete pago.
// Só o campo do tipo de jogo do concurso é considerado.
type PlaceTicketRequest struct {
	TicketID   string   `json:"ticketId"` // chave de idempotência; vazio gera um uuid
	StakeCents int64    `json:"stakeCents"`
	Outcomes   []string `json:"outcomes,omitempty"` // FIXED_POOL, um por partida
	Hour       *int     `json:"hour,omitempty"`     // TIME_WINDOW
	Number     string   `json:"number,omitempty"`   // DIRECT_NUMBER
}

// ToOutcomes converte os palpites; valor desconhecido vira erro de palpite
func (r PlaceTicketRequest) ToOutcomes() ([]domain.Outcome, error) {
	if r.Outcomes == nil {
		return nil, nil
	}
	out := make([]domain.Outcome, len(r.Outcomes))
	for i, s := range r.Outcomes {
		o := domain.Outcome(s)
		if !o.Valid() {
			return nil, fmt.Errorf("%w: outcome %q at position %d", domain.ErrInvalidPick, s, i+1)
		}
		out[i] = o
	}
	return out, nil
}

// MatchResultRequest é o resultado de uma partida; Outcome vazio = sem resultado ainda
type MatchResultRequest struct {
	Ordinal int    `json:"ordinal"`
	Home    string `json:"home"`
	Away    string `json:"away"`
	Outcome string `json:"outcome,omitempty"`
}

// ResultsRequest lança resultados oficiais (parciais ou completos)
type ResultsRequest struct {
	Matches     []MatchResultRequest `json:"matches,omitempty"`
	DrawnValue  string               `json:"drawnValue,omitempty"`
	SubmittedAt *time.Time           `json:"submittedAt,omitempty"` // vazio = agora
}

// ToResultSet monta o snapshot de resultado conforme o tipo de jogo do concurso
func (r ResultsRequest) ToResultSet(drawID string, gameType domain.GameType, now time.Time) (domain.ResultSet, error) {
	at := now
	if r.SubmittedAt != nil {
		at = *r.SubmittedAt
	}
	if gameType != domain.GameFixedPool {
		return domain.NewDrawnValue(drawID, gameType, r.DrawnValue, at)
	}
	ms := make([]domain.MatchResult, 0, len(r.Matches))
	for _, m := range r.Matches {
		mr := domain.MatchResult{Ordinal: m.Ordinal, Home: m.Home, Away: m.Away}
		if m.Outcome != "" {
			o := domain.Outcome(m.Outcome)
			mr.Outcome = &o
		}
		ms = append(ms, mr)
	}
	return domain.NewMatchResults(drawID, at, ms)
}
