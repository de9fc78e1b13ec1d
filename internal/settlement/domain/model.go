// Package domain reúne os tipos do motor de apuração: concursos, bilhetes,
// palpites, resultados oficiais e o resultado da apuração.
package domain

import "time"

// GameType identifica a regra de acerto do jogo
type GameType string

const (
	GameFixedPool    GameType = "FIXED_POOL"    // loteria esportiva (14 jogos)
	GameTimeWindow   GameType = "TIME_WINDOW"   // hora/minuto derivados da milhar
	GameDirectNumber GameType = "DIRECT_NUMBER" // número seco
)

func (g GameType) Valid() bool {
	switch g {
	case GameFixedPool, GameTimeWindow, GameDirectNumber:
		return true
	}
	return false
}

// DrawStatus é o estado do concurso
type DrawStatus string

const (
	DrawOpen            DrawStatus = "OPEN"
	DrawAwaitingResults DrawStatus = "AWAITING_RESULTS"
	DrawResultsComplete DrawStatus = "RESULTS_COMPLETE"
	DrawSettled         DrawStatus = "SETTLED"
)

// CanTransition valida OPEN → AWAITING_RESULTS → RESULTS_COMPLETE → SETTLED.
// RESULTS_COMPLETE → RESULTS_COMPLETE é permitido para correção de resultado antes da apuração.
func (s DrawStatus) CanTransition(to DrawStatus) bool {
	switch s {
	case DrawOpen:
		return to == DrawAwaitingResults
	case DrawAwaitingResults:
		return to == DrawResultsComplete
	case DrawResultsComplete:
		return to == DrawResultsComplete || to == DrawSettled
	}
	return false
}

// TicketStatus é o estado do bilhete
type TicketStatus string

const (
	TicketPaid      TicketStatus = "PAID"
	TicketCancelled TicketStatus = "CANCELLED"
	TicketWinner    TicketStatus = "WINNER"
	TicketNoPrize   TicketStatus = "NO_PRIZE"
	TicketInvalid   TicketStatus = "INVALID"
)

// Payable indica se o bilhete entra na apuração
func (s TicketStatus) Payable() bool { return s == TicketPaid }

// Outcome é o resultado de uma partida
type Outcome string

const (
	OutcomeFirst  Outcome = "FIRST"
	OutcomeDraw   Outcome = "DRAW"
	OutcomeSecond Outcome = "SECOND"
)

// Outcomes lista os resultados possíveis em ordem fixa
var Outcomes = []Outcome{OutcomeFirst, OutcomeDraw, OutcomeSecond}

func (o Outcome) Valid() bool {
	return o == OutcomeFirst || o == OutcomeDraw || o == OutcomeSecond
}

// Draw é uma rodada de um jogo
type Draw struct {
	ID          string     `json:"id"`
	GameID      string     `json:"gameId"`
	GameType    GameType   `json:"gameType"`
	ScheduledAt time.Time  `json:"scheduledAt"`
	Status      DrawStatus `json:"status"`
	Results     *ResultSet `json:"results,omitempty"`
	SettledAt   *time.Time `json:"settledAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// AcceptsTickets: vendas só em OPEN ou AWAITING_RESULTS
func (d Draw) AcceptsTickets() bool {
	return d.Status == DrawOpen || d.Status == DrawAwaitingResults
}

// Pick guarda o palpite gravado na compra; nunca é alterado pela apuração.
//   - FIXED_POOL: Outcomes[i] é o palpite da partida de ordinal i+1
//   - TIME_WINDOW: Hour escolhida + Minute da compra
//   - DIRECT_NUMBER: Number literal
type Pick struct {
	Outcomes []Outcome `json:"outcomes,omitempty"`
	Hour     *int      `json:"hour,omitempty"`
	Minute   *int      `json:"minute,omitempty"`
	Number   string    `json:"number,omitempty"`
}

// Clone devolve uma cópia profunda
func (p Pick) Clone() Pick {
	out := Pick{Number: p.Number}
	if p.Outcomes != nil {
		out.Outcomes = append([]Outcome(nil), p.Outcomes...)
	}
	if p.Hour != nil {
		h := *p.Hour
		out.Hour = &h
	}
	if p.Minute != nil {
		m := *p.Minute
		out.Minute = &m
	}
	return out
}

// TimeWindowPick monta o palpite com o minuto implícito da compra
func TimeWindowPick(hour int, purchasedAt time.Time) Pick {
	m := purchasedAt.Minute()
	return Pick{Hour: &hour, Minute: &m}
}

// TicketSnapshot é a visão do bilhete consumida pelo motor
type TicketSnapshot struct {
	ID          string       `json:"id"`
	DrawID      string       `json:"drawId"`
	StakeCents  int64        `json:"stakeCents"`
	Pick        Pick         `json:"pick"`
	PurchasedAt time.Time    `json:"purchasedAt"`
	Status      TicketStatus `json:"status"`
	HitCount    *int         `json:"hitCount,omitempty"`
	PrizeCents  int64        `json:"prizeCents"`
}
