package domain

import (
	"bytes"
	"encoding/json"
	"time"
)

// TicketOutcome é o resultado final de um bilhete na apuração.
// HitCount nulo: o palpite era inválido e o bilhete foi excluído do rateio (ver Anomaly).
type TicketOutcome struct {
	TicketID    string       `json:"ticketId"`
	HitCount    *int         `json:"hitCount"`
	PrizeCents  int64        `json:"prizeCents"`
	FinalStatus TicketStatus `json:"finalStatus"`
	Tier        string       `json:"tier,omitempty"`
	Anomaly     string       `json:"anomaly,omitempty"`
}

// TierSummary resume o rateio de uma faixa
type TierSummary struct {
	Name       string `json:"name"`
	Threshold  int    `json:"threshold"`
	Percentage string `json:"percentage"`
	PoolCents  int64  `json:"poolCents"`
	Winners    int    `json:"winners"`
	PrizeCents int64  `json:"prizeCents"` // por ganhador
	PaidCents  int64  `json:"paidCents"`
}

// SettlementResult é a saída completa da apuração de um concurso, pronta para gravar.
// Não carrega horário de relógio: duas apurações com as mesmas entradas geram os mesmos bytes.
type SettlementResult struct {
	DrawID                 string          `json:"drawId"`
	GameID                 string          `json:"gameId"`
	GameType               GameType        `json:"gameType"`
	PayoutRatio            string          `json:"payoutRatio"`
	TotalStakeCents        int64           `json:"totalStakeCents"`
	DistributablePoolCents int64           `json:"distributablePoolCents"`
	TotalDistributedCents  int64           `json:"totalDistributedCents"`
	ForfeitedCents         int64           `json:"forfeitedCents"`
	RoundingResidualCents  int64           `json:"roundingResidualCents"`
	Tiers                  []TierSummary   `json:"tiers"`
	Tickets                []TicketOutcome `json:"tickets"`
	InvalidTickets         int             `json:"invalidTickets"`
	ResultsSubmittedAt     time.Time       `json:"resultsSubmittedAt"`
}

// WinnersByTier devolve a contagem de ganhadores por nome de faixa
func (r SettlementResult) WinnersByTier() map[string]int {
	out := make(map[string]int, len(r.Tiers))
	for _, t := range r.Tiers {
		out[t.Name] = t.Winners
	}
	return out
}

// Outcome busca o resultado de um bilhete
func (r SettlementResult) Outcome(ticketID string) (TicketOutcome, bool) {
	for _, t := range r.Tickets {
		if t.TicketID == ticketID {
			return t, true
		}
	}
	return TicketOutcome{}, false
}

// Canonical serializa o resultado na forma gravada e publicada
func (r SettlementResult) Canonical() ([]byte, error) {
	return marshalCanonical(r)
}

// DecodeSettlement lê um resultado gravado com Canonical
func DecodeSettlement(b []byte) (SettlementResult, error) {
	var r SettlementResult
	err := unmarshalStrict(b, &r)
	return r, err
}

func marshalCanonical(v any) ([]byte, error) {
	return json.Marshal(v)
}

func unmarshalStrict(b []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
