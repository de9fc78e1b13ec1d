package dto

import (
	"encoding/json"

	"github.com/radieske/pool-settlement/internal/settlement/domain"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// SettleResponse devolve o resultado canônico gravado, byte a byte
type SettleResponse struct {
	DrawID   string          `json:"drawId"`
	Replayed bool            `json:"replayed"`
	Result   json.RawMessage `json:"result"`
}

// TicketResponse é o bilhete e, depois da apuração, o resultado dele (faixa, anomalia)
type TicketResponse struct {
	Ticket  domain.TicketSnapshot `json:"ticket"`
	Outcome *domain.TicketOutcome `json:"outcome,omitempty"`
}
