package events

import (
	"encoding/json"
	"time"
)

// Evento publicado no tópico "draw_settled" após a apuração de um concurso.
// Result carrega os bytes canônicos gravados; reapurações publicam os mesmos bytes com Replayed=true.
type DrawSettled struct {
	DrawID                string          `json:"drawId"`
	GameID                string          `json:"gameId"`
	TotalStakeCents       int64           `json:"totalStakeCents"`
	TotalDistributedCents int64           `json:"totalDistributedCents"`
	ForfeitedCents        int64           `json:"forfeitedCents"`
	WinnersByTier         map[string]int  `json:"winnersByTier"`
	Replayed              bool            `json:"replayed"`
	Result                json.RawMessage `json:"result"`
	Ts                    time.Time       `json:"ts"`
}
