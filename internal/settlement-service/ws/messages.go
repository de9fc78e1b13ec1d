package ws

import "encoding/json"

// Tipos de atualização enviados ao dashboard
const (
	UpdateSettled       = "settled"
	UpdateExposureAlert = "exposure_alert"
)

// ClientMsg representa uma mensagem recebida do cliente WebSocket
// Type: subscribe | unsubscribe | ping
// DrawID: obrigatório para subscribe/unsubscribe
type ClientMsg struct {
	Type   string `json:"type"`
	DrawID string `json:"drawId"`
}

// DrawUpdate é a atualização de um concurso repassada aos inscritos
type DrawUpdate struct {
	DrawID  string          `json:"drawId"`
	Type    string          `json:"type"` // settled | exposure_alert
	Payload json.RawMessage `json:"payload"`
}
