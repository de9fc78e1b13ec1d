package events

import "time"

// Resultado de uma partida da loteria esportiva (ordinal começa em 1)
type MatchResult struct {
	Ordinal int    `json:"ordinal"`
	Home    string `json:"home"`
	Away    string `json:"away"`
	Outcome string `json:"outcome,omitempty"` // "FIRST" | "DRAW" | "SECOND"; vazio = ainda sem resultado
}

// Evento publicado no tópico "draw_results_entered" quando a banca lança resultados oficiais.
// Pode chegar parcial: o concurso só é apurado quando o resultado fica completo.
type ResultsEntered struct {
	DrawID      string        `json:"drawId"`
	GameType    string        `json:"gameType"`             // FIXED_POOL | TIME_WINDOW | DIRECT_NUMBER
	Matches     []MatchResult `json:"matches,omitempty"`    // FIXED_POOL
	DrawnValue  string        `json:"drawnValue,omitempty"` // TIME_WINDOW ("HHMM") e DIRECT_NUMBER
	SubmittedAt time.Time     `json:"submittedAt"`
	Source      string        `json:"source"` // ex: "results-simulator"
}
