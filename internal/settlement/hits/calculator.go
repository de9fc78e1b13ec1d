// Package hits implementa a contagem de acertos por tipo de jogo.
// Todas as funções são puras: sem I/O, sem relógio, seguras para uso concorrente.
package hits

import (
	"github.com/radieske/pool-settlement/internal/settlement/domain"
)

// Result é o veredito de um bilhete contra um ResultSet
type Result struct {
	Hits        int  `json:"hits"`
	HourMatch   bool `json:"hourMatch,omitempty"`
	MinuteMatch bool `json:"minuteMatch,omitempty"`
}

// Calculator é a regra de acerto de um tipo de jogo.
// Escolhido uma vez na configuração do concurso, nunca por bilhete.
type Calculator interface {
	GameType() domain.GameType
	// MaxHits é o maior valor possível de Result.Hits
	MaxHits() int
	// CheckComplete falha com domain.ErrIncompleteResult se faltar algum componente
	CheckComplete(rs domain.ResultSet) error
	// ValidatePick falha com domain.ErrInvalidPick se o palpite estiver malformado
	ValidatePick(p domain.Pick) error
	// Classify conta os acertos; exige resultado completo e palpite válido
	Classify(p domain.Pick, rs domain.ResultSet) (Result, error)
	// Candidates lista os resultados hipotéticos usados no cálculo de exposição.
	// minHits é o menor threshold da tabela: candidatos que não dão a nenhum
	// bilhete ao menos minHits acertos podem ser omitidos (pagam zero).
	Candidates(drawID string, open []domain.TicketSnapshot, minHits int) ([]domain.ResultSet, error)
}

// Label descreve um resultado candidato: "1X2..." para partidas, o valor sorteado nos demais
func Label(rs domain.ResultSet) string {
	if rs.GameType() == domain.GameFixedPool {
		return matchesLabel(rs)
	}
	return rs.DrawnValue()
}
