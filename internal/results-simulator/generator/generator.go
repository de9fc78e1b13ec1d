package generator

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/radieske/pool-settlement/pkg/contracts/events"
)

// Times usados para rotular as partidas simuladas
var teams = []string{
	"Flamengo", "Palmeiras", "Grêmio", "Internacional", "Corinthians", "Santos",
	"São Paulo", "Vasco", "Bahia", "Vitória", "Ceará", "Fortaleza",
	"Cruzeiro", "Atlético-MG", "Botafogo", "Fluminense", "Sport", "Náutico",
	"Coritiba", "Athletico-PR", "Goiás", "Vila Nova", "Remo", "Paysandu",
	"Avaí", "Figueirense", "Juventude", "Caxias",
}

var outcomes = []string{"FIRST", "DRAW", "SECOND"}

// Options controla o formato do resultado gerado
type Options struct {
	GameType     string
	MatchCount   int // FIXED_POOL
	NumberDigits int // DIRECT_NUMBER
	Partial      int // FIXED_POOL: quantas partidas ficam sem resultado
	Source       string
}

// Generator produz resultados aleatórios; com a mesma seed gera a mesma sequência
type Generator struct {
	rnd *rand.Rand
}

func New(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// Generate monta um ResultsEntered aleatório para o concurso
func (g *Generator) Generate(drawID string, opts Options, at time.Time) (events.ResultsEntered, error) {
	ev := events.ResultsEntered{
		DrawID:      drawID,
		GameType:    opts.GameType,
		SubmittedAt: at.UTC(),
		Source:      opts.Source,
	}

	switch opts.GameType {
	case "FIXED_POOL":
		if opts.MatchCount <= 0 || opts.MatchCount*2 > len(teams) {
			return ev, fmt.Errorf("match count %d out of range", opts.MatchCount)
		}
		order := g.rnd.Perm(len(teams))
		for i := 0; i < opts.MatchCount; i++ {
			m := events.MatchResult{
				Ordinal: i + 1,
				Home:    teams[order[2*i]],
				Away:    teams[order[2*i+1]],
			}
			if i < opts.MatchCount-opts.Partial {
				m.Outcome = outcomes[g.rnd.Intn(len(outcomes))]
			}
			ev.Matches = append(ev.Matches, m)
		}
	case "TIME_WINDOW":
		// HHMM
		ev.DrawnValue = fmt.Sprintf("%02d%02d", g.rnd.Intn(24), g.rnd.Intn(60))
	case "DIRECT_NUMBER":
		if opts.NumberDigits <= 0 || opts.NumberDigits > 9 {
			return ev, fmt.Errorf("number digits %d out of range", opts.NumberDigits)
		}
		var b strings.Builder
		for i := 0; i < opts.NumberDigits; i++ {
			b.WriteByte(byte('0' + g.rnd.Intn(10)))
		}
		ev.DrawnValue = b.String()
	default:
		return ev, fmt.Errorf("unknown game type %q", opts.GameType)
	}
	return ev, nil
}
