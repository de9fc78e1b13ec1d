package hits

import (
	"fmt"
	"strings"
	"time"

	"github.com/radieske/pool-settlement/internal/settlement/domain"
)

// MaxEnumeratedMatches: até aqui a exposição avalia todos os 3^N vetores; acima
// disso, só a vizinhança dos palpites que ainda alcança alguma faixa
const MaxEnumeratedMatches = 10

// FixedPool conta acertos partida a partida (ex.: loteria esportiva de 14 jogos)
type FixedPool struct {
	Matches int
}

func (f FixedPool) GameType() domain.GameType { return domain.GameFixedPool }

func (f FixedPool) MaxHits() int { return f.Matches }

func (f FixedPool) CheckComplete(rs domain.ResultSet) error {
	if rs.GameType() != domain.GameFixedPool {
		return fmt.Errorf("%w: expected %s result, got %s", domain.ErrInvalidResult, domain.GameFixedPool, rs.GameType())
	}
	var missing []string
	for ord := 1; ord <= f.Matches; ord++ {
		if _, ok := rs.OutcomeAt(ord); !ok {
			missing = append(missing, fmt.Sprint(ord))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing match outcomes [%s]", domain.ErrIncompleteResult, strings.Join(missing, ","))
	}
	return nil
}

func (f FixedPool) ValidatePick(p domain.Pick) error {
	if len(p.Outcomes) != f.Matches {
		return fmt.Errorf("%w: expected %d outcomes, got %d", domain.ErrInvalidPick, f.Matches, len(p.Outcomes))
	}
	for i, o := range p.Outcomes {
		if !o.Valid() {
			return fmt.Errorf("%w: outcome %q at ordinal %d", domain.ErrInvalidPick, o, i+1)
		}
	}
	if p.Hour != nil || p.Minute != nil || p.Number != "" {
		return fmt.Errorf("%w: unexpected fields for %s", domain.ErrInvalidPick, domain.GameFixedPool)
	}
	return nil
}

func (f FixedPool) Classify(p domain.Pick, rs domain.ResultSet) (Result, error) {
	if err := f.CheckComplete(rs); err != nil {
		return Result{}, err
	}
	if err := f.ValidatePick(p); err != nil {
		return Result{}, err
	}
	n := 0
	for i, o := range p.Outcomes {
		got, _ := rs.OutcomeAt(i + 1)
		if o == got {
			n++
		}
	}
	return Result{Hits: n}, nil
}

// Candidates enumera os 3^N vetores quando N ≤ MaxEnumeratedMatches.
// Acima disso, um vetor só paga se estiver a no máximo N-minHits partidas de
// algum palpite válido: enumera essa vizinhança em torno de cada palpite
// distinto, sem repetir vetores. Os demais resultados pagam zero.
func (f FixedPool) Candidates(drawID string, open []domain.TicketSnapshot, minHits int) ([]domain.ResultSet, error) {
	var vectors [][]domain.Outcome
	if f.Matches <= MaxEnumeratedMatches {
		vectors = enumerateOutcomes(f.Matches)
	} else {
		if minHits < 1 {
			minHits = 1
		}
		radius := max(f.Matches-minHits, 0)
		seen := make(map[string]struct{})
		centers := make(map[string]struct{})
		for _, t := range open {
			if f.ValidatePick(t.Pick) != nil {
				continue
			}
			k := outcomeKey(t.Pick.Outcomes)
			if _, ok := centers[k]; ok {
				continue
			}
			centers[k] = struct{}{}
			vectors = appendNeighbourhood(vectors, t.Pick.Outcomes, radius, seen)
		}
	}

	out := make([]domain.ResultSet, 0, len(vectors))
	for _, v := range vectors {
		matches := make([]domain.MatchResult, len(v))
		for i := range v {
			o := v[i]
			matches[i] = domain.MatchResult{Ordinal: i + 1, Outcome: &o}
		}
		rs, err := domain.NewMatchResults(drawID, time.Time{}, matches)
		if err != nil {
			return nil, err
		}
		out = append(out, rs)
	}
	return out, nil
}

// appendNeighbourhood acrescenta os vetores a distância ≤ radius de center que
// ainda não estão em seen. As posições trocadas crescem a cada nível, então
// cada vetor da vizinhança é gerado uma única vez por centro.
func appendNeighbourhood(dst [][]domain.Outcome, center []domain.Outcome, radius int, seen map[string]struct{}) [][]domain.Outcome {
	cur := append([]domain.Outcome(nil), center...)
	var walk func(from, left int)
	walk = func(from, left int) {
		k := outcomeKey(cur)
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			dst = append(dst, append([]domain.Outcome(nil), cur...))
		}
		if left == 0 {
			return
		}
		for i := from; i < len(cur); i++ {
			orig := cur[i]
			for _, o := range domain.Outcomes {
				if o == orig {
					continue
				}
				cur[i] = o
				walk(i+1, left-1)
			}
			cur[i] = orig
		}
	}
	walk(0, radius)
	return dst
}

func matchesLabel(rs domain.ResultSet) string {
	ms := rs.Matches()
	vec := make([]domain.Outcome, 0, len(ms))
	for _, m := range ms {
		if m.Outcome != nil {
			vec = append(vec, *m.Outcome)
		}
	}
	return outcomeKey(vec)
}

func enumerateOutcomes(n int) [][]domain.Outcome {
	total := 1
	for i := 0; i < n; i++ {
		total *= len(domain.Outcomes)
	}
	out := make([][]domain.Outcome, 0, total)
	for c := 0; c < total; c++ {
		v := make([]domain.Outcome, n)
		x := c
		for i := n - 1; i >= 0; i-- {
			v[i] = domain.Outcomes[x%3]
			x /= 3
		}
		out = append(out, v)
	}
	return out
}

func outcomeKey(vec []domain.Outcome) string {
	var b strings.Builder
	for _, o := range vec {
		switch o {
		case domain.OutcomeFirst:
			b.WriteByte('1')
		case domain.OutcomeDraw:
			b.WriteByte('X')
		case domain.OutcomeSecond:
			b.WriteByte('2')
		default:
			b.WriteByte('?')
		}
	}
	return b.String()
}
