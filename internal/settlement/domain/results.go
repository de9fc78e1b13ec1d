package domain

import (
	"fmt"
	"sort"
	"time"
)

// MatchResult é o resultado oficial de uma partida; Outcome nil = ainda não informado
type MatchResult struct {
	Ordinal int      `json:"ordinal"`
	Home    string   `json:"home"`
	Away    string   `json:"away"`
	Outcome *Outcome `json:"outcome,omitempty"`
}

// ResultSet é o snapshot imutável dos resultados oficiais de um concurso.
// Campos não exportados: só os construtores criam e os acessores devolvem cópias.
type ResultSet struct {
	drawID      string
	gameType    GameType
	matches     []MatchResult
	drawnValue  string
	submittedAt time.Time
}

// NewMatchResults cria o resultado de um concurso FIXED_POOL.
// Ordinais precisam ser únicos e > 0; outcomes nulos são aceitos (resultado parcial).
func NewMatchResults(drawID string, submittedAt time.Time, matches []MatchResult) (ResultSet, error) {
	if drawID == "" {
		return ResultSet{}, fmt.Errorf("%w: draw id required", ErrInvalidResult)
	}
	seen := make(map[int]struct{}, len(matches))
	cp := make([]MatchResult, 0, len(matches))
	for _, m := range matches {
		if m.Ordinal <= 0 {
			return ResultSet{}, fmt.Errorf("%w: ordinal %d", ErrInvalidResult, m.Ordinal)
		}
		if _, dup := seen[m.Ordinal]; dup {
			return ResultSet{}, fmt.Errorf("%w: duplicated ordinal %d", ErrInvalidResult, m.Ordinal)
		}
		seen[m.Ordinal] = struct{}{}
		if m.Outcome != nil {
			if !m.Outcome.Valid() {
				return ResultSet{}, fmt.Errorf("%w: outcome %q at ordinal %d", ErrInvalidResult, *m.Outcome, m.Ordinal)
			}
			o := *m.Outcome
			m.Outcome = &o
		}
		cp = append(cp, m)
	}
	sort.Slice(cp, func(i, j int) bool { return cp[i].Ordinal < cp[j].Ordinal })
	return ResultSet{drawID: drawID, gameType: GameFixedPool, matches: cp, submittedAt: submittedAt.UTC()}, nil
}

// NewDrawnValue cria o resultado de jogos numéricos (milhar / número seco).
// Valor vazio é aceito e tratado como resultado incompleto.
func NewDrawnValue(drawID string, gameType GameType, value string, submittedAt time.Time) (ResultSet, error) {
	if drawID == "" {
		return ResultSet{}, fmt.Errorf("%w: draw id required", ErrInvalidResult)
	}
	if gameType != GameTimeWindow && gameType != GameDirectNumber {
		return ResultSet{}, fmt.Errorf("%w: game type %q has no drawn value", ErrInvalidResult, gameType)
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return ResultSet{}, fmt.Errorf("%w: drawn value %q is not numeric", ErrInvalidResult, value)
		}
	}
	return ResultSet{drawID: drawID, gameType: gameType, drawnValue: value, submittedAt: submittedAt.UTC()}, nil
}

func (r ResultSet) DrawID() string         { return r.drawID }
func (r ResultSet) GameType() GameType     { return r.gameType }
func (r ResultSet) DrawnValue() string     { return r.drawnValue }
func (r ResultSet) SubmittedAt() time.Time { return r.submittedAt }

// Matches devolve uma cópia ordenada por ordinal
func (r ResultSet) Matches() []MatchResult {
	out := make([]MatchResult, len(r.matches))
	for i, m := range r.matches {
		if m.Outcome != nil {
			o := *m.Outcome
			m.Outcome = &o
		}
		out[i] = m
	}
	return out
}

// OutcomeAt busca o resultado pelo ordinal, nunca pelos rótulos dos participantes
func (r ResultSet) OutcomeAt(ordinal int) (Outcome, bool) {
	i := sort.Search(len(r.matches), func(i int) bool { return r.matches[i].Ordinal >= ordinal })
	if i < len(r.matches) && r.matches[i].Ordinal == ordinal && r.matches[i].Outcome != nil {
		return *r.matches[i].Outcome, true
	}
	return "", false
}

// ResultPayload é a forma serializável do ResultSet (banco e eventos)
type ResultPayload struct {
	DrawID      string        `json:"drawId"`
	GameType    GameType      `json:"gameType"`
	Matches     []MatchResult `json:"matches,omitempty"`
	DrawnValue  string        `json:"drawnValue,omitempty"`
	SubmittedAt time.Time     `json:"submittedAt"`
}

func (r ResultSet) Payload() ResultPayload {
	return ResultPayload{
		DrawID:      r.drawID,
		GameType:    r.gameType,
		Matches:     r.Matches(),
		DrawnValue:  r.drawnValue,
		SubmittedAt: r.submittedAt,
	}
}

// ResultSetFromPayload reconstrói e revalida o ResultSet
func ResultSetFromPayload(p ResultPayload) (ResultSet, error) {
	if p.GameType == GameFixedPool {
		return NewMatchResults(p.DrawID, p.SubmittedAt, p.Matches)
	}
	return NewDrawnValue(p.DrawID, p.GameType, p.DrawnValue, p.SubmittedAt)
}

func (r ResultSet) MarshalJSON() ([]byte, error) {
	return marshalCanonical(r.Payload())
}

func (r *ResultSet) UnmarshalJSON(b []byte) error {
	var p ResultPayload
	if err := unmarshalStrict(b, &p); err != nil {
		return err
	}
	rs, err := ResultSetFromPayload(p)
	if err != nil {
		return err
	}
	*r = rs
	return nil
}
