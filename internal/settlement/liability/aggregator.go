// Package liability calcula a exposição da banca: para cada resultado possível,
// quanto seria pago com os bilhetes abertos no momento.
package liability

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/radieske/pool-settlement/internal/settlement/domain"
	"github.com/radieske/pool-settlement/internal/settlement/hits"
	"github.com/radieske/pool-settlement/internal/settlement/prize"
)

// Flag classifica um candidato em relação ao limite de exposição
type Flag string

const (
	FlagOK     Flag = "OK"
	FlagWarn   Flag = "WARN"
	FlagBreach Flag = "BREACH"
)

// Record é o pagamento hipotético de um resultado candidato
type Record struct {
	Candidate   string `json:"candidate"`
	PayoutCents int64  `json:"payoutCents"`
	Winners     int    `json:"winners"`
	Flag        Flag   `json:"flag"`
}

// Options controla o cálculo
type Options struct {
	DrawID            string
	MaxLiabilityCents int64           // 0 = sem limite, tudo OK
	WarnRatio         decimal.Decimal // fração do limite que gera WARN
	Concurrency       int             // 0 = GOMAXPROCS
	Top               int             // 0 = todos os candidatos
}

// Report é o snapshot de exposição de um concurso
type Report struct {
	DrawID                 string   `json:"drawId"`
	TotalStakeCents        int64    `json:"totalStakeCents"`
	DistributablePoolCents int64    `json:"distributablePoolCents"`
	OpenTickets            int      `json:"openTickets"`
	InvalidTickets         int      `json:"invalidTickets"`
	CandidatesEvaluated    int      `json:"candidatesEvaluated"`
	MaxLiabilityCents      int64    `json:"maxLiabilityCents"`
	Flag                   Flag     `json:"flag"`
	Records                []Record `json:"records"`
}

// Worst devolve o candidato de maior pagamento
func (r Report) Worst() (Record, bool) {
	if len(r.Records) == 0 {
		return Record{}, false
	}
	return r.Records[0], true
}

// Aggregate avalia todos os candidatos do calculador contra os bilhetes abertos,
// com a mesma regra de faixas da apuração. Somente leitura: nada é gravado.
// Registros saem ordenados por pagamento decrescente e depois por candidato.
func Aggregate(ctx context.Context, calc hits.Calculator, table prize.TierTable, ratio decimal.Decimal,
	open []domain.TicketSnapshot, opts Options) (Report, error) {

	if err := prize.ValidateRatio(ratio); err != nil {
		return Report{}, err
	}
	if err := table.Validate(); err != nil {
		return Report{}, err
	}

	if opts.DrawID == "" {
		opts.DrawID = "exposure"
	}
	rep := Report{DrawID: opts.DrawID, MaxLiabilityCents: opts.MaxLiabilityCents, Flag: FlagOK}
	valid := make([]domain.Pick, 0, len(open))
	payable := make([]domain.TicketSnapshot, 0, len(open))
	for _, t := range open {
		if !t.Status.Payable() {
			continue
		}
		payable = append(payable, t)
		rep.OpenTickets++
		rep.TotalStakeCents += t.StakeCents
		if calc.ValidatePick(t.Pick) != nil {
			// stake entra no pool, mas o bilhete nunca ganha
			rep.InvalidTickets++
			continue
		}
		valid = append(valid, t.Pick)
	}
	rep.DistributablePoolCents = prize.DistributablePool(rep.TotalStakeCents, ratio)

	cands, err := calc.Candidates(opts.DrawID, payable, table.Lowest())
	if err != nil {
		return Report{}, fmt.Errorf("candidates: %w", err)
	}
	rep.CandidatesEvaluated = len(cands)
	records := make([]Record, len(cands))

	workers := opts.Concurrency
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	chunk := (len(cands) + workers - 1) / workers
	if chunk == 0 {
		chunk = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for start := 0; start < len(cands); start += chunk {
		lo, hi := start, min(start+chunk, len(cands))
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				rec, err := evaluate(calc, table, ratio, rep.TotalStakeCents, valid, cands[i])
				if err != nil {
					return err
				}
				rec.Flag = flagFor(rec.PayoutCents, opts)
				records[i] = rec
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].PayoutCents != records[j].PayoutCents {
			return records[i].PayoutCents > records[j].PayoutCents
		}
		return records[i].Candidate < records[j].Candidate
	})
	if len(records) > 0 {
		rep.Flag = records[0].Flag
	}
	if opts.Top > 0 && len(records) > opts.Top {
		records = records[:opts.Top]
	}
	rep.Records = records
	return rep, nil
}

func evaluate(calc hits.Calculator, table prize.TierTable, ratio decimal.Decimal, stake int64,
	picks []domain.Pick, rs domain.ResultSet) (Record, error) {

	counts := make([]int, 0, len(picks))
	for _, p := range picks {
		res, err := calc.Classify(p, rs)
		if err != nil {
			return Record{}, fmt.Errorf("classify candidate %s: %w", hits.Label(rs), err)
		}
		counts = append(counts, res.Hits)
	}
	a, err := prize.Allocate(stake, ratio, table, counts)
	if err != nil {
		return Record{}, err
	}
	rec := Record{Candidate: hits.Label(rs), PayoutCents: a.TotalDistributedCents}
	for _, ta := range a.Tiers {
		rec.Winners += ta.Winners
	}
	return rec, nil
}

func flagFor(payout int64, opts Options) Flag {
	if opts.MaxLiabilityCents <= 0 {
		return FlagOK
	}
	if payout >= opts.MaxLiabilityCents {
		return FlagBreach
	}
	warnAt := decimal.NewFromInt(opts.MaxLiabilityCents).Mul(opts.WarnRatio)
	if !opts.WarnRatio.IsZero() && decimal.NewFromInt(payout).GreaterThanOrEqual(warnAt) {
		return FlagWarn
	}
	return FlagOK
}
