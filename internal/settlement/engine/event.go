package engine

import (
	"encoding/json"
	"time"

	"github.com/radieske/pool-settlement/pkg/contracts/events"
)

// SettledEvent monta o evento draw_settled a partir do resultado da apuração.
// Result leva os bytes canônicos gravados, sem reserializar.
func SettledEvent(out SettleOutcome, at time.Time) events.DrawSettled {
	res := out.Result
	return events.DrawSettled{
		DrawID:                res.DrawID,
		GameID:                res.GameID,
		TotalStakeCents:       res.TotalStakeCents,
		TotalDistributedCents: res.TotalDistributedCents,
		ForfeitedCents:        res.ForfeitedCents,
		WinnersByTier:         res.WinnersByTier(),
		Replayed:              out.Replayed,
		Result:                json.RawMessage(out.Raw),
		Ts:                    at.UTC(),
	}
}
