package httpapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radieske/pool-settlement/internal/settlement-service/dto"
	"github.com/radieske/pool-settlement/internal/settlement-service/ws"
	"github.com/radieske/pool-settlement/internal/settlement/domain"
	"github.com/radieske/pool-settlement/internal/settlement/engine"
	"github.com/radieske/pool-settlement/internal/settlement/liability"
)

func (a *API) openDraw(w http.ResponseWriter, r *http.Request) {
	var req dto.OpenDrawRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	d, err := a.Svc.OpenDraw(r.Context(), engine.OpenDrawInput{
		ID:          req.ID,
		GameID:      req.GameID,
		ScheduledAt: req.ScheduledAt,
	})
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (a *API) getDraw(w http.ResponseWriter, r *http.Request) {
	d, err := a.Svc.GetDraw(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (a *API) placeTicket(w http.ResponseWriter, r *http.Request) {
	drawID := chi.URLParam(r, "id")
	var req dto.PlaceTicketRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	outcomes, err := req.ToOutcomes()
	if err != nil {
		a.writeError(w, err)
		return
	}
	t, err := a.Svc.PlaceTicket(r.Context(), engine.PlaceTicketInput{
		TicketID:   req.TicketID,
		DrawID:     drawID,
		StakeCents: req.StakeCents,
		Outcomes:   outcomes,
		Hour:       req.Hour,
		Number:     req.Number,
	})
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.invalidateExposure(r.Context(), drawID)
	writeJSON(w, http.StatusCreated, t)
}

func (a *API) cancelTicket(w http.ResponseWriter, r *http.Request) {
	drawID := chi.URLParam(r, "id")
	t, err := a.Svc.CancelTicket(r.Context(), drawID, chi.URLParam(r, "ticketId"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.invalidateExposure(r.Context(), drawID)
	writeJSON(w, http.StatusOK, t)
}

func (a *API) closeSales(w http.ResponseWriter, r *http.Request) {
	d, err := a.Svc.CloseSales(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (a *API) recordResults(w http.ResponseWriter, r *http.Request) {
	drawID := chi.URLParam(r, "id")
	var req dto.ResultsRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	d, err := a.Svc.GetDraw(r.Context(), drawID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	rs, err := req.ToResultSet(drawID, d.GameType, a.now())
	if err != nil {
		a.writeError(w, err)
		return
	}
	d, err = a.Svc.RecordResults(r.Context(), drawID, rs)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (a *API) settle(w http.ResponseWriter, r *http.Request) {
	drawID := chi.URLParam(r, "id")
	out, err := a.Svc.Settle(r.Context(), drawID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	if a.Cache != nil {
		if err := a.Cache.SetSettlement(r.Context(), drawID, out.Raw, a.SettlementTTL); err != nil {
			a.Log.Warn("settlement cache set failed", zap.String("draw_id", drawID), zap.Error(err))
		}
	}
	if !out.Replayed {
		a.publish(r.Context(), drawID, ws.UpdateSettled, engine.SettledEvent(out, a.now()))
	}
	writeJSON(w, http.StatusOK, dto.SettleResponse{DrawID: drawID, Replayed: out.Replayed, Result: out.Raw})
}

// getSettlement devolve os bytes gravados sem reserializar
func (a *API) getSettlement(w http.ResponseWriter, r *http.Request) {
	raw, err := a.settlementRaw(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

func (a *API) getTicket(w http.ResponseWriter, r *http.Request) {
	t, err := a.Svc.GetTicket(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	resp := dto.TicketResponse{Ticket: t}
	if t.Status != domain.TicketPaid && t.Status != domain.TicketCancelled {
		raw, err := a.settlementRaw(r.Context(), t.DrawID)
		if err != nil {
			a.writeError(w, err)
			return
		}
		res, err := domain.DecodeSettlement(raw)
		if err != nil {
			a.writeError(w, err)
			return
		}
		if o, ok := res.Outcome(t.ID); ok {
			resp.Outcome = &o
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) getExposure(w http.ResponseWriter, r *http.Request) {
	drawID := chi.URLParam(r, "id")
	top := a.ExposureTop
	if q := r.URL.Query().Get("top"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "top must be a non-negative integer"})
			return
		}
		top = n
	}

	if a.Cache != nil {
		if rep, ok, _ := a.Cache.GetExposure(r.Context(), drawID, top); ok {
			writeJSON(w, http.StatusOK, rep)
			return
		}
	}

	rep, err := a.Svc.Exposure(r.Context(), drawID, top)
	if err != nil {
		a.writeError(w, err)
		return
	}
	if a.Cache != nil {
		if err := a.Cache.SetExposure(r.Context(), drawID, top, rep, a.ExposureTTL); err != nil {
			a.Log.Warn("exposure cache set failed", zap.String("draw_id", drawID), zap.Error(err))
		}
	}
	if rep.Flag != liability.FlagOK {
		worst, _ := rep.Worst()
		a.publish(r.Context(), drawID, ws.UpdateExposureAlert, map[string]any{
			"flag":              rep.Flag,
			"maxLiabilityCents": rep.MaxLiabilityCents,
			"worst":             worst,
		})
	}
	writeJSON(w, http.StatusOK, rep)
}

// settlementRaw lê do cache e cai no banco quando não acha
func (a *API) settlementRaw(ctx context.Context, drawID string) ([]byte, error) {
	if a.Cache != nil {
		if raw, ok, _ := a.Cache.GetSettlement(ctx, drawID); ok {
			return raw, nil
		}
	}
	_, raw, err := a.Svc.Settlement(ctx, drawID)
	if err != nil {
		return nil, err
	}
	if a.Cache != nil {
		_ = a.Cache.SetSettlement(ctx, drawID, raw, a.SettlementTTL)
	}
	return raw, nil
}

func (a *API) invalidateExposure(ctx context.Context, drawID string) {
	if a.Cache == nil {
		return
	}
	if err := a.Cache.InvalidateExposure(ctx, drawID); err != nil {
		a.Log.Warn("exposure cache invalidate failed", zap.String("draw_id", drawID), zap.Error(err))
	}
}

// publish é best-effort: falha no dashboard não desfaz a operação
func (a *API) publish(ctx context.Context, drawID, kind string, payload any) {
	if a.Broadcast == nil {
		return
	}
	if err := a.Broadcast.Publish(ctx, drawID, kind, payload); err != nil {
		a.Log.Warn("draw update publish failed", zap.String("draw_id", drawID), zap.String("type", kind), zap.Error(err))
	}
}
