package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radieske/pool-settlement/internal/settlement-service/dto"
	"github.com/radieske/pool-settlement/internal/settlement-service/ws"
	"github.com/radieske/pool-settlement/internal/settlement/domain"
	"github.com/radieske/pool-settlement/internal/settlement/engine"
	"github.com/radieske/pool-settlement/internal/settlement/liability"
	"github.com/radieske/pool-settlement/internal/shared/clock"
)

// ResultCache é o cache de leitura dos resultados apurados e da exposição
type ResultCache interface {
	GetSettlement(ctx context.Context, drawID string) ([]byte, bool, error)
	SetSettlement(ctx context.Context, drawID string, raw []byte, ttl time.Duration) error
	GetExposure(ctx context.Context, drawID string, top int) (liability.Report, bool, error)
	SetExposure(ctx context.Context, drawID string, top int, rep liability.Report, ttl time.Duration) error
	InvalidateExposure(ctx context.Context, drawID string) error
}

// Broadcaster publica atualizações de concurso para o dashboard
type Broadcaster interface {
	Publish(ctx context.Context, drawID, kind string, payload any) error
}

// API expõe os endpoints REST de concursos, bilhetes, resultados e apuração.
// Cache, Broadcast e Hub são opcionais.
type API struct {
	Svc       *engine.Service
	Cache     ResultCache
	Broadcast Broadcaster
	Hub       *ws.Hub
	Log       *zap.Logger
	Clock     clock.Clock

	SettlementTTL time.Duration
	ExposureTTL   time.Duration
	ExposureTop   int // top padrão quando a query não informa
}

// Router retorna o roteador HTTP com os endpoints REST e o /ws
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Post("/v1/draws", a.openDraw)                                    // Abre concurso
	r.Get("/v1/draws/{id}", a.getDraw)                                 // Consulta concurso
	r.Post("/v1/draws/{id}/tickets", a.placeTicket)                    // Vende bilhete
	r.Post("/v1/draws/{id}/tickets/{ticketId}/cancel", a.cancelTicket) // Cancela bilhete
	r.Post("/v1/draws/{id}/close", a.closeSales)                       // Encerra vendas
	r.Put("/v1/draws/{id}/results", a.recordResults)                   // Lança resultados
	r.Post("/v1/draws/{id}/settle", a.settle)                          // Apura
	r.Get("/v1/draws/{id}/settlement", a.getSettlement)                // Resultado gravado
	r.Get("/v1/draws/{id}/exposure", a.getExposure)                    // Exposição
	r.Get("/v1/tickets/{id}", a.getTicket)                             // Consulta bilhete
	if a.Hub != nil {
		r.Get("/ws", a.Hub.HandleWS)
	}
	return r
}

func (a *API) now() time.Time {
	if a.Clock == nil {
		return clock.System().Now()
	}
	return a.Clock.Now()
}

// writeJSON serializa a resposta em JSON e define o status HTTP
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError traduz os erros de domínio em status HTTP
func (a *API) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		a.Log.Error("request failed", zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, dto.ErrorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrDrawNotFound),
		errors.Is(err, domain.ErrTicketNotFound),
		errors.Is(err, domain.ErrNotSettled):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadySettled),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrSalesClosed),
		errors.Is(err, domain.ErrIncompleteResult),
		errors.Is(err, domain.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidPick),
		errors.Is(err, domain.ErrInvalidResult),
		errors.Is(err, domain.ErrInvalidStake),
		errors.Is(err, domain.ErrUnknownGame),
		errors.Is(err, domain.ErrInvalidTierTable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrPersistenceFailure):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func badRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid body: " + err.Error()})
}
