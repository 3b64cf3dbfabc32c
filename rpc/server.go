package rpc

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	nativecommon "marketd/native/common"
	"marketd/native/market"
	"marketd/observability"
)

// Server exposes the settlement engine's public commands over HTTP. The host
// in front of this server is responsible for authenticating callers and for
// executing the outbound instructions returned in each receipt atomically
// with the request.
type Server struct {
	engine  *market.Engine
	log     *slog.Logger
	metrics *observability.MarketMetrics
}

// NewServer creates an RPC server bound to the supplied engine.
func NewServer(engine *market.Engine, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		engine:  engine,
		log:     log,
		metrics: observability.Market(),
	}
}

// Router assembles the HTTP surface.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1/market", func(mr chi.Router) {
		mr.Post("/notify/coin", s.handleCoinNotice)
		mr.Post("/notify/item", s.handleItemNotice)
		mr.Post("/withdraw/item", s.handleWithdrawItem)
		mr.Post("/withdraw/bid", s.handleWithdrawBid)
		mr.Post("/withdraw/coin", s.handleWithdrawCoin)
		mr.Get("/deposits/coin", s.handleCoinDeposits)
		mr.Get("/deposits/item", s.handleItemDeposits)
		mr.Get("/bid", s.handleBid)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error string `json:"error"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, market.ErrNoSuchDeposit),
		errors.Is(err, market.ErrNoSuchAsk),
		errors.Is(err, market.ErrNoBidToWithdraw):
		return http.StatusNotFound
	case errors.Is(err, market.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, market.ErrAlreadyDeposited):
		return http.StatusConflict
	case errors.Is(err, nativecommon.ErrModulePaused):
		return http.StatusServiceUnavailable
	case errors.Is(err, market.ErrInvalidAmount),
		errors.Is(err, market.ErrBidTooHigh),
		errors.Is(err, market.ErrBidTooLow),
		errors.Is(err, market.ErrInsufficientDeposit),
		errors.Is(err, market.ErrPaymentTokenMismatch),
		errors.Is(err, market.ErrArithmeticOverflow),
		errors.Is(err, market.ErrArithmeticUnderflow),
		errors.Is(err, market.ErrInvalidPayload):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, action string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error("transition failed", "action", action, "err", err)
	} else {
		s.log.Info("transition rejected", "action", action, "err", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decodeBody(r *http.Request, out interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}
