// Package httptransport exposes the surety commands over JSON/HTTP.
package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/holiman/uint256"

	"flightsurety/internal/airline"
	"flightsurety/internal/consensus"
	"flightsurety/internal/ledger"
	"flightsurety/internal/platform/metrics"
	"flightsurety/internal/platform/middleware"
	"flightsurety/internal/platform/ratelimiter"
	id "flightsurety/pkg/domain"
	dErrors "flightsurety/pkg/domain-errors"
	"flightsurety/pkg/platform/httputil"
)

// Service is the command surface the handlers drive.
type Service interface {
	IsOperational(ctx context.Context) (bool, error)
	SetOperational(ctx context.Context, operational bool) error

	RegisterOracle(ctx context.Context, fee *uint256.Int) ([ledger.IndexCount]uint8, error)
	GetMyIndexes(ctx context.Context) ([ledger.IndexCount]uint8, error)
	FetchFlightStatus(ctx context.Context, flight id.FlightKey) (uint8, error)
	SubmitOracleResponse(ctx context.Context, index uint8, flight id.FlightKey, code int) (consensus.Outcome, error)
	FlightStatus(ctx context.Context, flight id.FlightKey) (*ledger.Flight, error)

	RegisterAirline(ctx context.Context, candidate id.AirlineID, name string) (*airline.Admission, error)
	FundAirline(ctx context.Context, airline id.AirlineID, amount *uint256.Int) error
	RegisterFlight(ctx context.Context, designator string, timestamp int64) (id.FlightKey, error)
	GetAirline(ctx context.Context, airline id.AirlineID) (*ledger.Airline, error)

	BuyInsurance(ctx context.Context, flight id.FlightKey, premium *uint256.Int) (*ledger.Policy, error)
	GetPassengerBalance(ctx context.Context) (*uint256.Int, error)
	GetPolicies(ctx context.Context) ([]*ledger.Policy, error)
	Withdraw(ctx context.Context) (*uint256.Int, error)
}

// Handler serves the /v1 API.
type Handler struct {
	surety          Service
	auth            middleware.Authenticator
	logger          *slog.Logger
	metrics         *metrics.Metrics
	responseLimiter *ratelimiter.MapLimiter
	devCallerHeader bool
}

type Option func(*Handler)

func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

// WithResponseLimiter throttles oracle responses per caller.
func WithResponseLimiter(l *ratelimiter.MapLimiter) Option {
	return func(h *Handler) {
		h.responseLimiter = l
	}
}

// WithDevCallerHeader trusts X-Caller-ID when no bearer token is sent.
func WithDevCallerHeader(enabled bool) Option {
	return func(h *Handler) {
		h.devCallerHeader = enabled
	}
}

func New(surety Service, auth middleware.Authenticator, opts ...Option) *Handler {
	h := &Handler{
		surety: surety,
		auth:   auth,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the API routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)

		r.Get("/operational", h.handleGetOperational)
		r.Get("/airlines/{airline}", h.handleGetAirline)
		r.Get("/flights/{airline}/{flight}/{timestamp}", h.handleFlightStatus)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireCaller(h.auth, h.devCallerHeader, h.logger))

			r.Put("/operational", h.handleSetOperational)

			r.Post("/oracles", h.handleRegisterOracle)
			r.Get("/oracles/me/indexes", h.handleGetMyIndexes)
			r.With(middleware.Throttle(h.responseLimiter, h.metrics, h.logger)).
				Post("/oracles/responses", h.handleSubmitOracleResponse)

			r.Post("/airlines", h.handleRegisterAirline)
			r.Post("/airlines/{airline}/funding", h.handleFundAirline)
			r.Post("/flights", h.handleRegisterFlight)
			r.Post("/flights/{airline}/{flight}/{timestamp}/status-requests", h.handleFetchFlightStatus)
			r.Post("/flights/{airline}/{flight}/{timestamp}/insurance", h.handleBuyInsurance)

			r.Get("/passengers/me/balance", h.handleGetBalance)
			r.Get("/passengers/me/policies", h.handleGetPolicies)
			r.Post("/passengers/me/withdrawals", h.handleWithdraw)
		})
	})
}

// -----------------------------------------------------------------------------
// Operational switch
// -----------------------------------------------------------------------------

func (h *Handler) handleGetOperational(w http.ResponseWriter, r *http.Request) {
	operational, err := h.surety.IsOperational(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, OperationalResponse{Operational: operational})
}

func (h *Handler) handleSetOperational(w http.ResponseWriter, r *http.Request) {
	var req OperationalRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Operational == nil {
		h.writeError(w, r, dErrors.New(dErrors.CodeInvalidInput, "operational is required"))
		return
	}
	if err := h.surety.SetOperational(r.Context(), *req.Operational); err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, OperationalResponse{Operational: *req.Operational})
}

// -----------------------------------------------------------------------------
// Oracles
// -----------------------------------------------------------------------------

func (h *Handler) handleRegisterOracle(w http.ResponseWriter, r *http.Request) {
	var req RegisterOracleRequest
	if !h.decode(w, r, &req) {
		return
	}
	fee, err := req.Fee.Parse()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	indexes, err := h.surety.RegisterOracle(r.Context(), fee)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, IndexesResponse{Indexes: indexes})
}

func (h *Handler) handleGetMyIndexes(w http.ResponseWriter, r *http.Request) {
	indexes, err := h.surety.GetMyIndexes(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, IndexesResponse{Indexes: indexes})
}

func (h *Handler) handleSubmitOracleResponse(w http.ResponseWriter, r *http.Request) {
	var req OracleResponseRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.StatusCode == nil {
		h.writeError(w, r, dErrors.New(dErrors.CodeInvalidStatusCode, "status_code is required"))
		return
	}
	flight, err := flightKey(req.Airline, req.Flight, req.Timestamp)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	outcome, err := h.surety.SubmitOracleResponse(r.Context(), req.Index, flight, *req.StatusCode)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newOutcomeResponse(outcome))
}

func (h *Handler) handleFetchFlightStatus(w http.ResponseWriter, r *http.Request) {
	flight, err := flightFromPath(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	index, err := h.surety.FetchFlightStatus(r.Context(), flight)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, StatusRequestResponse{Index: index, Key: flight})
}

func (h *Handler) handleFlightStatus(w http.ResponseWriter, r *http.Request) {
	flight, err := flightFromPath(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	f, err := h.surety.FlightStatus(r.Context(), flight)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newFlightResponse(f))
}

// -----------------------------------------------------------------------------
// Airlines and flights
// -----------------------------------------------------------------------------

func (h *Handler) handleRegisterAirline(w http.ResponseWriter, r *http.Request) {
	var req RegisterAirlineRequest
	if !h.decode(w, r, &req) {
		return
	}
	candidate, err := id.ParseAirlineID(req.Airline)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	admission, err := h.surety.RegisterAirline(r.Context(), candidate, req.Name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	status := http.StatusAccepted
	if admission.Registered {
		status = http.StatusCreated
	}
	httputil.WriteJSON(w, status, newAdmissionResponse(admission))
}

func (h *Handler) handleFundAirline(w http.ResponseWriter, r *http.Request) {
	target, err := id.ParseAirlineID(chi.URLParam(r, "airline"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req FundAirlineRequest
	if !h.decode(w, r, &req) {
		return
	}
	amount, err := req.Amount.Parse()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.surety.FundAirline(r.Context(), target, amount); err != nil {
		h.writeError(w, r, err)
		return
	}
	a, err := h.surety.GetAirline(r.Context(), target)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newAirlineResponse(a))
}

func (h *Handler) handleGetAirline(w http.ResponseWriter, r *http.Request) {
	target, err := id.ParseAirlineID(chi.URLParam(r, "airline"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	a, err := h.surety.GetAirline(r.Context(), target)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newAirlineResponse(a))
}

func (h *Handler) handleRegisterFlight(w http.ResponseWriter, r *http.Request) {
	var req RegisterFlightRequest
	if !h.decode(w, r, &req) {
		return
	}
	key, err := h.surety.RegisterFlight(r.Context(), req.Flight, req.Timestamp)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, key)
}

// -----------------------------------------------------------------------------
// Passengers
// -----------------------------------------------------------------------------

func (h *Handler) handleBuyInsurance(w http.ResponseWriter, r *http.Request) {
	flight, err := flightFromPath(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req BuyInsuranceRequest
	if !h.decode(w, r, &req) {
		return
	}
	premium, err := req.Premium.Parse()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	policy, err := h.surety.BuyInsurance(r.Context(), flight, premium)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, newPolicyResponse(policy))
}

func (h *Handler) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.surety.GetPassengerBalance(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, BalanceResponse{Balance: newAmountView(balance)})
}

func (h *Handler) handleGetPolicies(w http.ResponseWriter, r *http.Request) {
	policies, err := h.surety.GetPolicies(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]PolicyResponse, 0, len(policies))
	for _, p := range policies {
		out = append(out, newPolicyResponse(p))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	amount, err := h.surety.Withdraw(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, WithdrawalResponse{Amount: newAmountView(amount)})
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.logger.WarnContext(r.Context(), "invalid request body",
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return false
	}
	return true
}

// writeError logs server-side failures and writes the coded envelope.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if httputil.StatusFor(dErrors.CodeOf(err)) >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed",
			"request_id", middleware.GetRequestID(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}

func flightFromPath(r *http.Request) (id.FlightKey, error) {
	ts, err := strconv.ParseInt(chi.URLParam(r, "timestamp"), 10, 64)
	if err != nil {
		return id.FlightKey{}, dErrors.New(dErrors.CodeInvalidInput, "timestamp must be an integer")
	}
	return flightKey(chi.URLParam(r, "airline"), chi.URLParam(r, "flight"), ts)
}

func flightKey(rawAirline, designator string, timestamp int64) (id.FlightKey, error) {
	a, err := id.ParseAirlineID(rawAirline)
	if err != nil {
		return id.FlightKey{}, err
	}
	return id.NewFlightKey(a, designator, timestamp)
}
