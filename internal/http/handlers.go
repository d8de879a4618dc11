package http

import (
	"encoding/json"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/utsavplanner/bookings-and-payments/internal/adapters/crdb"
	mongoadapter "github.com/utsavplanner/bookings-and-payments/internal/adapters/mongo"
	"github.com/utsavplanner/bookings-and-payments/internal/adapters/rabbit"
	redisadapter "github.com/utsavplanner/bookings-and-payments/internal/adapters/redis"
	"github.com/utsavplanner/bookings-and-payments/internal/config"
	"github.com/utsavplanner/bookings-and-payments/internal/domain"
	"github.com/utsavplanner/bookings-and-payments/internal/gateway/razorpay"
	"github.com/utsavplanner/bookings-and-payments/internal/idempotency"
	"github.com/utsavplanner/bookings-and-payments/internal/observability"
)

type Handlers struct {
	cfg       *config.Config
	repo      *crdb.Repository
	events    *mongoadapter.EventStore
	vendors   *mongoadapter.VendorStore
	audit     *mongoadapter.AuditLogger
	cache     *redisadapter.Cache
	idemp     *idempotency.Idempotency
	gateway   *razorpay.Client
	rabbitPub *rabbit.Publisher
	validate  *validator.Validate
	clock     domain.Clock
	logger    observability.Logger
}

func NewHandlers(
	cfg *config.Config,
	repo *crdb.Repository,
	events *mongoadapter.EventStore,
	vendors *mongoadapter.VendorStore,
	audit *mongoadapter.AuditLogger,
	cache *redisadapter.Cache,
	idemp *idempotency.Idempotency,
	gateway *razorpay.Client,
	rabbitPub *rabbit.Publisher,
	clock domain.Clock,
	logger observability.Logger,
) *Handlers {
	return &Handlers{
		cfg:       cfg,
		repo:      repo,
		events:    events,
		vendors:   vendors,
		audit:     audit,
		cache:     cache,
		idemp:     idemp,
		gateway:   gateway,
		rabbitPub: rabbitPub,
		validate:  validator.New(),
		clock:     clock,
		logger:    logger,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// writeError maps domain errors onto the HTTP taxonomy. Unexpected failures
// are logged and surfaced as a generic server error without internals.
func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "validation_error", Message: "validation failed", Fields: ve.Fields})
	case errors.Is(err, domain.ErrUnauthorized):
		writeJSON(w, http.StatusForbidden, errorBody{Error: "unauthorized", Message: "not authorized"})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not_found", Message: "not found"})
	case errors.Is(err, domain.ErrInvalidTransition):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid_transition", Message: err.Error()})
	case errors.Is(err, domain.ErrInvalidMutation):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid_mutation", Message: err.Error()})
	case errors.Is(err, domain.ErrInvalidSignature):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid_signature", Message: "invalid payment signature"})
	case errors.Is(err, domain.ErrUnsupportedCurrency):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "unsupported_currency", Message: "only INR is supported"})
	case errors.Is(err, domain.ErrGatewayUnavailable):
		h.logger.Error("payment gateway unavailable", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "gateway_unavailable", Message: "failed to reach payment gateway"})
	case errors.Is(err, domain.ErrDuplicateVendorProfile):
		writeJSON(w, http.StatusConflict, errorBody{Error: "duplicate_vendor_profile", Message: "user already has a vendor profile"})
	case errors.Is(err, crdb.ErrSerializationFailure):
		writeJSON(w, http.StatusConflict, errorBody{Error: "conflict", Message: "conflict, try again"})
	default:
		h.logger.Error("internal error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "server_error", Message: "server error"})
	}
}

// validationError converts validator output into the field-level shape.
func validationError(err error) *domain.ValidationError {
	ve := &domain.ValidationError{Fields: map[string]string{}}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			ve.Fields[fe.Field()] = "failed " + fe.Tag() + " validation"
		}
		return ve
	}
	ve.Fields["body"] = "malformed request"
	return ve
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}
