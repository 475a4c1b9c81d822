package revenue

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"net/http"

	"github.com/go-chi/chi/v5"

	"flightledger/internal/licensing"
	"flightledger/internal/transport/httpjson"
)

// Handler exposes vault bootstrap, royalty simulation, aggregation and claims.
type Handler struct {
	service      *Service
	bootstrapper *Bootstrapper
	token        licensing.Address
	// defaultPayment is used when a simulate request names no amount.
	defaultPayment *big.Int
	logger         *slog.Logger
}

// NewHandler builds a Handler.
func NewHandler(service *Service, bootstrapper *Bootstrapper, token licensing.Address, defaultPayment *big.Int, logger *slog.Logger) *Handler {
	return &Handler{
		service:        service,
		bootstrapper:   bootstrapper,
		token:          token,
		defaultPayment: defaultPayment,
		logger:         logger,
	}
}

// Register mounts the revenue routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/assets/{assetId}/royalties/simulate", h.simulate)
	r.Get("/revenue/{registrant}", h.aggregate)
	r.Post("/revenue/{assetId}/claim", h.claim)
}

type simulateRequest struct {
	LicenseTermsID uint64 `json:"licenseTermsId"`
	// AmountRaw is in base units; empty means the default payment.
	AmountRaw string `json:"amountRaw"`
}

func (h *Handler) simulate(w http.ResponseWriter, r *http.Request) {
	assetID := licensing.AssetID(chi.URLParam(r, "assetId"))
	var req simulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		httpjson.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	amount := h.defaultPayment
	if req.AmountRaw != "" {
		parsed, ok := new(big.Int).SetString(req.AmountRaw, 10)
		if !ok || parsed.Sign() <= 0 {
			httpjson.Error(w, http.StatusBadRequest, "amountRaw must be a positive base-unit integer")
			return
		}
		amount = parsed
	}

	tx, err := h.bootstrapper.PayRoyalty(r.Context(), assetID, licensing.TermsID(req.LicenseTermsID), h.token, amount)
	if err != nil {
		h.logger.Error("royalty simulation failed", "error", err, "assetId", assetID)
		httpjson.CategoryError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]any{
		"assetId":   assetID,
		"paidRaw":   amount.String(),
		"paid":      formatTokenAmount(amount),
		"txHash":    tx.Hash,
		"tokenAddr": h.token,
	})
}

func (h *Handler) aggregate(w http.ResponseWriter, r *http.Request) {
	registrant := chi.URLParam(r, "registrant")
	summary, err := h.service.Aggregate(r.Context(), registrant)
	if err != nil {
		h.logger.Error("aggregation failed", "error", err, "registrant", registrant)
		httpjson.CategoryError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, summary)
}

func (h *Handler) claim(w http.ResponseWriter, r *http.Request) {
	assetID := licensing.AssetID(chi.URLParam(r, "assetId"))
	outcome, err := h.service.Claim(r.Context(), assetID)
	if err != nil {
		h.logger.Error("claim failed", "error", err, "assetId", assetID)
		httpjson.CategoryError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, outcome)
}
