package asset

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"flightledger/internal/fingerprint"
	"flightledger/internal/transport/httpjson"
	"flightledger/pkg/pipeline"
	"flightledger/pkg/platform/sentinel"
)

// Handler exposes tokenization over HTTP.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler builds a Handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the asset routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/assets", h.tokenize)
	r.Get("/assets/{fingerprint}", h.get)
}

type tokenizeRequest struct {
	InitialFingerprint   string `json:"initialFingerprint"`
	TelemetryFingerprint string `json:"telemetryFingerprint"`
	StorageRef           string `json:"storageRef"`
}

type tokenizeResponse struct {
	AssetID string `json:"assetId"`
	TermsID uint64 `json:"licenseTermsId"`
	TokenID uint64 `json:"tokenId"`
	TxHash  string `json:"txHash,omitempty"`
}

func (h *Handler) tokenize(w http.ResponseWriter, r *http.Request) {
	var req tokenizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	initial, err := fingerprint.Parse(req.InitialFingerprint)
	if err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid initialFingerprint")
		return
	}
	var telemetry fingerprint.Digest
	if req.TelemetryFingerprint != "" {
		if telemetry, err = fingerprint.Parse(req.TelemetryFingerprint); err != nil {
			httpjson.Error(w, http.StatusBadRequest, "invalid telemetryFingerprint")
			return
		}
	}

	result, err := h.service.Tokenize(r.Context(), TokenizeRequest{
		Initial:    initial,
		Telemetry:  telemetry,
		StorageRef: req.StorageRef,
	})
	if err != nil {
		h.logger.Error("tokenize failed", "error", err, "fingerprint", initial)
		// Surface the surviving terms ID so clients can retry cheaply.
		httpjson.Write(w, httpjson.StatusFor(err), map[string]any{
			"error":          err.Error(),
			"category":       string(pipeline.Category(err)),
			"licenseTermsId": uint64(result.TermsID),
		})
		return
	}
	httpjson.Write(w, http.StatusCreated, tokenizeResponse{
		AssetID: string(result.AssetID),
		TermsID: uint64(result.TermsID),
		TokenID: result.TokenID,
		TxHash:  result.Tx.Hash,
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	initial, err := fingerprint.Parse(chi.URLParam(r, "fingerprint"))
	if err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid fingerprint")
		return
	}
	meta, err := h.service.Get(r.Context(), initial)
	if errors.Is(err, sentinel.ErrNotFound) {
		httpjson.Error(w, http.StatusNotFound, "no tokenized asset for fingerprint")
		return
	}
	if err != nil {
		h.logger.Error("asset lookup failed", "error", err, "fingerprint", initial)
		httpjson.Error(w, http.StatusInternalServerError, "asset lookup failed")
		return
	}
	httpjson.Write(w, http.StatusOK, meta)
}
