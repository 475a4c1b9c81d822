package flight

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"flightledger/internal/fingerprint"
	"flightledger/internal/flight/models"
	"flightledger/internal/telemetry"
	"flightledger/internal/transport/httpjson"
)

// Handler exposes validation, submission and telemetry linking over HTTP.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler builds a Handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the flight routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/flights/validate", h.validate)
	r.Post("/flights", h.submit)
	r.Post("/flights/{fingerprint}/telemetry", h.linkTelemetry)
}

func (h *Handler) validate(w http.ResponseWriter, r *http.Request) {
	var plan models.Plan
	if err := json.NewDecoder(r.Body).Decode(&plan); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	result, err := h.service.Validate(r.Context(), plan)
	if err != nil {
		h.logger.Error("validation failed", "error", err)
		httpjson.CategoryError(w, err)
		return
	}
	resp := map[string]any{
		"complianceMessages":  result.Messages,
		"criticallyCompliant": result.CriticallyCompliant,
	}
	if result.Fingerprint != nil {
		resp["fingerprint"] = result.Fingerprint.String()
	}
	if result.StorageRef != "" {
		resp["storageRef"] = result.StorageRef
	}
	httpjson.Write(w, http.StatusOK, resp)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	var plan models.Plan
	if err := json.NewDecoder(r.Body).Decode(&plan); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	sub, err := h.service.Submit(r.Context(), plan)
	if err != nil {
		h.logger.Error("submission failed", "error", err)
		// The compliance messages still matter to the caller, so the error
		// envelope carries the partial submission.
		httpjson.Write(w, httpjson.StatusFor(err), map[string]any{
			"error":      err.Error(),
			"submission": sub,
		})
		return
	}
	status := http.StatusCreated
	if !sub.Registered {
		status = http.StatusUnprocessableEntity
	}
	httpjson.Write(w, status, sub)
}

type linkRequest struct {
	Entries []telemetry.LogEntry `json:"telemetry"`
}

func (h *Handler) linkTelemetry(w http.ResponseWriter, r *http.Request) {
	initial, err := fingerprint.Parse(chi.URLParam(r, "fingerprint"))
	if err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid fingerprint")
		return
	}
	var req linkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	result, err := h.service.LinkTelemetry(r.Context(), initial, req.Entries)
	if err != nil {
		h.logger.Error("telemetry link failed", "error", err, "fingerprint", initial)
		httpjson.CategoryError(w, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, result)
}
