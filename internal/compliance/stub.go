package compliance

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"

	"flightledger/internal/fingerprint"
	flightmodels "flightledger/internal/flight/models"
	"flightledger/pkg/pipeline"
)

// Putter is the slice of the content-addressed storage surface the stub needs.
type Putter interface {
	Put(ctx context.Context, data []byte) (string, error)
}

// StubValidator is an in-process rules engine applying the deterministic
// checks only: date not in the past, HH:MM times inside operational hours with
// end after start, weight between 50 g and 25 kg. It produces the same wire
// semantics as the external engine, so dev deployments and tests exercise the
// full gate without a subprocess.
type StubValidator struct {
	storage Putter // optional; nil skips the content-addressed copy
	logger  *slog.Logger
	now     func() time.Time
}

// NewStubValidator builds the stub. storage may be nil.
func NewStubValidator(storage Putter, logger *slog.Logger) *StubValidator {
	return &StubValidator{storage: storage, logger: logger, now: time.Now}
}

var (
	operationalStart = mustClock("09:00")
	operationalEnd   = mustClock("17:30")
)

// Validate applies the deterministic checks and, when the plan is critically
// compliant, normalizes and fingerprints the validation package. Messages are
// produced for every failing check and returned even on failure.
func (v *StubValidator) Validate(ctx context.Context, plan any) (Result, error) {
	p, err := asPlan(plan)
	if err != nil {
		return Result{}, pipeline.New(pipeline.ErrorInputValidation, stageValidate, "flight plan has unexpected shape", err)
	}

	messages := v.check(p)
	if len(messages) > 0 {
		return Result{
			Messages:            messages,
			CriticallyCompliant: false,
		}, nil
	}

	pkg := validationPackage(p, messages)
	digest, err := fingerprint.Hash(pkg)
	if err != nil {
		return Result{}, err
	}

	result := Result{
		Messages:            []string{"Flight plan appears compliant."},
		CriticallyCompliant: true,
		Fingerprint:         &digest,
	}

	if v.storage != nil {
		canonical, err := fingerprint.Canonical(pkg)
		if err == nil {
			if ref, putErr := v.storage.Put(ctx, canonical); putErr == nil {
				result.StorageRef = ref
			} else if v.logger != nil {
				v.logger.WarnContext(ctx, "validated package upload failed, fingerprint remains authoritative",
					"fingerprint", digest.String(),
					"error", putErr.Error(),
				)
			}
		}
	}
	return result, nil
}

func (v *StubValidator) check(p flightmodels.Plan) []string {
	var messages []string

	if p.FlightDate == "" {
		messages = append(messages, "Flight date is missing.")
	} else if d, err := time.Parse("2006-01-02", p.FlightDate); err != nil {
		messages = append(messages, fmt.Sprintf("Invalid date format: %s. Expected YYYY-MM-DD.", p.FlightDate))
	} else if y, m, day := v.now().Date(); d.Before(time.Date(y, m, day, 0, 0, 0, 0, time.UTC)) {
		messages = append(messages, fmt.Sprintf("Flight date %s is in the past.", p.FlightDate))
	}

	start, startErr := parseClock(p.StartTime)
	end, endErr := parseClock(p.EndTime)
	switch {
	case p.StartTime == "" || p.EndTime == "":
		if p.StartTime == "" {
			messages = append(messages, "Start time is missing.")
		}
		if p.EndTime == "" {
			messages = append(messages, "End time is missing.")
		}
	case startErr != nil || endErr != nil:
		messages = append(messages, "Invalid time format. Expected HH:MM for both start and end times.")
	default:
		if end <= start {
			messages = append(messages, fmt.Sprintf("End time %s must be after start time %s.", p.EndTime, p.StartTime))
		}
		if start < operationalStart || start > operationalEnd || end < operationalStart || end > operationalEnd {
			messages = append(messages, fmt.Sprintf("Flight times (%s - %s) must be between 09:00 and 17:30.", p.StartTime, p.EndTime))
		}
	}

	switch {
	case p.Weight == 0:
		messages = append(messages, "Drone weight is missing.")
	case p.Weight > 25000:
		messages = append(messages, fmt.Sprintf("Drone weight (%gg) exceeds 25000g (25kg). Additional regulations may apply.", p.Weight))
	case p.Weight < 50:
		messages = append(messages, fmt.Sprintf("Drone weight (%gg) is below minimum allowed (50g).", p.Weight))
	}

	return messages
}

// validationPackage is the normalized structure that gets fingerprinted. The
// shape is fixed by schema, not by object insertion order, so a resubmission
// of the same logical plan yields the same digest.
func validationPackage(p flightmodels.Plan, messages []string) map[string]any {
	if messages == nil {
		messages = []string{}
	}
	return map[string]any{
		"flight_data": map[string]any{
			"droneName":         p.DroneName,
			"droneModel":        p.DroneModel,
			"droneType":         p.DroneType,
			"serialNumber":      p.SerialNumber,
			"weight":            p.Weight,
			"flightPurpose":     p.FlightPurpose,
			"flightDescription": p.FlightDescription,
			"flightDate":        p.FlightDate,
			"startTime":         p.StartTime,
			"endTime":           p.EndTime,
			"dayNightOperation": p.DayNightOperation,
			"flightAreaCenter": map[string]any{
				"latitude":  round6(p.FlightAreaCenter.Latitude),
				"longitude": round6(p.FlightAreaCenter.Longitude),
			},
			"flightAreaRadius":    p.FlightAreaRadius,
			"flightAreaMaxHeight": p.FlightAreaMaxHeight,
			"additionalNotes":     p.AdditionalNotes,
		},
		"validation_results": map[string]any{
			"deterministic_checks": messages,
		},
	}
}

func asPlan(plan any) (flightmodels.Plan, error) {
	if p, ok := plan.(flightmodels.Plan); ok {
		return p, nil
	}
	raw, err := json.Marshal(plan)
	if err != nil {
		return flightmodels.Plan{}, err
	}
	var p flightmodels.Plan
	if err := json.Unmarshal(raw, &p); err != nil {
		return flightmodels.Plan{}, err
	}
	return p, nil
}

func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

func mustClock(s string) int {
	m, err := parseClock(s)
	if err != nil {
		panic(err)
	}
	return m
}

func round6(f float64) float64 {
	return math.Round(f*1e6) / 1e6
}
