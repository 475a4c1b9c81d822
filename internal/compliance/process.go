package compliance

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"flightledger/internal/fingerprint"
	"flightledger/internal/platform/metrics"
	"flightledger/pkg/pipeline"
)

const stageValidate = "compliance_validate"

// ProcessClient invokes the rules engine as a subprocess per request: the
// flight-plan JSON goes to stdin, one JSON document comes back on stdout.
// The context bounds the whole invocation.
type ProcessClient struct {
	command []string
	timeout time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewProcessClient builds a client for the given validator command line.
func NewProcessClient(command []string, timeout time.Duration, logger *slog.Logger, m *metrics.Metrics) *ProcessClient {
	return &ProcessClient{
		command: command,
		timeout: timeout,
		logger:  logger,
		metrics: m,
	}
}

// Validate runs the engine and enforces its output contract. Empty stdout is
// an error whatever the exit code: a validator that says nothing has not
// validated anything.
func (c *ProcessClient) Validate(ctx context.Context, plan any) (Result, error) {
	if len(c.command) == 0 {
		return Result{}, pipeline.New(pipeline.ErrorExternalProcess, stageValidate, "no validator command configured", nil)
	}

	input, err := json.Marshal(plan)
	if err != nil {
		return Result{}, pipeline.New(pipeline.ErrorInputValidation, stageValidate, "flight plan is not serializable", err)
	}

	start := time.Now()
	stdout, stderr, exitErr := c.run(ctx, input)
	c.metrics.ObserveValidator(time.Since(start))

	if strings.TrimSpace(string(stdout)) == "" {
		if exitErr != nil {
			return Result{}, pipeline.New(pipeline.ErrorExternalProcess, stageValidate,
				"validator produced no output: "+firstLine(stderr), exitErr)
		}
		return Result{}, pipeline.New(pipeline.ErrorExternalProcess, stageValidate,
			"validator exited cleanly but produced no output", nil)
	}

	var resp wireResponse
	if err := json.Unmarshal(stdout, &resp); err != nil {
		return Result{}, pipeline.New(pipeline.ErrorExternalProcess, stageValidate,
			"validator output is not valid JSON", err)
	}

	if resp.Error != "" {
		// Surface the engine's own error text verbatim.
		return Result{}, pipeline.New(pipeline.ErrorExternalProcess, stageValidate, resp.Error, exitErr)
	}

	result := Result{
		Messages:            resp.ComplianceMessages,
		CriticallyCompliant: resp.CriticallyCompliant,
	}
	if resp.ContentRef != nil {
		result.StorageRef = *resp.ContentRef
	}
	if resp.DataHash != nil && *resp.DataHash != "" {
		digest, err := fingerprint.Parse(*resp.DataHash)
		if err != nil {
			return Result{}, pipeline.New(pipeline.ErrorExternalProcess, stageValidate,
				"validator returned a malformed digest", err)
		}
		result.Fingerprint = &digest
	}

	if exitErr != nil {
		c.logger.WarnContext(ctx, "validator exited non-zero but produced parseable output",
			"error", exitErr.Error(),
			"stderr", firstLine(stderr),
		)
	}
	return result, nil
}

func (c *ProcessClient) run(ctx context.Context, input []byte) (stdout, stderr []byte, err error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.command[0], c.command[1:]...)
	cmd.Stdin = bytes.NewReader(input)
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	err = cmd.Run()
	return outBuf.Bytes(), errBuf.Bytes(), err
}

func firstLine(b []byte) string {
	s := strings.TrimSpace(string(b))
	if s == "" {
		return "no stderr"
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}
