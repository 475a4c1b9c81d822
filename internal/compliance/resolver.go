package compliance

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"flightledger/internal/asset"
	"flightledger/internal/fingerprint"
	"flightledger/internal/licensing"
	"flightledger/pkg/pipeline"
)

const stageResolve = "compliance_resolve"

// ProcessResolver answers batch metadata lookups through the same companion
// process as validation. The whole batch goes out in one invocation so N
// fingerprints still cost one round trip.
type ProcessResolver struct {
	client *ProcessClient
}

// NewProcessResolver reuses the validator's command and timeout.
func NewProcessResolver(client *ProcessClient) *ProcessResolver {
	return &ProcessResolver{client: client}
}

type resolveRequest struct {
	Action       string   `json:"action"`
	Fingerprints []string `json:"dataHashes"`
}

type resolveRecord struct {
	DataHash  string `json:"dataHash"`
	DgipHash  string `json:"dgipHash"`
	IPFSCid   string `json:"ipfsCid"`
	AssetID   string `json:"ipId"`
	TermsID   uint64 `json:"licenseTermsId"`
	TokenID   uint64 `json:"tokenId"`
	CreatedAt string `json:"createdAt"`
}

type resolveResponse struct {
	Records []resolveRecord `json:"records"`
	Error   string          `json:"error"`
}

// ResolveMany asks the companion process for the asset records behind the
// given fingerprints. Unknown fingerprints are absent from the result.
func (r *ProcessResolver) ResolveMany(ctx context.Context, initials []fingerprint.Digest) (map[fingerprint.Digest]asset.Metadata, error) {
	if len(initials) == 0 {
		return map[fingerprint.Digest]asset.Metadata{}, nil
	}
	if len(r.client.command) == 0 {
		return nil, pipeline.New(pipeline.ErrorExternalProcess, stageResolve, "no resolver command configured", nil)
	}

	req := resolveRequest{Action: "resolve_records", Fingerprints: make([]string, len(initials))}
	for i, fp := range initials {
		req.Fingerprints[i] = fp.String()
	}
	input, err := json.Marshal(req)
	if err != nil {
		return nil, pipeline.New(pipeline.ErrorInternal, stageResolve, "encode resolve request", err)
	}

	start := time.Now()
	stdout, stderr, exitErr := r.client.run(ctx, input)
	r.client.metrics.ObserveStage(stageResolve, time.Since(start))

	if strings.TrimSpace(string(stdout)) == "" {
		if exitErr != nil {
			return nil, pipeline.New(pipeline.ErrorExternalProcess, stageResolve,
				"resolver produced no output: "+firstLine(stderr), exitErr)
		}
		return nil, pipeline.New(pipeline.ErrorExternalProcess, stageResolve,
			"resolver exited cleanly but produced no output", nil)
	}

	var resp resolveResponse
	if err := json.Unmarshal(stdout, &resp); err != nil {
		return nil, pipeline.New(pipeline.ErrorExternalProcess, stageResolve,
			"resolver output is not valid JSON", err)
	}
	if resp.Error != "" {
		return nil, pipeline.New(pipeline.ErrorExternalProcess, stageResolve, resp.Error, exitErr)
	}

	out := make(map[fingerprint.Digest]asset.Metadata, len(resp.Records))
	for _, rec := range resp.Records {
		meta, err := rec.toMetadata()
		if err != nil {
			return nil, pipeline.New(pipeline.ErrorExternalProcess, stageResolve,
				"resolver returned a malformed record", err)
		}
		out[meta.Initial] = meta
	}
	return out, nil
}

func (rec resolveRecord) toMetadata() (asset.Metadata, error) {
	initial, err := fingerprint.Parse(rec.DataHash)
	if err != nil {
		return asset.Metadata{}, err
	}
	meta := asset.Metadata{
		Initial:    initial,
		StorageRef: rec.IPFSCid,
		AssetID:    licensing.AssetID(rec.AssetID),
		TermsID:    licensing.TermsID(rec.TermsID),
		TokenID:    rec.TokenID,
	}
	if rec.DgipHash != "" {
		if meta.Telemetry, err = fingerprint.Parse(rec.DgipHash); err != nil {
			return asset.Metadata{}, err
		}
	}
	if rec.CreatedAt != "" {
		if ts, err := time.Parse(time.RFC3339, rec.CreatedAt); err == nil {
			meta.CreatedAt = ts
		}
	}
	return meta, nil
}
