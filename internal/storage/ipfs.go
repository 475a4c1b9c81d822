package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// IPFSClient uploads payloads to an IPFS node's HTTP API and returns the CID.
type IPFSClient struct {
	apiURL  string
	gateway string
	client  *http.Client
	logger  *slog.Logger
}

// NewIPFSClient talks to the node at apiURL (e.g. http://localhost:5001).
// gateway is the public read prefix used when building display URIs.
func NewIPFSClient(apiURL, gateway string, logger *slog.Logger) *IPFSClient {
	return &IPFSClient{
		apiURL:  strings.TrimRight(apiURL, "/"),
		gateway: strings.TrimRight(gateway, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}
}

type addResponse struct {
	Hash string `json:"Hash"`
}

// Put pins the payload and returns its CID.
func (c *IPFSClient) Put(ctx context.Context, payload []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "payload.json")
	if err != nil {
		return "", fmt.Errorf("ipfs put: %w", err)
	}
	if _, err := part.Write(payload); err != nil {
		return "", fmt.Errorf("ipfs put: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("ipfs put: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/api/v0/add?pin=true", &body)
	if err != nil {
		return "", fmt.Errorf("ipfs put: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ipfs put: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return "", fmt.Errorf("ipfs put: node returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out addResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("ipfs put: decode response: %w", err)
	}
	if out.Hash == "" {
		return "", fmt.Errorf("ipfs put: node returned no hash")
	}
	return out.Hash, nil
}

// GatewayURI renders a CID as a fetchable URI. Placeholder refs pass through
// unchanged so downstream metadata stays honest about failed uploads.
func (c *IPFSClient) GatewayURI(ref string) string {
	if ref == "" || ref == FailedRef {
		return ref
	}
	return c.gateway + "/" + ref
}
