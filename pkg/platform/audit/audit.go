// Package audit publishes pipeline lifecycle events to Kafka. Auditing is
// fail-open: a broker outage is logged and never blocks or fails the
// operation that produced the event.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Event types emitted by the pipeline.
const (
	EventFlightRegistered  = "flight_registered"
	EventTelemetryLinked   = "telemetry_linked"
	EventAssetTokenized    = "asset_tokenized"
	EventVaultBootstrapped = "vault_bootstrapped"
	EventRevenueClaimed    = "revenue_claimed"
)

// Event is one audit record. Fingerprint keys the Kafka partition so a
// flight's events stay ordered.
type Event struct {
	Type        string    `json:"type"`
	Registrant  string    `json:"registrant,omitempty"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	AssetID     string    `json:"assetId,omitempty"`
	TxHash      string    `json:"txHash,omitempty"`
	Amount      string    `json:"amount,omitempty"`
	At          time.Time `json:"at"`
}

// Publisher produces audit events. A nil Publisher is valid and drops
// everything, so callers never branch on whether auditing is configured.
type Publisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewPublisher connects to the brokers. Empty brokers disable auditing and
// return a nil Publisher.
func NewPublisher(brokers []string, topic string, logger *slog.Logger) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, nil
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("audit publisher: %w", err)
	}
	return &Publisher{client: client, topic: topic, logger: logger}, nil
}

// Publish emits the event asynchronously. Errors are logged, never returned.
func (p *Publisher) Publish(ctx context.Context, ev Event) {
	if p == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	value, err := json.Marshal(ev)
	if err != nil {
		p.logger.Warn("audit event not serializable, dropped", "type", ev.Type, "error", err)
		return
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(ev.Fingerprint),
		Value: value,
	}
	p.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			p.logger.Warn("audit event publish failed", "type", ev.Type, "error", err)
		}
	})
}

// Close flushes buffered events and releases the client.
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.client.Flush(ctx); err != nil {
		p.logger.Warn("audit flush on close failed", "error", err)
	}
	p.client.Close()
}
