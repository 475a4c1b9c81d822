package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration. Every external collaborator the
// pipeline talks to is named here so main stays lean and no stage reaches for
// the environment on its own.
type Server struct {
	Addr string

	// Compliance validator process. Empty command selects the built-in stub
	// validator (deterministic checks only).
	ValidatorCommand []string
	ValidatorTimeout time.Duration

	// Registrant identity used for registry writes and license-token receipts.
	RegistrantAddress string

	// Content-addressed storage HTTP API. Empty disables uploads; the
	// fingerprint stays authoritative either way.
	StorageAPIURL  string
	StorageGateway string

	// Licensing protocol parameters.
	SPGCollection   string
	WIPTokenAddress string
	RoyaltyPolicy   string

	// Royalty payment simulation amount, in base units of an 18-decimal token.
	RoyaltyPaymentWei string

	// Asset metadata store backends. Empty values fall back to memory.
	PostgresDSN string
	RedisURL    string

	// Audit event publishing. Empty brokers disables publishing.
	KafkaBrokers []string
	AuditTopic   string

	RequestTimeout time.Duration
}

// FromEnv builds a Server config from environment variables with dev-safe
// defaults matching the protocol testnet constants.
func FromEnv() Server {
	return Server{
		Addr:              envOr("FLIGHTLEDGER_ADDR", ":8080"),
		ValidatorCommand:  splitArgs(os.Getenv("VALIDATOR_COMMAND")),
		ValidatorTimeout:  envDuration("VALIDATOR_TIMEOUT", 90*time.Second),
		RegistrantAddress: envOr("REGISTRANT_ADDRESS", ""),
		StorageAPIURL:     os.Getenv("STORAGE_API_URL"),
		StorageGateway:    envOr("STORAGE_GATEWAY_URL", "https://ipfs.io/ipfs/"),
		SPGCollection:     os.Getenv("SPG_COLLECTION_ADDRESS"),
		WIPTokenAddress:   envOr("WIP_TOKEN_ADDRESS", "0x1514000000000000000000000000000000000000"),
		RoyaltyPolicy:     envOr("ROYALTY_POLICY_ADDRESS", "0xBe54FB168b3c982b7AaE60dB6CF75Bd8447b390E"),
		RoyaltyPaymentWei: envOr("ROYALTY_PAYMENT_WEI", "100000000000000000"),
		PostgresDSN:       os.Getenv("POSTGRES_DSN"),
		RedisURL:          os.Getenv("REDIS_URL"),
		KafkaBrokers:      splitList(os.Getenv("KAFKA_BROKERS")),
		AuditTopic:        envOr("AUDIT_TOPIC", "flightledger.audit"),
		RequestTimeout:    envDuration("REQUEST_TIMEOUT", 120*time.Second),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

func splitArgs(v string) []string {
	return splitOn(v, " ")
}

func splitList(v string) []string {
	return splitOn(v, ",")
}

func splitOn(v, sep string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, sep)
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
