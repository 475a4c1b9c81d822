// Package fingerprint computes and validates the 32-byte content digests that
// key every record in the provenance registry. Payloads are canonicalized with
// RFC 8785 (JCS) before hashing so the same logical content always yields the
// same digest regardless of field ordering, then hashed with keccak-256 to
// match the registry's on-chain convention.
package fingerprint

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gowebpki/jcs"
	"golang.org/x/crypto/sha3"

	"flightledger/pkg/pipeline"
)

// Size is the fixed digest length in bytes.
const Size = 32

// Digest is a 32-byte content fingerprint.
type Digest [Size]byte

// Zero is the all-zero digest, never valid as a record key.
var Zero Digest

// String renders the canonical encoding used for every registry call:
// 0x-prefixed lowercase hex, 66 characters total.
func (d Digest) String() string {
	return "0x" + hex.EncodeToString(d[:])
}

// IsZero reports whether the digest is unset.
func (d Digest) IsZero() bool {
	return d == Zero
}

// Valid reports whether the digest carries a real hash. The zero digest is
// a sentinel for "not linked yet", never a legitimate keccak output here.
func (d Digest) Valid() bool {
	return !d.IsZero()
}

// MarshalText renders the canonical encoding.
func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText parses either hex encoding, enforcing digest shape.
func (d *Digest) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Parse validates digest shape and normalizes the encoding. It accepts both
// 0x-prefixed and bare hex strings of exactly 32 bytes; anything else is an
// input-validation error. Values are never padded or truncated.
func Parse(s string) (Digest, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if len(trimmed) != Size*2 {
		return Zero, pipeline.New(pipeline.ErrorInputValidation, "fingerprint",
			fmt.Sprintf("digest must encode exactly %d bytes, got %d hex chars", Size, len(trimmed)), nil)
	}
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return Zero, pipeline.New(pipeline.ErrorInputValidation, "fingerprint", "digest is not valid hex", err)
	}
	var d Digest
	copy(d[:], raw)
	return d, nil
}

// Valid reports whether s is a well-formed digest in either encoding.
func Valid(s string) bool {
	_, err := Parse(s)
	return err == nil
}

// Hash canonicalizes v (JSON with RFC 8785 key ordering and number formatting)
// and returns the keccak-256 digest of the canonical bytes.
func Hash(v any) (Digest, error) {
	intermediate, err := json.Marshal(v)
	if err != nil {
		return Zero, pipeline.New(pipeline.ErrorInputValidation, "fingerprint", "payload is not serializable", err)
	}
	canonical, err := jcs.Transform(intermediate)
	if err != nil {
		return Zero, pipeline.New(pipeline.ErrorInputValidation, "fingerprint", "payload cannot be canonicalized", err)
	}
	return HashBytes(canonical), nil
}

// HashBytes returns the keccak-256 digest of raw bytes. Use Hash for
// structured payloads so canonicalization is never skipped.
func HashBytes(data []byte) Digest {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}

// Canonical returns the RFC 8785 canonical JSON form of v, the exact bytes
// that Hash digests. Exposed so stages can persist what they hashed.
func Canonical(v any) ([]byte, error) {
	intermediate, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonical: marshal: %w", err)
	}
	return jcs.Transform(intermediate)
}
