package fingerprint

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flightledger/pkg/pipeline"
)

func TestHashDeterminism(t *testing.T) {
	payload := map[string]any{
		"droneName": "Skyhawk",
		"weight":    1250.5,
		"flightAreaCenter": map[string]any{
			"latitude":  51.5074,
			"longitude": -0.1278,
		},
	}

	first, err := Hash(payload)
	require.NoError(t, err)
	second, err := Hash(payload)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.False(t, first.IsZero())
}

func TestHashIgnoresFieldOrder(t *testing.T) {
	// Two structurally different declarations of the same logical content.
	a := map[string]any{"b": 2, "a": 1, "nested": map[string]any{"y": "v", "x": "u"}}
	b := map[string]any{"nested": map[string]any{"x": "u", "y": "v"}, "a": 1, "b": 2}

	da, err := Hash(a)
	require.NoError(t, err)
	db, err := Hash(b)
	require.NoError(t, err)
	assert.Equal(t, da, db)
}

func TestParseAcceptsBothEncodings(t *testing.T) {
	bare := strings.Repeat("ab", 32)
	prefixed := "0x" + bare

	fromBare, err := Parse(bare)
	require.NoError(t, err)
	fromPrefixed, err := Parse(prefixed)
	require.NoError(t, err)

	assert.Equal(t, fromBare, fromPrefixed)
	assert.Equal(t, prefixed, fromBare.String())
	assert.Len(t, fromBare.String(), 66)
}

func TestParseRejectsWrongShapes(t *testing.T) {
	cases := []string{
		"",
		"0x",
		"0x" + strings.Repeat("ab", 31),     // 31 bytes
		"0x" + strings.Repeat("ab", 33),     // 33 bytes
		strings.Repeat("zz", 32),            // not hex
		"0x" + strings.Repeat("ab", 32)[1:], // odd length
	}
	for _, c := range cases {
		_, err := Parse(c)
		require.Error(t, err, "input %q", c)
		assert.Equal(t, pipeline.ErrorInputValidation, pipeline.Category(err))
	}
}

func TestDigestValid(t *testing.T) {
	assert.False(t, Zero.Valid())
	assert.True(t, HashBytes([]byte("plan")).Valid())
}

func TestRoundTripThroughText(t *testing.T) {
	d := HashBytes([]byte("telemetry"))
	text, err := d.MarshalText()
	require.NoError(t, err)

	var parsed Digest
	require.NoError(t, parsed.UnmarshalText(text))
	assert.Equal(t, d, parsed)
}

func TestKeccakNotSha3(t *testing.T) {
	// Known keccak-256 of the empty string, distinct from SHA3-256.
	d := HashBytes(nil)
	assert.Equal(t, "0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470", d.String())
}
