package asset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRedisCacheNilClientPassthrough(t *testing.T) {
	inner := NewMemoryStore()
	store := NewRedisCache(inner, nil, 0, nil)
	assert.Same(t, inner, store)
}
