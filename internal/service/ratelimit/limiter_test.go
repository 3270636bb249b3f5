package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowBurstThenDeny(t *testing.T) {
	l := New()

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("client:score", 3, 0), "burst request %d", i)
	}
	assert.False(t, l.Allow("client:score", 3, 0), "bucket should be empty")
}

func TestAllowRefills(t *testing.T) {
	l := New()

	// Capacity 1, 50 tokens/s: drained immediately, back within 20ms.
	assert.True(t, l.Allow("client:bars", 1, 50))
	assert.False(t, l.Allow("client:bars", 1, 50))

	time.Sleep(40 * time.Millisecond)
	assert.True(t, l.Allow("client:bars", 1, 50))
}

func TestAllowKeysIndependent(t *testing.T) {
	l := New()

	assert.True(t, l.Allow("a:score", 1, 0))
	assert.False(t, l.Allow("a:score", 1, 0))
	assert.True(t, l.Allow("b:score", 1, 0), "other clients keep their own budget")
}
