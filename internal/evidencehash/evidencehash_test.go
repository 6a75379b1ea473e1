package evidencehash

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeIsDeterministic(t *testing.T) {
	at := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	h1 := Compute([]byte("image-bytes"), 12.9, 77.6, at)
	h2 := Compute([]byte("image-bytes"), 12.9, 77.6, at)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64, "hex-encoded SHA-256 is 64 characters")
}

func TestComputeChangesWithAnyInput(t *testing.T) {
	at := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	base := Compute([]byte("image-bytes"), 12.9, 77.6, at)

	assert.NotEqual(t, base, Compute([]byte("different-bytes"), 12.9, 77.6, at))
	assert.NotEqual(t, base, Compute([]byte("image-bytes"), 13.0, 77.6, at))
	assert.NotEqual(t, base, Compute([]byte("image-bytes"), 12.9, 77.7, at))
	assert.NotEqual(t, base, Compute([]byte("image-bytes"), 12.9, 77.6, at.Add(time.Second)))
}
