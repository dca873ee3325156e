package logic

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeartbeatDisabled(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.Nil(t, NewHeartbeat(0, start).Check(start.Add(time.Hour)))
	assert.Nil(t, NewHeartbeat(-time.Minute, start).Check(start.Add(time.Hour)))
}

func TestHeartbeatBeforeInterval(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	h := NewHeartbeat(15*time.Minute, start)

	assert.Nil(t, h.Check(start.Add(14*time.Minute)))
}

func TestHeartbeatFiresAndResets(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	h := NewHeartbeat(15*time.Minute, start)

	hb := h.Check(start.Add(15 * time.Minute))
	require.NotNil(t, hb)
	assert.Equal(t, 15*time.Minute, hb.Uptime)
	assert.True(t, hb.Timestamp.Equal(start.Add(15*time.Minute)))

	assert.Nil(t, h.Check(start.Add(20*time.Minute)))

	hb = h.Check(start.Add(31 * time.Minute))
	require.NotNil(t, hb)
	assert.Equal(t, 31*time.Minute, hb.Uptime)
}
