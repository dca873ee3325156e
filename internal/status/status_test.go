package status

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/light-relay/internal/logic"
)

func testConfig() Config {
	return Config{
		TickMs:      30000,
		HeartbeatMs: 900000,
		Broker:      "tcp://localhost:1883",
		Topic:       "light/schedule",
		SinkMode:    "serial",
		SinkTarget:  "/dev/ttyACM0",
		HTTPAddr:    ":8080",
	}
}

func TestNewTracker(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tr := NewTracker(start, testConfig())

	snap := tr.Snapshot()
	assert.True(t, snap.StartTime.Equal(start))
	assert.Equal(t, int64(30000), snap.Config.TickMs)
	assert.Equal(t, logic.StateUnknown, snap.Actuator)
	assert.Nil(t, snap.Schedule)
	assert.Nil(t, snap.LastTick)
	assert.False(t, snap.MQTTConnected)
}

func TestUpdateAndSnapshot(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	tr.Update(logic.StateOn, logic.Counts{On: 3, Failures: 1}, logic.MustTimeOfDay("07:00"))

	snap := tr.Snapshot()
	assert.Equal(t, logic.StateOn, snap.Actuator)
	assert.Equal(t, 3, snap.Counts.On)
	assert.Equal(t, 1, snap.Counts.Failures)
	require.NotNil(t, snap.LastTick)
	assert.Equal(t, "07:00", snap.LastTick.String())
}

func TestSetScheduleAndReject(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	s := logic.Schedule{On: logic.MustTimeOfDay("06:30"), Off: logic.MustTimeOfDay("18:45")}

	tr.SetSchedule(s)
	tr.SetSchedule(s)
	tr.Reject()

	snap := tr.Snapshot()
	require.NotNil(t, snap.Schedule)
	assert.Equal(t, s, *snap.Schedule)
	assert.Equal(t, 2, snap.Updates)
	assert.Equal(t, 1, snap.Rejected)
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	tr.SetSchedule(logic.Schedule{On: logic.MustTimeOfDay("06:30"), Off: logic.MustTimeOfDay("18:45")})
	before := tr.Snapshot()

	tr.SetSchedule(logic.Schedule{On: logic.MustTimeOfDay("01:00"), Off: logic.MustTimeOfDay("02:00")})

	assert.Equal(t, "06:30", before.Schedule.On.String())
}

func TestUptime(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tr := NewTracker(start, Config{})
	tr.now = func() time.Time { return start.Add(90 * time.Minute) }

	assert.Equal(t, 90*time.Minute, tr.Snapshot().Uptime())
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			tr.Update(logic.StateOff, logic.Counts{Off: 1}, logic.MustTimeOfDay("22:00"))
		}()
		go func() {
			defer wg.Done()
			tr.SetMQTTConnected(true)
			tr.Reject()
		}()
		go func() {
			defer wg.Done()
			_ = tr.Snapshot()
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, tr.Snapshot().Rejected)
}

func TestFormatJSON(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tr := NewTracker(start, testConfig())
	tr.now = func() time.Time { return start.Add(65 * time.Second) }
	tr.SetSchedule(logic.Schedule{On: logic.MustTimeOfDay("06:30"), Off: logic.MustTimeOfDay("18:45")})
	tr.Update(logic.StateOn, logic.Counts{On: 1}, logic.MustTimeOfDay("06:30"))
	tr.SetMQTTConnected(true)

	var sj StatusJSON
	require.NoError(t, json.Unmarshal(FormatJSON(tr.Snapshot()), &sj))

	assert.Equal(t, "ON", sj.Status.Light)
	require.NotNil(t, sj.Status.Schedule)
	assert.Equal(t, "06:30", sj.Status.Schedule.OnTime)
	assert.Equal(t, "18:45", sj.Status.Schedule.OffTime)
	assert.Equal(t, "06:30", sj.Status.LastTick)
	assert.Equal(t, int64(65), sj.Status.UptimeSeconds)
	assert.Equal(t, "2026-01-01T00:00:00Z", sj.Status.StartTime)
	assert.True(t, sj.Status.MQTT.Connected)
	assert.Equal(t, "light/schedule", sj.Status.MQTT.Topic)
	assert.Equal(t, 1, sj.Status.Counts.On)
	assert.Equal(t, 1, sj.Status.Counts.Updates)
	assert.Equal(t, "serial", sj.Status.Config.SinkMode)
	assert.Empty(t, sj.Status.Event)
}

func TestFormatJSONNoSchedule(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	var raw map[string]map[string]any
	require.NoError(t, json.Unmarshal(FormatJSON(tr.Snapshot()), &raw))

	assert.Contains(t, raw["status"], "schedule")
	assert.Nil(t, raw["status"]["schedule"])
	assert.Equal(t, "UNKNOWN", raw["status"]["light"])
}

func TestFormatStatusEvent(t *testing.T) {
	tr := NewTracker(time.Now(), testConfig())

	var sj StatusJSON
	require.NoError(t, json.Unmarshal(FormatStatusEvent(tr.Snapshot(), "SHUTDOWN", "SIGTERM"), &sj))

	assert.Equal(t, "SHUTDOWN", sj.Status.Event)
	assert.Equal(t, "SIGTERM", sj.Status.Reason)
}
