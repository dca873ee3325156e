package internal

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/light-relay/internal/actuator"
	"github.com/sweeney/light-relay/internal/ingest"
	"github.com/sweeney/light-relay/internal/logic"
	"github.com/sweeney/light-relay/internal/mqtt"
	"github.com/sweeney/light-relay/internal/status"
	"github.com/sweeney/light-relay/internal/wsapi"
)

// bridge wires the subscriber side the way the bridge command does, over fakes.
type bridge struct {
	broker  *mqtt.FakeClient
	store   *logic.Store
	sink    *actuator.FakeSink
	eval    *logic.Evaluator
	tracker *status.Tracker
}

func newBridge(t *testing.T) *bridge {
	t.Helper()
	b := &bridge{
		broker:  mqtt.NewFakeClient(),
		store:   logic.NewStore(),
		sink:    actuator.NewFakeSink(),
		tracker: status.NewTracker(time.Now(), status.Config{}),
	}
	b.eval = logic.NewEvaluator(b.store, b.sink, logic.Options{})

	in := ingest.New(b.store)
	require.NoError(t, b.broker.Subscribe(func(payload []byte) {
		u, err := in.Submit(payload)
		if err != nil {
			b.tracker.Reject()
			return
		}
		b.tracker.SetSchedule(u.Schedule)
	}))
	return b
}

func (b *bridge) tick(hhmm string) logic.Result {
	now := logic.MustTimeOfDay(hhmm)
	res := b.eval.Tick(now)
	b.tracker.Update(b.eval.LastAsserted(), b.eval.Counts(), now)
	return res
}

// TestIntegrationScenario submits 06:30/18:45 over the broker and walks the day.
func TestIntegrationScenario(t *testing.T) {
	b := newBridge(t)

	require.NoError(t, b.broker.Deliver([]byte(`{"on_time":"06:30","off_time":"18:45"}`)))

	res := b.tick("06:30")
	assert.True(t, res.Fired())
	assert.Equal(t, []logic.State{logic.StateOn}, b.sink.Asserted)

	res = b.tick("06:45")
	assert.False(t, res.Fired())
	assert.Len(t, b.sink.Asserted, 1)

	res = b.tick("18:45")
	assert.True(t, res.Fired())
	assert.Equal(t, []logic.State{logic.StateOn, logic.StateOff}, b.sink.Asserted)

	snap := b.tracker.Snapshot()
	assert.Equal(t, logic.StateOff, snap.Actuator)
	assert.Equal(t, logic.Counts{On: 1, Off: 1}, snap.Counts)
	assert.Equal(t, 1, snap.Updates)
}

// TestIntegrationWebSocketToActuator sends a browser submission through the
// publisher and hands the republished payload to the bridge.
func TestIntegrationWebSocketToActuator(t *testing.T) {
	publisherSide := mqtt.NewFakeClient()
	srv := wsapi.New(wsapi.Config{}, publisherSide)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"onTime":"06:30","offTime":"18:45"}`)))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var resp wsapi.Response
	require.NoError(t, conn.ReadJSON(&resp))
	require.Equal(t, "success", resp.Status)

	payloads := publisherSide.Payloads()
	require.Len(t, payloads, 1)

	var republished mqtt.SchedulePayload
	require.NoError(t, json.Unmarshal(payloads[0], &republished))
	assert.Equal(t, "06:30", republished.OnTime)
	assert.Equal(t, "18:45", republished.OffTime)
	_, err = time.Parse(time.RFC3339, republished.Timestamp)
	assert.NoError(t, err)
	assert.NotEmpty(t, republished.ID)

	b := newBridge(t)
	require.NoError(t, b.broker.Deliver(payloads[0]))

	b.tick("06:30")
	b.tick("18:45")
	assert.Equal(t, []logic.State{logic.StateOn, logic.StateOff}, b.sink.Asserted)
}

// TestIntegrationMalformedPayloadKeepsSchedule checks a bad message does not
// disturb the active schedule.
func TestIntegrationMalformedPayloadKeepsSchedule(t *testing.T) {
	b := newBridge(t)

	require.NoError(t, b.broker.Deliver([]byte(`{"on_time":"07:00","off_time":"22:00"}`)))
	require.NoError(t, b.broker.Deliver([]byte("not json")))
	require.NoError(t, b.broker.Deliver([]byte(`{"on_time":"08:00"}`)))

	got, ok := b.store.Get()
	require.True(t, ok)
	assert.Equal(t, "07:00", got.On.String())

	b.tick("07:00")
	assert.Equal(t, []logic.State{logic.StateOn}, b.sink.Asserted)
	assert.Equal(t, 2, b.tracker.Snapshot().Rejected)
}

// TestIntegrationSinkFailureRecovery checks a failed command is retried on
// the next tick inside the same boundary minute.
func TestIntegrationSinkFailureRecovery(t *testing.T) {
	b := newBridge(t)
	require.NoError(t, b.broker.Deliver([]byte(`{"on_time":"06:30","off_time":"18:45"}`)))

	b.sink.AssertError = &actuator.SinkError{Kind: actuator.NotConnected}
	res := b.tick("06:30")
	assert.True(t, errors.Is(res.Err, actuator.ErrNotConnected))
	assert.Equal(t, logic.StateUnknown, b.eval.LastAsserted())

	b.sink.AssertError = nil
	res = b.tick("06:30")
	assert.True(t, res.Fired())
	assert.Equal(t, []logic.State{logic.StateOn}, b.sink.Asserted)
	assert.Equal(t, logic.Counts{On: 1, Failures: 1}, b.tracker.Snapshot().Counts)
}

// TestIntegrationSimulatedSink runs the scenario against the simulated sink.
func TestIntegrationSimulatedSink(t *testing.T) {
	sink, err := actuator.New(actuator.Config{Mode: actuator.ModeSimulated})
	require.NoError(t, err)
	defer sink.Close()

	store := logic.NewStore()
	_, err = ingest.New(store).Submit([]byte(`{"onTime":"06:30","offTime":"18:45"}`))
	require.NoError(t, err)
	eval := logic.NewEvaluator(store, sink, logic.Options{})

	for _, hhmm := range []string{"06:29", "06:30", "06:30", "12:00", "18:45"} {
		res := eval.Tick(logic.MustTimeOfDay(hhmm))
		require.NoError(t, res.Err)
	}

	sim, ok := sink.(*actuator.SimulatedSink)
	require.True(t, ok)
	assert.Equal(t, []logic.State{logic.StateOn, logic.StateOff}, sim.Commands())
}

// TestIntegrationStatusEventPayload checks the system event JSON carries the
// live schedule.
func TestIntegrationStatusEventPayload(t *testing.T) {
	b := newBridge(t)
	require.NoError(t, b.broker.Deliver([]byte(`{"on_time":"06:30","off_time":"18:45"}`)))
	b.tick("06:30")

	snap := b.tracker.Snapshot()
	event := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      mqtt.EventStartup,
		RawPayload: status.FormatStatusEvent(snap, mqtt.EventStartup, ""),
	}
	require.NoError(t, b.broker.PublishSystem(event))

	payload, err := mqtt.FormatSystemPayload(b.broker.SystemEvents()[0])
	require.NoError(t, err)

	var sj status.StatusJSON
	require.NoError(t, json.Unmarshal(payload, &sj))
	assert.Equal(t, "STARTUP", sj.Status.Event)
	assert.Equal(t, "ON", sj.Status.Light)
	require.NotNil(t, sj.Status.Schedule)
	assert.Equal(t, "18:45", sj.Status.Schedule.OffTime)
}
