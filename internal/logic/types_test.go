package logic

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"00:00", "00:00"},
		{"07:05", "07:05"},
		{"7:05", "07:05"},
		{" 23:59 ", "23:59"},
		{"12:30", "12:30"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimeOfDay(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestParseTimeOfDayInvalid(t *testing.T) {
	for _, in := range []string{"", "24:00", "12:60", "1200", "12:5", "aa:bb", "-1:30", "+1:30", "12:+5", "123:00", "12:30:00"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseTimeOfDay(in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidTime))
		})
	}
}

func TestTimeOfDayComponents(t *testing.T) {
	tod, err := NewTimeOfDay(18, 45)
	require.NoError(t, err)
	assert.Equal(t, 18, tod.Hour())
	assert.Equal(t, 45, tod.Minute())
	assert.Equal(t, MustTimeOfDay("18:45"), tod)
}

func TestTimeOfDayJSON(t *testing.T) {
	var v struct {
		At TimeOfDay `json:"at"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"at":"6:30"}`), &v))
	assert.Equal(t, MustTimeOfDay("06:30"), v.At)

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"at":"06:30"}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"at":"25:00"}`), &v))
}

func TestAt(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 41, 59, 0, time.Local)
	assert.Equal(t, "09:41", At(now).String())
}

func TestScheduleDegenerate(t *testing.T) {
	assert.True(t, Schedule{On: MustTimeOfDay("12:00"), Off: MustTimeOfDay("12:00")}.Degenerate())
	assert.False(t, Schedule{On: MustTimeOfDay("12:00"), Off: MustTimeOfDay("12:01")}.Degenerate())
}

func TestStoreEmpty(t *testing.T) {
	s := NewStore()
	_, ok := s.Get()
	assert.False(t, ok)
}

func TestStoreSetGet(t *testing.T) {
	s := NewStore()
	want := Schedule{On: MustTimeOfDay("07:00"), Off: MustTimeOfDay("22:00")}

	for i := 0; i < 3; i++ {
		s.Set(want)
		got, ok := s.Get()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
}

func TestStoreReplace(t *testing.T) {
	s := NewStore()
	s.Set(Schedule{On: MustTimeOfDay("07:00"), Off: MustTimeOfDay("22:00")})
	next := Schedule{On: MustTimeOfDay("08:00"), Off: MustTimeOfDay("09:00")}
	s.Set(next)

	got, ok := s.Get()
	require.True(t, ok)
	assert.Equal(t, next, got)
}

func TestStoreConcurrentAccess(t *testing.T) {
	s := NewStore()
	a := Schedule{On: MustTimeOfDay("01:00"), Off: MustTimeOfDay("02:00")}
	b := Schedule{On: MustTimeOfDay("13:00"), Off: MustTimeOfDay("14:00")}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				if j%2 == 0 {
					s.Set(a)
				} else {
					s.Set(b)
				}
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				if got, ok := s.Get(); ok && got != a && got != b {
					t.Errorf("observed torn schedule %v", got)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestClockGranularity(t *testing.T) {
	now := time.Date(2026, 3, 1, 7, 14, 45, 0, time.Local)
	fixed := func() time.Time { return now }

	assert.Equal(t, "07:14", NewClock(fixed, time.Minute).TimeOfDay().String())
	assert.Equal(t, "07:14", NewClock(fixed, 30*time.Second).TimeOfDay().String())
	assert.Equal(t, "07:10", NewClock(fixed, 5*time.Minute).TimeOfDay().String())
	assert.Equal(t, "07:00", NewClock(fixed, time.Hour).TimeOfDay().String())
	assert.Equal(t, now, NewClock(fixed, time.Minute).Now())
}

func TestClockSample(t *testing.T) {
	c := NewClock(time.Now, 15*time.Minute)

	assert.Equal(t, "18:45", c.Sample(time.Date(2026, 3, 1, 18, 59, 59, 0, time.Local)).String())
	assert.Equal(t, "00:00", c.Sample(time.Date(2026, 3, 1, 0, 14, 0, 0, time.Local)).String())
}

func TestTimeOfDayTruncate(t *testing.T) {
	assert.Equal(t, "06:30", MustTimeOfDay("06:32").Truncate(5*time.Minute).String())
	assert.Equal(t, "18:45", MustTimeOfDay("18:47").Truncate(15*time.Minute).String())
	assert.Equal(t, "06:32", MustTimeOfDay("06:32").Truncate(time.Minute).String())
	assert.Equal(t, "06:32", MustTimeOfDay("06:32").Truncate(0).String())
}

func TestScheduleNext(t *testing.T) {
	s := Schedule{On: MustTimeOfDay("06:30"), Off: MustTimeOfDay("18:45")}

	tests := []struct {
		now       string
		wantState State
		wantAt    string
	}{
		{"00:00", StateOn, "06:30"},
		{"06:30", StateOff, "18:45"},
		{"12:00", StateOff, "18:45"},
		{"18:45", StateOn, "06:30"},
		{"23:59", StateOn, "06:30"},
	}
	for _, tt := range tests {
		t.Run(tt.now, func(t *testing.T) {
			state, at := s.Next(MustTimeOfDay(tt.now))
			assert.Equal(t, tt.wantState, state)
			assert.Equal(t, tt.wantAt, at.String())
		})
	}
}

func TestScheduleNextDegenerate(t *testing.T) {
	s := Schedule{On: MustTimeOfDay("07:00"), Off: MustTimeOfDay("07:00")}

	state, at := s.Next(MustTimeOfDay("07:00"))
	assert.Equal(t, StateOn, state)
	assert.Equal(t, "07:00", at.String())
}
