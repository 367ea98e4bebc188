package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"irrigation_dashboard/internal/models"
)

func TestAppendHistory_SkipsConsecutiveDuplicates(t *testing.T) {
	r := newTestReconciler()
	st := NewState()
	snap := models.DeviceSnapshot{Moisture: f64(30), Recommendation: str("OPTIMALNO")}

	assert.True(t, r.AppendHistory(st, snap, t0))
	assert.False(t, r.AppendHistory(st, snap, t0.Add(time.Second)))
	assert.Len(t, st.History, 1)
	assert.Equal(t, "14:03:07", st.History[0].Timestamp)
}

func TestAppendHistory_ChangedPairAddsFrontEntry(t *testing.T) {
	r := newTestReconciler()
	st := NewState()

	r.AppendHistory(st, models.DeviceSnapshot{Moisture: f64(30), Recommendation: str("OPTIMALNO")}, t0)
	r.AppendHistory(st, models.DeviceSnapshot{Moisture: f64(30), Recommendation: str("SUHO")}, t0)
	r.AppendHistory(st, models.DeviceSnapshot{Moisture: f64(30.5), Recommendation: str("SUHO")}, t0)

	require.Len(t, st.History, 3)
	assert.Equal(t, 30.5, st.History[0].Moisture)
	assert.Equal(t, "SUHO", st.History[1].Recommendation)
	assert.Equal(t, "OPTIMALNO", st.History[2].Recommendation)
}

func TestAppendHistory_OnlyComparesNewestEntry(t *testing.T) {
	r := newTestReconciler()
	st := NewState()
	a := models.DeviceSnapshot{Moisture: f64(10), Recommendation: str("SUHO")}
	b := models.DeviceSnapshot{Moisture: f64(50), Recommendation: str("OPTIMALNO")}

	r.AppendHistory(st, a, t0)
	r.AppendHistory(st, b, t0)
	assert.True(t, r.AppendHistory(st, a, t0))
	assert.Len(t, st.History, 3)
}

func TestAppendHistory_DefaultsApplied(t *testing.T) {
	r := newTestReconciler()
	st := NewState()

	r.AppendHistory(st, models.DeviceSnapshot{}, t0)
	require.Len(t, st.History, 1)
	assert.Equal(t, 0.0, st.History[0].Moisture)
	assert.Equal(t, "UNKNOWN", st.History[0].Recommendation)
	assert.Equal(t, ColorUnknown, st.History[0].Color)

	assert.False(t, r.AppendHistory(st, models.DeviceSnapshot{Recommendation: str("UNKNOWN")}, t0))
}

func TestAppendHistory_CapsAtFiveNewestFirst(t *testing.T) {
	r := newTestReconciler()
	st := NewState()

	for i := 1; i <= 5; i++ {
		r.OnTelemetry(st, models.DeviceSnapshot{Moisture: f64(float64(i)), Recommendation: str("SUHO")}, t0.Add(time.Duration(i)*time.Second))
	}
	require.Len(t, st.History, 5)
	assert.Equal(t, 5.0, st.History[0].Moisture)
	assert.Equal(t, 1.0, st.History[4].Moisture)

	r.OnTelemetry(st, models.DeviceSnapshot{Moisture: f64(6), Recommendation: str("SUHO")}, t0.Add(6*time.Second))
	require.Len(t, st.History, 5)
	assert.Equal(t, 6.0, st.History[0].Moisture)
	assert.Equal(t, 2.0, st.History[4].Moisture, "oldest entry dropped")
}

func TestAppendHistory_NeverExceedsCapacity(t *testing.T) {
	r := newTestReconciler()
	st := NewState()
	recs := []string{"SUHO", "OPTIMALNO", "VLAZNO", "VLAŽNO", "MYSTERY"}

	for i := 0; i < 200; i++ {
		snap := models.DeviceSnapshot{
			Moisture:       f64(float64(i % 7)),
			Recommendation: str(recs[i%len(recs)]),
		}
		r.AppendHistory(st, snap, t0.Add(time.Duration(i)*time.Second))
		require.LessOrEqual(t, len(st.History), HistoryCapacity)
	}
}

func TestAppendHistory_ItemsAreIndependentOfLaterInserts(t *testing.T) {
	r := newTestReconciler()
	st := NewState()

	r.AppendHistory(st, models.DeviceSnapshot{Moisture: f64(1)}, t0)
	first := st.History[0]
	r.AppendHistory(st, models.DeviceSnapshot{Moisture: f64(2)}, t0.Add(time.Second))

	assert.Equal(t, first, st.History[1])
}
