package reconcile

import (
	"time"

	"irrigation_dashboard/internal/models"
)

// AppendHistory records a reading at the front of st.History unless it repeats
// the newest entry exactly. The log is truncated to HistoryCapacity.
// Reports whether an entry was added.
func (r *Reconciler) AppendHistory(st *State, snap models.DeviceSnapshot, now time.Time) bool {
	moisture := moistureOf(snap)
	rec := recommendationOf(snap)

	if len(st.History) > 0 {
		head := st.History[0]
		if head.Moisture == moisture && head.Recommendation == rec {
			return false
		}
	}

	item := models.HistoryItem{
		Moisture:       moisture,
		Recommendation: rec,
		Timestamp:      r.formatClock(now),
		Color:          RecommendationColor(rec),
	}
	st.History = append(st.History, models.HistoryItem{})
	copy(st.History[1:], st.History)
	st.History[0] = item

	if len(st.History) > HistoryCapacity {
		st.History = st.History[:HistoryCapacity]
	}
	return true
}
