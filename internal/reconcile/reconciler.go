package reconcile

import (
	"time"

	"irrigation_dashboard/internal/models"
)

// Config tunes a Reconciler. Zero values fall back to defaults.
type Config struct {
	LockWindow time.Duration  // override lock after a local toggle
	Location   *time.Location // zone used for HH:MM:SS timestamps
}

// Reconciler applies feed events and local toggles to a State.
// It holds configuration only; every operation takes the State explicitly.
type Reconciler struct {
	lockWindow time.Duration
	loc        *time.Location
}

// TelemetryOutcome describes what a telemetry event did to the state.
type TelemetryOutcome struct {
	// ManualSuppressed is set when the snapshot carried manualActive but the
	// override lock kept the local value.
	ManualSuppressed bool
	// ManualChanged is set when a remote manualActive value was adopted and
	// differed from the local one.
	ManualChanged   bool
	HistoryAppended bool
	// WarningRaised is set on a false -> true transition of ShowWarning.
	WarningRaised bool
}

// NewReconciler builds a Reconciler from cfg.
func NewReconciler(cfg Config) *Reconciler {
	r := &Reconciler{
		lockWindow: cfg.LockWindow,
		loc:        cfg.Location,
	}
	if r.lockWindow <= 0 {
		r.lockWindow = DefaultLockWindow
	}
	if r.loc == nil {
		r.loc = time.Local
	}
	return r
}

// LockWindow returns the effective override lock duration.
func (r *Reconciler) LockWindow() time.Duration {
	return r.lockWindow
}

// OnTelemetry merges a device snapshot into st.
// Missing fields fall back to defaults; nothing here fails.
func (r *Reconciler) OnTelemetry(st *State, snap models.DeviceSnapshot, now time.Time) TelemetryOutcome {
	var out TelemetryOutcome
	wasWarning := st.ShowWarning

	st.Moisture = moistureOf(snap)
	st.Recommendation = recommendationOf(snap)
	st.ServoPosition = servoOf(snap)

	if snap.ManualActive != nil {
		if r.Locked(st, now) {
			out.ManualSuppressed = *snap.ManualActive != st.ManualActive
		} else {
			out.ManualChanged = *snap.ManualActive != st.ManualActive
			st.ManualActive = *snap.ManualActive
		}
	}

	serverWarning := snap.Warning != nil && *snap.Warning
	st.ShowWarning = serverWarning || localWarning(st)
	out.WarningRaised = !wasWarning && st.ShowWarning

	st.LastUpdate = r.formatClock(now)
	out.HistoryAppended = r.AppendHistory(st, snap, now)
	return out
}

// OnStatus stores the device connectivity status. Absent or empty values
// mean offline. Reports whether the status changed.
func (r *Reconciler) OnStatus(st *State, status *string) bool {
	next := defaultStatus
	if status != nil && *status != "" {
		next = *status
	}
	changed := st.Status != next
	st.Status = next
	return changed
}

// ToggleManualWater flips the local manual-water flag, arms the override lock
// and returns the value the caller must publish to the command sink.
//
// The warning is recomputed from local state only; the server warning flag
// used by OnTelemetry is not consulted here.
func (r *Reconciler) ToggleManualWater(st *State, now time.Time) bool {
	st.lastToggle = now
	st.ManualActive = !st.ManualActive
	st.ShowWarning = localWarning(st)
	return st.ManualActive
}

// Locked reports whether remote manualActive values are currently ignored.
func (r *Reconciler) Locked(st *State, now time.Time) bool {
	if st.lastToggle.IsZero() {
		return false
	}
	return now.Sub(st.lastToggle) <= r.lockWindow
}

// View copies st into the renderer read model.
func (r *Reconciler) View(st *State) models.DashboardView {
	history := make([]models.HistoryItem, len(st.History))
	copy(history, st.History)

	return models.DashboardView{
		Moisture:           st.Moisture,
		MoisturePercent:    st.MoisturePercent(),
		Recommendation:     st.Recommendation,
		RecommendationText: RecommendationText(st.Recommendation),
		StateColor:         RecommendationColor(st.Recommendation),
		Status:             st.Status,
		LastUpdate:         st.LastUpdate,
		ServoPosition:      st.ServoPosition,
		ServoStatus:        ServoStatus(st.ServoPosition),
		ServoColor:         ServoColor(st.ServoPosition),
		ManualActive:       st.ManualActive,
		ShowWarning:        st.ShowWarning,
		History:            history,
	}
}

func (r *Reconciler) formatClock(t time.Time) string {
	return t.In(r.loc).Format(timestampLayout)
}

func localWarning(st *State) bool {
	return st.ManualActive && st.MoisturePercent() > warningMoistureThreshold
}

func moistureOf(snap models.DeviceSnapshot) float64 {
	if snap.Moisture == nil {
		return 0
	}
	return *snap.Moisture
}

func recommendationOf(snap models.DeviceSnapshot) string {
	if snap.Recommendation == nil || *snap.Recommendation == "" {
		return defaultRecommendation
	}
	return *snap.Recommendation
}

func servoOf(snap models.DeviceSnapshot) int {
	if snap.ServoPosition == nil {
		return 0
	}
	return *snap.ServoPosition
}
