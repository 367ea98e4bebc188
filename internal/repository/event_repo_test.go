package repository

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"irrigation_dashboard/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
)

func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	t.Cleanup(cancel)
	return c
}

// sqlmockArgumentFunc adapts a predicate to sqlmock.Argument.
type sqlmockArgumentFunc func(driver.Value) bool

func (f sqlmockArgumentFunc) Match(v driver.Value) bool { return f(v) }

func TestAppend_Success_WithDefaults(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	repo := NewEventSQLite(db)

	nonEmpty := sqlmockArgumentFunc(func(v driver.Value) bool {
		s, ok := v.(string)
		return ok && s != ""
	})
	recentStamp := sqlmockArgumentFunc(func(v driver.Value) bool {
		s, ok := v.(string)
		if !ok {
			return false
		}
		ts, err := time.Parse(occurredAtLayout, s)
		if err != nil {
			return false
		}
		return time.Since(ts) < 5*time.Second && time.Since(ts) > -5*time.Second
	})

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO dashboard_events (id, occurred_at, type, message, meta)")).
		WithArgs(nonEmpty, recentStamp, "TOGGLE", "manual watering on", `{"active":true}`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.Append(testCtx(t), models.DashboardEvent{
		Type:        "  toggle ",
		Description: "manual watering on",
		Metadata:    map[string]any{"active": true},
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestAppend_KeepsGivenIDAndTime(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	tokyo := time.FixedZone("JST", 9*60*60)
	at := time.Date(2025, 3, 4, 9, 0, 0, 0, tokyo)

	mock.ExpectExec("INSERT INTO dashboard_events").
		WithArgs("evt-1", "2025-03-04 00:00:00.000", "COMMAND_SENT", "sent", nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = NewEventSQLite(db).Append(testCtx(t), models.DashboardEvent{
		EventID:     "evt-1",
		OccurredAt:  at,
		Type:        models.EventCommandSent,
		Description: "sent",
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestAppend_DBError(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("INSERT INTO dashboard_events").
		WillReturnError(errors.New("down"))

	err = NewEventSQLite(db).Append(testCtx(t), models.DashboardEvent{
		Type:        "warning",
		Description: "x",
		Metadata:    map[string]string{"k": "v"},
	})
	if err == nil || !strings.Contains(err.Error(), "down") {
		t.Fatalf("expected error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestAppend_UnmarshalableMetadata(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	err = NewEventSQLite(db).Append(testCtx(t), models.DashboardEvent{
		Type:     "warning",
		Metadata: map[string]any{"ch": make(chan int)},
	})
	if err == nil {
		t.Fatalf("expected marshal error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("no statement should run: %v", err)
	}
}

func TestList_NoFilters_And_MetadataParsing(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	js, _ := json.Marshal(map[string]any{"a": "b"})
	rows := sqlmock.NewRows([]string{"id", "occurred_at", "type", "message", "meta"}).
		AddRow("1", "2025-01-01 10:00:00.000", "TOGGLE", "m1", string(js)).
		AddRow("2", "2025-01-01T11:00:00Z", "WARNING", "m2", nil).
		AddRow("3", "2025-01-01 12:00:00.500", "WARNING", "m3", "not-json")

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, occurred_at, type, message, meta FROM dashboard_events ORDER BY occurred_at ASC, rowid ASC`)).
		WillReturnRows(rows)

	got, err := NewEventSQLite(db).List(testCtx(t), time.Time{}, time.Time{}, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("want 3, got %d", len(got))
	}
	if !got[0].OccurredAt.Equal(time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("occurred_at parse: %v", got[0].OccurredAt)
	}
	if !got[1].OccurredAt.Equal(time.Date(2025, 1, 1, 11, 0, 0, 0, time.UTC)) {
		t.Fatalf("RFC3339 occurred_at parse: %v", got[1].OccurredAt)
	}
	b1, _ := json.Marshal(got[0].Metadata)
	if string(b1) != string(js) {
		t.Fatalf("metadata mismatch: %s vs %s", b1, js)
	}
	if got[1].Metadata != nil {
		t.Fatalf("expected nil meta, got %#v", got[1].Metadata)
	}
	if got[2].Metadata != "not-json" {
		t.Fatalf("malformed meta should be kept raw, got %#v", got[2].Metadata)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestList_WithFilters_OrderAndArgs(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT id, occurred_at, type, message, meta FROM dashboard_events WHERE occurred_at >= ? AND occurred_at <= ? AND type = ? ORDER BY occurred_at ASC, rowid ASC`,
	)).
		WithArgs("2025-01-01 00:00:00.000", "2025-01-02 00:00:00.000", "COMMAND_FAILED").
		WillReturnRows(sqlmock.NewRows([]string{"id", "occurred_at", "type", "message", "meta"}))

	got, err := NewEventSQLite(db).List(testCtx(t), from, to, " command_failed ")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %d", len(got))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestList_QueryAndScanErrors(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()
	repo := NewEventSQLite(db)

	mock.ExpectQuery("SELECT id, occurred_at").WillReturnError(errors.New("locked"))
	if _, err := repo.List(testCtx(t), time.Time{}, time.Time{}, ""); err == nil {
		t.Fatalf("expected query error")
	}

	mock.ExpectQuery("SELECT id, occurred_at").WillReturnRows(
		sqlmock.NewRows([]string{"id", "occurred_at", "type", "message", "meta"}).
			AddRow("1", "yesterday", "TOGGLE", "m", nil),
	)
	if _, err := repo.List(testCtx(t), time.Time{}, time.Time{}, ""); err == nil {
		t.Fatalf("expected occurred_at parse error")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}
