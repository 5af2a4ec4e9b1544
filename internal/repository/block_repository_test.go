package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/lakeview/spot-reservation/internal/database"
	"github.com/lakeview/spot-reservation/internal/model"
)

func newBlockRepo(t *testing.T) (*BlockRepo, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	repo := NewBlockRepo(database.Wrap(db))
	return repo, mock, func() { _ = db.Close() }
}

func parseDay(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(model.DayKey, s)
	if err != nil {
		t.Fatalf("parse day %s: %v", s, err)
	}
	return d
}

func TestOccupyInsertsOneRowPerDay(t *testing.T) {
	repo, mock, cleanup := newBlockRepo(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO spot_blocks").
		WithArgs(
			7, "2026-09-10", string(model.SourceReservation),
			7, "2026-09-11", string(model.SourceReservation),
		).
		WillReturnResult(sqlmock.NewResult(0, 2))

	err := repo.Occupy(context.Background(), 7,
		parseDay(t, "2026-09-10"), parseDay(t, "2026-09-12"), model.SourceReservation)
	if err != nil {
		t.Fatalf("occupy: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestOccupyEmptyRangeIsNoop(t *testing.T) {
	repo, mock, cleanup := newBlockRepo(t)
	defer cleanup()

	err := repo.Occupy(context.Background(), 7,
		parseDay(t, "2026-09-12"), parseDay(t, "2026-09-10"), model.SourceReservation)
	if err != nil {
		t.Fatalf("occupy inverted range: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("inverted range must issue no SQL: %v", err)
	}
}

func TestReleaseRestrictsSources(t *testing.T) {
	repo, mock, cleanup := newBlockRepo(t)
	defer cleanup()

	mock.ExpectExec("DELETE FROM spot_blocks WHERE spot_id").
		WithArgs(
			7, "2026-09-10", "2026-09-11",
			string(model.SourceReservation), string(model.SourcePaidReservation),
		).
		WillReturnResult(sqlmock.NewResult(0, 2))

	err := repo.Release(context.Background(), 7,
		parseDay(t, "2026-09-10"), parseDay(t, "2026-09-12"), model.LifecycleSources)
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPromoteSwapsSourcesInOneTransaction(t *testing.T) {
	repo, mock, cleanup := newBlockRepo(t)
	defer cleanup()

	mock.ExpectBegin()
	for _, day := range []string{"2026-09-10", "2026-09-11"} {
		mock.ExpectExec("DELETE FROM spot_blocks WHERE spot_id = \\? AND day = \\? AND source = \\?").
			WithArgs(7, day, string(model.SourceReservation)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO spot_blocks \\(spot_id, day, source\\) VALUES \\(\\?, \\?, \\?\\)").
			WithArgs(7, day, string(model.SourcePaidReservation)).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	err := repo.Promote(context.Background(), 7,
		parseDay(t, "2026-09-10"), parseDay(t, "2026-09-12"),
		model.SourceReservation, model.SourcePaidReservation)
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPromoteRollsBackOnFailure(t *testing.T) {
	repo, mock, cleanup := newBlockRepo(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM spot_blocks").
		WithArgs(7, "2026-09-10", string(model.SourceReservation)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO spot_blocks").
		WithArgs(7, "2026-09-10", string(model.SourcePaidReservation)).
		WillReturnError(errors.New("insert failed"))
	mock.ExpectRollback()

	err := repo.Promote(context.Background(), 7,
		parseDay(t, "2026-09-10"), parseDay(t, "2026-09-11"),
		model.SourceReservation, model.SourcePaidReservation)
	if err == nil {
		t.Fatalf("expected promote failure")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
