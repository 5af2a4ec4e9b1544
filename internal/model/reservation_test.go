package model

import (
	"testing"
	"time"
)

func TestCanTransitionAllowedEdges(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusPending, StatusPaymentInProgress},
		{StatusPending, StatusUnpaid},
		{StatusPending, StatusCancelled},
		{StatusPending, StatusPaid},
		{StatusPaymentInProgress, StatusUnpaid},
		{StatusPaymentInProgress, StatusPaid},
		{StatusPaid, StatusCancelled},
		{StatusPaid, StatusRefundRequested},
		{StatusPaid, StatusAdminCancelled},
		{StatusRefundRequested, StatusRefundCompleted},
		{StatusAdminCancelled, StatusAdminRefundCompleted},
	}
	for _, e := range allowed {
		if !CanTransition(e.from, e.to) {
			t.Fatalf("edge %s -> %s should be allowed", e.from, e.to)
		}
	}
}

func TestCanTransitionRejectsForbiddenEdges(t *testing.T) {
	forbidden := []struct{ from, to Status }{
		{StatusUnpaid, StatusPaid},
		{StatusCancelled, StatusPending},
		{StatusPaid, StatusPending},
		{StatusRefundCompleted, StatusPaid},
		{StatusAdminRefundCompleted, StatusPending},
		{StatusPaymentInProgress, StatusCancelled},
		{StatusUnpaid, StatusUnpaid},
	}
	for _, e := range forbidden {
		if CanTransition(e.from, e.to) {
			t.Fatalf("edge %s -> %s should be rejected", e.from, e.to)
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	terminal := []Status{StatusUnpaid, StatusCancelled, StatusRefundCompleted, StatusAdminRefundCompleted}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Fatalf("%s should be terminal", s)
		}
	}
	live := []Status{StatusPending, StatusPaymentInProgress, StatusPaid, StatusRefundRequested, StatusAdminCancelled}
	for _, s := range live {
		if s.IsTerminal() {
			t.Fatalf("%s should not be terminal", s)
		}
	}
}

func TestBlockingStatuses(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusPaymentInProgress, StatusPaid} {
		if !s.Blocking() {
			t.Fatalf("%s should block its date range", s)
		}
	}
	for _, s := range []Status{StatusUnpaid, StatusCancelled, StatusRefundRequested, StatusRefundCompleted, StatusAdminCancelled, StatusAdminRefundCompleted} {
		if s.Blocking() {
			t.Fatalf("%s should not block its date range", s)
		}
	}
}

func TestMinorUnitsRounding(t *testing.T) {
	cases := []struct {
		amount float64
		want   int
	}{
		{70, 7000},
		{70.5, 7050},
		{0.01, 1},
		{123.455, 12346},
		{123.454, 12345},
		{0, 0},
	}
	for _, c := range cases {
		if got := MinorUnits(c.amount); got != c.want {
			t.Fatalf("MinorUnits(%v) = %d, want %d", c.amount, got, c.want)
		}
	}
}

func TestNightsMinimumOne(t *testing.T) {
	day := func(s string) time.Time {
		d, err := time.Parse(DayKey, s)
		if err != nil {
			t.Fatalf("parse %s: %v", s, err)
		}
		return d
	}
	if got := Nights(day("2026-07-01"), day("2026-07-04")); got != 3 {
		t.Fatalf("three night stay computed as %d nights", got)
	}
	if got := Nights(day("2026-07-01"), day("2026-07-01")); got != 1 {
		t.Fatalf("same-day stay should count one night, got %d", got)
	}
}

func TestDaysInEndExclusive(t *testing.T) {
	day := func(s string) time.Time {
		d, _ := time.Parse(DayKey, s)
		return d
	}
	days := DaysIn(day("2026-07-01"), day("2026-07-04"))
	if len(days) != 3 {
		t.Fatalf("expected 3 days, got %d", len(days))
	}
	if days[0].Format(DayKey) != "2026-07-01" || days[2].Format(DayKey) != "2026-07-03" {
		t.Fatalf("unexpected day expansion: %v", days)
	}
	if got := DaysIn(day("2026-07-04"), day("2026-07-01")); got != nil {
		t.Fatalf("inverted range should yield nil, got %v", got)
	}
}
