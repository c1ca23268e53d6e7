package scheduler

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestScheduler_AddAndEntries(t *testing.T) {
	s := New()
	noop := func(context.Context) error { return nil }

	if err := s.Add("refresh", "0 0 * * *", noop); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Add("cleanup", "*/5 * * * *", noop); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Add("refresh", "0 1 * * *", noop); err == nil {
		t.Error("expected duplicate name to fail")
	}
	if err := s.Add("bad", "not a cron", noop); err == nil {
		t.Error("expected invalid spec to fail")
	}

	s.Start()
	defer s.Stop()

	entries := s.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Name != "cleanup" || entries[1].Name != "refresh" {
		t.Errorf("entries = %v, %v", entries[0].Name, entries[1].Name)
	}
	if entries[1].Next.IsZero() {
		t.Error("expected next run once started")
	}
	if got := entries[1].Next; got.Hour() != 0 || got.Minute() != 0 {
		t.Errorf("refresh next = %v, want midnight", got)
	}

	s.Remove("cleanup")
	if len(s.Entries()) != 1 {
		t.Errorf("expected 1 entry after Remove, got %d", len(s.Entries()))
	}
}

func TestScheduler_RunNow(t *testing.T) {
	s := New()
	var runs atomic.Int32
	boom := errors.New("boom")
	s.Add("ok", "0 0 * * *", func(context.Context) error {
		runs.Add(1)
		return nil
	})
	s.Add("fail", "0 0 * * *", func(context.Context) error { return boom })

	if err := s.RunNow("ok"); err != nil {
		t.Fatalf("RunNow: %v", err)
	}
	if runs.Load() != 1 {
		t.Errorf("runs = %d, want 1", runs.Load())
	}
	if err := s.RunNow("fail"); !errors.Is(err, boom) {
		t.Errorf("RunNow(fail) = %v, want boom", err)
	}
	if err := s.RunNow("missing"); !errors.Is(err, ErrUnknownJob) {
		t.Errorf("RunNow(missing) = %v, want ErrUnknownJob", err)
	}

	for _, e := range s.Entries() {
		switch e.Name {
		case "ok":
			if e.Runs != 1 || e.LastErr != nil || e.LastRun.IsZero() {
				t.Errorf("ok entry = %+v", e)
			}
		case "fail":
			if !errors.Is(e.LastErr, boom) {
				t.Errorf("fail entry LastErr = %v", e.LastErr)
			}
		}
	}
}

func TestScheduler_NoOverlap(t *testing.T) {
	s := New()
	release := make(chan struct{})
	started := make(chan struct{})
	var runs atomic.Int32
	s.Add("slow", "0 0 * * *", func(context.Context) error {
		runs.Add(1)
		close(started)
		<-release
		return nil
	})

	done := make(chan error)
	go func() { done <- s.RunNow("slow") }()
	<-started

	if err := s.RunNow("slow"); err != nil {
		t.Errorf("overlapping RunNow = %v, want nil", err)
	}
	close(release)
	<-done
	if runs.Load() != 1 {
		t.Errorf("runs = %d, want 1", runs.Load())
	}
}

func TestScheduler_StopCancelsJobs(t *testing.T) {
	s := New()
	var sawCancel atomic.Bool
	s.Add("wait", "0 0 * * *", func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			sawCancel.Store(true)
		case <-time.After(time.Second):
		}
		return nil
	})
	s.Start()
	s.Stop()
	if err := s.RunNow("wait"); err != nil {
		t.Fatal(err)
	}
	if !sawCancel.Load() {
		t.Error("job context should be cancelled after Stop")
	}
}

func TestScheduler_LogsToInjectedLogger(t *testing.T) {
	var buf bytes.Buffer
	s := New(WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))
	s.Start()
	s.Stop()

	out := buf.String()
	for _, want := range []string{"scheduler started", "scheduler stopped"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestScheduler_NextRun(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*60*60)
	s := New(WithLocation(loc))
	if err := s.Add("refresh", DailyRefresh, func(context.Context) error { return nil }); err != nil {
		t.Fatal(err)
	}

	// 03:00 UTC is still the previous evening in loc.
	now := time.Date(2024, 6, 6, 3, 0, 0, 0, time.UTC)
	next, ok := s.NextRun("refresh", now)
	if !ok {
		t.Fatal("NextRun: job not found")
	}
	want := time.Date(2024, 6, 6, 0, 0, 0, 0, loc)
	if !next.Equal(want) {
		t.Errorf("NextRun = %v, want %v", next, want)
	}
	if _, ok := s.NextRun("missing", now); ok {
		t.Error("NextRun found an unregistered job")
	}
}
