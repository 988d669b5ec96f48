package calllog

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func openLog(t *testing.T, max int) *Log {
	t.Helper()
	l, err := Open(Options{MaxRecords: max})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestLog_AddAndRecent(t *testing.T) {
	ctx := context.Background()
	l := openLog(t, 10)

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := range 3 {
		err := l.Add(ctx, Record{
			Direction: Incoming,
			Number:    fmt.Sprintf("03012%d", i),
			Outcome:   Completed,
			Start:     base.Add(time.Duration(i) * time.Minute),
			End:       base.Add(time.Duration(i)*time.Minute + 30*time.Second),
		})
		if err != nil {
			t.Fatalf("Add %d: %v", i, err)
		}
	}

	recs, err := l.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("Recent returned %d records", len(recs))
	}
	for i, want := range []string{"030122", "030121", "030120"} {
		if recs[i].Number != want {
			t.Errorf("recs[%d].Number = %q, want %q", i, recs[i].Number, want)
		}
		if recs[i].ID == "" {
			t.Errorf("recs[%d] has no ID", i)
		}
		if recs[i].Duration() != 30*time.Second {
			t.Errorf("recs[%d].Duration() = %v", i, recs[i].Duration())
		}
	}
	if !recs[0].Start.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("newest start = %v", recs[0].Start)
	}

	two, err := l.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent(2): %v", err)
	}
	if len(two) != 2 || two[0].Number != "030122" {
		t.Fatalf("Recent(2) = %+v", two)
	}
}

func TestLog_TrimsOldest(t *testing.T) {
	ctx := context.Background()
	l := openLog(t, 3)

	base := time.Now()
	for i := range 5 {
		if err := l.Add(ctx, Record{Number: fmt.Sprint(i), Start: base.Add(time.Duration(i) * time.Second)}); err != nil {
			t.Fatalf("Add %d: %v", i, err)
		}
	}
	recs, err := l.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	var got []string
	for _, r := range recs {
		got = append(got, r.Number)
	}
	if fmt.Sprint(got) != "[4 3 2]" {
		t.Fatalf("kept %v, want [4 3 2]", got)
	}
}

func TestLog_SameStartKeepsBoth(t *testing.T) {
	ctx := context.Background()
	l := openLog(t, 10)

	start := time.Now()
	l.Add(ctx, Record{Number: "a", Start: start})
	l.Add(ctx, Record{Number: "b", Start: start})
	recs, _ := l.Recent(ctx, 0)
	if len(recs) != 2 {
		t.Fatalf("Recent returned %d records, want 2", len(recs))
	}
}

func TestLog_Closed(t *testing.T) {
	l, err := Open(Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if err := l.Add(context.Background(), Record{}); !errors.Is(err, ErrClosed) {
		t.Fatalf("Add after Close = %v, want ErrClosed", err)
	}
	if _, err := l.Recent(context.Background(), 1); !errors.Is(err, ErrClosed) {
		t.Fatalf("Recent after Close = %v, want ErrClosed", err)
	}
}

func TestRecord_DurationNeverNegative(t *testing.T) {
	now := time.Now()
	r := Record{Start: now, End: now.Add(-time.Second)}
	if r.Duration() != 0 {
		t.Fatalf("Duration() = %v, want 0", r.Duration())
	}
}
