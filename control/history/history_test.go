package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jrockway/console-clock/control/console"
)

func TestDatabase(t *testing.T) {
	db, err := OpenDatabase(":memory:")
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	defer db.Close()

	start := time.Date(2021, 9, 1, 12, 0, 0, 0, time.UTC)
	events := []console.CommitEvent{
		{At: start, Requested: 0x235959, Committed: 0x235959},
		{At: start.Add(time.Minute), Requested: 0x999999, Committed: 0, Clamped: true},
		{At: start.Add(2 * time.Minute), Requested: 0x120000, Committed: 0x120000, Err: errors.New("rtc not ready")},
	}
	for _, ev := range events {
		if err := db.RecordCommit(ev); err != nil {
			t.Errorf("record commit: %v", err)
		}
	}

	c, err := db.Count()
	if err != nil {
		t.Fatalf("count commits: %v", err)
	}
	if got, want := c, 3; got != want {
		t.Errorf("unexpected number of commit rows:\n  got: %d\n want: %d", got, want)
	}

	got, err := db.Recent(2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	want := []Entry{
		{At: start.Add(2 * time.Minute), Requested: 0x120000, Committed: 0x120000, Error: "rtc not ready"},
		{At: start.Add(time.Minute), Requested: 0x999999, Committed: 0, Clamped: true},
	}
	if diff := cmp.Diff(want, got, cmp.Comparer(func(a, b time.Time) bool { return a.Equal(b) })); diff != "" {
		t.Errorf("recent commits:\n%s", diff)
	}
}

func TestRun(t *testing.T) {
	db, err := OpenDatabase(":memory:")
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan console.CommitEvent)
	errCh := make(chan error)
	go func() { errCh <- db.Run(ctx, ch) }()

	ch <- console.CommitEvent{At: time.Now(), Requested: 1, Committed: 1}
	ch <- console.CommitEvent{At: time.Now(), Requested: 2, Committed: 2}
	// Unbuffered: the second send returns only after the first record has been written.
	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("run:\n  got: %v\n want: %v", err, context.Canceled)
	}
	c, err := db.Count()
	if err != nil {
		t.Fatal(err)
	}
	if c < 1 || c > 2 {
		t.Errorf("unexpected number of commit rows: %d", c)
	}
}
