package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cloudiagent/cloudiagent/internal/thread"
)

func openThreads(t *testing.T) (*DB, *ThreadStore) {
	t.Helper()
	db, err := Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	s, err := NewThreadStore(db, 0)
	if err != nil {
		t.Fatal(err)
	}
	return db, s
}

func TestThreadStore_CreateAppendTurns(t *testing.T) {
	ctx := context.Background()
	_, s := openThreads(t)

	if err := s.Create(ctx, "t1"); err != nil {
		t.Fatal(err)
	}
	if err := s.Create(ctx, "t1"); err != nil {
		t.Fatalf("second create: %v", err)
	}
	ok, err := s.Exists(ctx, "t1")
	if err != nil || !ok {
		t.Fatalf("Exists(t1) = %v, %v", ok, err)
	}

	at := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	turns := []thread.Turn{
		{Role: thread.RoleUser, Kind: thread.ContentImage, AssetID: "folder/cat", CreatedAt: at},
		{Role: thread.RoleUser, Kind: thread.ContentText, Text: "resize to 800x600", CreatedAt: at},
		{Role: thread.RoleAssistant, Kind: thread.ContentToolResult, Result: []byte(`{"type":"cloudinaryUrl"}`), CreatedAt: at},
	}
	for _, turn := range turns {
		if err := s.Append(ctx, "t1", turn); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.Turns(ctx, "t1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d turns, want 3", len(got))
	}
	if got[0].Kind != thread.ContentImage || got[0].AssetID != "folder/cat" || got[0].Text != "" {
		t.Errorf("turn 0: %+v", got[0])
	}
	if got[1].Text != "resize to 800x600" || got[1].AssetID != "" || got[1].Result != nil {
		t.Errorf("turn 1: %+v", got[1])
	}
	if got[2].Role != thread.RoleAssistant || string(got[2].Result) != `{"type":"cloudinaryUrl"}` {
		t.Errorf("turn 2: %+v", got[2])
	}
	if !got[0].CreatedAt.Equal(at) {
		t.Errorf("created_at = %v, want %v", got[0].CreatedAt, at)
	}

	n, err := s.CountThreads(ctx)
	if err != nil || n != 1 {
		t.Errorf("CountThreads = %d, %v", n, err)
	}
}

func TestThreadStore_UnknownThread(t *testing.T) {
	ctx := context.Background()
	_, s := openThreads(t)

	ok, err := s.Exists(ctx, "missing")
	if err != nil || ok {
		t.Fatalf("Exists(missing) = %v, %v", ok, err)
	}
	if err := s.Append(ctx, "missing", thread.TextTurn(thread.RoleUser, "hi")); !errors.Is(err, thread.ErrUnknownThread) {
		t.Errorf("Append: want ErrUnknownThread, got %v", err)
	}
	if _, err := s.Turns(ctx, "missing"); !errors.Is(err, thread.ErrUnknownThread) {
		t.Errorf("Turns: want ErrUnknownThread, got %v", err)
	}
}

func TestThreadStore_ThreadsAreSeparate(t *testing.T) {
	ctx := context.Background()
	_, s := openThreads(t)
	m := thread.NewManager(s)

	a, err := m.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	b, err := m.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.AppendTurn(ctx, a, thread.TextTurn(thread.RoleUser, "a1"), thread.TextTurn(thread.RoleAssistant, "a2")); err != nil {
		t.Fatal(err)
	}
	if err := m.AppendTurn(ctx, b, thread.TextTurn(thread.RoleUser, "b1")); err != nil {
		t.Fatal(err)
	}

	ta, _ := m.History(ctx, a)
	tb, _ := m.History(ctx, b)
	if len(ta) != 2 || ta[0].Text != "a1" || ta[1].Text != "a2" {
		t.Errorf("thread a: %+v", ta)
	}
	if len(tb) != 1 || tb[0].Text != "b1" {
		t.Errorf("thread b: %+v", tb)
	}
}

func TestThreadStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "threads.db")

	db, err := Open(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	s, _ := NewThreadStore(db, 8)
	if err := s.Create(ctx, "keep"); err != nil {
		t.Fatal(err)
	}
	if err := s.Append(ctx, "keep", thread.TextTurn(thread.RoleUser, "hello")); err != nil {
		t.Fatal(err)
	}
	db.Close()

	db, err = Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	s, _ = NewThreadStore(db, 8)
	turns, err := s.Turns(ctx, "keep")
	if err != nil {
		t.Fatal(err)
	}
	if len(turns) != 1 || turns[0].Text != "hello" {
		t.Errorf("after reopen: %+v", turns)
	}
}

func TestThreadStore_ConcurrentThreadsOnFile(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, filepath.Join(t.TempDir(), "concurrent.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	s, err := NewThreadStore(db, 0)
	if err != nil {
		t.Fatal(err)
	}
	m := thread.NewManager(s)

	const threads, appends = 16, 10
	ids := make([]string, threads)
	for i := range ids {
		if ids[i], err = m.Start(ctx); err != nil {
			t.Fatal(err)
		}
	}

	var wg sync.WaitGroup
	errs := make(chan error, threads*appends)
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for j := 0; j < appends; j++ {
				if err := m.AppendTurn(ctx, id, thread.TextTurn(thread.RoleUser, fmt.Sprintf("m%d", j))); err != nil {
					errs <- err
				}
			}
		}(id)
	}
	wg.Wait()
	close(errs)

	failed := 0
	var first error
	for err := range errs {
		if first == nil {
			first = err
		}
		failed++
	}
	if failed > 0 {
		t.Fatalf("%d of %d appends failed; first: %v", failed, threads*appends, first)
	}

	for _, id := range ids {
		turns, err := s.Turns(ctx, id)
		if err != nil {
			t.Fatal(err)
		}
		if len(turns) != appends {
			t.Fatalf("thread %s: %d turns, want %d", id, len(turns), appends)
		}
		for j, turn := range turns {
			if want := fmt.Sprintf("m%d", j); turn.Text != want {
				t.Errorf("thread %s turn %d = %q, want %q", id, j, turn.Text, want)
			}
		}
	}
}

func TestHealthCheck(t *testing.T) {
	db, s := openThreads(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b"} {
		if err := s.Create(ctx, id); err != nil {
			t.Fatal(err)
		}
	}
	h := db.HealthCheck()
	if h.Status != "ok" || h.Name != "database" || h.LastOK.IsZero() || h.Message != "2 threads" {
		t.Errorf("health: %+v", h)
	}
	db.Close()
	if h := db.HealthCheck(); h.Status != "error" {
		t.Errorf("closed db health: %+v", h)
	}
}
