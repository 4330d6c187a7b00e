package store

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// fakeBackend is an in-memory Backend whose failures can be injected.
type fakeBackend struct {
	mu       sync.Mutex
	data     map[string][]Record
	readErr  error
	writeErr error
	writes   []string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{data: map[string][]Record{}}
}

func (f *fakeBackend) Read(_ context.Context, collection string) ([]Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return nil, f.readErr
	}
	records, ok := f.data[collection]
	if !ok {
		return nil, ErrNotExist
	}
	return records, nil
}

func (f *fakeBackend) Write(_ context.Context, collection string, records []Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.data[collection] = records
	f.writes = append(f.writes, collection)
	return nil
}

func (f *fakeBackend) Exists(_ context.Context, collection string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.data[collection]
	return ok, nil
}

func (f *fakeBackend) Close() error { return nil }

func TestLoadFailsSoft(t *testing.T) {
	dir := t.TempDir()
	b, err := OpenFile(dir)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	s := New(b, zerolog.Nop())
	ctx := context.Background()

	if got := s.Load(ctx, Issues); got == nil || len(got) != 0 {
		t.Fatalf("Load(absent) = %#v, want empty non-nil", got)
	}

	if err := os.WriteFile(b.Path(Issues), []byte("garbage"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if got := s.Load(ctx, Issues); len(got) != 0 {
		t.Fatalf("Load(malformed) = %#v, want empty", got)
	}

	fb := newFakeBackend()
	fb.readErr = errors.New("disk on fire")
	if got := New(fb, zerolog.Nop()).Load(ctx, Issues); len(got) != 0 {
		t.Fatalf("Load(io error) = %#v, want empty", got)
	}
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	b, _ := OpenFile(t.TempDir())
	s := New(b, zerolog.Nop())
	ctx := context.Background()

	in := []Record{{"id": "1", "custom": "kept"}, {"id": "2"}}
	if err := s.Save(ctx, Issues, in); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got := s.Load(ctx, Issues)
	if len(got) != 2 || got[0]["custom"] != "kept" || got[1]["id"] != "2" {
		t.Fatalf("Load() = %#v", got)
	}

	if err := s.Save(ctx, Issues, nil); err != nil {
		t.Fatalf("Save(nil) error = %v", err)
	}
	data, _ := os.ReadFile(b.Path(Issues))
	if string(data) != "[]" {
		t.Fatalf("file after empty save = %q, want []", data)
	}
}

func TestLoadForUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("absent is empty", func(t *testing.T) {
		s := New(newFakeBackend(), zerolog.Nop())
		got, err := s.LoadForUpdate(ctx, Issues)
		if err != nil || len(got) != 0 {
			t.Fatalf("LoadForUpdate() = %#v, %v", got, err)
		}
	})

	t.Run("malformed is empty", func(t *testing.T) {
		fb := newFakeBackend()
		fb.readErr = ErrMalformed
		got, err := New(fb, zerolog.Nop()).LoadForUpdate(ctx, Issues)
		if err != nil || len(got) != 0 {
			t.Fatalf("LoadForUpdate() = %#v, %v", got, err)
		}
	})

	t.Run("io error propagates", func(t *testing.T) {
		fb := newFakeBackend()
		fb.readErr = errors.New("connection reset")
		_, err := New(fb, zerolog.Nop()).LoadForUpdate(ctx, Issues)
		if !errors.Is(err, ErrPersistence) {
			t.Fatalf("LoadForUpdate() error = %v, want ErrPersistence", err)
		}
	})
}

func TestSaveWrapsPersistenceError(t *testing.T) {
	fb := newFakeBackend()
	fb.writeErr = errors.New("read-only filesystem")
	err := New(fb, zerolog.Nop()).Save(context.Background(), Issues, []Record{{"id": "1"}})
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("Save() error = %v, want ErrPersistence", err)
	}
}

func TestInvalidCollectionName(t *testing.T) {
	s := New(newFakeBackend(), zerolog.Nop())
	for _, name := range []string{"", "../etc/passwd", "Issues", "a/b", ".hidden"} {
		if err := s.Save(context.Background(), name, nil); !errors.Is(err, ErrInvalidCollection) {
			t.Fatalf("Save(%q) error = %v, want ErrInvalidCollection", name, err)
		}
	}
}

func TestEnsureInitialized(t *testing.T) {
	fb := newFakeBackend()
	s := New(fb, zerolog.Nop())
	ctx := context.Background()

	defaults := []Record{{"id": "electrical"}}
	if err := s.EnsureInitialized(ctx, Departments, defaults); err != nil {
		t.Fatalf("EnsureInitialized() error = %v", err)
	}
	if got := s.Load(ctx, Departments); len(got) != 1 {
		t.Fatalf("Load() = %#v, want defaults", got)
	}

	if err := s.Save(ctx, Departments, []Record{}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := s.EnsureInitialized(ctx, Departments, defaults); err != nil {
		t.Fatalf("EnsureInitialized() second error = %v", err)
	}
	if got := s.Load(ctx, Departments); len(got) != 0 {
		t.Fatalf("existing collection was overwritten: %#v", got)
	}

	if err := s.EnsureInitialized(ctx, Archive, nil); err != nil {
		t.Fatalf("EnsureInitialized(nil) error = %v", err)
	}
	if ok, _ := fb.Exists(ctx, Archive); !ok {
		t.Fatal("archive should exist after initialization")
	}
}

func TestLockOverlappingSetsDoNotDeadlock(t *testing.T) {
	s := New(newFakeBackend(), zerolog.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			unlock := s.Lock(Issues, Archive)
			unlock()
		}()
		go func() {
			defer wg.Done()
			unlock := s.Lock(Archive, Issues, Archive)
			unlock()
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Lock() deadlocked")
	}
}

func TestLockExcludesWriters(t *testing.T) {
	s := New(newFakeBackend(), zerolog.Nop())
	unlock := s.Lock(Issues)

	acquired := make(chan struct{})
	go func() {
		u := s.Lock(Issues)
		close(acquired)
		u()
	}()

	select {
	case <-acquired:
		t.Fatal("second Lock() acquired while first was held")
	case <-time.After(50 * time.Millisecond):
	}
	unlock()
	select {
	case <-acquired:
	case <-time.After(5 * time.Second):
		t.Fatal("second Lock() never acquired")
	}
}
