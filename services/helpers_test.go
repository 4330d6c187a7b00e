package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"civicreport-be/models"
	"civicreport-be/store"

	"github.com/rs/zerolog"
)

var baseTime = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

// stepClock advances one second per call.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

// flakyBackend wraps a real backend and fails writes to one collection on demand.
type flakyBackend struct {
	store.Backend
	mu       sync.Mutex
	failOn   string
	failRead string
}

func (f *flakyBackend) setFailWrite(collection string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failOn = collection
}

func (f *flakyBackend) setFailRead(collection string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failRead = collection
}

func (f *flakyBackend) Read(ctx context.Context, collection string) ([]store.Record, error) {
	f.mu.Lock()
	fail := f.failRead == collection
	f.mu.Unlock()
	if fail {
		return nil, errors.New("injected read failure")
	}
	return f.Backend.Read(ctx, collection)
}

func (f *flakyBackend) Write(ctx context.Context, collection string, records []store.Record) error {
	f.mu.Lock()
	fail := f.failOn == collection
	f.mu.Unlock()
	if fail {
		return errors.New("injected write failure")
	}
	return f.Backend.Write(ctx, collection, records)
}

type fixture struct {
	store   *store.Store
	backend *flakyBackend
	clock   *stepClock
	issues  *IssueRepository
	archive *ArchiveService
	depts   *DepartmentCatalog
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fb, err := store.OpenFile(t.TempDir())
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	backend := &flakyBackend{Backend: fb}
	st := store.New(backend, zerolog.Nop())
	clock := &stepClock{now: baseTime}
	archive := NewArchiveService(st, clock.Now, zerolog.Nop())
	f := &fixture{
		store:   st,
		backend: backend,
		clock:   clock,
		archive: archive,
		issues:  NewIssueRepository(st, archive, nil, clock.Now, zerolog.Nop()),
		depts:   NewDepartmentCatalog(st, zerolog.Nop()),
	}
	if err := Bootstrap(context.Background(), st, f.depts); err != nil {
		t.Fatalf("Bootstrap() error = %v", err)
	}
	return f
}

func (f *fixture) create(t *testing.T, title string) models.Issue {
	t.Helper()
	issue, err := f.issues.Create(context.Background(), CreateIssueInput{
		Type:        "pothole",
		Title:       title,
		Description: "On Main St",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return issue
}

func (f *fixture) resolve(t *testing.T, id string) {
	t.Helper()
	if _, err := f.issues.UpdateStatus(context.Background(), id, models.Resolved); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}
}
