// Package store persists named collections of JSON records. Every read and
// write materializes the whole collection; there is no per-record access.
package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"sync"

	"github.com/rs/zerolog"
)

// Collection names used by the services.
const (
	Issues      = "issues"
	Departments = "departments"
	Archive     = "archive"
)

var (
	// ErrNotExist is returned by a Backend when the collection has never been written.
	ErrNotExist = errors.New("collection does not exist")
	// ErrMalformed wraps decode failures of persisted content.
	ErrMalformed = errors.New("malformed collection")
	// ErrPersistence wraps any failure to read or write the durable resource.
	ErrPersistence = errors.New("persistence failure")
	// ErrInvalidCollection is returned for names that cannot back a resource.
	ErrInvalidCollection = errors.New("invalid collection name")
)

var collectionNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Record is one JSON object of a collection.
type Record map[string]any

// Backend is a durable resource per collection.
type Backend interface {
	Read(ctx context.Context, collection string) ([]Record, error)
	Write(ctx context.Context, collection string, records []Record) error
	Exists(ctx context.Context, collection string) (bool, error)
	Close() error
}

// Store provides whole-collection load/save on top of a Backend.
type Store struct {
	backend Backend
	log     zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New wraps a backend.
func New(backend Backend, log zerolog.Logger) *Store {
	return &Store{
		backend: backend,
		log:     log,
		locks:   map[string]*sync.Mutex{},
	}
}

// Load returns every record of the collection in persisted order. An absent,
// malformed or unreadable resource yields an empty sequence.
func (s *Store) Load(ctx context.Context, collection string) []Record {
	records, err := s.read(ctx, collection)
	if err != nil {
		if !errors.Is(err, ErrNotExist) {
			s.log.Warn().Err(err).Str("collection", collection).Msg("load failed, using empty collection")
		}
		return []Record{}
	}
	return records
}

// LoadForUpdate is Load for callers that will save the collection back.
// Absent and malformed content still read as empty, but I/O failures are
// returned so that a transient outage cannot be saved over real data.
func (s *Store) LoadForUpdate(ctx context.Context, collection string) ([]Record, error) {
	records, err := s.read(ctx, collection)
	switch {
	case err == nil:
		return records, nil
	case errors.Is(err, ErrNotExist):
		return []Record{}, nil
	case errors.Is(err, ErrMalformed):
		s.log.Warn().Err(err).Str("collection", collection).Msg("discarding malformed collection")
		return []Record{}, nil
	default:
		return nil, fmt.Errorf("%w: load %s: %w", ErrPersistence, collection, err)
	}
}

// Save overwrites the collection with records.
func (s *Store) Save(ctx context.Context, collection string, records []Record) error {
	if err := checkCollection(collection); err != nil {
		return err
	}
	if records == nil {
		records = []Record{}
	}
	if err := s.backend.Write(ctx, collection, records); err != nil {
		return fmt.Errorf("%w: save %s: %w", ErrPersistence, collection, err)
	}
	return nil
}

// EnsureInitialized writes defaults if the collection does not exist yet.
func (s *Store) EnsureInitialized(ctx context.Context, collection string, defaults []Record) error {
	if err := checkCollection(collection); err != nil {
		return err
	}
	unlock := s.Lock(collection)
	defer unlock()

	ok, err := s.backend.Exists(ctx, collection)
	if err != nil {
		return fmt.Errorf("%w: stat %s: %w", ErrPersistence, collection, err)
	}
	if ok {
		return nil
	}
	if err := s.Save(ctx, collection, defaults); err != nil {
		return err
	}
	s.log.Info().Str("collection", collection).Int("records", len(defaults)).Msg("initialized collection")
	return nil
}

// Lock serializes writers of the given collections. Locks are taken in
// sorted order so overlapping callers cannot deadlock.
func (s *Store) Lock(collections ...string) (unlock func()) {
	names := slices.Clone(collections)
	slices.Sort(names)
	names = slices.Compact(names)

	held := make([]*sync.Mutex, 0, len(names))
	for _, name := range names {
		m := s.collectionLock(name)
		m.Lock()
		held = append(held, m)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) collectionLock(name string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.locks[name]
	if !ok {
		m = &sync.Mutex{}
		s.locks[name] = m
	}
	return m
}

func (s *Store) read(ctx context.Context, collection string) ([]Record, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	records, err := s.backend.Read(ctx, collection)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

func checkCollection(name string) error {
	if !collectionNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidCollection, name)
	}
	return nil
}
