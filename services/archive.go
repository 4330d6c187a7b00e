package services

import (
	"context"
	"fmt"
	"maps"
	"time"

	"civicreport-be/models"
	"civicreport-be/store"

	"github.com/rs/zerolog"
)

// ClearResult reports the outcome of ClearResolved.
type ClearResult struct {
	Removed   int `json:"removed"`
	Remaining int `json:"remaining"`
}

// ArchiveService moves issues out of the active collection into the archive.
//
// Moves write the archive first and the active collection second. If the
// second write fails the archive is restored to its prior content. A crash
// between the two writes leaves the moved issues in both collections, never
// in neither.
type ArchiveService struct {
	store *store.Store
	clock Clock
	log   zerolog.Logger
}

// NewArchiveService wires the service. A nil clock means time.Now.
func NewArchiveService(st *store.Store, clock Clock, log zerolog.Logger) *ArchiveService {
	if clock == nil {
		clock = time.Now
	}
	return &ArchiveService{
		store: st,
		clock: clock,
		log:   log.With().Str("component", "archive").Logger(),
	}
}

// ClearResolved archives every resolved issue and keeps the rest active.
func (a *ArchiveService) ClearResolved(ctx context.Context) (ClearResult, error) {
	unlock := a.store.Lock(store.Issues, store.Archive)
	defer unlock()

	records, err := a.store.LoadForUpdate(ctx, store.Issues)
	if err != nil {
		return ClearResult{}, err
	}
	var resolved, remaining []store.Record
	for _, rec := range records {
		if recordStatus(rec) == models.Resolved {
			resolved = append(resolved, rec)
		} else {
			remaining = append(remaining, rec)
		}
	}
	result := ClearResult{Removed: len(resolved), Remaining: len(remaining)}
	if len(resolved) == 0 {
		return result, nil
	}

	_, previous, err := a.appendLocked(ctx, resolved, a.clock().UTC())
	if err != nil {
		return ClearResult{}, err
	}
	if err := a.store.Save(ctx, store.Issues, remaining); err != nil {
		a.rollbackLocked(ctx, previous)
		return ClearResult{}, err
	}

	a.log.Info().Int("removed", result.Removed).Int("remaining", result.Remaining).Msg("resolved issues archived")
	return result, nil
}

// ArchiveOne appends a copy of issue, stamped with archivedAt, to the archive.
// It takes the archive lock itself and is the entry point for callers that
// only touch the archive. IssueRepository.Delete already holds the lock on
// both collections, so it goes through appendLocked, the same path ArchiveOne
// uses, and keeps the returned previous archive for rollback.
func (a *ArchiveService) ArchiveOne(ctx context.Context, issue store.Record) error {
	unlock := a.store.Lock(store.Archive)
	defer unlock()

	_, _, err := a.appendLocked(ctx, []store.Record{issue}, a.clock().UTC())
	return err
}

// List returns the archived issues in archive order. Entries with values the
// model cannot hold are listed with those fields left empty.
func (a *ArchiveService) List(ctx context.Context) []models.ArchivedIssue {
	records := a.store.Load(ctx, store.Archive)
	out := make([]models.ArchivedIssue, 0, len(records))
	for _, rec := range records {
		archived, err := decodeArchived(rec)
		if err != nil {
			a.log.Warn().Err(err).Msg("archive entry listed with unreadable fields")
		}
		out = append(out, archived)
	}
	return out
}

// appendLocked saves the archive with stamped copies of issues appended. It
// returns the appended copies and the archive as it was before. The caller
// holds the archive lock.
func (a *ArchiveService) appendLocked(ctx context.Context, issues []store.Record, now time.Time) (appended, previous []store.Record, err error) {
	previous, err = a.store.LoadForUpdate(ctx, store.Archive)
	if err != nil {
		return nil, nil, err
	}
	stamp := now.UTC().Format(time.RFC3339Nano)
	appended = make([]store.Record, 0, len(issues))
	for _, issue := range issues {
		entry := maps.Clone(issue)
		entry["archivedAt"] = stamp
		appended = append(appended, entry)
	}

	next := make([]store.Record, 0, len(previous)+len(appended))
	next = append(next, previous...)
	next = append(next, appended...)
	if err := a.store.Save(ctx, store.Archive, next); err != nil {
		return nil, nil, err
	}
	return appended, previous, nil
}

// rollbackLocked restores the archive after the active collection could not
// be written.
func (a *ArchiveService) rollbackLocked(ctx context.Context, previous []store.Record) {
	if err := a.store.Save(ctx, store.Archive, previous); err != nil {
		a.log.Error().Err(err).Msg("archive rollback failed; moved issues remain in both collections")
		return
	}
	a.log.Warn().Msg("active collection write failed; archive rolled back")
}

func decodeArchived(rec store.Record) (models.ArchivedIssue, error) {
	var archived models.ArchivedIssue
	err := fromRecord(rec, &archived)
	if err != nil {
		archived = models.ArchivedIssue{}
		decodeLenient(rec, &archived)
		err = fmt.Errorf("decode archived issue %v: %w", rec["id"], err)
	}
	archived.Normalize()
	return archived, err
}
