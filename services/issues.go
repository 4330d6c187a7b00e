package services

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"civicreport-be/models"
	"civicreport-be/store"

	"github.com/rs/zerolog"
)

// AuthorityLabel signs updates written by the assignment operation.
const AuthorityLabel = "Authority"

// IssueRepository reads and mutates the active issues collection.
type IssueRepository struct {
	store   *store.Store
	archive *ArchiveService
	newID   IDGenerator
	clock   Clock
	log     zerolog.Logger
}

// NewIssueRepository wires the repository. A nil newID or clock falls back to
// NewIssueID and time.Now.
func NewIssueRepository(st *store.Store, archive *ArchiveService, newID IDGenerator, clock Clock, log zerolog.Logger) *IssueRepository {
	if newID == nil {
		newID = NewIssueID
	}
	if clock == nil {
		clock = time.Now
	}
	return &IssueRepository{
		store:   st,
		archive: archive,
		newID:   newID,
		clock:   clock,
		log:     log.With().Str("component", "issues").Logger(),
	}
}

// ListAll returns the active issues in stored order. A record with values
// the model cannot hold is still listed, with those fields left empty.
func (r *IssueRepository) ListAll(ctx context.Context) []models.Issue {
	records := r.store.Load(ctx, store.Issues)
	issues := make([]models.Issue, 0, len(records))
	for _, rec := range records {
		issue, err := decodeIssue(rec)
		if err != nil {
			r.log.Warn().Err(err).Msg("issue listed with unreadable fields")
		}
		issues = append(issues, issue)
	}
	return issues
}

// CreateIssueInput holds the reporter-supplied fields of a new issue. Empty
// fields are accepted as given. Coordinates, Media and VoiceNote are stored
// as received.
type CreateIssueInput struct {
	Type          string
	Title         string
	Description   string
	Location      string
	ManualAddress string
	Coordinates   any
	Priority      models.IssuePriority
	ReportedBy    string
	Media         []any
	VoiceNote     any
}

// Create stores a new pending issue and returns it.
func (r *IssueRepository) Create(ctx context.Context, in CreateIssueInput) (models.Issue, error) {
	unlock := r.store.Lock(store.Issues)
	defer unlock()

	records, err := r.store.LoadForUpdate(ctx, store.Issues)
	if err != nil {
		return models.Issue{}, err
	}
	id, err := r.uniqueID(records)
	if err != nil {
		return models.Issue{}, err
	}

	location := in.Location
	if location == "" {
		location = in.ManualAddress
	}
	priority := in.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	reportedBy := in.ReportedBy
	if reportedBy == "" {
		reportedBy = models.DefaultReporter
	}

	issue := models.Issue{
		ID:          id,
		Type:        in.Type,
		Title:       in.Title,
		Description: in.Description,
		Location:    location,
		Coordinates: in.Coordinates,
		Status:      models.Pending,
		Priority:    priority,
		ReportedBy:  reportedBy,
		ReportedAt:  r.clock().UTC(),
		Media:       slices.Clone(in.Media),
		VoiceNote:   in.VoiceNote,
	}
	issue.Normalize()

	rec, err := toRecord(issue)
	if err != nil {
		return models.Issue{}, fmt.Errorf("encode issue %s: %w", id, err)
	}
	if err := r.store.Save(ctx, store.Issues, append(records, rec)); err != nil {
		return models.Issue{}, err
	}

	r.log.Info().Str("id", id).Str("type", issue.Type).Msg("issue reported")
	stored, _ := decodeIssue(rec)
	return stored, nil
}

// UpdateStatus overwrites the status of an issue. Any value may follow any
// other; an empty status leaves the current one in place.
func (r *IssueRepository) UpdateStatus(ctx context.Context, id string, status models.IssueStatus) (models.Issue, error) {
	return r.mutate(ctx, id, func(rec store.Record) {
		if status != "" {
			rec["status"] = string(status)
		}
	})
}

// AssignInput carries the optional assignment fields. Empty fields keep the
// current value.
type AssignInput struct {
	Department   string
	AssignedTo   string
	Priority     models.IssuePriority
	Instructions string
}

// Assign records an assignment, moves a pending issue to in-progress and
// appends an update when instructions are given.
func (r *IssueRepository) Assign(ctx context.Context, id string, in AssignInput) (models.Issue, error) {
	return r.mutate(ctx, id, func(rec store.Record) {
		now := r.clock().UTC()
		if in.Department != "" {
			rec["department"] = in.Department
		}
		if in.AssignedTo != "" {
			rec["assignedTo"] = in.AssignedTo
		}
		if in.Priority != "" {
			rec["priority"] = string(in.Priority)
		}
		rec["assignedAt"] = now.Format(time.RFC3339Nano)
		if recordStatus(rec) == models.Pending {
			rec["status"] = string(models.InProgress)
		}
		if in.Instructions != "" {
			appendUpdate(rec, now, "Assignment note: "+in.Instructions, AuthorityLabel)
		}
	})
}

// Delete removes an issue from the active collection and archives it.
func (r *IssueRepository) Delete(ctx context.Context, id string) (models.ArchivedIssue, error) {
	unlock := r.store.Lock(store.Issues, store.Archive)
	defer unlock()

	records, err := r.store.LoadForUpdate(ctx, store.Issues)
	if err != nil {
		return models.ArchivedIssue{}, err
	}
	idx := indexOf(records, id)
	if idx < 0 {
		return models.ArchivedIssue{}, fmt.Errorf("issue %s: %w", id, ErrNotFound)
	}
	removed := records[idx]
	remaining := slices.Delete(slices.Clone(records), idx, idx+1)

	now := r.clock().UTC()
	archived, previous, err := r.archive.appendLocked(ctx, []store.Record{removed}, now)
	if err != nil {
		return models.ArchivedIssue{}, err
	}
	if err := r.store.Save(ctx, store.Issues, remaining); err != nil {
		r.archive.rollbackLocked(ctx, previous)
		return models.ArchivedIssue{}, err
	}

	r.log.Info().Str("id", id).Msg("issue deleted and archived")
	out, err := decodeArchived(archived[0])
	if err != nil {
		r.log.Warn().Err(err).Str("id", id).Msg("archived issue has unreadable fields")
	}
	return out, nil
}

// mutate applies patch to a copy of the stored record. Keys patch does not
// set keep their stored values.
func (r *IssueRepository) mutate(ctx context.Context, id string, patch func(store.Record)) (models.Issue, error) {
	unlock := r.store.Lock(store.Issues)
	defer unlock()

	records, err := r.store.LoadForUpdate(ctx, store.Issues)
	if err != nil {
		return models.Issue{}, err
	}
	idx := indexOf(records, id)
	if idx < 0 {
		return models.Issue{}, fmt.Errorf("issue %s: %w", id, ErrNotFound)
	}

	rec := maps.Clone(records[idx])
	patch(rec)

	updated := slices.Clone(records)
	updated[idx] = rec
	if err := r.store.Save(ctx, store.Issues, updated); err != nil {
		return models.Issue{}, err
	}
	r.log.Info().Str("id", id).Str("status", string(recordStatus(rec))).Msg("issue updated")

	issue, err := decodeIssue(rec)
	if err != nil {
		r.log.Warn().Err(err).Str("id", id).Msg("updated issue has unreadable fields")
	}
	return issue, nil
}

func (r *IssueRepository) uniqueID(records []store.Record) (string, error) {
	taken := make(map[string]struct{}, len(records))
	for _, rec := range records {
		taken[recordID(rec)] = struct{}{}
	}
	for range maxIDAttempts {
		id, err := r.newID()
		if err != nil {
			return "", fmt.Errorf("generate issue id: %w", err)
		}
		if _, dup := taken[id]; !dup {
			return id, nil
		}
	}
	return "", errors.New("generate issue id: too many collisions")
}
