package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"civicreport-be/models"
	"civicreport-be/store"
)

func toRecord(v any) (store.Record, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var rec store.Record
	if err := dec.Decode(&rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// fromRecord decodes rec into out. Numbers inside opaque values stay
// json.Number so they re-encode as stored.
func fromRecord(rec store.Record, out any) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(out)
}

// decodeLenient fills out key by key, skipping values that do not fit.
func decodeLenient(rec store.Record, out any) {
	for key, value := range rec {
		_ = fromRecord(store.Record{key: value}, out)
	}
}

// decodeIssue decodes rec. When some stored value does not fit the model the
// error is returned together with the issue built from the fields that do.
func decodeIssue(rec store.Record) (models.Issue, error) {
	var issue models.Issue
	err := fromRecord(rec, &issue)
	if err != nil {
		issue = models.Issue{}
		decodeLenient(rec, &issue)
		err = fmt.Errorf("decode issue %v: %w", rec["id"], err)
	}
	issue.Normalize()
	return issue, err
}

// appendUpdate adds an annotation to the updates of rec. Stored entries are
// carried over as they are.
func appendUpdate(rec store.Record, at time.Time, note, by string) {
	existing, _ := rec["updates"].([]any)
	updates := make([]any, 0, len(existing)+1)
	updates = append(updates, existing...)
	updates = append(updates, map[string]any{
		"date": at.UTC().Format(time.RFC3339Nano),
		"note": note,
		"by":   by,
	})
	rec["updates"] = updates
}

func recordID(rec store.Record) string {
	id, _ := rec["id"].(string)
	return id
}

func recordStatus(rec store.Record) models.IssueStatus {
	status, _ := rec["status"].(string)
	return models.IssueStatus(status)
}

func indexOf(records []store.Record, id string) int {
	for i, rec := range records {
		if recordID(rec) == id {
			return i
		}
	}
	return -1
}
