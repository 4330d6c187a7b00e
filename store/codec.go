package store

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// encodeRecords renders a collection as a JSON array. indent matches the
// two-space layout of the on-disk files.
func encodeRecords(records []Record, indent bool) ([]byte, error) {
	if records == nil {
		records = []Record{}
	}
	if indent {
		return json.MarshalIndent(records, "", "  ")
	}
	return json.Marshal(records)
}

// decodeRecords parses a JSON array of objects. Numbers are kept as
// json.Number so they are written back exactly as read.
func decodeRecords(data []byte) ([]Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var records []Record
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after array", ErrMalformed)
	}
	for i, rec := range records {
		if rec == nil {
			return nil, fmt.Errorf("%w: element %d is not an object", ErrMalformed, i)
		}
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}
