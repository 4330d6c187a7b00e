package services

import (
	"context"
	"fmt"

	"civicreport-be/models"
	"civicreport-be/store"

	"github.com/rs/zerolog"
)

// DepartmentCatalog exposes the static department reference list.
type DepartmentCatalog struct {
	store *store.Store
	log   zerolog.Logger
}

// NewDepartmentCatalog wires the catalog.
func NewDepartmentCatalog(st *store.Store, log zerolog.Logger) *DepartmentCatalog {
	return &DepartmentCatalog{store: st, log: log.With().Str("component", "departments").Logger()}
}

// Seed writes the default departments unless the collection already exists.
// Call it once at startup; later calls do nothing.
func (c *DepartmentCatalog) Seed(ctx context.Context) error {
	defaults := models.DefaultDepartments()
	records := make([]store.Record, 0, len(defaults))
	for _, d := range defaults {
		rec, err := toRecord(d)
		if err != nil {
			return fmt.Errorf("encode department %s: %w", d.ID, err)
		}
		records = append(records, rec)
	}
	return c.store.EnsureInitialized(ctx, store.Departments, records)
}

// List returns the departments in stored order.
func (c *DepartmentCatalog) List(ctx context.Context) []models.Department {
	records := c.store.Load(ctx, store.Departments)
	out := make([]models.Department, 0, len(records))
	for _, rec := range records {
		var d models.Department
		if err := fromRecord(rec, &d); err != nil {
			c.log.Warn().Err(err).Msg("skipping unreadable department")
			continue
		}
		out = append(out, d)
	}
	return out
}

// Bootstrap creates the three collections that must exist before serving.
func Bootstrap(ctx context.Context, st *store.Store, catalog *DepartmentCatalog) error {
	if err := st.EnsureInitialized(ctx, store.Issues, nil); err != nil {
		return err
	}
	if err := catalog.Seed(ctx); err != nil {
		return err
	}
	return st.EnsureInitialized(ctx, store.Archive, nil)
}
