package recall

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/medivault/recall/metadata"
)

// Collection names one of the two index units. Collection names appear in
// artifact names and API payloads, so they are stable identifiers.
type Collection string

const (
	// CollectionDiseases is the disease reference set shared by all users.
	CollectionDiseases Collection = "diseases"

	// CollectionRecords is the per-user patient record set. Its records
	// carry an owner field and searches are usually owner-filtered.
	CollectionRecords Collection = "patient_records"
)

// SearchScope selects which collections a combined search covers.
type SearchScope string

const (
	ScopeDiseases SearchScope = "diseases"
	ScopeRecords  SearchScope = "patient_records"
	ScopeBoth     SearchScope = "both"
)

// SearchResults groups per-collection match lists for a combined search.
// A collection outside the requested scope is left nil.
type SearchResults struct {
	Diseases []Match `json:"diseases_results"`
	Records  []Match `json:"patient_records_results"`
}

// Stats is a point-in-time snapshot of the manager's collections.
type Stats struct {
	Dimension int       `json:"dimension"`
	Diseases  UnitStats `json:"diseases"`
	Records   UnitStats `json:"patient_records"`
}

// Manager owns the two index units and the shared embedding dimension. Both
// collections accept vectors of exactly that dimension, fixed at
// construction from the embedding provider.
//
// All collaborators (logger, metrics, codec, blob store) are injected
// through options; a Manager holds no global state.
type Manager struct {
	dimension int
	diseases  *Unit
	records   *Unit
}

// New creates a Manager for vectors of the given dimension.
func New(dimension int, optFns ...Option) (*Manager, error) {
	if dimension <= 0 {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("dimension must be positive, got %d", dimension)}
	}

	opts := applyOptions(optFns)
	if opts.logger == nil {
		opts.logger = NoopLogger()
	}
	if opts.metrics == nil {
		opts.metrics = NoopMetricsCollector{}
	}
	if opts.overfetchFactor < 1 {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("overfetch factor must be at least 1, got %d", opts.overfetchFactor)}
	}
	if strings.ContainsAny(opts.artifactPrefix, `/\`) {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("artifact prefix %q must not contain path separators", opts.artifactPrefix)}
	}

	diseases, err := newUnit(CollectionDiseases, dimension, opts)
	if err != nil {
		return nil, err
	}
	records, err := newUnit(CollectionRecords, dimension, opts)
	if err != nil {
		return nil, err
	}

	return &Manager{
		dimension: dimension,
		diseases:  diseases,
		records:   records,
	}, nil
}

// Dimension returns the embedding dimension shared by both collections.
func (m *Manager) Dimension() int {
	return m.dimension
}

// Unit returns the index unit for the given collection.
func (m *Manager) Unit(collection Collection) (*Unit, error) {
	switch collection {
	case CollectionDiseases:
		return m.diseases, nil
	case CollectionRecords:
		return m.records, nil
	default:
		return nil, &InvalidArgumentError{Name: "collection", Reason: fmt.Sprintf("unknown collection %q", collection)}
	}
}

// Add indexes vectors with their metadata records into the given collection
// and returns the assigned identifiers.
func (m *Manager) Add(ctx context.Context, collection Collection, vectors [][]float32, records []metadata.Record) ([]uint64, error) {
	u, err := m.Unit(collection)
	if err != nil {
		return nil, err
	}
	return u.Add(ctx, vectors, records)
}

// SearchDiseases returns the k nearest disease reference entries.
func (m *Manager) SearchDiseases(ctx context.Context, query []float32, k int) ([]Match, error) {
	return m.diseases.Search(ctx, query, k)
}

// SearchRecords returns the k nearest patient records, restricted to the
// given owner when owner is non-empty. An owner filter never admits another
// owner's record, no matter how near its vector is.
func (m *Manager) SearchRecords(ctx context.Context, query []float32, k int, owner string) ([]Match, error) {
	if owner == "" {
		return m.records.Search(ctx, query, k)
	}
	return m.records.Search(ctx, query, k, WithOwner(owner))
}

// Search runs the query against the collections selected by scope and
// returns the per-collection results. owner applies to the patient record
// collection only.
func (m *Manager) Search(ctx context.Context, query []float32, k int, scope SearchScope, owner string) (*SearchResults, error) {
	results := &SearchResults{}

	switch scope {
	case ScopeDiseases:
		matches, err := m.SearchDiseases(ctx, query, k)
		if err != nil {
			return nil, err
		}
		results.Diseases = matches
	case ScopeRecords:
		matches, err := m.SearchRecords(ctx, query, k, owner)
		if err != nil {
			return nil, err
		}
		results.Records = matches
	case ScopeBoth:
		matches, err := m.SearchDiseases(ctx, query, k)
		if err != nil {
			return nil, err
		}
		results.Diseases = matches

		matches, err = m.SearchRecords(ctx, query, k, owner)
		if err != nil {
			return nil, err
		}
		results.Records = matches
	default:
		return nil, &InvalidArgumentError{Name: "scope", Reason: fmt.Sprintf("unknown search scope %q", scope)}
	}

	return results, nil
}

// Persist writes the artifact pair for one collection.
func (m *Manager) Persist(ctx context.Context, collection Collection) error {
	u, err := m.Unit(collection)
	if err != nil {
		return err
	}
	return u.Persist(ctx)
}

// PersistAll writes the artifact pairs of both collections. Both are
// attempted even if one fails; failures are joined.
func (m *Manager) PersistAll(ctx context.Context) error {
	return errors.Join(
		m.diseases.Persist(ctx),
		m.records.Persist(ctx),
	)
}

// Restore loads the artifact pair for one collection.
func (m *Manager) Restore(ctx context.Context, collection Collection) error {
	u, err := m.Unit(collection)
	if err != nil {
		return err
	}
	return u.Restore(ctx)
}

// RestoreAll loads the artifact pairs of both collections. Both are
// attempted even if one fails; failures are joined.
func (m *Manager) RestoreAll(ctx context.Context) error {
	return errors.Join(
		m.diseases.Restore(ctx),
		m.records.Restore(ctx),
	)
}

// Stats returns a snapshot of both collections.
func (m *Manager) Stats() Stats {
	return Stats{
		Dimension: m.dimension,
		Diseases:  m.diseases.Stats(),
		Records:   m.records.Stats(),
	}
}
