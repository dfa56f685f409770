package recall

import (
	"errors"
	"fmt"

	"github.com/medivault/recall/vectorstore"
)

// ConfigurationError indicates an invalid construction-time input, such as a
// non-positive dimension. It is fatal: the caller cannot proceed without
// fixing its configuration.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s", e.Reason)
}

// DimensionMismatchError indicates a vector or query whose length disagrees
// with the collection's fixed dimension. The offending call is rejected with
// no state change.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type DimensionMismatchError struct {
	Expected int
	Actual   int
	cause    error
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *DimensionMismatchError) Unwrap() error { return e.cause }

// InvalidArgumentError indicates a malformed call, such as mismatched slice
// lengths or a non-positive k. The call is rejected with no state change.
type InvalidArgumentError struct {
	Name   string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %q: %s", e.Name, e.Reason)
}

// DuplicateIdentifierError indicates that an add would assign an identifier
// that already exists in the metadata table. Allocator discipline makes this
// unreachable in normal operation; if it surfaces, the add was aborted and
// the collection is unchanged.
type DuplicateIdentifierError struct {
	ID uint64
}

func (e *DuplicateIdentifierError) Error() string {
	return fmt.Sprintf("duplicate identifier: %d", e.ID)
}

// CorruptIndexError indicates that a persisted artifact could not be
// deserialized. The collection keeps its prior in-memory state.
//
// The original underlying error can be accessed via errors.Unwrap.
type CorruptIndexError struct {
	Name  string
	cause error
}

func (e *CorruptIndexError) Error() string {
	return fmt.Sprintf("corrupt index artifact %q: %v", e.Name, e.cause)
}

func (e *CorruptIndexError) Unwrap() error { return e.cause }

// MissingArtifactError reports a restore target that does not exist. For an
// unpopulated collection this is informational, not a failure: Restore logs
// it and leaves the collection empty.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type MissingArtifactError struct {
	Name  string
	cause error
}

func (e *MissingArtifactError) Error() string {
	return fmt.Sprintf("missing index artifact %q", e.Name)
}

func (e *MissingArtifactError) Unwrap() error { return e.cause }

// InconsistentRestoreError reports a vector snapshot and metadata artifact
// whose contents disagree (metadata absent, or counts diverging). Restore
// logs it as a warning and proceeds with the consistent subset.
type InconsistentRestoreError struct {
	VectorCount   int
	MetadataCount int
}

func (e *InconsistentRestoreError) Error() string {
	return fmt.Sprintf("inconsistent restore: %d vectors but %d metadata records", e.VectorCount, e.MetadataCount)
}

// translateError maps internal package errors onto the public taxonomy at
// the API boundary.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, vectorstore.ErrInvalidDimension) {
		return &ConfigurationError{Reason: "dimension must be positive"}
	}
	if errors.Is(err, vectorstore.ErrInvalidK) {
		return &InvalidArgumentError{Name: "k", Reason: "must be positive"}
	}

	var dm *vectorstore.DimensionMismatchError
	if errors.As(err, &dm) {
		return &DimensionMismatchError{Expected: dm.Expected, Actual: dm.Actual, cause: err}
	}

	return err
}
