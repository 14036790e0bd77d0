package telemetry

import "errors"

// Metadata load errors. These never propagate past LoadRegistry — they only
// explain the fallback to built-in defaults in logs.
var (
	// ErrNoMetadataRows is returned when the metadata file contains no usable rows.
	ErrNoMetadataRows = errors.New("telemetry: metadata file has no usable rows")

	// ErrMissingMetadataColumns is returned when required CSV columns are absent.
	ErrMissingMetadataColumns = errors.New("telemetry: metadata file missing required columns")
)
