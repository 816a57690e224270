package qc

import (
	"errors"

	"github.com/t968rs/FEMA-Prod-updates/pkg/catalog"
)

// ErrNoCanonicalID is returned when S_Submittal_Info exists but carries no
// DFIRM_ID field, leaving nothing to check the other tables against.
var ErrNoCanonicalID = errors.New("DFIRM_ID missing in S_Submittal_Info")

// Re-exported catalog lookups, so callers can match run errors without
// importing the catalog.
var (
	ErrUnknownTask   = catalog.ErrUnknownTask
	ErrUnknownSchema = catalog.ErrUnknownSchema
)
