// Package core defines the shared language of the dfirmqc system.
//
// This package contains:
//   - Field metadata (Field, FieldType, Classification)
//   - Findings produced by the QC engine (Finding, Severity)
//   - Value helpers implementing the NULL sentinel conventions
//   - Storage DTOs shared by adapters (AdapterConfig, Column, TableMetadata)
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
