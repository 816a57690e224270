package qc

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/t968rs/FEMA-Prod-updates/pkg/catalog"
)

// RunConfig is the immutable configuration of one QC run.
type RunConfig struct {
	// Task selects the workflow task and with it the expected tables.
	Task string `validate:"required"`
	// Schema is the schema year (e.g. "2021").
	Schema string `validate:"required,len=4,numeric"`
	// Tables, when set, is the explicit table list. Otherwise every
	// table of the task is validated.
	Tables []string `validate:"dive,required"`
	// Mode selects coded or textual domain checks.
	Mode catalog.Mode `validate:"omitempty,oneof=coded textual"`
	// Workers bounds how many tables are validated at once.
	Workers int `validate:"gte=0,lte=64"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// WithDefaults fills unset optional values.
func (c RunConfig) WithDefaults() RunConfig {
	if c.Mode == "" {
		c.Mode = catalog.ModeCoded
	}
	if c.Workers == 0 {
		c.Workers = 1
	}
	return c
}

// Validate checks the parameters and resolves the task and schema year
// against cat. Every invalid parameter is reported.
func (c RunConfig) Validate(cat *catalog.Catalog) error {
	var errs []error
	if err := validate.Struct(c); err != nil {
		var ve validator.ValidationErrors
		if !errors.As(err, &ve) {
			return err
		}
		for _, fe := range ve {
			errs = append(errs, fmt.Errorf("invalid %s: failed %q check", strings.ToLower(strings.TrimPrefix(fe.Namespace(), "RunConfig.")), fe.Tag()))
		}
	}
	if c.Task != "" {
		if _, err := cat.Task(c.Task); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Schema != "" && !cat.SupportsSchema(c.Schema) {
		errs = append(errs, fmt.Errorf("%w: %s (available: %s)", ErrUnknownSchema, c.Schema, strings.Join(cat.Schemas, ", ")))
	}
	return errors.Join(errs...)
}
