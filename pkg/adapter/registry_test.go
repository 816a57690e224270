package adapter

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnknownAdapterError_Error(t *testing.T) {
	err := &UnknownAdapterError{
		Type:      "fake_db",
		Available: []string{"duckdb", "postgres"},
	}

	msg := err.Error()
	assert.Contains(t, msg, "fake_db", "error should mention the unknown type")
	assert.Contains(t, msg, "dfirmqc.yaml", "error should mention config file")
}

func TestRegister(t *testing.T) {
	Register("test_adapter_internal", func(_ *slog.Logger) Adapter { return nil })

	assert.True(t, IsRegistered("test_adapter_internal"))
	factory, ok := Get("test_adapter_internal")
	assert.True(t, ok)
	assert.NotNil(t, factory)
	assert.Contains(t, ListAdapters(), "test_adapter_internal")
}

func TestNewAdapter(t *testing.T) {
	_, err := NewAdapter(Config{Type: ""}, nil)
	require.Error(t, err)
	assert.Equal(t, "workspace type not specified", err.Error())

	_, err = NewAdapter(Config{Type: "nope"}, nil)
	var unknown *UnknownAdapterError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "nope", unknown.Type)
}

func TestOpen(t *testing.T) {
	_, err := Open(context.Background(), Config{Type: "nope"}, nil)
	var unknown *UnknownAdapterError
	require.ErrorAs(t, err, &unknown)
	assert.Contains(t, unknown.Error(), "target.type")
}

func TestDialect(t *testing.T) {
	pg := Dialect{DefaultSchema: "public", Positional: true}
	assert.Equal(t, "$2", pg.FormatPlaceholder(2))
	assert.Equal(t, "?", Dialect{}.FormatPlaceholder(2))
	assert.Equal(t, `"a""b"`, pg.QuoteIdent(`a"b`))

	schema, name := pg.ParseQualifiedName("S_XS")
	assert.Equal(t, "public", schema)
	assert.Equal(t, "S_XS", name)

	schema, name = pg.ParseQualifiedName("qc.S_XS")
	assert.Equal(t, "qc", schema)
	assert.Equal(t, "S_XS", name)
}
