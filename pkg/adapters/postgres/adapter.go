package postgres

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/t968rs/FEMA-Prod-updates/pkg/adapter"
)

// Adapter implements the adapter.Adapter interface for PostgreSQL.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new PostgreSQL adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{
			Logger:  logger,
			Dialect: adapter.Dialect{Name: "postgres", DefaultSchema: "public", Positional: true},
		},
	}
}

// Connect establishes a connection to PostgreSQL.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	dsn := buildPostgresDSN(cfg)

	a.Logger.Debug("connecting to postgres", slog.String("host", cfg.Host), slog.String("database", cfg.Database))

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open postgres connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// buildPostgresDSN constructs a PostgreSQL connection string.
// A Path holding a URL or key=value DSN is used verbatim.
func buildPostgresDSN(cfg adapter.Config) string {
	if strings.HasPrefix(cfg.Path, "postgres://") || strings.HasPrefix(cfg.Path, "postgresql://") ||
		strings.Contains(cfg.Path, "host=") {
		return cfg.Path
	}

	host := cfg.Host
	if host == "" {
		host = "localhost"
	}

	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	sslmode := "disable"
	if mode, ok := cfg.Options["sslmode"]; ok {
		sslmode = mode
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s",
		host, port, cfg.Database, sslmode)

	if cfg.Username != "" {
		dsn += fmt.Sprintf(" user=%s", cfg.Username)
	}
	if cfg.Password != "" {
		dsn += fmt.Sprintf(" password=%s", cfg.Password)
	}

	return dsn
}

// LoadCSV loads a CSV file into a table using COPY FROM STDIN.
// A missing table is created with TEXT columns named after the header;
// an existing table receives the rows in header column order.
func (a *Adapter) LoadCSV(ctx context.Context, tableName string, filePath string) error {
	if a.DB == nil {
		return adapter.ErrNotConnected
	}

	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	file, err := os.Open(absPath) //nolint:gosec // the path is supplied by the operator
	if err != nil {
		return fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer func() { _ = file.Close() }()

	headers, err := csv.NewReader(file).Read()
	if err != nil {
		return fmt.Errorf("failed to read CSV header: %w", err)
	}
	if _, err := file.Seek(0, 0); err != nil {
		return fmt.Errorf("failed to reset file: %w", err)
	}

	cols := make([]string, len(headers))
	for i, h := range headers {
		cols[i] = a.Dialect.QuoteIdent(sanitizeIdentifier(h))
	}

	exists, err := a.tableExists(ctx, tableName)
	if err != nil {
		return err
	}
	if !exists {
		if err := a.createTextTable(ctx, tableName, cols); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	copySQL := fmt.Sprintf("COPY %s (%s) FROM STDIN WITH (FORMAT csv, HEADER true)",
		a.Dialect.QualifiedName(a.schemaName(), tableName), strings.Join(cols, ", "))
	if err := a.copyFrom(ctx, copySQL, file); err != nil {
		return fmt.Errorf("failed to copy data: %w", err)
	}
	return nil
}

func (a *Adapter) schemaName() string {
	if a.Cfg.Schema != "" {
		return a.Cfg.Schema
	}
	return a.Dialect.DefaultSchema
}

func (a *Adapter) tableExists(ctx context.Context, table string) (bool, error) {
	var n int
	err := a.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = $1 AND table_name = $2`,
		a.schemaName(), table).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to look up table %s: %w", table, err)
	}
	return n > 0, nil
}

func (a *Adapter) createTextTable(ctx context.Context, tableName string, quotedCols []string) error {
	defs := make([]string, len(quotedCols))
	for i, c := range quotedCols {
		defs[i] = c + " TEXT"
	}
	//nolint:gosec // identifiers are quoted
	createSQL := fmt.Sprintf("CREATE TABLE %s (%s)",
		a.Dialect.QualifiedName(a.schemaName(), tableName), strings.Join(defs, ", "))
	_, err := a.DB.ExecContext(ctx, createSQL)
	return err
}

// copyFrom streams file through the underlying pgx connection.
func (a *Adapter) copyFrom(ctx context.Context, copySQL string, file *os.File) error {
	conn, err := a.DB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to get connection: %w", err)
	}
	defer func() { _ = conn.Close() }()

	return conn.Raw(func(driverConn any) error {
		pgxConn, ok := driverConn.(*stdlib.Conn)
		if !ok {
			return fmt.Errorf("unexpected driver connection %T", driverConn)
		}
		tag, err := pgxConn.Conn().PgConn().CopyFrom(ctx, file, copySQL)
		if err != nil {
			return err
		}
		a.Logger.Debug("copied rows", slog.Int64("rows", tag.RowsAffected()))
		return nil
	})
}

// sanitizeIdentifier maps CSV header names onto column names.
func sanitizeIdentifier(name string) string {
	safe := strings.TrimSpace(name)
	safe = strings.TrimPrefix(safe, "\ufeff")
	safe = strings.ReplaceAll(safe, " ", "_")
	return strings.ReplaceAll(safe, "-", "_")
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
