package qc

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/t968rs/FEMA-Prod-updates/pkg/adapter"
	"github.com/t968rs/FEMA-Prod-updates/pkg/core"
)

// tableCache is a read-through cache of workspace tables. Concurrent
// loads of the same table share one read. Tables are read whole and
// never queried again, so no lookup ever nests inside a scan.
type tableCache struct {
	ws     adapter.Adapter
	logger *slog.Logger
	// adjust patches the live fields of a table before rows are kept.
	adjust func(table string, fields []core.Field)

	listOnce sync.Once
	names    map[string]string // lower-case name -> workspace name
	order    []string
	listErr  error

	mu    sync.RWMutex
	data  map[string]*core.Dataset
	group singleflight.Group
}

func newTableCache(ws adapter.Adapter, logger *slog.Logger) *tableCache {
	return &tableCache{ws: ws, logger: logger, data: make(map[string]*core.Dataset)}
}

func (c *tableCache) list(ctx context.Context) error {
	c.listOnce.Do(func() {
		tables, err := c.ws.ListTables(ctx)
		if err != nil {
			c.listErr = fmt.Errorf("failed to list workspace tables: %w", err)
			return
		}
		c.names = make(map[string]string, len(tables))
		for _, t := range tables {
			c.names[strings.ToLower(t)] = t
		}
		c.order = slices.Clone(tables)
		slices.Sort(c.order)
	})
	return c.listErr
}

// Tables returns the workspace tables, sorted.
func (c *tableCache) Tables(ctx context.Context) ([]string, error) {
	if err := c.list(ctx); err != nil {
		return nil, err
	}
	return slices.Clone(c.order), nil
}

// Resolve returns the workspace spelling of table.
func (c *tableCache) Resolve(ctx context.Context, table string) (string, bool, error) {
	if err := c.list(ctx); err != nil {
		return "", false, err
	}
	name, ok := c.names[strings.ToLower(table)]
	return name, ok, nil
}

// Dataset returns the whole table, or nil when the workspace lacks it.
func (c *tableCache) Dataset(ctx context.Context, table string) (*core.Dataset, error) {
	name, ok, err := c.Resolve(ctx, table)
	if err != nil || !ok {
		return nil, err
	}
	key := strings.ToLower(name)

	c.mu.RLock()
	ds, hit := c.data[key]
	c.mu.RUnlock()
	if hit {
		return ds, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		ds, err := c.load(ctx, name)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.data[key] = ds
		c.mu.Unlock()
		return ds, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*core.Dataset), nil
}

func (c *tableCache) load(ctx context.Context, table string) (*core.Dataset, error) {
	meta, err := c.ws.GetTableMetadata(ctx, table)
	if err != nil {
		return nil, err
	}
	fields := meta.Fields()
	if c.adjust != nil {
		c.adjust(table, fields)
	}
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}

	var rows [][]any
	if len(names) > 0 {
		err = c.ws.ScanRows(ctx, table, names, func(values []any) error {
			rows = append(rows, slices.Clone(values))
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	c.logger.Debug("table loaded", "table", table, "rows", len(rows))
	return core.NewDataset(table, fields, rows), nil
}
