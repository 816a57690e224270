// Package catalog holds the Schema Catalog, the Domain Registry and the
// Task-Table Selector. The catalog is authored as YAML under data/ and
// embedded in the binary; once loaded it is immutable and safe for
// concurrent use.
package catalog

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"
)

//go:embed data
var embedded embed.FS

// ErrUnknownTable is returned when a table is not in the catalog.
var ErrUnknownTable = errors.New("unknown table")

// ErrUnknownSchema is returned for a schema year the catalog does not cover.
var ErrUnknownSchema = errors.New("unknown schema year")

// ErrUnknownTask is returned for a task name the catalog does not define.
var ErrUnknownTask = errors.New("unknown task")

// Catalog is the loaded reference data.
type Catalog struct {
	Version       *semver.Version
	Schemas       []string
	DefaultSchema string

	domains map[string]*Domain // keyed by NAME and NAME@YEAR
	tables  map[string]*tableDoc
	order   []string // catalog table names, sorted
	tasks   []Task
}

type metaDoc struct {
	Version       string   `yaml:"version"`
	Schemas       []string `yaml:"schemas"`
	DefaultSchema string   `yaml:"default_schema"`
}

type rawDomain struct {
	Values   [][]string            `yaml:"values"`
	Variants map[string][][]string `yaml:"variants"`
}

type domainsDoc struct {
	Domains map[string]rawDomain `yaml:"domains"`
}

var (
	defaultOnce sync.Once
	defaultCat  *Catalog
	defaultErr  error
)

// Default returns the embedded catalog, loading it on first use.
func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		defaultCat, defaultErr = Load()
	})
	return defaultCat, defaultErr
}

// Load parses the embedded catalog.
func Load() (*Catalog, error) {
	sub, err := fs.Sub(embedded, "data")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded catalog: %w", err)
	}
	return LoadFS(sub)
}

// LoadFS parses a catalog laid out as catalog.yaml, domains.yaml,
// tasks.yaml and tables/*.yaml at the root of fsys.
func LoadFS(fsys fs.FS) (*Catalog, error) {
	var meta metaDoc
	if err := decodeFile(fsys, "catalog.yaml", &meta); err != nil {
		return nil, err
	}
	version, err := semver.NewVersion(meta.Version)
	if err != nil {
		return nil, fmt.Errorf("catalog.yaml: invalid version %q: %w", meta.Version, err)
	}

	cat := &Catalog{
		Version:       version,
		Schemas:       meta.Schemas,
		DefaultSchema: meta.DefaultSchema,
		domains:       make(map[string]*Domain),
		tables:        make(map[string]*tableDoc),
	}

	var doms domainsDoc
	if err := decodeFile(fsys, "domains.yaml", &doms); err != nil {
		return nil, err
	}
	for name, raw := range doms.Domains {
		codes, err := toCodes(name, raw.Values)
		if err != nil {
			return nil, err
		}
		cat.domains[name] = newDomain(name, codes)
		for year, values := range raw.Variants {
			codes, err := toCodes(name+"@"+year, values)
			if err != nil {
				return nil, err
			}
			cat.domains[name+"@"+year] = newDomain(name, codes)
		}
	}

	files, err := fs.Glob(fsys, "tables/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to list table documents: %w", err)
	}
	for _, file := range files {
		var t tableDoc
		if err := decodeFile(fsys, file, &t); err != nil {
			return nil, err
		}
		if t.Name == "" {
			return nil, fmt.Errorf("%s: table name is required", file)
		}
		key := strings.ToLower(t.Name)
		if _, dup := cat.tables[key]; dup {
			return nil, fmt.Errorf("%s: duplicate table %s", file, t.Name)
		}
		cat.tables[key] = &t
		cat.order = append(cat.order, t.Name)
	}
	slices.SortFunc(cat.order, func(a, b string) int {
		return strings.Compare(strings.ToLower(a), strings.ToLower(b))
	})

	var tasks tasksDoc
	if err := decodeFile(fsys, "tasks.yaml", &tasks); err != nil {
		return nil, err
	}
	for _, t := range tasks.Tasks {
		t.Production = slices.Contains(tasks.Production, t.Name)
		cat.tasks = append(cat.tasks, t)
	}

	if err := cat.Validate(); err != nil {
		return nil, err
	}
	return cat, nil
}

func decodeFile(fsys fs.FS, name string, out any) error {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path.Base(name), err)
	}
	return nil
}

func toCodes(name string, values [][]string) ([]Code, error) {
	codes := make([]Code, 0, len(values))
	for i, v := range values {
		if len(v) != 2 {
			return nil, fmt.Errorf("domain %s: entry %d must be [code, label]", name, i)
		}
		codes = append(codes, Code{Code: v[0], Label: v[1]})
	}
	return codes, nil
}

// SupportsSchema reports whether schema is a known schema year.
func (c *Catalog) SupportsSchema(schema string) bool {
	return slices.Contains(c.Schemas, schema)
}

// HasTable reports whether the catalog describes the table.
func (c *Catalog) HasTable(name string) bool {
	_, ok := c.tables[strings.ToLower(name)]
	return ok
}

// TableNames returns the catalog's table names in sorted order.
func (c *Catalog) TableNames() []string {
	return slices.Clone(c.order)
}

// Table resolves a table descriptor for a schema year.
func (c *Catalog) Table(name, schema string) (*Descriptor, error) {
	t, ok := c.tables[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, name)
	}
	if !c.SupportsSchema(schema) {
		return nil, fmt.Errorf("%w: %s (available: %s)", ErrUnknownSchema, schema, strings.Join(c.Schemas, ", "))
	}
	return t.resolve(schema, c.domains), nil
}

// Domain looks up a domain by reference (NAME or NAME@YEAR).
func (c *Catalog) Domain(ref string) (*Domain, bool) {
	d, ok := c.domains[ref]
	return d, ok
}

// DomainNames returns the base domain names, sorted.
func (c *Catalog) DomainNames() []string {
	out := make([]string, 0, len(c.domains))
	for ref := range c.domains {
		if name, year := splitDomainRef(ref); year == "" {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

// DomainVariants returns the years that have a variant of the named domain.
func (c *Catalog) DomainVariants(name string) []string {
	var years []string
	for ref := range c.domains {
		if n, year := splitDomainRef(ref); n == name && year != "" {
			years = append(years, year)
		}
	}
	slices.Sort(years)
	return years
}

// Tasks returns the workflow tasks in catalog order.
func (c *Catalog) Tasks() []Task {
	return slices.Clone(c.tasks)
}

// Task looks up a task by name, case-insensitively.
func (c *Catalog) Task(name string) (Task, error) {
	for _, t := range c.tasks {
		if strings.EqualFold(t.Name, strings.TrimSpace(name)) {
			return t, nil
		}
	}
	return Task{}, fmt.Errorf("%w: %q", ErrUnknownTask, name)
}

// TablesForTask returns the table subset a task covers.
func (c *Catalog) TablesForTask(name string) ([]string, error) {
	t, err := c.Task(name)
	if err != nil {
		return nil, err
	}
	if t.AllTables {
		return c.TableNames(), nil
	}
	return slices.Clone(t.Tables), nil
}
