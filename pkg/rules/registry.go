package rules

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/t968rs/FEMA-Prod-updates/pkg/catalog"
)

// Scope says what a kind looks at.
type Scope string

// Rule scopes.
const (
	// ScopeRow kinds evaluate each record on its own.
	ScopeRow Scope = "row"
	// ScopeTable kinds look at whole columns, possibly of other tables.
	ScopeTable Scope = "table"
)

// KindInfo describes a rule kind for documentation and tooling.
type KindInfo struct {
	Name        string   `json:"name"`
	Scope       Scope    `json:"scope"`
	Description string   `json:"description"`
	Keys        []string `json:"keys"`
}

// Compiler builds a rule of one kind. The index is the rule's position in
// the table's rule list.
type Compiler func(spec catalog.RuleSpec, index int, desc *catalog.Descriptor) (Rule, error)

type kindDef struct {
	info    KindInfo
	compile Compiler
}

var registry = struct {
	mu    sync.RWMutex
	kinds map[string]kindDef
}{kinds: make(map[string]kindDef)}

// Register adds a rule kind. Call this from init().
func Register(info KindInfo, compile Compiler) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.kinds[info.Name] = kindDef{info: info, compile: compile}
}

// Kinds returns every registered kind sorted by name.
func Kinds() []KindInfo {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	out := make([]KindInfo, 0, len(registry.kinds))
	for _, k := range registry.kinds {
		out = append(out, k.info)
	}
	slices.SortFunc(out, func(a, b KindInfo) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// GetKind returns a kind by name.
func GetKind(name string) (KindInfo, bool) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	k, ok := registry.kinds[name]
	return k.info, ok
}

// Count returns the number of registered kinds.
func Count() int {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	return len(registry.kinds)
}

// CompileError locates a rule that failed to compile.
type CompileError struct {
	Table string
	Index int
	Kind  string
	Err   error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s rule %d (%s): %v", e.Table, e.Index, e.Kind, e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }

// Compile compiles every rule of a resolved table descriptor, in order.
func Compile(desc *catalog.Descriptor) ([]Rule, error) {
	out := make([]Rule, 0, len(desc.Rules))
	for i, spec := range desc.Rules {
		r, err := CompileRule(spec, i, desc)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// CompileRule compiles one rule spec.
func CompileRule(spec catalog.RuleSpec, index int, desc *catalog.Descriptor) (Rule, error) {
	registry.mu.RLock()
	def, ok := registry.kinds[spec.Kind]
	registry.mu.RUnlock()
	if !ok {
		return nil, &CompileError{Table: desc.Name, Index: index, Kind: spec.Kind, Err: fmt.Errorf("unknown rule kind %q", spec.Kind)}
	}
	r, err := def.compile(spec, index, desc)
	if err != nil {
		return nil, &CompileError{Table: desc.Name, Index: index, Kind: spec.Kind, Err: err}
	}
	if spec.ProductionOnly {
		r = productionOnly{r}
	}
	return r, nil
}

// productionOnly suppresses a rule outside production tasks.
type productionOnly struct {
	Rule
}
