package catalog

// RuleSpec is one declarative rule as authored in a table document.
// Which keys are meaningful depends on Kind; pkg/rules compiles it.
type RuleSpec struct {
	Kind           string      `yaml:"kind" json:"kind"`
	Field          string      `yaml:"field,omitempty" json:"field,omitempty"`
	If             *Cond       `yaml:"if,omitempty" json:"if,omitempty"`
	When           *Cond       `yaml:"when,omitempty" json:"when,omitempty"`
	Expect         *Cond       `yaml:"expect,omitempty" json:"expect,omitempty"`
	Where          *Cond       `yaml:"where,omitempty" json:"where,omitempty"`
	Message        string      `yaml:"message,omitempty" json:"message,omitempty"`
	Table          string      `yaml:"table,omitempty" json:"table,omitempty"`
	ForeignField   string      `yaml:"foreign_field,omitempty" json:"foreign_field,omitempty"`
	RefField       string      `yaml:"ref_field,omitempty" json:"ref_field,omitempty"`
	Parts          []string    `yaml:"parts,omitempty" json:"parts,omitempty"`
	Values         []string    `yaml:"values,omitempty" json:"values,omitempty"`
	Coded          []string    `yaml:"coded,omitempty" json:"coded,omitempty"`
	ProductionOnly bool        `yaml:"production_only,omitempty" json:"production_only,omitempty"`
	Schemas        []string    `yaml:"schemas,omitempty" json:"schemas,omitempty"`
	Expr           string      `yaml:"expr,omitempty" json:"expr,omitempty"`
	Sources        []SourceRef `yaml:"sources,omitempty" json:"sources,omitempty"`
	SkipPrefix     string      `yaml:"skip_prefix,omitempty" json:"skip_prefix,omitempty"`
	ExceedMessage  string      `yaml:"exceed_message,omitempty" json:"exceed_message,omitempty"`
}

// SourceRef names a table column.
type SourceRef struct {
	Table string `yaml:"table" json:"table"`
	Field string `yaml:"field" json:"field"`
}

// Cond is a row predicate. Exactly one of the combinators, population
// tests or Field is expected to be set.
type Cond struct {
	All []Cond `yaml:"all,omitempty" json:"all,omitempty"`
	Any []Cond `yaml:"any,omitempty" json:"any,omitempty"`
	Not *Cond  `yaml:"not,omitempty" json:"not,omitempty"`

	Populated string `yaml:"populated,omitempty" json:"populated,omitempty"`
	Empty     string `yaml:"empty,omitempty" json:"empty,omitempty"`
	Present   string `yaml:"present,omitempty" json:"present,omitempty"`

	Field   string   `yaml:"field,omitempty" json:"field,omitempty"`
	Eq      *string  `yaml:"eq,omitempty" json:"eq,omitempty"`
	Ne      *string  `yaml:"ne,omitempty" json:"ne,omitempty"`
	In      []string `yaml:"in,omitempty" json:"in,omitempty"`
	NotIn   []string `yaml:"not_in,omitempty" json:"not_in,omitempty"`
	Coded   []string `yaml:"coded,omitempty" json:"coded,omitempty"`
	Matches string   `yaml:"matches,omitempty" json:"matches,omitempty"`
	Len     *int     `yaml:"len,omitempty" json:"len,omitempty"`
	Gt      *float64 `yaml:"gt,omitempty" json:"gt,omitempty"`
	Ge      *float64 `yaml:"ge,omitempty" json:"ge,omitempty"`
	Lt      *float64 `yaml:"lt,omitempty" json:"lt,omitempty"`
	Le      *float64 `yaml:"le,omitempty" json:"le,omitempty"`

	EqField string `yaml:"eq_field,omitempty" json:"eq_field,omitempty"`
	NeField string `yaml:"ne_field,omitempty" json:"ne_field,omitempty"`
	GtField string `yaml:"gt_field,omitempty" json:"gt_field,omitempty"`
	GeField string `yaml:"ge_field,omitempty" json:"ge_field,omitempty"`
	LtField string `yaml:"lt_field,omitempty" json:"lt_field,omitempty"`
	LeField string `yaml:"le_field,omitempty" json:"le_field,omitempty"`
}

// Fields returns every field name the condition reads, slice suffixes
// included as written.
func (c *Cond) Fields() []string {
	if c == nil {
		return nil
	}
	var out []string
	for i := range c.All {
		out = append(out, c.All[i].Fields()...)
	}
	for i := range c.Any {
		out = append(out, c.Any[i].Fields()...)
	}
	out = append(out, c.Not.Fields()...)
	for _, f := range []string{
		c.Populated, c.Empty, c.Present, c.Field,
		c.EqField, c.NeField, c.GtField, c.GeField, c.LtField, c.LeField,
	} {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// Literals returns the literal comparison values of the condition, keyed
// by the field they are compared against.
func (c *Cond) Literals() map[string][]string {
	out := make(map[string][]string)
	c.collectLiterals(out)
	return out
}

func (c *Cond) collectLiterals(out map[string][]string) {
	if c == nil {
		return
	}
	for i := range c.All {
		c.All[i].collectLiterals(out)
	}
	for i := range c.Any {
		c.Any[i].collectLiterals(out)
	}
	c.Not.collectLiterals(out)
	if c.Field == "" {
		return
	}
	if c.Eq != nil {
		out[c.Field] = append(out[c.Field], *c.Eq)
	}
	if c.Ne != nil {
		out[c.Field] = append(out[c.Field], *c.Ne)
	}
	out[c.Field] = append(out[c.Field], c.In...)
	out[c.Field] = append(out[c.Field], c.NotIn...)
	if len(out[c.Field]) == 0 {
		delete(out, c.Field)
	}
}
