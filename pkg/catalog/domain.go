package catalog

import (
	"fmt"
	"strings"
)

// Mode selects which side of a domain the Domain Checker compares against.
type Mode string

// Domain check modes.
const (
	ModeCoded   Mode = "coded"
	ModeTextual Mode = "textual"
)

// ParseMode converts a string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeCoded, "":
		return ModeCoded, nil
	case ModeTextual, "text", "label":
		return ModeTextual, nil
	default:
		return "", fmt.Errorf("invalid domain mode %q (want coded or textual)", s)
	}
}

// Code pairs a stored code with its descriptive label.
type Code struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

// Domain is an immutable code/label enumeration.
type Domain struct {
	Name    string
	Codes   []Code
	byCode  map[string]string
	byLabel map[string]string
}

func newDomain(name string, codes []Code) *Domain {
	d := &Domain{
		Name:    name,
		Codes:   codes,
		byCode:  make(map[string]string, len(codes)),
		byLabel: make(map[string]string, len(codes)),
	}
	for _, c := range codes {
		d.byCode[c.Code] = c.Label
		d.byLabel[c.Label] = c.Code
	}
	return d
}

// HasCode reports whether code is one of the domain's codes.
func (d *Domain) HasCode(code string) bool {
	_, ok := d.byCode[code]
	return ok
}

// HasLabel reports whether label is one of the domain's labels.
func (d *Domain) HasLabel(label string) bool {
	_, ok := d.byLabel[label]
	return ok
}

// Label returns the label for a code.
func (d *Domain) Label(code string) (string, bool) {
	l, ok := d.byCode[code]
	return l, ok
}

// CodeFor returns the code for a label.
func (d *Domain) CodeFor(label string) (string, bool) {
	c, ok := d.byLabel[label]
	return c, ok
}

// Contains checks a value against the code set (coded mode) or the label
// set (textual mode).
func (d *Domain) Contains(value string, mode Mode) bool {
	if mode == ModeTextual {
		return d.HasLabel(value)
	}
	return d.HasCode(value)
}

// Matches reports whether value is any of the given codes, or the label
// of one of them. A nil domain compares against the codes only.
func (d *Domain) Matches(value string, codes ...string) bool {
	for _, c := range codes {
		if value == c {
			return true
		}
		if d == nil {
			continue
		}
		if l, ok := d.byCode[c]; ok && l == value {
			return true
		}
	}
	return false
}

// splitDomainRef splits "D_Name@2017" into name and variant year.
func splitDomainRef(ref string) (name, year string) {
	name, year, _ = strings.Cut(ref, "@")
	return name, year
}
