// Package dqflags decodes packed data quality codes.
package dqflags

import (
	"math/bits"
	"slices"

	"github.com/tphakala/miri-pixeldb/internal/errors"
)

const component = "dqflags"

// Flag is one named data quality condition.
type Flag struct {
	Bit   int
	Value int64
	Name  string
}

// standardNames are the JWST data quality conditions for bits 0 through 30.
var standardNames = []string{
	"do_not_use", "saturated", "jump_det", "dropout",
	"reserved_16", "reserved_32", "reserved_64", "reserved_128",
	"unreliable_error", "non_science", "dead", "hot",
	"warm", "low_qe", "rc", "telegraph",
	"nonlinear", "bad_ref_pixel", "no_flat_field", "no_gain_value",
	"no_lin_corr", "no_sat_check", "unreliable_bias", "unreliable_dark",
	"unreliable_slope", "unreliable_flat", "open", "adj_open",
	"unreliable_reset", "msa_failed_open", "other_bad_pixel",
}

// Standard returns the 31 standard flags in ascending order.
func Standard() []Flag {
	flags := make([]Flag, len(standardNames))
	for i, name := range standardNames {
		flags[i] = Flag{Bit: i, Value: 1 << i, Name: name}
	}
	return flags
}

// Table decodes codes against an ascending basis of distinct powers of two.
type Table struct {
	flags  []Flag
	mask   int64
	byName map[string]Flag
}

// NewTable validates flags and builds a decode table. Greedy decomposition
// is only exact for a strictly ascending power-of-two basis, so anything
// else is rejected.
func NewTable(flags []Flag) (*Table, error) {
	if len(flags) == 0 {
		return nil, errors.Configuration(component, "flag table is empty")
	}

	t := &Table{
		flags:  slices.Clone(flags),
		byName: make(map[string]Flag, len(flags)),
	}

	for i, f := range flags {
		if f.Value <= 0 || bits.OnesCount64(uint64(f.Value)) != 1 {
			return nil, errors.Configuration(component, "flag %s value %d is not a power of two", f.Name, f.Value)
		}
		if f.Value != 1<<f.Bit {
			return nil, errors.Configuration(component, "flag %s value %d does not match bit %d", f.Name, f.Value, f.Bit)
		}
		if i > 0 && f.Value <= flags[i-1].Value {
			return nil, errors.Configuration(component, "flag %s is not in strictly ascending order", f.Name)
		}
		if _, dup := t.byName[f.Name]; dup {
			return nil, errors.Configuration(component, "duplicate flag name %s", f.Name)
		}
		t.byName[f.Name] = f
		t.mask |= f.Value
	}

	return t, nil
}

var standardTable = func() *Table {
	t, err := NewTable(Standard())
	if err != nil {
		panic(err)
	}
	return t
}()

// StandardTable returns the shared table of the 31 standard flags.
func StandardTable() *Table {
	return standardTable
}

// Flags returns the table entries in ascending order.
func (t *Table) Flags() []Flag {
	return slices.Clone(t.flags)
}

// Mask is the OR of every known flag value.
func (t *Table) Mask() int64 {
	return t.mask
}

// Validate reports codes that are negative or carry unknown bits.
func (t *Table) Validate(code int64) error {
	if code < 0 {
		return errors.Configuration(component, "data quality code %d is negative", code)
	}
	if unknown := code &^ t.mask; unknown != 0 {
		return errors.Configuration(component, "data quality code %d has unknown bits %#x", code, unknown)
	}
	return nil
}

// Decompose returns the flags packed into code in ascending order. Flags
// are taken greedily from the largest value not exceeding the remainder.
func (t *Table) Decompose(code int64) ([]Flag, error) {
	if err := t.Validate(code); err != nil {
		return nil, err
	}

	var found []Flag
	remaining := code
	for i := len(t.flags) - 1; i >= 0 && remaining > 0; i-- {
		if t.flags[i].Value <= remaining {
			found = append(found, t.flags[i])
			remaining -= t.flags[i].Value
		}
	}
	slices.Reverse(found)
	return found, nil
}

// Names returns the names of the flags packed into code.
func (t *Table) Names(code int64) ([]string, error) {
	flags, err := t.Decompose(code)
	if err != nil || len(flags) == 0 {
		return nil, err
	}
	names := make([]string, len(flags))
	for i, f := range flags {
		names[i] = f.Name
	}
	return names, nil
}

// Aggregate ORs the per-group codes of a ramp into the ramp mask: a flag is
// set on the ramp when it is set on at least one group.
func (t *Table) Aggregate(codes []int64) (int64, error) {
	var mask int64
	for _, code := range codes {
		if err := t.Validate(code); err != nil {
			return 0, err
		}
		mask |= code
	}
	return mask, nil
}

// Lookup returns the flag with the given name.
func (t *Table) Lookup(name string) (Flag, bool) {
	f, ok := t.byName[name]
	return f, ok
}

// Has reports whether code carries the named flag.
func (t *Table) Has(code int64, name string) bool {
	f, ok := t.byName[name]
	return ok && code&f.Value != 0
}
