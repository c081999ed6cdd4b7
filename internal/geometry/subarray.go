package geometry

import (
	"slices"
	"strings"
)

// GenericSubarray names a window that matches no table entry.
const GenericSubarray = "GENERIC"

// Window is a readout window in 1-based imaging coordinates, as found in
// the SUBSTRT1/SUBSTRT2 and SUBSIZE1/SUBSIZE2 header keywords.
type Window struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Subarray is a named readout window.
type Subarray struct {
	Name string
	Window
}

// DefaultSubarrays is the MIRI imager subarray table.
var DefaultSubarrays = []Subarray{
	{"FULL", Window{1, 1, 1032, 1024}},
	{"ILLUM", Window{360, 1, 668, 1024}},
	{"BRIGHTSKY", Window{457, 51, 512, 512}},
	{"SUB256", Window{413, 51, 256, 256}},
	{"SUB128", Window{1, 889, 136, 128}},
	{"SUB64", Window{1, 779, 72, 64}},
	{"SLITLESSPRISM", Window{1, 529, 72, 416}},
	{"MASK1065", Window{1, 19, 288, 224}},
	{"MASK1140", Window{1, 245, 288, 224}},
	{"MASK1550", Window{1, 467, 288, 224}},
	{"MASKLYOT", Window{1, 717, 320, 304}},
}

// SubarrayTable resolves subarray names and windows.
type SubarrayTable struct {
	entries []Subarray
}

// NewSubarrayTable builds a table from the defaults plus extra entries.
// Extra entries replace defaults with the same name.
func NewSubarrayTable(extra ...Subarray) *SubarrayTable {
	entries := slices.Clone(DefaultSubarrays)
	for _, e := range extra {
		e.Name = strings.ToUpper(e.Name)
		if i := slices.IndexFunc(entries, func(s Subarray) bool { return s.Name == e.Name }); i >= 0 {
			entries[i] = e
			continue
		}
		entries = append(entries, e)
	}
	return &SubarrayTable{entries: entries}
}

// Lookup returns the window of a named subarray.
func (t *SubarrayTable) Lookup(name string) (Window, bool) {
	name = strings.ToUpper(strings.TrimSpace(name))
	for _, e := range t.entries {
		if e.Name == name {
			return e.Window, true
		}
	}
	return Window{}, false
}

// Identify returns the name of the subarray with the given window, or GENERIC.
func (t *SubarrayTable) Identify(w Window) string {
	for _, e := range t.entries {
		if e.Window == w {
			return e.Name
		}
	}
	return GenericSubarray
}

// All returns a copy of the table entries.
func (t *SubarrayTable) All() []Subarray {
	return slices.Clone(t.entries)
}
