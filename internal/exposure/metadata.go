// Package exposure turns product headers into exposure records and knows
// the naming scheme of an exposure's sibling products.
package exposure

import (
	"slices"
	"strings"
	"time"

	"github.com/tphakala/miri-pixeldb/internal/errors"
	"github.com/tphakala/miri-pixeldb/internal/fitsfile"
	"github.com/tphakala/miri-pixeldb/internal/geometry"
	"github.com/tphakala/miri-pixeldb/internal/logger"
)

const component = "exposure"

// SentinelTime replaces acquisition timestamps that are missing or carry
// filler values such as 'yyyy-mm-dd'.
var SentinelTime = time.Date(1111, 11, 11, 11, 11, 11, 0, time.UTC)

// Provenance tags
const (
	ProvenanceJPL    = "JPL"
	ProvenanceOTIS   = "OTIS"
	ProvenanceFlight = "FLIGHT"
)

// DefaultProvenance lists the accepted data provenance tags.
var DefaultProvenance = []string{ProvenanceJPL, ProvenanceOTIS, ProvenanceFlight}

// Detector is a physical sensor chip assembly.
type Detector struct {
	Name  string
	SCAID int
}

// DefaultDetectors are the three MIRI focal plane modules.
var DefaultDetectors = []Detector{
	{Name: "MIRIMAGE", SCAID: 493},
	{Name: "MIRIFULONG", SCAID: 494},
	{Name: "MIRIFUSHORT", SCAID: 495},
}

// Metadata is the acquisition metadata of one raw exposure.
type Metadata struct {
	FileName        string
	SCAID           int
	Provenance      string
	Groups          int
	Ints            int
	Subarray        string
	ReadPattern     string
	Start           time.Time
	End             time.Time
	ExposureTime    float64
	IntegrationTime float64
	Window          geometry.Window
}

// Parser validates headers against the configured detectors, provenance
// tags and subarray table.
type Parser struct {
	provenance []string
	detectors  map[int]Detector
	subarrays  *geometry.SubarrayTable
	log        logger.Logger
}

// NewParser creates a parser. Empty provenance or detector lists fall back
// to the defaults.
func NewParser(provenance []string, detectors []Detector, subarrays *geometry.SubarrayTable, log logger.Logger) *Parser {
	if len(provenance) == 0 {
		provenance = DefaultProvenance
	}
	if len(detectors) == 0 {
		detectors = DefaultDetectors
	}
	if subarrays == nil {
		subarrays = geometry.NewSubarrayTable()
	}

	p := &Parser{
		detectors: make(map[int]Detector, len(detectors)),
		subarrays: subarrays,
		log:       log.Module(component),
	}
	for _, tag := range provenance {
		p.provenance = append(p.provenance, strings.ToUpper(strings.TrimSpace(tag)))
	}
	for _, d := range detectors {
		p.detectors[d.SCAID] = d
	}
	return p
}

// Provenance normalizes tag and checks it is accepted.
func (p *Parser) Provenance(tag string) (string, error) {
	norm := strings.ToUpper(strings.TrimSpace(tag))
	if !slices.Contains(p.provenance, norm) {
		return "", errors.Configuration(component, "unsupported data provenance %q, expected one of %s",
			tag, strings.Join(p.provenance, ", "))
	}
	return norm, nil
}

// Detector returns the detector with the given SCA id.
func (p *Parser) Detector(scaID int) (Detector, bool) {
	d, ok := p.detectors[scaID]
	return d, ok
}

// Exposure reads the raw exposure metadata from the primary header of file.
func (p *Parser) Exposure(h fitsfile.Header, file, provenance string) (*Metadata, error) {
	tag, err := p.Provenance(provenance)
	if err != nil {
		return nil, err
	}

	r := headerReader{h: h, file: file}
	m := &Metadata{
		Provenance:      tag,
		FileName:        r.str("FILENAME"),
		SCAID:           r.integer("SCA_ID"),
		Groups:          r.integer("NGROUPS"),
		Ints:            r.integer("NINTS"),
		ReadPattern:     r.str("READPATT"),
		Subarray:        strings.ToUpper(r.str("SUBARRAY")),
		ExposureTime:    r.real("EXPTIME"),
		IntegrationTime: r.real("INTTIME"),
		Window: geometry.Window{
			X:      r.integer("SUBSTRT1"),
			Y:      r.integer("SUBSTRT2"),
			Width:  r.integer("SUBSIZE1"),
			Height: r.integer("SUBSIZE2"),
		},
	}
	if r.err != nil {
		return nil, r.err
	}

	if m.FileName == "" {
		return nil, errors.MissingMetadata(component, "FILENAME", file)
	}
	if m.Groups < 1 || m.Ints < 1 {
		return nil, errors.Configuration(component, "%s: NGROUPS %d and NINTS %d must be positive", file, m.Groups, m.Ints)
	}
	if _, ok := p.detectors[m.SCAID]; !ok {
		return nil, errors.Configuration(component, "%s: unknown detector SCA_ID %d", file, m.SCAID)
	}

	m.Start = p.timestamp(h, file, "DATE-OBS", "TIME-OBS")
	m.End = p.timestamp(h, file, "DATE-END", "TIME-END")

	if known := p.subarrays.Identify(m.Window); known != m.Subarray {
		p.log.Warn("subarray name does not match window",
			logger.String("file", file),
			logger.String("subarray", m.Subarray),
			logger.String("window_matches", known),
			logger.Any("window", m.Window))
	}

	return m, nil
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// timestamp combines a date and time keyword pair. Unparseable or missing
// pairs yield SentinelTime.
func (p *Parser) timestamp(h fitsfile.Header, file, dateKey, timeKey string) time.Time {
	date, okDate := h.String(dateKey)
	clock, okTime := h.String(timeKey)
	if okDate && okTime {
		if t, ok := parseTimestamp(date, clock); ok {
			return t
		}
	}
	p.log.Warn("using sentinel timestamp",
		logger.String("file", file),
		logger.String("date_keyword", dateKey),
		logger.String("date", date),
		logger.String("time", clock))
	return SentinelTime
}

func parseTimestamp(date, clock string) (time.Time, bool) {
	value := strings.TrimSpace(date) + " " + strings.TrimSpace(clock)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t, true
		}
	}
	// some writers put the full timestamp in the date keyword
	if t, err := time.ParseInLocation("2006-01-02T15:04:05", strings.TrimSpace(date), time.UTC); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// headerReader collects the first missing or malformed keyword.
type headerReader struct {
	h    fitsfile.Header
	file string
	err  error
}

func (r *headerReader) fail(key string, err error) {
	if r.err != nil {
		return
	}
	if err == nil {
		r.err = errors.MissingMetadata(component, key, r.file)
		return
	}
	r.err = errors.New(err).
		Component(component).
		Category(errors.CategoryFileParsing).
		Context("keyword", key).
		Context("file", r.file).
		Build()
}

func (r *headerReader) str(key string) string {
	v, ok := r.h.String(key)
	if !ok {
		r.fail(key, nil)
	}
	return v
}

func (r *headerReader) integer(key string) int {
	v, ok, err := r.h.Int(key)
	if !ok || err != nil {
		r.fail(key, err)
	}
	return v
}

func (r *headerReader) real(key string) float64 {
	v, ok, err := r.h.Float(key)
	if !ok || err != nil {
		r.fail(key, err)
	}
	return v
}
