package exposure

import (
	"strings"

	"github.com/tphakala/miri-pixeldb/internal/errors"
	"github.com/tphakala/miri-pixeldb/internal/fitsfile"
)

// NotApplicable is stored for reference files a calibration run did not record.
const NotApplicable = "N/A"

const stepComplete = "COMPLETE"

// Steps records which calibration steps completed.
type Steps struct {
	Dark       bool
	DQInit     bool
	FirstFrame bool
	GroupScale bool
	IPC        bool
	Jump       bool
	LastFrame  bool
	Linearity  bool
	RefPix     bool
	RSCD       bool
	Saturation bool
}

// ReferenceFiles names the reference files used by calibration.
type ReferenceFiles struct {
	Dark       string
	Gain       string
	IPC        string
	Linearity  string
	Mask       string
	ReadNoise  string
	RSCD       string
	Saturation string
}

// CorrectedMetadata is the provenance of a calibrated exposure.
type CorrectedMetadata struct {
	FileName    string
	CalVersion  string
	CRDSVersion string
	CalVCS      string
	Steps       Steps
	References  ReferenceFiles
}

// ParseCorrected reads the calibration provenance from the primary header
// of a corrected ramp product. Step keywords count as completed only when
// they read COMPLETE; absent reference file keywords become N/A.
func ParseCorrected(h fitsfile.Header, file string) (*CorrectedMetadata, error) {
	r := headerReader{h: h, file: file}
	m := &CorrectedMetadata{
		FileName:    r.str("FILENAME"),
		CalVersion:  r.str("CAL_VER"),
		CRDSVersion: r.str("CRDS_VER"),
		CalVCS:      r.str("CAL_VCS"),
	}
	if r.err != nil {
		return nil, r.err
	}
	if m.FileName == "" {
		return nil, errors.MissingMetadata(component, "FILENAME", file)
	}

	step := func(key string) bool {
		v, _ := h.String(key)
		return strings.EqualFold(v, stepComplete)
	}
	m.Steps = Steps{
		Dark:       step("S_DARK"),
		DQInit:     step("S_DQINIT"),
		FirstFrame: step("S_FRSTFR"),
		GroupScale: step("S_GRPSCL"),
		IPC:        step("S_IPC"),
		Jump:       step("S_JUMP"),
		LastFrame:  step("S_LASTFR"),
		Linearity:  step("S_LINEAR"),
		RefPix:     step("S_REFPIX"),
		RSCD:       step("S_RSCD"),
		Saturation: step("S_SATURA"),
	}

	ref := func(key string) string {
		if v, ok := h.String(key); ok && v != "" {
			return v
		}
		return NotApplicable
	}
	m.References = ReferenceFiles{
		Dark:       ref("R_DARK"),
		Gain:       ref("R_GAIN"),
		IPC:        ref("R_IPC"),
		Linearity:  ref("R_LINEAR"),
		Mask:       ref("R_MASK"),
		ReadNoise:  ref("R_READNO"),
		RSCD:       ref("R_RSCD"),
		Saturation: ref("R_SATURA"),
	}

	return m, nil
}
