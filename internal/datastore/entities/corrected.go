package entities

import "time"

// CorrectedExposure is the calibration provenance of one exposure.
type CorrectedExposure struct {
	ID              uint   `gorm:"column:corrected_exp_id;primaryKey"`
	FileName        string `gorm:"column:corrected_exp;size:255;not null;uniqueIndex"`
	ExposureID      uint   `gorm:"column:exp_id;not null;index"`
	PipelineVersion string `gorm:"column:pipeline_version;size:64"`
	CRDSVersion     string `gorm:"column:crds_version;size:64"`
	CalVCS          string `gorm:"column:cal_software_version_control_num;size:64"`

	DarkSubtraction      bool `gorm:"column:dark_subtraction;not null;default:false"`
	DQInit               bool `gorm:"column:dqinit;not null;default:false"`
	FirstFrameCorrection bool `gorm:"column:first_frame_correction;not null;default:false"`
	GroupScale           bool `gorm:"column:grpscl;not null;default:false"`
	IPC                  bool `gorm:"column:ipc;not null;default:false"`
	JumpDetection        bool `gorm:"column:jumpdet;not null;default:false"`
	LastFrameCorrection  bool `gorm:"column:last_frame_correction;not null;default:false"`
	Linearity            bool `gorm:"column:linearity;not null;default:false"`
	RefPixCorrection     bool `gorm:"column:ref_pix_correction;not null;default:false"`
	RSCD                 bool `gorm:"column:rscd;not null;default:false"`
	SaturationCheck      bool `gorm:"column:saturation_check;not null;default:false"`

	DarkRefFile       string `gorm:"column:dark_ref_file;size:255"`
	GainRefFile       string `gorm:"column:gain_ref_file;size:255"`
	IPCRefFile        string `gorm:"column:ipc_ref_file;size:255"`
	LinearRefFile     string `gorm:"column:linear_ref_file;size:255"`
	MaskRefFile       string `gorm:"column:mask_ref_file;size:255"`
	ReadNoiseRefFile  string `gorm:"column:readnoise_ref_file;size:255"`
	RSCDRefFile       string `gorm:"column:rscd_ref_file;size:255"`
	SaturationRefFile string `gorm:"column:saturation_ref_file;size:255"`

	CreatedAt time.Time

	Exposure *Exposure `gorm:"foreignKey:ExposureID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE"`
}

// TableName returns the table name for GORM.
func (CorrectedExposure) TableName() string {
	return "corrected_exposures"
}

// CorrectedRamp is the calibrated counterpart of a Ramp. DQMask is the OR of
// the per-group codes; decode it against dq_flags. Slope is nil when the
// calibration produced NaN.
type CorrectedRamp struct {
	ID                  uint64        `gorm:"column:corr_ramp_id;primaryKey"`
	CorrectedExposureID uint          `gorm:"column:corrected_exp_id;not null;uniqueIndex:idx_corr_ramp_exp_ramp,priority:1"`
	RampID              uint64        `gorm:"column:ramp_id;not null;index;uniqueIndex:idx_corr_ramp_exp_ramp,priority:2"`
	Slope               *float64      `gorm:"column:slope_value"`
	CorrectedValues     Float64Series `gorm:"column:corrected_ramp"`
	DQValues            Int64Series   `gorm:"column:dq_ramp"`
	ErrorValues         Float64Series `gorm:"column:err_ramp"`
	DQMask              int64         `gorm:"column:dq_mask;not null;default:0;index"`

	CorrectedExposure *CorrectedExposure `gorm:"foreignKey:CorrectedExposureID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE"`
	Ramp              *Ramp              `gorm:"foreignKey:RampID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE"`
}

// TableName returns the table name for GORM.
func (CorrectedRamp) TableName() string {
	return "corrected_ramps"
}

// CorrectedGroup is the calibrated counterpart of a Group.
type CorrectedGroup struct {
	ID              uint64   `gorm:"column:corr_group_id;primaryKey"`
	CorrectedRampID uint64   `gorm:"column:corr_ramp_id;not null;uniqueIndex:idx_corr_group_ramp_group,priority:1"`
	GroupID         uint64   `gorm:"column:group_id;not null;index;uniqueIndex:idx_corr_group_ramp_group,priority:2"`
	GroupNumber     int      `gorm:"column:group_number;not null"`
	CorrectedValue  *float64 `gorm:"column:corrected_value"`
	DQValue         int64    `gorm:"column:dq_value;not null;default:0"`
	ErrorValue      *float64 `gorm:"column:error_value"`

	CorrectedRamp *CorrectedRamp `gorm:"foreignKey:CorrectedRampID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE"`
	Group         *Group         `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE"`
}

// TableName returns the table name for GORM.
func (CorrectedGroup) TableName() string {
	return "corrected_groups"
}

// All lists every model in dependency order, for AutoMigrate.
func All() []any {
	return []any{
		&Detector{},
		&Pixel{},
		&DQFlag{},
		&Exposure{},
		&Ramp{},
		&Group{},
		&CorrectedExposure{},
		&CorrectedRamp{},
		&CorrectedGroup{},
	}
}
