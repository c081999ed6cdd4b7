package entities

import "time"

// Exposure is one raw readout. FileName is the natural key.
type Exposure struct {
	ID              uint      `gorm:"column:exp_id;primaryKey"`
	FileName        string    `gorm:"column:exp;size:255;not null;uniqueIndex"`
	DetectorID      uint      `gorm:"column:detector_id;not null;index"`
	Provenance      string    `gorm:"column:data_genesis;size:32;not null"`
	Groups          int       `gorm:"column:ngroups;not null"`
	Ints            int       `gorm:"column:nints;not null"`
	Subarray        string    `gorm:"column:subarray;size:64"`
	ReadPattern     string    `gorm:"column:readmode;size:32"`
	Start           time.Time `gorm:"column:t0"`
	End             time.Time `gorm:"column:t1"`
	ExposureTime    float64   `gorm:"column:exptime"`
	IntegrationTime float64   `gorm:"column:inttime"`
	OriginX         int       `gorm:"column:substrt1"`
	OriginY         int       `gorm:"column:substrt2"`
	Width           int       `gorm:"column:subsize1"`
	Height          int       `gorm:"column:subsize2"`
	RunID           string    `gorm:"column:run_id;size:36;index"`
	CreatedAt       time.Time

	Detector *Detector `gorm:"foreignKey:DetectorID"`
}

// TableName returns the table name for GORM.
func (Exposure) TableName() string {
	return "exposures"
}

// Ramp holds the raw reads of one pixel in one integration.
type Ramp struct {
	ID         uint64      `gorm:"column:ramp_id;primaryKey"`
	ExposureID uint        `gorm:"column:exp_id;not null;uniqueIndex:idx_ramp_exp_pixel_int,priority:1"`
	PixelID    int64       `gorm:"column:pixel_id;not null;index;uniqueIndex:idx_ramp_exp_pixel_int,priority:2"`
	IntNumber  int         `gorm:"column:intnumber;not null;uniqueIndex:idx_ramp_exp_pixel_int,priority:3"`
	Values     Int64Series `gorm:"column:ramp"`

	Exposure *Exposure `gorm:"foreignKey:ExposureID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE"`
	Pixel    *Pixel    `gorm:"foreignKey:PixelID"`
}

// TableName returns the table name for GORM.
func (Ramp) TableName() string {
	return "ramps"
}

// Group is one read of a ramp. GroupNumber runs 1..ngroups.
type Group struct {
	ID          uint64 `gorm:"column:group_id;primaryKey"`
	RampID      uint64 `gorm:"column:ramp_id;not null;uniqueIndex:idx_group_ramp_number,priority:1"`
	GroupNumber int    `gorm:"column:group_number;not null;uniqueIndex:idx_group_ramp_number,priority:2"`
	RawValue    int64  `gorm:"column:raw_value"`

	Ramp *Ramp `gorm:"foreignKey:RampID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE"`
}

// TableName returns the table name for GORM. GROUPS is reserved in MySQL.
func (Group) TableName() string {
	return "ramp_groups"
}
