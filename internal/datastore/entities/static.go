package entities

// Detector is a sensor chip assembly. The primary key is the SCA id found
// in exposure headers.
type Detector struct {
	ID   uint   `gorm:"column:detector_id;primaryKey;autoIncrement:false"`
	Name string `gorm:"size:64;not null;uniqueIndex"`
	Cols int    `gorm:"column:ncols;not null"`
	Rows int    `gorm:"column:nrows;not null"`
}

// TableName returns the table name for GORM.
func (Detector) TableName() string {
	return "detectors"
}

// Pixel is one full-frame pixel. Row and column are 1-based; reference
// pixels live in the rows after the imaging area.
type Pixel struct {
	ID        int64 `gorm:"column:pixel_id;primaryKey;autoIncrement:false"`
	Row       int   `gorm:"column:row_id;not null"`
	Col       int   `gorm:"column:col_id;not null"`
	Reference bool  `gorm:"column:ref_pix;not null;index"`
}

// TableName returns the table name for GORM.
func (Pixel) TableName() string {
	return "pixels"
}

// DQFlag decodes one bit of a packed data quality code.
type DQFlag struct {
	Bit   int    `gorm:"primaryKey;autoIncrement:false"`
	Value int64  `gorm:"not null;uniqueIndex"`
	Name  string `gorm:"size:64;not null;uniqueIndex"`
}

// TableName returns the table name for GORM.
func (DQFlag) TableName() string {
	return "dq_flags"
}
