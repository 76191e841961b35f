package catalog

import (
	"time"

	"gorm.io/datatypes"
)

// Build is one run of the construction pipeline.
type Build struct {
	ID         uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	CreatedAt  time.Time `json:"createdAt"`
	StartedAt  time.Time `json:"startedAt" gorm:"index"`
	DurationMs float64   `json:"durationMs"`
	Status     string    `json:"status" gorm:"size:16;index"`
	Error      string    `json:"error,omitempty"`

	SizeX     float64 `json:"sizeX"`
	SizeY     float64 `json:"sizeY"`
	SizeZ     float64 `json:"sizeZ"`
	Features  int     `json:"features"`
	Triangles int     `json:"triangles"`

	// Dimensions is the configuration record the build ran with.
	Dimensions datatypes.JSON `json:"dimensions"`

	Stages  []StageRun `json:"stages" gorm:"foreignKey:BuildID;constraint:OnDelete:CASCADE;"`
	Exports []Export   `json:"exports" gorm:"foreignKey:BuildID;constraint:OnDelete:CASCADE;"`
}

func (*Build) TableName() string {
	return "builds"
}

// StageRun is the timing of one stage within a build.
type StageRun struct {
	ID         uint    `json:"id" gorm:"primarykey;autoIncrement;"`
	BuildID    uint    `json:"buildId" gorm:"index"`
	Seq        int     `json:"seq"`
	Name       string  `json:"name" gorm:"size:64"`
	DurationMs float64 `json:"durationMs"`
	Error      string  `json:"error,omitempty"`
}

func (*StageRun) TableName() string {
	return "stage_runs"
}

// Export is an STL file written from a build.
type Export struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	CreatedAt time.Time `json:"createdAt"`
	BuildID   uint      `json:"buildId" gorm:"index"`
	Path      string    `json:"path"`
	Triangles int       `json:"triangles"`
	SizeBytes int64     `json:"sizeBytes"`
}

func (*Export) TableName() string {
	return "exports"
}

// Models lists every table Setup migrates.
var Models = []interface{}{
	&Build{},
	&StageRun{},
	&Export{},
}
