package config

import "fmt"

// Wheel describes a drive or caster wheel.
type Wheel struct {
	Diameter float64 `json:"diameter"`
	Width    float64 `json:"width"`
}

// Envelope is a box-shaped space claim. Unused axes are zero.
type Envelope struct {
	Length float64 `json:"length,omitempty"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
}

// Mount describes a raised mounting pad or boss.
type Mount struct {
	Inset  float64 `json:"inset,omitempty"` // distance from the platform end to the mount centre
	Width  float64 `json:"width,omitempty"`
	Length float64 `json:"length"`
	Height float64 `json:"height"`
}

// Dimensions is the immutable dimension table of the platform.
// All lengths are in millimetres.
type Dimensions struct {
	Length        float64 `json:"length"`
	Width         float64 `json:"width"`
	Height        float64 `json:"height"`
	WallThickness float64 `json:"wallThickness"`
	BaseThickness float64 `json:"baseThickness"`

	DriveWheel  Wheel `json:"driveWheel"`
	CasterWheel Wheel `json:"casterWheel"`

	Battery      Envelope `json:"battery"`
	LiftRail     Envelope `json:"liftRail"`
	LiftPlatform Envelope `json:"liftPlatform"`

	// BatterySeated stands the battery pocket on the floor instead of
	// centring it on the floor's top face, which cuts through the floor.
	BatterySeated bool `json:"batterySeated,omitempty"`

	MaxLoadKg    float64 `json:"maxLoadKg"`
	FilletRadius float64 `json:"filletRadius"`
	FilletEdges  string  `json:"filletEdges"` // "top-outer", "top-inner" or "top-all"
	HoleDiameter float64 `json:"holeDiameter"`
	Tolerance    float64 `json:"tolerance"`

	MountingHoleOffset float64 `json:"mountingHoleOffset"`
	CasterMount        Mount   `json:"casterMount"`
	LiftRailMount      Mount   `json:"liftRailMount"`

	// ExtraHoles are additional "x,y" through holes cut after the corner holes.
	ExtraHoles []string `json:"extraHoles,omitempty"`
}

// RequiredKeys lists every viper key GetDimensions reads.
var RequiredKeys = []string{
	"platform.length",
	"platform.width",
	"platform.height",
	"wallThickness",
	"baseThickness",
	"driveWheel.diameter",
	"driveWheel.width",
	"casterWheel.diameter",
	"casterWheel.width",
	"battery.length",
	"battery.width",
	"battery.height",
	"liftRail.width",
	"liftRail.height",
	"liftPlatform.width",
	"liftPlatform.length",
	"maxLoadKg",
	"filletRadius",
	"holeDiameter",
	"tolerance",
	"mountingHoles.edgeOffset",
	"casterMount.inset",
	"casterMount.width",
	"casterMount.length",
	"casterMount.height",
	"liftRailMount.length",
	"liftRailMount.height",
}

// Default returns the compiled-in dimension table.
func Default() Dimensions {
	return Dimensions{
		Length:        457.2, // 1.5 ft
		Width:         300.0,
		Height:        100.0,
		WallThickness: 4.0,
		BaseThickness: 5.0,
		DriveWheel:    Wheel{Diameter: 100.0, Width: 30.0},
		CasterWheel:   Wheel{Diameter: 50.0, Width: 20.0},
		Battery:       Envelope{Length: 150.0, Width: 100.0, Height: 50.0},
		LiftRail:      Envelope{Width: 40.0, Height: 1000.0},
		LiftPlatform:  Envelope{Length: 300.0, Width: 250.0},
		MaxLoadKg:     1.36, // 3 lb
		FilletRadius:  3.0,
		FilletEdges:   "top-outer",
		HoleDiameter:  5.0, // M5
		Tolerance:     0.2,

		MountingHoleOffset: 10.0,
		CasterMount:        Mount{Inset: 50.0, Width: 80.0, Length: 80.0, Height: 10.0},
		LiftRailMount:      Mount{Length: 100.0, Height: 20.0},
	}
}

// WallHeight is the height of the walls above the base plate.
func (d Dimensions) WallHeight() float64 {
	return d.Height - d.BaseThickness
}

// InnerLength is the length of the interior between the walls.
func (d Dimensions) InnerLength() float64 {
	return d.Length - 2*d.WallThickness
}

// InnerWidth is the width of the interior between the walls.
func (d Dimensions) InnerWidth() float64 {
	return d.Width - 2*d.WallThickness
}

// WheelCutoutHeight exposes the lower third of a drive wheel.
func (d Dimensions) WheelCutoutHeight() float64 {
	return d.DriveWheel.Diameter / 3
}

// BatteryCutout is the battery envelope with clearance on each side.
func (d Dimensions) BatteryCutout() Envelope {
	return Envelope{
		Length: d.Battery.Length + 2*d.Tolerance,
		Width:  d.Battery.Width + 2*d.Tolerance,
		Height: d.Battery.Height,
	}
}

// LiftRailMountWidth wraps the rail with a wall on each side.
func (d Dimensions) LiftRailMountWidth() float64 {
	return d.LiftRail.Width + 2*d.WallThickness
}

type check struct {
	key string
	ok  bool
	msg string
}

// Validate reports the first dimension that is out of range.
func (d Dimensions) Validate() error {
	positive := []struct {
		key string
		v   float64
	}{
		{"platform.length", d.Length},
		{"platform.width", d.Width},
		{"platform.height", d.Height},
		{"wallThickness", d.WallThickness},
		{"baseThickness", d.BaseThickness},
		{"driveWheel.diameter", d.DriveWheel.Diameter},
		{"driveWheel.width", d.DriveWheel.Width},
		{"casterWheel.diameter", d.CasterWheel.Diameter},
		{"casterWheel.width", d.CasterWheel.Width},
		{"battery.length", d.Battery.Length},
		{"battery.width", d.Battery.Width},
		{"battery.height", d.Battery.Height},
		{"liftRail.width", d.LiftRail.Width},
		{"liftRail.height", d.LiftRail.Height},
		{"liftPlatform.width", d.LiftPlatform.Width},
		{"liftPlatform.length", d.LiftPlatform.Length},
		{"maxLoadKg", d.MaxLoadKg},
		{"filletRadius", d.FilletRadius},
		{"holeDiameter", d.HoleDiameter},
		{"tolerance", d.Tolerance},
		{"mountingHoles.edgeOffset", d.MountingHoleOffset},
		{"casterMount.inset", d.CasterMount.Inset},
		{"casterMount.width", d.CasterMount.Width},
		{"casterMount.length", d.CasterMount.Length},
		{"casterMount.height", d.CasterMount.Height},
		{"liftRailMount.length", d.LiftRailMount.Length},
		{"liftRailMount.height", d.LiftRailMount.Height},
	}
	for _, p := range positive {
		if !(p.v > 0) {
			return fmt.Errorf("%w: %s must be positive, got %g", ErrInvalidConfig, p.key, p.v)
		}
	}

	battery := d.BatteryCutout()
	checks := []check{
		{"wallThickness", 2*d.WallThickness < d.Width && 2*d.WallThickness < d.Length, "walls leave no interior"},
		{"baseThickness", d.BaseThickness < d.Height, "base plate is taller than the platform"},
		{"battery.width", battery.Width < d.InnerWidth(), "battery pocket is wider than the interior"},
		{"battery.length", battery.Length < d.Length/2, "battery pocket does not fit in the rear half"},
		{"mountingHoles.edgeOffset", 2*d.MountingHoleOffset < d.Width && 2*d.MountingHoleOffset < d.Length, "corner holes fall outside the footprint"},
		{"casterMount.inset", d.CasterMount.Inset < d.Length/2, "caster mounts fall outside the footprint"},
		{"liftRail.width", d.LiftRailMountWidth() < d.InnerWidth(), "lift-rail mount is wider than the interior"},
		{"driveWheel.diameter", d.WheelCutoutHeight() < d.Height, "wheel cutout is taller than the platform"},
	}
	for _, c := range checks {
		if !c.ok {
			return fmt.Errorf("%w: %s: %s", ErrInvalidConfig, c.key, c.msg)
		}
	}
	return nil
}
