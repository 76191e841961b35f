package platform

import (
	"fmt"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/liftbot/basecad/internal/config"
	"github.com/liftbot/basecad/internal/geo"
	"github.com/liftbot/basecad/internal/solid"
)

// Stage names, in build order.
const (
	StageBasePlate     = "base_plate"
	StageWalls         = "walls"
	StageBattery       = "battery_compartment"
	StageWheelCutouts  = "wheel_cutouts"
	StageCasterMounts  = "caster_mounts"
	StageLiftRailMount = "lift_rail_mount"
	StageMountingHoles = "mounting_holes"
	StageExtraHoles    = "extra_holes"
	StageFillet        = "fillet"
	StageHoles         = "holes"
)

// requirements lists the stages each stage builds on.
var requirements = map[string][]string{
	StageWalls:         {StageBasePlate},
	StageBattery:       {StageBasePlate},
	StageWheelCutouts:  {StageWalls},
	StageCasterMounts:  {StageBasePlate},
	StageLiftRailMount: {StageBasePlate},
	StageMountingHoles: {StageBasePlate},
	StageExtraHoles:    {StageBasePlate},
	StageFillet:        {StageWalls},
}

// Requires returns the stages that must have run before the named stage.
func Requires(stage string) []string {
	return append([]string(nil), requirements[stage]...)
}

func checkOrder(s solid.Solid, stage string) error {
	if s.IsZero() {
		return fmt.Errorf("%w: %s needs a base plate", ErrStageOrder, stage)
	}
	for _, need := range requirements[stage] {
		if !s.HasStage(need) {
			return fmt.Errorf("%w: %s needs %s", ErrStageOrder, stage, need)
		}
	}
	return nil
}

func vec(x, y, z float64) v3.Vec {
	return v3.Vec{X: x, Y: y, Z: z}
}

// CreateBasePlate returns the floor slab: length x width x base thickness,
// centred on the origin with its bottom at z=0. The wall-placement rectangle
// on its top face is logged as construction geometry.
func CreateBasePlate(d config.Dimensions) (solid.Solid, error) {
	t := d.BaseThickness
	s, err := solid.NewBox(StageBasePlate, vec(0, 0, t/2), vec(d.Length, d.Width, t))
	if err != nil {
		return solid.Solid{}, fmt.Errorf("base plate: %w", err)
	}
	s = s.WithConstruction(StageBasePlate, vec(0, 0, t), vec(d.InnerLength(), d.InnerWidth(), 0))
	return s.WithStage(StageBasePlate), nil
}

// CreateWalls raises the rectangular wall ring from the top of the base plate
// to the platform height.
func CreateWalls(s solid.Solid, d config.Dimensions) (solid.Solid, error) {
	if err := checkOrder(s, StageWalls); err != nil {
		return solid.Solid{}, err
	}
	t := d.WallThickness
	h := d.WallHeight()
	z := d.BaseThickness + h/2

	walls := []struct{ center, size v3.Vec }{
		{vec(0, d.Width/2-t/2, z), vec(d.Length, t, h)},
		{vec(0, -d.Width/2+t/2, z), vec(d.Length, t, h)},
		{vec(d.Length/2-t/2, 0, z), vec(t, d.InnerWidth(), h)},
		{vec(-d.Length/2+t/2, 0, z), vec(t, d.InnerWidth(), h)},
	}
	var err error
	for _, w := range walls {
		s, err = s.Add(StageWalls, w.center, w.size)
		if err != nil {
			return solid.Solid{}, fmt.Errorf("walls: %w", err)
		}
	}
	s = s.WithRim(solid.Rim{
		Length:    d.Length,
		Width:     d.Width,
		Thickness: t,
		Bottom:    d.BaseThickness,
		Top:       d.Height,
	})
	return s.WithStage(StageWalls), nil
}

// CreateBatteryCompartment cuts the battery pocket in the rear quarter of the
// platform, centred on the top face of the base plate. With BatterySeated the
// pocket stands on that face and the floor under the battery is kept.
func CreateBatteryCompartment(s solid.Solid, d config.Dimensions) (solid.Solid, error) {
	if err := checkOrder(s, StageBattery); err != nil {
		return solid.Solid{}, err
	}
	b := d.BatteryCutout()
	z := d.BaseThickness
	if d.BatterySeated {
		z += b.Height / 2
	}
	s, err := s.Cut(StageBattery, vec(-d.Length/4, 0, z), vec(b.Length, b.Width, b.Height))
	if err != nil {
		return solid.Solid{}, fmt.Errorf("battery compartment: %w", err)
	}
	return s.WithStage(StageBattery), nil
}

// CreateWheelCutouts cuts a clearance slot for each drive wheel where the
// wheel axis crosses the side walls. Each slot rises from the bottom of the
// part to a third of the wheel diameter.
func CreateWheelCutouts(s solid.Solid, d config.Dimensions) (solid.Solid, error) {
	if err := checkOrder(s, StageWheelCutouts); err != nil {
		return solid.Solid{}, err
	}
	h := d.WheelCutoutHeight()
	size := vec(d.DriveWheel.Width+2*d.Tolerance, d.DriveWheel.Diameter+2*d.Tolerance, h)

	var err error
	for _, y := range []float64{d.Width / 2, -d.Width / 2} {
		s, err = s.Cut(StageWheelCutouts, vec(0, y, h/2), size)
		if err != nil {
			return solid.Solid{}, fmt.Errorf("wheel cutout at y=%g: %w", y, err)
		}
	}
	return s.WithStage(StageWheelCutouts), nil
}

// CreateCasterMounts adds a pad for each caster near the front and rear ends,
// each with four through holes.
func CreateCasterMounts(s solid.Solid, d config.Dimensions) (solid.Solid, error) {
	if err := checkOrder(s, StageCasterMounts); err != nil {
		return solid.Solid{}, err
	}
	m := d.CasterMount
	x := d.Length/2 - m.Inset
	z := d.BaseThickness + m.Height/2

	var err error
	for _, c := range []geo.Position{{X: x}, {X: -x}} {
		s, err = s.Add(StageCasterMounts, vec(c.X, c.Y, z), vec(m.Width, m.Length, m.Height))
		if err != nil {
			return solid.Solid{}, fmt.Errorf("caster mount at x=%g: %w", c.X, err)
		}
		s, err = cutHoles(s, StageCasterMounts, geo.QuadrantPattern(c, m.Width, m.Length), d.HoleDiameter, Thru)
		if err != nil {
			return solid.Solid{}, fmt.Errorf("caster mount at x=%g: %w", c.X, err)
		}
	}
	return s.WithStage(StageCasterMounts), nil
}

// CreateLiftRailMount adds the lift-rail boss at the centre of the platform.
func CreateLiftRailMount(s solid.Solid, d config.Dimensions) (solid.Solid, error) {
	if err := checkOrder(s, StageLiftRailMount); err != nil {
		return solid.Solid{}, err
	}
	m := d.LiftRailMount
	s, err := s.Add(StageLiftRailMount,
		vec(0, 0, d.BaseThickness+m.Height/2),
		vec(m.Length, d.LiftRailMountWidth(), m.Height))
	if err != nil {
		return solid.Solid{}, fmt.Errorf("lift rail mount: %w", err)
	}
	return s.WithStage(StageLiftRailMount), nil
}

// CreateMountingHoles cuts the corner mounting holes over the full footprint.
func CreateMountingHoles(s solid.Solid, d config.Dimensions) (solid.Solid, error) {
	if err := checkOrder(s, StageMountingHoles); err != nil {
		return solid.Solid{}, err
	}
	if err := checkEdgeOffset(d.Width, d.Length, d.MountingHoleOffset); err != nil {
		return solid.Solid{}, err
	}
	corners := geo.CornerPositions(geo.Position{}, d.Length, d.Width, d.MountingHoleOffset)
	s, err := cutHoles(s, StageMountingHoles, corners, d.HoleDiameter, Thru)
	if err != nil {
		return solid.Solid{}, fmt.Errorf("mounting holes: %w", err)
	}
	return s.WithStage(StageMountingHoles), nil
}

// CreateExtraHoles cuts the additional through holes listed in the dimension
// table. Positions off the footprint cut nothing.
func CreateExtraHoles(s solid.Solid, d config.Dimensions) (solid.Solid, error) {
	if err := checkOrder(s, StageExtraHoles); err != nil {
		return solid.Solid{}, err
	}
	positions, err := geo.PositionsFromStrings(d.ExtraHoles)
	if err != nil {
		return solid.Solid{}, fmt.Errorf("%w: extra holes: %v", ErrInvalidParameter, err)
	}
	s, err = cutHoles(s, StageExtraHoles, positions, d.HoleDiameter, Thru)
	if err != nil {
		return solid.Solid{}, fmt.Errorf("extra holes: %w", err)
	}
	return s.WithStage(StageExtraHoles), nil
}

// CreateFillet rounds the top edges of the walls picked by FilletEdges,
// the outer ones by default.
func CreateFillet(s solid.Solid, d config.Dimensions) (solid.Solid, error) {
	if err := checkOrder(s, StageFillet); err != nil {
		return solid.Solid{}, err
	}
	sel, err := solid.ParseEdgeSelector(d.FilletEdges)
	if err != nil {
		return solid.Solid{}, fmt.Errorf("%w: fillet: %v", ErrInvalidParameter, err)
	}
	s, err = AddFillet(s, d.FilletRadius, sel)
	if err != nil {
		return solid.Solid{}, fmt.Errorf("fillet: %w", err)
	}
	return s.WithStage(StageFillet), nil
}
