// Package platform assembles the robot base platform from dimension values.
//
// Every function here takes a solid and returns a new one. Stage functions
// check that the stages they build on have already run and record themselves
// on the returned solid, so a pipeline can be validated before anything is
// evaluated.
package platform

import (
	"errors"
	"fmt"

	"github.com/liftbot/basecad/internal/geo"
	"github.com/liftbot/basecad/internal/solid"
)

var (
	// ErrNoModel is returned when export or display is requested before a
	// successful build.
	ErrNoModel = errors.New("no model")
	// ErrInvalidParameter is returned for feature parameters that cannot
	// describe a valid feature.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrStageOrder is returned when a stage runs before its prerequisites.
	ErrStageOrder = errors.New("stage out of order")
)

// Thru is the hole depth that cuts through the whole part.
const Thru = 0.0

// AddHoles cuts one vertical hole per position, down from the top of the part.
// The result does not depend on the order of positions.
func AddHoles(s solid.Solid, positions []geo.Position, diameter, depth float64) (solid.Solid, error) {
	return cutHoles(s, StageHoles, positions, diameter, depth)
}

// AddFillet rounds the edges picked by sel.
func AddFillet(s solid.Solid, radius float64, sel solid.EdgeSelector) (solid.Solid, error) {
	return s.Fillet(StageFillet, radius, sel)
}

// AddMountingHoles cuts four through holes inset edgeOffset from each corner
// of a width x length footprint centred on the origin.
func AddMountingHoles(s solid.Solid, width, length, holeDiameter, edgeOffset float64) (solid.Solid, error) {
	if err := checkEdgeOffset(width, length, edgeOffset); err != nil {
		return solid.Solid{}, err
	}
	return AddHoles(s, geo.CornerPositions(geo.Position{}, length, width, edgeOffset), holeDiameter, Thru)
}

func checkEdgeOffset(width, length, edgeOffset float64) error {
	if !(edgeOffset > 0) {
		return fmt.Errorf("%w: edge offset must be positive, got %g", ErrInvalidParameter, edgeOffset)
	}
	if edgeOffset >= width/2 || edgeOffset >= length/2 {
		return fmt.Errorf("%w: edge offset %g does not fit a %gx%g footprint", ErrInvalidParameter, edgeOffset, length, width)
	}
	return nil
}

func cutHoles(s solid.Solid, stage string, positions []geo.Position, diameter, depth float64) (solid.Solid, error) {
	if s.IsZero() {
		return solid.Solid{}, ErrNoModel
	}
	if !(diameter > 0) {
		return solid.Solid{}, fmt.Errorf("%w: hole diameter must be positive, got %g", ErrInvalidParameter, diameter)
	}
	if depth < 0 {
		return solid.Solid{}, fmt.Errorf("%w: hole depth must not be negative, got %g", ErrInvalidParameter, depth)
	}

	var err error
	for _, p := range positions {
		s, err = s.Hole(stage, p.X, p.Y, diameter, depth)
		if err != nil {
			return solid.Solid{}, fmt.Errorf("hole at %g,%g: %w", p.X, p.Y, err)
		}
	}
	return s, nil
}

// StrayHoles returns the logged hole centres that fall outside a length x
// width footprint centred on the origin. Those holes removed no material.
func StrayHoles(s solid.Solid, length, width float64) ([]geo.Position, error) {
	var centres []geo.Position
	for _, f := range s.Features() {
		if f.Op != solid.OpHole {
			continue
		}
		c := f.Center()
		centres = append(centres, geo.Position{X: c.X, Y: c.Y})
	}
	return geo.Footprint{Length: length, Width: width}.Outside(centres)
}
