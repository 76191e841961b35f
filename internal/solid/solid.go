// Package solid wraps the signed-distance kernel in an immutable model value.
//
// Every operation returns a new Solid; the receiver is never modified, and the
// feature log and stage list are copied on write so two generations never
// share backing arrays.
package solid

import (
	"errors"
	"fmt"
	"slices"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ErrGeometricInfeasibility is returned when a feature cannot be realized on
// the current solid.
var ErrGeometricInfeasibility = errors.New("geometric infeasibility")

// margin keeps through cuts clear of coincident faces.
const margin = 1.0

// Op names the kind of a logged feature.
type Op string

const (
	OpAdd          Op = "add"
	OpCut          Op = "cut"
	OpHole         Op = "hole"
	OpFillet       Op = "fillet"
	OpConstruction Op = "construction"
)

// Feature is one entry in a solid's feature log.
type Feature struct {
	Stage    string
	Op       Op
	Bounds   sdf.Box3
	Diameter float64      `json:",omitempty"`
	Radius   float64      `json:",omitempty"`
	Edges    EdgeSelector `json:",omitempty"`
}

// Center returns the centre of the feature's nominal box.
func (f Feature) Center() v3.Vec {
	return f.Bounds.Center()
}

// Size returns the extent of the feature's nominal box.
func (f Feature) Size() v3.Vec {
	return f.Bounds.Size()
}

// Rim describes the wall ring whose top edges fillets select.
type Rim struct {
	Length    float64 // outer footprint along X
	Width     float64 // outer footprint along Y
	Thickness float64
	Bottom    float64 // z where the inner wall face starts
	Top       float64
}

// Solid is an immutable handle to a constructed shape.
type Solid struct {
	field    sdf.SDF3
	bounds   sdf.Box3
	rim      *Rim
	stages   []string
	features []Feature
}

// NewBox starts a solid from a single box centred at center.
func NewBox(stage string, center, sz v3.Vec) (Solid, error) {
	box, err := boxAt(center, sz)
	if err != nil {
		return Solid{}, err
	}
	b := sdf.NewBox3(center, sz)
	return Solid{
		field:    box,
		bounds:   b,
		features: []Feature{{Stage: stage, Op: OpAdd, Bounds: b}},
	}, nil
}

// IsZero reports whether s holds no model.
func (s Solid) IsZero() bool {
	return s.field == nil
}

// Field returns the kernel shape.
func (s Solid) Field() sdf.SDF3 {
	return s.field
}

// Evaluate returns the signed distance at p; negative inside.
func (s Solid) Evaluate(p v3.Vec) float64 {
	return s.field.Evaluate(p)
}

// Bounds returns the nominal bounding box. Cuts never shrink it.
func (s Solid) Bounds() sdf.Box3 {
	return s.bounds
}

// Size returns the extent of the nominal bounding box.
func (s Solid) Size() v3.Vec {
	return s.bounds.Size()
}

// Top is the highest nominal z of the solid.
func (s Solid) Top() float64 {
	return s.bounds.Max.Z
}

// Rim returns the wall ring, if walls have been raised.
func (s Solid) Rim() (Rim, bool) {
	if s.rim == nil {
		return Rim{}, false
	}
	return *s.rim, true
}

// Stages returns the completed stage names in order.
func (s Solid) Stages() []string {
	return slices.Clone(s.stages)
}

// HasStage reports whether the named stage has completed.
func (s Solid) HasStage(name string) bool {
	return slices.Contains(s.stages, name)
}

// Features returns a copy of the feature log.
func (s Solid) Features() []Feature {
	return slices.Clone(s.features)
}

// FeaturesOf returns the features logged by a stage.
func (s Solid) FeaturesOf(stage string) []Feature {
	var out []Feature
	for _, f := range s.features {
		if f.Stage == stage {
			out = append(out, f)
		}
	}
	return out
}

// WithStage marks a stage as completed.
func (s Solid) WithStage(name string) Solid {
	next := s.clone()
	next.stages = append(next.stages, name)
	return next
}

// WithRim records the wall ring used by edge selectors.
func (s Solid) WithRim(r Rim) Solid {
	next := s.clone()
	next.rim = &r
	return next
}

// WithConstruction logs reference geometry that adds no material.
func (s Solid) WithConstruction(stage string, center, sz v3.Vec) Solid {
	next := s.clone()
	next.features = append(next.features, Feature{
		Stage:  stage,
		Op:     OpConstruction,
		Bounds: sdf.NewBox3(center, sz),
	})
	return next
}

// Add unions a box centred at center.
func (s Solid) Add(stage string, center, sz v3.Vec) (Solid, error) {
	if s.IsZero() {
		return Solid{}, fmt.Errorf("%w: add to empty solid", ErrGeometricInfeasibility)
	}
	box, err := boxAt(center, sz)
	if err != nil {
		return Solid{}, err
	}
	b := sdf.NewBox3(center, sz)
	next := s.clone()
	next.field = sdf.Union3D(s.field, box)
	next.bounds = s.bounds.Extend(b)
	next.features = append(next.features, Feature{Stage: stage, Op: OpAdd, Bounds: b})
	return next, nil
}

// Cut subtracts a box centred at center.
func (s Solid) Cut(stage string, center, sz v3.Vec) (Solid, error) {
	if s.IsZero() {
		return Solid{}, fmt.Errorf("%w: cut from empty solid", ErrGeometricInfeasibility)
	}
	box, err := boxAt(center, sz)
	if err != nil {
		return Solid{}, err
	}
	next := s.clone()
	next.field = sdf.Difference3D(s.field, box)
	next.features = append(next.features, Feature{Stage: stage, Op: OpCut, Bounds: sdf.NewBox3(center, sz)})
	return next, nil
}

// Hole cuts a vertical cylinder at (x, y) down from the top of the solid.
// A depth of zero or more than the solid's height cuts through.
func (s Solid) Hole(stage string, x, y, diameter, depth float64) (Solid, error) {
	if s.IsZero() {
		return Solid{}, fmt.Errorf("%w: hole in empty solid", ErrGeometricInfeasibility)
	}
	top := s.Top()
	bottom := s.bounds.Min.Z - margin
	if depth > 0 && top-depth > bottom {
		bottom = top - depth
	}
	height := top + margin - bottom

	cyl, err := sdf.Cylinder3D(height, diameter/2, 0)
	if err != nil {
		return Solid{}, fmt.Errorf("%w: hole d=%g: %v", ErrGeometricInfeasibility, diameter, err)
	}
	center := v3.Vec{X: x, Y: y, Z: bottom + height/2}
	cut := sdf.Transform3D(cyl, sdf.Translate3d(center))

	next := s.clone()
	next.field = sdf.Difference3D(s.field, cut)
	next.features = append(next.features, Feature{
		Stage:    stage,
		Op:       OpHole,
		Bounds:   sdf.NewBox3(center, v3.Vec{X: diameter, Y: diameter, Z: height}),
		Diameter: diameter,
	})
	return next, nil
}

func (s Solid) clone() Solid {
	return Solid{
		field:    s.field,
		bounds:   s.bounds,
		rim:      s.rim,
		stages:   slices.Clone(s.stages),
		features: slices.Clone(s.features),
	}
}

func boxAt(center, sz v3.Vec) (sdf.SDF3, error) {
	if !(sz.X > 0 && sz.Y > 0 && sz.Z > 0) {
		return nil, fmt.Errorf("%w: box %gx%gx%g has no volume", ErrGeometricInfeasibility, sz.X, sz.Y, sz.Z)
	}
	box, err := sdf.Box3D(sz, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: box %gx%gx%g: %v", ErrGeometricInfeasibility, sz.X, sz.Y, sz.Z, err)
	}
	return sdf.Transform3D(box, sdf.Translate3d(center)), nil
}
