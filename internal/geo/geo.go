package geo

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	geom "github.com/peterstace/simplefeatures/geom"
)

// FEATURE POSITIONS
// Positions are in the platform frame: origin at the centre of the footprint,
// X along the platform length, Y along its width, millimetres.

// ErrInvalidPosition is returned when a position string cannot be parsed
var ErrInvalidPosition = errors.New("invalid position provided")

// Position is an (x, y) placement on the platform's top face.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// XY returns the position as a simplefeatures coordinate.
func (p Position) XY() geom.XY {
	return geom.XY{X: p.X, Y: p.Y}
}

// Point returns the position as a simplefeatures point. Non-finite
// coordinates are rejected.
func (p Position) Point() (geom.Point, error) {
	pt, err := geom.NewPoint(geom.Coordinates{
		XY:   p.XY(),
		Type: geom.DimXY,
	})
	if err != nil {
		return geom.Point{}, fmt.Errorf("%w: %g,%g: %v", ErrInvalidPosition, p.X, p.Y, err)
	}
	return pt, nil
}

// FromXY converts a simplefeatures coordinate back to a Position.
func FromXY(xy geom.XY) Position {
	return Position{X: xy.X, Y: xy.Y}
}

// ReflectX mirrors the position across the Y axis (x -> -x).
func (p Position) ReflectX() Position {
	return Position{X: -p.X, Y: p.Y}
}

// ReflectY mirrors the position across the X axis (y -> -y).
func (p Position) ReflectY() Position {
	return Position{X: p.X, Y: -p.Y}
}

// PositionFromString parses a string in the format "x,y" into a Position.
// Surrounding whitespace is ignored and extra components are rejected.
func PositionFromString(s string) (Position, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return Position{}, ErrInvalidPosition
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Position{}, ErrInvalidPosition
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Position{}, ErrInvalidPosition
	}
	return Position{X: x, Y: y}, nil
}

// PositionsFromStrings parses a list of "x,y" strings, keeping their order.
func PositionsFromStrings(in []string) ([]Position, error) {
	out := make([]Position, 0, len(in))
	for _, s := range in {
		p, err := PositionFromString(s)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// CornerPositions returns four positions inset by edgeOffset from the
// corners of a length x width rectangle centred on center.
func CornerPositions(center Position, length, width, edgeOffset float64) []Position {
	dx := length/2 - edgeOffset
	dy := width/2 - edgeOffset
	return around(center, dx, dy)
}

// QuadrantPattern returns four positions offset by a quarter of the pad
// length and width from the pad centre, one per diagonal direction.
func QuadrantPattern(center Position, padLength, padWidth float64) []Position {
	return around(center, padLength/4, padWidth/4)
}

// around returns center +/- (dx, dy) in a fixed order:
// (+,+), (+,-), (-,+), (-,-).
func around(center Position, dx, dy float64) []Position {
	c := center.XY()
	o := Position{X: dx, Y: dy}
	offsets := []Position{o, o.ReflectY(), o.ReflectX(), o.ReflectX().ReflectY()}
	out := make([]Position, 0, len(offsets))
	for _, o := range offsets {
		out = append(out, FromXY(c.Add(o.XY())))
	}
	return out
}
