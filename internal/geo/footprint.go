package geo

import (
	"fmt"

	geom "github.com/peterstace/simplefeatures/geom"
)

// Footprint is an axis-aligned rectangle centred on the platform origin.
type Footprint struct {
	Length float64
	Width  float64
}

// Outline returns the footprint boundary as a closed ring, counter-clockwise
// from the (-x, -y) corner.
func (f Footprint) Outline() (geom.LineString, error) {
	hx, hy := f.Length/2, f.Width/2
	flat := []float64{
		-hx, -hy,
		hx, -hy,
		hx, hy,
		-hx, hy,
		-hx, -hy,
	}
	ls, err := geom.NewLineString(geom.NewSequence(flat, geom.DimXY))
	if err != nil {
		return geom.LineString{}, fmt.Errorf("footprint %gx%g: %w", f.Length, f.Width, err)
	}
	return ls, nil
}

// Outside returns the positions that fall outside the footprint, in order.
// Positions on the boundary are inside.
func (f Footprint) Outside(positions []Position) ([]Position, error) {
	outline, err := f.Outline()
	if err != nil {
		return nil, err
	}
	env := outline.Envelope()

	var out []Position
	for _, p := range positions {
		if !env.Contains(p.XY()) {
			out = append(out, p)
		}
	}
	return out, nil
}

// WKT renders the positions as WKT points, for logging.
func WKT(positions []Position) ([]string, error) {
	out := make([]string, 0, len(positions))
	for _, p := range positions {
		pt, err := p.Point()
		if err != nil {
			return nil, err
		}
		out = append(out, pt.AsText())
	}
	return out, nil
}
