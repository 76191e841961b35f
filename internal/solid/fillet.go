package solid

import (
	"fmt"
	"math"
	"strings"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// EdgeSelector picks which edges a fillet rounds.
type EdgeSelector int

const (
	// TopOuter selects the outer perimeter of the wall tops.
	TopOuter EdgeSelector = iota
	// TopInner selects the inner perimeter of the wall tops.
	TopInner
	// TopAll selects both perimeters.
	TopAll
)

func (e EdgeSelector) String() string {
	switch e {
	case TopOuter:
		return "top-outer"
	case TopInner:
		return "top-inner"
	case TopAll:
		return "top-all"
	default:
		return fmt.Sprintf("EdgeSelector(%d)", int(e))
	}
}

// ParseEdgeSelector accepts the String forms, case-insensitively, with a
// space in place of the hyphen. ">Z" picks every top edge of the wall ring,
// which is TopAll. An empty string is TopOuter.
func ParseEdgeSelector(s string) (EdgeSelector, error) {
	switch strings.ToLower(strings.Join(strings.Fields(s), "-")) {
	case "", "top-outer":
		return TopOuter, nil
	case "top-inner":
		return TopInner, nil
	case "top-all", ">z":
		return TopAll, nil
	}
	return 0, fmt.Errorf("unknown edge selector %q", s)
}

// Fillet rounds the edges picked by sel with the given radius.
func (s Solid) Fillet(stage string, radius float64, sel EdgeSelector) (Solid, error) {
	if s.IsZero() {
		return Solid{}, fmt.Errorf("%w: fillet on empty solid", ErrGeometricInfeasibility)
	}
	rim, ok := s.Rim()
	if !ok {
		return Solid{}, fmt.Errorf("%w: selector %s matched no edges", ErrGeometricInfeasibility, sel)
	}
	if err := checkFillet(rim, radius, sel); err != nil {
		return Solid{}, err
	}

	var cutters []sdf.SDF3
	if sel == TopOuter || sel == TopAll {
		cutters = append(cutters, &edgeCutter{
			halfX: rim.Length / 2, halfY: rim.Width / 2,
			top: rim.Top, radius: radius,
		})
	}
	if sel == TopInner || sel == TopAll {
		cutters = append(cutters, &edgeCutter{
			halfX: rim.Length/2 - rim.Thickness, halfY: rim.Width/2 - rim.Thickness,
			top: rim.Top, radius: radius, inner: true,
		})
	}

	next := s.clone()
	for _, c := range cutters {
		next.field = sdf.Difference3D(next.field, c)
	}
	next.features = append(next.features, Feature{
		Stage:  stage,
		Op:     OpFillet,
		Bounds: rimBand(rim, radius),
		Radius: radius,
		Edges:  sel,
	})
	return next, nil
}

// checkFillet rejects radii the rim cannot carry.
func checkFillet(rim Rim, radius float64, sel EdgeSelector) error {
	if !(radius > 0) {
		return fmt.Errorf("%w: fillet radius must be positive, got %g", ErrGeometricInfeasibility, radius)
	}
	if radius > rim.Top-rim.Bottom {
		return fmt.Errorf("%w: fillet radius %g exceeds wall height %g", ErrGeometricInfeasibility, radius, rim.Top-rim.Bottom)
	}
	shortest := min(rim.Length, rim.Width) - 2*rim.Thickness
	if radius > shortest/2 {
		return fmt.Errorf("%w: fillet radius %g exceeds half the shortest edge %g", ErrGeometricInfeasibility, radius, shortest)
	}
	switch sel {
	case TopOuter, TopInner:
		if radius > rim.Thickness {
			return fmt.Errorf("%w: fillet radius %g exceeds wall thickness %g", ErrGeometricInfeasibility, radius, rim.Thickness)
		}
	case TopAll:
		if 2*radius > rim.Thickness {
			return fmt.Errorf("%w: inner and outer fillets of radius %g overlap on a %g wall", ErrGeometricInfeasibility, radius, rim.Thickness)
		}
	default:
		return fmt.Errorf("%w: unknown edge selector %s", ErrGeometricInfeasibility, sel)
	}
	return nil
}

func rimBand(rim Rim, radius float64) sdf.Box3 {
	return sdf.Box3{
		Min: v3.Vec{X: -rim.Length / 2, Y: -rim.Width / 2, Z: rim.Top - radius},
		Max: v3.Vec{X: rim.Length / 2, Y: rim.Width / 2, Z: rim.Top},
	}
}

// edgeCutter is the material removed when rounding the top edge of a
// rectangular wall face. Inside the cutter: within radius of both the wall
// face and the top, and farther than radius from the rounding axis. Points
// off the wall (air) may also fall inside; subtracting them is a no-op.
type edgeCutter struct {
	halfX, halfY float64
	top          float64
	radius       float64
	inner        bool // face bounds a cavity rather than the outside
}

// Evaluate implements sdf.SDF3.
func (c *edgeCutter) Evaluate(p v3.Vec) float64 {
	d := rectDistance(p.X, p.Y, c.halfX, c.halfY)
	// u: depth into the wall measured from the selected face
	u := -d
	if c.inner {
		u = d
	}
	v := c.top - p.Z
	r := c.radius
	return math.Max(math.Max(u-r, v-r), r-math.Hypot(r-u, r-v))
}

// BoundingBox implements sdf.SDF3.
func (c *edgeCutter) BoundingBox() sdf.Box3 {
	r := c.radius
	return sdf.Box3{
		Min: v3.Vec{X: -c.halfX - 2*r, Y: -c.halfY - 2*r, Z: c.top - 2*r},
		Max: v3.Vec{X: c.halfX + 2*r, Y: c.halfY + 2*r, Z: c.top + 2*r},
	}
}

// rectDistance is the signed distance from (x, y) to a centred rectangle;
// negative inside.
func rectDistance(x, y, hx, hy float64) float64 {
	qx := math.Abs(x) - hx
	qy := math.Abs(y) - hy
	outside := math.Hypot(math.Max(qx, 0), math.Max(qy, 0))
	inside := math.Min(math.Max(qx, qy), 0)
	return outside + inside
}
