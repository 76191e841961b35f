// Package mesh extracts triangle surfaces from signed distance fields.
//
// Extraction is dual contouring: one vertex per grid cell that straddles the
// surface, one quad per grid edge that crosses it. The quads are exactly the
// faces separating inside from outside sample points, so the result is a
// closed, consistently oriented surface whenever the padded grid starts and
// ends outside the solid. Each vertex minimises its distance to the tangent
// planes at the cell's edge crossings, which keeps box edges and corners sharp.
package mesh

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

var (
	// ErrEmptyMesh is returned when the field has no surface inside the bounds.
	ErrEmptyMesh = errors.New("empty mesh")
	// ErrInvalidCellSize is returned for non-positive cell sizes.
	ErrInvalidCellSize = errors.New("invalid cell size")
)

// pad is the number of sample layers added around the bounds.
const pad = 2

// bias pulls under-constrained vertices toward the mean of their crossings.
const bias = 1e-3

// maxSamples caps the grid so a bad cell size cannot exhaust memory.
const maxSamples = 200_000_000

// Mesh is an indexed triangle surface.
type Mesh struct {
	Vertices []v3.Vec
	Faces    [][3]int
}

// cube corner offsets, bit 0 = x, bit 1 = y, bit 2 = z
var corners = [8][3]int{
	{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0},
	{0, 0, 1}, {1, 0, 1}, {0, 1, 1}, {1, 1, 1},
}

// cube edges as corner pairs
var edges = [12][2]int{
	{0, 1}, {2, 3}, {4, 5}, {6, 7},
	{0, 2}, {1, 3}, {4, 6}, {5, 7},
	{0, 4}, {1, 5}, {2, 6}, {3, 7},
}

type grid struct {
	field      sdf.SDF3
	origin     v3.Vec
	cell       float64
	nx, ny, nz int
	values     []float64
}

func (g *grid) index(i, j, k int) int {
	return (k*g.ny+j)*g.nx + i
}

func (g *grid) point(i, j, k int) v3.Vec {
	return v3.Vec{
		X: g.origin.X + float64(i)*g.cell,
		Y: g.origin.Y + float64(j)*g.cell,
		Z: g.origin.Z + float64(k)*g.cell,
	}
}

func (g *grid) inside(i, j, k int) bool {
	return g.values[g.index(i, j, k)] < 0
}

// Generate samples f over bounds at the given cell size and returns its surface.
func Generate(ctx context.Context, f sdf.SDF3, bounds sdf.Box3, cellSize float64) (*Mesh, error) {
	if !(cellSize > 0) {
		return nil, fmt.Errorf("%w: %g", ErrInvalidCellSize, cellSize)
	}

	g := &grid{
		origin: v3.Vec{
			X: bounds.Min.X - pad*cellSize,
			Y: bounds.Min.Y - pad*cellSize,
			Z: bounds.Min.Z - pad*cellSize,
		},
		cell:  cellSize,
		nx:    int(math.Ceil((bounds.Max.X-bounds.Min.X)/cellSize)) + 2*pad + 1,
		ny:    int(math.Ceil((bounds.Max.Y-bounds.Min.Y)/cellSize)) + 2*pad + 1,
		nz:    int(math.Ceil((bounds.Max.Z-bounds.Min.Z)/cellSize)) + 2*pad + 1,
		field: f,
	}
	if total := float64(g.nx) * float64(g.ny) * float64(g.nz); total > maxSamples {
		return nil, fmt.Errorf("%w: %g gives %dx%dx%d samples", ErrInvalidCellSize, cellSize, g.nx, g.ny, g.nz)
	}

	g.values = make([]float64, g.nx*g.ny*g.nz)
	for k := 0; k < g.nz; k++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for j := 0; j < g.ny; j++ {
			for i := 0; i < g.nx; i++ {
				g.values[g.index(i, j, k)] = f.Evaluate(g.point(i, j, k))
			}
		}
	}

	m := &Mesh{}
	cells := g.cellVertices(m)
	g.emitQuads(m, cells)

	if len(m.Faces) == 0 {
		return nil, ErrEmptyMesh
	}
	return m, nil
}

// cellVertices places one vertex per straddling cell and returns the
// cell -> vertex index table (-1 for none).
func (g *grid) cellVertices(m *Mesh) []int32 {
	cx, cy, cz := g.nx-1, g.ny-1, g.nz-1
	cells := make([]int32, cx*cy*cz)
	for i := range cells {
		cells[i] = -1
	}

	var vals [8]float64
	var hits []crossing
	for k := 0; k < cz; k++ {
		for j := 0; j < cy; j++ {
			for i := 0; i < cx; i++ {
				mask := 0
				for c, o := range corners {
					vals[c] = g.values[g.index(i+o[0], j+o[1], k+o[2])]
					if vals[c] < 0 {
						mask |= 1 << c
					}
				}
				if mask == 0 || mask == 0xff {
					continue
				}

				hits = hits[:0]
				for _, e := range edges {
					a, b := e[0], e[1]
					if (vals[a] < 0) == (vals[b] < 0) {
						continue
					}
					pa := g.point(i+corners[a][0], j+corners[a][1], k+corners[a][2])
					pb := g.point(i+corners[b][0], j+corners[b][1], k+corners[b][2])
					t := vals[a] / (vals[a] - vals[b])
					p := pa.Add(pb.Sub(pa).MulScalar(t))
					hits = append(hits, crossing{p: p, n: sdf.Normal3(g.field, p, g.cell*1e-3)})
				}

				cell := sdf.Box3{Min: g.point(i, j, k), Max: g.point(i+1, j+1, k+1)}
				cells[(k*cy+j)*cx+i] = int32(len(m.Vertices))
				m.Vertices = append(m.Vertices, place(hits, cell))
			}
		}
	}
	return cells
}

// crossing is where the surface cuts a cell edge, with the field's normal there.
type crossing struct {
	p, n v3.Vec
}

// place solves the biased least-squares problem
//
//	min sum (n_i . (x - p_i))^2 + bias |x - c|^2
//
// where c is the mean crossing, and clamps the result to the cell.
func place(hits []crossing, cell sdf.Box3) v3.Vec {
	var c v3.Vec
	for _, h := range hits {
		c = c.Add(h.p)
	}
	c = c.DivScalar(float64(len(hits)))

	ata := sdf.M33{bias, 0, 0, 0, bias, 0, 0, 0, bias}
	var atb v3.Vec
	for _, h := range hits {
		n := h.n
		if math.IsNaN(n.X) || math.IsNaN(n.Y) || math.IsNaN(n.Z) {
			continue
		}
		ata = ata.Add(sdf.M33{
			n.X * n.X, n.X * n.Y, n.X * n.Z,
			n.Y * n.X, n.Y * n.Y, n.Y * n.Z,
			n.Z * n.X, n.Z * n.Y, n.Z * n.Z,
		})
		atb = atb.Add(n.MulScalar(n.Dot(h.p.Sub(c))))
	}

	inv := ata.Inverse()
	x := c.Add(v3.Vec{
		X: inv[0]*atb.X + inv[1]*atb.Y + inv[2]*atb.Z,
		Y: inv[3]*atb.X + inv[4]*atb.Y + inv[5]*atb.Z,
		Z: inv[6]*atb.X + inv[7]*atb.Y + inv[8]*atb.Z,
	})
	return x.Clamp(cell.Min, cell.Max)
}

// emitQuads adds two triangles for every grid edge whose ends differ in sign,
// wound so the normal points from the inside sample to the outside one.
func (g *grid) emitQuads(m *Mesh, cells []int32) {
	cx, cy := g.nx-1, g.ny-1
	cell := func(i, j, k int) int {
		return int(cells[(k*cy+j)*cx+i])
	}
	quad := func(startInside bool, a, b, c, d int) {
		if !startInside {
			b, d = d, b
		}
		m.Faces = append(m.Faces, [3]int{a, b, c}, [3]int{a, c, d})
	}

	for k := 1; k < g.nz-1; k++ {
		for j := 1; j < g.ny-1; j++ {
			for i := 0; i < g.nx-1; i++ {
				in := g.inside(i, j, k)
				if in == g.inside(i+1, j, k) {
					continue
				}
				quad(in, cell(i, j-1, k-1), cell(i, j, k-1), cell(i, j, k), cell(i, j-1, k))
			}
		}
	}
	for k := 1; k < g.nz-1; k++ {
		for j := 0; j < g.ny-1; j++ {
			for i := 1; i < g.nx-1; i++ {
				in := g.inside(i, j, k)
				if in == g.inside(i, j+1, k) {
					continue
				}
				quad(in, cell(i-1, j, k-1), cell(i-1, j, k), cell(i, j, k), cell(i, j, k-1))
			}
		}
	}
	for k := 0; k < g.nz-1; k++ {
		for j := 1; j < g.ny-1; j++ {
			for i := 1; i < g.nx-1; i++ {
				in := g.inside(i, j, k)
				if in == g.inside(i, j, k+1) {
					continue
				}
				quad(in, cell(i-1, j-1, k), cell(i, j-1, k), cell(i, j, k), cell(i-1, j, k))
			}
		}
	}
}
