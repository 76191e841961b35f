// Package export writes meshes as STL files.
package export

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hschendel/stl"
	"github.com/liftbot/basecad/internal/mesh"
)

// Options controls the output format.
type Options struct {
	ASCII    bool   // text STL instead of binary
	Compress bool   // gzip the file and make sure the name ends in .gz
	Name     string // solid name written into the file
}

const defaultSolidName = "base_platform"

// OutputPath builds "<name>_<timestamp>.stl" inside dir and makes sure dir
// exists. Spaces and colons in name become underscores.
func OutputPath(dir, name string, t time.Time, opts Options) (string, error) {
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, ":", "_")
	if name == "" {
		name = defaultSolidName
	}

	filename := fmt.Sprintf("%s_%s.stl", name, t.Format("20060102_150405"))
	if opts.Compress {
		filename += ".gz"
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	return filepath.Join(dir, filename), nil
}

// Solid converts m to an STL solid.
func Solid(m *mesh.Mesh, opts Options) *stl.Solid {
	name := opts.Name
	if name == "" {
		name = defaultSolidName
	}
	s := &stl.Solid{
		Name:      name,
		IsAscii:   opts.ASCII,
		Triangles: make([]stl.Triangle, len(m.Faces)),
	}
	for i := range m.Faces {
		tri := m.Triangle(i)
		n := m.Normal(i)
		s.Triangles[i] = stl.Triangle{
			Normal: stl.Vec3{float32(n.X), float32(n.Y), float32(n.Z)},
			Vertices: [3]stl.Vec3{
				{float32(tri[0].X), float32(tri[0].Y), float32(tri[0].Z)},
				{float32(tri[1].X), float32(tri[1].Y), float32(tri[1].Z)},
				{float32(tri[2].X), float32(tri[2].Y), float32(tri[2].Z)},
			},
		}
	}
	return s
}

// WriteSTL writes m to path and returns the path actually written, which
// gains a .gz suffix when compressing.
func WriteSTL(path string, m *mesh.Mesh, opts Options) (string, error) {
	if m == nil || len(m.Faces) == 0 {
		return "", mesh.ErrEmptyMesh
	}
	if opts.Compress && !strings.HasSuffix(path, ".gz") {
		path += ".gz"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	var w io.Writer = f
	var gz *gzip.Writer
	if opts.Compress {
		gz = gzip.NewWriter(f)
		w = gz
	}

	if err := Solid(m, opts).WriteAll(w); err != nil {
		return "", fmt.Errorf("failed to write STL: %w", err)
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			return "", fmt.Errorf("failed to finish gzip stream: %w", err)
		}
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close file: %w", err)
	}
	return path, nil
}

// Read loads an STL file, transparently decompressing .gz files.
func Read(path string) (*stl.Solid, error) {
	if !strings.HasSuffix(path, ".gz") {
		return stl.ReadFile(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to open gzip stream: %w", err)
	}
	defer gz.Close()

	// stl.ReadAll seeks to sniff ASCII against binary
	data, err := io.ReadAll(gz)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress %s: %w", path, err)
	}
	return stl.ReadAll(bytes.NewReader(data))
}
