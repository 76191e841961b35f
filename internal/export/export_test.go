package export

import (
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/liftbot/basecad/internal/mesh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cube(t *testing.T) *mesh.Mesh {
	t.Helper()
	s, err := sdf.Box3D(v3.Vec{X: 10, Y: 10, Z: 10}, 0)
	require.NoError(t, err)
	m, err := mesh.Generate(context.Background(), s, s.BoundingBox(), 1)
	require.NoError(t, err)
	return m
}

func TestOutputPath(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out", "nested")
	ts := time.Date(2026, 3, 1, 9, 5, 7, 0, time.UTC)

	got, err := OutputPath(dir, "base platform:v2", ts, Options{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "base_platform_v2_20260301_090507.stl"), got)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	got, err = OutputPath(dir, "", ts, Options{Compress: true})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "base_platform_20260301_090507.stl.gz"), got)
}

func TestWriteSTL_Binary(t *testing.T) {
	m := cube(t)
	path := filepath.Join(t.TempDir(), "cube.stl")

	written, err := WriteSTL(path, m, Options{})
	require.NoError(t, err)
	assert.Equal(t, path, written)

	// 80 byte header, 4 byte count, 50 bytes per triangle
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(84+50*len(m.Faces)), info.Size())

	s, err := Read(path)
	require.NoError(t, err)
	assert.Len(t, s.Triangles, len(m.Faces))
	assert.False(t, s.IsAscii)
}

func TestWriteSTL_ASCII(t *testing.T) {
	m := cube(t)
	path := filepath.Join(t.TempDir(), "cube.stl")

	_, err := WriteSTL(path, m, Options{ASCII: true, Name: "cube"})
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "solid cube"))
	assert.Equal(t, len(m.Faces), strings.Count(string(raw), "endfacet"))

	s, err := Read(path)
	require.NoError(t, err)
	assert.Len(t, s.Triangles, len(m.Faces))
	assert.Equal(t, "cube", s.Name)
}

func TestWriteSTL_Compressed(t *testing.T) {
	m := cube(t)
	path := filepath.Join(t.TempDir(), "cube.stl")

	written, err := WriteSTL(path, m, Options{Compress: true})
	require.NoError(t, err)
	assert.Equal(t, path+".gz", written)

	f, err := os.Open(written)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	raw, err := io.ReadAll(gz)
	require.NoError(t, err)
	assert.Len(t, raw, 84+50*len(m.Faces))

	s, err := Read(written)
	require.NoError(t, err)
	assert.Len(t, s.Triangles, len(m.Faces))
}

func TestRead_CompressedASCII(t *testing.T) {
	m := cube(t)
	written, err := WriteSTL(filepath.Join(t.TempDir(), "cube.stl"), m, Options{ASCII: true, Compress: true, Name: "cube"})
	require.NoError(t, err)

	s, err := Read(written)
	require.NoError(t, err)
	assert.Equal(t, "cube", s.Name)
	assert.Len(t, s.Triangles, len(m.Faces))
}

func TestRead_CorruptGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.stl.gz")
	require.NoError(t, os.WriteFile(path, []byte("not gzip"), 0o644))

	_, err := Read(path)
	assert.Error(t, err)
}

func TestWriteSTL_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "cube.stl")
	_, err := WriteSTL(path, cube(t), Options{})
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestWriteSTL_EmptyMesh(t *testing.T) {
	_, err := WriteSTL(filepath.Join(t.TempDir(), "x.stl"), &mesh.Mesh{}, Options{})
	require.ErrorIs(t, err, mesh.ErrEmptyMesh)
}

func TestSolid_NormalsMatchMesh(t *testing.T) {
	m := cube(t)
	s := Solid(m, Options{})

	require.Len(t, s.Triangles, len(m.Faces))
	assert.Equal(t, defaultSolidName, s.Name)
	for i, tri := range s.Triangles {
		n := m.Normal(i)
		assert.InDelta(t, n.X, float64(tri.Normal[0]), 1e-6)
		assert.InDelta(t, n.Y, float64(tri.Normal[1]), 1e-6)
		assert.InDelta(t, n.Z, float64(tri.Normal[2]), 1e-6)
	}
}
