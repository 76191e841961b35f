package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(body), 0644))
	return dir
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{
		"logLevel": "debug",
		"platform": { "length": 500, "width": 320 },
		"wallThickness": 5
	}`)

	err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "debug", viper.GetString("logLevel"))

	d, err := GetDimensions()
	require.NoError(t, err)
	assert.Equal(t, 500.0, d.Length)
	assert.Equal(t, 320.0, d.Width)
	assert.Equal(t, 5.0, d.WallThickness)
	// untouched keys keep their defaults
	assert.Equal(t, 100.0, d.Height)
	assert.Equal(t, 5.0, d.BaseThickness)
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{}`)))

	d, err := GetDimensions()
	require.NoError(t, err)
	assert.Equal(t, Default(), withoutExtraHoles(d))

	assert.Equal(t, "info", viper.GetString("logLevel"))
	assert.Equal(t, "./logs", viper.GetString("logsDir"))
	assert.Equal(t, "./output", viper.GetString("output.dir"))
	assert.Equal(t, "sqlite", viper.GetString("catalog.type"))
	assert.Equal(t, false, viper.GetBool("influx.enabled"))
	assert.Equal(t, false, viper.GetBool("graylog.enabled"))
	assert.Equal(t, 1.5, viper.GetFloat64("mesh.cellSize"))
}

func TestLoad_MissingFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load("/nonexistent/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")

	// defaults are registered before the read so callers can continue
	d, err := GetDimensions()
	require.NoError(t, err)
	assert.Equal(t, 457.2, d.Length)
}

func TestGetDimensions_MissingKey(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Reset()

	_, err := GetDimensions()
	require.ErrorIs(t, err, ErrMissingKey)
	assert.Contains(t, err.Error(), "platform.length")
}

func TestGetDimensions_ExtraHoles(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{"extraHoles": ["10,20", "-30,40"]}`)))

	d, err := GetDimensions()
	require.NoError(t, err)
	assert.Equal(t, []string{"10,20", "-30,40"}, d.ExtraHoles)
}

func TestGetDimensions_FilletEdges(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{}`)))
	d, err := GetDimensions()
	require.NoError(t, err)
	assert.Equal(t, "top-outer", d.FilletEdges)

	viper.Reset()
	require.NoError(t, Load(writeConfig(t, `{"filletEdges": "top-all"}`)))
	d, err = GetDimensions()
	require.NoError(t, err)
	assert.Equal(t, "top-all", d.FilletEdges)
}

func TestGetString(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testKey", "testValue")
	assert.Equal(t, "testValue", GetString("testKey"))
}

func TestGetInt(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testInt", 42)
	assert.Equal(t, 42, GetInt("testInt"))
}

func TestGetBool(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testBool", true)
	assert.Equal(t, true, GetBool("testBool"))
}

func TestGetOutputConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{
		"output": { "dir": "/tmp/stl", "name": "chassis", "ascii": true, "compress": true }
	}`)))

	oc := GetOutputConfig()
	assert.Equal(t, "/tmp/stl", oc.Dir)
	assert.Equal(t, "chassis", oc.Name)
	assert.True(t, oc.ASCII)
	assert.True(t, oc.Compress)
}

func TestGetCatalogConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	setDefaults()

	cc := GetCatalogConfig()
	assert.True(t, cc.Enabled)
	assert.Equal(t, "sqlite", cc.Type)
	assert.Equal(t, "./basecad.db", cc.Path)
}

func TestGetInfluxConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	setDefaults()

	ic := GetInfluxConfig()
	assert.False(t, ic.Enabled)
	assert.Equal(t, "http://localhost:8086", ic.URL)
	assert.Equal(t, "basecad_builds", ic.Bucket)
}

func TestGetOTelConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	setDefaults()

	cfg := GetOTelConfig()
	assert.Equal(t, false, cfg.Enabled)
	assert.Equal(t, "basecad", cfg.ServiceName)
	assert.Equal(t, 5*time.Second, cfg.BatchTimeout)
	assert.Equal(t, "", cfg.Endpoint)
	assert.Equal(t, true, cfg.Insecure)
}

func TestGetOTelConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{
		"otel": {
			"enabled": true,
			"serviceName": "cad-ci",
			"batchTimeout": "30s",
			"endpoint": "localhost:4317",
			"insecure": false
		}
	}`)))

	oc := GetOTelConfig()
	assert.Equal(t, true, oc.Enabled)
	assert.Equal(t, "cad-ci", oc.ServiceName)
	assert.Equal(t, 30*time.Second, oc.BatchTimeout)
	assert.Equal(t, "localhost:4317", oc.Endpoint)
	assert.Equal(t, false, oc.Insecure)
}

func TestGetViewerConfig(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{"viewer": {"command": "f3d", "args": ["--up=+Z"]}}`)))

	vc := GetViewerConfig()
	assert.Equal(t, "f3d", vc.Command)
	assert.Equal(t, []string{"--up=+Z"}, vc.Args)
}

func withoutExtraHoles(d Dimensions) Dimensions {
	d.ExtraHoles = nil
	return d
}
