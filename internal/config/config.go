package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// ConfigFileName is the JSON file Load looks for in the config directory.
const ConfigFileName = "basecad.cfg.json"

var (
	// ErrMissingKey is returned when a required dimension key is not set.
	ErrMissingKey = errors.New("missing configuration key")
	// ErrInvalidConfig is returned when a dimension is out of range.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// OutputConfig holds STL export settings
type OutputConfig struct {
	Dir      string `json:"dir" mapstructure:"dir"`
	Name     string `json:"name" mapstructure:"name"`
	ASCII    bool   `json:"ascii" mapstructure:"ascii"`
	Compress bool   `json:"compress" mapstructure:"compress"`
}

// MeshConfig holds surface extraction settings
type MeshConfig struct {
	CellSize float64 `json:"cellSize" mapstructure:"cellSize"`
}

// CatalogConfig holds build history storage settings
type CatalogConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Type    string `json:"type" mapstructure:"type"` // sqlite or postgres
	Path    string `json:"path" mapstructure:"path"` // sqlite file, empty for in-memory
}

// InfluxConfig holds build metrics sink settings
type InfluxConfig struct {
	Enabled    bool   `json:"enabled" mapstructure:"enabled"`
	URL        string `json:"url" mapstructure:"url"`
	Token      string `json:"token" mapstructure:"token"`
	Org        string `json:"org" mapstructure:"org"`
	Bucket     string `json:"bucket" mapstructure:"bucket"`
	BackupPath string `json:"backupPath" mapstructure:"backupPath"`
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// ViewerConfig holds the external display program settings
type ViewerConfig struct {
	Command string   `json:"command" mapstructure:"command"`
	Args    []string `json:"args" mapstructure:"args"`
}

// setDefaults registers every key with viper. Dimension defaults come from
// Default so the compiled-in table stays the single source.
func setDefaults() {
	d := Default()

	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")

	viper.SetDefault("platform.length", d.Length)
	viper.SetDefault("platform.width", d.Width)
	viper.SetDefault("platform.height", d.Height)
	viper.SetDefault("wallThickness", d.WallThickness)
	viper.SetDefault("baseThickness", d.BaseThickness)
	viper.SetDefault("driveWheel.diameter", d.DriveWheel.Diameter)
	viper.SetDefault("driveWheel.width", d.DriveWheel.Width)
	viper.SetDefault("casterWheel.diameter", d.CasterWheel.Diameter)
	viper.SetDefault("casterWheel.width", d.CasterWheel.Width)
	viper.SetDefault("battery.length", d.Battery.Length)
	viper.SetDefault("battery.width", d.Battery.Width)
	viper.SetDefault("battery.height", d.Battery.Height)
	viper.SetDefault("battery.seated", d.BatterySeated)
	viper.SetDefault("liftRail.width", d.LiftRail.Width)
	viper.SetDefault("liftRail.height", d.LiftRail.Height)
	viper.SetDefault("liftPlatform.width", d.LiftPlatform.Width)
	viper.SetDefault("liftPlatform.length", d.LiftPlatform.Length)
	viper.SetDefault("maxLoadKg", d.MaxLoadKg)
	viper.SetDefault("filletRadius", d.FilletRadius)
	viper.SetDefault("filletEdges", d.FilletEdges)
	viper.SetDefault("holeDiameter", d.HoleDiameter)
	viper.SetDefault("tolerance", d.Tolerance)
	viper.SetDefault("mountingHoles.edgeOffset", d.MountingHoleOffset)
	viper.SetDefault("casterMount.inset", d.CasterMount.Inset)
	viper.SetDefault("casterMount.width", d.CasterMount.Width)
	viper.SetDefault("casterMount.length", d.CasterMount.Length)
	viper.SetDefault("casterMount.height", d.CasterMount.Height)
	viper.SetDefault("liftRailMount.length", d.LiftRailMount.Length)
	viper.SetDefault("liftRailMount.height", d.LiftRailMount.Height)
	viper.SetDefault("extraHoles", []string{})

	viper.SetDefault("output.dir", "./output")
	viper.SetDefault("output.name", "base_platform")
	viper.SetDefault("output.ascii", false)
	viper.SetDefault("output.compress", false)

	viper.SetDefault("mesh.cellSize", 1.5)

	viper.SetDefault("catalog.enabled", true)
	viper.SetDefault("catalog.type", "sqlite")
	viper.SetDefault("catalog.path", "./basecad.db")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "basecad")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.url", "http://localhost:8086")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "basecad")
	viper.SetDefault("influx.bucket", "basecad_builds")
	viper.SetDefault("influx.backupPath", "./logs/influx_backup.lp.gz")

	viper.SetDefault("metrics.textfile", "")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "basecad")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetDefault("viewer.command", "")
	viper.SetDefault("viewer.args", []string{})
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	setDefaults()

	viper.SetConfigName(ConfigFileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// GetDimensions returns the platform dimensions from viper.
// Every dimension key must resolve to a value.
func GetDimensions() (Dimensions, error) {
	for _, key := range RequiredKeys {
		if !viper.IsSet(key) {
			return Dimensions{}, fmt.Errorf("%w: %s", ErrMissingKey, key)
		}
	}

	return Dimensions{
		Length:        viper.GetFloat64("platform.length"),
		Width:         viper.GetFloat64("platform.width"),
		Height:        viper.GetFloat64("platform.height"),
		WallThickness: viper.GetFloat64("wallThickness"),
		BaseThickness: viper.GetFloat64("baseThickness"),
		DriveWheel: Wheel{
			Diameter: viper.GetFloat64("driveWheel.diameter"),
			Width:    viper.GetFloat64("driveWheel.width"),
		},
		CasterWheel: Wheel{
			Diameter: viper.GetFloat64("casterWheel.diameter"),
			Width:    viper.GetFloat64("casterWheel.width"),
		},
		Battery: Envelope{
			Length: viper.GetFloat64("battery.length"),
			Width:  viper.GetFloat64("battery.width"),
			Height: viper.GetFloat64("battery.height"),
		},
		BatterySeated: viper.GetBool("battery.seated"),
		LiftRail: Envelope{
			Width:  viper.GetFloat64("liftRail.width"),
			Height: viper.GetFloat64("liftRail.height"),
		},
		LiftPlatform: Envelope{
			Length: viper.GetFloat64("liftPlatform.length"),
			Width:  viper.GetFloat64("liftPlatform.width"),
		},
		MaxLoadKg:          viper.GetFloat64("maxLoadKg"),
		FilletRadius:       viper.GetFloat64("filletRadius"),
		FilletEdges:        viper.GetString("filletEdges"),
		HoleDiameter:       viper.GetFloat64("holeDiameter"),
		Tolerance:          viper.GetFloat64("tolerance"),
		MountingHoleOffset: viper.GetFloat64("mountingHoles.edgeOffset"),
		CasterMount: Mount{
			Inset:  viper.GetFloat64("casterMount.inset"),
			Width:  viper.GetFloat64("casterMount.width"),
			Length: viper.GetFloat64("casterMount.length"),
			Height: viper.GetFloat64("casterMount.height"),
		},
		LiftRailMount: Mount{
			Length: viper.GetFloat64("liftRailMount.length"),
			Height: viper.GetFloat64("liftRailMount.height"),
		},
		ExtraHoles: viper.GetStringSlice("extraHoles"),
	}, nil
}

// GetOutputConfig returns the export settings.
func GetOutputConfig() OutputConfig {
	return OutputConfig{
		Dir:      viper.GetString("output.dir"),
		Name:     viper.GetString("output.name"),
		ASCII:    viper.GetBool("output.ascii"),
		Compress: viper.GetBool("output.compress"),
	}
}

// GetMeshConfig returns the surface extraction settings.
func GetMeshConfig() MeshConfig {
	return MeshConfig{CellSize: viper.GetFloat64("mesh.cellSize")}
}

// GetCatalogConfig returns the build history settings.
func GetCatalogConfig() CatalogConfig {
	return CatalogConfig{
		Enabled: viper.GetBool("catalog.enabled"),
		Type:    viper.GetString("catalog.type"),
		Path:    viper.GetString("catalog.path"),
	}
}

// GetInfluxConfig returns the metrics sink settings.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:    viper.GetBool("influx.enabled"),
		URL:        viper.GetString("influx.url"),
		Token:      viper.GetString("influx.token"),
		Org:        viper.GetString("influx.org"),
		Bucket:     viper.GetString("influx.bucket"),
		BackupPath: viper.GetString("influx.backupPath"),
	}
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetViewerConfig returns the display program settings.
func GetViewerConfig() ViewerConfig {
	return ViewerConfig{
		Command: viper.GetString("viewer.command"),
		Args:    viper.GetStringSlice("viewer.args"),
	}
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}
