// Package catalog keeps the history of platform builds and their exports.
package catalog

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/glebarez/sqlite"
	"github.com/liftbot/basecad/internal/config"
	"github.com/liftbot/basecad/internal/platform"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrNotConnected is returned by operations called before Connect succeeded.
var ErrNotConnected = errors.New("catalog not connected")

const memoryDSN = "file::memory:?cache=shared"

// Manager handles the catalog database connection.
type Manager struct {
	DB              *gorm.DB
	SqlDB           *sql.DB
	IsValid         bool
	ShouldSaveLocal bool
	Config          config.CatalogConfig
	Logger          zerolog.Logger
}

// NewManager creates a new catalog manager.
func NewManager(log zerolog.Logger, cfg config.CatalogConfig) *Manager {
	return &Manager{
		Config: cfg,
		Logger: log,
	}
}

// Connect opens the configured database. A postgres catalog that cannot be
// reached falls back to sqlite at Config.Path.
func (m *Manager) Connect() error {
	var err error

	if m.Config.Type == "postgres" {
		m.DB, err = m.GetPostgresDB()
		if err == nil {
			m.SqlDB, err = m.DB.DB()
		}
		if err == nil {
			err = m.SqlDB.Ping()
		}
		if err != nil {
			m.Logger.Error().Err(err).Msg("Failed to connect to Postgres DB, trying SQLite")
			m.dropConnection()
			m.ShouldSaveLocal = true
		} else {
			m.SqlDB.SetMaxOpenConns(10)
		}
	} else {
		m.ShouldSaveLocal = true
	}

	if m.ShouldSaveLocal {
		m.DB, err = m.GetSqliteDB(m.Config.Path)
		if err != nil || m.DB == nil {
			m.IsValid = false
			return fmt.Errorf("failed to get local SQLite DB: %w", err)
		}
		m.SqlDB, err = m.DB.DB()
		if err != nil {
			return fmt.Errorf("failed to access sql interface: %w", err)
		}
		if err = m.SqlDB.Ping(); err != nil {
			m.IsValid = false
			return fmt.Errorf("failed to validate SQLite connection: %w", err)
		}
	}

	m.Logger.Info().Str("dialect", m.DB.Dialector.Name()).Msg("Connected to catalog")
	m.IsValid = true
	return nil
}

// dropConnection closes a half-open handle before it is replaced. gorm hands
// back its pool even when the initial ping fails.
func (m *Manager) dropConnection() {
	if m.SqlDB == nil && m.DB != nil {
		m.SqlDB, _ = m.DB.DB()
	}
	if m.SqlDB != nil {
		if err := m.SqlDB.Close(); err != nil {
			m.Logger.Warn().Err(err).Msg("Failed to close Postgres handle")
		}
	}
	m.DB, m.SqlDB = nil, nil
}

// GetPostgresDB returns a connection to the Postgres database.
func (m *Manager) GetPostgresDB() (*gorm.DB, error) {
	dsn := fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=disable`,
		config.GetString("db.host"),
		config.GetString("db.port"),
		config.GetString("db.username"),
		config.GetString("db.password"),
		config.GetString("db.database"),
	)

	m.Logger.Debug().Str("host", config.GetString("db.host")).Msg("Connecting to Postgres DB")

	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
}

// GetSqliteDB returns a connection to a SQLite database.
// If path is empty, uses an in-memory database.
func (m *Manager) GetSqliteDB(path string) (*gorm.DB, error) {
	dsn := path
	if path == "" {
		dsn = memoryDSN
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		PrepareStmt: true,
		Logger:      logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		m.IsValid = false
		return nil, err
	}
	if path == "" {
		m.Logger.Info().Msg("Using local SQLite DB in memory")
	} else {
		m.Logger.Info().Str("path", path).Msg("Using local SQLite DB")
	}

	pragmas := []string{
		"PRAGMA user_version = 1;",
		"PRAGMA journal_mode = WAL;",
		"PRAGMA foreign_keys = ON;",
		"PRAGMA temp_store = MEMORY;",
	}
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("error setting PRAGMA: %w", err)
		}
	}

	return db, nil
}

// Setup migrates the catalog tables.
func (m *Manager) Setup() error {
	if m.DB == nil {
		return ErrNotConnected
	}

	m.Logger.Info().Msg("Migrating schema")
	if err := m.DB.AutoMigrate(Models...); err != nil {
		m.IsValid = false
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	m.Logger.Info().Msg("Catalog setup complete")
	return nil
}

// RecordBuild stores a report together with the dimensions it was built
// from and returns the new build ID.
func (m *Manager) RecordBuild(r *platform.Report, d config.Dimensions) (uint, error) {
	if !m.IsValid {
		return 0, ErrNotConnected
	}

	dims, err := json.Marshal(d)
	if err != nil {
		return 0, fmt.Errorf("failed to encode dimensions: %w", err)
	}

	b := Build{
		StartedAt:  r.Started,
		DurationMs: float64(r.Duration.Microseconds()) / 1000,
		Status:     "ok",
		SizeX:      r.Size.X,
		SizeY:      r.Size.Y,
		SizeZ:      r.Size.Z,
		Features:   r.Features,
		Triangles:  r.Triangles,
		Dimensions: dims,
	}
	if r.Err != nil {
		b.Status = "failed"
		b.Error = r.Err.Error()
	}
	for i, st := range r.Stages {
		b.Stages = append(b.Stages, StageRun{
			Seq:        i,
			Name:       st.Name,
			DurationMs: float64(st.Duration.Microseconds()) / 1000,
			Error:      st.Err,
		})
	}

	if err := m.DB.Create(&b).Error; err != nil {
		return 0, fmt.Errorf("failed to record build: %w", err)
	}
	m.Logger.Debug().Uint("build", b.ID).Str("status", b.Status).Msg("Recorded build")
	return b.ID, nil
}

// RecordExport stores an exported file against a build. It also updates the
// build's triangle count, which is only known once the mesh exists.
func (m *Manager) RecordExport(buildID uint, path string, triangles int) error {
	if !m.IsValid {
		return ErrNotConnected
	}

	e := Export{
		BuildID:   buildID,
		Path:      path,
		Triangles: triangles,
	}
	if fi, err := os.Stat(path); err == nil {
		e.SizeBytes = fi.Size()
	}

	return m.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&Build{}).Where("id = ?", buildID).Update("triangles", triangles).Error; err != nil {
			return fmt.Errorf("failed to update build %d: %w", buildID, err)
		}
		if err := tx.Create(&e).Error; err != nil {
			return fmt.Errorf("failed to record export: %w", err)
		}
		return nil
	})
}

// ListBuilds returns the most recent builds first, with their stages and
// exports loaded. A non-positive limit returns every build.
func (m *Manager) ListBuilds(limit int) ([]Build, error) {
	if !m.IsValid {
		return nil, ErrNotConnected
	}

	q := m.DB.
		Preload("Stages", func(db *gorm.DB) *gorm.DB { return db.Order("seq") }).
		Preload("Exports").
		Order("id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var builds []Build
	if err := q.Find(&builds).Error; err != nil {
		return nil, fmt.Errorf("failed to list builds: %w", err)
	}
	return builds, nil
}

// Close releases the database connection.
func (m *Manager) Close() error {
	if m.SqlDB == nil {
		return nil
	}
	m.IsValid = false
	return m.SqlDB.Close()
}
