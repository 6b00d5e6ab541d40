// Package bakedb records terrain bake results in SQLite so runs over the same
// heightmap and settings can be compared.
package bakedb

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Faultbox/midgard-terrain/internal/config"
	"github.com/Faultbox/midgard-terrain/internal/engine/scene"
	"github.com/Faultbox/midgard-terrain/internal/logger"
)

// Run is one bake of a heightmap seen from one camera.
type Run struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time

	Heightmap          string `gorm:"index:idx_run_key"`
	PatchesX, PatchesY int
	MaxTessellation    int `gorm:"index:idx_run_key"`
	MinTessellation    int `gorm:"index:idx_run_key"`
	ComponentSize      int
	Morphing           bool

	CameraX, CameraY, CameraZ float32

	Components     int
	Packed         int
	Vertices       int
	Triangles      int
	Batches        int
	Masks          int
	Decals         int
	DecalTriangles int

	Sections []Section `gorm:"constraint:OnDelete:CASCADE"`
}

// Section is the packed state of one component in a run.
type Section struct {
	ID                 uint `gorm:"primaryKey"`
	RunID              uint `gorm:"index"`
	SectionX, SectionY int
	Tessellation       int
	Vertices           int
	Triangles          int
	Batches            int
}

// Store is a bake database.
type Store struct {
	DB *gorm.DB
}

// Open opens (or creates) the database at path and migrates its tables.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open bake database: %w", err)
	}
	if err := db.AutoMigrate(&Run{}, &Section{}); err != nil {
		return nil, fmt.Errorf("migrate bake database: %w", err)
	}

	logger.Debug("bake database opened", zap.String("path", path))
	return &Store{DB: db}, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// NewRun captures the current state of sc.
func NewRun(heightmap string, cfg config.TerrainConfig, sc *scene.Scene, camera mgl32.Vec3) *Run {
	hf := sc.Terrain.HeightField()
	sum := sc.Summarize()
	run := &Run{
		Heightmap:       heightmap,
		PatchesX:        hf.PatchesX,
		PatchesY:        hf.PatchesY,
		MaxTessellation: cfg.MaxTessellationLevel,
		MinTessellation: cfg.MinTessellationLevel,
		ComponentSize:   cfg.ComponentSize,
		Morphing:        cfg.MorphingEnabled,
		CameraX:         camera.X(),
		CameraY:         camera.Y(),
		CameraZ:         camera.Z(),
		Components:      sum.Components,
		Packed:          sum.Packed,
		Vertices:        sum.Vertices,
		Triangles:       sum.Triangles,
		Batches:         sum.Batches,
		Masks:           len(sum.Masks),
		Decals:          sum.Decals,
		DecalTriangles:  sum.DecalTriangles,
	}
	for _, st := range sc.Terrain.Stats() {
		run.Sections = append(run.Sections, Section{
			SectionX:     st.SectionX,
			SectionY:     st.SectionY,
			Tessellation: st.Tessellation,
			Vertices:     st.Vertices,
			Triangles:    st.Triangles,
			Batches:      st.Batches,
		})
	}
	return run
}

// Record inserts run and its sections.
func (s *Store) Record(run *Run) error {
	if err := s.DB.Create(run).Error; err != nil {
		return fmt.Errorf("record bake run: %w", err)
	}
	return nil
}

// Previous returns the latest run recorded before run with the same
// heightmap and tessellation range, or nil.
func (s *Store) Previous(run *Run) (*Run, error) {
	var prev Run
	q := s.DB.Where("heightmap = ? AND max_tessellation = ? AND min_tessellation = ?",
		run.Heightmap, run.MaxTessellation, run.MinTessellation)
	if run.ID != 0 {
		q = q.Where("id < ?", run.ID)
	}
	err := q.Order("id DESC").Limit(1).Find(&prev).Error
	if err != nil {
		return nil, err
	}
	if prev.ID == 0 {
		return nil, nil
	}
	return &prev, nil
}

// Latest returns up to n runs of heightmap, newest first, with their sections.
func (s *Store) Latest(heightmap string, n int) ([]Run, error) {
	var runs []Run
	err := s.DB.Preload("Sections").
		Where("heightmap = ?", heightmap).
		Order("id DESC").
		Limit(n).
		Find(&runs).Error
	return runs, err
}
