package platform

import (
	"context"
	"fmt"
	"time"

	"github.com/liftbot/basecad/internal/config"
	"github.com/liftbot/basecad/internal/solid"
)

// Stage is one step of the build.
type Stage struct {
	Name     string
	Requires []string
	Apply    func(solid.Solid) (solid.Solid, error)
}

// StageFunc is the shape of every stage function after the base plate.
type StageFunc func(solid.Solid, config.Dimensions) (solid.Solid, error)

// Observer is told how each stage went. err is nil on success.
type Observer func(stage string, elapsed time.Duration, err error)

// Pipeline returns the build stages for d in order.
func Pipeline(d config.Dimensions) []Stage {
	stages := []Stage{{
		Name: StageBasePlate,
		Apply: func(solid.Solid) (solid.Solid, error) {
			return CreateBasePlate(d)
		},
	}}
	for _, step := range []struct {
		name string
		fn   StageFunc
	}{
		{StageWalls, CreateWalls},
		{StageBattery, CreateBatteryCompartment},
		{StageWheelCutouts, CreateWheelCutouts},
		{StageCasterMounts, CreateCasterMounts},
		{StageLiftRailMount, CreateLiftRailMount},
		{StageMountingHoles, CreateMountingHoles},
		{StageExtraHoles, CreateExtraHoles},
		{StageFillet, CreateFillet},
	} {
		if step.name == StageExtraHoles && len(d.ExtraHoles) == 0 {
			continue
		}
		fn := step.fn
		stages = append(stages, Stage{
			Name:     step.name,
			Requires: Requires(step.name),
			Apply: func(s solid.Solid) (solid.Solid, error) {
				return fn(s, d)
			},
		})
	}
	return stages
}

// Run applies stages in order, starting from no model. Prerequisites are
// checked before each stage runs. On failure the partial solid is discarded.
func Run(ctx context.Context, stages []Stage, observe Observer) (solid.Solid, error) {
	var s solid.Solid
	for _, st := range stages {
		if err := ctx.Err(); err != nil {
			return solid.Solid{}, err
		}
		for _, need := range st.Requires {
			if !s.HasStage(need) {
				return solid.Solid{}, fmt.Errorf("%w: %s needs %s", ErrStageOrder, st.Name, need)
			}
		}

		start := time.Now()
		next, err := st.Apply(s)
		if observe != nil {
			observe(st.Name, time.Since(start), err)
		}
		if err != nil {
			return solid.Solid{}, fmt.Errorf("stage %s: %w", st.Name, err)
		}
		s = next
	}
	return s, nil
}
