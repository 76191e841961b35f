package platform

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/liftbot/basecad/internal/config"
	"github.com/liftbot/basecad/internal/solid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stageNames(stages []Stage) []string {
	names := make([]string, len(stages))
	for i, s := range stages {
		names[i] = s.Name
	}
	return names
}

func TestPipeline_Order(t *testing.T) {
	d := config.Default()
	assert.Equal(t, []string{
		StageBasePlate,
		StageWalls,
		StageBattery,
		StageWheelCutouts,
		StageCasterMounts,
		StageLiftRailMount,
		StageMountingHoles,
		StageFillet,
	}, stageNames(Pipeline(d)))

	d.ExtraHoles = []string{"0,0"}
	assert.Contains(t, stageNames(Pipeline(d)), StageExtraHoles)
}

func TestPipeline_DeclaresRequirements(t *testing.T) {
	for _, st := range Pipeline(config.Default()) {
		assert.Equal(t, Requires(st.Name), st.Requires, st.Name)
	}
	assert.Equal(t, []string{StageWalls}, Requires(StageWheelCutouts))
	assert.Empty(t, Requires(StageBasePlate))
}

func TestRun(t *testing.T) {
	var seen []string
	s, err := Run(context.Background(), Pipeline(config.Default()), func(stage string, elapsed time.Duration, err error) {
		assert.NoError(t, err)
		assert.GreaterOrEqual(t, elapsed, time.Duration(0))
		seen = append(seen, stage)
	})
	require.NoError(t, err)

	assert.Equal(t, stageNames(Pipeline(config.Default())), seen)
	assert.Equal(t, seen, s.Stages())
}

func TestRun_StageOrder(t *testing.T) {
	stages := Pipeline(config.Default())
	// drop walls so the wheel cutouts have nothing to cut
	stages = append(stages[:1], stages[2:]...)

	_, err := Run(context.Background(), stages, nil)
	require.ErrorIs(t, err, ErrStageOrder)
	assert.Contains(t, err.Error(), StageWalls)
}

func TestRun_FailureDiscardsModel(t *testing.T) {
	boom := errors.New("boom")
	var failed string
	stages := []Stage{
		Pipeline(config.Default())[0],
		{Name: "broken", Apply: func(solid.Solid) (solid.Solid, error) { return solid.Solid{}, boom }},
	}

	s, err := Run(context.Background(), stages, func(stage string, _ time.Duration, err error) {
		if err != nil {
			failed = stage
		}
	})
	require.ErrorIs(t, err, boom)
	assert.True(t, s.IsZero())
	assert.Equal(t, "broken", failed)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, Pipeline(config.Default()), nil)
	require.ErrorIs(t, err, context.Canceled)
}
