package chain

import (
	"fmt"

	"xray-mike/internal/models"
	"xray-mike/internal/raster"
)

// ProcessingStep is one optional post-recovery stage.
type ProcessingStep interface {
	Apply(input *raster.Field, params models.Params) (*raster.Field, error)
	Name() string
	ShouldExecute(params models.Params) bool
}

// ProcessingChain runs its steps in order. The input Field stays owned by the
// caller; every intermediate is closed once the next step has consumed it.
type ProcessingChain struct {
	steps []ProcessingStep
}

func NewProcessingChain(steps ...ProcessingStep) *ProcessingChain {
	return &ProcessingChain{
		steps: steps,
	}
}

// Execute returns input itself when no step runs; callers compare the result
// with input before closing either.
func (pc *ProcessingChain) Execute(input *raster.Field, params models.Params) (*raster.Field, error) {
	current := input

	for _, step := range pc.steps {
		if !step.ShouldExecute(params) {
			continue
		}

		result, err := step.Apply(current, params)
		if err == nil {
			err = result.CheckFinite()
			if err != nil {
				result.Close()
			}
		}

		if current != input {
			current.Close()
		}

		if err != nil {
			return nil, fmt.Errorf("step %s failed: %w", step.Name(), err)
		}

		current = result
	}

	return current, nil
}

func (pc *ProcessingChain) AddStep(step ProcessingStep) {
	pc.steps = append(pc.steps, step)
}

func (pc *ProcessingChain) StepCount() int {
	return len(pc.steps)
}

// ActiveSteps names the steps that would run for params.
func (pc *ProcessingChain) ActiveSteps(params models.Params) []string {
	names := make([]string, 0, len(pc.steps))
	for _, step := range pc.steps {
		if step.ShouldExecute(params) {
			names = append(names, step.Name())
		}
	}
	return names
}

func (pc *ProcessingChain) GetStepNames() []string {
	names := make([]string, len(pc.steps))
	for i, step := range pc.steps {
		names[i] = step.Name()
	}
	return names
}
