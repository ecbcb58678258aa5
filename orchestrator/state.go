package orchestrator

import (
	"fmt"

	"cluster-dashboard-go/models"
)

// Bounds and default for the cluster count k.
const (
	// MinK is the smallest k a caller may choose.
	MinK = 2

	// MaxK is the largest k a caller may choose.
	MaxK = 10

	// DefaultK is used until the caller or the official run sets k.
	DefaultK = 3
)

// ViewState is what the dashboard is currently looking at. It is a value:
// every change goes through Reduce and produces a new ViewState.
type ViewState struct {
	Mode        models.Mode `json:"mode"`
	K           int         `json:"k"`
	KOverridden bool        `json:"kOverridden"` // caller chose k, so the official run's k is not adopted
	XFeature    string      `json:"xFeature"`
	YFeature    string      `json:"yFeature"`
}

// DefaultViewState opens on the official run.
func DefaultViewState() ViewState {
	return ViewState{
		Mode:     models.ModeOfficial,
		K:        DefaultK,
		XFeature: models.FeatureGWA,
		YFeature: models.FeatureIncome,
	}
}

// Action is a requested change to the ViewState.
type Action interface {
	reduce(ViewState) (Transition, error)
}

// SetMode switches the analysis mode.
type SetMode struct {
	Mode models.Mode `json:"mode"`
}

// SetK chooses the cluster count.
type SetK struct {
	K int `json:"k"`
}

// SetFeatures chooses the pairwise feature pair.
type SetFeatures struct {
	X string `json:"x"`
	Y string `json:"y"`
}

// adoptK records the k reported by the official run.
type adoptK struct {
	K int
}

// Transition is the outcome of reducing an action.
type Transition struct {
	State   ViewState
	Fetch   bool        // the new state needs a run of State.Mode
	Discard models.Mode // mode whose dataset must be dropped, or ""
}

// Reduce applies action to state. Invalid actions return a validation
// RunError and leave the state untouched.
func Reduce(state ViewState, action Action) (Transition, error) {
	t, err := action.reduce(state)
	if err != nil {
		return Transition{State: state}, &RunError{Mode: state.Mode, Kind: KindValidation, Err: err}
	}
	return t, nil
}

func (a SetMode) reduce(s ViewState) (Transition, error) {
	if !a.Mode.Valid() {
		return Transition{}, fmt.Errorf("unknown mode %q", a.Mode)
	}
	if a.Mode == s.Mode {
		return Transition{State: s}, nil
	}
	prev := s.Mode
	s.Mode = a.Mode
	return Transition{State: s, Fetch: true, Discard: prev}, nil
}

func (a SetK) reduce(s ViewState) (Transition, error) {
	if err := validateK(a.K); err != nil {
		return Transition{}, err
	}
	changed := a.K != s.K
	s.K = a.K
	s.KOverridden = true
	return Transition{State: s, Fetch: changed && s.Mode == models.ModePairwise}, nil
}

func (a SetFeatures) reduce(s ViewState) (Transition, error) {
	if err := validateFeatures(a.X, a.Y); err != nil {
		return Transition{}, err
	}
	changed := a.X != s.XFeature || a.Y != s.YFeature
	s.XFeature, s.YFeature = a.X, a.Y
	return Transition{State: s, Fetch: changed && s.Mode == models.ModePairwise}, nil
}

func (a adoptK) reduce(s ViewState) (Transition, error) {
	if s.KOverridden || a.K <= 0 {
		return Transition{State: s}, nil
	}
	s.K = a.K
	return Transition{State: s}, nil
}

func validateK(k int) error {
	if k < MinK || k > MaxK {
		return fmt.Errorf("k must be between %d and %d, got %d", MinK, MaxK, k)
	}
	return nil
}

func validateFeatures(x, y string) error {
	if !models.ValidFeature(x) {
		return fmt.Errorf("unknown feature %q", x)
	}
	if !models.ValidFeature(y) {
		return fmt.Errorf("unknown feature %q", y)
	}
	if x == y {
		return fmt.Errorf("features must differ, got %q twice", x)
	}
	return nil
}
