package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cluster-dashboard-go/clustering"
	"cluster-dashboard-go/db"
	"cluster-dashboard-go/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service is the external clustering service.
type Service interface {
	Official(ctx context.Context) (*clustering.OfficialResponse, error)
	Playground(ctx context.Context, k int) (*clustering.PlaygroundResponse, error)
	Pairwise(ctx context.Context, x, y string, k int) (*clustering.PairwiseResponse, error)
}

// SlotStore holds the current result of each mode and fences stale runs.
type SlotStore interface {
	NextSeq(ctx context.Context, mode models.Mode) (uint64, error)
	Commit(ctx context.Context, mode models.Mode, slot db.Slot) (bool, error)
	Load(ctx context.Context, mode models.Mode) (db.Slot, bool, error)
	Discard(ctx context.Context, mode models.Mode) error
}

// RunResult reports what a run produced and whether it became current.
type RunResult struct {
	Seq     uint64
	Dataset *models.ClusterDataset
	Applied bool // false when a newer run was issued before this one finished
}

// Orchestrator runs the three analysis modes and keeps the current ViewState.
type Orchestrator struct {
	svc    Service
	store  SlotStore
	logger *zap.Logger
	now    func() time.Time

	mu    sync.Mutex
	state ViewState
}

// New creates an Orchestrator starting from DefaultViewState.
func New(svc Service, store SlotStore, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		svc:    svc,
		store:  store,
		logger: logger,
		now:    time.Now,
		state:  DefaultViewState(),
	}
}

// State returns the current ViewState.
func (o *Orchestrator) State() ViewState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Dispatch reduces actions in order against the current state, drops the
// dataset of every mode being left, and runs the resulting mode once if any
// reducer asked for it. The returned RunResult is nil when nothing was fetched.
// If any action is invalid the state is left unchanged.
func (o *Orchestrator) Dispatch(ctx context.Context, actions ...Action) (ViewState, *RunResult, error) {
	o.mu.Lock()
	state := o.state
	fetch := false
	var discard []models.Mode
	for _, action := range actions {
		t, err := Reduce(state, action)
		if err != nil {
			current := o.state
			o.mu.Unlock()
			return current, nil, err
		}
		state = t.State
		fetch = fetch || t.Fetch
		if t.Discard != "" {
			discard = append(discard, t.Discard)
		}
	}
	o.state = state
	o.mu.Unlock()

	for _, mode := range discard {
		if err := o.store.Discard(ctx, mode); err != nil {
			o.logger.Warn("Failed to discard dataset", zap.String("mode", string(mode)), zap.Error(err))
		}
	}
	if !fetch {
		return state, nil, nil
	}
	res, err := o.Run(ctx, state)
	return o.State(), res, err
}

// Run fetches state.Mode from the service and commits the reshaped dataset
// unless a newer run of the same mode was issued meanwhile. Playground and
// pairwise clear their slot when the run starts; official keeps showing the
// previous dataset until the new one arrives.
func (o *Orchestrator) Run(ctx context.Context, state ViewState) (*RunResult, error) {
	mode := state.Mode
	if err := validateRun(state); err != nil {
		return nil, &RunError{Mode: mode, Kind: KindValidation, Err: err}
	}

	seq, err := o.store.NextSeq(ctx, mode)
	if err != nil {
		return nil, &RunError{Mode: mode, Kind: KindTransport, Err: err}
	}
	log := o.logger.With(zap.String("mode", string(mode)), zap.Uint64("seq", seq))

	var previous *models.ClusterDataset
	if mode == models.ModeOfficial {
		if slot, ok, err := o.store.Load(ctx, mode); err == nil && ok {
			previous = slot.Dataset
		}
	} else if _, err := o.store.Commit(ctx, mode, db.Slot{Seq: seq, Pending: true, UpdatedAt: o.now()}); err != nil {
		log.Warn("Failed to clear slot", zap.Error(err))
	}

	log.Info("Starting clustering run", zap.Int("k", state.K), zap.String("x", state.XFeature), zap.String("y", state.YFeature))
	ds, fetchErr := o.fetch(ctx, state)
	if fetchErr != nil {
		runErr := wrapFetchError(mode, fetchErr)
		log.Warn("Clustering run failed", zap.String("kind", string(runErr.Kind)), zap.Error(fetchErr))
		slot := db.Slot{Seq: seq, Dataset: previous, Error: runErr.Message(), ErrorKind: string(runErr.Kind), UpdatedAt: o.now()}
		if _, err := o.store.Commit(ctx, mode, slot); err != nil {
			log.Warn("Failed to record run error", zap.Error(err))
		}
		return nil, runErr
	}

	ds.RunID = uuid.NewString()
	applied, err := o.store.Commit(ctx, mode, db.Slot{Seq: seq, Dataset: ds, UpdatedAt: o.now()})
	if err != nil {
		return nil, &RunError{Mode: mode, Kind: KindTransport, Err: err}
	}
	if !applied {
		log.Info("Discarding superseded clustering result", zap.String("run", ds.RunID))
		return &RunResult{Seq: seq, Dataset: ds}, nil
	}

	if mode == models.ModeOfficial {
		o.mu.Lock()
		if o.state.Mode == models.ModeOfficial {
			t, _ := Reduce(o.state, adoptK{K: ds.K})
			o.state = t.State
		}
		o.mu.Unlock()
	}

	log.Info("Clustering run applied",
		zap.String("run", ds.RunID),
		zap.Int("clusters", len(ds.Clusters)),
		zap.Int("points", len(ds.Points)))
	return &RunResult{Seq: seq, Dataset: ds, Applied: true}, nil
}

// Refresh runs the mode of the current state.
func (o *Orchestrator) Refresh(ctx context.Context) (*RunResult, error) {
	return o.Run(ctx, o.State())
}

// Current returns the slot of mode.
func (o *Orchestrator) Current(ctx context.Context, mode models.Mode) (db.Slot, bool, error) {
	slot, ok, err := o.store.Load(ctx, mode)
	if err != nil {
		return db.Slot{}, false, fmt.Errorf("failed to load %s dataset: %w", mode, err)
	}
	return slot, ok, nil
}

func (o *Orchestrator) fetch(ctx context.Context, state ViewState) (*models.ClusterDataset, error) {
	switch state.Mode {
	case models.ModeOfficial:
		resp, err := o.svc.Official(ctx)
		if err != nil {
			return nil, err
		}
		return fromOfficial(resp)
	case models.ModePlayground:
		resp, err := o.svc.Playground(ctx, state.K)
		if err != nil {
			return nil, err
		}
		return fromPlayground(resp, state.K), nil
	case models.ModePairwise:
		resp, err := o.svc.Pairwise(ctx, state.XFeature, state.YFeature, state.K)
		if err != nil {
			return nil, err
		}
		return fromPairwise(resp, state.XFeature, state.YFeature, state.K), nil
	}
	return nil, fmt.Errorf("unknown mode %q", state.Mode)
}

func validateRun(state ViewState) error {
	switch state.Mode {
	case models.ModeOfficial:
		return nil
	case models.ModePlayground:
		return validateK(state.K)
	case models.ModePairwise:
		if err := validateK(state.K); err != nil {
			return err
		}
		return validateFeatures(state.XFeature, state.YFeature)
	}
	return fmt.Errorf("unknown mode %q", state.Mode)
}
