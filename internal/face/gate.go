package face

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrNoFaceDetected is returned by ExtractDescriptor when the detector
	// finds no face. Verify turns it into OutcomeNoFaceDetected.
	ErrNoFaceDetected = errors.New("no face detected")
	// ErrModelLoad wraps model asset load failures.
	ErrModelLoad = errors.New("load face models")
)

// State is the phase of one verification attempt.
type State string

const (
	StateIdle               State = "idle"
	StateModelsLoading      State = "models_loading"
	StateDetectingLive      State = "detecting_live"
	StateDetectingReference State = "detecting_reference"
	StateComparing          State = "comparing"
	StateDecided            State = "decided"
)

// Outcome is the terminal result of a verification attempt.
type Outcome string

const (
	OutcomeMatched        Outcome = "matched"
	OutcomeNotMatched     Outcome = "not_matched"
	OutcomeNoFaceDetected Outcome = "no_face_detected"
)

// Result of Verify. Distance is only meaningful when both faces were found.
type Result struct {
	Outcome   Outcome `json:"outcome"`
	Distance  float64 `json:"distance,omitempty"`
	Match     bool    `json:"match"`
	Threshold float64 `json:"threshold"`
}

// Retry reports whether the caller should prompt for another capture.
func (r Result) Retry() bool {
	return r.Outcome != OutcomeMatched
}

// Observer receives each state transition of an attempt.
type Observer func(State)

// Option configures a Gate.
type Option func(*Gate)

// WithAssets overrides the model location.
func WithAssets(a Assets) Option {
	return func(g *Gate) { g.assets = a }
}

// WithObserver registers a state observer.
func WithObserver(o Observer) Option {
	return func(g *Gate) { g.observer = o }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(g *Gate) { g.log = l }
}

// WithLoadHook is called once per model load attempt with its duration.
func WithLoadHook(h func(time.Duration, error)) Option {
	return func(g *Gate) { g.loadHook = h }
}

// Gate verifies a live capture against a reference image.
type Gate struct {
	engine   Engine
	assets   Assets
	opts     DetectorOptions
	latch    *Latch
	observer Observer
	loadHook func(time.Duration, error)
	log      *zap.Logger
}

// NewGate creates a gate over engine. Models load lazily on first use and
// are shared by every attempt for the gate's lifetime.
func NewGate(engine Engine, options ...Option) *Gate {
	g := &Gate{
		engine: engine,
		assets: DefaultAssets(""),
		opts:   DefaultDetectorOptions,
		log:    zap.NewNop(),
	}
	for _, o := range options {
		o(g)
	}
	g.latch = NewLatch(g.loadModels)
	return g
}

func (g *Gate) loadModels(ctx context.Context) error {
	start := time.Now()
	err := g.engine.LoadModels(ctx, g.assets)
	elapsed := time.Since(start)
	if g.loadHook != nil {
		g.loadHook(elapsed, err)
	}
	if err != nil {
		g.log.Error("face models failed to load",
			zap.String("path", g.assets.Path), zap.Duration("elapsed", elapsed), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrModelLoad, err)
	}
	g.log.Info("face models loaded",
		zap.String("path", g.assets.Path), zap.Strings("nets", g.assets.Nets), zap.Duration("elapsed", elapsed))
	return nil
}

// ModelsState reports the model latch state.
func (g *Gate) ModelsState() LatchState {
	return g.latch.State()
}

// EnsureModelsLoaded loads the models once; concurrent callers share the load.
func (g *Gate) EnsureModelsLoaded(ctx context.Context) error {
	return g.latch.Acquire(ctx)
}

// ExtractDescriptor returns the descriptor of the best face in img, or
// ErrNoFaceDetected.
func (g *Gate) ExtractDescriptor(ctx context.Context, img image.Image) (Descriptor, error) {
	if err := g.EnsureModelsLoaded(ctx); err != nil {
		return nil, err
	}
	det, err := g.engine.Detect(ctx, img, g.opts)
	if err != nil {
		return nil, fmt.Errorf("detect face: %w", err)
	}
	if !det.Found || len(det.Descriptor) == 0 {
		return nil, ErrNoFaceDetected
	}
	return det.Descriptor, nil
}

// Verify decodes both images and compares the live face to the reference.
// Decode, model and engine failures are returned as errors; a missing face
// or a distance at or above MatchThreshold are ordinary outcomes.
func (g *Gate) Verify(ctx context.Context, live, reference []byte) (Result, error) {
	liveImg, err := DecodeImage(live)
	if err != nil {
		return Result{}, fmt.Errorf("live image: %w", err)
	}
	refImg, err := DecodeImage(reference)
	if err != nil {
		return Result{}, fmt.Errorf("reference image: %w", err)
	}
	return g.VerifyImages(ctx, liveImg, refImg)
}

// VerifyImages is Verify for already decoded images.
func (g *Gate) VerifyImages(ctx context.Context, live, reference image.Image) (Result, error) {
	g.enter(StateIdle)
	if g.latch.State() != LatchReady {
		g.enter(StateModelsLoading)
	}
	if err := g.EnsureModelsLoaded(ctx); err != nil {
		return Result{}, err
	}

	g.enter(StateDetectingLive)
	liveDesc, liveErr := g.ExtractDescriptor(ctx, live)
	if liveErr != nil && !errors.Is(liveErr, ErrNoFaceDetected) {
		return Result{}, fmt.Errorf("live image: %w", liveErr)
	}

	g.enter(StateDetectingReference)
	refDesc, refErr := g.ExtractDescriptor(ctx, reference)
	if refErr != nil && !errors.Is(refErr, ErrNoFaceDetected) {
		return Result{}, fmt.Errorf("reference image: %w", refErr)
	}

	if liveErr != nil || refErr != nil {
		g.enter(StateDecided)
		return Result{Outcome: OutcomeNoFaceDetected, Threshold: MatchThreshold}, nil
	}

	g.enter(StateComparing)
	cmp, err := Compare(liveDesc, refDesc)
	if err != nil {
		return Result{}, err
	}
	g.enter(StateDecided)

	res := Result{Outcome: OutcomeNotMatched, Distance: cmp.Distance, Match: cmp.Match, Threshold: MatchThreshold}
	if cmp.Match {
		res.Outcome = OutcomeMatched
	}
	return res, nil
}

func (g *Gate) enter(s State) {
	if g.observer != nil {
		g.observer(s)
	}
}
