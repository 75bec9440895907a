//go:build dlib

// Package dlib runs face detection and embedding in process through dlib.
// It needs cgo and the dlib shared libraries, so it is only built with the
// dlib tag.
package dlib

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	goface "github.com/Kagami/go-face"

	"faceattend/internal/face"
)

var errNotLoaded = errors.New("dlib models not loaded")

// Engine implements face.Engine over a go-face recognizer. The recognizer is
// not safe for concurrent use, so Detect calls are serialized.
type Engine struct {
	mu  sync.Mutex
	rec *goface.Recognizer
}

// New returns an engine with no models loaded.
func New() *Engine {
	return &Engine{}
}

// LoadModels opens the recognizer from assets.Path. The dlib model set
// bundles detection, landmarks and recognition, so assets.Nets is not
// consulted.
func (e *Engine) LoadModels(_ context.Context, assets face.Assets) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.rec != nil {
		return nil
	}
	rec, err := goface.NewRecognizer(assets.Path)
	if err != nil {
		return fmt.Errorf("open recognizer at %s: %w", assets.Path, err)
	}
	e.rec = rec
	return nil
}

// Detect returns the largest face in img. dlib reports no score, so any
// detection counts as found.
func (e *Engine) Detect(ctx context.Context, img image.Image, _ face.DetectorOptions) (face.Detection, error) {
	if err := ctx.Err(); err != nil {
		return face.Detection{}, err
	}
	jpg, err := face.EncodeJPEG(img)
	if err != nil {
		return face.Detection{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.rec == nil {
		return face.Detection{}, errNotLoaded
	}
	faces, err := e.rec.Recognize(jpg)
	if err != nil {
		return face.Detection{}, fmt.Errorf("recognize: %w", err)
	}
	if len(faces) == 0 {
		return face.Detection{}, nil
	}

	best := faces[0]
	for _, f := range faces[1:] {
		if area(f.Rectangle) > area(best.Rectangle) {
			best = f
		}
	}
	desc := make(face.Descriptor, len(best.Descriptor))
	copy(desc, best.Descriptor[:])
	return face.Detection{Found: true, Score: 1, Descriptor: desc}, nil
}

// Close releases the recognizer.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.rec != nil {
		e.rec.Close()
		e.rec = nil
	}
}

func area(r image.Rectangle) int {
	return r.Dx() * r.Dy()
}
