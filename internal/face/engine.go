package face

import (
	"context"
	"image"
)

// Names of the three model components, in load order.
const (
	NetTinyFaceDetector = "tiny_face_detector"
	NetFaceLandmark68   = "face_landmark_68"
	NetFaceRecognition  = "face_recognition"
)

// Assets locates the model weights.
type Assets struct {
	Path string   `json:"path"`
	Nets []string `json:"nets"`
}

// DefaultAssets loads the detector, landmark and recognition nets from path.
func DefaultAssets(path string) Assets {
	if path == "" {
		path = "/models"
	}
	return Assets{
		Path: path,
		Nets: []string{NetTinyFaceDetector, NetFaceLandmark68, NetFaceRecognition},
	}
}

// DetectorOptions configure the low-resolution detector.
type DetectorOptions struct {
	InputSize      int     `json:"input_size"`
	ScoreThreshold float64 `json:"score_threshold"`
}

// DefaultDetectorOptions trades a little accuracy for speed.
var DefaultDetectorOptions = DetectorOptions{InputSize: 224, ScoreThreshold: 0.4}

// Detection is the single best-scoring face in an image. Found is false when
// the detector returned nothing above the score threshold.
type Detection struct {
	Found      bool
	Score      float64
	Descriptor Descriptor
}

// Engine runs detection, landmarks and embedding for one image. Only the
// top detection is returned; multi-face frames are not rejected.
type Engine interface {
	LoadModels(ctx context.Context, assets Assets) error
	Detect(ctx context.Context, img image.Image, opts DetectorOptions) (Detection, error)
}
