//go:build !dlib

package main

import (
	"go.uber.org/zap"

	"faceattend/internal/config"
	"faceattend/internal/face"
	"faceattend/internal/faceclient"
)

func newEngine(cfg config.App, logger *zap.Logger) (face.Engine, func()) {
	if cfg.FaceSkip {
		logger.Warn("FACE_SKIP set: descriptors are synthetic, do not use in production")
	}
	return faceclient.New(cfg.FaceServiceURL, cfg.FaceSkip, cfg.FaceTimeout), func() {}
}
