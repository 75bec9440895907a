//go:build !dlib

package main

import (
	"faceattend/internal/config"
	"faceattend/internal/face"
	"faceattend/internal/faceclient"
)

func newEngine(cfg config.App) (face.Engine, func()) {
	return faceclient.New(cfg.FaceServiceURL, cfg.FaceSkip, cfg.FaceTimeout), func() {}
}
