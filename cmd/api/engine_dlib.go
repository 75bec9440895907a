//go:build dlib

package main

import (
	"go.uber.org/zap"

	"faceattend/internal/config"
	"faceattend/internal/face"
	"faceattend/internal/face/dlib"
)

func newEngine(_ config.App, logger *zap.Logger) (face.Engine, func()) {
	logger.Info("using in-process dlib engine")
	e := dlib.New()
	return e, e.Close
}
