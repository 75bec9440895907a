//go:build dlib

package main

import (
	"faceattend/internal/config"
	"faceattend/internal/face"
	"faceattend/internal/face/dlib"
)

func newEngine(config.App) (face.Engine, func()) {
	e := dlib.New()
	return e, e.Close
}
