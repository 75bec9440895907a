package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"faceattend/internal/face"
)

// errRetry makes attendctl exit with status 2 when the faces did not match.
var errRetry = errors.New("no match, capture again")

func (a *app) verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <live-image> <reference-image>",
		Short: "Compare two images with the face verification gate",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			live, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			ref, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}

			engine, closeEngine := newEngine(a.cfg)
			defer closeEngine()
			out := cmd.OutOrStdout()
			gate := face.NewGate(engine,
				face.WithAssets(face.DefaultAssets(a.cfg.FaceModelPath)),
				face.WithLogger(a.log),
				face.WithObserver(func(s face.State) { a.log.Debug("gate state", zap.String("state", string(s))) }),
			)

			res, err := gate.Verify(cmd.Context(), live, ref)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "outcome   %s\n", res.Outcome)
			if res.Outcome != face.OutcomeNoFaceDetected {
				fmt.Fprintf(out, "distance  %.4f (threshold %.2f)\n", res.Distance, res.Threshold)
			}
			if res.Retry() {
				return errRetry
			}
			return nil
		},
	}
}
