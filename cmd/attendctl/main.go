// Command attendctl inspects attendance documents and runs face
// verification from the terminal.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"faceattend/internal/config"
	"faceattend/internal/logging"
	"faceattend/internal/store"
)

type app struct {
	cfg config.App
	log *zap.Logger
}

func main() {
	a := &app{}
	root := &cobra.Command{
		Use:           "attendctl",
		Short:         "Inspect attendance calendars and test face verification",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.cfg = config.Load()
			verbose, _ := cmd.Flags().GetBool("verbose")
			if verbose {
				l, err := logging.New("dev")
				if err != nil {
					return err
				}
				a.log = l
			} else {
				a.log = zap.NewNop()
			}
			return nil
		},
	}
	root.PersistentFlags().BoolP("verbose", "v", false, "log to stderr")

	root.AddCommand(
		a.calendarCmd(),
		a.totalCmd(),
		a.monthCmd(),
		a.verifyCmd(),
		a.userCmd(),
	)

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if errors.Is(err, errRetry) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func (a *app) mongo(ctx context.Context) (*store.Mongo, error) {
	return store.NewMongo(ctx, a.cfg.MongoURI, a.cfg.MongoDatabase)
}
