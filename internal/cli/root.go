package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"crowdtags/pkg/config"
	apperrors "crowdtags/pkg/errors"
	"crowdtags/pkg/logger"
)

// app carries state shared by every command of one invocation.
type app struct {
	envFile string
	cfg     *config.Config
	log     *logger.Logger
}

func NewRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:               "crowdtags",
		Short:             "Normalize crowd-worker annotation tables",
		Long:              "Flatten tables whose answer column holds JSON action batches into one row per canonical action key.",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	root.PersistentFlags().StringVar(&a.envFile, "env-file", config.DefaultEnvFile, "Env file with configuration defaults (ignored when missing)")
	root.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "", "Log format (text, json)")

	root.AddCommand(
		newFlattenCommand(a),
		newKeyCommand(a),
	)

	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.envFile, flagOverrides(cmd))
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = cfg.NewLogger(cmd.ErrOrStderr(), cmd.Name()).WithRunID(uuid.NewString())
	cfg.LogConfiguration(a.log)
	return nil
}

// flagOverrides copies explicitly set flags of the running command over the
// environment configuration.
func flagOverrides(cmd *cobra.Command) config.Override {
	return func(cfg *config.Config) {
		targets := map[string]*string{
			"log-level":   &cfg.LogLevel,
			"log-format":  &cfg.LogFormat,
			"quote":       &cfg.Quote,
			"delimiter":   &cfg.Delimiter,
			"empty":       &cfg.EmptyBatch,
			"format":      &cfg.OutputFormat,
			"index-field": &cfg.IndexField,
		}
		for name, target := range targets {
			f := cmd.Flags().Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			*target = f.Value.String()
		}
	}
}

// Execute runs the command line and returns the process exit status.
func Execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root := NewRootCommand()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := classify(root.ExecuteContext(ctx))
	if err != nil {
		printError(stderr, err)
	}
	return apperrors.ExitStatus(err)
}

// classify turns errors that did not come from the application, which are
// command line usage errors from cobra or cancellation, into application errors.
func classify(err error) error {
	if err == nil || apperrors.IsAppError(err) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Internal("interrupted", err)
	}
	return apperrors.Wrap(err, apperrors.CodeInvalidInput, "invalid command line", apperrors.ExitInvalidInput)
}

func printError(w io.Writer, err error) {
	appErr := apperrors.AsAppError(err)
	fmt.Fprintf(w, "Error: %v\n", err)
	for _, k := range slices.Sorted(maps.Keys(appErr.Details)) {
		fmt.Fprintf(w, "  %s: %v\n", k, appErr.Details[k])
	}
}
