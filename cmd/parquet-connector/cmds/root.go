package cmds

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	connector "github.com/fraugster/parquet-connector"
)

var (
	profilePath string
	logLevel    string

	profile  *Profile
	logger   *slog.Logger
	closeLog func() error
)

var rootCmd = &cobra.Command{
	Use:           "parquet-connector",
	Short:         "parquet-connector reads, converts and ingests parquet files from local paths and URLs",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProfile(profilePath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			p.Log.Level = logLevel
		}
		l, closer, err := setupLogging(p.Log, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		profile, logger, closeLog = p, l, closer
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if closeLog != nil {
			return closeLog()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&profilePath, "profile", "", "Path of the profile file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level, overrides the profile (debug, info, warn, error)")
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error kind to a process exit code.
func exitCode(err error) int {
	switch connector.KindOf(err) {
	case connector.KindConfiguration, connector.KindUnsupportedScheme:
		return 2
	case connector.KindSourceNotFound:
		return 3
	default:
		return 1
	}
}

// newConnector builds a connector for location from the loaded profile.
func newConnector(location string) (*connector.DataConnector, error) {
	resolver, err := newResolver()
	if err != nil {
		return nil, err
	}

	cfg := connector.NewConfiguration(location, connector.WithErrorHandlerFunc(func(err error) {
		logger.Debug("connector reported error", slog.String("kind", connector.KindOf(err).String()))
	}))
	return connector.New(cfg,
		connector.WithSourceOpener(resolver),
		connector.WithReader(newReader()),
		connector.WithLogger(logger),
	)
}

func newResolver() (*connector.Resolver, error) {
	readAhead, err := humanToByte(profile.Resolver.ReadAhead)
	if err != nil {
		return nil, fmt.Errorf("invalid read ahead %q: %w", profile.Resolver.ReadAhead, err)
	}
	return connector.NewResolver(
		connector.WithHTTPClient(&http.Client{Timeout: profile.Resolver.Timeout}),
		connector.WithReadAhead(int(readAhead)),
		connector.WithSpoolDir(profile.Resolver.SpoolDir),
		connector.WithResolverLogger(logger),
	), nil
}

func newReader() *connector.Reader {
	return connector.NewReader(
		connector.WithRowGroupColumn(profile.Reader.RowGroupColumn),
		connector.WithCRCValidation(profile.Reader.ValidateCRC),
		connector.WithReadLogger(logger),
	)
}
