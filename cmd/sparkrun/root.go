package sparkrun

import (
	"context"
	"fmt"
	"os"

	"github.com/nyambati/sparkrun/internal/config"
	"github.com/nyambati/sparkrun/internal/environment"
	"github.com/nyambati/sparkrun/internal/fetcher"
	"github.com/nyambati/sparkrun/internal/handler"
	"github.com/nyambati/sparkrun/internal/launcher"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var cfg *config.Config
var logger *logrus.Logger
var ctx = context.Background()

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sparkrun",
	Short: "Download a Spark script from S3 and spark-submit it, from Lambda or locally",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !config.IsLambda() {
			if err := config.LoadDotEnv(); err != nil {
				return fmt.Errorf("failed to load .env: %w", err)
			}
		}

		var err error
		cfg, err = config.LoadSettings()
		if err != nil {
			return err
		}
		configureLogger(logger, cfg.Log)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// the container image runs the bare binary as the Lambda entry point
		if config.IsLambda() {
			return startLambda()
		}
		return cmd.Help()
	},
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.WithError(err).Fatal("error occured while running sparkrun")
	}
}

func init() {
	logger = logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

func configureLogger(l *logrus.Logger, cfg config.Log) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if cfg.Format == "json" || config.IsLambda() {
		l.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

// newHandler wires the pipeline for the configured launcher. The process
// launcher works on the real process environment, the container launcher on
// an in-memory one so host variables do not leak into the container.
func newHandler(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*handler.Handler, error) {
	f, err := fetcher.NewS3Fetcher(ctx, logrus.NewEntry(logger))
	if err != nil {
		return nil, err
	}

	var (
		l   launcher.Launcher
		env environment.Environment
	)
	switch cfg.Launcher {
	case config.LauncherContainer:
		cl, err := launcher.NewContainerLauncher(cfg.Container.Image, cfg.Container.Architecture, logrus.NewEntry(logger))
		if err != nil {
			return nil, fmt.Errorf("failed to create docker client: %w", err)
		}
		l = cl
		env = environment.NewMapEnvironment(nil)
	default:
		l = launcher.NewProcessLauncher(logrus.NewEntry(logger))
		env = environment.NewProcessEnvironment()
	}

	return handler.NewHandler(cfg.Spark, f, l, env, logrus.NewEntry(logger)), nil
}
