package handler

import (
	"context"
	"fmt"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/google/uuid"
	"github.com/nyambati/sparkrun/internal/config"
	"github.com/nyambati/sparkrun/internal/environment"
	sparkerrors "github.com/nyambati/sparkrun/internal/errors"
	"github.com/nyambati/sparkrun/internal/event"
	"github.com/nyambati/sparkrun/internal/fetcher"
	"github.com/nyambati/sparkrun/internal/launcher"
	"github.com/sirupsen/logrus"
)

// ScriptLoader locates the script to run. It is called on every invocation.
type ScriptLoader func() (*config.Script, error)

type Handler struct {
	spark      config.Spark
	loadScript ScriptLoader
	fetcher    fetcher.Fetcher
	launcher   launcher.Launcher
	env        environment.Environment
	preparer   *environment.Preparer
	logger     *logrus.Entry
}

type Option func(*Handler)

func WithScriptLoader(loader ScriptLoader) Option {
	return func(h *Handler) {
		h.loadScript = loader
	}
}

// NewHandler builds a handler that submits with the spark settings read at
// startup. Only the script location is re-read per invocation.
func NewHandler(spark config.Spark, f fetcher.Fetcher, l launcher.Launcher, env environment.Environment, logger *logrus.Entry, opts ...Option) *Handler {
	h := &Handler{
		spark:      spark,
		loadScript: func() (*config.Script, error) { return config.LoadScript() },
		fetcher:    f,
		launcher:   l,
		env:        env,
		preparer:   environment.NewPreparer(env, logger),
		logger:     logger.WithField("component", "handler"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle runs one invocation: download the script, prepare the environment
// and run spark-submit. A failed download is logged and the run carries on
// with whatever script is already on disk; a failed submit fails the
// invocation.
func (h *Handler) Handle(ctx context.Context, evt event.Event) error {
	logger := h.logger.WithField("request_id", requestID(ctx))
	logger.Info("spark handler invoked")

	script, err := h.loadScript()
	if err != nil {
		return h.fail(logger, sparkerrors.NewStageError(sparkerrors.StageConfig, sparkerrors.Fatal, err))
	}
	logger = logger.WithFields(logrus.Fields{"bucket": script.Bucket, "script": script.Key})

	for _, key := range []string{event.InputPathKey, event.OutputPathKey} {
		if err := h.env.Set(key, evt.Get(key, "")); err != nil {
			return h.fail(logger, sparkerrors.NewStageError(sparkerrors.StagePrep, sparkerrors.Fatal, err))
		}
	}

	// TODO: confirm with the job owners whether a failed download should
	// fail the invocation instead of reusing a script left by a warm start.
	if err := h.fetcher.Fetch(ctx, script.Bucket, script.Key, h.spark.LocalScriptPath); err != nil {
		if err := h.fail(logger, sparkerrors.NewStageError(sparkerrors.StageFetch, sparkerrors.Recoverable, err)); err != nil {
			return err
		}
	}

	if err := h.preparer.Prepare(evt); err != nil {
		return h.fail(logger, sparkerrors.NewStageError(sparkerrors.StagePrep, sparkerrors.Fatal, err))
	}

	javaToolOptions, _ := h.env.Get(environment.JavaToolOptionsKey)
	logger.Infof("%s=%s", environment.JavaToolOptionsKey, javaToolOptions)

	logger.Info("submitting spark script")
	err = h.launcher.Launch(ctx, &launcher.Submission{
		Binary:     h.spark.SubmitBinary,
		ScriptPath: h.spark.LocalScriptPath,
		Flags:      h.preparer.Flags(),
		Event:      evt,
		Environ:    h.env.Environ(),
	})
	if err != nil {
		return h.fail(logger, sparkerrors.NewStageError(sparkerrors.StageSubmit, sparkerrors.Fatal, err))
	}

	logger.Info("spark script submitted successfully")
	return nil
}

// fail logs err and returns it unless it is recoverable.
func (h *Handler) fail(logger *logrus.Entry, err error) error {
	if sparkerrors.IsRecoverable(err) {
		logger.WithError(err).Error("continuing after recoverable error")
		return nil
	}
	logger.WithError(err).Error("invocation failed")
	return fmt.Errorf("spark handler: %w", err)
}

func requestID(ctx context.Context) string {
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		return lc.AwsRequestID
	}
	if id, ok := ctx.Value(InvocationIDKey).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}

type contextKey string

// InvocationIDKey carries an id for invocations that do not come from Lambda.
const InvocationIDKey contextKey = "invocation_id"

func WithInvocationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, InvocationIDKey, id)
}
