package launcher

import (
	"context"
	"errors"
	"os/exec"
	"time"

	sparkerrors "github.com/nyambati/sparkrun/internal/errors"
	"github.com/sirupsen/logrus"
)

var _ Launcher = (*ProcessLauncher)(nil)

func NewProcessLauncher(logger *logrus.Entry) *ProcessLauncher {
	return &ProcessLauncher{
		logger: logger.WithField("component", "launcher"),
	}
}

// Launch runs spark-submit as a child process and blocks until it exits.
// Its stdout and stderr are streamed into the log.
func (l *ProcessLauncher) Launch(ctx context.Context, submission *Submission) error {
	args, err := BuildArgs(submission.Flags, submission.ScriptPath, submission.Event)
	if err != nil {
		return sparkerrors.NewSparkSubmitError(-1, err.Error())
	}

	logger := l.logger.WithField("binary", submission.Binary)
	logger.Infof("spark-submit cmd: %s", CommandLine(submission.Binary, args))

	cmd := exec.CommandContext(ctx, submission.Binary, args...)
	cmd.Env = submission.Environ

	stdout := logger.WithField("stream", "stdout").WriterLevel(logrus.InfoLevel)
	defer stdout.Close()
	cmd.Stdout = stdout

	stderr := logger.WithField("stream", "stderr").WriterLevel(logrus.InfoLevel)
	defer stderr.Close()
	cmd.Stderr = stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return sparkerrors.NewSparkSubmitError(exitErr.ExitCode(), err.Error())
		}
		return sparkerrors.NewSparkSubmitError(-1, err.Error())
	}

	logger.WithField("duration", time.Since(start)).Info("spark-submit finished")
	return nil
}
