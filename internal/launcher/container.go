package launcher

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/google/uuid"
	sparkerrors "github.com/nyambati/sparkrun/internal/errors"
	v1 "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/sirupsen/logrus"
)

const (
	OS            = "linux"
	ScriptMountAt = "/var/task"
)

var _ Launcher = (*ContainerLauncher)(nil)

// NewContainerLauncher runs spark-submit inside imageName using the local
// docker daemon.
func NewContainerLauncher(imageName, arch string, logger *logrus.Entry) (*ContainerLauncher, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, err
	}
	return NewContainerLauncherWithClient(cli, imageName, arch, logger), nil
}

func NewContainerLauncherWithClient(api ContainerAPI, imageName, arch string, logger *logrus.Entry) *ContainerLauncher {
	return &ContainerLauncher{
		client:       api,
		image:        strings.TrimSpace(imageName),
		architecture: arch,
		logger:       logger.WithField("component", "launcher"),
	}
}

// Launch pulls the image if needed, runs spark-submit in a fresh container
// with the script directory mounted at /var/task, and removes the container
// once it exits.
func (l *ContainerLauncher) Launch(ctx context.Context, submission *Submission) error {
	scriptPath := path.Join(ScriptMountAt, filepath.Base(submission.ScriptPath))
	args, err := BuildArgs(submission.Flags, scriptPath, submission.Event)
	if err != nil {
		return sparkerrors.NewSparkSubmitError(-1, err.Error())
	}

	logger := l.logger.WithField("image", l.image)
	logger.Infof("spark-submit cmd: %s", CommandLine(submission.Binary, args))

	if err := l.pullImage(ctx); err != nil {
		return sparkerrors.NewSparkSubmitError(-1, fmt.Sprintf("pulling image failed: %v", err))
	}

	containerID, err := l.createContainer(ctx, submission, args)
	if err != nil {
		return sparkerrors.NewSparkSubmitError(-1, fmt.Sprintf("creating container failed: %v", err))
	}
	logger = logger.WithField("container_id", containerID)

	defer func() {
		// the run context may already be cancelled
		if err := l.client.ContainerRemove(context.Background(), containerID, container.RemoveOptions{Force: true}); err != nil {
			logger.WithError(err).Warn("failed to remove container")
		}
	}()

	start := time.Now()
	logger.Info("starting container")
	if err := l.client.ContainerStart(ctx, containerID, container.StartOptions{}); err != nil {
		return sparkerrors.NewSparkSubmitError(-1, fmt.Sprintf("error starting container: %v", err))
	}

	logsDone := l.streamLogs(ctx, containerID, logger)

	statusCh, errCh := l.client.ContainerWait(ctx, containerID, container.WaitConditionNotRunning)
	var status container.WaitResponse
	select {
	case err := <-errCh:
		<-logsDone
		return sparkerrors.NewSparkSubmitError(-1, fmt.Sprintf("waiting for container failed: %v", err))
	case status = <-statusCh:
	}
	<-logsDone

	if status.Error != nil && status.Error.Message != "" {
		return sparkerrors.NewSparkSubmitError(int(status.StatusCode), status.Error.Message)
	}
	if status.StatusCode != 0 {
		return sparkerrors.NewSparkSubmitError(int(status.StatusCode), fmt.Sprintf("exit status %d", status.StatusCode))
	}

	logger.WithField("duration", time.Since(start)).Info("spark-submit finished")
	return nil
}

func (l *ContainerLauncher) pullImage(ctx context.Context) error {
	if l.image == "" {
		return sparkerrors.NewConfigError("SPARKRUN_IMAGE", "image field is empty")
	}

	images, err := l.client.ImageList(ctx, image.ListOptions{})
	if err != nil {
		return fmt.Errorf("failed to list images: %w", err)
	}
	for _, summary := range images {
		if slices.Contains(summary.RepoTags, l.image) {
			return nil
		}
	}

	reader, err := l.client.ImagePull(ctx, l.image, image.PullOptions{
		Platform: fmt.Sprintf("%s/%s", OS, l.architecture),
	})
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w", l.image, err)
	}
	defer reader.Close()

	// Drain output (Docker API requires this)
	_, _ = io.Copy(io.Discard, reader)
	l.logger.WithField("image", l.image).Info("image pulled successfully")
	return nil
}

func (l *ContainerLauncher) createContainer(ctx context.Context, submission *Submission, args []string) (string, error) {
	scriptDir, err := filepath.Abs(filepath.Dir(submission.ScriptPath))
	if err != nil {
		return "", fmt.Errorf("failed to resolve script path: %w", err)
	}

	containerConfig := &container.Config{
		Image:      l.image,
		Entrypoint: []string{submission.Binary},
		Cmd:        args,
		Env:        submission.Environ,
		Labels:     map[string]string{"sparkrun": "true"},
	}

	hostConfig := &container.HostConfig{
		Mounts: []mount.Mount{
			{
				Type:     mount.TypeBind,
				Source:   scriptDir,
				Target:   ScriptMountAt,
				ReadOnly: true,
			},
		},
	}

	resp, err := l.client.ContainerCreate(
		ctx,
		containerConfig,
		hostConfig,
		nil,
		toV1Platform(l.architecture),
		fmt.Sprintf("sparkrun-%s", uuid.NewString()),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create container: %w", err)
	}
	return resp.ID, nil
}

// streamLogs copies container output into the log until the container exits.
func (l *ContainerLauncher) streamLogs(ctx context.Context, containerID string, logger *logrus.Entry) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		reader, err := l.client.ContainerLogs(ctx, containerID, container.LogsOptions{
			ShowStdout: true,
			ShowStderr: true,
			Follow:     true,
		})
		if err != nil {
			logger.WithError(err).Warn("failed to attach to container logs")
			return
		}
		defer reader.Close()

		stdout := logger.WithField("stream", "stdout").WriterLevel(logrus.InfoLevel)
		defer stdout.Close()
		stderr := logger.WithField("stream", "stderr").WriterLevel(logrus.InfoLevel)
		defer stderr.Close()

		if _, err := stdcopy.StdCopy(stdout, stderr, reader); err != nil {
			logger.WithError(err).Debug("container log stream ended")
		}
	}()
	return done
}

func toV1Platform(arch string) *v1.Platform {
	return &v1.Platform{
		OS:           OS,
		Architecture: arch,
	}
}
