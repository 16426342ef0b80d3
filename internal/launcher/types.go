//go:generate mockgen -source=$GOFILE -destination=../mocks/mock_launcher.go -package=mocks Launcher
package launcher

import (
	"context"
	"io"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/nyambati/sparkrun/internal/event"
	v1 "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/sirupsen/logrus"
)

// Submission is one spark-submit run.
type Submission struct {
	Binary     string
	ScriptPath string
	// Flags are the JVM options handed to the driver and executors.
	Flags string
	Event event.Event
	// Environ is the complete KEY=VALUE environment of the run.
	Environ []string
}

type Launcher interface {
	Launch(ctx context.Context, submission *Submission) error
}

type ProcessLauncher struct {
	logger *logrus.Entry
}

// ContainerAPI is the part of the docker client the container launcher uses.
type ContainerAPI interface {
	ImageList(ctx context.Context, options image.ListOptions) ([]image.Summary, error)
	ImagePull(ctx context.Context, refStr string, options image.PullOptions) (io.ReadCloser, error)
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *v1.Platform, containerName string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerWait(ctx context.Context, containerID string, condition container.WaitCondition) (<-chan container.WaitResponse, <-chan error)
	ContainerLogs(ctx context.Context, containerID string, options container.LogsOptions) (io.ReadCloser, error)
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
}

type ContainerLauncher struct {
	client       ContainerAPI
	image        string
	architecture string
	logger       *logrus.Entry
}
