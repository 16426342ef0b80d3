package server

import (
	"context"
	"sync"

	"github.com/gorilla/mux"
	"github.com/nyambati/sparkrun/internal/config"
	"github.com/nyambati/sparkrun/internal/event"
	"github.com/sirupsen/logrus"
)

// Invoker runs one invocation of the pipeline.
type Invoker interface {
	Handle(ctx context.Context, evt event.Event) error
}

type ServerInterface interface {
	Start(ctx context.Context) error
	Router() *mux.Router
}

type InvokeServer struct {
	// invokeMu allows one invocation at a time, as in a Lambda sandbox.
	invokeMu sync.Mutex
	config   *config.Server
	invoker  Invoker
	logger   *logrus.Entry
	router   *mux.Router
}

type InvokeResponse struct {
	Status       string `json:"status"`
	InvocationID string `json:"invocation_id"`
	Error        string `json:"error,omitempty"`
}
