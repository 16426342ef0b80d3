package environment

import (
	"fmt"

	"github.com/nyambati/sparkrun/internal/event"
	"github.com/sirupsen/logrus"
)

// Preparer gets the environment ready for a spark-submit run.
type Preparer struct {
	env    Environment
	flags  string
	logger *logrus.Entry
}

func NewPreparer(env Environment, logger *logrus.Entry) *Preparer {
	return &Preparer{
		env:    env,
		flags:  CompatibilityFlags,
		logger: logger.WithField("component", "environment"),
	}
}

// Flags returns the JVM options the preparer exports.
func (p *Preparer) Flags() string {
	return p.flags
}

// Prepare appends the compatibility flags to both Java option variables and
// copies the event into the environment. Event values for the reserved keys
// are dropped.
func (p *Preparer) Prepare(evt event.Event) error {
	for _, key := range ReservedKeys {
		if err := p.env.Append(key, p.flags); err != nil {
			return fmt.Errorf("failed to export java options: %w", err)
		}
	}

	skipped, err := p.env.Merge(evt.Strings())
	if err != nil {
		return fmt.Errorf("failed to copy event into environment: %w", err)
	}

	if len(skipped) > 0 {
		p.logger.WithField("keys", skipped).Warn("ignoring reserved keys supplied by event")
	}
	p.logger.WithField("keys", len(evt)-len(skipped)).Debug("event copied into environment")
	return nil
}
