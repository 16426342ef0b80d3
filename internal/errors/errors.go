package sparkerrors

import (
	"errors"
	"fmt"
)

// Kind tells the handler what to do with a failed stage.
type Kind int

const (
	// Fatal errors are logged and returned to the Lambda runtime.
	Fatal Kind = iota
	// Recoverable errors are logged and the pipeline moves on.
	Recoverable
)

func (k Kind) String() string {
	switch k {
	case Recoverable:
		return "recoverable"
	case Fatal:
		return "fatal"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

type Stage string

const (
	StageConfig Stage = "config"
	StageFetch  Stage = "fetch"
	StagePrep   Stage = "prepare"
	StageSubmit Stage = "submit"
)

// StageError attaches a stage and a kind to the error that stopped it.
type StageError struct {
	Stage Stage
	Kind  Kind
	Err   error
}

func NewStageError(stage Stage, kind Kind, err error) error {
	return &StageError{Stage: stage, Kind: kind, Err: err}
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed (%s): %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// KindOf reports the kind of err. Errors without a kind are Fatal.
func KindOf(err error) Kind {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Kind
	}
	var downloadErr *ScriptDownloadError
	if errors.As(err, &downloadErr) {
		return Recoverable
	}
	return Fatal
}

func IsRecoverable(err error) bool {
	return err != nil && KindOf(err) == Recoverable
}

// Config errors
type ConfigError struct {
	Key    string
	Reason string
}

func NewConfigError(key, reason string) error {
	return &ConfigError{Key: key, Reason: reason}
}

func (e *ConfigError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("invalid config: reason = %s", e.Reason)
	}
	return fmt.Sprintf("invalid config %s: reason = %s", e.Key, e.Reason)
}

// Fetch errors
type ScriptDownloadError struct {
	Bucket string
	Key    string
	Reason string
}

func NewScriptDownloadError(bucket, key, reason string) error {
	return &ScriptDownloadError{Bucket: bucket, Key: key, Reason: reason}
}

func (e *ScriptDownloadError) Error() string {
	return fmt.Sprintf("failed to download script %s from bucket %s: reason = %s", e.Key, e.Bucket, e.Reason)
}

// Submit errors
type SparkSubmitError struct {
	ExitCode int
	Reason   string
}

func NewSparkSubmitError(exitCode int, reason string) error {
	return &SparkSubmitError{ExitCode: exitCode, Reason: reason}
}

func (e *SparkSubmitError) Error() string {
	if e.ExitCode < 0 {
		return fmt.Sprintf("spark-submit did not complete: reason = %s", e.Reason)
	}
	return fmt.Sprintf("spark-submit exited with code %d: reason = %s", e.ExitCode, e.Reason)
}

type InvocationError struct {
	URL        string
	StatusCode int
	Body       string
}

func NewInvocationError(url string, status int, body string) error {
	return &InvocationError{URL: url, StatusCode: status, Body: body}
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("invoke endpoint %s returned %d: %s", e.URL, e.StatusCode, e.Body)
}
