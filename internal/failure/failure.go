// Package failure defines the error kinds shared by every harness stage.
package failure

import (
	"errors"
	"fmt"
)

// Kind classifies a stage failure.
type Kind int

const (
	KindUnknown Kind = iota
	// KindTimeout: a bounded wait expired before its condition held.
	KindTimeout
	// KindNotFound: a required entity could not be resolved.
	KindNotFound
	// KindLaunch: the browser process could not be created.
	KindLaunch
	// KindConfiguration: the options page interaction failed.
	KindConfiguration
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindNotFound:
		return "not_found"
	case KindLaunch:
		return "launch"
	case KindConfiguration:
		return "configuration"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is.
var (
	ErrTimeout       = errors.New("timeout")
	ErrNotFound      = errors.New("not found")
	ErrLaunch        = errors.New("launch failed")
	ErrConfiguration = errors.New("configuration failed")
)

var sentinels = map[Kind]error{
	KindTimeout:       ErrTimeout,
	KindNotFound:      ErrNotFound,
	KindLaunch:        ErrLaunch,
	KindConfiguration: ErrConfiguration,
}

// Error is a typed stage failure.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, sentinels[e.Kind])
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	s, ok := sentinels[e.Kind]
	return ok && s == target
}

// Timeout returns a KindTimeout failure for op.
func Timeout(op string, err error) error {
	return &Error{Kind: KindTimeout, Op: op, Err: err}
}

// NotFound returns a KindNotFound failure for op.
func NotFound(op string, err error) error {
	return &Error{Kind: KindNotFound, Op: op, Err: err}
}

// Launch returns a KindLaunch failure for op.
func Launch(op string, err error) error {
	return &Error{Kind: KindLaunch, Op: op, Err: err}
}

// Configuration returns a KindConfiguration failure for op. A timeout passed
// in is returned unchanged so callers keep seeing KindTimeout.
func Configuration(op string, err error) error {
	if KindOf(err) == KindTimeout {
		return err
	}
	return &Error{Kind: KindConfiguration, Op: op, Err: err}
}

// KindOf returns the kind of the outermost failure in err's chain.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}
