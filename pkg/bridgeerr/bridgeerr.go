// Package bridgeerr defines the closed set of failures every nativebridge
// command can report, independent of which backend variant answered it.
package bridgeerr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a bridge failure.
type Kind int

const (
	KindUnknown Kind = iota
	// KindUnsupportedPlatform: the active backend does not implement the capability.
	KindUnsupportedPlatform
	// KindNativeInvocationFailed: native code was reached and reported a failure.
	KindNativeInvocationFailed
	// KindInvalidArgument: the payload failed schema or domain validation.
	KindInvalidArgument
	// KindDecode: the native reply could not be parsed into the expected schema.
	KindDecode
	// KindUnknownCommand: the command name is not part of this build.
	KindUnknownCommand
)

// Sentinels usable with errors.Is.
var (
	ErrUnsupportedPlatform    = errors.New("unsupported platform")
	ErrNativeInvocationFailed = errors.New("native invocation failed")
	ErrInvalidArgument        = errors.New("invalid argument")
	ErrDecode                 = errors.New("decode error")
	ErrUnknownCommand         = errors.New("unknown command")
)

var kindInfo = map[Kind]struct {
	code     string
	status   int
	sentinel error
}{
	KindUnsupportedPlatform:    {"unsupported_platform", http.StatusNotImplemented, ErrUnsupportedPlatform},
	KindNativeInvocationFailed: {"native_invocation_failed", http.StatusBadGateway, ErrNativeInvocationFailed},
	KindInvalidArgument:        {"invalid_argument", http.StatusBadRequest, ErrInvalidArgument},
	KindDecode:                 {"decode_error", http.StatusBadGateway, ErrDecode},
	KindUnknownCommand:         {"unknown_command", http.StatusNotFound, ErrUnknownCommand},
}

// Code returns the stable snake_case wire code.
func (k Kind) Code() string {
	if info, ok := kindInfo[k]; ok {
		return info.code
	}
	return "unknown"
}

func (k Kind) String() string { return k.Code() }

// HTTPStatus maps the kind onto the control API status code.
func (k Kind) HTTPStatus() int {
	if info, ok := kindInfo[k]; ok {
		return info.status
	}
	return http.StatusInternalServerError
}

// KindFromCode is the inverse of Code. Unrecognized codes map to KindUnknown.
func KindFromCode(code string) Kind {
	for k, info := range kindInfo {
		if info.code == code {
			return k
		}
	}
	return KindUnknown
}

// Error is a classified bridge failure for a single command.
type Error struct {
	Kind    Kind
	Command string
	Msg     string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Kind.sentinel().Error()
	if e.Command != "" {
		msg = e.Command + ": " + msg
	}
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for e.Kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind.sentinel()
}

func (k Kind) sentinel() error {
	if info, ok := kindInfo[k]; ok {
		return info.sentinel
	}
	return errors.New("bridge error")
}

// New creates an Error of the given kind.
func New(kind Kind, command, format string, args ...any) *Error {
	return &Error{Kind: kind, Command: command, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies err. A nil err returns nil.
func Wrap(kind Kind, command string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Command: command, Err: err}
}

// Unsupported returns the UnsupportedPlatform error for command.
func Unsupported(command string) *Error {
	return &Error{Kind: KindUnsupportedPlatform, Command: command}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return KindUnknown
}

// WithCommand attaches command to err if it is an *Error without one, and
// returns any other error unchanged.
func WithCommand(err error, command string) error {
	if be, ok := err.(*Error); ok && be.Command == "" {
		cp := *be
		cp.Command = command
		return &cp
	}
	return err
}
