// Package errors extends the standard library errors with slog annotations and source locations.
//
// Use Wrap to add context and structured attributes to an error as it travels up the call stack and SlogError to
// log the full chain with a single attribute.
package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strconv"
	"strings"
)

// annotatedError carries a message, slog attributes and the program counter of its creation site.
type annotatedError struct {
	err   error
	msg   string
	attrs []slog.Attr
	pc    uintptr
}

func (e *annotatedError) Error() string {
	switch {
	case e.err == nil:
		return e.msg
	case e.msg == "":
		return e.err.Error()
	default:
		return e.msg + ": " + e.err.Error()
	}
}

func (e *annotatedError) Unwrap() error {
	return e.err
}

// callerPC returns the program counter of the caller skip frames above the caller of callerPC.
func callerPC(skip int) uintptr {
	var pcs [1]uintptr
	if runtime.Callers(skip+2, pcs[:]) == 0 { //nolint:mnd // runtime.Callers and callerPC.
		return 0
	}
	return pcs[0]
}

// NewSentinel creates an error meant to be compared with Is. It records no source location.
func NewSentinel(msg string) error {
	return errors.New(msg) //nolint:err113 // this is the sentinel constructor.
}

// New creates an error annotated with the source location of the call and the given attributes.
func New(msg string, attrs ...slog.Attr) error {
	return &annotatedError{
		err:   nil,
		msg:   msg,
		attrs: attrs,
		pc:    callerPC(1),
	}
}

// Wrap annotates err with msg and attrs. Wrap returns nil if err is nil.
func Wrap(err error, msg string, attrs ...slog.Attr) error {
	if err == nil {
		return nil
	}
	return &annotatedError{
		err:   err,
		msg:   msg,
		attrs: attrs,
		pc:    callerPC(1),
	}
}

// DecoratePanic converts a recovered panic value into an error annotated with the location of the panic.
// It returns nil when excp is nil.
func DecoratePanic(excp any) error {
	if excp == nil {
		return nil
	}
	msg := fmt.Sprintf("panic: %v", excp)
	if err, ok := excp.(error); ok {
		msg = "panic: " + err.Error()
	}
	return &annotatedError{
		err:   nil,
		msg:   msg,
		attrs: nil,
		pc:    panicPC(),
	}
}

// panicPC finds the first frame outside the runtime after runtime.gopanic.
func panicPC() uintptr {
	pcs := make([]uintptr, 64) //nolint:mnd // deep enough for any realistic stack.
	n := runtime.Callers(1, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	panicking := false
	for {
		frame, more := frames.Next()
		if panicking && !strings.HasPrefix(frame.Function, "runtime.") {
			return frame.PC + 1 // CallersFrames expects return addresses.
		}
		if frame.Function == "runtime.gopanic" {
			panicking = true
		}
		if !more {
			return 0
		}
	}
}

// SlogError returns a slog attribute describing err with its message, the merged annotations of the chain and the
// source location closest to the origin of the error.
func SlogError(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}

	var (
		annotations []any
		pc          uintptr
	)
	for cur := err; cur != nil; cur = errors.Unwrap(cur) {
		ae, ok := cur.(*annotatedError) //nolint:errorlint // walking the chain one link at a time.
		if !ok {
			continue
		}
		for _, a := range ae.attrs {
			annotations = append(annotations, a)
		}
		if ae.pc != 0 {
			pc = ae.pc
		}
	}

	attrs := []any{slog.String("message", err.Error())}
	if len(annotations) > 0 {
		attrs = append(attrs, slog.Group("annotations", annotations...))
	}
	if source := sourceLocation(pc); source != "" {
		attrs = append(attrs, slog.String("source", source))
	}
	return slog.Group("error", attrs...)
}

func sourceLocation(pc uintptr) string {
	if pc == 0 {
		return ""
	}
	frames := runtime.CallersFrames([]uintptr{pc})
	frame, _ := frames.Next()
	if frame.File == "" {
		return ""
	}
	return frame.File + ":" + strconv.Itoa(frame.Line)
}

// Is reports whether any error in err's tree matches target. See [errors.Is].
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target. See [errors.As].
func As(err error, target any) bool {
	return errors.As(err, target) //nolint:errorlint // thin re-export.
}

// Unwrap returns the result of calling the Unwrap method on err. See [errors.Unwrap].
func Unwrap(err error) error {
	return errors.Unwrap(err) //nolint:errorlint // thin re-export.
}

// Join returns an error that wraps the given errors. See [errors.Join].
func Join(errs ...error) error {
	return errors.Join(errs...)
}
