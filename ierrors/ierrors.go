// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

// Package ierrors defines the coded error type used throughout the
// discovery core, mirroring the status-code taxonomy the rest of the
// stack already uses for its client-facing errors.
package ierrors

import "fmt"

// Code classifies an Error the way a gRPC status code would.
type Code int

const (
	Unknown Code = iota
	Internal
	InvalidArgument
	NotFound
	AlreadyExists
	PermissionDenied
	Unauthenticated
	ResourceExhausted
	FailedPrecondition
	Aborted
	Unavailable
	DataLoss
	DeadlineExceeded
	ConnectionFailed
	Canceled
)

var codeNames = map[Code]string{
	Unknown:             "Unknown",
	Internal:            "Internal",
	InvalidArgument:     "InvalidArgument",
	NotFound:            "NotFound",
	AlreadyExists:       "AlreadyExists",
	PermissionDenied:    "PermissionDenied",
	Unauthenticated:     "Unauthenticated",
	ResourceExhausted:   "ResourceExhausted",
	FailedPrecondition:  "FailedPrecondition",
	Aborted:             "Aborted",
	Unavailable:         "Unavailable",
	DataLoss:            "DataLoss",
	DeadlineExceeded:    "DeadlineExceeded",
	ConnectionFailed:    "ConnectionFailed",
	Canceled:            "Canceled",
}

// String renders the code's symbolic name.
func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "Unknown"
}

const errorMessageInvalidInputParameters = "invalid input parameters"

// Error is the coded error carried across the discovery core's
// exported operations.
type Error struct {
	Code  Code
	Text  string
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return e.Text
}

// Unwrap exposes the wrapped cause to errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error from a mix of arguments, mirroring the flexible
// constructor the rest of this codebase's client packages use:
//
//	New(code, "text")       -> Code: code,   Text: "text"
//	New(code)                -> Code: code,   Text: code.String()
//	New("text")               -> Code: Unknown, Text: "text"
//	New(err)                  -> Code: Unknown, Text: err.Error(), Cause: err
//	New(code, err)            -> Code: code,   Text: err.Error(), Cause: err
//	New(*Error)               -> copies Code/Text/Cause from the wrapped Error
//	New(*Error, code)         -> copies Text/Cause, overrides Code
//	New()                     -> Code: Internal, Text: errorMessageInvalidInputParameters
func New(args ...interface{}) *Error {
	if len(args) == 0 {
		return &Error{Code: Internal, Text: errorMessageInvalidInputParameters}
	}

	e := &Error{Code: Unknown}
	codeSet := false

	for _, arg := range args {
		switch v := arg.(type) {
		case Code:
			e.Code = v
			codeSet = true
		case string:
			e.Text = v
		case *Error:
			e.Text = v.Text
			e.Cause = v.Cause
			if !codeSet {
				e.Code = v.Code
			}
		case error:
			e.Text = v.Error()
			e.Cause = v
		}
	}

	if e.Text == "" {
		e.Text = e.Code.String()
	}
	return e
}

// Newf is New with a code and a formatted message.
func Newf(code Code, format string, a ...interface{}) *Error {
	return &Error{Code: code, Text: fmt.Sprintf(format, a...)}
}

// Is reports whether err is an *Error carrying the given code.
func Is(err error, code Code) bool {
	e, ok := err.(*Error)
	return ok && e != nil && e.Code == code
}
