// Package fault defines the runtime error taxonomy shared by every core
// subsystem. Codes are stable and printable as "RB####".
package fault

import "fmt"

// Code identifies the kind of runtime error.
type Code int

// Stable error codes - do not change values.
const (
	// Math errors.
	ErrOverflow   Code = 1001 // RB1001: arithmetic or bias overflow
	ErrZeroDivide Code = 1002 // RB1002: divide by zero
	ErrBadMake    Code = 1003 // RB1003: construction from an incompatible value
	ErrBadTo      Code = 1004 // RB1004: conversion from an incompatible value

	// Series errors.
	ErrPastEnd   Code = 1101 // RB1101: index past series end
	ErrBadSeries Code = 1102 // RB1102: operation not valid for this series
	ErrSizeLimit Code = 1103 // RB1103: size limit exceeded

	// Port errors.
	ErrInvalidSpec  Code = 1201 // RB1201: malformed port spec
	ErrInvalidPort  Code = 1202 // RB1202: bad port object or unsupported verb
	ErrNotOpen      Code = 1203 // RB1203: port is not open
	ErrAlreadyOpen  Code = 1204 // RB1204: port is already open
	ErrCannotOpen   Code = 1205 // RB1205: device refused to open
	ErrReadError    Code = 1206 // RB1206: device read failed
	ErrWriteError   Code = 1207 // RB1207: device write failed
	ErrNotConnected Code = 1208 // RB1208: socket not connected
	ErrNoConnect    Code = 1209 // RB1209: connect failed
	ErrNoCreate     Code = 1210 // RB1210: create failed
	ErrNoDelete     Code = 1211 // RB1211: delete failed
	ErrNoRename     Code = 1212 // RB1212: rename failed
	ErrBadFilePath  Code = 1213 // RB1213: malformed file path

	// Codec errors.
	ErrBadMedia Code = 1301 // RB1301: codec cannot handle the data

	// Native call errors.
	ErrBadArg    Code = 1501 // RB1501: argument has the wrong type or range
	ErrBadRefine Code = 1502 // RB1502: refinement not valid for this call

	// Resource errors. These are fatal.
	ErrNoMemory  Code = 1401 // RB1401: allocation failed
	ErrMaxEvents Code = 1402 // RB1402: event queue hard limit reached
	ErrBadPress  Code = 1403 // RB1403: compression or decompression failed
)

// String returns the code as "RB1001" format.
func (c Code) String() string {
	return fmt.Sprintf("RB%d", c)
}

// Fatal reports whether an error with this code must panic instead of
// unwinding to a trap frame.
func (c Code) Fatal() bool {
	switch c {
	case ErrNoMemory, ErrMaxEvents:
		return true
	default:
		return false
	}
}

// Error is a runtime error raised by the core.
type Error struct {
	Code    Code
	Message string
	Port    string // originating port scheme, if any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Port != "" {
		return fmt.Sprintf("error %s: %s (port %s)", e.Code, e.Message, e.Port)
	}
	return fmt.Sprintf("error %s: %s", e.Code, e.Message)
}

// New creates an error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithPort returns a copy of the error tagged with the originating scheme.
func (e *Error) WithPort(scheme string) *Error {
	clone := *e
	clone.Port = scheme
	return &clone
}
