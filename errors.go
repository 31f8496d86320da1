// Copyright ©2015 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package seedcore implements the seeded hit-generation core of an
// exhaustive sequence alignment system: a packed sequence database, a
// disk-resident word index, an automaton-driven scanner and the HSP/geneseed
// logic that turns word hits into gene-length hit clusters.
//
// Subpackages implement one component each; this package holds only the
// error taxonomy shared across all of them.
package seedcore

import "fmt"

// Kind classifies a seedcore error. Callers should switch on Kind rather
// than match error strings.
type Kind int

const (
	_ Kind = iota

	// BadMagic indicates a file's magic bytes did not match the expected
	// format.
	BadMagic
	// IncompatibleVersion indicates a file's version field is not one this
	// build understands.
	IncompatibleVersion
	// DuplicateId indicates two sequences were built with the same id.
	DuplicateId
	// ChecksumMismatch indicates a sequence failed GCG checksum
	// reverification on fetch.
	ChecksumMismatch
	// ShortRead indicates an underlying reader returned fewer bytes than
	// requested.
	ShortRead
	// IoError wraps an arbitrary underlying I/O failure.
	IoError
	// MemoryBudget indicates a build would exceed its configured memory
	// ceiling.
	MemoryBudget
	// InvalidAlphabet indicates a symbol outside the declared alphabet was
	// seen where scanning (which silently resets instead) does not apply,
	// e.g. during direct sequence fetch.
	InvalidAlphabet
	// WordlenOverflow indicates a requested trie depth/alphabet combination
	// exceeds integer capacity; callers should build a compressed FSM
	// instead.
	WordlenOverflow
	// ModeConflict indicates incompatible alignment modes were requested of
	// one Seeder.
	ModeConflict
	// AfterPrepare indicates a Seeder was mutated after Prepare was called.
	AfterPrepare
)

var kindNames = map[Kind]string{
	BadMagic:            "bad magic",
	IncompatibleVersion: "incompatible version",
	DuplicateId:         "duplicate id",
	ChecksumMismatch:    "checksum mismatch",
	ShortRead:           "short read",
	IoError:             "io error",
	MemoryBudget:        "memory budget exceeded",
	InvalidAlphabet:     "invalid alphabet symbol",
	WordlenOverflow:     "word length overflow",
	ModeConflict:        "mode conflict",
	AfterPrepare:        "mutation after prepare",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown error"
}

// Error is the single error type returned throughout seedcore and its
// subpackages. The core never prints to stderr or terminates the process;
// every failure is returned through the call chain as an *Error.
type Error struct {
	Kind     Kind
	Path     string // file or resource path, if applicable
	Position int64  // byte or record offset, if applicable
	Detail   string // free-form additional context
	Err      error  // wrapped underlying error, if any
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Path != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Path)
	}
	if e.Position != 0 {
		msg = fmt.Sprintf("%s at %d", msg, e.Position)
	}
	if e.Detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Detail)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf constructs an *Error of the given kind with a formatted detail
// message.
func Errorf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// Wrap constructs an *Error of the given kind around an underlying error.
func Wrap(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}
