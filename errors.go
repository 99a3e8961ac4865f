// Copyright 2026 Conductor OSS
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

package contentcore

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

// ErrorKind is a closed set of extraction error classifications. The
// fallback executor compares kinds by value when deciding whether a
// failure aborts the whole chain.
type ErrorKind string

const (
	KindUnsupportedType      ErrorKind = "unsupported_type"
	KindProcessorNotFound    ErrorKind = "processor_not_found"
	KindProcessorUnavailable ErrorKind = "processor_unavailable"
	KindEngineFailure        ErrorKind = "engine_failure"
	KindFileNotFound         ErrorKind = "file_not_found"
	KindPermissionDenied     ErrorKind = "permission_denied"
	KindInvalidSource        ErrorKind = "invalid_source"
	KindFatal                ErrorKind = "fatal"
	KindAggregate            ErrorKind = "aggregate"
	KindNoEngine             ErrorKind = "no_engine"
)

// UnsupportedTypeError is returned when the detector exhausted every
// method without classifying the input.
type UnsupportedTypeError struct {
	Path string
}

func (e *UnsupportedTypeError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("unable to determine file type for %q", e.Path)
	}
	return "unable to determine content type"
}

// SourceValidationError is returned when a Source does not carry exactly
// one of file path, URL, or raw content.
type SourceValidationError struct {
	Provided int
}

func (e *SourceValidationError) Error() string {
	if e.Provided == 0 {
		return "must provide one of: file_path, url, content"
	}
	return "must provide only one of: file_path, url, content"
}

// ProcessorNotFoundError is returned when an engine chain references a
// name absent from the registry.
type ProcessorNotFoundError struct {
	Name      string
	Available []string
}

func (e *ProcessorNotFoundError) Error() string {
	return fmt.Sprintf("engine %q not found, available: [%s]", e.Name, strings.Join(e.Available, ", "))
}

// ProcessorUnavailableError is returned when a named engine exists but its
// availability check reported missing dependencies.
type ProcessorUnavailableError struct {
	Name     string
	Requires []string
}

func (e *ProcessorUnavailableError) Error() string {
	if len(e.Requires) > 0 {
		return fmt.Sprintf("engine %q is not available (missing dependencies: %s)", e.Name, strings.Join(e.Requires, ", "))
	}
	return fmt.Sprintf("engine %q is not available", e.Name)
}

// EngineError wraps a failure raised by a processor during a single
// extraction attempt, including per-attempt timeouts.
type EngineError struct {
	Engine string
	Err    error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("engine %q failed: %v", e.Engine, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }

// FatalExtractionError signals a non-retryable failure. The fallback
// executor aborts the remaining chain as soon as one is raised or a
// failure classifies into a configured fatal kind.
type FatalExtractionError struct {
	Engine string
	Err    error
}

func (e *FatalExtractionError) Error() string {
	if e.Engine != "" {
		return fmt.Sprintf("fatal extraction error from engine %q: %v", e.Engine, e.Err)
	}
	return fmt.Sprintf("fatal extraction error: %v", e.Err)
}

func (e *FatalExtractionError) Unwrap() error { return e.Err }

// FailedAttempt records one engine that was tried and failed.
type FailedAttempt struct {
	Engine string
	Kind   ErrorKind
	Err    error
}

// AggregateExtractionError is returned when every attempted engine in the
// chain failed non-fatally.
type AggregateExtractionError struct {
	Attempts []FailedAttempt
}

func (e *AggregateExtractionError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %s: %v", a.Engine, a.Kind, a.Err))
	}
	return fmt.Sprintf("all %d engines failed: %s", len(e.Attempts), strings.Join(parts, "; "))
}

func (e *AggregateExtractionError) Unwrap() error {
	if len(e.Attempts) > 0 {
		return e.Attempts[len(e.Attempts)-1].Err
	}
	return nil
}

// NoEngineError is returned by the resolver when no precedence level,
// including registry auto-detection, produced a candidate.
type NoEngineError struct {
	MIMEType   string
	Registered []string
}

func (e *NoEngineError) Error() string {
	return fmt.Sprintf("no engines available for MIME type %q, registered processors: [%s]",
		e.MIMEType, strings.Join(e.Registered, ", "))
}

// KindOf classifies an error into the closed ErrorKind set. Plain OS-level
// failures fold into their own kinds so the fatal set can name them
// without string matching on type names.
func KindOf(err error) ErrorKind {
	var (
		unsupported *UnsupportedTypeError
		validation  *SourceValidationError
		notFound    *ProcessorNotFoundError
		unavailable *ProcessorUnavailableError
		fatal       *FatalExtractionError
		aggregate   *AggregateExtractionError
		noEngine    *NoEngineError
	)
	switch {
	case errors.As(err, &fatal):
		return KindFatal
	case errors.As(err, &aggregate):
		return KindAggregate
	case errors.As(err, &unsupported):
		return KindUnsupportedType
	case errors.As(err, &validation):
		return KindInvalidSource
	case errors.As(err, &notFound):
		return KindProcessorNotFound
	case errors.As(err, &unavailable):
		return KindProcessorUnavailable
	case errors.As(err, &noEngine):
		return KindNoEngine
	case errors.Is(err, fs.ErrNotExist):
		return KindFileNotFound
	case errors.Is(err, fs.ErrPermission):
		return KindPermissionDenied
	}
	return KindEngineFailure
}

// IsUnsupportedType reports whether the error is an UnsupportedTypeError.
func IsUnsupportedType(err error) bool {
	var target *UnsupportedTypeError
	return errors.As(err, &target)
}

// IsFatal reports whether the error is a FatalExtractionError.
func IsFatal(err error) bool {
	var target *FatalExtractionError
	return errors.As(err, &target)
}
