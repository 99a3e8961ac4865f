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
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// FallbackExecutor walks an engine chain sequentially, applying per-attempt
// timeouts and the fatal/retryable classification policy, and returns the
// first success or an aggregate failure.
type FallbackExecutor struct {
	config   FallbackConfig
	registry *Registry
}

// NewFallbackExecutor builds an executor over the given fallback
// configuration and registry.
func NewFallbackExecutor(config FallbackConfig, registry *Registry) *FallbackExecutor {
	return &FallbackExecutor{config: config, registry: registry}
}

// isFatal reports whether an error aborts the remaining chain: either the
// dedicated fatal error type, or any error whose kind is in the
// configured fatal set.
func (e *FallbackExecutor) isFatal(err error) bool {
	if IsFatal(err) {
		return true
	}
	return e.config.isFatalKind(KindOf(err))
}

// Execute runs the engine chain against the source. Global options merge
// with each engine's entry in engineOptions per attempt; each attempt
// runs under its own timeout. Unknown or unavailable engine names fail
// the attempt like any other engine error and remain subject to the
// on_error policy.
//
// Returns the first successful Result, a FatalExtractionError when a
// fatal failure occurred, or an AggregateExtractionError when every
// attempted engine failed non-fatally.
func (e *FallbackExecutor) Execute(
	ctx context.Context,
	source Source,
	engines []string,
	options Options,
	engineOptions map[string]Options,
	timeout time.Duration,
) (*Result, error) {
	if !e.config.Enabled && len(engines) > 1 {
		// Fallback disabled: only the first engine is ever tried.
		engines = engines[:1]
	}

	attempts := len(engines)
	if e.config.MaxAttempts < attempts {
		attempts = e.config.MaxAttempts
	}

	var failed []FailedAttempt
	for i := 0; i < attempts; i++ {
		name := engines[i]
		merged := options.merged(engineOptions[name])

		result, err := e.executeSingle(ctx, name, source, merged, timeout)
		if err == nil {
			if i > 0 {
				prior := make([]string, 0, len(failed))
				for _, f := range failed {
					prior = append(prior, f.Engine)
				}
				result.Warnings = append(result.Warnings, fmt.Sprintf(
					"used fallback engine %q after [%s] failed", name, strings.Join(prior, ", ")))
			}
			return result, nil
		}

		if e.isFatal(err) {
			log.Error().Str("engine", name).Err(err).Msg("fatal error from engine")
			return nil, &FatalExtractionError{Engine: name, Err: err}
		}

		failed = append(failed, FailedAttempt{Engine: name, Kind: KindOf(err), Err: err})

		switch e.config.OnError {
		case OnErrorFail:
			return nil, &EngineError{Engine: name, Err: err}
		case OnErrorWarn:
			log.Warn().Str("engine", name).Err(err).Msg("engine failed, trying next")
		default:
			// "next" (or anything else): silent fallback.
			log.Debug().Str("engine", name).Err(err).Msg("engine failed silently")
		}
	}

	return nil, &AggregateExtractionError{Attempts: failed}
}

// executeSingle resolves one engine by name and invokes it under a
// timeout. A timeout is indistinguishable from the engine failing.
func (e *FallbackExecutor) executeSingle(
	ctx context.Context,
	name string,
	source Source,
	options Options,
	timeout time.Duration,
) (*Result, error) {
	proc := e.registry.Get(name)
	if proc == nil {
		return nil, &ProcessorNotFoundError{Name: name, Available: e.registry.ListNames()}
	}
	if !proc.Available() {
		return nil, &ProcessorUnavailableError{Name: name, Requires: proc.Capabilities().Requires}
	}

	log.Info().Str("engine", name).Str("mime_type", source.MIMEType).Msg("extracting")

	attemptCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type outcome struct {
		result *Result
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := proc.Extract(attemptCtx, source, options)
		done <- outcome{result, err}
	}()

	var result *Result
	select {
	case out := <-done:
		if out.err != nil {
			return nil, &EngineError{Engine: name, Err: out.err}
		}
		result = out.result
	case <-attemptCtx.Done():
		// Cancellation and deadline expiry behave exactly like the
		// engine raising an error.
		return nil, &EngineError{Engine: name, Err: attemptCtx.Err()}
	}

	if result.Metadata == nil {
		result.Metadata = map[string]any{}
	}
	if _, ok := result.Metadata[MetadataEngineKey]; !ok {
		result.Metadata[MetadataEngineKey] = name
	}
	return result, nil
}
