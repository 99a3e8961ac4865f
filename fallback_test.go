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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func failingStub(name string, err error) *stubEngine {
	s := newStub(name, 50, "application/pdf")
	s.extract = func(ctx context.Context, source Source, options Options) (*Result, error) {
		return nil, err
	}
	return s
}

func executorWith(cfg FallbackConfig, engines ...*stubEngine) *FallbackExecutor {
	reg := NewRegistry()
	for _, e := range engines {
		reg.Register(e)
	}
	return NewFallbackExecutor(cfg, reg)
}

func TestExecuteFirstEngineSucceeds(t *testing.T) {
	exec := executorWith(DefaultFallbackConfig(),
		newStub("primary", 50, "application/pdf"),
		newStub("backup", 40, "application/pdf"))

	source := Source{MIMEType: "application/pdf", Content: []byte("x")}
	result, err := exec.Execute(context.Background(), source, []string{"primary", "backup"}, nil, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, "content from primary", result.Content)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, "primary", result.Metadata[MetadataEngineKey])
}

func TestExecuteFallsBackWithWarning(t *testing.T) {
	exec := executorWith(DefaultFallbackConfig(),
		failingStub("primary", errors.New("parse failed")),
		newStub("backup", 40, "application/pdf"))

	source := Source{MIMEType: "application/pdf", Content: []byte("x")}
	result, err := exec.Execute(context.Background(), source, []string{"primary", "backup"}, nil, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, "content from backup", result.Content)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, `used fallback engine "backup" after [primary] failed`, result.Warnings[0])
	assert.Equal(t, "backup", result.Metadata[MetadataEngineKey])
}

func TestExecuteAllEnginesFail(t *testing.T) {
	exec := executorWith(DefaultFallbackConfig(),
		failingStub("a", errors.New("boom a")),
		failingStub("b", errors.New("boom b")))

	source := Source{MIMEType: "application/pdf", Content: []byte("x")}
	result, err := exec.Execute(context.Background(), source, []string{"a", "b"}, nil, nil, 0)
	require.Error(t, err)
	assert.Nil(t, result)

	var agg *AggregateExtractionError
	require.ErrorAs(t, err, &agg)
	require.Len(t, agg.Attempts, 2)
	assert.Equal(t, "a", agg.Attempts[0].Engine)
	assert.Equal(t, "b", agg.Attempts[1].Engine)
	assert.Equal(t, KindAggregate, KindOf(err))
	assert.Contains(t, err.Error(), "a")
	assert.Contains(t, err.Error(), "b")
}

func TestExecuteFatalErrorAbortsChain(t *testing.T) {
	thirdCalled := false
	third := newStub("c", 40, "application/pdf")
	third.extract = func(ctx context.Context, source Source, options Options) (*Result, error) {
		thirdCalled = true
		return &Result{Content: "ok"}, nil
	}

	exec := executorWith(DefaultFallbackConfig(),
		failingStub("a", errors.New("recoverable")),
		failingStub("b", &FatalExtractionError{Engine: "b", Err: errors.New("corrupt input")}),
		third)

	source := Source{MIMEType: "application/pdf", Content: []byte("x")}
	_, err := exec.Execute(context.Background(), source, []string{"a", "b", "c"}, nil, nil, 0)
	require.Error(t, err)

	var fatal *FatalExtractionError
	require.ErrorAs(t, err, &fatal)
	assert.Equal(t, "b", fatal.Engine)
	assert.False(t, thirdCalled, "engines after a fatal failure must not run")
}

func TestExecuteConfiguredFatalKind(t *testing.T) {
	cfg := DefaultFallbackConfig()
	cfg.FatalKinds = []ErrorKind{KindUnsupportedType}
	exec := executorWith(cfg,
		failingStub("a", &UnsupportedTypeError{Path: "x.bin"}),
		newStub("b", 40, "application/pdf"))

	source := Source{MIMEType: "application/pdf", Content: []byte("x")}
	_, err := exec.Execute(context.Background(), source, []string{"a", "b"}, nil, nil, 0)
	var fatal *FatalExtractionError
	require.ErrorAs(t, err, &fatal)
	assert.Equal(t, "a", fatal.Engine)
}

func TestExecuteOnErrorFailAbortsImmediately(t *testing.T) {
	cfg := DefaultFallbackConfig()
	cfg.OnError = OnErrorFail

	exec := executorWith(cfg,
		failingStub("a", errors.New("boom")),
		newStub("b", 40, "application/pdf"))

	source := Source{MIMEType: "application/pdf", Content: []byte("x")}
	_, err := exec.Execute(context.Background(), source, []string{"a", "b"}, nil, nil, 0)
	require.Error(t, err)

	var engErr *EngineError
	require.ErrorAs(t, err, &engErr)
	assert.Equal(t, "a", engErr.Engine)
}

func TestExecuteDisabledTriesFirstOnly(t *testing.T) {
	cfg := DefaultFallbackConfig()
	cfg.Enabled = false

	exec := executorWith(cfg,
		failingStub("a", errors.New("boom")),
		newStub("b", 40, "application/pdf"))

	source := Source{MIMEType: "application/pdf", Content: []byte("x")}
	_, err := exec.Execute(context.Background(), source, []string{"a", "b"}, nil, nil, 0)
	require.Error(t, err)

	var agg *AggregateExtractionError
	require.ErrorAs(t, err, &agg)
	assert.Len(t, agg.Attempts, 1)
}

func TestExecuteMaxAttemptsBoundsChain(t *testing.T) {
	cfg := DefaultFallbackConfig()
	cfg.MaxAttempts = 1

	exec := executorWith(cfg,
		failingStub("a", errors.New("boom")),
		newStub("b", 40, "application/pdf"))

	source := Source{MIMEType: "application/pdf", Content: []byte("x")}
	_, err := exec.Execute(context.Background(), source, []string{"a", "b"}, nil, nil, 0)
	require.Error(t, err)

	var agg *AggregateExtractionError
	require.ErrorAs(t, err, &agg)
	require.Len(t, agg.Attempts, 1)
	assert.Equal(t, "a", agg.Attempts[0].Engine)
}

func TestExecuteUnknownEngineIsNonFatal(t *testing.T) {
	exec := executorWith(DefaultFallbackConfig(),
		newStub("b", 40, "application/pdf"))

	source := Source{MIMEType: "application/pdf", Content: []byte("x")}
	result, err := exec.Execute(context.Background(), source, []string{"missing", "b"}, nil, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, "content from b", result.Content)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "missing")
}

func TestExecuteUnavailableEngineSkipped(t *testing.T) {
	offline := newStub("offline", 60, "application/pdf")
	offline.available = false

	exec := executorWith(DefaultFallbackConfig(),
		offline,
		newStub("b", 40, "application/pdf"))

	source := Source{MIMEType: "application/pdf", Content: []byte("x")}
	result, err := exec.Execute(context.Background(), source, []string{"offline", "b"}, nil, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, "content from b", result.Content)
}

func TestExecuteUnavailableEngineAloneReportsRequirement(t *testing.T) {
	offline := newStub("offline", 60, "application/pdf")
	offline.available = false
	offline.caps.Requires = []string{"native-library"}

	exec := executorWith(DefaultFallbackConfig(), offline)

	source := Source{MIMEType: "application/pdf", Content: []byte("x")}
	_, err := exec.Execute(context.Background(), source, []string{"offline"}, nil, nil, 0)
	require.Error(t, err)

	var agg *AggregateExtractionError
	require.ErrorAs(t, err, &agg)
	require.Len(t, agg.Attempts, 1)
	assert.Equal(t, KindProcessorUnavailable, agg.Attempts[0].Kind)

	var unavail *ProcessorUnavailableError
	require.ErrorAs(t, agg.Attempts[0].Err, &unavail)
	assert.Equal(t, []string{"native-library"}, unavail.Requires)
}

func TestExecuteTimeoutFailsAttempt(t *testing.T) {
	slow := newStub("slow", 50, "application/pdf")
	slow.extract = func(ctx context.Context, source Source, options Options) (*Result, error) {
		select {
		case <-time.After(5 * time.Second):
			return &Result{Content: "too late"}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	exec := executorWith(DefaultFallbackConfig(),
		slow,
		newStub("fast", 40, "application/pdf"))

	source := Source{MIMEType: "application/pdf", Content: []byte("x")}
	result, err := exec.Execute(context.Background(), source, []string{"slow", "fast"},
		nil, nil, 50*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "content from fast", result.Content)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "slow")
}

func TestExecuteTimeoutAloneWrapsDeadline(t *testing.T) {
	slow := newStub("slow", 50, "application/pdf")
	slow.extract = func(ctx context.Context, source Source, options Options) (*Result, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	exec := executorWith(DefaultFallbackConfig(), slow)

	source := Source{MIMEType: "application/pdf", Content: []byte("x")}
	_, err := exec.Execute(context.Background(), source, []string{"slow"},
		nil, nil, 50*time.Millisecond)
	require.Error(t, err)

	var agg *AggregateExtractionError
	require.ErrorAs(t, err, &agg)
	require.Len(t, agg.Attempts, 1)
	assert.ErrorIs(t, agg.Attempts[0].Err, context.DeadlineExceeded)
}

func TestExecuteMergesEngineOptions(t *testing.T) {
	var seen Options
	capture := newStub("capture", 50, "application/pdf")
	capture.extract = func(ctx context.Context, source Source, options Options) (*Result, error) {
		seen = options
		return &Result{Content: "ok"}, nil
	}

	exec := executorWith(DefaultFallbackConfig(), capture)

	global := Options{"tables": true, "images": true}
	perEngine := map[string]Options{
		"capture": {"images": false, "ocr": "auto"},
	}

	source := Source{MIMEType: "application/pdf", Content: []byte("x")}
	_, err := exec.Execute(context.Background(), source, []string{"capture"}, global, perEngine, 0)
	require.NoError(t, err)

	// Per-engine values override globals; untouched keys survive.
	assert.Equal(t, Options{"tables": true, "images": false, "ocr": "auto"}, seen)
}

func TestExecutePreservesExplicitEngineMetadata(t *testing.T) {
	tagged := newStub("tagged", 50, "application/pdf")
	tagged.extract = func(ctx context.Context, source Source, options Options) (*Result, error) {
		return &Result{Content: "ok", Metadata: map[string]any{MetadataEngineKey: "inner"}}, nil
	}

	exec := executorWith(DefaultFallbackConfig(), tagged)

	source := Source{MIMEType: "application/pdf", Content: []byte("x")}
	result, err := exec.Execute(context.Background(), source, []string{"tagged"}, nil, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, "inner", result.Metadata[MetadataEngineKey])
}
