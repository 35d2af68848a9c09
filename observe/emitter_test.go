// Copyright (c) 2026 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package observe

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestEmitter(t *testing.T) {
	r := require.New(t)

	core, logs := observer.New(zap.InfoLevel)
	rec := NewRecorder(NewEmitter(zap.New(core)))

	created := testutil.ToFloat64(_checkpointMtc.WithLabelValues("created"))
	rec.Emit(CheckpointCreated{Height: 10, Hash: []byte{1}, MsgCount: 2, ConfigNumber: 3})
	r.Equal(created+1, testutil.ToFloat64(_checkpointMtc.WithLabelValues("created")))

	rec.Emit(ParentFinalityCommitted{BlockHeight: 42, BlockHash: []byte{2}})
	r.Equal(float64(42), testutil.ToFloat64(_parentFinalityMtc))

	violations := testutil.ToFloat64(_invariantMtc.WithLabelValues("test"))
	rec.Emit(InvariantViolation{Invariant: "test", Height: 1})
	r.Equal(violations+1, testutil.ToFloat64(_invariantMtc.WithLabelValues("test")))

	r.Len(rec.Events(), 3)
	r.Len(rec.Named("CheckpointCreated"), 1)
	r.Equal(1, logs.FilterMessage("CheckpointCreated").Len())
	r.Equal(1, logs.FilterMessage("invariant violated").Len())
	entry := logs.FilterMessage("CheckpointCreated").All()[0]
	r.Equal(uint64(10), entry.ContextMap()["height"])
	r.Equal("01", entry.ContextMap()["hash"])
}

func TestSetCachedBlocks(t *testing.T) {
	SetCachedBlocks(7)
	require.Equal(t, float64(7), testutil.ToFloat64(_cachedBlocksMtc))
	SetCachedBlocks(0)
	require.Equal(t, float64(0), testutil.ToFloat64(_cachedBlocksMtc))
}
