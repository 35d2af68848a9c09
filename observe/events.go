// Copyright (c) 2026 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package observe

import (
	"encoding/hex"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

type (
	// Event is a domain event emitted by the finality and checkpoint engine
	Event interface {
		Name() string
		Fields() []zap.Field
	}

	// CheckpointSignedRole tells whether the signature is our own or a peer's
	CheckpointSignedRole string

	// CheckpointCreated is emitted when a bottom-up checkpoint is stored
	CheckpointCreated struct {
		Height       uint64
		Hash         []byte
		MsgCount     int
		ConfigNumber uint64
	}

	// CheckpointSigned is emitted when a signature is submitted for a checkpoint
	CheckpointSigned struct {
		Role      CheckpointSignedRole
		Height    uint64
		Hash      []byte
		Validator common.Address
	}

	// CheckpointFinalized is emitted when a checkpoint reached its signature quorum
	CheckpointFinalized struct {
		Height uint64
		Hash   []byte
	}

	// ParentFinalityCommitted is emitted when a new parent finality is committed
	ParentFinalityCommitted struct {
		BlockHeight uint64
		BlockHash   []byte
	}

	// TracingError is emitted when an event could not be produced
	TracingError struct {
		AffectedEvent string
		Reason        string
	}

	// InvariantViolation is emitted when a checked invariant does not hold
	InvariantViolation struct {
		Invariant string
		Height    uint64
	}
)

// signer roles
const (
	RoleOwn  CheckpointSignedRole = "own"
	RolePeer CheckpointSignedRole = "peer"
)

// Name implements Event
func (CheckpointCreated) Name() string { return "CheckpointCreated" }

// Fields implements Event
func (e CheckpointCreated) Fields() []zap.Field {
	return []zap.Field{
		zap.Uint64("height", e.Height),
		zap.String("hash", hex.EncodeToString(e.Hash)),
		zap.Int("msgCount", e.MsgCount),
		zap.Uint64("configNumber", e.ConfigNumber),
	}
}

// Name implements Event
func (CheckpointSigned) Name() string { return "CheckpointSigned" }

// Fields implements Event
func (e CheckpointSigned) Fields() []zap.Field {
	return []zap.Field{
		zap.String("role", string(e.Role)),
		zap.Uint64("height", e.Height),
		zap.String("hash", hex.EncodeToString(e.Hash)),
		zap.String("validator", e.Validator.Hex()),
	}
}

// Name implements Event
func (CheckpointFinalized) Name() string { return "CheckpointFinalized" }

// Fields implements Event
func (e CheckpointFinalized) Fields() []zap.Field {
	return []zap.Field{
		zap.Uint64("height", e.Height),
		zap.String("hash", hex.EncodeToString(e.Hash)),
	}
}

// Name implements Event
func (ParentFinalityCommitted) Name() string { return "ParentFinalityCommitted" }

// Fields implements Event
func (e ParentFinalityCommitted) Fields() []zap.Field {
	return []zap.Field{
		zap.Uint64("blockHeight", e.BlockHeight),
		zap.String("blockHash", hex.EncodeToString(e.BlockHash)),
	}
}

// Name implements Event
func (TracingError) Name() string { return "TracingError" }

// Fields implements Event
func (e TracingError) Fields() []zap.Field {
	return []zap.Field{
		zap.String("affectedEvent", e.AffectedEvent),
		zap.String("reason", e.Reason),
	}
}

// Name implements Event
func (InvariantViolation) Name() string { return "InvariantViolation" }

// Fields implements Event
func (e InvariantViolation) Fields() []zap.Field {
	return []zap.Field{
		zap.String("invariant", e.Invariant),
		zap.Uint64("height", e.Height),
	}
}
