// Copyright (c) 2026 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package bottomup

import (
	"context"
	"crypto/ecdsa"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/iotexproject/iotex-subnet/cometbft"
	"github.com/iotexproject/iotex-subnet/ipc"
)

type (
	// Ledger is the gateway state of the block being executed
	Ledger interface {
		BlockHeight() uint64
		// BlockHash returns false if the hash of the executing block is not known yet
		BlockHash() (common.Hash, bool)
		ChainID() uint64
		SubnetID() (ipc.SubnetID, error)
		BottomUpCheckPeriod() (uint64, error)
		// BottomUpMsgBatch returns a batch with zero height if none exists at height
		BottomUpMsgBatch(height uint64) (ipc.BottomUpMsgBatch, error)
		CurrentPowerTable() (uint64, ipc.PowerTable, error)
		// ApplyValidatorChanges applies the staged changes, returning 0 if there was none
		ApplyValidatorChanges() (uint64, error)
		DecreaseCircSupply(amount *uint256.Int) error
		CommitActivity() (ipc.FullActivityRollup, error)
		CreateBottomUpCheckpoint(cp ipc.BottomUpCheckpoint, signers ipc.PowerTable, msgs []ipc.IpcEnvelope, activity []ipc.ValidatorData) ([]types.Log, error)
		IncompleteCheckpoints() ([]ipc.BottomUpCheckpoint, error)
		CheckpointSignatories(height uint64) ([]common.Address, error)
		IsAnchored() (bool, error)
		CheckpointInfo(height uint64) (ipc.QuorumInfo, error)
		// Snapshot returns the point the ledger writes of the executing block can be reverted to
		Snapshot() int
		Revert(snapshot int) error
	}

	// ConsensusClient is the external BFT consensus client
	ConsensusClient interface {
		Status(ctx context.Context) (*cometbft.Status, error)
		Validators(ctx context.Context, height uint64) (ipc.PowerTable, error)
		LatestCommit(ctx context.Context) (uint64, error)
	}

	// Broadcaster submits transactions to the subnet
	Broadcaster interface {
		FevmInvoke(ctx context.Context, to common.Address, calldata []byte, chainID uint64) (common.Hash, error)
		RetryDelay() time.Duration
	}

	// ValidatorContext holds the signing key of a validator node
	ValidatorContext struct {
		SecretKey   *ecdsa.PrivateKey
		PublicKey   []byte
		Address     common.Address
		Broadcaster Broadcaster
	}
)

// NewValidatorContext creates the context of the validator owning sk
func NewValidatorContext(sk *ecdsa.PrivateKey, broadcaster Broadcaster) *ValidatorContext {
	return &ValidatorContext{
		SecretKey:   sk,
		PublicKey:   crypto.FromECDSAPub(&sk.PublicKey),
		Address:     crypto.PubkeyToAddress(sk.PublicKey),
		Broadcaster: broadcaster,
	}
}
