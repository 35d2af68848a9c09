// Copyright (c) 2026 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package ipc

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/iotexproject/iotex-subnet/pkg/merkle"
)

type (
	// Commitment commits to the batch of messages carried by a checkpoint
	Commitment struct {
		TotalNumMsgs uint64
		MsgsRoot     [32]byte
	}

	// AggregatedStats summarizes block production
	AggregatedStats struct {
		TotalActiveValidators   uint64
		TotalNumBlocksCommitted uint64
	}

	// ValidatorData is the block production of one validator
	ValidatorData struct {
		Validator       common.Address
		BlocksCommitted uint64
	}

	// FullSummary is the full consensus activity of a checkpoint period
	FullSummary struct {
		Stats AggregatedStats
		Data  []ValidatorData
	}

	// CompressedSummary replaces the validator data by its merkle root
	CompressedSummary struct {
		Stats              AggregatedStats
		DataRootCommitment [32]byte
	}

	// FullActivityRollup is the activity rollup as tracked by the ledger
	FullActivityRollup struct {
		Consensus FullSummary
	}

	// CompressedActivityRollup is the activity rollup carried by a checkpoint
	CompressedActivityRollup struct {
		Consensus CompressedSummary
	}

	// BottomUpCheckpoint is the artifact submitted to the parent chain
	BottomUpCheckpoint struct {
		SubnetID                SubnetID
		BlockHeight             uint64
		BlockHash               [32]byte
		NextConfigurationNumber uint64
		Msgs                    Commitment
		Activity                CompressedActivityRollup
	}

	// BottomUpMsgBatch is the batch of messages leaving the subnet at a height
	BottomUpMsgBatch struct {
		SubnetID    SubnetID
		BlockHeight uint64
		Msgs        []IpcEnvelope
	}

	// QuorumInfo is the signature quorum status of a checkpoint
	QuorumInfo struct {
		Hash          [32]byte
		RootHash      [32]byte
		Threshold     uint64
		CurrentWeight uint64
		Reached       bool
	}
)

// Compressed commits to the validator data by a merkle root of (address, blocks) leaves
func (r *FullActivityRollup) Compressed() (CompressedActivityRollup, error) {
	c := CompressedActivityRollup{
		Consensus: CompressedSummary{Stats: r.Consensus.Stats},
	}
	if len(r.Consensus.Data) == 0 {
		return c, nil
	}
	leaves := make([][]byte, 0, len(r.Consensus.Data))
	for _, d := range r.Consensus.Data {
		leaf, err := EncodeValidatorData(d)
		if err != nil {
			return c, err
		}
		leaves = append(leaves, leaf)
	}
	tree, err := merkle.NewTree(leaves)
	if err != nil {
		return c, errors.Wrap(err, "failed to build activity tree")
	}
	c.Consensus.DataRootCommitment = tree.Root()
	return c, nil
}

// Hash returns the hash validators sign for the checkpoint
func (cp *BottomUpCheckpoint) Hash() (common.Hash, error) {
	return CheckpointHash(cp)
}

// MsgsRoot returns the merkle root of the encoded envelopes, or the zero root if there are none
func MsgsRoot(msgs []IpcEnvelope) ([32]byte, error) {
	if len(msgs) == 0 {
		return [32]byte{}, nil
	}
	leaves := make([][]byte, 0, len(msgs))
	for i := range msgs {
		leaf, err := EncodeEnvelope(&msgs[i])
		if err != nil {
			return [32]byte{}, errors.Wrapf(err, "failed to encode envelope %d", i)
		}
		leaves = append(leaves, leaf)
	}
	tree, err := merkle.NewTree(leaves)
	if err != nil {
		return [32]byte{}, err
	}
	return tree.Root(), nil
}
