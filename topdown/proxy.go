// Copyright (c) 2026 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package topdown

import (
	"context"

	"github.com/iotexproject/iotex-subnet/ipc"
)

type (
	// BlockHashResult is the hash of a parent block along with the hash of its non-null parent
	BlockHashResult struct {
		ParentBlockHash BlockHash
		BlockHash       BlockHash
	}

	// ValidatorChangesResult is the validator changes of a parent block
	ValidatorChangesResult struct {
		BlockHash BlockHash
		Changes   []ipc.PowerChangeRequest
	}

	// TopDownMessagesResult is the top-down messages of a parent block
	TopDownMessagesResult struct {
		BlockHash BlockHash
		Messages  []ipc.IpcEnvelope
	}

	// ParentQueryProxy queries the parent chain
	ParentQueryProxy interface {
		// ChainHeadHeight returns the height of the parent chain head
		ChainHeadHeight(context.Context) (BlockHeight, error)
		// BlockHash returns ErrNullRound if no block was produced at the height
		BlockHash(context.Context, BlockHeight) (*BlockHashResult, error)
		ValidatorChanges(context.Context, BlockHeight) (*ValidatorChangesResult, error)
		TopDownMessages(context.Context, BlockHeight) (*TopDownMessagesResult, error)
	}

	// FinalityQuery reads the parent finality committed in the subnet ledger
	FinalityQuery interface {
		LatestCommittedFinality(context.Context) (*IPCParentFinality, error)
	}
)
