// Copyright (c) 2026 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package topdown

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/pkg/errors"

	"github.com/iotexproject/iotex-subnet/ipc"
)

// ProposalVersion is the version of the finality proposal payload
const ProposalVersion = 1

type (
	// BlockHeight is the height of a parent chain block
	BlockHeight = uint64

	// BlockHash is the opaque hash of a parent chain block
	BlockHash = []byte

	// ParentViewPayload is the observation of one parent block. A nil payload is a null round.
	ParentViewPayload struct {
		BlockHash        BlockHash
		ValidatorChanges []ipc.PowerChangeRequest
		CrossMessages    []ipc.IpcEnvelope
	}

	// IPCParentFinality is the parent state committed as final by the subnet
	IPCParentFinality struct {
		Height    BlockHeight
		BlockHash BlockHash
	}

	// FinalityProposal seals the side effects of the parent heights in [committed, Height)
	FinalityProposal struct {
		Version          uint8
		Height           BlockHeight
		BlockHash        BlockHash
		CrossMessages    []ipc.IpcEnvelope
		ValidatorChanges []ipc.PowerChangeRequest
	}
)

// Equal compares two finalities
func (f *IPCParentFinality) Equal(other *IPCParentFinality) bool {
	if f == nil || other == nil {
		return f == other
	}
	return f.Height == other.Height && bytes.Equal(f.BlockHash, other.BlockHash)
}

func (f *IPCParentFinality) String() string {
	if f == nil {
		return "<nil>"
	}
	return fmt.Sprintf("{height: %d, hash: %s}", f.Height, hex.EncodeToString(f.BlockHash))
}

// Finality returns the finality the proposal votes for
func (p *FinalityProposal) Finality() IPCParentFinality {
	return IPCParentFinality{Height: p.Height, BlockHash: p.BlockHash}
}

func (p *ParentViewPayload) checkSequencing() error {
	for i := 1; i < len(p.CrossMessages); i++ {
		if p.CrossMessages[i].LocalNonce <= p.CrossMessages[i-1].LocalNonce {
			return errors.Wrapf(ErrInvalidSequencing, "nonce %d after %d",
				p.CrossMessages[i].LocalNonce, p.CrossMessages[i-1].LocalNonce)
		}
	}
	for i := 1; i < len(p.ValidatorChanges); i++ {
		if p.ValidatorChanges[i].ConfigurationNumber <= p.ValidatorChanges[i-1].ConfigurationNumber {
			return errors.Wrapf(ErrInvalidSequencing, "configuration number %d after %d",
				p.ValidatorChanges[i].ConfigurationNumber, p.ValidatorChanges[i-1].ConfigurationNumber)
		}
	}
	return nil
}
