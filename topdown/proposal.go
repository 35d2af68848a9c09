// Copyright (c) 2026 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package topdown

import (
	"github.com/iotexproject/iotex-subnet/ipc"
)

// SelectProposal returns the next height safe to propose as final, or nil if there is none.
//
// The candidate is capped by MaxProposalRange above the committed finality. The newest non-null
// block at or before the candidate is the anchor, and the proposal is the newest non-null block
// at least ProposalDelay blocks below the anchor. A null round at the tip does not block progress,
// while the delay still applies to the anchor regardless of the null rounds after it.
func SelectProposal(v *View, cfg Config) *FinalityProposal {
	latest, ok := v.cache.UpperBound()
	if !ok || v.committed == nil {
		return nil
	}
	committed := v.committed.Height
	candidate := committed + cfg.MaxProposalRange
	if candidate > latest {
		candidate = latest
	}
	anchor, ok := v.cache.FirstNonNullAtOrBefore(candidate)
	if !ok || anchor < cfg.ProposalDelay {
		return nil
	}
	target, ok := v.cache.FirstNonNullAtOrBefore(anchor - cfg.ProposalDelay)
	if !ok || target <= committed {
		return nil
	}
	payload, _ := v.cache.Get(target)
	return v.sealProposal(target, payload.BlockHash)
}

// ProposalAt returns the proposal of a finality accepted by CheckProposal, with the side effects it executes
func (v *View) ProposalAt(finality IPCParentFinality) (*FinalityProposal, bool) {
	if !v.CheckProposal(finality) {
		return nil, false
	}
	return v.sealProposal(finality.Height, finality.BlockHash), true
}

func (v *View) sealProposal(target BlockHeight, hash BlockHash) *FinalityProposal {
	proposal := &FinalityProposal{
		Version:          ProposalVersion,
		Height:           target,
		BlockHash:        hash,
		CrossMessages:    []ipc.IpcEnvelope{},
		ValidatorChanges: []ipc.PowerChangeRequest{},
	}
	// side effects of a height are executed with the next commit, so the range is [committed, target)
	from := v.committed.Height
	if lower, _ := v.cache.LowerBound(); lower > from {
		from = lower
	}
	for h := from; h < target; h++ {
		p, ok := v.cache.Get(h)
		if !ok || p == nil {
			continue
		}
		proposal.CrossMessages = append(proposal.CrossMessages, p.CrossMessages...)
		proposal.ValidatorChanges = append(proposal.ValidatorChanges, p.ValidatorChanges...)
	}
	return proposal
}
