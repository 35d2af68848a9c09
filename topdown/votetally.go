// Copyright (c) 2026 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package topdown

import (
	"encoding/hex"
	"sync"

	"github.com/pkg/errors"

	"github.com/iotexproject/iotex-subnet/ipc"
)

// VoteTally tallies validator votes on parent blocks above the last finalized one
type VoteTally struct {
	mu         sync.RWMutex
	powerTable map[string]uint64
	// chain[0] is the last finalized block, a nil hash is a null round
	start BlockHeight
	chain []BlockHash
	// height -> block hash -> validators
	votes map[BlockHeight]map[string]map[string]struct{}
}

// NewVoteTally creates a tally on top of the last finalized block
func NewVoteTally(table ipc.PowerTable, lastFinalized IPCParentFinality) *VoteTally {
	t := &VoteTally{
		start: lastFinalized.Height,
		chain: []BlockHash{lastFinalized.BlockHash},
		votes: map[BlockHeight]map[string]map[string]struct{}{},
	}
	t.powerTable = toWeights(table)
	return t
}

func toWeights(table ipc.PowerTable) map[string]uint64 {
	weights := make(map[string]uint64, len(table))
	for _, v := range table {
		weights[v.Key()] = v.Power
	}
	return weights
}

// QuorumThreshold is the weight a block needs to exceed to be final
func (t *VoteTally) QuorumThreshold() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.threshold()
}

func (t *VoteTally) threshold() uint64 {
	var total uint64
	for _, w := range t.powerTable {
		total += w
	}
	return total * 2 / 3
}

// LastFinalizedHeight returns the height of the last finalized block
func (t *VoteTally) LastFinalizedHeight() BlockHeight {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.start
}

// LatestHeight returns the height of the last block added to the chain
func (t *VoteTally) LatestHeight() BlockHeight {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.start + uint64(len(t.chain)) - 1
}

// AddBlock extends the chain with the next parent block, a nil hash being a null round
func (t *VoteTally) AddBlock(height BlockHeight, hash BlockHash) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	next := t.start + uint64(len(t.chain))
	if height != next {
		return errors.Wrapf(ErrUnexpectedBlock, "expected block height %d, got %d", next, height)
	}
	t.chain = append(t.chain, hash)
	return nil
}

// AddVote records the vote of a validator, returning false if the vote is stale or a duplicate
func (t *VoteTally) AddVote(validator []byte, height BlockHeight, hash BlockHash) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if height < t.start {
		return false, nil
	}
	key := string(validator)
	if _, ok := t.powerTable[key]; !ok {
		return false, errors.Wrapf(ErrUnknownValidator, "validator %s", hex.EncodeToString(validator))
	}
	atHeight, ok := t.votes[height]
	if !ok {
		atHeight = map[string]map[string]struct{}{}
		t.votes[height] = atHeight
	}
	for other, voters := range atHeight {
		if _, voted := voters[key]; voted && other != string(hash) {
			return false, errors.Wrapf(ErrEquivocation, "validator %s at height %d: %s != %s",
				hex.EncodeToString(validator), height, hex.EncodeToString(hash), hex.EncodeToString([]byte(other)))
		}
	}
	voters, ok := atHeight[string(hash)]
	if !ok {
		voters = map[string]struct{}{}
		atHeight[string(hash)] = voters
	}
	if _, ok := voters[key]; ok {
		return false, nil
	}
	voters[key] = struct{}{}
	return true, nil
}

// FindQuorum returns the highest block whose voters, counting votes on the blocks above it, exceed the threshold
func (t *VoteTally) FindQuorum() *IPCParentFinality {
	t.mu.RLock()
	defer t.mu.RUnlock()
	threshold := t.threshold()
	var weight uint64
	voters := map[string]struct{}{}
	for i := len(t.chain) - 1; i > 0; i-- {
		hash := t.chain[i]
		if hash == nil {
			continue
		}
		height := t.start + uint64(i)
		atHeight, ok := t.votes[height]
		if !ok {
			continue
		}
		for vk := range atHeight[string(hash)] {
			if _, counted := voters[vk]; !counted {
				voters[vk] = struct{}{}
				weight += t.powerTable[vk]
			}
		}
		if weight > threshold {
			return &IPCParentFinality{Height: height, BlockHash: hash}
		}
	}
	return nil
}

// SetFinalized moves the finalized block up and prunes the votes below it
func (t *VoteTally) SetFinalized(height BlockHeight, hash BlockHash) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var rest []BlockHash
	if height >= t.start {
		if idx := height - t.start + 1; idx < uint64(len(t.chain)) {
			rest = t.chain[idx:]
		}
	}
	chain := make([]BlockHash, 0, len(rest)+1)
	chain = append(chain, hash)
	t.chain = append(chain, rest...)
	t.start = height
	for h := range t.votes {
		if h < height {
			delete(t.votes, h)
		}
	}
}

// SetPowerTable replaces the voting weights
func (t *VoteTally) SetPowerTable(table ipc.PowerTable) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.powerTable = toWeights(table)
}
