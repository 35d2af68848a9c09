// Copyright (c) 2026 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package topdown

import (
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/iotexproject/iotex-subnet/ipc"
	"github.com/iotexproject/iotex-subnet/observe"
	"github.com/iotexproject/iotex-subnet/pkg/log"
)

type (
	// View is an immutable snapshot of the cache and the committed finality
	View struct {
		cache     *SequentialCache
		committed *IPCParentFinality
	}

	// Txn is a read-modify-write transaction over a private copy of the view
	Txn struct {
		View
		events []observe.Event
	}

	// FinalityProvider holds the parent view cache and the committed finality.
	// Readers load the current view without blocking, writers commit transactions by compare-and-swap.
	FinalityProvider struct {
		cfg     Config
		state   *atomic.Pointer[View]
		emitter observe.Emitter
		logger  *zap.Logger
	}

	// ProviderOption sets an option of the provider
	ProviderOption func(*FinalityProvider)
)

// WithEmitter sets the event emitter
func WithEmitter(e observe.Emitter) ProviderOption {
	return func(p *FinalityProvider) {
		p.emitter = e
	}
}

// NewFinalityProvider creates a provider starting from the committed finality, which may be nil
func NewFinalityProvider(cfg Config, committed *IPCParentFinality, opts ...ProviderOption) *FinalityProvider {
	p := &FinalityProvider{
		cfg: cfg,
		state: atomic.NewPointer(&View{
			cache:     NewSequentialCache(),
			committed: copyFinality(committed),
		}),
		logger: log.Logger("topdown"),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.emitter == nil {
		p.emitter = observe.Default()
	}
	return p
}

// Config returns the config
func (p *FinalityProvider) Config() Config {
	return p.cfg
}

// View returns the current snapshot
func (p *FinalityProvider) View() *View {
	return p.state.Load()
}

// Atomically runs fn on a copy of the current view and commits the result.
// If another writer committed in between, fn is run again on the new view.
// An error returned by fn aborts the transaction without any change.
func (p *FinalityProvider) Atomically(fn func(*Txn) error) error {
	for {
		old := p.state.Load()
		txn := &Txn{
			View: View{
				cache:     old.cache.Clone(),
				committed: old.committed,
			},
		}
		if err := fn(txn); err != nil {
			return err
		}
		next := txn.View
		if p.state.CompareAndSwap(old, &next) {
			observe.SetCachedBlocks(next.CachedBlocks())
			for _, ev := range txn.events {
				p.emitter.Emit(ev)
			}
			return nil
		}
	}
}

// NewParentView appends the observation of a parent height, nil being a null round
func (p *FinalityProvider) NewParentView(height BlockHeight, payload *ParentViewPayload) error {
	return p.Atomically(func(txn *Txn) error {
		return txn.NewParentView(height, payload)
	})
}

// Reset clears the cache and overwrites the committed finality
func (p *FinalityProvider) Reset(finality IPCParentFinality) {
	_ = p.Atomically(func(txn *Txn) error {
		txn.Reset(finality)
		return nil
	})
	p.logger.Info("reset parent finality", zap.Uint64("height", finality.Height))
}

// SetNewFinality commits a new finality, previous must be the currently committed one
func (p *FinalityProvider) SetNewFinality(finality IPCParentFinality, previous *IPCParentFinality) error {
	return p.Atomically(func(txn *Txn) error {
		return txn.SetNewFinality(finality, previous)
	})
}

// NextProposal selects the next finality proposal from the current view
func (p *FinalityProvider) NextProposal() *FinalityProposal {
	return SelectProposal(p.View(), p.cfg)
}

// CheckProposal checks a proposal of another validator against the current view
func (p *FinalityProvider) CheckProposal(proposal IPCParentFinality) bool {
	return p.View().CheckProposal(proposal)
}

// LastCommittedFinality returns the committed finality
func (p *FinalityProvider) LastCommittedFinality() *IPCParentFinality {
	return p.View().LastCommittedFinality()
}

// LatestHeight returns the cache upper bound
func (p *FinalityProvider) LatestHeight() (BlockHeight, bool) {
	return p.View().LatestHeight()
}

// CachedBlocks returns the number of heights in the cache
func (p *FinalityProvider) CachedBlocks() uint64 {
	return p.View().CachedBlocks()
}

// ValidatorChanges returns the validator changes at height, empty for a null round
func (p *FinalityProvider) ValidatorChanges(height BlockHeight) ([]ipc.PowerChangeRequest, bool) {
	return p.View().ValidatorChanges(height)
}

// TopDownMessages returns the cross messages at height, empty for a null round
func (p *FinalityProvider) TopDownMessages(height BlockHeight) ([]ipc.IpcEnvelope, bool) {
	return p.View().TopDownMessages(height)
}

// BlockHash returns the block hash at a non-null height
func (p *FinalityProvider) BlockHash(height BlockHeight) (BlockHash, bool) {
	return p.View().BlockHash(height)
}

// FirstNonNullParentHash returns the hash of the closest non-null block below height
func (p *FinalityProvider) FirstNonNullParentHash(height BlockHeight) (BlockHash, bool) {
	return p.View().FirstNonNullParentHash(height)
}

// Cache returns the cache of the view, which must not be modified
func (v *View) Cache() *SequentialCache {
	return v.cache
}

// LastCommittedFinality returns the committed finality
func (v *View) LastCommittedFinality() *IPCParentFinality {
	return copyFinality(v.committed)
}

// LatestHeight returns the cache upper bound
func (v *View) LatestHeight() (BlockHeight, bool) {
	return v.cache.UpperBound()
}

// CachedBlocks returns the number of heights in the cache
func (v *View) CachedBlocks() uint64 {
	return uint64(v.cache.Size())
}

// ValidatorChanges returns the validator changes at height, empty for a null round
func (v *View) ValidatorChanges(height BlockHeight) ([]ipc.PowerChangeRequest, bool) {
	payload, ok := v.cache.Get(height)
	if !ok {
		return nil, false
	}
	if payload == nil {
		return []ipc.PowerChangeRequest{}, true
	}
	return payload.ValidatorChanges, true
}

// TopDownMessages returns the cross messages at height, empty for a null round
func (v *View) TopDownMessages(height BlockHeight) ([]ipc.IpcEnvelope, bool) {
	payload, ok := v.cache.Get(height)
	if !ok {
		return nil, false
	}
	if payload == nil {
		return []ipc.IpcEnvelope{}, true
	}
	return payload.CrossMessages, true
}

// BlockHash returns the block hash at a non-null height
func (v *View) BlockHash(height BlockHeight) (BlockHash, bool) {
	payload, ok := v.cache.Get(height)
	if !ok || payload == nil {
		return nil, false
	}
	return payload.BlockHash, true
}

// FirstNonNullParentHash returns the hash of the closest non-null block below height,
// falling back to the committed finality
func (v *View) FirstNonNullParentHash(height BlockHeight) (BlockHash, bool) {
	if height > 0 {
		if h, ok := v.cache.FirstNonNullAtOrBefore(height - 1); ok {
			return v.BlockHash(h)
		}
	}
	if v.committed != nil {
		return v.committed.BlockHash, true
	}
	return nil, false
}

// CheckProposal returns true if the proposal is above the committed finality and matches the cached block
func (v *View) CheckProposal(proposal IPCParentFinality) bool {
	if v.committed == nil || proposal.Height <= v.committed.Height {
		return false
	}
	latest, ok := v.cache.UpperBound()
	if !ok || latest < proposal.Height {
		return false
	}
	hash, ok := v.BlockHash(proposal.Height)
	if !ok {
		return false
	}
	return (&IPCParentFinality{Height: proposal.Height, BlockHash: hash}).Equal(&proposal)
}

// NewParentView appends the observation of a parent height, nil being a null round
func (txn *Txn) NewParentView(height BlockHeight, payload *ParentViewPayload) error {
	if payload != nil {
		if err := payload.checkSequencing(); err != nil {
			return err
		}
	}
	if txn.cache.IsEmpty() && txn.committed != nil && height != txn.committed.Height+1 {
		return errors.Wrapf(ErrNonSequentialInsert, "expected height %d after committed finality, got %d", txn.committed.Height+1, height)
	}
	return txn.cache.Append(height, payload)
}

// Reset clears the cache and overwrites the committed finality
func (txn *Txn) Reset(finality IPCParentFinality) {
	txn.cache = NewSequentialCache()
	txn.committed = copyFinality(&finality)
}

// SetNewFinality trims the cache below the new finality, keeping the entry at its height
func (txn *Txn) SetNewFinality(finality IPCParentFinality, previous *IPCParentFinality) error {
	if !txn.committed.Equal(previous) {
		return errors.Wrapf(ErrFinalityMismatch, "committed %s, previous %s", txn.committed, previous)
	}
	txn.cache.RemoveBelow(finality.Height)
	txn.committed = copyFinality(&finality)
	txn.events = append(txn.events, observe.ParentFinalityCommitted{
		BlockHeight: finality.Height,
		BlockHash:   finality.BlockHash,
	})
	return nil
}

func copyFinality(f *IPCParentFinality) *IPCParentFinality {
	if f == nil {
		return nil
	}
	hash := make([]byte, len(f.BlockHash))
	copy(hash, f.BlockHash)
	return &IPCParentFinality{Height: f.Height, BlockHash: hash}
}
