// Copyright (c) 2026 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package topdown

import (
	"bytes"
	"context"
	"encoding/hex"
	"sync"

	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/iotexproject/iotex-subnet/pkg/lifecycle"
	"github.com/iotexproject/iotex-subnet/pkg/log"
	"github.com/iotexproject/iotex-subnet/pkg/routine"
)

var _ lifecycle.StartStopper = (*ParentSyncer)(nil)

type pendingBlock struct {
	height BlockHeight
	hash   BlockHash
}

// ParentSyncer polls the parent chain and feeds the finalized parent views into the provider.
// A non-null block is only pushed once the next non-null block confirms it, so that the null
// rounds in between are known.
type ParentSyncer struct {
	mu       sync.Mutex
	cfg      Config
	proxy    ParentQueryProxy
	provider *FinalityProvider
	query    FinalityQuery
	// head is the last height polled, tail the non-null block waiting for confirmation
	head   BlockHeight
	tail   *pendingBlock
	task   *routine.RecurringTask
	logger *zap.Logger
}

// NewParentSyncer creates a syncer starting from the committed finality of the provider
func NewParentSyncer(
	cfg Config,
	proxy ParentQueryProxy,
	provider *FinalityProvider,
	query FinalityQuery,
	opts ...routine.RecurringTaskOption,
) (*ParentSyncer, error) {
	committed := provider.LastCommittedFinality()
	if committed == nil {
		return nil, ErrFinalityNotReady
	}
	s := &ParentSyncer{
		cfg:      cfg,
		proxy:    proxy,
		provider: provider,
		query:    query,
		head:     committed.Height,
		logger:   log.Logger("syncer"),
	}
	s.task = routine.NewRecurringTask(s.tick, cfg.PollingInterval, opts...)
	return s, nil
}

// Start starts polling
func (s *ParentSyncer) Start(ctx context.Context) error {
	return s.task.Start(ctx)
}

// Stop stops polling
func (s *ParentSyncer) Stop(ctx context.Context) error {
	return s.task.Stop(ctx)
}

// Head returns the last polled height
func (s *ParentSyncer) Head() BlockHeight {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.head
}

func (s *ParentSyncer) tick() {
	if err := s.Sync(context.Background()); err != nil {
		s.logger.Warn("failed to sync with parent", zap.Error(err))
	}
}

// Sync polls the parent up to its finalized head, or until the cache is full
func (s *ParentSyncer) Sync(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chainHead, ok, err := s.finalizedChainHead(ctx)
	if err != nil || !ok {
		return err
	}
	if s.head > chainHead {
		s.logger.Warn("reorg detected from height", zap.Uint64("head", s.head), zap.Uint64("chainHead", chainHead))
		return s.resetCache(ctx)
	}
	for s.head < chainHead {
		if s.provider.CachedBlocks() > s.cfg.MaxCacheBlocks {
			s.logger.Debug("exceeded cache size limit")
			return nil
		}
		err := s.pollNext(ctx)
		if errors.Cause(err) == ErrReorgDetected {
			s.logger.Warn("reorg detected", zap.Error(err))
			return s.resetCache(ctx)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *ParentSyncer) finalizedChainHead(ctx context.Context) (BlockHeight, bool, error) {
	var head BlockHeight
	if err := s.retry(ctx, func() error {
		var err error
		head, err = s.proxy.ChainHeadHeight(ctx)
		return err
	}); err != nil {
		return 0, false, errors.Wrap(err, "failed to query parent chain head")
	}
	if head < s.cfg.ChainHeadDelay {
		return 0, false, nil
	}
	return head - s.cfg.ChainHeadDelay, true, nil
}

func (s *ParentSyncer) pollNext(ctx context.Context) error {
	height := s.head + 1
	parentHash, ok := s.nonNullParentHash()
	if !ok {
		return ErrFinalityNotReady
	}

	var (
		res  *BlockHashResult
		null bool
	)
	if err := s.retry(ctx, func() error {
		var err error
		res, err = s.proxy.BlockHash(ctx, height)
		if errors.Cause(err) == ErrNullRound {
			null = true
			return nil
		}
		return err
	}); err != nil {
		return errors.Wrapf(err, "failed to query parent block hash at %d", height)
	}
	if null {
		s.logger.Debug("detected null round at height", zap.Uint64("height", height))
		s.head = height
		return nil
	}
	if !bytes.Equal(res.ParentBlockHash, parentHash) {
		return errors.Wrapf(ErrReorgDetected, "parent hash at %d is %s, previous hash %s",
			height, hex.EncodeToString(res.ParentBlockHash), hex.EncodeToString(parentHash))
	}

	if s.tail != nil {
		payload, err := s.fetchData(ctx, s.tail.height, s.tail.hash)
		if err != nil {
			return err
		}
		confirm := s.tail.height
		if err := s.provider.Atomically(func(txn *Txn) error {
			latest, ok := txn.cache.UpperBound()
			if !ok {
				latest = txn.committed.Height
			}
			for h := latest + 1; h < confirm; h++ {
				if err := txn.NewParentView(h, nil); err != nil {
					return err
				}
			}
			return txn.NewParentView(confirm, payload)
		}); err != nil {
			return errors.Wrapf(err, "failed to push parent view at %d", confirm)
		}
		s.logger.Debug("non-null round at height, confirmed previous height",
			zap.Uint64("height", height), zap.Uint64("confirm", confirm))
	}
	s.tail = &pendingBlock{height: height, hash: res.BlockHash}
	s.head = height
	return nil
}

func (s *ParentSyncer) fetchData(ctx context.Context, height BlockHeight, hash BlockHash) (*ParentViewPayload, error) {
	var (
		changes *ValidatorChangesResult
		msgs    *TopDownMessagesResult
	)
	if err := s.retry(ctx, func() error {
		var err error
		changes, err = s.proxy.ValidatorChanges(ctx, height)
		return err
	}); err != nil {
		return nil, errors.Wrapf(err, "failed to query validator changes at %d", height)
	}
	if !bytes.Equal(changes.BlockHash, hash) {
		return nil, errors.Wrapf(ErrReorgDetected, "validator changes at %d are of block %s", height, hex.EncodeToString(changes.BlockHash))
	}
	if err := s.retry(ctx, func() error {
		var err error
		msgs, err = s.proxy.TopDownMessages(ctx, height)
		return err
	}); err != nil {
		return nil, errors.Wrapf(err, "failed to query top-down messages at %d", height)
	}
	if !bytes.Equal(msgs.BlockHash, hash) {
		return nil, errors.Wrapf(ErrReorgDetected, "top-down messages at %d are of block %s", height, hex.EncodeToString(msgs.BlockHash))
	}
	return &ParentViewPayload{
		BlockHash:        hash,
		ValidatorChanges: changes.Changes,
		CrossMessages:    msgs.Messages,
	}, nil
}

func (s *ParentSyncer) nonNullParentHash() (BlockHash, bool) {
	if s.tail != nil {
		return s.tail.hash, true
	}
	view := s.provider.View()
	if latest, ok := view.LatestHeight(); ok {
		return view.FirstNonNullParentHash(latest + 1)
	}
	return view.FirstNonNullParentHash(0)
}

func (s *ParentSyncer) resetCache(ctx context.Context) error {
	finality, err := s.query.LatestCommittedFinality(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to query committed finality")
	}
	if finality == nil {
		return ErrFinalityNotReady
	}
	s.reset(*finality)
	return nil
}

// Reset drops the parent view and restarts polling right above finality
func (s *ParentSyncer) Reset(finality IPCParentFinality) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset(finality)
}

func (s *ParentSyncer) reset(finality IPCParentFinality) {
	s.provider.Reset(finality)
	s.head = finality.Height
	s.tail = nil
}

func (s *ParentSyncer) retry(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.ExponentialBackOff
	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, uint64(s.cfg.ExponentialRetryLimit)), ctx))
}
