// Copyright (c) 2026 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package chainservice

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/iotexproject/iotex-subnet/bottomup"
	"github.com/iotexproject/iotex-subnet/broadcast"
	"github.com/iotexproject/iotex-subnet/cometbft"
	"github.com/iotexproject/iotex-subnet/config"
	"github.com/iotexproject/iotex-subnet/db"
	"github.com/iotexproject/iotex-subnet/ipc"
	"github.com/iotexproject/iotex-subnet/ledger"
	"github.com/iotexproject/iotex-subnet/observe"
	"github.com/iotexproject/iotex-subnet/pkg/log"
	"github.com/iotexproject/iotex-subnet/pkg/routine"
	"github.com/iotexproject/iotex-subnet/topdown"
)

var (
	// ErrInvalidFinality indicates the finality does not match the parent view of the node
	ErrInvalidFinality = errors.New("invalid parent finality")
	// ErrNotReady indicates the node has not observed the parent chain yet
	ErrNotReady = errors.New("chain service not ready")
)

// InvariantParentViewInSync is reported when the parent view did not commit the finality the ledger committed
const InvariantParentViewInSync = "parent_view_in_sync"

// ChainService runs the finality and checkpoint engine of a subnet node on top of its gateway ledger.
type ChainService struct {
	cfg       config.Config
	gateway   *ledger.Gateway
	proxy     topdown.ParentQueryProxy
	provider  *topdown.FinalityProvider
	syncer    *topdown.ParentSyncer
	tally     *topdown.VoteTally
	manager   *bottomup.Manager
	validator *bottomup.ValidatorContext
	emitter   observe.Emitter
	taskOpts  []routine.RecurringTaskOption
	logger    *zap.Logger
}

type optionParams struct {
	isTesting   bool
	kv          db.KVStore
	proxy       topdown.ParentQueryProxy
	client      bottomup.ConsensusClient
	broadcaster bottomup.Broadcaster
	emitter     observe.Emitter
	taskOpts    []routine.RecurringTaskOption
}

// Option sets ChainService construction parameter.
type Option func(ops *optionParams) error

// WithTesting is an option to create a testing ChainService on an in-memory ledger.
func WithTesting() Option {
	return func(ops *optionParams) error {
		ops.isTesting = true
		return nil
	}
}

// WithKVStore sets the store of the gateway ledger
func WithKVStore(kv db.KVStore) Option {
	return func(ops *optionParams) error {
		ops.kv = kv
		return nil
	}
}

// WithParentProxy sets the proxy querying the parent chain
func WithParentProxy(proxy topdown.ParentQueryProxy) Option {
	return func(ops *optionParams) error {
		ops.proxy = proxy
		return nil
	}
}

// WithConsensusClient sets the client of the consensus node
func WithConsensusClient(client bottomup.ConsensusClient) Option {
	return func(ops *optionParams) error {
		ops.client = client
		return nil
	}
}

// WithBroadcaster sets the broadcaster of the validator transactions
func WithBroadcaster(b bottomup.Broadcaster) Option {
	return func(ops *optionParams) error {
		ops.broadcaster = b
		return nil
	}
}

// WithEmitter sets the domain event emitter
func WithEmitter(e observe.Emitter) Option {
	return func(ops *optionParams) error {
		ops.emitter = e
		return nil
	}
}

// WithSyncerOptions sets the options of the parent syncer task
func WithSyncerOptions(opts ...routine.RecurringTaskOption) Option {
	return func(ops *optionParams) error {
		ops.taskOpts = append(ops.taskOpts, opts...)
		return nil
	}
}

// New creates a ChainService from config
func New(cfg config.Config, opts ...Option) (*ChainService, error) {
	var ops optionParams
	for _, opt := range opts {
		if err := opt(&ops); err != nil {
			return nil, err
		}
	}
	genesis, err := cfg.Genesis()
	if err != nil {
		return nil, err
	}
	// create the gateway ledger
	kv := ops.kv
	if kv == nil {
		if ops.isTesting {
			kv = db.NewMemKVStore()
		} else {
			kv = db.NewKVStore(cfg.DB)
		}
	}
	emitter := ops.emitter
	if emitter == nil {
		emitter = observe.Default()
	}
	// create the parent chain proxy
	proxy := ops.proxy
	if proxy == nil {
		client, err := ethclient.Dial(cfg.Parent.Endpoint)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to dial parent endpoint %s", cfg.Parent.Endpoint)
		}
		proxy = topdown.NewEVMParentProxy(
			client,
			common.HexToAddress(cfg.Parent.GatewayAddress),
			common.HexToAddress(cfg.Parent.SubnetActorAddress),
		)
	}
	// create the consensus client
	client := ops.client
	if client == nil {
		c, err := cometbft.NewClient(cfg.CometBFT)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create consensus client")
		}
		client = c
	}
	// create the validator context on validator nodes
	sk, err := cfg.ValidatorPrivateKey()
	if err != nil {
		return nil, err
	}
	managerOpts := []bottomup.Option{
		bottomup.WithEmitter(emitter),
		bottomup.WithCommitErrLimit(cfg.BottomUp.CommitErrLimit),
	}
	var validator *bottomup.ValidatorContext
	if sk != nil {
		b := ops.broadcaster
		if b == nil {
			ec, err := ethclient.Dial(cfg.Broadcast.Endpoint)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to dial broadcast endpoint %s", cfg.Broadcast.Endpoint)
			}
			b = broadcast.NewBroadcaster(ec, sk, cfg.Broadcast)
		}
		validator = bottomup.NewValidatorContext(sk, b)
		managerOpts = append(managerOpts, bottomup.WithValidator(validator))
	}

	return &ChainService{
		cfg:       cfg,
		gateway:   ledger.NewGateway(kv, genesis),
		proxy:     proxy,
		manager:   bottomup.NewManager(client, genesis.Gateway, managerOpts...),
		validator: validator,
		emitter:   emitter,
		taskOpts:  ops.taskOpts,
		logger:    log.Logger("chainservice"),
	}, nil
}

// Start starts the ledger, then tracks the parent chain from the committed finality
func (cs *ChainService) Start(ctx context.Context) error {
	if err := cs.gateway.Start(ctx); err != nil {
		return errors.Wrap(err, "error when starting gateway ledger")
	}
	committed, err := cs.gateway.LatestCommittedFinality(ctx)
	if err != nil {
		return err
	}
	_, table, err := cs.gateway.CurrentPowerTable()
	if err != nil {
		return err
	}
	cs.provider = topdown.NewFinalityProvider(cs.cfg.TopDown, committed, topdown.WithEmitter(cs.emitter))
	cs.tally = topdown.NewVoteTally(table, *committed)
	cs.syncer, err = topdown.NewParentSyncer(cs.cfg.TopDown, cs.proxy, cs.provider, cs.gateway, cs.taskOpts...)
	if err != nil {
		return errors.Wrap(err, "failed to create parent syncer")
	}
	if err := cs.syncer.Start(ctx); err != nil {
		return errors.Wrap(err, "error when starting parent syncer")
	}
	cs.logger.Info("started chain service",
		zap.Uint64("height", cs.gateway.BlockHeight()),
		zap.Uint64("parentFinality", committed.Height),
		zap.Bool("validator", cs.validator != nil))
	return nil
}

// Stop stops polling the parent, waits for the signing tasks in flight, then closes the ledger
func (cs *ChainService) Stop(ctx context.Context) error {
	if cs.syncer != nil {
		if err := cs.syncer.Stop(ctx); err != nil {
			return errors.Wrap(err, "error when stopping parent syncer")
		}
	}
	cs.manager.Wait()
	return cs.gateway.Stop(ctx)
}

// Ready returns nil once the parent view holds blocks above the committed finality
func (cs *ChainService) Ready(_ context.Context) error {
	if cs.provider == nil {
		return errors.Wrap(ErrNotReady, "not started")
	}
	if _, ok := cs.provider.LatestHeight(); !ok {
		return errors.Wrap(ErrNotReady, "parent view is empty")
	}
	return nil
}

// BeginBlock starts executing the block at height
func (cs *ChainService) BeginBlock(height uint64, hash common.Hash, proposer common.Address) error {
	return cs.gateway.BeginBlock(height, hash, proposer)
}

// EndBlock creates the checkpoint of the executed block if it closes a period, and starts signing the
// checkpoints this validator did not sign yet
func (cs *ChainService) EndBlock(ctx context.Context) (*bottomup.CheckpointOutcome, error) {
	outcome, err := cs.manager.CreateCheckpointIfNeeded(cs.gateway)
	if err != nil {
		return nil, err
	}
	if outcome == nil {
		return nil, nil
	}
	if len(outcome.PowerUpdates) > 0 {
		_, table, err := cs.gateway.CurrentPowerTable()
		if err != nil {
			return nil, err
		}
		cs.tally.SetPowerTable(table)
	}
	if err := cs.manager.CastValidatorSignatures(ctx, outcome.Checkpoint, cs.gateway); err != nil {
		return nil, err
	}
	return outcome, nil
}

// SendBottomUpMessage queues a message to the parent in the next checkpoint
func (cs *ChainService) SendBottomUpMessage(msg ipc.IpcEnvelope) (ipc.IpcEnvelope, error) {
	return cs.gateway.SendBottomUpMessage(msg)
}

// ProposeFinality returns the next parent finality to propose, nil if there is none
func (cs *ChainService) ProposeFinality() *topdown.FinalityProposal {
	return cs.provider.NextProposal()
}

// CheckFinality checks a parent finality proposed by another validator
func (cs *ChainService) CheckFinality(finality topdown.IPCParentFinality) bool {
	return cs.provider.CheckProposal(finality)
}

// CommitFinality executes the side effects of a parent finality in the ledger, then trims the parent view
func (cs *ChainService) CommitFinality(ctx context.Context, finality topdown.IPCParentFinality) error {
	proposal, ok := cs.provider.View().ProposalAt(finality)
	if !ok {
		return errors.Wrapf(ErrInvalidFinality, "%s", &finality)
	}
	prev, err := cs.gateway.CommitParentFinality(finality, proposal.CrossMessages, proposal.ValidatorChanges)
	if err != nil {
		return errors.Wrap(err, "failed to commit parent finality")
	}
	if err := cs.provider.SetNewFinality(finality, prev); err != nil {
		// the ledger is the source of truth, parent polling restarts from the committed finality
		cs.logger.Error("parent view out of sync with the ledger", zap.Error(err))
		cs.emitter.Emit(observe.InvariantViolation{
			Invariant: InvariantParentViewInSync,
			Height:    finality.Height,
		})
		cs.syncer.Reset(finality)
	}
	cs.tally.SetFinalized(finality.Height, finality.BlockHash)
	return nil
}

// AddVote records the vote of a validator on a parent block
func (cs *ChainService) AddVote(validator []byte, height topdown.BlockHeight, hash topdown.BlockHash) (bool, error) {
	cs.syncTally()
	return cs.tally.AddVote(validator, height, hash)
}

// FindQuorum returns the highest parent block voted final by the validators
func (cs *ChainService) FindQuorum() *topdown.IPCParentFinality {
	cs.syncTally()
	return cs.tally.FindQuorum()
}

// syncTally extends the tally with the parent blocks in the view
func (cs *ChainService) syncTally() {
	view := cs.provider.View()
	latest, ok := view.LatestHeight()
	if !ok {
		return
	}
	for h := cs.tally.LatestHeight() + 1; h <= latest; h++ {
		payload, ok := view.Cache().Get(h)
		if !ok {
			return
		}
		var hash topdown.BlockHash
		if payload != nil {
			hash = payload.BlockHash
		}
		if err := cs.tally.AddBlock(h, hash); err != nil {
			cs.logger.Warn("failed to add parent block to vote tally", zap.Error(err))
			return
		}
	}
}

// Gateway returns the gateway ledger
func (cs *ChainService) Gateway() *ledger.Gateway {
	return cs.gateway
}

// FinalityProvider returns the parent finality provider
func (cs *ChainService) FinalityProvider() *topdown.FinalityProvider {
	return cs.provider
}

// Syncer returns the parent syncer
func (cs *ChainService) Syncer() *topdown.ParentSyncer {
	return cs.syncer
}

// VoteTally returns the tally of the parent finality votes
func (cs *ChainService) VoteTally() *topdown.VoteTally {
	return cs.tally
}

// CheckpointManager returns the bottom-up checkpoint manager
func (cs *ChainService) CheckpointManager() *bottomup.Manager {
	return cs.manager
}
