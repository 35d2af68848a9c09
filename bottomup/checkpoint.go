// Copyright (c) 2026 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package bottomup

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/facebookgo/clock"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/iotexproject/iotex-subnet/ipc"
	"github.com/iotexproject/iotex-subnet/observe"
	"github.com/iotexproject/iotex-subnet/pkg/log"
)

type (
	// CheckpointOutcome is the result of a checkpoint created at the end of a block
	CheckpointOutcome struct {
		Checkpoint   ipc.BottomUpCheckpoint
		PowerUpdates PowerUpdates
		// Events are the logs emitted by the gateway when storing the checkpoint
		Events []types.Log
	}

	// Manager creates bottom-up checkpoints and signs them as a validator
	Manager struct {
		client    ConsensusClient
		validator *ValidatorContext
		gateway   common.Address
		emitter   observe.Emitter
		clk       clock.Clock
		// commitErrLimit bounds the consecutive failures to query the latest commit
		commitErrLimit int
		logger         *zap.Logger

		// broadcastMu keeps the broadcasts of overlapping signing tasks sequential
		broadcastMu sync.Mutex
		wg          sync.WaitGroup
	}

	// Option sets an option of the manager
	Option func(*Manager)
)

// ErrBlockHashNotSet indicates the hash of the executing block is unknown
var ErrBlockHashNotSet = errors.New("block hash not set")

// WithValidator makes the manager sign checkpoints with the validator key
func WithValidator(v *ValidatorContext) Option {
	return func(m *Manager) {
		m.validator = v
	}
}

// WithEmitter sets the domain event emitter
func WithEmitter(e observe.Emitter) Option {
	return func(m *Manager) {
		m.emitter = e
	}
}

// WithClock sets the clock used while waiting for commits
func WithClock(c clock.Clock) Option {
	return func(m *Manager) {
		m.clk = c
	}
}

// WithCommitErrLimit sets how many consecutive commit queries may fail before a signing task gives up
func WithCommitErrLimit(n int) Option {
	return func(m *Manager) {
		m.commitErrLimit = n
	}
}

// NewManager creates a checkpoint manager submitting signatures to the gateway
func NewManager(client ConsensusClient, gateway common.Address, opts ...Option) *Manager {
	m := &Manager{
		client:         client,
		gateway:        gateway,
		emitter:        observe.Default(),
		clk:            clock.New(),
		commitErrLimit: 10,
		logger:         log.Logger("bottomup"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CreateCheckpointIfNeeded builds, stores and returns a checkpoint if the executing block is a
// checkpoint boundary. Ledger errors abort the checkpoint.
func (m *Manager) CreateCheckpointIfNeeded(state Ledger) (*CheckpointOutcome, error) {
	if err := m.EmitIfCheckpointFinalized(state); err != nil {
		m.emitter.Emit(observe.TracingError{
			AffectedEvent: observe.CheckpointFinalized{}.Name(),
			Reason:        err.Error(),
		})
	}
	outcome, err := m.createCheckpoint(state)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create checkpoint")
	}
	return outcome, nil
}

func (m *Manager) createCheckpoint(state Ledger) (*CheckpointOutcome, error) {
	height := state.BlockHeight()
	blockHash, ok := state.BlockHash()
	if !ok {
		return nil, ErrBlockHashNotSet
	}
	subnetID, msgs, due, err := m.shouldCreateCheckpoint(state, height)
	if err != nil || !due {
		return nil, err
	}

	// the signers are the validators of the ledger before applying the changes
	_, currTable, err := state.CurrentPowerTable()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get the current power table")
	}
	// the writes of a checkpoint are applied together or not at all
	snapshot := state.Snapshot()
	outcome, err := m.writeCheckpoint(state, height, blockHash, subnetID, msgs, currTable)
	if err != nil {
		if rerr := state.Revert(snapshot); rerr != nil {
			m.logger.Error("failed to revert ledger writes of checkpoint",
				zap.Uint64("height", height), zap.Int("snapshot", snapshot), zap.Error(rerr))
		}
		return nil, err
	}
	m.emitter.Emit(observe.CheckpointCreated{
		Height:       height,
		Hash:         blockHash.Bytes(),
		MsgCount:     len(msgs),
		ConfigNumber: outcome.Checkpoint.NextConfigurationNumber,
	})
	return outcome, nil
}

func (m *Manager) writeCheckpoint(
	state Ledger,
	height uint64,
	blockHash common.Hash,
	subnetID ipc.SubnetID,
	msgs []ipc.IpcEnvelope,
	currTable ipc.PowerTable,
) (*CheckpointOutcome, error) {
	nextConfig, err := state.ApplyValidatorChanges()
	if err != nil {
		return nil, errors.Wrap(err, "failed to apply validator changes")
	}
	if err := state.DecreaseCircSupply(ipc.TokensToBurn(msgs)); err != nil {
		return nil, errors.Wrap(err, "failed to update circulating supply")
	}

	msgsRoot, err := ipc.MsgsRoot(msgs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to compute messages root")
	}
	rollup, err := state.CommitActivity()
	if err != nil {
		return nil, errors.Wrap(err, "failed to commit activity")
	}
	activity, err := rollup.Compressed()
	if err != nil {
		return nil, errors.Wrap(err, "failed to compress activity")
	}

	cp := ipc.BottomUpCheckpoint{
		SubnetID:                subnetID,
		BlockHeight:             height,
		BlockHash:               blockHash,
		NextConfigurationNumber: nextConfig,
		Msgs: ipc.Commitment{
			TotalNumMsgs: uint64(len(msgs)),
			MsgsRoot:     msgsRoot,
		},
		Activity: activity,
	}
	events, err := state.CreateBottomUpCheckpoint(cp, currTable, msgs, rollup.Consensus.Data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to store checkpoint")
	}

	updates := PowerUpdates{}
	if nextConfig != 0 {
		config, nextTable, err := state.CurrentPowerTable()
		if err != nil {
			return nil, errors.Wrap(err, "failed to get next power table")
		}
		if config != nextConfig {
			m.logger.Warn("unexpected configuration number of the next power table",
				zap.Uint64("expected", nextConfig), zap.Uint64("actual", config))
		}
		updates = PowerDiff(currTable, nextTable)
	}
	return &CheckpointOutcome{
		Checkpoint:   cp,
		PowerUpdates: updates,
		Events:       events,
	}, nil
}

func (m *Manager) shouldCreateCheckpoint(state Ledger, height uint64) (ipc.SubnetID, []ipc.IpcEnvelope, bool, error) {
	id, err := state.SubnetID()
	if err != nil {
		return ipc.SubnetID{}, nil, false, errors.Wrap(err, "failed to get subnet id")
	}
	if id.IsRoot() {
		return id, nil, false, nil
	}
	batch, err := state.BottomUpMsgBatch(height)
	if err != nil {
		return id, nil, false, errors.Wrapf(err, "failed to get message batch at %d", height)
	}
	if batch.BlockHeight != 0 {
		m.logger.Debug("bottom up msg batch exists at height", zap.Uint64("height", height))
		return id, batch.Msgs, true, nil
	}
	period, err := state.BottomUpCheckPeriod()
	if err != nil {
		return id, nil, false, errors.Wrap(err, "failed to get check period")
	}
	if period == 0 || height%period != 0 {
		return id, nil, false, nil
	}
	m.logger.Debug("bottom up checkpoint period reached height", zap.Uint64("height", height))
	return id, batch.Msgs, true, nil
}

// EmitIfCheckpointFinalized emits CheckpointFinalized if the checkpoint at the executing block
// reached its quorum. Only anchored subnets track quorums.
func (m *Manager) EmitIfCheckpointFinalized(state Ledger) error {
	anchored, err := state.IsAnchored()
	if err != nil {
		return errors.Wrap(err, "failed to check anchoring")
	}
	if !anchored {
		return nil
	}
	height := state.BlockHeight()
	blockHash, ok := state.BlockHash()
	if !ok {
		return ErrBlockHashNotSet
	}
	// a height without checkpoint has a zero quorum info
	info, err := state.CheckpointInfo(height)
	if err != nil {
		return errors.Wrapf(err, "failed to get checkpoint info at %d", height)
	}
	if info.Reached {
		m.emitter.Emit(observe.CheckpointFinalized{
			Height: height,
			Hash:   blockHash.Bytes(),
		})
	}
	return nil
}
