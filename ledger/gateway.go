// Copyright (c) 2026 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package ledger

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/iotexproject/iotex-subnet/db"
	"github.com/iotexproject/iotex-subnet/db/batch"
	"github.com/iotexproject/iotex-subnet/ipc"
	"github.com/iotexproject/iotex-subnet/pkg/log"
	"github.com/iotexproject/iotex-subnet/pkg/util/byteutil"
	"github.com/iotexproject/iotex-subnet/topdown"
)

var (
	// ErrInvalidHeight indicates a height that does not move forward
	ErrInvalidHeight = errors.New("invalid height")
	// ErrInvalidNonce indicates a cross message nonce that does not move forward
	ErrInvalidNonce = errors.New("invalid nonce")
	// ErrInvalidConfigNumber indicates a validator change that does not move the configuration forward
	ErrInvalidConfigNumber = errors.New("invalid configuration number")
	// ErrInvalidPowerChange indicates a malformed validator change
	ErrInvalidPowerChange = errors.New("invalid power change")
	// ErrInsufficientSupply indicates more tokens leaving the subnet than circulating in it
	ErrInsufficientSupply = errors.New("insufficient circulating supply")
	// ErrCheckpointNotFound indicates there is no checkpoint at the height
	ErrCheckpointNotFound = errors.New("checkpoint not found")
	// ErrInvalidSignature indicates a signature that does not recover a public key
	ErrInvalidSignature = errors.New("invalid signature")
	// ErrNotMember indicates the signer is not in the power table of the checkpoint
	ErrNotMember = errors.New("not a member of the checkpoint power table")
	// ErrDuplicateSignature indicates the validator already signed the checkpoint
	ErrDuplicateSignature = errors.New("duplicate signature")
)

type (
	// Genesis is the initial state of the gateway
	Genesis struct {
		ChainID  uint64
		SubnetID ipc.SubnetID
		// Gateway is the address logs of the gateway are emitted from
		Gateway     common.Address
		CheckPeriod uint64
		// MaxMsgsPerBatch cuts a message batch before the end of the period once reached, 0 means unlimited
		MaxMsgsPerBatch    uint64
		MajorityPercentage uint64
		Anchored           bool
		CircSupply         *uint256.Int
		Validators         ipc.PowerTable
		ParentFinality     topdown.IPCParentFinality
	}

	// Gateway is a reference implementation of the subnet gateway state, persisted on a KVStore.
	// It serves as the ledger of the checkpoint manager and the committed finality of the parent syncer.
	Gateway struct {
		mu      sync.RWMutex
		kv      db.KVStore
		genesis Genesis
		tip     tipRecord
		// journal holds the replaced values of the writes since the first snapshot of the block
		journal    []undoRecord
		journaling bool
		logger     *zap.Logger
	}
)

// NewGateway creates a gateway on the store, the genesis is written on first start
func NewGateway(kv db.KVStore, genesis Genesis) *Gateway {
	if genesis.MajorityPercentage == 0 {
		genesis.MajorityPercentage = 67
	}
	if genesis.CircSupply == nil {
		genesis.CircSupply = uint256.NewInt(0)
	}
	return &Gateway{
		kv:      kv,
		genesis: genesis,
		logger:  log.Logger("ledger"),
	}
}

// Start opens the store and loads the tip, or writes the genesis state
func (g *Gateway) Start(ctx context.Context) error {
	if err := g.kv.Start(ctx); err != nil {
		return errors.Wrap(err, "failed to start store")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	exist, err := g.getRecordIfExists(_metaNS, _tipKey, &g.tip)
	if err != nil {
		return err
	}
	if exist {
		g.logger.Info("loaded gateway state", zap.Uint64("height", g.tip.Height))
		return nil
	}
	return g.writeGenesis()
}

// Stop closes the store
func (g *Gateway) Stop(ctx context.Context) error {
	return g.kv.Stop(ctx)
}

func (g *Gateway) writeGenesis() error {
	b := batch.NewBatch()
	power := powerRecord{}
	for _, v := range g.genesis.Validators {
		if len(v.PublicKey) != ipc.PublicKeyLength {
			return errors.Wrapf(ErrInvalidPowerChange, "invalid genesis public key %x", v.PublicKey)
		}
		power.Members = append(power.Members, memberRecord{
			Address:   v.Address(),
			PublicKey: v.PublicKey,
			Power:     v.Power,
		})
	}
	if err := putRecord(b, _metaNS, _powerKey, &power); err != nil {
		return err
	}
	supply := g.genesis.CircSupply.Bytes32()
	b.Put(_metaNS, _supplyKey, supply[:])
	if err := putRecord(b, _metaNS, _finalityKey, &finalityRecord{
		Height:    g.genesis.ParentFinality.Height,
		BlockHash: g.genesis.ParentFinality.BlockHash,
	}); err != nil {
		return err
	}
	if err := putRecord(b, _metaNS, _tipKey, &g.tip); err != nil {
		return err
	}
	if err := g.write(b); err != nil {
		return errors.Wrap(err, "failed to write genesis")
	}
	g.logger.Info("initialized gateway state",
		zap.String("subnet", g.genesis.SubnetID.String()),
		zap.Int("validators", len(power.Members)))
	return nil
}

// BeginBlock moves the gateway to the executing block and records the block of the proposer
func (g *Gateway) BeginBlock(height uint64, hash common.Hash, proposer common.Address) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if height <= g.tip.Height {
		return errors.Wrapf(ErrInvalidHeight, "block %d after %d", height, g.tip.Height)
	}
	g.releaseSnapshots()
	b := batch.NewBatch()
	tip := tipRecord{Height: height, Hash: hash, HasHash: true}
	if err := putRecord(b, _metaNS, _tipKey, &tip); err != nil {
		return err
	}
	var power powerRecord
	if err := g.getRecord(_metaNS, _powerKey, &power); err != nil {
		return errors.Wrap(err, "failed to get power table")
	}
	if power.member(proposer) {
		data, err := g.kv.Get(_activityNS, proposer.Bytes())
		var blocks uint64
		switch errors.Cause(err) {
		case nil:
			blocks = byteutil.BytesToUint64BigEndian(data)
		case db.ErrNotExist:
		default:
			return err
		}
		b.Put(_activityNS, proposer.Bytes(), byteutil.Uint64ToBytesBigEndian(blocks+1))
	}
	if err := g.write(b); err != nil {
		return errors.Wrapf(err, "failed to begin block %d", height)
	}
	g.tip = tip
	return nil
}

// BlockHeight returns the height of the executing block
func (g *Gateway) BlockHeight() uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.tip.Height
}

// BlockHash returns the hash of the executing block, if set
func (g *Gateway) BlockHash() (common.Hash, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.tip.Hash, g.tip.HasHash
}

// ChainID returns the chain id of the subnet
func (g *Gateway) ChainID() uint64 {
	return g.genesis.ChainID
}

// SubnetID returns the id of the subnet
func (g *Gateway) SubnetID() (ipc.SubnetID, error) {
	return g.genesis.SubnetID, nil
}

// BottomUpCheckPeriod returns the checkpoint period
func (g *Gateway) BottomUpCheckPeriod() (uint64, error) {
	return g.genesis.CheckPeriod, nil
}

// IsAnchored returns true if the subnet tracks the quorum of its checkpoints
func (g *Gateway) IsAnchored() (bool, error) {
	return g.genesis.Anchored, nil
}

// CircSupply returns the tokens circulating in the subnet
func (g *Gateway) CircSupply() (*uint256.Int, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.circSupply()
}

func (g *Gateway) circSupply() (*uint256.Int, error) {
	data, err := g.kv.Get(_metaNS, _supplyKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get circulating supply")
	}
	return new(uint256.Int).SetBytes(data), nil
}

// DecreaseCircSupply burns the tokens leaving the subnet
func (g *Gateway) DecreaseCircSupply(amount *uint256.Int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	supply, err := g.circSupply()
	if err != nil {
		return err
	}
	if supply.Lt(amount) {
		return errors.Wrapf(ErrInsufficientSupply, "burning %s of %s", amount.ToBig().String(), supply.ToBig().String())
	}
	supply.Sub(supply, amount)
	value := supply.Bytes32()
	b := batch.NewBatch()
	b.Put(_metaNS, _supplyKey, value[:])
	return g.write(b)
}

// LatestCommittedFinality returns the parent finality committed in the gateway
func (g *Gateway) LatestCommittedFinality(_ context.Context) (*topdown.IPCParentFinality, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var rec finalityRecord
	if err := g.getRecord(_metaNS, _finalityKey, &rec); err != nil {
		return nil, errors.Wrap(err, "failed to get committed finality")
	}
	return &topdown.IPCParentFinality{Height: rec.Height, BlockHash: rec.BlockHash}, nil
}

// CommitParentFinality executes the top-down messages and stores the validator changes of a parent
// finality, and returns the finality it replaces
func (g *Gateway) CommitParentFinality(
	finality topdown.IPCParentFinality,
	msgs []ipc.IpcEnvelope,
	changes []ipc.PowerChangeRequest,
) (*topdown.IPCParentFinality, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var prev finalityRecord
	if err := g.getRecord(_metaNS, _finalityKey, &prev); err != nil {
		return nil, errors.Wrap(err, "failed to get committed finality")
	}
	if finality.Height <= prev.Height {
		return nil, errors.Wrapf(ErrInvalidHeight, "finality %d after %d", finality.Height, prev.Height)
	}

	b := batch.NewBatch()
	nonce, err := g.getUint64(_topDownNonceKey)
	if err != nil {
		return nil, err
	}
	supply, err := g.circSupply()
	if err != nil {
		return nil, err
	}
	for i := range msgs {
		if msgs[i].LocalNonce < nonce {
			return nil, errors.Wrapf(ErrInvalidNonce, "top-down nonce %d, expecting at least %d", msgs[i].LocalNonce, nonce)
		}
		nonce = msgs[i].LocalNonce + 1
		supply.Add(supply, msgs[i].Amount())
	}
	lastConfig, err := g.getUint64(_lastConfigKey)
	if err != nil {
		return nil, err
	}
	for i := range changes {
		if changes[i].ConfigurationNumber <= lastConfig {
			return nil, errors.Wrapf(ErrInvalidConfigNumber, "configuration %d after %d",
				changes[i].ConfigurationNumber, lastConfig)
		}
		lastConfig = changes[i].ConfigurationNumber
		if err := putRecord(b, _changeNS, heightKey(lastConfig), &changes[i]); err != nil {
			return nil, err
		}
	}
	putUint64(b, _topDownNonceKey, nonce)
	putUint64(b, _lastConfigKey, lastConfig)
	value := supply.Bytes32()
	b.Put(_metaNS, _supplyKey, value[:])
	if err := putRecord(b, _metaNS, _finalityKey, &finalityRecord{
		Height:    finality.Height,
		BlockHash: finality.BlockHash,
	}); err != nil {
		return nil, err
	}
	if err := g.write(b); err != nil {
		return nil, errors.Wrap(err, "failed to commit parent finality")
	}
	g.logger.Info("committed parent finality",
		zap.Uint64("height", finality.Height),
		zap.Int("msgs", len(msgs)),
		zap.Int("changes", len(changes)))
	return &topdown.IPCParentFinality{Height: prev.Height, BlockHash: prev.BlockHash}, nil
}

// CommitActivity returns the blocks committed by validators since the last checkpoint and resets them
func (g *Gateway) CommitActivity() (ipc.FullActivityRollup, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var (
		rollup ipc.FullActivityRollup
		keys   [][]byte
	)
	if err := g.forEach(_activityNS, func(k, v []byte) error {
		blocks := byteutil.BytesToUint64BigEndian(v)
		rollup.Consensus.Data = append(rollup.Consensus.Data, ipc.ValidatorData{
			Validator:       common.BytesToAddress(k),
			BlocksCommitted: blocks,
		})
		rollup.Consensus.Stats.TotalActiveValidators++
		rollup.Consensus.Stats.TotalNumBlocksCommitted += blocks
		keys = append(keys, k)
		return nil
	}); err != nil {
		return rollup, errors.Wrap(err, "failed to read activity")
	}
	if len(keys) == 0 {
		return rollup, nil
	}
	b := batch.NewBatch()
	for _, k := range keys {
		b.Delete(_activityNS, k)
	}
	return rollup, g.write(b)
}
