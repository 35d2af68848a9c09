// Copyright (c) 2026 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package ledger

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/iotexproject/iotex-subnet/bottomup"
	"github.com/iotexproject/iotex-subnet/db"
	"github.com/iotexproject/iotex-subnet/db/batch"
	"github.com/iotexproject/iotex-subnet/ipc"
	"github.com/iotexproject/iotex-subnet/observe"
	"github.com/iotexproject/iotex-subnet/topdown"
)

var (
	_ bottomup.Ledger       = (*Gateway)(nil)
	_ topdown.FinalityQuery = (*Gateway)(nil)

	_testGateway = common.HexToAddress("0x77aa40b105843728088c0132e43fc44348881da8")
	_testSubnet  = ipc.SubnetID{Root: 31337, Route: []common.Address{common.HexToAddress("0x2a")}}
)

type testValidators struct {
	keys  []*ecdsa.PrivateKey
	table ipc.PowerTable
}

func newTestValidators(t *testing.T, powers ...uint64) *testValidators {
	v := &testValidators{}
	for _, p := range powers {
		sk, err := crypto.GenerateKey()
		require.NoError(t, err)
		v.keys = append(v.keys, sk)
		v.table = append(v.table, ipc.Validator{PublicKey: crypto.FromECDSAPub(&sk.PublicKey), Power: p})
	}
	return v
}

func (v *testValidators) addr(i int) common.Address {
	return v.table[i].Address()
}

func testGenesis(v *testValidators) Genesis {
	return Genesis{
		ChainID:     31337,
		SubnetID:    _testSubnet,
		Gateway:     _testGateway,
		CheckPeriod: 10,
		CircSupply:  uint256.NewInt(1000),
		Validators:  v.table,
		ParentFinality: topdown.IPCParentFinality{
			Height:    100,
			BlockHash: []byte("parent-100"),
		},
	}
}

func startGateway(t *testing.T, kv db.KVStore, genesis Genesis) *Gateway {
	g := NewGateway(kv, genesis)
	require.NoError(t, g.Start(context.Background()))
	t.Cleanup(func() {
		require.NoError(t, g.Stop(context.Background()))
	})
	return g
}

// checkpointFailingStore fails the batches writing checkpoints while fail is set
type checkpointFailingStore struct {
	db.KVStore
	fail bool
}

func (s *checkpointFailingStore) WriteBatch(b batch.KVStoreBatch) error {
	for i := 0; s.fail && i < b.Size(); i++ {
		entry, err := b.Entry(i)
		if err != nil {
			return err
		}
		if entry.Namespace() == _checkpointNS {
			return errors.Wrap(db.ErrIO, "no space left on device")
		}
	}
	return s.KVStore.WriteBatch(b)
}

func blockHash(h uint64) common.Hash {
	return common.BigToHash(new(big.Int).SetUint64(h + 1000))
}

func transfer(value uint64) ipc.IpcEnvelope {
	return ipc.IpcEnvelope{
		Kind:  ipc.Transfer,
		Value: uint256.NewInt(value),
		From: ipc.IPCAddress{
			SubnetID:   _testSubnet,
			RawAddress: ipc.FvmAddress{AddrType: 4, Payload: common.HexToAddress("0x10").Bytes()},
		},
		To: ipc.IPCAddress{
			SubnetID:   ipc.SubnetID{Root: 31337},
			RawAddress: ipc.FvmAddress{AddrType: 4, Payload: common.HexToAddress("0x20").Bytes()},
		},
	}
}

func powerChange(op ipc.PowerOperation, validator common.Address, payload []byte, config uint64) ipc.PowerChangeRequest {
	return ipc.PowerChangeRequest{
		Change:              ipc.PowerChange{Op: op, Payload: payload, Validator: validator},
		ConfigurationNumber: config,
	}
}

// addSignature submits the calldata a validator broadcasts to the gateway
func addSignature(g *Gateway, cp *ipc.BottomUpCheckpoint, table ipc.PowerTable, sk *ecdsa.PrivateKey) error {
	v, ok := table.Find(crypto.FromECDSAPub(&sk.PublicKey))
	if !ok {
		return errors.New("not in table")
	}
	calldata, err := bottomup.SignatureCalldata(cp, table, v, sk)
	if err != nil {
		return err
	}
	gatewayABI, err := abi.JSON(strings.NewReader(ipc.GatewayABI))
	if err != nil {
		return err
	}
	values, err := gatewayABI.Methods["addCheckpointSignature"].Inputs.Unpack(calldata[4:])
	if err != nil {
		return err
	}
	proof := make([]common.Hash, 0)
	for _, p := range values[1].([][32]byte) {
		proof = append(proof, p)
	}
	return g.AddCheckpointSignature(values[0].(*big.Int).Uint64(), proof, values[2].(*big.Int).Uint64(), values[3].([]byte))
}

func TestGatewayReopen(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()
	vals := newTestValidators(t, 10, 20)
	cfg := db.DefaultConfig
	cfg.DbPath = filepath.Join(t.TempDir(), "gateway.bolt")

	g := NewGateway(db.NewKVStore(cfg), testGenesis(vals))
	r.NoError(g.Start(ctx))
	_, ok := g.BlockHash()
	r.False(ok)
	r.NoError(g.BeginBlock(1, blockHash(1), vals.addr(0)))
	r.Equal(ErrInvalidHeight, errors.Cause(g.BeginBlock(1, blockHash(1), vals.addr(0))))
	r.NoError(g.DecreaseCircSupply(uint256.NewInt(400)))
	r.NoError(g.Stop(ctx))

	// the genesis is not written again
	genesis := testGenesis(newTestValidators(t, 5))
	g = startGateway(t, db.NewKVStore(cfg), genesis)
	r.Equal(uint64(1), g.BlockHeight())
	hash, ok := g.BlockHash()
	r.True(ok)
	r.Equal(blockHash(1), hash)
	_, table, err := g.CurrentPowerTable()
	r.NoError(err)
	r.Equal(vals.table, table)
	supply, err := g.CircSupply()
	r.NoError(err)
	r.Equal(uint256.NewInt(600), supply)
	r.Equal(ErrInsufficientSupply, errors.Cause(g.DecreaseCircSupply(uint256.NewInt(601))))
}

func TestGatewayCommitParentFinality(t *testing.T) {
	r := require.New(t)
	vals := newTestValidators(t, 10, 20, 30, 40)
	genesis := testGenesis(vals)
	genesis.Validators = vals.table[:3]
	g := startGateway(t, db.NewMemKVStore(), genesis)

	finality, err := g.LatestCommittedFinality(context.Background())
	r.NoError(err)
	r.Equal(genesis.ParentFinality, *finality)

	msgs := []ipc.IpcEnvelope{transfer(5), transfer(7)}
	msgs[1].LocalNonce = 1
	power40, err := ipc.EncodePowerPayload(40)
	r.NoError(err)
	power0, err := ipc.EncodePowerPayload(0)
	r.NoError(err)
	changes := []ipc.PowerChangeRequest{
		powerChange(ipc.SetMetadata, vals.addr(3), vals.table[3].PublicKey, 1),
		powerChange(ipc.SetPower, vals.addr(3), power40, 2),
		powerChange(ipc.SetPower, vals.addr(0), power0, 3),
	}
	next := topdown.IPCParentFinality{Height: 105, BlockHash: []byte("parent-105")}
	prev, err := g.CommitParentFinality(next, msgs, changes)
	r.NoError(err)
	r.Equal(genesis.ParentFinality, *prev)
	finality, err = g.LatestCommittedFinality(context.Background())
	r.NoError(err)
	r.Equal(next, *finality)
	supply, err := g.CircSupply()
	r.NoError(err)
	r.Equal(uint256.NewInt(1012), supply)

	// changes are pending until applied
	config, table, err := g.CurrentPowerTable()
	r.NoError(err)
	r.Zero(config)
	r.Equal(vals.table[:3], table)

	later := topdown.IPCParentFinality{Height: 106}
	_, err = g.CommitParentFinality(next, nil, nil)
	r.Equal(ErrInvalidHeight, errors.Cause(err))
	_, err = g.CommitParentFinality(later, []ipc.IpcEnvelope{transfer(1)}, nil)
	r.Equal(ErrInvalidNonce, errors.Cause(err))
	_, err = g.CommitParentFinality(later, nil, []ipc.PowerChangeRequest{powerChange(ipc.SetPower, vals.addr(1), power0, 3)})
	r.Equal(ErrInvalidConfigNumber, errors.Cause(err))

	config, err = g.ApplyValidatorChanges()
	r.NoError(err)
	r.Equal(uint64(3), config)
	config, table, err = g.CurrentPowerTable()
	r.NoError(err)
	r.Equal(uint64(3), config)
	r.Equal(ipc.PowerTable{vals.table[1], vals.table[2], vals.table[3]}, table)

	config, err = g.ApplyValidatorChanges()
	r.NoError(err)
	r.Zero(config)
}

func TestGatewayInvalidPowerChange(t *testing.T) {
	r := require.New(t)
	vals := newTestValidators(t, 10, 20)
	g := startGateway(t, db.NewMemKVStore(), testGenesis(vals))

	// the public key does not match the validator
	changes := []ipc.PowerChangeRequest{powerChange(ipc.SetMetadata, vals.addr(0), vals.table[1].PublicKey, 1)}
	_, err := g.CommitParentFinality(topdown.IPCParentFinality{Height: 101}, nil, changes)
	r.NoError(err)
	_, err = g.ApplyValidatorChanges()
	r.Equal(ErrInvalidPowerChange, errors.Cause(err))
	config, table, err := g.CurrentPowerTable()
	r.NoError(err)
	r.Zero(config)
	r.Equal(vals.table, table)
}

func TestGatewayMessageBatches(t *testing.T) {
	r := require.New(t)
	vals := newTestValidators(t, 10)
	genesis := testGenesis(vals)
	genesis.MaxMsgsPerBatch = 3
	g := startGateway(t, db.NewMemKVStore(), genesis)

	r.NoError(g.BeginBlock(3, blockHash(3), vals.addr(0)))
	for i := 0; i < 2; i++ {
		msg, err := g.SendBottomUpMessage(transfer(uint64(i + 1)))
		r.NoError(err)
		r.Equal(uint64(i), msg.LocalNonce)
	}
	b, err := g.BottomUpMsgBatch(3)
	r.NoError(err)
	r.Empty(b.Msgs)
	b, err = g.BottomUpMsgBatch(10)
	r.NoError(err)
	r.Zero(b.BlockHeight)
	r.Len(b.Msgs, 2)
	r.Equal(_testSubnet, b.SubnetID)
	r.Equal(uint256.NewInt(2), b.Msgs[1].Value)

	// the third message fills the batch, which is cut at the executing height
	r.NoError(g.BeginBlock(4, blockHash(4), vals.addr(0)))
	msg, err := g.SendBottomUpMessage(transfer(3))
	r.NoError(err)
	r.Equal(uint64(2), msg.LocalNonce)
	b, err = g.BottomUpMsgBatch(4)
	r.NoError(err)
	r.Equal(uint64(4), b.BlockHeight)
	r.Len(b.Msgs, 3)
	for i, m := range b.Msgs {
		r.Equal(uint64(i), m.LocalNonce)
	}
	b, err = g.BottomUpMsgBatch(10)
	r.NoError(err)
	r.Empty(b.Msgs)
}

func TestGatewayCheckpoint(t *testing.T) {
	r := require.New(t)
	vals := newTestValidators(t, 10, 20, 30)
	genesis := testGenesis(vals)
	genesis.Anchored = true
	g := startGateway(t, db.NewMemKVStore(), genesis)
	rec := observe.NewRecorder(nil)
	m := bottomup.NewManager(nil, _testGateway, bottomup.WithEmitter(rec))

	for h := uint64(1); h <= 10; h++ {
		r.NoError(g.BeginBlock(h, blockHash(h), vals.addr(int(h%3))))
		if h == 5 {
			_, err := g.SendBottomUpMessage(transfer(100))
			r.NoError(err)
		}
		if h < 10 {
			outcome, err := m.CreateCheckpointIfNeeded(g)
			r.NoError(err)
			r.Nil(outcome)
		}
	}
	outcome, err := m.CreateCheckpointIfNeeded(g)
	r.NoError(err)
	r.NotNil(outcome)
	cp := outcome.Checkpoint
	r.Equal(uint64(10), cp.BlockHeight)
	r.Equal([32]byte(blockHash(10)), cp.BlockHash)
	r.Zero(cp.NextConfigurationNumber)
	r.Equal(uint64(1), cp.Msgs.TotalNumMsgs)
	r.Equal(uint64(3), cp.Activity.Consensus.Stats.TotalActiveValidators)
	r.Equal(uint64(10), cp.Activity.Consensus.Stats.TotalNumBlocksCommitted)
	r.Empty(outcome.PowerUpdates)
	r.Len(outcome.Events, 1)
	r.Equal(NewBottomUpCheckpointTopic, outcome.Events[0].Topics[0])
	r.Len(rec.Named("CheckpointCreated"), 1)
	supply, err := g.CircSupply()
	r.NoError(err)
	r.Equal(uint256.NewInt(900), supply)

	// activity restarts after the checkpoint
	rollup, err := g.CommitActivity()
	r.NoError(err)
	r.Empty(rollup.Consensus.Data)

	unsigned, err := bottomup.UnsignedCheckpoints(g, vals.addr(0))
	r.NoError(err)
	r.Equal([]ipc.BottomUpCheckpoint{cp}, unsigned)

	info, err := g.CheckpointInfo(10)
	r.NoError(err)
	r.Equal(uint64(41), info.Threshold)
	r.False(info.Reached)
	hash, err := cp.Hash()
	r.NoError(err)
	r.Equal([32]byte(hash), info.Hash)

	r.NoError(addSignature(g, &cp, vals.table, vals.keys[0]))
	r.NoError(addSignature(g, &cp, vals.table, vals.keys[2]))
	r.Equal(ErrDuplicateSignature, errors.Cause(addSignature(g, &cp, vals.table, vals.keys[0])))
	info, err = g.CheckpointInfo(10)
	r.NoError(err)
	r.Equal(uint64(40), info.CurrentWeight)
	r.False(info.Reached)
	r.NoError(m.EmitIfCheckpointFinalized(g))
	r.Empty(rec.Named("CheckpointFinalized"))

	unsigned, err = bottomup.UnsignedCheckpoints(g, vals.addr(0))
	r.NoError(err)
	r.Empty(unsigned)
	unsigned, err = bottomup.UnsignedCheckpoints(g, vals.addr(1))
	r.NoError(err)
	r.Len(unsigned, 1)

	// a key outside of the power table cannot prove its membership
	outsider, err := crypto.GenerateKey()
	r.NoError(err)
	sig, err := crypto.Sign(hash.Bytes(), outsider)
	r.NoError(err)
	r.Equal(ErrNotMember, errors.Cause(g.AddCheckpointSignature(10, nil, 30, sig)))
	r.Equal(ErrInvalidSignature, errors.Cause(g.AddCheckpointSignature(10, nil, 30, []byte{1})))
	r.Equal(ErrCheckpointNotFound, errors.Cause(g.AddCheckpointSignature(9, nil, 30, sig)))

	r.NoError(addSignature(g, &cp, vals.table, vals.keys[1]))
	info, err = g.CheckpointInfo(10)
	r.NoError(err)
	r.Equal(uint64(60), info.CurrentWeight)
	r.True(info.Reached)
	incomplete, err := g.IncompleteCheckpoints()
	r.NoError(err)
	r.Empty(incomplete)
	signatories, err := g.CheckpointSignatories(10)
	r.NoError(err)
	r.Equal([]common.Address{vals.addr(0), vals.addr(2), vals.addr(1)}, signatories)

	r.NoError(m.EmitIfCheckpointFinalized(g))
	finalized := rec.Named("CheckpointFinalized")
	r.Len(finalized, 1)
	r.Equal(uint64(10), finalized[0].(observe.CheckpointFinalized).Height)

	_, err = g.CreateBottomUpCheckpoint(cp, vals.table, nil, nil)
	r.Equal(ErrInvalidHeight, errors.Cause(err))
}

func TestGatewayCheckpointPowerUpdates(t *testing.T) {
	r := require.New(t)
	vals := newTestValidators(t, 10, 20, 40)
	genesis := testGenesis(vals)
	genesis.Validators = vals.table[:2]
	g := startGateway(t, db.NewMemKVStore(), genesis)
	m := bottomup.NewManager(nil, _testGateway, bottomup.WithEmitter(observe.NewRecorder(nil)))

	power40, err := ipc.EncodePowerPayload(40)
	r.NoError(err)
	power0, err := ipc.EncodePowerPayload(0)
	r.NoError(err)
	_, err = g.CommitParentFinality(topdown.IPCParentFinality{Height: 101}, nil, []ipc.PowerChangeRequest{
		powerChange(ipc.SetMetadata, vals.addr(2), vals.table[2].PublicKey, 1),
		powerChange(ipc.SetPower, vals.addr(2), power40, 2),
		powerChange(ipc.SetPower, vals.addr(0), power0, 3),
	})
	r.NoError(err)

	r.NoError(g.BeginBlock(10, blockHash(10), vals.addr(1)))
	outcome, err := m.CreateCheckpointIfNeeded(g)
	r.NoError(err)
	r.NotNil(outcome)
	r.Equal(uint64(3), outcome.Checkpoint.NextConfigurationNumber)
	r.Equal(bottomup.PowerUpdates{
		{PublicKey: vals.table[0].PublicKey, Power: 0},
		vals.table[2],
	}, outcome.PowerUpdates)

	// the checkpoint is signed by the validators before the change
	info, err := g.CheckpointInfo(10)
	r.NoError(err)
	r.Equal(uint64(21), info.Threshold)
}

func TestGatewaySnapshotRevert(t *testing.T) {
	r := require.New(t)
	vals := newTestValidators(t, 10, 20, 30)
	g := startGateway(t, db.NewMemKVStore(), testGenesis(vals))

	power15, err := ipc.EncodePowerPayload(15)
	r.NoError(err)
	_, err = g.CommitParentFinality(topdown.IPCParentFinality{Height: 101}, nil, []ipc.PowerChangeRequest{
		powerChange(ipc.SetPower, vals.addr(0), power15, 1),
	})
	r.NoError(err)
	r.NoError(g.BeginBlock(1, blockHash(1), vals.addr(1)))

	snapshot := g.Snapshot()
	config, err := g.ApplyValidatorChanges()
	r.NoError(err)
	r.Equal(uint64(1), config)
	r.NoError(g.DecreaseCircSupply(uint256.NewInt(300)))
	rollup, err := g.CommitActivity()
	r.NoError(err)
	r.Len(rollup.Consensus.Data, 1)
	r.NoError(g.Revert(snapshot))

	supply, err := g.CircSupply()
	r.NoError(err)
	r.Equal(uint256.NewInt(1000), supply)
	config, table, err := g.CurrentPowerTable()
	r.NoError(err)
	r.Zero(config)
	r.Equal(vals.table, table)
	rollup, err = g.CommitActivity()
	r.NoError(err)
	r.Equal([]ipc.ValidatorData{{Validator: vals.addr(1), BlocksCommitted: 1}}, rollup.Consensus.Data)
	config, err = g.ApplyValidatorChanges()
	r.NoError(err)
	r.Equal(uint64(1), config)

	r.Equal(ErrInvalidSnapshot, errors.Cause(g.Revert(snapshot+10)))
	// snapshots do not outlive the block
	r.NoError(g.BeginBlock(2, blockHash(2), vals.addr(1)))
	r.Equal(ErrInvalidSnapshot, errors.Cause(g.Revert(snapshot)))
}

func TestGatewayFailedCheckpointIsReverted(t *testing.T) {
	r := require.New(t)
	vals := newTestValidators(t, 10, 20, 30)
	kv := &checkpointFailingStore{KVStore: db.NewMemKVStore()}
	g := startGateway(t, kv, testGenesis(vals))
	rec := observe.NewRecorder(nil)
	m := bottomup.NewManager(nil, _testGateway, bottomup.WithEmitter(rec))

	power15, err := ipc.EncodePowerPayload(15)
	r.NoError(err)
	_, err = g.CommitParentFinality(topdown.IPCParentFinality{Height: 101}, nil, []ipc.PowerChangeRequest{
		powerChange(ipc.SetPower, vals.addr(0), power15, 1),
	})
	r.NoError(err)
	for h := uint64(1); h <= 10; h++ {
		r.NoError(g.BeginBlock(h, blockHash(h), vals.addr(int(h%3))))
		if h == 5 {
			_, err := g.SendBottomUpMessage(transfer(100))
			r.NoError(err)
		}
	}

	kv.fail = true
	_, err = m.CreateCheckpointIfNeeded(g)
	r.Equal(db.ErrIO, errors.Cause(err))
	r.Empty(rec.Named("CheckpointCreated"))
	supply, err := g.CircSupply()
	r.NoError(err)
	r.Equal(uint256.NewInt(1000), supply)
	config, table, err := g.CurrentPowerTable()
	r.NoError(err)
	r.Zero(config)
	r.Equal(vals.table, table)
	info, err := g.CheckpointInfo(10)
	r.NoError(err)
	r.False(info.Reached)
	r.Zero(info.Threshold)

	// retrying the block burns the messages and applies the changes once
	kv.fail = false
	outcome, err := m.CreateCheckpointIfNeeded(g)
	r.NoError(err)
	r.NotNil(outcome)
	r.Equal(uint64(1), outcome.Checkpoint.NextConfigurationNumber)
	r.Equal(uint64(3), outcome.Checkpoint.Activity.Consensus.Stats.TotalActiveValidators)
	r.Equal(uint64(10), outcome.Checkpoint.Activity.Consensus.Stats.TotalNumBlocksCommitted)
	r.Equal(bottomup.PowerUpdates{{PublicKey: vals.table[0].PublicKey, Power: 15}}, outcome.PowerUpdates)
	supply, err = g.CircSupply()
	r.NoError(err)
	r.Equal(uint256.NewInt(900), supply)

	// a second checkpoint at the same height is refused without burning again
	_, err = m.CreateCheckpointIfNeeded(g)
	r.Equal(ErrInvalidHeight, errors.Cause(err))
	supply, err = g.CircSupply()
	r.NoError(err)
	r.Equal(uint256.NewInt(900), supply)
	config, _, err = g.CurrentPowerTable()
	r.NoError(err)
	r.Equal(uint64(1), config)
	r.Len(rec.Named("CheckpointCreated"), 1)
}
