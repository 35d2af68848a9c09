// Copyright (c) 2026 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package bottomup

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/facebookgo/clock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iotexproject/iotex-subnet/cometbft"
	"github.com/iotexproject/iotex-subnet/ipc"
	"github.com/iotexproject/iotex-subnet/observe"
	"github.com/iotexproject/iotex-subnet/pkg/merkle"
	"github.com/iotexproject/iotex-subnet/test/mock/mock_bottomup"
)

const _testChainID = 4690

type signerFixture struct {
	ctrl        *gomock.Controller
	ledger      *mock_bottomup.MockLedger
	client      *mock_bottomup.MockConsensusClient
	broadcaster *mock_bottomup.MockBroadcaster
	clk         *clock.Mock
	sk          *ecdsa.PrivateKey
	validator   *ValidatorContext
	manager     *Manager
	rec         *observe.Recorder
}

func newSignerFixture(t *testing.T, opts ...Option) *signerFixture {
	ctrl := gomock.NewController(t)
	sk, err := crypto.GenerateKey()
	require.NoError(t, err)
	f := &signerFixture{
		ctrl:        ctrl,
		ledger:      mock_bottomup.NewMockLedger(ctrl),
		client:      mock_bottomup.NewMockConsensusClient(ctrl),
		broadcaster: mock_bottomup.NewMockBroadcaster(ctrl),
		clk:         clock.NewMock(),
		sk:          sk,
	}
	f.validator = NewValidatorContext(sk, f.broadcaster)
	f.manager, f.rec = newTestManager(t, f.client,
		append([]Option{WithValidator(f.validator), WithClock(f.clk)}, opts...)...)
	f.broadcaster.EXPECT().RetryDelay().Return(time.Second).AnyTimes()
	f.ledger.EXPECT().ChainID().Return(uint64(_testChainID)).AnyTimes()
	return f
}

func (f *signerFixture) notSyncing() {
	f.client.EXPECT().Status(gomock.Any()).Return(&cometbft.Status{CatchingUp: false}, nil).AnyTimes()
}

func (f *signerFixture) incomplete(cps ...ipc.BottomUpCheckpoint) {
	f.ledger.EXPECT().IncompleteCheckpoints().Return(cps, nil).Times(1)
}

func (f *signerFixture) signedBy(height uint64, signers ...common.Address) {
	f.ledger.EXPECT().CheckpointSignatories(height).Return(signers, nil).Times(1)
}

func (f *signerFixture) table(others ...uint64) ipc.PowerTable {
	table := ipc.PowerTable{{PublicKey: f.validator.PublicKey, Power: 7}}
	for i, p := range others {
		table = append(table, ipc.Validator{PublicKey: testKey(i + 1), Power: p})
	}
	return table
}

func testCheckpoint(height uint64) ipc.BottomUpCheckpoint {
	return ipc.BottomUpCheckpoint{
		SubnetID:    _testSubnet,
		BlockHeight: height,
		BlockHash:   common.BigToHash(new(big.Int).SetUint64(height)),
		Msgs:        ipc.Commitment{TotalNumMsgs: 1, MsgsRoot: [32]byte{1}},
	}
}

func TestCastSignaturesNotValidator(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock_bottomup.NewMockConsensusClient(ctrl)
	m, _ := newTestManager(t, client)
	require.NoError(t, m.CastValidatorSignatures(context.Background(), testCheckpoint(10), mock_bottomup.NewMockLedger(ctrl)))
	m.Wait()
}

func TestCastSignaturesWhileSyncing(t *testing.T) {
	r := require.New(t)
	f := newSignerFixture(t)

	f.client.EXPECT().Status(gomock.Any()).Return(&cometbft.Status{CatchingUp: true}, nil).Times(1)
	r.NoError(f.manager.CastValidatorSignatures(context.Background(), testCheckpoint(10), f.ledger))

	// an unknown status is treated as syncing
	f.client.EXPECT().Status(gomock.Any()).Return(nil, errors.New("connection refused")).Times(1)
	r.NoError(f.manager.CastValidatorSignatures(context.Background(), testCheckpoint(10), f.ledger))
	f.manager.Wait()
	r.Empty(f.rec.Events())
}

func TestCastSignatures(t *testing.T) {
	r := require.New(t)
	f := newSignerFixture(t)
	f.notSyncing()

	signed, current := testCheckpoint(10), testCheckpoint(20)
	f.incomplete(signed, current)
	f.signedBy(10, common.HexToAddress("0x05"), f.validator.Address)
	f.signedBy(20, common.HexToAddress("0x05"))

	table := f.table(3, 5)
	expected, err := SignatureCalldata(&current, table, table[0], f.sk)
	r.NoError(err)
	f.client.EXPECT().LatestCommit(gomock.Any()).Return(uint64(21), nil).Times(1)
	f.client.EXPECT().Validators(gomock.Any(), uint64(20)).Return(table, nil).Times(1)
	f.broadcaster.EXPECT().FevmInvoke(gomock.Any(), _testGateway, expected, uint64(_testChainID)).
		Return(common.HexToHash("0x1234"), nil).Times(1)

	r.NoError(f.manager.CastValidatorSignatures(context.Background(), current, f.ledger))
	f.manager.Wait()

	r.Empty(f.rec.Named("InvariantViolation"))
	events := f.rec.Named("CheckpointSigned")
	r.Len(events, 1)
	r.Equal(observe.CheckpointSigned{
		Role:      observe.RoleOwn,
		Height:    20,
		Hash:      common.Hash(current.BlockHash).Bytes(),
		Validator: f.validator.Address,
	}, events[0])
}

func TestCastSignaturesWaitsForCommit(t *testing.T) {
	r := require.New(t)
	f := newSignerFixture(t)
	f.notSyncing()

	current := testCheckpoint(20)
	f.incomplete(current)
	f.signedBy(20)
	table := f.table()
	gomock.InOrder(
		f.client.EXPECT().LatestCommit(gomock.Any()).Return(uint64(20), nil),
		f.client.EXPECT().LatestCommit(gomock.Any()).Return(uint64(0), errors.New("timeout")),
		f.client.EXPECT().LatestCommit(gomock.Any()).Return(uint64(21), nil),
	)
	f.client.EXPECT().Validators(gomock.Any(), uint64(20)).Return(table, nil).Times(1)
	f.broadcaster.EXPECT().FevmInvoke(gomock.Any(), _testGateway, gomock.Any(), uint64(_testChainID)).
		Return(common.Hash{}, nil).Times(1)

	r.NoError(f.manager.CastValidatorSignatures(context.Background(), current, f.ledger))
	r.Eventually(func() bool {
		f.clk.Add(time.Second)
		return len(f.rec.Named("CheckpointSigned")) == 1
	}, 5*time.Second, 10*time.Millisecond)
	f.manager.Wait()
}

func TestCastSignaturesCommitUnavailable(t *testing.T) {
	r := require.New(t)
	f := newSignerFixture(t, WithCommitErrLimit(2))
	f.notSyncing()

	current := testCheckpoint(20)
	f.incomplete(current)
	f.signedBy(20)
	f.client.EXPECT().LatestCommit(gomock.Any()).Return(uint64(0), errors.New("timeout")).Times(2)

	r.NoError(f.manager.CastValidatorSignatures(context.Background(), current, f.ledger))
	done := make(chan struct{})
	go func() {
		f.manager.Wait()
		close(done)
	}()
	r.Eventually(func() bool {
		f.clk.Add(time.Second)
		select {
		case <-done:
			return true
		default:
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)
	r.Empty(f.rec.Named("CheckpointSigned"))
}

func TestCastSignaturesNotMember(t *testing.T) {
	r := require.New(t)
	f := newSignerFixture(t)
	f.notSyncing()

	first, second := testCheckpoint(10), testCheckpoint(20)
	f.incomplete(first, second)
	f.signedBy(10)
	f.signedBy(20)
	f.client.EXPECT().LatestCommit(gomock.Any()).Return(uint64(25), nil).Times(1)
	// joined the validator set after the first checkpoint
	f.client.EXPECT().Validators(gomock.Any(), uint64(10)).Return(ipc.PowerTable{{PublicKey: testKey(1), Power: 1}}, nil).Times(1)
	f.client.EXPECT().Validators(gomock.Any(), uint64(20)).Return(f.table(1), nil).Times(1)
	f.broadcaster.EXPECT().FevmInvoke(gomock.Any(), _testGateway, gomock.Any(), uint64(_testChainID)).
		Return(common.Hash{}, nil).Times(1)

	r.NoError(f.manager.CastValidatorSignatures(context.Background(), second, f.ledger))
	f.manager.Wait()
	events := f.rec.Named("CheckpointSigned")
	r.Len(events, 1)
	r.Equal(uint64(20), events[0].(observe.CheckpointSigned).Height)
}

func TestCastSignaturesBroadcastFailure(t *testing.T) {
	r := require.New(t)
	f := newSignerFixture(t)
	f.notSyncing()

	first, second := testCheckpoint(10), testCheckpoint(20)
	f.incomplete(first, second)
	f.signedBy(10)
	f.signedBy(20)
	f.client.EXPECT().LatestCommit(gomock.Any()).Return(uint64(25), nil).Times(1)
	f.client.EXPECT().Validators(gomock.Any(), uint64(10)).Return(f.table(), nil).Times(1)
	f.broadcaster.EXPECT().FevmInvoke(gomock.Any(), _testGateway, gomock.Any(), uint64(_testChainID)).
		Return(common.Hash{}, errors.New("nonce too low")).Times(1)

	r.NoError(f.manager.CastValidatorSignatures(context.Background(), second, f.ledger))
	f.manager.Wait()
	r.Empty(f.rec.Named("CheckpointSigned"))
}

func TestCastSignaturesCurrentMissing(t *testing.T) {
	r := require.New(t)
	f := newSignerFixture(t)
	f.notSyncing()

	current, other := testCheckpoint(20), testCheckpoint(10)
	f.incomplete(other)
	f.signedBy(10)
	f.client.EXPECT().LatestCommit(gomock.Any()).Return(uint64(11), nil).Times(1)
	f.client.EXPECT().Validators(gomock.Any(), uint64(10)).Return(f.table(), nil).Times(1)
	f.broadcaster.EXPECT().FevmInvoke(gomock.Any(), _testGateway, gomock.Any(), uint64(_testChainID)).
		Return(common.Hash{}, nil).Times(1)

	r.NoError(f.manager.CastValidatorSignatures(context.Background(), current, f.ledger))
	f.manager.Wait()

	violations := f.rec.Named("InvariantViolation")
	r.Len(violations, 1)
	r.Equal(observe.InvariantViolation{Invariant: InvariantCurrentIncomplete, Height: 20}, violations[0])
	// signing still goes on
	r.Len(f.rec.Named("CheckpointSigned"), 1)
}

func TestUnsignedCheckpointsLedgerError(t *testing.T) {
	r := require.New(t)
	f := newSignerFixture(t)
	f.notSyncing()

	f.incomplete(testCheckpoint(10))
	f.ledger.EXPECT().CheckpointSignatories(uint64(10)).Return(nil, errors.New("boom")).Times(1)
	r.Error(f.manager.CastValidatorSignatures(context.Background(), testCheckpoint(10), f.ledger))
	f.manager.Wait()
}

func TestSignatureCalldata(t *testing.T) {
	r := require.New(t)

	sk, err := crypto.GenerateKey()
	r.NoError(err)
	me := ipc.Validator{PublicKey: crypto.FromECDSAPub(&sk.PublicKey), Power: 7}
	table := ipc.PowerTable{
		{PublicKey: testKey(1), Power: 3},
		me,
		{PublicKey: testKey(2), Power: 5},
	}
	cp := testCheckpoint(30)
	calldata, err := SignatureCalldata(&cp, table, me, sk)
	r.NoError(err)

	gateway, err := abi.JSON(strings.NewReader(ipc.GatewayABI))
	r.NoError(err)
	method := gateway.Methods["addCheckpointSignature"]
	r.Equal(method.ID, calldata[:4])
	args, err := method.Inputs.Unpack(calldata[4:])
	r.NoError(err)
	r.Len(args, 4)
	r.Equal(big.NewInt(30), args[0])
	r.Equal(big.NewInt(7), args[2])

	// the proof shows membership in the table of the checkpoint
	var leaves [][]byte
	for _, v := range table {
		leaf, err := ipc.EncodeValidator(v)
		r.NoError(err)
		leaves = append(leaves, leaf)
	}
	tree, err := merkle.NewTree(leaves)
	r.NoError(err)
	raw := args[1].([][32]byte)
	proof := make([]common.Hash, len(raw))
	for i := range raw {
		proof[i] = raw[i]
	}
	leaf, err := ipc.EncodeValidator(me)
	r.NoError(err)
	r.True(merkle.Verify(tree.Root(), proof, leaf))

	// the signature recovers our key
	hash, err := cp.Hash()
	r.NoError(err)
	pk, err := crypto.SigToPub(hash.Bytes(), args[3].([]byte))
	r.NoError(err)
	r.Equal(crypto.PubkeyToAddress(sk.PublicKey), crypto.PubkeyToAddress(*pk))

	_, err = SignatureCalldata(&cp, table[:1], me, sk)
	r.Error(err)
}
