// Copyright (c) 2026 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package ipc

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/iotexproject/iotex-subnet/pkg/merkle"
)

func testSubnet() SubnetID {
	return SubnetID{
		Root:  314159,
		Route: []common.Address{common.HexToAddress("0x77aa40b105843728088c0132e43fc44348881da8")},
	}
}

func testEnvelope(nonce uint64, value uint64) IpcEnvelope {
	return IpcEnvelope{
		Kind:       Transfer,
		LocalNonce: nonce,
		Value:      uint256.NewInt(value),
		From: IPCAddress{
			SubnetID:   testSubnet(),
			RawAddress: FvmAddress{AddrType: 1, Payload: []byte{1, 2, 3}},
		},
		To: IPCAddress{
			SubnetID:   SubnetID{Root: 314159},
			RawAddress: FvmAddress{AddrType: 4, Payload: common.HexToAddress("0x01").Bytes()},
		},
	}
}

func TestEncodeEnvelope(t *testing.T) {
	r := require.New(t)

	e1 := testEnvelope(1, 100)
	b1, err := EncodeEnvelope(&e1)
	r.NoError(err)
	r.Zero(len(b1) % 32)

	again, err := EncodeEnvelope(&e1)
	r.NoError(err)
	r.Equal(b1, again)

	e2 := testEnvelope(2, 100)
	b2, err := EncodeEnvelope(&e2)
	r.NoError(err)
	r.NotEqual(b1, b2)

	// nil value encodes as zero
	e3 := testEnvelope(1, 0)
	e3.Value = nil
	e4 := testEnvelope(1, 0)
	b3, err := EncodeEnvelope(&e3)
	r.NoError(err)
	b4, err := EncodeEnvelope(&e4)
	r.NoError(err)
	r.Equal(b3, b4)
}

func TestMsgsRoot(t *testing.T) {
	r := require.New(t)

	root, err := MsgsRoot(nil)
	r.NoError(err)
	r.Equal([32]byte{}, root)

	msgs := []IpcEnvelope{testEnvelope(1, 10), testEnvelope(2, 20)}
	root, err = MsgsRoot(msgs)
	r.NoError(err)
	r.NotEqual([32]byte{}, root)

	leaf0, err := EncodeEnvelope(&msgs[0])
	r.NoError(err)
	leaf1, err := EncodeEnvelope(&msgs[1])
	r.NoError(err)
	tree, err := merkle.NewTree([][]byte{leaf0, leaf1})
	r.NoError(err)
	r.Equal(common.Hash(root), tree.Root())
}

func TestCheckpointHash(t *testing.T) {
	r := require.New(t)

	cp := BottomUpCheckpoint{
		SubnetID:                testSubnet(),
		BlockHeight:             100,
		BlockHash:               [32]byte{1},
		NextConfigurationNumber: 0,
		Msgs:                    Commitment{TotalNumMsgs: 2, MsgsRoot: [32]byte{2}},
	}
	h1, err := cp.Hash()
	r.NoError(err)
	data, err := EncodeCheckpoint(&cp)
	r.NoError(err)
	r.Equal(crypto.Keccak256Hash(data), h1)

	cp.NextConfigurationNumber = 1
	h2, err := CheckpointHash(&cp)
	r.NoError(err)
	r.NotEqual(h1, h2)

	// root subnet has an empty route
	cp.SubnetID = SubnetID{Root: 1}
	_, err = CheckpointHash(&cp)
	r.NoError(err)
}

func TestAddCheckpointSignatureCalldata(t *testing.T) {
	r := require.New(t)

	data, err := AddCheckpointSignatureCalldata(100, []common.Hash{{1}, {2}}, 10, []byte{0xab})
	r.NoError(err)
	selector := crypto.Keccak256([]byte("addCheckpointSignature(uint256,bytes32[],uint256,bytes)"))[:4]
	r.Equal(selector, data[:4])

	method := _gatewayABI.Methods["addCheckpointSignature"]
	values, err := method.Inputs.Unpack(data[4:])
	r.NoError(err)
	r.Len(values, 4)
	r.Equal(uint64(100), values[0].(interface{ Uint64() uint64 }).Uint64())
	r.Equal([][32]byte{{1}, {2}}, values[1])
	r.Equal([]byte{0xab}, values[3])
}

func TestCompressedActivity(t *testing.T) {
	r := require.New(t)

	full := FullActivityRollup{Consensus: FullSummary{
		Stats: AggregatedStats{TotalActiveValidators: 2, TotalNumBlocksCommitted: 10},
	}}
	c, err := full.Compressed()
	r.NoError(err)
	r.Equal(full.Consensus.Stats, c.Consensus.Stats)
	r.Equal([32]byte{}, c.Consensus.DataRootCommitment)

	full.Consensus.Data = []ValidatorData{
		{Validator: common.HexToAddress("0x01"), BlocksCommitted: 4},
		{Validator: common.HexToAddress("0x02"), BlocksCommitted: 6},
	}
	c, err = full.Compressed()
	r.NoError(err)
	r.NotEqual([32]byte{}, c.Consensus.DataRootCommitment)
}

func TestPowerPayload(t *testing.T) {
	r := require.New(t)

	data, err := EncodePowerPayload(1000)
	r.NoError(err)
	r.Len(data, 32)
	power, err := DecodePowerPayload(data)
	r.NoError(err)
	r.Equal(uint64(1000), power)

	_, err = DecodePowerPayload([]byte{1, 2})
	r.Error(err)
}
