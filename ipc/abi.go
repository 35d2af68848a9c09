// Copyright (c) 2026 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package ipc

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// GatewayABI is the subset of the gateway contract called by validators
const GatewayABI = `[
	{
		"inputs": [
			{"internalType": "uint256", "name": "height", "type": "uint256"},
			{"internalType": "bytes32[]", "name": "membershipProof", "type": "bytes32[]"},
			{"internalType": "uint256", "name": "weight", "type": "uint256"},
			{"internalType": "bytes", "name": "signature", "type": "bytes"}
		],
		"name": "addCheckpointSignature",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

type (
	subnetIDTuple struct {
		Root  uint64           `abi:"root"`
		Route []common.Address `abi:"route"`
	}

	fvmAddressTuple struct {
		AddrType uint8  `abi:"addrType"`
		Payload  []byte `abi:"payload"`
	}

	ipcAddressTuple struct {
		SubnetID   subnetIDTuple   `abi:"subnetId"`
		RawAddress fvmAddressTuple `abi:"rawAddress"`
	}

	commitmentTuple struct {
		TotalNumMsgs uint64   `abi:"totalNumMsgs"`
		MsgsRoot     [32]byte `abi:"msgsRoot"`
	}

	statsTuple struct {
		TotalActiveValidators   uint64 `abi:"totalActiveValidators"`
		TotalNumBlocksCommitted uint64 `abi:"totalNumBlocksCommitted"`
	}

	summaryTuple struct {
		Stats              statsTuple `abi:"stats"`
		DataRootCommitment [32]byte   `abi:"dataRootCommitment"`
	}

	activityTuple struct {
		Consensus summaryTuple `abi:"consensus"`
	}
)

var (
	subnetIDComponents = []abi.ArgumentMarshaling{
		{Name: "root", Type: "uint64"},
		{Name: "route", Type: "address[]"},
	}
	ipcAddressComponents = []abi.ArgumentMarshaling{
		{Name: "subnetId", Type: "tuple", Components: subnetIDComponents},
		{Name: "rawAddress", Type: "tuple", Components: []abi.ArgumentMarshaling{
			{Name: "addrType", Type: "uint8"},
			{Name: "payload", Type: "bytes"},
		}},
	}
	commitmentComponents = []abi.ArgumentMarshaling{
		{Name: "totalNumMsgs", Type: "uint64"},
		{Name: "msgsRoot", Type: "bytes32"},
	}
	activityComponents = []abi.ArgumentMarshaling{
		{Name: "consensus", Type: "tuple", Components: []abi.ArgumentMarshaling{
			{Name: "stats", Type: "tuple", Components: []abi.ArgumentMarshaling{
				{Name: "totalActiveValidators", Type: "uint64"},
				{Name: "totalNumBlocksCommitted", Type: "uint64"},
			}},
			{Name: "dataRootCommitment", Type: "bytes32"},
		}},
	}

	_uint8Type      = mustNewType("uint8", nil)
	_uint64Type     = mustNewType("uint64", nil)
	_uint256Type    = mustNewType("uint256", nil)
	_bytesType      = mustNewType("bytes", nil)
	_bytes32Type    = mustNewType("bytes32", nil)
	_addressType    = mustNewType("address", nil)
	_subnetIDType   = mustNewType("tuple", subnetIDComponents)
	_ipcAddressType = mustNewType("tuple", ipcAddressComponents)
	_commitmentType = mustNewType("tuple", commitmentComponents)
	_activityType   = mustNewType("tuple", activityComponents)

	// (kind, localNonce, originalNonce, value, to, from, message)
	_envelopeArgs = abi.Arguments{
		{Type: _uint8Type},
		{Type: _uint64Type},
		{Type: _uint64Type},
		{Type: _uint256Type},
		{Type: _ipcAddressType},
		{Type: _ipcAddressType},
		{Type: _bytesType},
	}
	// (subnetId, blockHeight, blockHash, nextConfigurationNumber, msgs, activity)
	_checkpointArgs = abi.Arguments{
		{Type: _subnetIDType},
		{Type: _uint256Type},
		{Type: _bytes32Type},
		{Type: _uint64Type},
		{Type: _commitmentType},
		{Type: _activityType},
	}
	_validatorArgs     = abi.Arguments{{Type: _addressType}, {Type: _uint256Type}}
	_validatorDataArgs = abi.Arguments{{Type: _addressType}, {Type: _uint64Type}}
	_powerArgs         = abi.Arguments{{Type: _uint256Type}}

	_gatewayABI abi.ABI
)

func init() {
	var err error
	_gatewayABI, err = abi.JSON(strings.NewReader(GatewayABI))
	if err != nil {
		panic(err)
	}
}

func mustNewType(t string, components []abi.ArgumentMarshaling) abi.Type {
	typ, err := abi.NewType(t, "", components)
	if err != nil {
		panic(err)
	}
	return typ
}

func toSubnetIDTuple(id SubnetID) subnetIDTuple {
	route := id.Route
	if route == nil {
		route = []common.Address{}
	}
	return subnetIDTuple{Root: id.Root, Route: route}
}

func toIPCAddressTuple(a IPCAddress) ipcAddressTuple {
	payload := a.RawAddress.Payload
	if payload == nil {
		payload = []byte{}
	}
	return ipcAddressTuple{
		SubnetID: toSubnetIDTuple(a.SubnetID),
		RawAddress: fvmAddressTuple{
			AddrType: a.RawAddress.AddrType,
			Payload:  payload,
		},
	}
}

// EncodeEnvelope returns the canonical ABI encoding of a cross message, used as merkle leaf
func EncodeEnvelope(e *IpcEnvelope) ([]byte, error) {
	msg := e.Message
	if msg == nil {
		msg = []byte{}
	}
	return _envelopeArgs.Pack(
		uint8(e.Kind),
		e.LocalNonce,
		e.OriginalNonce,
		e.Amount().ToBig(),
		toIPCAddressTuple(e.To),
		toIPCAddressTuple(e.From),
		msg,
	)
}

// EncodeCheckpoint returns the ABI encoding of the checkpoint fields
func EncodeCheckpoint(cp *BottomUpCheckpoint) ([]byte, error) {
	return _checkpointArgs.Pack(
		toSubnetIDTuple(cp.SubnetID),
		new(big.Int).SetUint64(cp.BlockHeight),
		cp.BlockHash,
		cp.NextConfigurationNumber,
		commitmentTuple{
			TotalNumMsgs: cp.Msgs.TotalNumMsgs,
			MsgsRoot:     cp.Msgs.MsgsRoot,
		},
		activityTuple{
			Consensus: summaryTuple{
				Stats: statsTuple{
					TotalActiveValidators:   cp.Activity.Consensus.Stats.TotalActiveValidators,
					TotalNumBlocksCommitted: cp.Activity.Consensus.Stats.TotalNumBlocksCommitted,
				},
				DataRootCommitment: cp.Activity.Consensus.DataRootCommitment,
			},
		},
	)
}

// CheckpointHash is the keccak256 of the ABI-encoded checkpoint
func CheckpointHash(cp *BottomUpCheckpoint) (common.Hash, error) {
	data, err := EncodeCheckpoint(cp)
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "failed to encode checkpoint")
	}
	return crypto.Keccak256Hash(data), nil
}

// EncodeValidator returns the (address, weight) merkle leaf of a validator
func EncodeValidator(v Validator) ([]byte, error) {
	return _validatorArgs.Pack(v.Address(), new(big.Int).SetUint64(v.Power))
}

// EncodeValidatorData returns the (address, blocks) merkle leaf of validator activity
func EncodeValidatorData(d ValidatorData) ([]byte, error) {
	return _validatorDataArgs.Pack(d.Validator, d.BlocksCommitted)
}

// AddCheckpointSignatureCalldata packs the gateway call that records a validator signature
func AddCheckpointSignatureCalldata(height uint64, proof []common.Hash, weight uint64, signature []byte) ([]byte, error) {
	p := make([][32]byte, len(proof))
	for i := range proof {
		p[i] = proof[i]
	}
	data, err := _gatewayABI.Pack(
		"addCheckpointSignature",
		new(big.Int).SetUint64(height),
		p,
		new(big.Int).SetUint64(weight),
		signature,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to pack addCheckpointSignature")
	}
	return data, nil
}

// EncodePowerPayload packs the payload of a SetPower change
func EncodePowerPayload(power uint64) ([]byte, error) {
	return _powerArgs.Pack(new(big.Int).SetUint64(power))
}

// DecodePowerPayload unpacks the payload of a SetPower change
func DecodePowerPayload(data []byte) (uint64, error) {
	values, err := _powerArgs.Unpack(data)
	if err != nil {
		return 0, errors.Wrap(err, "failed to unpack power")
	}
	power, ok := values[0].(*big.Int)
	if !ok || !power.IsUint64() {
		return 0, errors.New("power out of range")
	}
	return power.Uint64(), nil
}
