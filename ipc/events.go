// Copyright (c) 2026 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package ipc

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

type envelopeTuple struct {
	Kind          uint8           `abi:"kind"`
	LocalNonce    uint64          `abi:"localNonce"`
	OriginalNonce uint64          `abi:"originalNonce"`
	Value         *big.Int        `abi:"value"`
	To            ipcAddressTuple `abi:"to"`
	From          ipcAddressTuple `abi:"from"`
	Message       []byte          `abi:"message"`
}

var (
	envelopeComponents = []abi.ArgumentMarshaling{
		{Name: "kind", Type: "uint8"},
		{Name: "localNonce", Type: "uint64"},
		{Name: "originalNonce", Type: "uint64"},
		{Name: "value", Type: "uint256"},
		{Name: "to", Type: "tuple", Components: ipcAddressComponents},
		{Name: "from", Type: "tuple", Components: ipcAddressComponents},
		{Name: "message", Type: "bytes"},
	}

	_topDownMessageEvent = abi.NewEvent("NewTopDownMessage", "NewTopDownMessage", false, abi.Arguments{
		{Name: "subnet", Type: _addressType, Indexed: true},
		{Name: "message", Type: mustNewType("tuple", envelopeComponents)},
		{Name: "id", Type: _bytes32Type, Indexed: true},
	})
	_powerChangeEvent = abi.NewEvent("NewPowerChangeRequest", "NewPowerChangeRequest", false, abi.Arguments{
		{Name: "op", Type: _uint8Type},
		{Name: "validator", Type: _addressType},
		{Name: "payload", Type: _bytesType},
		{Name: "configurationNumber", Type: _uint64Type},
	})

	// TopDownMessageTopic is the topic of the gateway event carrying a top-down message
	TopDownMessageTopic = _topDownMessageEvent.ID
	// PowerChangeTopic is the topic of the subnet actor event carrying a validator change
	PowerChangeTopic = _powerChangeEvent.ID
)

func fromIPCAddressTuple(t ipcAddressTuple) IPCAddress {
	return IPCAddress{
		SubnetID: SubnetID{Root: t.SubnetID.Root, Route: t.SubnetID.Route},
		RawAddress: FvmAddress{
			AddrType: t.RawAddress.AddrType,
			Payload:  t.RawAddress.Payload,
		},
	}
}

// EncodeTopDownMessageEvent packs the non-indexed data of a NewTopDownMessage event
func EncodeTopDownMessageEvent(e *IpcEnvelope) ([]byte, error) {
	msg := e.Message
	if msg == nil {
		msg = []byte{}
	}
	return _topDownMessageEvent.Inputs.NonIndexed().Pack(envelopeTuple{
		Kind:          uint8(e.Kind),
		LocalNonce:    e.LocalNonce,
		OriginalNonce: e.OriginalNonce,
		Value:         e.Amount().ToBig(),
		To:            toIPCAddressTuple(e.To),
		From:          toIPCAddressTuple(e.From),
		Message:       msg,
	})
}

// DecodeTopDownMessageEvent unpacks the envelope of a NewTopDownMessage event
func DecodeTopDownMessageEvent(data []byte) (IpcEnvelope, error) {
	values, err := _topDownMessageEvent.Inputs.NonIndexed().Unpack(data)
	if err != nil {
		return IpcEnvelope{}, errors.Wrap(err, "failed to unpack top-down message")
	}
	if len(values) != 1 {
		return IpcEnvelope{}, errors.Errorf("unexpected number of values %d", len(values))
	}
	t, ok := abi.ConvertType(values[0], new(envelopeTuple)).(*envelopeTuple)
	if !ok {
		return IpcEnvelope{}, errors.New("failed to convert top-down message")
	}
	value, overflow := uint256.FromBig(t.Value)
	if overflow {
		return IpcEnvelope{}, errors.New("message value overflows 256 bits")
	}
	return IpcEnvelope{
		Kind:          MsgKind(t.Kind),
		LocalNonce:    t.LocalNonce,
		OriginalNonce: t.OriginalNonce,
		Value:         value,
		To:            fromIPCAddressTuple(t.To),
		From:          fromIPCAddressTuple(t.From),
		Message:       t.Message,
	}, nil
}

// EncodePowerChangeEvent packs the data of a NewPowerChangeRequest event
func EncodePowerChangeEvent(req *PowerChangeRequest) ([]byte, error) {
	payload := req.Change.Payload
	if payload == nil {
		payload = []byte{}
	}
	return _powerChangeEvent.Inputs.Pack(uint8(req.Change.Op), req.Change.Validator, payload, req.ConfigurationNumber)
}

// DecodePowerChangeEvent unpacks a NewPowerChangeRequest event
func DecodePowerChangeEvent(data []byte) (PowerChangeRequest, error) {
	values, err := _powerChangeEvent.Inputs.Unpack(data)
	if err != nil {
		return PowerChangeRequest{}, errors.Wrap(err, "failed to unpack power change request")
	}
	if len(values) != 4 {
		return PowerChangeRequest{}, errors.Errorf("unexpected number of values %d", len(values))
	}
	op, ok1 := values[0].(uint8)
	validator, ok2 := values[1].(common.Address)
	payload, ok3 := values[2].([]byte)
	cn, ok4 := values[3].(uint64)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return PowerChangeRequest{}, errors.New("unexpected power change request types")
	}
	return PowerChangeRequest{
		Change: PowerChange{
			Op:        PowerOperation(op),
			Payload:   payload,
			Validator: validator,
		},
		ConfigurationNumber: cn,
	}, nil
}
