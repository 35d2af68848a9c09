// Copyright (c) 2026 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package ipc

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

func TestTopDownMessageEvent(t *testing.T) {
	r := require.New(t)

	r.Equal(crypto.Keccak256Hash([]byte(
		"NewTopDownMessage(address,(uint8,uint64,uint64,uint256,((uint64,address[]),(uint8,bytes)),((uint64,address[]),(uint8,bytes)),bytes),bytes32)",
	)), TopDownMessageTopic)

	e := testEnvelope(7, 1000)
	e.Message = []byte("hello")
	data, err := EncodeTopDownMessageEvent(&e)
	r.NoError(err)
	decoded, err := DecodeTopDownMessageEvent(data)
	r.NoError(err)
	r.Equal(e.LocalNonce, decoded.LocalNonce)
	r.Equal(e.Value, decoded.Value)
	r.Equal(e.Message, decoded.Message)
	r.True(e.From.SubnetID.Equal(decoded.From.SubnetID))
	r.Equal(e.To.RawAddress, decoded.To.RawAddress)

	_, err = DecodeTopDownMessageEvent([]byte{1, 2, 3})
	r.Error(err)
}

func TestPowerChangeEvent(t *testing.T) {
	r := require.New(t)

	r.Equal(crypto.Keccak256Hash([]byte("NewPowerChangeRequest(uint8,address,bytes,uint64)")), PowerChangeTopic)

	req := PowerChangeRequest{
		Change: PowerChange{
			Op:        SetPower,
			Payload:   []byte{0, 1},
			Validator: common.HexToAddress("0x1234"),
		},
		ConfigurationNumber: 9,
	}
	data, err := EncodePowerChangeEvent(&req)
	r.NoError(err)
	decoded, err := DecodePowerChangeEvent(data)
	r.NoError(err)
	r.Equal(req, decoded)
}
