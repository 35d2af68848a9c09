// Copyright (c) 2026 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package ipc

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// PublicKeyLength is the length of an uncompressed secp256k1 public key
const PublicKeyLength = 65

type (
	// SubnetID identifies a subnet by the root chain id and the route of gateway addresses down the hierarchy
	SubnetID struct {
		Root  uint64
		Route []common.Address
	}

	// FvmAddress is a raw address in its FVM representation
	FvmAddress struct {
		AddrType uint8
		Payload  []byte
	}

	// IPCAddress is an address qualified by the subnet it lives in
	IPCAddress struct {
		SubnetID   SubnetID
		RawAddress FvmAddress
	}

	// MsgKind is the kind of a cross message
	MsgKind uint8

	// IpcEnvelope is a cross-subnet message
	IpcEnvelope struct {
		Kind          MsgKind
		LocalNonce    uint64
		OriginalNonce uint64
		Value         *uint256.Int
		To            IPCAddress
		From          IPCAddress
		Message       []byte
	}

	// PowerOperation is the operation of a validator change
	PowerOperation uint8

	// PowerChange is a single change to a validator
	PowerChange struct {
		Op        PowerOperation
		Payload   []byte
		Validator common.Address
	}

	// PowerChangeRequest is a validator change tagged with the configuration number it produces
	PowerChangeRequest struct {
		Change              PowerChange
		ConfigurationNumber uint64
	}

	// Validator is a validator and its voting power
	Validator struct {
		PublicKey []byte
		Power     uint64
	}

	// PowerTable is the validator set, unique by public key
	PowerTable []Validator
)

// cross message kinds
const (
	Transfer MsgKind = iota
	Call
	Result
)

// validator change operations
const (
	SetMetadata PowerOperation = iota
	SetPower
)

// IsRoot returns true if the subnet is the root of the hierarchy
func (id SubnetID) IsRoot() bool {
	return len(id.Route) == 0
}

// Equal compares two subnet ids
func (id SubnetID) Equal(other SubnetID) bool {
	if id.Root != other.Root || len(id.Route) != len(other.Route) {
		return false
	}
	for i := range id.Route {
		if id.Route[i] != other.Route[i] {
			return false
		}
	}
	return true
}

func (id SubnetID) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "/r%d", id.Root)
	for _, a := range id.Route {
		sb.WriteString("/")
		sb.WriteString(strings.ToLower(a.Hex()))
	}
	return sb.String()
}

// Amount returns the tokens carried by the message
func (e *IpcEnvelope) Amount() *uint256.Int {
	if e.Value == nil {
		return uint256.NewInt(0)
	}
	return e.Value
}

// Address derives the ethereum address of the validator
func (v Validator) Address() common.Address {
	return PublicKeyToAddress(v.PublicKey)
}

// Equal compares both the public key and the power
func (v Validator) Equal(other Validator) bool {
	return v.Power == other.Power && bytes.Equal(v.PublicKey, other.PublicKey)
}

// Key returns the map key of the validator identity
func (v Validator) Key() string {
	return string(v.PublicKey)
}

// Find returns the validator with the given public key
func (t PowerTable) Find(pk []byte) (Validator, bool) {
	for _, v := range t {
		if bytes.Equal(v.PublicKey, pk) {
			return v, true
		}
	}
	return Validator{}, false
}

// TotalPower sums the power of all validators
func (t PowerTable) TotalPower() uint64 {
	var total uint64
	for _, v := range t {
		total += v.Power
	}
	return total
}

// PublicKeyToAddress derives the address from an uncompressed public key
func PublicKeyToAddress(pk []byte) common.Address {
	if len(pk) != PublicKeyLength {
		return common.Address{}
	}
	return common.BytesToAddress(crypto.Keccak256(pk[1:])[12:])
}

// TokensToBurn sums the value of messages leaving the subnet
func TokensToBurn(msgs []IpcEnvelope) *uint256.Int {
	total := uint256.NewInt(0)
	for i := range msgs {
		total.Add(total, msgs[i].Amount())
	}
	return total
}
