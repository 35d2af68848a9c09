// Copyright (c) 2026 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package ledger

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/iotexproject/iotex-subnet/db/batch"
	"github.com/iotexproject/iotex-subnet/ipc"
)

func (r *powerRecord) find(addr common.Address) int {
	for i := range r.Members {
		if r.Members[i].Address == addr {
			return i
		}
	}
	return -1
}

func (r *powerRecord) member(addr common.Address) bool {
	i := r.find(addr)
	return i >= 0 && r.Members[i].Power > 0
}

// table returns the validators with power and a known public key
func (r *powerRecord) table() ipc.PowerTable {
	table := ipc.PowerTable{}
	for _, m := range r.Members {
		if m.Power == 0 || len(m.PublicKey) != ipc.PublicKeyLength {
			continue
		}
		table = append(table, ipc.Validator{PublicKey: m.PublicKey, Power: m.Power})
	}
	return table
}

func (r *powerRecord) apply(change *ipc.PowerChange) error {
	i := r.find(change.Validator)
	if i < 0 {
		r.Members = append(r.Members, memberRecord{Address: change.Validator})
		i = len(r.Members) - 1
	}
	switch change.Op {
	case ipc.SetMetadata:
		if len(change.Payload) != ipc.PublicKeyLength || ipc.PublicKeyToAddress(change.Payload) != change.Validator {
			return errors.Wrapf(ErrInvalidPowerChange, "public key %x of validator %s", change.Payload, change.Validator.Hex())
		}
		r.Members[i].PublicKey = change.Payload
	case ipc.SetPower:
		power, err := ipc.DecodePowerPayload(change.Payload)
		if err != nil {
			return errors.Wrapf(ErrInvalidPowerChange, "power of validator %s: %v", change.Validator.Hex(), err)
		}
		r.Members[i].Power = power
	default:
		return errors.Wrapf(ErrInvalidPowerChange, "unknown operation %d", change.Op)
	}
	return nil
}

// CurrentPowerTable returns the configuration number and the validators of the subnet
func (g *Gateway) CurrentPowerTable() (uint64, ipc.PowerTable, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var power powerRecord
	if err := g.getRecord(_metaNS, _powerKey, &power); err != nil {
		return 0, nil, errors.Wrap(err, "failed to get power table")
	}
	return power.ConfigurationNumber, power.table(), nil
}

// ApplyValidatorChanges applies the pending validator changes in configuration order, and returns the
// configuration number of the new power table, or 0 if nothing changed
func (g *Gateway) ApplyValidatorChanges() (uint64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var changes []ipc.PowerChangeRequest
	if err := g.forEach(_changeNS, func(_, v []byte) error {
		var req ipc.PowerChangeRequest
		if err := cbor.Unmarshal(v, &req); err != nil {
			return errors.Wrap(err, "failed to decode validator change")
		}
		changes = append(changes, req)
		return nil
	}); err != nil {
		return 0, err
	}
	if len(changes) == 0 {
		return 0, nil
	}

	var power powerRecord
	if err := g.getRecord(_metaNS, _powerKey, &power); err != nil {
		return 0, errors.Wrap(err, "failed to get power table")
	}
	b := batch.NewBatch()
	for i := range changes {
		if err := power.apply(&changes[i].Change); err != nil {
			return 0, err
		}
		power.ConfigurationNumber = changes[i].ConfigurationNumber
		b.Delete(_changeNS, heightKey(changes[i].ConfigurationNumber))
	}
	if err := putRecord(b, _metaNS, _powerKey, &power); err != nil {
		return 0, err
	}
	if err := g.write(b); err != nil {
		return 0, errors.Wrap(err, "failed to apply validator changes")
	}
	g.logger.Info("applied validator changes",
		zap.Int("changes", len(changes)),
		zap.Uint64("configuration", power.ConfigurationNumber))
	return power.ConfigurationNumber, nil
}
