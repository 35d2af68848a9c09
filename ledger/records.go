// Copyright (c) 2026 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package ledger

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/fxamacker/cbor/v2"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/iotexproject/iotex-subnet/db"
	"github.com/iotexproject/iotex-subnet/db/batch"
	"github.com/iotexproject/iotex-subnet/ipc"
	"github.com/iotexproject/iotex-subnet/pkg/util/byteutil"
)

// namespaces of the gateway state
const (
	_metaNS       = "meta"
	_batchNS      = "batch"
	_changeNS     = "change"
	_activityNS   = "activity"
	_checkpointNS = "checkpoint"
	_incompleteNS = "incomplete"
)

var (
	_tipKey           = []byte("tip")
	_powerKey         = []byte("power")
	_supplyKey        = []byte("supply")
	_finalityKey      = []byte("finality")
	_topDownNonceKey  = []byte("topDownNonce")
	_bottomUpNonceKey = []byte("bottomUpNonce")
	_lastConfigKey    = []byte("lastConfig")
	_lastCheckpoint   = []byte("lastCheckpoint")
)

type (
	tipRecord struct {
		Height  uint64
		Hash    common.Hash
		HasHash bool
	}

	finalityRecord struct {
		Height    uint64
		BlockHash []byte
	}

	envelopeRecord struct {
		Kind          uint8
		LocalNonce    uint64
		OriginalNonce uint64
		Value         []byte
		To            ipc.IPCAddress
		From          ipc.IPCAddress
		Message       []byte
	}

	// batchRecord holds the messages of a checkpoint period, or the messages of a batch cut early
	// because it was full
	batchRecord struct {
		Cut  bool
		Msgs []envelopeRecord
	}

	memberRecord struct {
		Address   common.Address
		PublicKey []byte
		Power     uint64
	}

	powerRecord struct {
		ConfigurationNumber uint64
		Members             []memberRecord
	}

	signatureRecord struct {
		Validator common.Address
		Weight    uint64
		Signature []byte
	}

	checkpointRecord struct {
		Checkpoint ipc.BottomUpCheckpoint
		Hash       common.Hash
		RootHash   common.Hash
		Threshold  uint64
		Weight     uint64
		Reached    bool
		Signatures []signatureRecord
	}
)

func toEnvelopeRecord(e *ipc.IpcEnvelope) envelopeRecord {
	value := e.Amount().Bytes32()
	return envelopeRecord{
		Kind:          uint8(e.Kind),
		LocalNonce:    e.LocalNonce,
		OriginalNonce: e.OriginalNonce,
		Value:         value[:],
		To:            e.To,
		From:          e.From,
		Message:       e.Message,
	}
}

func (r *envelopeRecord) envelope() ipc.IpcEnvelope {
	return ipc.IpcEnvelope{
		Kind:          ipc.MsgKind(r.Kind),
		LocalNonce:    r.LocalNonce,
		OriginalNonce: r.OriginalNonce,
		Value:         new(uint256.Int).SetBytes(r.Value),
		To:            r.To,
		From:          r.From,
		Message:       r.Message,
	}
}

func (r *batchRecord) envelopes() []ipc.IpcEnvelope {
	msgs := make([]ipc.IpcEnvelope, 0, len(r.Msgs))
	for i := range r.Msgs {
		msgs = append(msgs, r.Msgs[i].envelope())
	}
	return msgs
}

func (r *checkpointRecord) signed(validator common.Address) bool {
	for _, s := range r.Signatures {
		if s.Validator == validator {
			return true
		}
	}
	return false
}

func heightKey(h uint64) []byte {
	return byteutil.Uint64ToBytesBigEndian(h)
}

func (g *Gateway) getRecord(ns string, key []byte, v interface{}) error {
	data, err := g.kv.Get(ns, key)
	if err != nil {
		return err
	}
	return errors.Wrapf(cbor.Unmarshal(data, v), "failed to decode %s/%x", ns, key)
}

// getRecordIfExists returns false if the record does not exist
func (g *Gateway) getRecordIfExists(ns string, key []byte, v interface{}) (bool, error) {
	err := g.getRecord(ns, key, v)
	switch errors.Cause(err) {
	case nil:
		return true, nil
	case db.ErrNotExist:
		return false, nil
	default:
		return false, err
	}
}

func (g *Gateway) getUint64(key []byte) (uint64, error) {
	data, err := g.kv.Get(_metaNS, key)
	switch errors.Cause(err) {
	case nil:
		return byteutil.BytesToUint64BigEndian(data), nil
	case db.ErrNotExist:
		return 0, nil
	default:
		return 0, err
	}
}

// forEach is KVStore.ForEach where a missing namespace is empty
func (g *Gateway) forEach(ns string, fn func(k, v []byte) error) error {
	err := g.kv.ForEach(ns, fn)
	if errors.Cause(err) == db.ErrBucketNotExist {
		return nil
	}
	return err
}

func putRecord(b batch.KVStoreBatch, ns string, key []byte, v interface{}) error {
	data, err := cbor.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "failed to encode %s/%x", ns, key)
	}
	b.Put(ns, key, data)
	return nil
}

func putUint64(b batch.KVStoreBatch, key []byte, v uint64) {
	b.Put(_metaNS, key, byteutil.Uint64ToBytesBigEndian(v))
}
