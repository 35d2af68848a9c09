// Copyright (c) 2026 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package ledger

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/iotexproject/iotex-subnet/db/batch"
	"github.com/iotexproject/iotex-subnet/ipc"
	"github.com/iotexproject/iotex-subnet/pkg/merkle"
	"github.com/iotexproject/iotex-subnet/pkg/util/byteutil"
)

// NewBottomUpCheckpointTopic is the topic of the log emitted when a checkpoint is stored
var NewBottomUpCheckpointTopic = crypto.Keccak256Hash([]byte("NewBottomUpCheckpoint(uint256,bytes32)"))

// epoch returns the checkpoint height closing the period of h
func (g *Gateway) epoch(h uint64) uint64 {
	p := g.genesis.CheckPeriod
	if p == 0 {
		return h
	}
	e := (h + p - 1) / p * p
	if e == 0 {
		e = p
	}
	return e
}

// SendBottomUpMessage queues a message leaving the subnet in the batch of the current period, and
// assigns its nonce. A full batch is cut at the executing height.
func (g *Gateway) SendBottomUpMessage(msg ipc.IpcEnvelope) (ipc.IpcEnvelope, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	nonce, err := g.getUint64(_bottomUpNonceKey)
	if err != nil {
		return msg, err
	}
	msg.LocalNonce = nonce

	height, epoch := g.tip.Height, g.epoch(g.tip.Height)
	var pending batchRecord
	if _, err := g.getRecordIfExists(_batchNS, heightKey(epoch), &pending); err != nil {
		return msg, err
	}
	pending.Msgs = append(pending.Msgs, toEnvelopeRecord(&msg))

	b := batch.NewBatch()
	limit := g.genesis.MaxMsgsPerBatch
	switch {
	case limit == 0 || uint64(len(pending.Msgs)) < limit:
		err = putRecord(b, _batchNS, heightKey(epoch), &pending)
	case height == epoch:
		pending.Cut = true
		err = putRecord(b, _batchNS, heightKey(epoch), &pending)
	default:
		var cut batchRecord
		if _, err := g.getRecordIfExists(_batchNS, heightKey(height), &cut); err != nil {
			return msg, err
		}
		cut.Cut = true
		cut.Msgs = append(cut.Msgs, pending.Msgs...)
		b.Delete(_batchNS, heightKey(epoch))
		err = putRecord(b, _batchNS, heightKey(height), &cut)
		g.logger.Debug("cut full message batch", zap.Uint64("height", height))
	}
	if err != nil {
		return msg, err
	}
	putUint64(b, _bottomUpNonceKey, nonce+1)
	if err := g.write(b); err != nil {
		return msg, errors.Wrap(err, "failed to queue bottom-up message")
	}
	return msg, nil
}

// BottomUpMsgBatch returns the batch of messages to be checkpointed at the height. The block height of
// the batch is set only if the batch was cut before the end of the period.
func (g *Gateway) BottomUpMsgBatch(height uint64) (ipc.BottomUpMsgBatch, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	res := ipc.BottomUpMsgBatch{SubnetID: g.genesis.SubnetID}
	var rec batchRecord
	exist, err := g.getRecordIfExists(_batchNS, heightKey(height), &rec)
	if err != nil || !exist {
		return res, err
	}
	switch {
	case rec.Cut:
		res.BlockHeight = height
		res.Msgs = rec.envelopes()
	case g.genesis.CheckPeriod != 0 && height%g.genesis.CheckPeriod == 0:
		res.Msgs = rec.envelopes()
	}
	return res, nil
}

// CreateBottomUpCheckpoint stores the checkpoint to be signed by the signers, and emits its log
func (g *Gateway) CreateBottomUpCheckpoint(
	cp ipc.BottomUpCheckpoint,
	signers ipc.PowerTable,
	msgs []ipc.IpcEnvelope,
	activity []ipc.ValidatorData,
) ([]types.Log, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	last, err := g.getUint64(_lastCheckpoint)
	if err != nil {
		return nil, err
	}
	if cp.BlockHeight <= last {
		return nil, errors.Wrapf(ErrInvalidHeight, "checkpoint %d after %d", cp.BlockHeight, last)
	}
	if cp.Msgs.TotalNumMsgs != uint64(len(msgs)) {
		return nil, errors.Errorf("checkpoint commits to %d messages, got %d", cp.Msgs.TotalNumMsgs, len(msgs))
	}
	hash, err := cp.Hash()
	if err != nil {
		return nil, err
	}
	rec := checkpointRecord{
		Checkpoint: cp,
		Hash:       hash,
		Threshold:  (signers.TotalPower()*g.genesis.MajorityPercentage + 99) / 100,
	}
	if len(signers) > 0 {
		leaves := make([][]byte, 0, len(signers))
		for _, v := range signers {
			leaf, err := ipc.EncodeValidator(v)
			if err != nil {
				return nil, err
			}
			leaves = append(leaves, leaf)
		}
		tree, err := merkle.NewTree(leaves)
		if err != nil {
			return nil, err
		}
		rec.RootHash = tree.Root()
	}
	rec.Reached = rec.Threshold == 0

	b := batch.NewBatch()
	key := heightKey(cp.BlockHeight)
	if err := putRecord(b, _checkpointNS, key, &rec); err != nil {
		return nil, err
	}
	if !rec.Reached {
		b.Put(_incompleteNS, key, key)
	}
	putUint64(b, _lastCheckpoint, cp.BlockHeight)
	if err := g.write(b); err != nil {
		return nil, errors.Wrap(err, "failed to store checkpoint")
	}
	g.logger.Info("stored bottom-up checkpoint",
		zap.Uint64("height", cp.BlockHeight),
		zap.String("hash", hash.Hex()),
		zap.Int("msgs", len(msgs)),
		zap.Int("activeValidators", len(activity)))
	return []types.Log{{
		Address:     g.genesis.Gateway,
		Topics:      []common.Hash{NewBottomUpCheckpointTopic, common.BigToHash(new(big.Int).SetUint64(cp.BlockHeight))},
		Data:        hash.Bytes(),
		BlockNumber: g.tip.Height,
	}}, nil
}

func (g *Gateway) checkpoint(height uint64) (*checkpointRecord, error) {
	var rec checkpointRecord
	exist, err := g.getRecordIfExists(_checkpointNS, heightKey(height), &rec)
	if err != nil {
		return nil, err
	}
	if !exist {
		return nil, errors.Wrapf(ErrCheckpointNotFound, "height %d", height)
	}
	return &rec, nil
}

// IncompleteCheckpoints returns the checkpoints that did not reach their quorum, in height order
func (g *Gateway) IncompleteCheckpoints() ([]ipc.BottomUpCheckpoint, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var heights []uint64
	if err := g.forEach(_incompleteNS, func(k, _ []byte) error {
		heights = append(heights, byteutil.BytesToUint64BigEndian(k))
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "failed to read incomplete checkpoints")
	}
	cps := make([]ipc.BottomUpCheckpoint, 0, len(heights))
	for _, h := range heights {
		rec, err := g.checkpoint(h)
		if err != nil {
			return nil, err
		}
		cps = append(cps, rec.Checkpoint)
	}
	return cps, nil
}

// CheckpointSignatories returns the validators who signed the checkpoint at the height
func (g *Gateway) CheckpointSignatories(height uint64) ([]common.Address, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	rec, err := g.checkpoint(height)
	if err != nil {
		return nil, err
	}
	signatories := make([]common.Address, 0, len(rec.Signatures))
	for _, s := range rec.Signatures {
		signatories = append(signatories, s.Validator)
	}
	return signatories, nil
}

// CheckpointInfo returns the quorum status of the checkpoint at the height, zero if there is none
func (g *Gateway) CheckpointInfo(height uint64) (ipc.QuorumInfo, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	rec, err := g.checkpoint(height)
	switch errors.Cause(err) {
	case nil:
	case ErrCheckpointNotFound:
		return ipc.QuorumInfo{}, nil
	default:
		return ipc.QuorumInfo{}, err
	}
	return ipc.QuorumInfo{
		Hash:          rec.Hash,
		RootHash:      rec.RootHash,
		Threshold:     rec.Threshold,
		CurrentWeight: rec.Weight,
		Reached:       rec.Reached,
	}, nil
}

// AddCheckpointSignature verifies and records the signature of a validator of the checkpoint power table.
// The checkpoint is complete once the weight of the signatures reaches the threshold.
func (g *Gateway) AddCheckpointSignature(height uint64, proof []common.Hash, weight uint64, signature []byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	rec, err := g.checkpoint(height)
	if err != nil {
		return err
	}
	pk, err := crypto.SigToPub(rec.Hash.Bytes(), signature)
	if err != nil {
		return errors.Wrapf(ErrInvalidSignature, "%v", err)
	}
	validator := ipc.Validator{PublicKey: crypto.FromECDSAPub(pk), Power: weight}
	addr := validator.Address()
	if rec.signed(addr) {
		return errors.Wrapf(ErrDuplicateSignature, "validator %s at %d", addr.Hex(), height)
	}
	leaf, err := ipc.EncodeValidator(validator)
	if err != nil {
		return err
	}
	if !merkle.Verify(rec.RootHash, proof, leaf) {
		return errors.Wrapf(ErrNotMember, "validator %s with weight %d", addr.Hex(), weight)
	}

	rec.Signatures = append(rec.Signatures, signatureRecord{
		Validator: addr,
		Weight:    weight,
		Signature: signature,
	})
	rec.Weight += weight
	b := batch.NewBatch()
	if !rec.Reached && rec.Weight >= rec.Threshold {
		rec.Reached = true
		b.Delete(_incompleteNS, heightKey(height))
		g.logger.Info("checkpoint reached quorum", zap.Uint64("height", height), zap.Uint64("weight", rec.Weight))
	}
	if err := putRecord(b, _checkpointNS, heightKey(height), rec); err != nil {
		return err
	}
	return g.write(b)
}
