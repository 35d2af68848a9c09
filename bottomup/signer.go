// Copyright (c) 2026 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package bottomup

import (
	"context"
	"crypto/ecdsa"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/iotexproject/iotex-subnet/ipc"
	"github.com/iotexproject/iotex-subnet/observe"
	"github.com/iotexproject/iotex-subnet/pkg/merkle"
)

// InvariantCurrentIncomplete is reported when a created checkpoint is missing among the unsigned ones
const InvariantCurrentIncomplete = "current_checkpoint_incomplete"

// CastValidatorSignatures signs, in the background, the incomplete checkpoints this validator has
// not signed yet. It is a no-op on non-validator nodes and while the node is catching up.
func (m *Manager) CastValidatorSignatures(ctx context.Context, current ipc.BottomUpCheckpoint, state Ledger) error {
	if m.validator == nil {
		return nil
	}
	if m.syncing(ctx) {
		return nil
	}
	unsigned, err := UnsignedCheckpoints(state, m.validator.Address)
	if err != nil {
		return errors.Wrap(err, "failed to fetch incomplete checkpoints")
	}
	if !containsCheckpoint(unsigned, &current) {
		m.emitter.Emit(observe.InvariantViolation{
			Invariant: InvariantCurrentIncomplete,
			Height:    current.BlockHeight,
		})
	}

	chainID := state.ChainID()
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if err := m.broadcastIncompleteSignatures(context.Background(), chainID, unsigned); err != nil {
			m.logger.Error("error broadcasting checkpoint signature",
				zap.Error(err), zap.Uint64("height", current.BlockHeight))
		}
	}()
	return nil
}

// Wait blocks until the spawned signing tasks are done
func (m *Manager) Wait() {
	m.wg.Wait()
}

// syncing returns true if the node is catching up, or if its status is unknown
func (m *Manager) syncing(ctx context.Context) bool {
	status, err := m.client.Status(ctx)
	if err != nil {
		m.logger.Warn("failed to get consensus sync status", zap.Error(err))
		return true
	}
	return status.CatchingUp
}

// UnsignedCheckpoints returns the incomplete checkpoints the validator did not sign yet
func UnsignedCheckpoints(state Ledger, validator common.Address) ([]ipc.BottomUpCheckpoint, error) {
	incomplete, err := state.IncompleteCheckpoints()
	if err != nil {
		return nil, err
	}
	var unsigned []ipc.BottomUpCheckpoint
	for _, cp := range incomplete {
		signatories, err := state.CheckpointSignatories(cp.BlockHeight)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to get checkpoint signatories at %d", cp.BlockHeight)
		}
		signed := false
		for _, s := range signatories {
			if s == validator {
				signed = true
				break
			}
		}
		if !signed {
			unsigned = append(unsigned, cp)
		}
	}
	return unsigned, nil
}

func containsCheckpoint(cps []ipc.BottomUpCheckpoint, cp *ipc.BottomUpCheckpoint) bool {
	for i := range cps {
		if cps[i].BlockHeight == cp.BlockHeight && cps[i].BlockHash == cp.BlockHash {
			return true
		}
	}
	return false
}

func (m *Manager) broadcastIncompleteSignatures(ctx context.Context, chainID uint64, cps []ipc.BottomUpCheckpoint) error {
	if len(cps) == 0 {
		return nil
	}
	var highest uint64
	for _, cp := range cps {
		if cp.BlockHeight > highest {
			highest = cp.BlockHeight
		}
	}
	// the checkpoints must not be rolled back once signed
	if err := m.waitForCommit(ctx, highest+1, m.validator.Broadcaster.RetryDelay()); err != nil {
		return errors.Wrap(err, "failed to wait for commit")
	}

	for i := range cps {
		cp := &cps[i]
		// the signers are the validators at the checkpoint, which the ledger may not have anymore
		table, err := m.client.Validators(ctx, cp.BlockHeight)
		if err != nil {
			return errors.Wrapf(err, "failed to get power table at %d", cp.BlockHeight)
		}
		validator, ok := table.Find(m.validator.PublicKey)
		if !ok {
			continue
		}
		if err := m.broadcastSignature(ctx, cp, table, validator, chainID); err != nil {
			return errors.Wrapf(err, "failed to broadcast checkpoint signature at %d", cp.BlockHeight)
		}
		m.emitter.Emit(observe.CheckpointSigned{
			Role:      observe.RoleOwn,
			Height:    cp.BlockHeight,
			Hash:      common.Hash(cp.BlockHash).Bytes(),
			Validator: m.validator.Address,
		})
		m.logger.Debug("submitted checkpoint signature", zap.Uint64("height", cp.BlockHeight))
	}
	return nil
}

func (m *Manager) waitForCommit(ctx context.Context, height uint64, delay time.Duration) error {
	failures := 0
	for {
		committed, err := m.client.LatestCommit(ctx)
		switch {
		case err != nil:
			failures++
			if failures >= m.commitErrLimit {
				return errors.Wrap(err, "failed to fetch latest commit")
			}
			m.logger.Warn("failed to fetch latest commit", zap.Error(err), zap.Int("failures", failures))
		case committed >= height:
			return nil
		default:
			failures = 0
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.clk.After(delay):
		}
	}
}

func (m *Manager) broadcastSignature(ctx context.Context, cp *ipc.BottomUpCheckpoint, table ipc.PowerTable, validator ipc.Validator, chainID uint64) error {
	calldata, err := SignatureCalldata(cp, table, validator, m.validator.SecretKey)
	if err != nil {
		return errors.Wrap(err, "failed to produce checkpoint signature calldata")
	}

	m.broadcastMu.Lock()
	defer m.broadcastMu.Unlock()
	txHash, err := m.validator.Broadcaster.FevmInvoke(ctx, m.gateway, calldata, chainID)
	if err != nil {
		return errors.Wrap(err, "failed to broadcast signature")
	}
	m.logger.Info("broadcasted signature", zap.String("txHash", txHash.Hex()))
	return nil
}

// SignatureCalldata signs the checkpoint and packs the gateway call adding the signature, along with
// the proof that validator belongs to the power table of the checkpoint
func SignatureCalldata(cp *ipc.BottomUpCheckpoint, table ipc.PowerTable, validator ipc.Validator, sk *ecdsa.PrivateKey) ([]byte, error) {
	hash, err := cp.Hash()
	if err != nil {
		return nil, err
	}
	sig, err := crypto.Sign(hash.Bytes(), sk)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign checkpoint")
	}

	leaves := make([][]byte, 0, len(table))
	for _, v := range table {
		leaf, err := ipc.EncodeValidator(v)
		if err != nil {
			return nil, err
		}
		leaves = append(leaves, leaf)
	}
	tree, err := merkle.NewTree(leaves)
	if err != nil {
		return nil, errors.Wrap(err, "failed to construct merkle tree")
	}
	leaf, err := ipc.EncodeValidator(validator)
	if err != nil {
		return nil, err
	}
	proof, err := tree.Proof(leaf)
	if err != nil {
		return nil, errors.Wrap(err, "failed to construct merkle proof")
	}
	return ipc.AddCheckpointSignatureCalldata(cp.BlockHeight, proof, validator.Power, sig)
}
