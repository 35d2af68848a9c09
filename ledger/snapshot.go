// Copyright (c) 2026 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package ledger

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/iotexproject/iotex-subnet/db"
	"github.com/iotexproject/iotex-subnet/db/batch"
)

// ErrInvalidSnapshot indicates a snapshot that was not taken in the executing block, or was reverted
var ErrInvalidSnapshot = errors.New("invalid snapshot")

// undoRecord is the value a write replaced
type undoRecord struct {
	ns    string
	key   []byte
	value []byte
	exist bool
}

// Snapshot starts journaling the writes of the executing block, and returns the point to revert them to.
// Snapshots are released when the next block begins.
func (g *Gateway) Snapshot() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.journaling = true
	return len(g.journal)
}

// Revert undoes the writes made since the snapshot
func (g *Gateway) Revert(snapshot int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.journaling || snapshot < 0 || snapshot > len(g.journal) {
		return errors.Wrapf(ErrInvalidSnapshot, "snapshot %d of %d", snapshot, len(g.journal))
	}
	b := batch.NewBatch()
	for i := len(g.journal) - 1; i >= snapshot; i-- {
		u := g.journal[i]
		if u.exist {
			b.Put(u.ns, u.key, u.value)
		} else {
			b.Delete(u.ns, u.key)
		}
	}
	if err := g.kv.WriteBatch(b); err != nil {
		return errors.Wrapf(err, "failed to revert to snapshot %d", snapshot)
	}
	g.logger.Info("reverted gateway writes",
		zap.Uint64("height", g.tip.Height),
		zap.Int("writes", len(g.journal)-snapshot))
	g.journal = g.journal[:snapshot]
	return nil
}

func (g *Gateway) releaseSnapshots() {
	g.journal = nil
	g.journaling = false
}

// write commits the batch, journaling the values it replaces while a snapshot is held
func (g *Gateway) write(b batch.KVStoreBatch) error {
	var undo []undoRecord
	if g.journaling {
		undo = make([]undoRecord, 0, b.Size())
		for i := 0; i < b.Size(); i++ {
			entry, err := b.Entry(i)
			if err != nil {
				return err
			}
			u := undoRecord{ns: entry.Namespace(), key: entry.Key()}
			value, err := g.kv.Get(u.ns, u.key)
			switch errors.Cause(err) {
			case nil:
				u.value, u.exist = value, true
			case db.ErrNotExist:
			default:
				return errors.Wrapf(err, "failed to journal %s/%x", u.ns, u.key)
			}
			undo = append(undo, u)
		}
	}
	if err := g.kv.WriteBatch(b); err != nil {
		return err
	}
	g.journal = append(g.journal, undo...)
	return nil
}
