// Copyright (c) 2026 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iotexproject/iotex-subnet/db/batch"
)

var (
	bucket1 = "test_ns1"
	bucket2 = "test_ns2"
	testK1  = [3][]byte{[]byte("key_1"), []byte("key_2"), []byte("key_3")}
	testV1  = [3][]byte{[]byte("value_1"), []byte("value_2"), []byte("value_3")}
)

func runOnStores(t *testing.T, test func(KVStore, *testing.T)) {
	t.Run("In-memory KV Store", func(t *testing.T) {
		test(NewMemKVStore(), t)
	})
	t.Run("Bolt DB", func(t *testing.T) {
		cfg := DefaultConfig
		cfg.DbPath = filepath.Join(t.TempDir(), "test-kv-store.bolt")
		test(NewKVStore(cfg), t)
	})
}

func TestKVStorePutGet(t *testing.T) {
	runOnStores(t, func(kvStore KVStore, t *testing.T) {
		assert := assert.New(t)
		ctx := context.Background()

		assert.NoError(kvStore.Start(ctx))
		defer func() {
			assert.NoError(kvStore.Stop(ctx))
		}()

		assert.NoError(kvStore.Put(bucket1, []byte("key"), []byte("value")))
		value, err := kvStore.Get(bucket1, []byte("key"))
		assert.NoError(err)
		assert.Equal([]byte("value"), value)

		value, err = kvStore.Get("test_ns_1", []byte("key"))
		assert.Equal(ErrNotExist, errors.Cause(err))
		assert.Nil(value)
		value, err = kvStore.Get(bucket1, testK1[0])
		assert.Equal(ErrNotExist, errors.Cause(err))
		assert.Nil(value)

		assert.NoError(kvStore.Delete(bucket1, []byte("key")))
		_, err = kvStore.Get(bucket1, []byte("key"))
		assert.Equal(ErrNotExist, errors.Cause(err))
		assert.NoError(kvStore.Delete(bucket2, []byte("key")))
	})
}

func TestKVStoreWriteBatch(t *testing.T) {
	runOnStores(t, func(kvStore KVStore, t *testing.T) {
		r := require.New(t)
		ctx := context.Background()

		r.NoError(kvStore.Start(ctx))
		defer func() {
			r.NoError(kvStore.Stop(ctx))
		}()

		r.NoError(kvStore.Put(bucket1, testK1[2], testV1[2]))
		b := batch.NewBatch()
		b.Put(bucket1, testK1[0], testV1[0])
		b.Put(bucket2, testK1[1], testV1[1])
		b.Delete(bucket1, testK1[2])
		b.Put(bucket1, testK1[0], testV1[1])
		r.Equal(4, b.Size())
		r.NoError(kvStore.WriteBatch(b))
		r.Zero(b.Size())

		value, err := kvStore.Get(bucket1, testK1[0])
		r.NoError(err)
		r.Equal(testV1[1], value)
		value, err = kvStore.Get(bucket2, testK1[1])
		r.NoError(err)
		r.Equal(testV1[1], value)
		_, err = kvStore.Get(bucket1, testK1[2])
		r.Equal(ErrNotExist, errors.Cause(err))
	})
}

func TestKVStoreForEach(t *testing.T) {
	runOnStores(t, func(kvStore KVStore, t *testing.T) {
		r := require.New(t)
		ctx := context.Background()

		r.NoError(kvStore.Start(ctx))
		defer func() {
			r.NoError(kvStore.Stop(ctx))
		}()

		err := kvStore.ForEach(bucket1, func(k, v []byte) error { return nil })
		r.Equal(ErrBucketNotExist, errors.Cause(err))

		for _, i := range []int{2, 0, 1} {
			r.NoError(kvStore.Put(bucket1, testK1[i], testV1[i]))
		}
		var keys, values [][]byte
		r.NoError(kvStore.ForEach(bucket1, func(k, v []byte) error {
			keys = append(keys, k)
			values = append(values, v)
			return nil
		}))
		r.Equal(testK1[:], keys)
		r.Equal(testV1[:], values)

		stop := errors.New("stop")
		count := 0
		err = kvStore.ForEach(bucket1, func(k, v []byte) error {
			count++
			if count == 2 {
				return stop
			}
			return nil
		})
		r.Equal(stop, err)
		r.Equal(2, count)
	})
}

func TestBoltDBReopen(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()
	cfg := DefaultConfig
	cfg.DbPath = filepath.Join(t.TempDir(), "reopen.bolt")

	kvStore := NewBoltDB(cfg)
	r.NoError(kvStore.Start(ctx))
	r.NoError(kvStore.Put(bucket1, testK1[0], testV1[0]))
	r.NoError(kvStore.Stop(ctx))

	kvStore = NewBoltDB(cfg)
	r.NoError(kvStore.Start(ctx))
	defer func() {
		r.NoError(kvStore.Stop(ctx))
	}()
	value, err := kvStore.Get(bucket1, testK1[0])
	r.NoError(err)
	r.Equal(testV1[0], value)
}

func TestBatchEntry(t *testing.T) {
	r := require.New(t)

	b := batch.NewBatch()
	b.Put(bucket1, testK1[0], testV1[0])
	b.Delete(bucket1, testK1[1])
	e, err := b.Entry(0)
	r.NoError(err)
	r.Equal(batch.Put, e.WriteType())
	r.Equal(bucket1, e.Namespace())
	r.Equal(testK1[0], e.Key())
	r.Equal(testV1[0], e.Value())
	e, err = b.Entry(1)
	r.NoError(err)
	r.Equal(batch.Delete, e.WriteType())
	_, err = b.Entry(2)
	r.Equal(batch.ErrOutOfBound, errors.Cause(err))
	b.Clear()
	r.Zero(b.Size())
}
