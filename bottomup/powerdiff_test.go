// Copyright (c) 2026 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package bottomup

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iotexproject/iotex-subnet/ipc"
)

func testKey(i int) []byte {
	pk := make([]byte, ipc.PublicKeyLength)
	pk[0] = 4
	pk[1] = byte(i)
	pk[2] = byte(i >> 8)
	return pk
}

func powerMap(t ipc.PowerTable) map[string]uint64 {
	m := make(map[string]uint64, len(t))
	for _, v := range t {
		m[v.Key()] = v.Power
	}
	return m
}

func TestPowerDiff(t *testing.T) {
	r := require.New(t)

	current := ipc.PowerTable{
		{PublicKey: testKey(1), Power: 10},
		{PublicKey: testKey(2), Power: 20},
		{PublicKey: testKey(3), Power: 30},
	}
	next := ipc.PowerTable{
		{PublicKey: testKey(4), Power: 40},
		{PublicKey: testKey(3), Power: 30},
		{PublicKey: testKey(1), Power: 15},
	}
	diff := PowerDiff(current, next)
	r.Equal(PowerUpdates{
		{PublicKey: testKey(2), Power: 0},
		{PublicKey: testKey(4), Power: 40},
		{PublicKey: testKey(1), Power: 15},
	}, diff)

	r.Empty(PowerDiff(current, current))
	r.Empty(PowerDiff(nil, nil))
	r.Equal(PowerUpdates{{PublicKey: testKey(1), Power: 0}}, PowerDiff(current[:1], nil))
}

func TestPowerDiffRandom(t *testing.T) {
	r := require.New(t)

	rnd := rand.New(rand.NewSource(11))
	for round := 0; round < 200; round++ {
		n := 1 + rnd.Intn(10)
		c := 1 + rnd.Intn(n)
		m := 1 + rnd.Intn(n)

		var current, next ipc.PowerTable
		for i := 0; i < c; i++ {
			current = append(current, ipc.Validator{PublicKey: testKey(i), Power: uint64(1 + rnd.Intn(5))})
		}
		for i := n - m; i < n; i++ {
			next = append(next, ipc.Validator{PublicKey: testKey(i), Power: uint64(1 + rnd.Intn(5))})
		}

		// reconstruction law
		diff := PowerDiff(current, next)
		r.Equal(powerMap(next), powerMap(ApplyPowerUpdates(current, diff)))

		// idempotent, whatever the order
		shuffled := make(ipc.PowerTable, len(current))
		copy(shuffled, current)
		rnd.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		r.Empty(PowerDiff(current, shuffled))
		r.Equal(powerMap(current), powerMap(ApplyPowerUpdates(current, PowerDiff(current, shuffled))))

		// no update repeats a validator
		seen := map[string]bool{}
		for _, u := range diff {
			r.False(seen[u.Key()])
			seen[u.Key()] = true
		}
	}
}

func TestApplyPowerUpdates(t *testing.T) {
	r := require.New(t)

	table := ipc.PowerTable{
		{PublicKey: testKey(1), Power: 10},
		{PublicKey: testKey(2), Power: 20},
	}
	got := ApplyPowerUpdates(table, PowerUpdates{
		{PublicKey: testKey(1), Power: 0},
		{PublicKey: testKey(3), Power: 30},
		{PublicKey: testKey(2), Power: 25},
		// removing an unknown validator is a no-op
		{PublicKey: testKey(9), Power: 0},
	})
	r.Equal(ipc.PowerTable{
		{PublicKey: testKey(2), Power: 25},
		{PublicKey: testKey(3), Power: 30},
	}, got)
	// the input is left untouched
	r.Equal(uint64(10), table[0].Power)
}
