// Copyright (c) 2026 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package bottomup

import (
	"github.com/iotexproject/iotex-subnet/ipc"
)

// PowerUpdates are the validator set changes handed to the consensus client.
// An entry with zero power removes the validator, any other entry replaces it.
type PowerUpdates []ipc.Validator

// PowerDiff returns the minimal updates turning current into next: removals first, in the order
// of current, then new or changed validators, in the order of next
func PowerDiff(current, next ipc.PowerTable) PowerUpdates {
	curr := make(map[string]ipc.Validator, len(current))
	for _, v := range current {
		curr[v.Key()] = v
	}
	nxt := make(map[string]struct{}, len(next))
	for _, v := range next {
		nxt[v.Key()] = struct{}{}
	}

	diff := PowerUpdates{}
	for _, v := range current {
		if _, ok := nxt[v.Key()]; !ok {
			diff = append(diff, ipc.Validator{PublicKey: v.PublicKey, Power: 0})
			// a duplicated key is removed once
			nxt[v.Key()] = struct{}{}
		}
	}
	for _, v := range next {
		if w, ok := curr[v.Key()]; ok && w.Equal(v) {
			continue
		}
		diff = append(diff, v)
	}
	return diff
}

// ApplyPowerUpdates applies the updates to table as a set of replacements
func ApplyPowerUpdates(table ipc.PowerTable, updates PowerUpdates) ipc.PowerTable {
	index := make(map[string]int, len(table))
	ret := make(ipc.PowerTable, 0, len(table)+len(updates))
	for _, v := range table {
		index[v.Key()] = len(ret)
		ret = append(ret, v)
	}
	removed := make(map[string]bool)
	for _, u := range updates {
		i, ok := index[u.Key()]
		switch {
		case u.Power == 0:
			if ok {
				removed[u.Key()] = true
			}
		case ok:
			ret[i] = u
			delete(removed, u.Key())
		default:
			index[u.Key()] = len(ret)
			ret = append(ret, u)
		}
	}
	if len(removed) == 0 {
		return ret
	}
	filtered := ret[:0]
	for _, v := range ret {
		if !removed[v.Key()] {
			filtered = append(filtered, v)
		}
	}
	return filtered
}
