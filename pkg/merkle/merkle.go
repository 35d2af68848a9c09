// Copyright (c) 2026 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

// Package merkle builds binary Merkle trees compatible with OpenZeppelin's StandardMerkleTree,
// so that roots and proofs can be verified by MerkleProof.sol on the parent chain.
package merkle

import (
	"bytes"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// ErrEmptyTree is returned when a tree is built without leaves
var ErrEmptyTree = errors.New("merkle tree requires at least one leaf")

// Tree is a complete binary tree stored in an array, root at index 0
type Tree struct {
	nodes  []common.Hash
	leaves map[common.Hash]int
}

// LeafHash hashes an ABI-encoded leaf value twice, which prevents second preimage attacks
func LeafHash(encoded []byte) common.Hash {
	return crypto.Keccak256Hash(crypto.Keccak256(encoded))
}

func hashPair(a, b common.Hash) common.Hash {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	return crypto.Keccak256Hash(a[:], b[:])
}

// NewTree builds a tree over the ABI-encoded leaf values
func NewTree(encoded [][]byte) (*Tree, error) {
	if len(encoded) == 0 {
		return nil, ErrEmptyTree
	}
	hashes := make([]common.Hash, len(encoded))
	for i, v := range encoded {
		hashes[i] = LeafHash(v)
	}
	sort.Slice(hashes, func(i, j int) bool {
		return bytes.Compare(hashes[i][:], hashes[j][:]) < 0
	})
	size := 2*len(hashes) - 1
	t := &Tree{
		nodes:  make([]common.Hash, size),
		leaves: make(map[common.Hash]int, len(hashes)),
	}
	for i, h := range hashes {
		idx := size - 1 - i
		t.nodes[idx] = h
		t.leaves[h] = idx
	}
	for i := size - 1 - len(hashes); i >= 0; i-- {
		t.nodes[i] = hashPair(t.nodes[2*i+1], t.nodes[2*i+2])
	}
	return t, nil
}

// Root returns the root hash
func (t *Tree) Root() common.Hash {
	return t.nodes[0]
}

// Proof returns the membership proof of an ABI-encoded leaf value
func (t *Tree) Proof(encoded []byte) ([]common.Hash, error) {
	idx, ok := t.leaves[LeafHash(encoded)]
	if !ok {
		return nil, errors.New("leaf is not in the tree")
	}
	proof := []common.Hash{}
	for idx > 0 {
		sibling := idx - 1
		if idx%2 == 1 {
			sibling = idx + 1
		}
		proof = append(proof, t.nodes[sibling])
		idx = (idx - 1) / 2
	}
	return proof, nil
}

// Verify checks a proof against a root
func Verify(root common.Hash, proof []common.Hash, encoded []byte) bool {
	h := LeafHash(encoded)
	for _, p := range proof {
		h = hashPair(h, p)
	}
	return h == root
}
