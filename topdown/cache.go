// Copyright (c) 2026 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package topdown

import (
	"github.com/pkg/errors"
)

// SequentialCache maps contiguous heights to parent views, a nil entry being a null round
type SequentialCache struct {
	lower   BlockHeight
	entries []*ParentViewPayload
}

// NewSequentialCache creates an empty cache
func NewSequentialCache() *SequentialCache {
	return &SequentialCache{}
}

// Size returns the number of heights held
func (c *SequentialCache) Size() int {
	return len(c.entries)
}

// IsEmpty returns true if no height is held
func (c *SequentialCache) IsEmpty() bool {
	return len(c.entries) == 0
}

// LowerBound returns the lowest height held
func (c *SequentialCache) LowerBound() (BlockHeight, bool) {
	if c.IsEmpty() {
		return 0, false
	}
	return c.lower, true
}

// UpperBound returns the highest height held
func (c *SequentialCache) UpperBound() (BlockHeight, bool) {
	if c.IsEmpty() {
		return 0, false
	}
	return c.lower + uint64(len(c.entries)) - 1, true
}

// Get returns the payload at height, and whether the height is held at all
func (c *SequentialCache) Get(height BlockHeight) (*ParentViewPayload, bool) {
	upper, ok := c.UpperBound()
	if !ok || height < c.lower || height > upper {
		return nil, false
	}
	return c.entries[height-c.lower], true
}

// Append adds the payload right after the upper bound
func (c *SequentialCache) Append(height BlockHeight, payload *ParentViewPayload) error {
	if upper, ok := c.UpperBound(); ok {
		if height != upper+1 {
			return errors.Wrapf(ErrNonSequentialInsert, "expected height %d, got %d", upper+1, height)
		}
	} else {
		c.lower = height
	}
	c.entries = append(c.entries, payload)
	return nil
}

// RemoveBelow drops every height strictly below the given one
func (c *SequentialCache) RemoveBelow(height BlockHeight) {
	upper, ok := c.UpperBound()
	if !ok || height <= c.lower {
		return
	}
	if height > upper {
		c.entries = nil
		c.lower = 0
		return
	}
	c.entries = c.entries[height-c.lower:]
	c.lower = height
}

// FirstNonNullAtOrBefore scans backward from height to the lower bound for a non-null entry
func (c *SequentialCache) FirstNonNullAtOrBefore(height BlockHeight) (BlockHeight, bool) {
	upper, ok := c.UpperBound()
	if !ok || height < c.lower {
		return 0, false
	}
	if height > upper {
		height = upper
	}
	for h := height; ; h-- {
		if c.entries[h-c.lower] != nil {
			return h, true
		}
		if h == c.lower {
			return 0, false
		}
	}
}

// Clone copies the cache, so the copy can be modified without affecting readers of the original
func (c *SequentialCache) Clone() *SequentialCache {
	entries := make([]*ParentViewPayload, len(c.entries))
	copy(entries, c.entries)
	return &SequentialCache{
		lower:   c.lower,
		entries: entries,
	}
}
