// Copyright (c) 2026 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package topdown

import "github.com/pkg/errors"

var (
	// ErrNonSequentialInsert is returned when a parent view is not appended right after the cache upper bound
	ErrNonSequentialInsert = errors.New("non-sequential parent view insert")
	// ErrInvalidSequencing is returned when nonces or configuration numbers of a parent view are not increasing
	ErrInvalidSequencing = errors.New("invalid sequencing of parent view")
	// ErrFinalityMismatch is returned when the previous finality does not match the committed one
	ErrFinalityMismatch = errors.New("previous finality does not match the committed finality")
	// ErrNullRound is returned by the parent proxy when no block was produced at the height
	ErrNullRound = errors.New("null round")
	// ErrReorgDetected is returned when the parent chain reorganized under the syncer
	ErrReorgDetected = errors.New("parent chain reorg detected")
	// ErrFinalityNotReady is returned when no finality has been committed yet
	ErrFinalityNotReady = errors.New("parent finality not ready")

	// ErrUnexpectedBlock is returned when a block does not extend the tallied chain
	ErrUnexpectedBlock = errors.New("failed to extend chain")
	// ErrUnknownValidator is returned when a vote comes from outside the power table
	ErrUnknownValidator = errors.New("unknown validator")
	// ErrEquivocation is returned when a validator votes for two blocks at the same height
	ErrEquivocation = errors.New("equivocation")
)
