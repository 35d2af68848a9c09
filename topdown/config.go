// Copyright (c) 2026 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package topdown

import (
	"time"

	"github.com/pkg/errors"
)

type (
	// Config is the configuration of the parent finality tracker
	Config struct {
		// ChainHeadDelay is the number of blocks behind the parent chain head considered final
		ChainHeadDelay uint64 `yaml:"chainHeadDelay"`
		// ProposalDelay is the settling distance a proposal keeps from the newest usable block
		ProposalDelay uint64 `yaml:"proposalDelay"`
		// MaxProposalRange caps the heights a single proposal can cover
		MaxProposalRange uint64 `yaml:"maxProposalRange"`
		// MaxCacheBlocks pauses polling once the cache holds more blocks
		MaxCacheBlocks uint64 `yaml:"maxCacheBlocks"`
		PollingInterval       time.Duration `yaml:"pollingInterval"`
		ExponentialBackOff    time.Duration `yaml:"exponentialBackOff"`
		ExponentialRetryLimit int           `yaml:"exponentialRetryLimit"`
	}
)

var (
	// DefaultConfig is the default config
	DefaultConfig = Config{
		ChainHeadDelay:        10,
		ProposalDelay:         2,
		MaxProposalRange:      100,
		MaxCacheBlocks:        500,
		PollingInterval:       10 * time.Second,
		ExponentialBackOff:    5 * time.Second,
		ExponentialRetryLimit: 5,
	}

	// ErrInvalidCfg is returned when the config is invalid
	ErrInvalidCfg = errors.New("invalid top-down config")
)

// Validate checks the config
func (cfg Config) Validate() error {
	if cfg.MaxProposalRange == 0 {
		return errors.Wrap(ErrInvalidCfg, "maxProposalRange must be positive")
	}
	if cfg.PollingInterval <= 0 {
		return errors.Wrap(ErrInvalidCfg, "pollingInterval must be positive")
	}
	if cfg.ExponentialRetryLimit < 0 {
		return errors.Wrap(ErrInvalidCfg, "exponentialRetryLimit cannot be negative")
	}
	return nil
}
