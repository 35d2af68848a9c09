// Copyright (c) 2026 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package broadcast

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/iotexproject/iotex-subnet/pkg/log"
)

type (
	// Config is the config of the broadcaster
	Config struct {
		Endpoint string `yaml:"endpoint"`
		// GasOverestimationRate scales the estimated gas limit
		GasOverestimationRate float64       `yaml:"gasOverestimationRate"`
		MaxRetries            uint64        `yaml:"maxRetries"`
		RetryDelay            time.Duration `yaml:"retryDelay"`
	}

	// TxClient is the subset of the ethereum json-rpc client used to send transactions
	TxClient interface {
		PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
		SuggestGasPrice(ctx context.Context) (*big.Int, error)
		EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
		SendTransaction(ctx context.Context, tx *types.Transaction) error
	}

	// Broadcaster signs and sends transactions of a validator to the subnet
	Broadcaster struct {
		client TxClient
		sk     *ecdsa.PrivateKey
		from   common.Address
		cfg    Config
		logger *zap.Logger
	}
)

var (
	// DefaultConfig is the default config
	DefaultConfig = Config{
		Endpoint:              "http://127.0.0.1:8545",
		GasOverestimationRate: 2,
		MaxRetries:            5,
		RetryDelay:            2 * time.Second,
	}

	// ErrInvalidCfg indicates the config is invalid
	ErrInvalidCfg = errors.New("invalid broadcast config")
)

// Validate checks the config
func (cfg Config) Validate() error {
	if cfg.GasOverestimationRate < 1 {
		return errors.Wrapf(ErrInvalidCfg, "gas overestimation rate %f must be at least 1", cfg.GasOverestimationRate)
	}
	if cfg.RetryDelay <= 0 {
		return errors.Wrap(ErrInvalidCfg, "retry delay must be positive")
	}
	return nil
}

// NewBroadcaster creates a broadcaster sending from the account of sk
func NewBroadcaster(client TxClient, sk *ecdsa.PrivateKey, cfg Config) *Broadcaster {
	return &Broadcaster{
		client: client,
		sk:     sk,
		from:   crypto.PubkeyToAddress(sk.PublicKey),
		cfg:    cfg,
		logger: log.Logger("broadcast"),
	}
}

// RetryDelay is the delay between retries, also used to poll for commits
func (b *Broadcaster) RetryDelay() time.Duration {
	return b.cfg.RetryDelay
}

// FevmInvoke calls the contract at to. The nonce is fetched again on every attempt, so callers must
// not invoke it concurrently.
func (b *Broadcaster) FevmInvoke(ctx context.Context, to common.Address, calldata []byte, chainID uint64) (common.Hash, error) {
	var txHash common.Hash
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		tx, err := b.signedTx(ctx, to, calldata, chainID)
		if err != nil {
			b.logger.Warn("failed to prepare transaction", zap.Error(err), zap.Int("attempt", attempt))
			return err
		}
		if err := b.client.SendTransaction(ctx, tx); err != nil {
			b.logger.Warn("failed to send transaction", zap.Error(err), zap.Int("attempt", attempt))
			return errors.Wrap(err, "failed to send transaction")
		}
		txHash = tx.Hash()
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(b.cfg.RetryDelay), b.cfg.MaxRetries), ctx))
	if err != nil {
		return common.Hash{}, err
	}
	b.logger.Debug("sent transaction", zap.String("to", to.Hex()), zap.String("txHash", txHash.Hex()))
	return txHash, nil
}

func (b *Broadcaster) signedTx(ctx context.Context, to common.Address, calldata []byte, chainID uint64) (*types.Transaction, error) {
	nonce, err := b.client.PendingNonceAt(ctx, b.from)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get nonce")
	}
	gasPrice, err := b.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get gas price")
	}
	gas, err := b.client.EstimateGas(ctx, ethereum.CallMsg{
		From: b.from,
		To:   &to,
		Data: calldata,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to estimate gas")
	}
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      uint64(float64(gas) * b.cfg.GasOverestimationRate),
		To:       &to,
		Value:    big.NewInt(0),
		Data:     calldata,
	})
	signed, err := types.SignTx(tx, types.NewEIP155Signer(new(big.Int).SetUint64(chainID)), b.sk)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign transaction")
	}
	return signed, nil
}
