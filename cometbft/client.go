// Copyright (c) 2026 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package cometbft

import (
	"context"
	"encoding/base64"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/go-resty/resty/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/iotexproject/iotex-subnet/ipc"
	"github.com/iotexproject/iotex-subnet/pkg/log"
)

type (
	// Config is the config of the consensus client rpc
	Config struct {
		Endpoint           string        `yaml:"endpoint"`
		Timeout            time.Duration `yaml:"timeout"`
		PerPage            int           `yaml:"perPage"`
		ValidatorCacheSize int           `yaml:"validatorCacheSize"`
	}

	// Status is the node status reported by the consensus client
	Status struct {
		NodeID            string
		Network           string
		LatestBlockHeight uint64
		CatchingUp        bool
	}

	// Client queries the json-rpc endpoint of a CometBFT node
	Client struct {
		cli        *resty.Client
		perPage    int
		validators *lru.Cache[uint64, ipc.PowerTable]
		logger     *zap.Logger
	}
)

var (
	// DefaultConfig is the default config
	DefaultConfig = Config{
		Endpoint:           "http://127.0.0.1:26657",
		Timeout:            10 * time.Second,
		PerPage:            100,
		ValidatorCacheSize: 256,
	}

	// ErrRPC indicates the node returned a json-rpc error
	ErrRPC = errors.New("json-rpc error")
	// ErrInvalidResponse indicates the response misses expected fields
	ErrInvalidResponse = errors.New("invalid response")
)

// NewClient creates a client of the node at cfg.Endpoint
func NewClient(cfg Config) (*Client, error) {
	if cfg.PerPage <= 0 {
		cfg.PerPage = DefaultConfig.PerPage
	}
	if cfg.ValidatorCacheSize <= 0 {
		cfg.ValidatorCacheSize = DefaultConfig.ValidatorCacheSize
	}
	cache, err := lru.New[uint64, ipc.PowerTable](cfg.ValidatorCacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create validator cache")
	}
	return &Client{
		cli:        resty.New().SetBaseURL(cfg.Endpoint).SetTimeout(cfg.Timeout),
		perPage:    cfg.PerPage,
		validators: cache,
		logger:     log.Logger("cometbft"),
	}, nil
}

func (c *Client) call(ctx context.Context, method string, params map[string]string) (gjson.Result, error) {
	resp, err := c.cli.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get("/" + method)
	if err != nil {
		return gjson.Result{}, errors.Wrapf(err, "failed to call %s", method)
	}
	body := gjson.ParseBytes(resp.Body())
	if e := body.Get("error"); e.Exists() {
		return gjson.Result{}, errors.Wrapf(ErrRPC, "%s: %s %s", method, e.Get("message").String(), e.Get("data").String())
	}
	if resp.IsError() {
		return gjson.Result{}, errors.Wrapf(ErrRPC, "%s: http status %d", method, resp.StatusCode())
	}
	result := body.Get("result")
	if !result.Exists() {
		return gjson.Result{}, errors.Wrapf(ErrInvalidResponse, "%s: no result", method)
	}
	return result, nil
}

// Status returns the node status
func (c *Client) Status(ctx context.Context) (*Status, error) {
	result, err := c.call(ctx, "status", nil)
	if err != nil {
		return nil, err
	}
	sync := result.Get("sync_info")
	if !sync.Exists() {
		return nil, errors.Wrap(ErrInvalidResponse, "status: no sync info")
	}
	return &Status{
		NodeID:            result.Get("node_info.id").String(),
		Network:           result.Get("node_info.network").String(),
		LatestBlockHeight: sync.Get("latest_block_height").Uint(),
		CatchingUp:        sync.Get("catching_up").Bool(),
	}, nil
}

// LatestCommit returns the height of the latest committed block
func (c *Client) LatestCommit(ctx context.Context) (uint64, error) {
	result, err := c.call(ctx, "commit", nil)
	if err != nil {
		return 0, err
	}
	height := result.Get("signed_header.header.height")
	if !height.Exists() {
		return 0, errors.Wrap(ErrInvalidResponse, "commit: no header height")
	}
	return height.Uint(), nil
}

// Validators returns the validator set at height. Sets of past heights never change and are cached.
func (c *Client) Validators(ctx context.Context, height uint64) (ipc.PowerTable, error) {
	if table, ok := c.validators.Get(height); ok {
		return table, nil
	}
	var (
		table ipc.PowerTable
		total uint64
	)
	for page := 1; ; page++ {
		result, err := c.call(ctx, "validators", map[string]string{
			"height":   strconv.FormatUint(height, 10),
			"page":     strconv.Itoa(page),
			"per_page": strconv.Itoa(c.perPage),
		})
		if err != nil {
			return nil, err
		}
		total = result.Get("total").Uint()
		vs := result.Get("validators").Array()
		for _, v := range vs {
			validator, err := parseValidator(v)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid validator at height %d", height)
			}
			table = append(table, validator)
		}
		if len(vs) == 0 || uint64(len(table)) >= total {
			break
		}
	}
	if uint64(len(table)) != total {
		return nil, errors.Wrapf(ErrInvalidResponse, "got %d validators of %d at height %d", len(table), total, height)
	}
	c.validators.Add(height, table)
	c.logger.Debug("fetched validator set", zap.Uint64("height", height), zap.Int("size", len(table)))
	return table, nil
}

func parseValidator(v gjson.Result) (ipc.Validator, error) {
	keyType := v.Get("pub_key.type").String()
	if keyType != "tendermint/PubKeySecp256k1" {
		return ipc.Validator{}, errors.Errorf("unsupported public key type %s", keyType)
	}
	compressed, err := base64.StdEncoding.DecodeString(v.Get("pub_key.value").String())
	if err != nil {
		return ipc.Validator{}, errors.Wrap(err, "invalid public key encoding")
	}
	pk, err := crypto.DecompressPubkey(compressed)
	if err != nil {
		return ipc.Validator{}, errors.Wrap(err, "invalid public key")
	}
	return ipc.Validator{
		PublicKey: crypto.FromECDSAPub(pk),
		Power:     v.Get("voting_power").Uint(),
	}, nil
}
