// Copyright (c) 2026 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package config

import (
	"crypto/ecdsa"
	"encoding/hex"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	uconfig "go.uber.org/config"

	"github.com/iotexproject/iotex-subnet/broadcast"
	"github.com/iotexproject/iotex-subnet/cometbft"
	"github.com/iotexproject/iotex-subnet/db"
	"github.com/iotexproject/iotex-subnet/ipc"
	"github.com/iotexproject/iotex-subnet/ledger"
	"github.com/iotexproject/iotex-subnet/pkg/log"
	"github.com/iotexproject/iotex-subnet/topdown"
)

// IMPORTANT: to define a config, add a field or a new config type to the existing config types. In addition, provide
// the default value in Default var.

var (
	// Default is the default config
	Default = Config{
		SubLogs: make(map[string]log.GlobalConfig),
		Chain: Chain{
			ChainID:            31337,
			RootID:             314159,
			CheckPeriod:        10,
			MaxMsgsPerBatch:    10,
			MajorityPercentage: 67,
			CircSupply:         "0",
		},
		Parent: Parent{
			Endpoint: "http://127.0.0.1:1234/rpc/v1",
		},
		TopDown:   topdown.DefaultConfig,
		BottomUp:  BottomUp{CommitErrLimit: 10},
		CometBFT:  cometbft.DefaultConfig,
		Broadcast: broadcast.DefaultConfig,
		DB: db.Config{
			DbPath:     "/var/data/subnet.db",
			NumRetries: 3,
		},
		System: System{
			HeartbeatInterval: 10 * time.Second,
			HTTPStatsPort:     8080,
			HTTPAdminPort:     9009,
		},
	}

	// ErrInvalidCfg indicates the invalid config value
	ErrInvalidCfg = errors.New("invalid config value")

	// Validates is the collection config validation functions
	Validates = []Validate{
		ValidateTopDown,
		ValidateChain,
		ValidateBroadcast,
		ValidateValidatorKey,
	}
)

type (
	// GenesisValidator is a validator of the genesis power table
	GenesisValidator struct {
		// PublicKey is the hex encoded uncompressed secp256k1 public key
		PublicKey string `yaml:"publicKey"`
		Power     uint64 `yaml:"power"`
	}

	// Chain is the config of the subnet and its genesis
	Chain struct {
		ChainID uint64 `yaml:"chainID"`
		// RootID and Route identify the subnet, an empty route is the root
		RootID              uint64             `yaml:"rootID"`
		Route               []string           `yaml:"route"`
		GatewayAddress      string             `yaml:"gatewayAddress"`
		CheckPeriod         uint64             `yaml:"checkPeriod"`
		MaxMsgsPerBatch     uint64             `yaml:"maxMsgsPerBatch"`
		MajorityPercentage  uint64             `yaml:"majorityPercentage"`
		Anchored            bool               `yaml:"anchored"`
		CircSupply          string             `yaml:"circSupply"`
		Validators          []GenesisValidator `yaml:"validators"`
		GenesisParentHeight uint64             `yaml:"genesisParentHeight"`
		GenesisParentHash   string             `yaml:"genesisParentHash"`
	}

	// Parent is the config of the parent chain rpc
	Parent struct {
		Endpoint           string `yaml:"endpoint"`
		GatewayAddress     string `yaml:"gatewayAddress"`
		SubnetActorAddress string `yaml:"subnetActorAddress"`
	}

	// BottomUp is the config of the checkpoint manager
	BottomUp struct {
		// CommitErrLimit is the number of consecutive failures to query the latest commit a signing task tolerates
		CommitErrLimit int `yaml:"commitErrLimit"`
	}

	// System is the config of the node process
	System struct {
		HeartbeatInterval time.Duration `yaml:"heartbeatInterval"`
		// HTTPStatsPort serves the probes and metrics, HTTPAdminPort the log level and profiling endpoints
		HTTPStatsPort int `yaml:"httpStatsPort"`
		HTTPAdminPort int `yaml:"httpAdminPort"`
	}

	// Config is the root config struct, each package's config should be put as its sub struct
	Config struct {
		Chain     Chain            `yaml:"chain"`
		Parent    Parent           `yaml:"parent"`
		TopDown   topdown.Config   `yaml:"topDown"`
		BottomUp  BottomUp         `yaml:"bottomUp"`
		CometBFT  cometbft.Config  `yaml:"cometBFT"`
		Broadcast broadcast.Config `yaml:"broadcast"`
		DB        db.Config        `yaml:"db"`
		System    System           `yaml:"system"`
		// ValidatorKey is the hex encoded secp256k1 private key, empty on non-validator nodes
		ValidatorKey string                      `yaml:"validatorKey"`
		Log          log.GlobalConfig            `yaml:"log"`
		SubLogs      map[string]log.GlobalConfig `yaml:"subLogs"`
	}

	// Validate is the interface of validating the config
	Validate func(Config) error
)

// New creates a config instance. It first loads the default configs. If the config path is not empty, it will read from
// the file and override the default configs. By default, it will apply all validation functions. To bypass validation,
// use DoNotValidate instead.
func New(configPaths []string, validates ...Validate) (Config, error) {
	opts := make([]uconfig.YAMLOption, 0)
	opts = append(opts, uconfig.Static(Default))
	opts = append(opts, uconfig.Expand(os.LookupEnv))
	for _, path := range configPaths {
		if path != "" {
			opts = append(opts, uconfig.File(path))
		}
	}
	yaml, err := uconfig.NewYAML(opts...)
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to init config")
	}

	var cfg Config
	if err := yaml.Get(uconfig.Root).Populate(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "failed to unmarshal YAML config to struct")
	}

	// By default, the config needs to pass all the validation
	if len(validates) == 0 {
		validates = Validates
	}
	for _, validate := range validates {
		if err := validate(cfg); err != nil {
			return Config{}, errors.Wrap(err, "failed to validate config")
		}
	}
	return cfg, nil
}

// SubnetID returns the id of the subnet
func (c Chain) SubnetID() (ipc.SubnetID, error) {
	id := ipc.SubnetID{Root: c.RootID}
	for _, a := range c.Route {
		if !common.IsHexAddress(a) {
			return id, errors.Wrapf(ErrInvalidCfg, "invalid route address %s", a)
		}
		id.Route = append(id.Route, common.HexToAddress(a))
	}
	return id, nil
}

// Genesis returns the initial state of the gateway
func (cfg Config) Genesis() (ledger.Genesis, error) {
	id, err := cfg.Chain.SubnetID()
	if err != nil {
		return ledger.Genesis{}, err
	}
	supply, ok := new(big.Int).SetString(cfg.Chain.CircSupply, 10)
	if !ok || supply.Sign() < 0 {
		return ledger.Genesis{}, errors.Wrapf(ErrInvalidCfg, "invalid circulating supply %s", cfg.Chain.CircSupply)
	}
	circSupply, overflow := uint256.FromBig(supply)
	if overflow {
		return ledger.Genesis{}, errors.Wrapf(ErrInvalidCfg, "circulating supply %s overflows", cfg.Chain.CircSupply)
	}
	table := make(ipc.PowerTable, 0, len(cfg.Chain.Validators))
	for _, v := range cfg.Chain.Validators {
		pk, err := hex.DecodeString(strings.TrimPrefix(v.PublicKey, "0x"))
		if err != nil || len(pk) != ipc.PublicKeyLength {
			return ledger.Genesis{}, errors.Wrapf(ErrInvalidCfg, "invalid validator public key %s", v.PublicKey)
		}
		table = append(table, ipc.Validator{PublicKey: pk, Power: v.Power})
	}
	parentHash, err := hex.DecodeString(strings.TrimPrefix(cfg.Chain.GenesisParentHash, "0x"))
	if err != nil {
		return ledger.Genesis{}, errors.Wrapf(ErrInvalidCfg, "invalid genesis parent hash %s", cfg.Chain.GenesisParentHash)
	}
	return ledger.Genesis{
		ChainID:            cfg.Chain.ChainID,
		SubnetID:           id,
		Gateway:            common.HexToAddress(cfg.Chain.GatewayAddress),
		CheckPeriod:        cfg.Chain.CheckPeriod,
		MaxMsgsPerBatch:    cfg.Chain.MaxMsgsPerBatch,
		MajorityPercentage: cfg.Chain.MajorityPercentage,
		Anchored:           cfg.Chain.Anchored,
		CircSupply:         circSupply,
		Validators:         table,
		ParentFinality: topdown.IPCParentFinality{
			Height:    cfg.Chain.GenesisParentHeight,
			BlockHash: parentHash,
		},
	}, nil
}

// ValidatorPrivateKey returns the key of the validator, nil on non-validator nodes
func (cfg Config) ValidatorPrivateKey() (*ecdsa.PrivateKey, error) {
	if cfg.ValidatorKey == "" {
		return nil, nil
	}
	sk, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.ValidatorKey, "0x"))
	if err != nil {
		return nil, errors.Wrap(ErrInvalidCfg, "invalid validator key")
	}
	return sk, nil
}

// ValidateTopDown validates the top-down config
func ValidateTopDown(cfg Config) error {
	return cfg.TopDown.Validate()
}

// ValidateChain validates the subnet and its genesis
func ValidateChain(cfg Config) error {
	if cfg.Chain.MajorityPercentage == 0 || cfg.Chain.MajorityPercentage > 100 {
		return errors.Wrapf(ErrInvalidCfg, "majority percentage %d out of range", cfg.Chain.MajorityPercentage)
	}
	if len(cfg.Chain.Route) > 0 && cfg.Chain.CheckPeriod == 0 {
		return errors.Wrap(ErrInvalidCfg, "checkpoint period of a child subnet must be positive")
	}
	_, err := cfg.Genesis()
	return err
}

// ValidateBroadcast validates the broadcast config
func ValidateBroadcast(cfg Config) error {
	return cfg.Broadcast.Validate()
}

// ValidateValidatorKey validates the validator key
func ValidateValidatorKey(cfg Config) error {
	_, err := cfg.ValidatorPrivateKey()
	return err
}

// DoNotValidate validates the given config
func DoNotValidate(cfg Config) error { return nil }
