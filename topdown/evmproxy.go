// Copyright (c) 2026 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package topdown

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"

	"github.com/iotexproject/iotex-subnet/ipc"
)

type (
	// EthClient is the subset of the ethereum json-rpc client used to query the parent
	EthClient interface {
		BlockNumber(context.Context) (uint64, error)
		HeaderByNumber(context.Context, *big.Int) (*types.Header, error)
		FilterLogs(context.Context, ethereum.FilterQuery) ([]types.Log, error)
	}

	// EVMParentProxy queries an EVM compatible parent chain. Top-down messages are read from the
	// gateway events, validator changes from the subnet actor events.
	EVMParentProxy struct {
		client      EthClient
		gateway     common.Address
		subnetActor common.Address
	}
)

// NewEVMParentProxy creates a proxy of the parent chain
func NewEVMParentProxy(client EthClient, gateway, subnetActor common.Address) *EVMParentProxy {
	return &EVMParentProxy{
		client:      client,
		gateway:     gateway,
		subnetActor: subnetActor,
	}
}

// ChainHeadHeight implements ParentQueryProxy
func (p *EVMParentProxy) ChainHeadHeight(ctx context.Context) (BlockHeight, error) {
	return p.client.BlockNumber(ctx)
}

// BlockHash implements ParentQueryProxy
func (p *EVMParentProxy) BlockHash(ctx context.Context, height BlockHeight) (*BlockHashResult, error) {
	header, err := p.header(ctx, height)
	if err != nil {
		return nil, err
	}
	return &BlockHashResult{
		ParentBlockHash: header.ParentHash.Bytes(),
		BlockHash:       header.Hash().Bytes(),
	}, nil
}

// ValidatorChanges implements ParentQueryProxy
func (p *EVMParentProxy) ValidatorChanges(ctx context.Context, height BlockHeight) (*ValidatorChangesResult, error) {
	hash, logs, err := p.logs(ctx, height, p.subnetActor, ipc.PowerChangeTopic)
	if err != nil {
		return nil, err
	}
	changes := make([]ipc.PowerChangeRequest, 0, len(logs))
	for _, l := range logs {
		req, err := ipc.DecodePowerChangeEvent(l.Data)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid power change log in tx %s", l.TxHash.Hex())
		}
		changes = append(changes, req)
	}
	return &ValidatorChangesResult{BlockHash: hash, Changes: changes}, nil
}

// TopDownMessages implements ParentQueryProxy
func (p *EVMParentProxy) TopDownMessages(ctx context.Context, height BlockHeight) (*TopDownMessagesResult, error) {
	hash, logs, err := p.logs(ctx, height, p.gateway, ipc.TopDownMessageTopic)
	if err != nil {
		return nil, err
	}
	msgs := make([]ipc.IpcEnvelope, 0, len(logs))
	for _, l := range logs {
		// the first indexed topic is the destination subnet actor
		if len(l.Topics) < 2 || common.BytesToAddress(l.Topics[1].Bytes()) != p.subnetActor {
			continue
		}
		msg, err := ipc.DecodeTopDownMessageEvent(l.Data)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid top-down message log in tx %s", l.TxHash.Hex())
		}
		msgs = append(msgs, msg)
	}
	return &TopDownMessagesResult{BlockHash: hash, Messages: msgs}, nil
}

func (p *EVMParentProxy) header(ctx context.Context, height BlockHeight) (*types.Header, error) {
	header, err := p.client.HeaderByNumber(ctx, new(big.Int).SetUint64(height))
	if err != nil {
		if strings.Contains(err.Error(), ErrNullRound.Error()) {
			return nil, errors.Wrapf(ErrNullRound, "height %d", height)
		}
		return nil, errors.Wrapf(err, "failed to get header at %d", height)
	}
	return header, nil
}

func (p *EVMParentProxy) logs(ctx context.Context, height BlockHeight, addr common.Address, topic common.Hash) ([]byte, []types.Log, error) {
	header, err := p.header(ctx, height)
	if err != nil {
		return nil, nil, err
	}
	hash := header.Hash()
	logs, err := p.client.FilterLogs(ctx, ethereum.FilterQuery{
		BlockHash: &hash,
		Addresses: []common.Address{addr},
		Topics:    [][]common.Hash{{topic}},
	})
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to filter logs at %d", height)
	}
	return hash.Bytes(), logs, nil
}
