// Copyright (c) 2026 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package itx

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/iotexproject/iotex-subnet/pkg/log"
)

var heartbeatMtc = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "subnet_heartbeat_status",
		Help: "Node heartbeat status.",
	},
	[]string{"status_type", "source"},
)

func init() {
	prometheus.MustRegister(heartbeatMtc)
}

// HeartbeatHandler is the handler to periodically log the system key metrics
type HeartbeatHandler struct {
	s *Server
}

// NewHeartbeatHandler instantiates a HeartbeatHandler instance
func NewHeartbeatHandler(s *Server) *HeartbeatHandler {
	return &HeartbeatHandler{s: s}
}

// Log executes the logging logic
func (h *HeartbeatHandler) Log() {
	cs := h.s.ChainService()
	provider := cs.FinalityProvider()
	if provider == nil {
		log.L().Debug("chain service is not started")
		return
	}
	gateway := cs.Gateway()
	height := gateway.BlockHeight()
	var parentHeight uint64
	if committed := provider.LastCommittedFinality(); committed != nil {
		parentHeight = committed.Height
	}
	cachedBlocks := provider.CachedBlocks()
	syncerHead := cs.Syncer().Head()
	tallyHeight := cs.VoteTally().LatestHeight()
	incomplete, err := gateway.IncompleteCheckpoints()
	if err != nil {
		log.L().Error("error when reading incomplete checkpoints.", zap.Error(err))
		return
	}

	log.L().Info("chain service status",
		zap.Uint64("height", height),
		zap.Uint64("parentFinality", parentHeight),
		zap.Uint64("parentSyncHead", syncerHead),
		zap.Uint64("cachedParentBlocks", cachedBlocks),
		zap.Uint64("tallyHeight", tallyHeight),
		zap.Int("incompleteCheckpoints", len(incomplete)),
		zap.Uint64("chainID", gateway.ChainID()),
	)

	chainIDStr := strconv.FormatUint(gateway.ChainID(), 10)
	heartbeatMtc.WithLabelValues("blockHeight", chainIDStr).Set(float64(height))
	heartbeatMtc.WithLabelValues("parentFinality", chainIDStr).Set(float64(parentHeight))
	heartbeatMtc.WithLabelValues("parentSyncHead", chainIDStr).Set(float64(syncerHead))
	heartbeatMtc.WithLabelValues("cachedParentBlocks", chainIDStr).Set(float64(cachedBlocks))
	heartbeatMtc.WithLabelValues("tallyHeight", chainIDStr).Set(float64(tallyHeight))
	heartbeatMtc.WithLabelValues("incompleteCheckpoints", chainIDStr).Set(float64(len(incomplete)))
}
