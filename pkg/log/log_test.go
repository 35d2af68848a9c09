// Copyright (c) 2026 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package log

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitLoggers(t *testing.T) {
	require := require.New(t)

	zapCfg := zap.NewDevelopmentConfig()
	zapCfg.OutputPaths = []string{"stdout"}
	require.NoError(InitLoggers(
		GlobalConfig{Zap: &zapCfg},
		map[string]GlobalConfig{"topdown": {}},
	))
	require.NotNil(L())
	require.NotNil(S())
	require.NotNil(Logger("topdown"))
	require.NotNil(Logger("unknown"))

	require.Equal(ErrReservedName, InitLoggers(GlobalConfig{}, map[string]GlobalConfig{"global": {}}))
}

func TestRegisterLevelConfigMux(t *testing.T) {
	require := require.New(t)

	zapCfg := zap.NewProductionConfig()
	zapCfg.OutputPaths = []string{"stdout"}
	require.NoError(InitLoggers(GlobalConfig{Zap: &zapCfg}, nil))
	mux := http.NewServeMux()
	RegisterLevelConfigMux(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/logging/global", nil))
	require.Equal(http.StatusOK, rec.Code)
	require.Contains(rec.Body.String(), "info")

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/logging/global", strings.NewReader(`{"level":"debug"}`)))
	require.Equal(http.StatusOK, rec.Code)
	require.Equal(zap.DebugLevel, zapCfg.Level.Level())

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/logging/unknown", nil))
	require.Equal(http.StatusNotFound, rec.Code)
}
