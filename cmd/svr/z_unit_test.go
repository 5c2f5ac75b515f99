// Copyright 2025 Zintix Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zintix-labs/minelab"
	"github.com/zintix-labs/minelab/ledger"
)

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := parseConfig(nil, map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, ":5808", cfg.Addr)
	assert.Equal(t, "dev", cfg.LogMode)
	assert.Equal(t, 3, cfg.PoolSize)
	assert.Equal(t, 30*time.Second, cfg.ReqTimeout)
	assert.Equal(t, 7*24*time.Hour, cfg.RoundTTL)
	assert.Equal(t, 25, cfg.PredictorTiles)
}

func TestParseConfigFlagsOverrideEnv(t *testing.T) {
	environ := map[string]string{
		"MINELAB_ADDR":              ":9000",
		"MINELAB_POOL_SIZE":         "5",
		"MINELAB_PREDICTOR_TIMEOUT": "750ms",
		"MINELAB_LOG_MODE":          "prod",
	}
	cfg, err := parseConfig([]string{"-addr", ":9100", "-log-mode", "silence"}, environ)
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.Addr)
	assert.Equal(t, "silence", cfg.LogMode)
	assert.Equal(t, 5, cfg.PoolSize)
	assert.Equal(t, 750*time.Millisecond, cfg.PredictorTimeout)

	_, err = parseConfig(nil, map[string]string{"MINELAB_POOL_SIZE": "many"})
	assert.Error(t, err)
	_, err = parseConfig([]string{"-nope"}, map[string]string{})
	assert.Error(t, err)
}

func TestBuildWithProfileDirAndRemote(t *testing.T) {
	dir := t.TempDir()
	yml := "name: tiny\nside: 3\nmode: hmac\nhash: sha256\nchunk_width: 5\nblocks: 1\nmine_count: 2\ntrials: 1000\nworkers: 1\nsampling: mask\nconfidence: 0.95\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tiny.yaml"), []byte(yml), 0o644))

	cfg, err := parseConfig([]string{"-log-mode", "silence", "-profiles", dir, "-predictor", "http://127.0.0.1:1/predict"}, map[string]string{})
	require.NoError(t, err)
	sCfg, svr, cleanup, err := cfg.build(context.Background())
	require.NoError(t, err)
	defer cleanup()

	assert.Equal(t, ":5808", svr.Address())
	assert.Contains(t, sCfg.Lab.Names(), "tiny")
	assert.Contains(t, sCfg.Lab.Names(), "poppy")
	assert.IsType(t, &ledger.MemoryStore{}, sCfg.Store)
	rp, ok := sCfg.Remote.(*minelab.RemotePredictor)
	require.True(t, ok)
	assert.Equal(t, 25, rp.TileCount)
}

func TestBuildRejectsBadLogMode(t *testing.T) {
	cfg, err := parseConfig([]string{"-log-mode", "loud"}, map[string]string{})
	require.NoError(t, err)
	_, _, _, err = cfg.build(context.Background())
	assert.Error(t, err)
}

func TestLoadDotEnvMissingIsFine(t *testing.T) {
	assert.NoError(t, loadDotEnv(filepath.Join(t.TempDir(), ".env")))
}
