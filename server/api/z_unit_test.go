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

package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zintix-labs/minelab"
	"github.com/zintix-labs/minelab/fair"
	"github.com/zintix-labs/minelab/profiles"
	"github.com/zintix-labs/minelab/sdk/core"
	"github.com/zintix-labs/minelab/server/netsvr"
	"github.com/zintix-labs/minelab/server/svrcfg"
)

func newTestServer(t *testing.T, remote minelab.Predictor, opts ...func(*svrcfg.SvrCfg)) *httptest.Server {
	t.Helper()
	lab, err := minelab.New(core.Default(), profiles.FS)
	require.NoError(t, err)
	sCfg := &svrcfg.SvrCfg{
		Log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		PoolSize: 2,
		Lab:      lab,
		Remote:   remote,
	}
	for _, o := range opts {
		o(sCfg)
	}
	require.NoError(t, sCfg.Vaild())

	svr := netsvr.NewChiServer("")
	h, err := RegisterRoutes(svr, sCfg)
	require.NoError(t, err)
	ts := httptest.NewServer(svr.Handler())
	t.Cleanup(func() {
		ts.Close()
		h.Runtime().Close()
	})
	return ts
}

func post(t *testing.T, ts *httptest.Server, path string, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(ts.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, b
}

func get(t *testing.T, ts *httptest.Server, path string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, b
}

func TestIndexAndProfiles(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, b := get(t, ts, "/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var ban banner
	require.NoError(t, json.Unmarshal(b, &ban))
	assert.Equal(t, "minelab", ban.Service)
	assert.Contains(t, ban.Profiles, "poppy")
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))

	resp, b = get(t, ts, "/v1/profiles")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sums []map[string]any
	require.NoError(t, json.Unmarshal(b, &sums))
	assert.Len(t, sums, 4)
}

func TestVerifyEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)

	body := `{"profile":"poppy","server_seed":"abc","client_seed":"xyz","nonce":"1","commitment":"` + fair.Commit("abc") + `"}`
	resp, b := post(t, ts, "/v1/verify", body)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(b))
	var v minelab.Verification
	require.NoError(t, json.Unmarshal(b, &v))
	assert.Equal(t, []int{19, 23, 14}, v.Mines)
	require.NotNil(t, v.CommitmentOK)
	assert.True(t, *v.CommitmentOK)

	cases := []struct {
		name   string
		body   string
		status int
	}{
		{"unknown profile", `{"profile":"nope","server_seed":"a","client_seed":"b","nonce":0}`, http.StatusNotFound},
		{"unknown field", `{"profile":"poppy","server_seed":"a","client_seed":"b","extra":1}`, http.StatusBadRequest},
		{"missing seed", `{"profile":"poppy","client_seed":"b"}`, http.StatusBadRequest},
		{"negative nonce", `{"profile":"poppy","server_seed":"a","client_seed":"b","nonce":"-1"}`, http.StatusBadRequest},
		{"too many mines", `{"profile":"poppy","server_seed":"a","client_seed":"b","mine_count":25}`, http.StatusBadRequest},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			resp, b := post(t, ts, "/v1/verify", c.body)
			assert.Equal(t, c.status, resp.StatusCode, string(b))
			assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
		})
	}

	resp, b = get(t, ts, "/v1/verify")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Contains(t, string(b), "method not allowed")

	resp, b = get(t, ts, "/v1/nothing")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(b), "route not found")

	// 尾端斜線視同無斜線
	resp, _ = post(t, ts, "/v1/verify/", body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

type estimateBody struct {
	Report struct {
		Trials int       `json:"Trials"`
		Safety []float64 `json:"Safety"`
	} `json:"report"`
	Workers int    `json:"workers"`
	Seed    *int64 `json:"seed"`
	Heatmap string `json:"heatmap"`
}

func TestEstimateEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)

	body := `{"profile":"poppy","trials":4000,"workers":2,"seed":7}`
	var a, b estimateBody
	resp, raw := post(t, ts, "/v1/estimate", body)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	require.NoError(t, json.Unmarshal(raw, &a))
	_, raw = post(t, ts, "/v1/estimate", body)
	require.NoError(t, json.Unmarshal(raw, &b))

	assert.Equal(t, 4000, a.Report.Trials)
	assert.Len(t, a.Report.Safety, 25)
	assert.Equal(t, a.Report.Safety, b.Report.Safety)
	require.NotNil(t, a.Seed)
	assert.EqualValues(t, 7, *a.Seed)
	assert.NotEmpty(t, a.Heatmap)

	// 池路徑
	resp, raw = post(t, ts, "/v1/estimate", `{"profile":"poppy","trials":2000,"revealed":[0,1],"sampling":"condition"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	var c estimateBody
	require.NoError(t, json.Unmarshal(raw, &c))
	assert.Zero(t, c.Report.Safety[0])
	assert.Zero(t, c.Report.Safety[1])
	assert.Nil(t, c.Seed)

	resp, _ = post(t, ts, "/v1/estimate", `{"profile":"poppy","revealed":[25]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = post(t, ts, "/v1/estimate", `{"profile":"poppy","sampling":"rejection"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestEstimateTimeout(t *testing.T) {
	ts := newTestServer(t, nil, func(c *svrcfg.SvrCfg) { c.ReqTimeout = time.Millisecond })

	for _, body := range []string{
		`{"profile":"poppy","mine_count":3,"trials":10000000,"workers":1,"seed":7}`,
		`{"profile":"poppy","mine_count":3,"trials":10000000,"workers":1}`,
	} {
		resp, raw := post(t, ts, "/v1/estimate", body)
		assert.Equal(t, http.StatusGatewayTimeout, resp.StatusCode, string(raw))
		assert.Contains(t, string(raw), "deadline")
	}
}

func TestPanicResponseCompressed(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svr := netsvr.NewChiServer("")
	registerMiddleware(svr, log)
	svr.Get("/boom", func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})
	ts := httptest.NewServer(svr.Handler())
	t.Cleanup(ts.Close)

	// 預設 client 會送 Accept-Encoding: gzip 並自動解壓
	resp, b := get(t, ts, "/boom")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.JSONEq(t, `{"error":"internal error","level":"fatal"}`, string(b))
}

func TestPredictEndpoint(t *testing.T) {
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		safety := make([]float64, 25)
		for i := range safety {
			safety[i] = 0.5
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"safety": safety})
	}))
	defer remote.Close()

	ts := newTestServer(t, minelab.NewRemotePredictor(remote.URL, 25, 0))

	var out struct {
		Method string    `json:"method"`
		Safety []float64 `json:"safety"`
	}
	resp, raw := post(t, ts, "/v1/predict", `{"profile":"poppy","revealed":[0],"method":"exact"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, "exact", out.Method)
	assert.Zero(t, out.Safety[0])
	assert.InDelta(t, 22.0/25.0, out.Safety[1], 1e-12)

	resp, raw = post(t, ts, "/v1/predict", `{"profile":"poppy"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, "montecarlo", out.Method)
	assert.Len(t, out.Safety, 25)

	resp, raw = post(t, ts, "/v1/predict", `{"profile":"poppy","method":"remote"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, 0.5, out.Safety[3])

	// 6x6 與遠端 25 格不符
	resp, _ = post(t, ts, "/v1/predict", `{"profile":"blake","method":"remote"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPredictRemoteNotConfigured(t *testing.T) {
	ts := newTestServer(t, nil)
	resp, b := post(t, ts, "/v1/predict", `{"profile":"poppy","method":"remote"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(b), "remote predictor not configured")
}

type roundBody struct {
	Round struct {
		ID         string `json:"id"`
		ServerSeed string `json:"server_seed"`
		Commitment string `json:"commitment"`
		ClientSeed string `json:"client_seed"`
		Nonce      uint64 `json:"nonce"`
		Revealed   bool   `json:"revealed"`
	} `json:"round"`
	Verification *minelab.Verification `json:"verification"`
}

func TestRoundLifecycle(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, raw := post(t, ts, "/v1/rounds", `{"profile":"POPPY","client_seed":"me"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	var rd roundBody
	require.NoError(t, json.Unmarshal(raw, &rd))
	assert.Empty(t, rd.Round.ServerSeed)
	assert.Equal(t, "me", rd.Round.ClientSeed)
	assert.Len(t, rd.Round.Commitment, 64)
	id := rd.Round.ID

	resp, raw = get(t, ts, "/v1/rounds?id="+id)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(raw, &rd))
	assert.Empty(t, rd.Round.ServerSeed)

	resp, raw = post(t, ts, "/v1/rounds/next", `{"id":"`+id+`"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(raw, &rd))
	assert.EqualValues(t, 1, rd.Round.Nonce)

	resp, raw = post(t, ts, "/v1/rounds/reveal", `{"id":"`+id+`"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	var rv roundBody
	require.NoError(t, json.Unmarshal(raw, &rv))
	assert.True(t, rv.Round.Revealed)
	assert.NotEmpty(t, rv.Round.ServerSeed)
	assert.Equal(t, fair.Commit(rv.Round.ServerSeed), rv.Round.Commitment)
	require.NotNil(t, rv.Verification)
	assert.Len(t, rv.Verification.Mines, 3)
	require.NotNil(t, rv.Verification.CommitmentOK)
	assert.True(t, *rv.Verification.CommitmentOK)

	// 揭露後的結果可由 /v1/verify 重算
	vb, _ := json.Marshal(map[string]any{
		"profile": "poppy", "server_seed": rv.Round.ServerSeed, "client_seed": "me", "nonce": 1,
	})
	resp, raw = post(t, ts, "/v1/verify", string(vb))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var v minelab.Verification
	require.NoError(t, json.Unmarshal(raw, &v))
	assert.Equal(t, rv.Verification.Mines, v.Mines)

	resp, _ = post(t, ts, "/v1/rounds/next", `{"id":"`+id+`"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = get(t, ts, "/v1/rounds?id=00000000-0000-0000-0000-000000000000")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = get(t, ts, "/v1/rounds?id=not-a-uuid")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = post(t, ts, "/v1/rounds", `{"profile":"nope"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = post(t, ts, "/v1/rounds", `{"profile":"poppy","client_seed":" me "}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSchemaAndMetrics(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, raw := get(t, ts, "/v1/schema")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var names struct {
		Names []string `json:"names"`
	}
	require.NoError(t, json.Unmarshal(raw, &names))
	assert.Contains(t, names.Names, "verify")

	resp, raw = get(t, ts, "/v1/schema?name=estimate")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, bytes.Contains(raw, []byte(`"trials"`)))

	resp, _ = get(t, ts, "/v1/schema?name=nope")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	_, _ = post(t, ts, "/v1/estimate", `{"profile":"plain","trials":500}`)
	resp, raw = get(t, ts, "/v1/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var m struct {
		Pools []minelab.PoolMetrics `json:"pools"`
	}
	require.NoError(t, json.Unmarshal(raw, &m))
	require.Len(t, m.Pools, 4)
	var served int64
	for _, p := range m.Pools {
		assert.Equal(t, 2, p.PoolSize)
		if p.Profile == "plain" {
			served = p.Served
		}
	}
	assert.EqualValues(t, 1, served)
}
