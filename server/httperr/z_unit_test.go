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
package httperr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zintix-labs/minelab/catalog"
	"github.com/zintix-labs/minelab/dto"
	"github.com/zintix-labs/minelab/errs"
	"github.com/zintix-labs/minelab/ledger"
)

func TestStatusCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{errs.WrapWarn(context.DeadlineExceeded, "estimate"), http.StatusGatewayTimeout},
		{errs.WrapWarn(context.Canceled, "estimate"), http.StatusRequestTimeout},
		{errs.WrapWarn(ledger.ErrNotFound, "round x"), http.StatusNotFound},
		{errs.WrapWarn(catalog.ErrNotFound, "profile"), http.StatusNotFound},
		{errs.WrapWarn(ledger.ErrSealed, "round x"), http.StatusConflict},
		{errs.WrapWarn(ErrRouteNotFound, "GET /x"), http.StatusNotFound},
		{errs.WrapWarn(ErrMethodNotAllowed, "GET /v1/verify"), http.StatusMethodNotAllowed},
		{errs.InvalidInputf("bad"), http.StatusBadRequest},
		{errs.InsufficientEntropyf("short"), http.StatusBadRequest},
		{errs.NewFatal("broken"), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, StatusCode(c.err), c.err.Error())
	}
}

func TestErrsBody(t *testing.T) {
	rec := httptest.NewRecorder()
	Errs(rec, errs.InvalidInputf("mine_count must > 0"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body dto.ErrorResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Error, "mine_count")
	assert.Equal(t, "warn", body.Level)

	rec = httptest.NewRecorder()
	Errs(rec, nil)
	assert.Zero(t, rec.Body.Len())
}

func TestLogOnlyNotable(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	Log(log, "verify", errs.InvalidInputf("bad"))
	assert.Zero(t, buf.Len())
	Log(log, "estimate", errs.NewFatal("broken"))
	assert.Contains(t, buf.String(), "status=500")
	buf.Reset()
	Log(log, "next", errs.WrapWarn(ledger.ErrSealed, "round"))
	assert.Contains(t, buf.String(), "level=WARN")
}
