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
package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogMode(t *testing.T) {
	for in, want := range map[string]LogMode{"": ModeDev, "DEV": ModeDev, " prod ": ModeProd, "silence": ModeSilence} {
		m, err := ParseLogMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, m, in)
	}
	_, err := ParseLogMode("loud")
	assert.Error(t, err)
	assert.Equal(t, "prod", ModeProd.String())
	assert.Equal(t, "unknown", LogMode(9).String())
}

func TestNewProdJSONWithService(t *testing.T) {
	var buf bytes.Buffer
	log, ah, err := New(Config{Mode: ModeProd, Level: "warn", Service: "minelab", Out: &buf})
	require.NoError(t, err)
	assert.Nil(t, ah)

	log.Info("skipped")
	log.Warn("kept", slog.Int("n", 1))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "kept", rec["msg"])
	assert.Equal(t, "minelab", rec["service"])

	_, _, err = New(Config{Level: "chatty"})
	assert.Error(t, err)
}

func TestAsyncHandlerDrainsOnClose(t *testing.T) {
	var buf bytes.Buffer
	log, ah, err := New(Config{Mode: ModeDev, Buffer: 64, Out: &buf})
	require.NoError(t, err)
	require.NotNil(t, ah)

	for i := 0; i < 10; i++ {
		log.Info("line", slog.Int("i", i))
	}
	ah.Close()
	assert.Equal(t, 10, bytes.Count(buf.Bytes(), []byte("msg=line")))

	// 關閉後的紀錄計入 dropped
	log.Info("late")
	assert.EqualValues(t, 1, ah.Dropped())
	ah.Close()
}
