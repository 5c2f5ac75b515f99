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
	"encoding/json"
	"net/http"
)

type banner struct {
	Service  string   `json:"service"`
	Profiles []string `json:"profiles"`
	Routes   []string `json:"routes"`
}

var routes = []string{
	"GET  /v1/profiles",
	"GET  /v1/schema?name=",
	"GET  /v1/metrics",
	"GET  /v1/rounds?id=",
	"POST /v1/verify",
	"POST /v1/estimate",
	"POST /v1/predict",
	"POST /v1/rounds",
	"POST /v1/rounds/next",
	"POST /v1/rounds/reveal",
}

// indexHandler 主頁：服務名稱、已載入的 profile 與路由清單。內容啟動後不變，先編碼好。
func indexHandler(profiles []string) http.HandlerFunc {
	b, _ := json.MarshalIndent(banner{Service: "minelab", Profiles: profiles, Routes: routes}, "", "  ")
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(b)
	}
}
