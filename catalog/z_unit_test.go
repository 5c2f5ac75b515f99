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

package catalog_test

import (
	"errors"
	"slices"
	"testing"
	"testing/fstest"

	"github.com/zintix-labs/minelab/catalog"
	"github.com/zintix-labs/minelab/fair"
	"github.com/zintix-labs/minelab/profiles"
)

const extraYAML = `name: Tiny
side: 3
mode: plain
hash: sha256
chunk_width: 4
blocks: 2
mine_count: 2
trials: 1000
workers: 1
sampling: mask
confidence: 0.9
`

func TestCatalogDiscoverEmbedded(t *testing.T) {
	c, err := catalog.New(profiles.FS)
	if err != nil {
		t.Fatalf("new catalog err: %v", err)
	}
	if err := c.Discover(); err != nil {
		t.Fatalf("discover err: %v", err)
	}
	if got := c.Names(); !slices.Equal(got, []string{"blake", "plain", "poppy", "wide"}) {
		t.Fatalf("names = %v", got)
	}
	p, err := c.ProfileByName(" POPPY ")
	if err != nil {
		t.Fatalf("lookup err: %v", err)
	}
	if p.Params() != fair.DefaultParams() || p.Side != 5 {
		t.Fatalf("poppy params = %+v side=%d", p.Params(), p.Side)
	}
	// 回傳副本，修改不影響註冊表
	p.MineCount = 20
	again, _ := c.ProfileByName("poppy")
	if again.MineCount != 3 {
		t.Fatalf("catalog profile mutated through clone")
	}
	sum := c.Summary()
	if len(sum) != 4 || sum[0].Name != "blake" || sum[0].Hash != "blake2b256" || sum[0].Blocks != 4 {
		t.Fatalf("summary = %+v", sum)
	}
}

func TestCatalogMultiFS(t *testing.T) {
	extra := fstest.MapFS{"tiny.yaml": {Data: []byte(extraYAML)}}
	c, err := catalog.New(profiles.FS, extra)
	if err != nil {
		t.Fatalf("new catalog err: %v", err)
	}
	if err := c.Discover(); err != nil {
		t.Fatalf("discover err: %v", err)
	}
	p, err := c.ProfileByName("tiny")
	if err != nil {
		t.Fatalf("tiny lookup err: %v", err)
	}
	if p.Params().Mode != fair.PlainKeyedMessage || p.Params().Blocks != 2 {
		t.Fatalf("tiny params = %+v", p.Params())
	}
	if _, err := c.ProfileByName("nope"); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCatalogRejects(t *testing.T) {
	// 跨來源同檔名
	if _, err := catalog.New(profiles.FS, fstest.MapFS{"poppy.yaml": {Data: []byte(extraYAML)}}); err == nil {
		t.Fatalf("duplicate file across fs should fail")
	}
	// 子目錄
	if _, err := catalog.New(fstest.MapFS{"sub/a.yaml": {Data: []byte(extraYAML)}}); err == nil {
		t.Fatalf("nested fs should fail")
	}
	// 同名 profile
	dup := fstest.MapFS{"a.yaml": {Data: []byte(extraYAML)}, "b.yaml": {Data: []byte(extraYAML)}}
	c, _ := catalog.New(dup)
	if err := c.Discover(); !errors.Is(err, catalog.ErrDupName) {
		t.Fatalf("expected dup name, got %v", err)
	}
	// 未知欄位
	bad := fstest.MapFS{"bad.yaml": {Data: []byte(extraYAML + "colour: red\n")}}
	c, _ = catalog.New(bad)
	if err := c.Discover(); err == nil {
		t.Fatalf("unknown field should fail")
	}
	// mine_count >= tiles
	over := fstest.MapFS{"over.yaml": {Data: []byte("name: over\nside: 2\nmode: hmac\nchunk_width: 5\nmine_count: 4\ntrials: 1\nconfidence: 0.9\n")}}
	c, _ = catalog.New(over)
	if err := c.Discover(); err == nil {
		t.Fatalf("mine_count >= tiles should fail")
	}
	// 凍結後不可註冊
	c, _ = catalog.New(fstest.MapFS{"tiny.yaml": {Data: []byte(extraYAML)}})
	c.Freeze()
	if err := c.Register(catalog.Entry{Name: "tiny", ConfigName: "tiny.yaml"}); err == nil || !c.IsFrozen() {
		t.Fatalf("frozen catalog should reject register")
	}
}

func TestCatalogJSONProfile(t *testing.T) {
	js := `{"name":"j","side":4,"mode":"hmac","hash":"sha512","chunk_width":6,"blocks":1,"mine_count":3,"trials":10,"workers":2,"sampling":"condition","confidence":0.95}`
	c, _ := catalog.New(fstest.MapFS{"j.json": {Data: []byte(js)}})
	if err := c.Discover(); err != nil {
		t.Fatalf("json discover err: %v", err)
	}
	p, _ := c.ProfileByName("j")
	if p.Params().Hash != fair.SHA512 || p.SamplingMode().String() != "condition" {
		t.Fatalf("json profile = %+v", p)
	}
}
