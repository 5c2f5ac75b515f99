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

package catalog

import (
	"fmt"
	"io/fs"
	"slices"
	"strings"

	"github.com/zintix-labs/minelab/errs"
	"github.com/zintix-labs/minelab/setting"
)

var (
	ErrDupName  = errs.NewFatal("duplicate profile name")
	ErrNotFound = errs.NewWarn("profile not found")
)

type Entry struct {
	Name       string
	ConfigName string
}

type Summary struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Side        int    `json:"side"`
	Mode        string `json:"mode"`
	Hash        string `json:"hash"`
	ChunkWidth  int    `json:"chunk_width"`
	Blocks      int    `json:"blocks"`
	MineCount   int    `json:"mine_count"`
	Trials      int    `json:"trials"`
	Sampling    string `json:"sampling"`
}

// Catalog profile 註冊表。設定檔來源為一組扁平的 fs.FS，檔名跨來源唯一。
type Catalog struct {
	byName   map[string]Entry
	profiles map[string]*setting.Profile // 已解析，註冊時即驗證
	names    []string                    // 用來穩定排序
	unique   map[string]struct{}         // 一個 profile 一個檔，檔名需唯一
	config   *multiFS
	frozen   bool
}

func New(cfg ...fs.FS) (*Catalog, error) {
	multFS, err := newMultiFS(cfg...)
	if err != nil {
		return nil, errs.Wrap(err, "can not create catalog")
	}
	return &Catalog{
		byName:   map[string]Entry{},
		profiles: map[string]*setting.Profile{},
		names:    make([]string, 0, 16),
		unique:   map[string]struct{}{},
		config:   multFS,
		frozen:   false,
	}, nil
}

// Discover 解析所有來源中的設定檔，以檔內 name 註冊。
func (c *Catalog) Discover() error {
	files := make([]string, 0, len(c.config.index))
	for name := range c.config.index {
		files = append(files, name)
	}
	slices.Sort(files)
	entries := make([]Entry, 0, len(files))
	for _, f := range files {
		p, err := c.load(f)
		if err != nil {
			return err
		}
		entries = append(entries, Entry{Name: p.Name, ConfigName: f})
	}
	return c.Register(entries...)
}

// Register 全有或全無：任一筆失敗則不寫入任何一筆。
func (c *Catalog) Register(metas ...Entry) error {
	if c.frozen {
		return errs.NewWarn("can not register when catalog already frozen")
	}
	seenName := map[string]struct{}{}
	seenCfg := map[string]struct{}{}
	parsed := make([]*setting.Profile, len(metas))
	for i, meta := range metas {
		meta.Name = normalize(meta.Name)
		if meta.Name == "" {
			return errs.NewFatal("profile name required")
		}
		if err := validFileName(meta.ConfigName); err != nil {
			return err
		}
		if _, ok := c.config.index[meta.ConfigName]; !ok {
			return errs.NewFatal(fmt.Sprintf("config file not found: %s", meta.ConfigName))
		}
		if _, ok := c.byName[meta.Name]; ok {
			return ErrDupName
		}
		if _, ok := seenName[meta.Name]; ok {
			return ErrDupName
		}
		if _, ok := c.unique[meta.ConfigName]; ok {
			return errs.NewFatal(fmt.Sprintf("duplicate config name: %s", meta.ConfigName))
		}
		if _, ok := seenCfg[meta.ConfigName]; ok {
			return errs.NewFatal(fmt.Sprintf("duplicate config name: %s", meta.ConfigName))
		}
		p, err := c.load(meta.ConfigName)
		if err != nil {
			return err
		}
		if p.Name != meta.Name {
			return errs.NewFatal(fmt.Sprintf("profile name mismatch: entry %q, file %q declares %q", meta.Name, meta.ConfigName, p.Name))
		}
		parsed[i] = p
		seenName[meta.Name] = struct{}{}
		seenCfg[meta.ConfigName] = struct{}{}
	}
	for i, meta := range metas {
		meta.Name = normalize(meta.Name)
		c.unique[meta.ConfigName] = struct{}{}
		c.byName[meta.Name] = meta
		c.profiles[meta.Name] = parsed[i]
		c.names = append(c.names, meta.Name)
	}
	slices.Sort(c.names)
	return nil
}

func (c *Catalog) GetByName(name string) (Entry, bool) {
	m, ok := c.byName[normalize(name)]
	return m, ok
}

func (c *Catalog) Names() []string {
	if len(c.names) == 0 {
		return nil
	}
	return slices.Clone(c.names)
}

func (c *Catalog) All() []Entry {
	m := make([]Entry, 0, len(c.names))
	for _, n := range c.names {
		m = append(m, c.byName[n])
	}
	return m
}

// ProfileByName 回傳 profile 副本，呼叫端可安全修改。
func (c *Catalog) ProfileByName(name string) (*setting.Profile, error) {
	p, ok := c.profiles[normalize(name)]
	if !ok {
		return nil, errs.WrapWarn(ErrNotFound, fmt.Sprintf("profile %q", name))
	}
	return p.Clone(), nil
}

// Summary 依名稱排序列出所有 profile。
func (c *Catalog) Summary() []Summary {
	out := make([]Summary, 0, len(c.names))
	for _, n := range c.names {
		p := c.profiles[n]
		params := p.Params()
		out = append(out, Summary{
			Name:        p.Name,
			Description: p.Description,
			Side:        p.Side,
			Mode:        params.Mode.String(),
			Hash:        params.Hash.String(),
			ChunkWidth:  params.ChunkWidth,
			Blocks:      max(1, params.Blocks),
			MineCount:   p.MineCount,
			Trials:      p.Trials,
			Sampling:    p.SamplingMode().String(),
		})
	}
	return out
}

func (c *Catalog) Freeze() {
	c.frozen = true
}

func (c *Catalog) IsFrozen() bool {
	return c.frozen
}

func (c *Catalog) load(configName string) (*setting.Profile, error) {
	src, ok := c.config.GetFS(configName)
	if !ok {
		return nil, errs.NewWarn("file name dose not exist in catalog")
	}
	raw, err := fs.ReadFile(src, configName)
	if err != nil {
		return nil, errs.Wrap(err, "catalog read file error")
	}
	p, err := setting.ProfileByExt(configName, raw)
	if err != nil {
		return nil, errs.Wrap(err, fmt.Sprintf("catalog parse %s error", configName))
	}
	return p, nil
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func validFileName(file string) error {
	if file == "" {
		return errs.NewFatal("empty config filename")
	}
	// 1) 不能包含路徑或類似字元
	if strings.ContainsAny(file, `/\:`) {
		return errs.NewFatal(fmt.Sprintf("invalid config filename: %q (must be a basename; no / \\\\ :) ", file))
	}
	// 2) 必須以 .yaml/.yml/.json 結尾（大小寫不敏感）
	if !isConfigFile(file) {
		return errs.NewFatal(fmt.Sprintf("invalid config filename: %q (must end with .yaml, .yml, or .json)", file))
	}
	// 3) 不能以 . 開頭
	if strings.HasPrefix(file, ".") {
		return errs.NewFatal(fmt.Sprintf("invalid config filename: %q (cannot start with '.')", file))
	}
	return nil
}

func isConfigFile(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml") || strings.HasSuffix(lower, ".json")
}

type multiFS struct {
	src   []fs.FS
	index map[string]int // name -> src index
}

func newMultiFS(src ...fs.FS) (*multiFS, error) {
	if len(src) == 0 {
		return nil, errs.NewFatal("no fs provided")
	}
	for i, s := range src {
		if s == nil {
			return nil, errs.NewFatal(fmt.Sprintf("fs[%d] is nil", i))
		}
	}

	m := &multiFS{
		src:   src,
		index: make(map[string]int, 64),
	}

	for i := 0; i < len(src); i++ {
		err := fs.WalkDir(src[i], ".", func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				// 只允許根目錄，任何子目錄都違反扁平約定
				if path == "." {
					return nil
				}
				return errs.NewFatal(fmt.Sprintf("profile FS must be flat (no subdirectories): %q", path))
			}
			// 非設定檔（例如 embed.go）直接略過
			if !isConfigFile(path) || strings.HasPrefix(path, ".") {
				return nil
			}
			if prev, ok := m.index[path]; ok {
				return errs.NewFatal(fmt.Sprintf("duplicate config %q in fs[%d] and fs[%d]", path, prev, i))
			}
			m.index[path] = i
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *multiFS) GetFS(name string) (fs.FS, bool) {
	if id, ok := m.index[name]; ok {
		return m.src[id], ok
	}
	return nil, false
}
