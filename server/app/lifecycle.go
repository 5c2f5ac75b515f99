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

package app

import (
	"context"
	"sync"
)

// Component 可啟動 / 可關閉的長生命週期元件。
//   - Run() 阻塞直到元件停止
//   - Shutdown(ctx) 要求優雅關閉，需尊重 ctx deadline
type Component interface {
	Run() error
	Shutdown(ctx context.Context) error
}

// closer 沒有自己的迴圈，只在關閉時釋放資源（估算池、redis 連線）。
type closer struct {
	stop chan struct{}
	once sync.Once
	fn   func(ctx context.Context) error
}

// OnShutdown 把關閉函式包成 Component：Run 阻塞到 Shutdown 被呼叫為止。
func OnShutdown(fn func(ctx context.Context) error) Component {
	return &closer{stop: make(chan struct{}), fn: fn}
}

func (c *closer) Run() error {
	<-c.stop
	return nil
}

func (c *closer) Shutdown(ctx context.Context) error {
	var err error
	c.once.Do(func() {
		close(c.stop)
		if c.fn != nil {
			err = c.fn(ctx)
		}
	})
	return err
}
