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
	"errors"
	"os"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeComp struct {
	runErr   error
	stop     chan struct{}
	shutdown atomic.Int32
}

func newFake(runErr error) *fakeComp {
	return &fakeComp{runErr: runErr, stop: make(chan struct{})}
}

func (f *fakeComp) Run() error {
	if f.runErr != nil {
		return f.runErr
	}
	<-f.stop
	return nil
}

func (f *fakeComp) Shutdown(ctx context.Context) error {
	if f.shutdown.Add(1) == 1 {
		close(f.stop)
	}
	return nil
}

func TestRunStopsAllOnComponentError(t *testing.T) {
	boom := errors.New("listen failed")
	bad, good := newFake(boom), newFake(nil)
	var closed atomic.Bool
	a := NewWith(bad, good, OnShutdown(func(ctx context.Context) error {
		closed.Store(true)
		return nil
	}))

	err := a.Run()
	require.ErrorIs(t, err, boom)
	assert.EqualValues(t, 1, good.shutdown.Load())
	assert.True(t, closed.Load())
}

func TestRunStopsOnSignal(t *testing.T) {
	sig := make(chan os.Signal, 1)
	good := newFake(nil)
	a := NewWith(good).WithGrace(time.Second)
	a.sig = sig

	done := make(chan error, 1)
	go func() { done <- a.Run() }()
	sig <- syscall.SIGTERM

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
	assert.EqualValues(t, 1, good.shutdown.Load())
}

func TestOnShutdownRunsOnce(t *testing.T) {
	n := 0
	c := OnShutdown(func(ctx context.Context) error { n++; return nil })
	done := make(chan error, 1)
	go func() { done <- c.Run() }()
	require.NoError(t, c.Shutdown(context.Background()))
	require.NoError(t, c.Shutdown(context.Background()))
	assert.NoError(t, <-done)
	assert.Equal(t, 1, n)
}
