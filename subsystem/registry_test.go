/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package subsystem

import (
	"fmt"
	"sync"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type fakeSub struct {
	name     string
	deps     []string
	initErr  error
	onInit   func()
	onTeard  func()
}

func (f *fakeSub) Name() string           { return f.name }
func (f *fakeSub) Dependencies() []string { return f.deps }
func (f *fakeSub) Init(*log.Entry) error {
	if f.onInit != nil {
		f.onInit()
	}
	return f.initErr
}
func (f *fakeSub) Teardown(*log.Entry) error {
	if f.onTeard != nil {
		f.onTeard()
	}
	return nil
}

func TestInitAllRespectsDependencyOrder(t *testing.T) {
	r := New(nil)
	var mu sync.Mutex
	var order []string
	record := func(name string) func() {
		return func() {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
		}
	}

	require.NoError(t, r.Register(&fakeSub{name: "clock", onInit: record("clock")}))
	require.NoError(t, r.Register(&fakeSub{name: "timer", deps: []string{"clock"}, onInit: record("timer")}))
	require.NoError(t, r.Register(&fakeSub{name: "rfc5444", deps: []string{"timer", "clock"}, onInit: record("rfc5444")}))

	require.NoError(t, r.InitAll())
	require.Equal(t, []string{"clock", "timer", "rfc5444"}, order)
}

func TestInitAllUnregisteredDependencyErrors(t *testing.T) {
	r := New(nil)
	require.NoError(t, r.Register(&fakeSub{name: "rfc5444", deps: []string{"ghost"}}))
	require.Error(t, r.InitAll())
}

func TestInitAllCycleDetected(t *testing.T) {
	r := New(nil)
	require.NoError(t, r.Register(&fakeSub{name: "a", deps: []string{"b"}}))
	require.NoError(t, r.Register(&fakeSub{name: "b", deps: []string{"a"}}))
	require.Error(t, r.InitAll())
}

func TestInitAllFailureTearsDownStarted(t *testing.T) {
	r := New(nil)
	var mu sync.Mutex
	torn := map[string]bool{}
	record := func(name string) func() {
		return func() {
			mu.Lock()
			defer mu.Unlock()
			torn[name] = true
		}
	}

	require.NoError(t, r.Register(&fakeSub{name: "clock", onTeard: record("clock")}))
	require.NoError(t, r.Register(&fakeSub{
		name: "rfc5444", deps: []string{"clock"},
		initErr: fmt.Errorf("boom"), onTeard: record("rfc5444"),
	}))

	err := r.InitAll()
	require.Error(t, err)
	require.True(t, torn["clock"])
	require.Nil(t, r.started)
}

func TestTeardownAllReverseOrder(t *testing.T) {
	r := New(nil)
	var mu sync.Mutex
	var order []string
	record := func(name string) func() {
		return func() {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
		}
	}

	require.NoError(t, r.Register(&fakeSub{name: "clock", onTeard: record("clock")}))
	require.NoError(t, r.Register(&fakeSub{name: "timer", deps: []string{"clock"}, onTeard: record("timer")}))

	require.NoError(t, r.InitAll())
	r.TeardownAll()
	require.Equal(t, []string{"timer", "clock"}, order)
}
