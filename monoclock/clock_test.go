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

package monoclock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewAnchorsAtZero(t *testing.T) {
	c, err := New()
	require.NoError(t, err)
	require.Equal(t, Millis(0), c.Now())
}

func TestUpdateAdvances(t *testing.T) {
	c, err := New()
	require.NoError(t, err)
	require.NoError(t, c.Update())
	first := c.Now()
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, c.Update())
	require.Greater(t, int64(c.Now()), int64(first))
}

func TestSinceAndAfter(t *testing.T) {
	c, err := New()
	require.NoError(t, err)
	require.NoError(t, c.Update())
	mark := c.Now()
	require.NoError(t, c.Update())
	require.False(t, c.After(c.Now()))
	require.True(t, c.After(mark-1))
	require.Equal(t, c.Now()-mark, c.Since(mark))
}

func TestIn(t *testing.T) {
	c, err := New()
	require.NoError(t, err)
	require.NoError(t, c.Update())
	require.Equal(t, c.Now()+100, c.In(100*time.Millisecond))
}

func TestStringSaturatesOnOverflow(t *testing.T) {
	require.Equal(t, overflowDisplay, Millis(overflowThreshold+1).String())
	require.Equal(t, overflowDisplay, Millis(-1).String())
	require.Equal(t, (1500 * time.Millisecond).String(), Millis(1500).String())
}
