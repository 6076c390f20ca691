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

package mpr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMetricAddSaturates(t *testing.T) {
	require.Equal(t, MetricInfinite, MetricInfinite.Add(1))
	require.Equal(t, MetricInfinite, Metric(10).Add(MetricInfinite))
	require.Equal(t, MetricInfinite, Metric(MetricInfinite-1).Add(2))
}

func TestMetricAddOrdinary(t *testing.T) {
	require.Equal(t, Metric(7), Metric(3).Add(4))
}

func TestMetricFinite(t *testing.T) {
	require.True(t, Metric(0).Finite())
	require.False(t, MetricInfinite.Finite())
}

func TestWillingnessAlwaysNever(t *testing.T) {
	require.True(t, WillingnessAlways.Always())
	require.False(t, WillingnessAlways.Never())
	require.True(t, WillingnessNever.Never())
	require.False(t, WillingnessDefault.Always())
	require.False(t, WillingnessDefault.Never())
}
