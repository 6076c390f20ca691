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

package dlep

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSignalRoundTrip(t *testing.T) {
	sig := Signal{
		Type: SignalSessionInit,
		Items: []DataItem{
			{Type: ItemPeerType, Value: []byte("router")},
			{Type: ItemHeartbeatInterval, Value: []byte{0, 5}},
		},
	}
	raw, err := sig.MarshalBinary()
	require.NoError(t, err)

	got, n, err := UnmarshalSignal(raw)
	require.NoError(t, err)
	require.Equal(t, len(raw), n)
	require.Equal(t, sig.Type, got.Type)
	require.Len(t, got.Items, 2)

	peerType, ok := got.Item(ItemPeerType)
	require.True(t, ok)
	require.Equal(t, "router", string(peerType.Value))
}

func TestSignalEmptyItems(t *testing.T) {
	sig := Signal{Type: SignalHeartbeat}
	raw, err := sig.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, raw, 4)

	got, n, err := UnmarshalSignal(raw)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.Equal(t, SignalHeartbeat, got.Type)
	require.Empty(t, got.Items)
}

func TestUnmarshalSignalTruncated(t *testing.T) {
	_, _, err := UnmarshalSignal([]byte{0, 3, 0, 10})
	require.ErrorIs(t, err, errNotEnoughData)
}

func TestUnmarshalSignalTooShort(t *testing.T) {
	_, _, err := UnmarshalSignal([]byte{0, 1})
	require.ErrorIs(t, err, errNotEnoughData)
}

func TestWrapUnwrapDiscovery(t *testing.T) {
	sig := Signal{Type: SignalPeerDiscovery}
	raw, err := sig.MarshalBinary()
	require.NoError(t, err)

	wrapped := WrapDiscovery(raw)
	require.Equal(t, Prefix[:], wrapped[:4])

	unwrapped, err := UnwrapDiscovery(wrapped)
	require.NoError(t, err)
	require.Equal(t, raw, unwrapped)
}

func TestUnwrapDiscoveryRejectsBadPrefix(t *testing.T) {
	_, err := UnwrapDiscovery([]byte{'X', 'X', 'X', 'X', 0, 0})
	require.ErrorIs(t, err, errBadPrefix)
}

func TestUnwrapDiscoveryRejectsShort(t *testing.T) {
	_, err := UnwrapDiscovery([]byte{'D', 'L'})
	require.ErrorIs(t, err, errBadPrefix)
}

func TestMultipleSignalsFeedSequentially(t *testing.T) {
	s1, _ := (Signal{Type: SignalHeartbeat}).MarshalBinary()
	s2, _ := (Signal{Type: SignalPeerDiscovery}).MarshalBinary()
	buf := append(append([]byte{}, s1...), s2...)

	first, n, err := UnmarshalSignal(buf)
	require.NoError(t, err)
	require.Equal(t, SignalHeartbeat, first.Type)

	second, _, err := UnmarshalSignal(buf[n:])
	require.NoError(t, err)
	require.Equal(t, SignalPeerDiscovery, second.Type)
}
