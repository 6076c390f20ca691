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

// Package dlep implements the session core of RFC 8175's Dynamic Link
// Exchange Protocol: UDP Peer-Discovery/Peer-Offer, a TCP session state
// machine, heartbeating, extension negotiation, and the link-identifier
// (LID) destination addressing scheme.
package dlep

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Prefix is the four-byte magic every UDP discovery datagram begins
// with, stripped before decoding and prepended before sending.
var Prefix = [4]byte{'D', 'L', 'E', 'P'}

var (
	errNotEnoughData = errors.New("dlep: not enough data")
	errBadPrefix     = errors.New("dlep: missing magic prefix")
)

// SignalType identifies a DLEP signal (over UDP) or message (over TCP).
type SignalType uint16

// Signal/message types, RFC 8175 section 12.2.
const (
	SignalPeerDiscovery         SignalType = 1
	SignalPeerOffer             SignalType = 2
	SignalSessionInit           SignalType = 3
	SignalSessionInitAck        SignalType = 4
	SignalSessionUpdate         SignalType = 5
	SignalSessionUpdateAck      SignalType = 6
	SignalSessionTermination    SignalType = 7
	SignalSessionTerminationAck SignalType = 8
	SignalDestinationUp         SignalType = 9
	SignalDestinationUpAck      SignalType = 10
	SignalDestinationDown       SignalType = 11
	SignalDestinationDownAck    SignalType = 12
	SignalDestinationUpdate     SignalType = 13
	SignalHeartbeat             SignalType = 14
)

func (t SignalType) String() string {
	switch t {
	case SignalPeerDiscovery:
		return "Peer-Discovery"
	case SignalPeerOffer:
		return "Peer-Offer"
	case SignalSessionInit:
		return "Session-Init"
	case SignalSessionInitAck:
		return "Session-Init-Ack"
	case SignalSessionUpdate:
		return "Session-Update"
	case SignalSessionUpdateAck:
		return "Session-Update-Ack"
	case SignalSessionTermination:
		return "Session-Termination"
	case SignalSessionTerminationAck:
		return "Session-Termination-Ack"
	case SignalDestinationUp:
		return "Destination-Up"
	case SignalDestinationUpAck:
		return "Destination-Up-Ack"
	case SignalDestinationDown:
		return "Destination-Down"
	case SignalDestinationDownAck:
		return "Destination-Down-Ack"
	case SignalDestinationUpdate:
		return "Destination-Update"
	case SignalHeartbeat:
		return "Heartbeat"
	default:
		return fmt.Sprintf("signal(%d)", uint16(t))
	}
}

// DataItemType identifies one TLV-style data item carried by a signal.
type DataItemType uint16

// Data item types understood by this package, the link-identifier items
// included; there is no separate registry of extension-specific items.
const (
	ItemStatus               DataItemType = 1
	ItemIPv4Address          DataItemType = 3
	ItemIPv6Address          DataItemType = 4
	ItemPeerType             DataItemType = 5
	ItemHeartbeatInterval    DataItemType = 6
	ItemExtensionsSupported  DataItemType = 7
	ItemMACAddress           DataItemType = 8
	ItemLinkIdentifier       DataItemType = 16
	ItemLinkIdentifierLength DataItemType = 17
)

// DataItem is one length-prefixed (type, value) pair inside a Signal.
type DataItem struct {
	Type  DataItemType
	Value []byte
}

func (d DataItem) len() int { return 4 + len(d.Value) }

func (d DataItem) marshalTo(b []byte) int {
	binary.BigEndian.PutUint16(b[0:2], uint16(d.Type))
	binary.BigEndian.PutUint16(b[2:4], uint16(len(d.Value)))
	copy(b[4:], d.Value)
	return d.len()
}

func unmarshalDataItem(b []byte) (DataItem, int, error) {
	if len(b) < 4 {
		return DataItem{}, 0, errNotEnoughData
	}
	typ := DataItemType(binary.BigEndian.Uint16(b[0:2]))
	length := int(binary.BigEndian.Uint16(b[2:4]))
	if len(b) < 4+length {
		return DataItem{}, 0, errNotEnoughData
	}
	value := append([]byte(nil), b[4:4+length]...)
	return DataItem{Type: typ, Value: value}, 4 + length, nil
}

// Signal is one DLEP signal: a type plus an ordered list of data items.
type Signal struct {
	Type  SignalType
	Items []DataItem
}

// Item returns the first data item of typ, if present.
func (s Signal) Item(typ DataItemType) (DataItem, bool) {
	for _, it := range s.Items {
		if it.Type == typ {
			return it, true
		}
	}
	return DataItem{}, false
}

// MarshalBinary encodes s as a bare signal: a 2-byte type, a 2-byte
// length, and the data items. It carries no magic prefix; callers
// sending over UDP discovery prepend Prefix themselves (see Interface).
func (s Signal) MarshalBinary() ([]byte, error) {
	bodyLen := 0
	for _, it := range s.Items {
		bodyLen += it.len()
	}
	out := make([]byte, 4+bodyLen)
	binary.BigEndian.PutUint16(out[0:2], uint16(s.Type))
	binary.BigEndian.PutUint16(out[2:4], uint16(bodyLen))
	off := 4
	for _, it := range s.Items {
		off += it.marshalTo(out[off:])
	}
	return out, nil
}

// UnmarshalSignal decodes one signal from the front of b, returning the
// number of bytes consumed.
func UnmarshalSignal(b []byte) (Signal, int, error) {
	if len(b) < 4 {
		return Signal{}, 0, errNotEnoughData
	}
	typ := SignalType(binary.BigEndian.Uint16(b[0:2]))
	length := int(binary.BigEndian.Uint16(b[2:4]))
	if len(b) < 4+length {
		return Signal{}, 0, errNotEnoughData
	}
	body := b[4 : 4+length]
	var items []DataItem
	for len(body) > 0 {
		it, n, err := unmarshalDataItem(body)
		if err != nil {
			return Signal{}, 0, fmt.Errorf("decoding data item: %w", err)
		}
		items = append(items, it)
		body = body[n:]
	}
	return Signal{Type: typ, Items: items}, 4 + length, nil
}

// WrapDiscovery prepends the magic prefix to a UDP discovery datagram.
func WrapDiscovery(signal []byte) []byte {
	out := make([]byte, 4+len(signal))
	copy(out, Prefix[:])
	copy(out[4:], signal)
	return out
}

// UnwrapDiscovery strips and checks the magic prefix from a received UDP
// discovery datagram.
func UnwrapDiscovery(raw []byte) ([]byte, error) {
	if len(raw) < 4 || [4]byte(raw[:4]) != Prefix {
		return nil, errBadPrefix
	}
	return raw[4:], nil
}
