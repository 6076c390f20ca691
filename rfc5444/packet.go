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

package rfc5444

import (
	"encoding/binary"
	"fmt"
)

// Version is the only RFC 5444 packet version this codec speaks.
const Version = 0

// Packet flag bits, RFC 5444 section 5.1.
const (
	pktFlagHasSeqNum = 0x08
	pktFlagHasTLV    = 0x04
)

// Packet is one RFC 5444 packet: an optional sequence number, an optional
// packet-level TLV block, and an ordered list of messages.
type Packet struct {
	HasSeqNum bool
	SeqNum    uint16
	TLVs      TLVBlock
	Messages  []Message
}

func (p Packet) flags() byte {
	f := byte(Version) << 4
	if p.HasSeqNum {
		f |= pktFlagHasSeqNum
	}
	if len(p.TLVs) > 0 {
		f |= pktFlagHasTLV
	}
	return f
}

// MarshalBinary encodes the whole packet.
func (p Packet) MarshalBinary() ([]byte, error) {
	out := []byte{p.flags()}
	if p.HasSeqNum {
		seq := make([]byte, 2)
		binary.BigEndian.PutUint16(seq, p.SeqNum)
		out = append(out, seq...)
	}
	if len(p.TLVs) > 0 {
		tlvBytes := make([]byte, p.TLVs.Len())
		if _, err := p.TLVs.MarshalBinaryTo(tlvBytes); err != nil {
			return nil, err
		}
		out = append(out, tlvBytes...)
	}
	for _, m := range p.Messages {
		mb, err := m.MarshalBinary()
		if err != nil {
			return nil, err
		}
		out = append(out, mb...)
	}
	return out, nil
}

// UnmarshalPacket decodes a complete packet. Unlike messages and address
// blocks, a packet has no self-describing total length field: the caller
// (the transport's datagram framing) supplies exactly one packet's bytes.
func UnmarshalPacket(b []byte) (Packet, error) {
	if len(b) < 1 {
		return Packet{}, errNotEnoughData
	}
	flags := b[0]
	version := flags >> 4
	if version != Version {
		return Packet{}, fmt.Errorf("rfc5444: unsupported packet version %d", version)
	}
	var p Packet
	n := 1
	if flags&pktFlagHasSeqNum != 0 {
		if len(b) < n+2 {
			return Packet{}, errNotEnoughData
		}
		p.HasSeqNum = true
		p.SeqNum = binary.BigEndian.Uint16(b[n:])
		n += 2
	}
	if flags&pktFlagHasTLV != 0 {
		tlvs, consumed, err := UnmarshalTLVBlock(b[n:])
		if err != nil {
			return Packet{}, fmt.Errorf("decoding packet tlvs: %w", err)
		}
		p.TLVs = tlvs
		n += consumed
	}
	for n < len(b) {
		m, consumed, err := UnmarshalMessage(b[n:])
		if err != nil {
			return Packet{}, fmt.Errorf("decoding message: %w", err)
		}
		p.Messages = append(p.Messages, m)
		n += consumed
	}
	return p, nil
}

// FragmentMessages splits messages into the fewest ordered groups such that
// each group, once wrapped in a Packet sharing header and tlvs, fits within
// maxSize bytes. A single message larger than maxSize still gets its own,
// oversized group: RFC 5444 has no mechanism to split one message across
// packets, so the caller (the DLEP/OLSR transport) must drop or reject it.
func FragmentMessages(header Packet, messages []Message, maxSize int) [][]Message {
	headerOnly := header
	headerOnly.Messages = nil
	base, _ := headerOnly.MarshalBinary()
	overhead := len(base)

	var groups [][]Message
	var current []Message
	size := overhead
	for _, m := range messages {
		mLen := m.Len()
		if len(current) > 0 && size+mLen > maxSize {
			groups = append(groups, current)
			current = nil
			size = overhead
		}
		current = append(current, m)
		size += mLen
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}
