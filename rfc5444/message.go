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

// Message flag bits, RFC 5444 section 5.2.1. The low nibble carries
// addr-length - 1.
const (
	msgFlagHasOrig     = 0x80
	msgFlagHasHopLimit = 0x40
	msgFlagHasHopCount = 0x20
	msgFlagHasSeqNum   = 0x10
)

// Message is one RFC 5444 message: a typed, optionally originator/hop/
// sequence-tagged container for a message-level TLV block and an ordered
// list of address blocks.
type Message struct {
	Type     uint8
	AddrLen  int // 1..16 bytes
	Orig     []byte
	HopLimit uint8
	HasHop   bool
	HopCount uint8
	HasCount bool
	SeqNum   uint16
	HasSeq   bool
	TLVs     TLVBlock
	Blocks   []AddressBlock
}

func (m Message) flags() byte {
	if m.AddrLen < 1 || m.AddrLen > 16 {
		return 0
	}
	f := byte(m.AddrLen - 1)
	if len(m.Orig) > 0 {
		f |= msgFlagHasOrig
	}
	if m.HasHop {
		f |= msgFlagHasHopLimit
	}
	if m.HasCount {
		f |= msgFlagHasHopCount
	}
	if m.HasSeq {
		f |= msgFlagHasSeqNum
	}
	return f
}

// MarshalBinary encodes the full message, including its msg-size header
// field.
func (m Message) MarshalBinary() ([]byte, error) {
	if m.AddrLen < 1 || m.AddrLen > 16 {
		return nil, errUnsupportedAddrLen
	}
	if len(m.Orig) > 0 && len(m.Orig) != m.AddrLen {
		return nil, errInconsistentAddrLen
	}

	body := []byte{}
	if len(m.Orig) > 0 {
		body = append(body, m.Orig...)
	}
	if m.HasHop {
		body = append(body, m.HopLimit)
	}
	if m.HasCount {
		body = append(body, m.HopCount)
	}
	if m.HasSeq {
		seq := make([]byte, 2)
		binary.BigEndian.PutUint16(seq, m.SeqNum)
		body = append(body, seq...)
	}

	tlvBytes := make([]byte, m.TLVs.Len())
	if _, err := m.TLVs.MarshalBinaryTo(tlvBytes); err != nil {
		return nil, err
	}
	body = append(body, tlvBytes...)

	for _, ab := range m.Blocks {
		abBytes, err := ab.MarshalBinary()
		if err != nil {
			return nil, err
		}
		body = append(body, abBytes...)
	}

	header := make([]byte, 4)
	header[0] = m.Type
	header[1] = m.flags()
	binary.BigEndian.PutUint16(header[2:], uint16(4+len(body)))
	return append(header, body...), nil
}

// Len returns the message's total encoded size including its header.
func (m Message) Len() int {
	b, _ := m.MarshalBinary()
	return len(b)
}

// UnmarshalMessage decodes one message from the front of b, returning the
// number of bytes consumed (equal to the message's own msg-size field).
func UnmarshalMessage(b []byte) (Message, int, error) {
	if len(b) < 4 {
		return Message{}, 0, errNotEnoughData
	}
	var m Message
	m.Type = b[0]
	flags := b[1]
	size := int(binary.BigEndian.Uint16(b[2:4]))
	if size < 4 || len(b) < size {
		return Message{}, 0, errNotEnoughData
	}
	body := b[4:size]
	m.AddrLen = int(flags&0x0f) + 1

	if flags&msgFlagHasOrig != 0 {
		if len(body) < m.AddrLen {
			return Message{}, 0, errNotEnoughData
		}
		m.Orig = append([]byte(nil), body[:m.AddrLen]...)
		body = body[m.AddrLen:]
	}
	if flags&msgFlagHasHopLimit != 0 {
		if len(body) < 1 {
			return Message{}, 0, errNotEnoughData
		}
		m.HasHop = true
		m.HopLimit = body[0]
		body = body[1:]
	}
	if flags&msgFlagHasHopCount != 0 {
		if len(body) < 1 {
			return Message{}, 0, errNotEnoughData
		}
		m.HasCount = true
		m.HopCount = body[0]
		body = body[1:]
	}
	if flags&msgFlagHasSeqNum != 0 {
		if len(body) < 2 {
			return Message{}, 0, errNotEnoughData
		}
		m.HasSeq = true
		m.SeqNum = binary.BigEndian.Uint16(body[:2])
		body = body[2:]
	}

	tlvs, consumed, err := UnmarshalTLVBlock(body)
	if err != nil {
		return Message{}, 0, fmt.Errorf("decoding message tlvs: %w", err)
	}
	m.TLVs = tlvs
	body = body[consumed:]

	for len(body) > 0 {
		ab, n, err := UnmarshalAddressBlock(body, m.AddrLen)
		if err != nil {
			return Message{}, 0, fmt.Errorf("decoding address block: %w", err)
		}
		m.Blocks = append(m.Blocks, ab)
		body = body[n:]
	}

	return m, size, nil
}
