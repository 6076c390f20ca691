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

// TLVType is an RFC 5444 TLV type, packet/message/address-block specific.
type TLVType uint8

func (t TLVType) String() string {
	return fmt.Sprintf("tlv-type(%d)", uint8(t))
}

// TLV flag bits, RFC 5444 section 5.4.1.
const (
	tlvFlagTypeExt    = 0x80
	tlvFlagSingleIdx  = 0x40
	tlvFlagMultiIdx   = 0x20
	tlvFlagValue      = 0x10
	tlvFlagExtLen     = 0x08
	tlvFlagMultiValue = 0x04
)

// TLV is one Type-Length-Value record, shared by the packet, message and
// address-block TLV containers.
type TLV struct {
	Type    TLVType
	HasExt  bool
	Ext     uint8
	Value   []byte // nil means "no value", distinct from an empty value
	// The index fields are only meaningful for address-block TLVs,
	// where a TLV can apply to one address (SingleIndex) or to a
	// contiguous range of addresses (MultiIndex), the latter with one
	// shared value or, with MultiValue, one value per address.
	HasSingleIndex bool
	SingleIndex    uint8
	HasMultiIndex  bool
	IndexStart     uint8
	IndexStop      uint8
	MultiValue     bool
}

func (t TLV) flags() byte {
	var f byte
	if t.HasExt {
		f |= tlvFlagTypeExt
	}
	if t.HasSingleIndex {
		f |= tlvFlagSingleIdx
	}
	if t.HasMultiIndex {
		f |= tlvFlagMultiIdx
	}
	if t.Value != nil {
		f |= tlvFlagValue
		if len(t.Value) > 0xff {
			f |= tlvFlagExtLen
		}
		if t.MultiValue {
			f |= tlvFlagMultiValue
		}
	}
	return f
}

// MarshalBinaryTo encodes t into b, returning the number of bytes written.
// b must be at least as long as the TLV's encoded size.
func (t TLV) MarshalBinaryTo(b []byte) (int, error) {
	n := 0
	b[n] = byte(t.Type)
	n++
	flagsOffset := n
	b[n] = t.flags()
	n++
	if t.HasExt {
		b[n] = t.Ext
		n++
	}
	if t.HasSingleIndex {
		b[n] = t.SingleIndex
		n++
	}
	if t.HasMultiIndex {
		b[n] = t.IndexStart
		b[n+1] = t.IndexStop
		n += 2
	}
	if t.Value != nil {
		if b[flagsOffset]&tlvFlagExtLen != 0 {
			binary.BigEndian.PutUint16(b[n:], uint16(len(t.Value)))
			n += 2
		} else {
			b[n] = byte(len(t.Value))
			n++
		}
		n += copy(b[n:], t.Value)
	}
	return n, nil
}

// Len returns t's encoded size in bytes.
func (t TLV) Len() int {
	n := 2
	if t.HasExt {
		n++
	}
	if t.HasSingleIndex {
		n++
	}
	if t.HasMultiIndex {
		n += 2
	}
	if t.Value != nil {
		if len(t.Value) > 0xff {
			n += 2
		} else {
			n++
		}
		n += len(t.Value)
	}
	return n
}

// UnmarshalTLV decodes one TLV from the front of b, returning the number of
// bytes consumed.
func UnmarshalTLV(b []byte) (TLV, int, error) {
	if len(b) < 2 {
		return TLV{}, 0, errNotEnoughData
	}
	var t TLV
	t.Type = TLVType(b[0])
	flags := b[1]
	n := 2

	if flags&tlvFlagTypeExt != 0 {
		if len(b) < n+1 {
			return TLV{}, 0, errNotEnoughData
		}
		t.HasExt = true
		t.Ext = b[n]
		n++
	}
	if flags&tlvFlagSingleIdx != 0 {
		if len(b) < n+1 {
			return TLV{}, 0, errNotEnoughData
		}
		t.HasSingleIndex = true
		t.SingleIndex = b[n]
		n++
	}
	if flags&tlvFlagMultiIdx != 0 {
		if len(b) < n+2 {
			return TLV{}, 0, errNotEnoughData
		}
		t.HasMultiIndex = true
		t.IndexStart = b[n]
		t.IndexStop = b[n+1]
		n += 2
	}
	if flags&tlvFlagValue != 0 {
		var length int
		if flags&tlvFlagExtLen != 0 {
			if len(b) < n+2 {
				return TLV{}, 0, errNotEnoughData
			}
			length = int(binary.BigEndian.Uint16(b[n:]))
			n += 2
		} else {
			if len(b) < n+1 {
				return TLV{}, 0, errNotEnoughData
			}
			length = int(b[n])
			n++
		}
		if len(b) < n+length {
			return TLV{}, 0, errNotEnoughData
		}
		t.Value = append([]byte(nil), b[n:n+length]...)
		t.MultiValue = flags&tlvFlagMultiValue != 0
		n += length
	}
	return t, n, nil
}

// TLVBlock is an ordered, length-prefixed sequence of TLVs, as carried by
// packets, messages and address blocks alike (RFC 5444 section 5.5).
type TLVBlock []TLV

// Len returns the block's encoded size, including its 2-octet length
// prefix.
func (b TLVBlock) Len() int {
	n := 2
	for _, t := range b {
		n += t.Len()
	}
	return n
}

// MarshalBinaryTo encodes the TLV block (length prefix + TLVs) into dst.
func (b TLVBlock) MarshalBinaryTo(dst []byte) (int, error) {
	n := 2
	for _, t := range b {
		written, err := t.MarshalBinaryTo(dst[n:])
		if err != nil {
			return 0, err
		}
		n += written
	}
	binary.BigEndian.PutUint16(dst[0:2], uint16(n-2))
	return n, nil
}

// UnmarshalTLVBlock decodes a length-prefixed TLV block from the front of
// b, returning the number of bytes consumed.
func UnmarshalTLVBlock(b []byte) (TLVBlock, int, error) {
	if len(b) < 2 {
		return nil, 0, errNotEnoughData
	}
	length := int(binary.BigEndian.Uint16(b[0:2]))
	if len(b) < 2+length {
		return nil, 0, errNotEnoughData
	}
	body := b[2 : 2+length]
	var block TLVBlock
	for len(body) > 0 {
		t, n, err := UnmarshalTLV(body)
		if err != nil {
			return nil, 0, fmt.Errorf("decoding tlv block: %w", err)
		}
		block = append(block, t)
		body = body[n:]
	}
	return block, 2 + length, nil
}
