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
	"bytes"
	"sort"
)

// AddressHandle identifies one address contributed to a MessageBuilder via
// AddAddress, so a later AddAddrTLV call can attach a TLV to it without the
// caller tracking its own address bookkeeping.
type AddressHandle int

// addrContribution is one address a provider handed to a MessageBuilder,
// before the builder's optimization passes (ordering, coalescing) run.
type addrContribution struct {
	addr      []byte
	prefixLen uint8
	mandatory bool
	tlvs      []TLV
}

// MessageBuilder accumulates one message's header fields, message-level
// TLVs, and the addresses/address-TLVs content providers contribute,
// deferring address-block construction to Build, which runs the writer's
// three optimization passes: ordering addresses into longest-common-prefix
// order, splitting them into mandatory/optional runs, and coalescing
// per-address TLVs into shared multi-index (or whole-block) TLVs.
type MessageBuilder struct {
	msg   Message
	addrs []*addrContribution
}

// NewMessageBuilder creates a builder for one message whose addresses are
// addrLen bytes wide (4 for IPv4, 16 for IPv6). The provider must call
// SetType before Build.
func NewMessageBuilder(addrLen int) *MessageBuilder {
	return &MessageBuilder{msg: Message{AddrLen: addrLen}}
}

// SetType sets the message's RFC 5444 message type.
func (mb *MessageBuilder) SetType(msgType uint8) {
	mb.msg.Type = msgType
}

// SetOriginator sets the message's originator address.
func (mb *MessageBuilder) SetOriginator(addr []byte) {
	mb.msg.Orig = addr
}

// SetHopLimit sets the message's hop limit.
func (mb *MessageBuilder) SetHopLimit(limit uint8) {
	mb.msg.HasHop = true
	mb.msg.HopLimit = limit
}

// SetHopCount sets the message's hop count.
func (mb *MessageBuilder) SetHopCount(count uint8) {
	mb.msg.HasCount = true
	mb.msg.HopCount = count
}

// SetSeqNum sets the message's own sequence number, distinct from the
// packet sequence number Writer.Generate assigns.
func (mb *MessageBuilder) SetSeqNum(seq uint16) {
	mb.msg.HasSeq = true
	mb.msg.SeqNum = seq
}

// AddMessageTLV appends a message-level TLV.
func (mb *MessageBuilder) AddMessageTLV(t TLV) {
	mb.msg.TLVs = append(mb.msg.TLVs, t)
}

// AddAddress contributes one address to the message and returns a handle
// so the caller can attach per-address TLVs to it with AddAddrTLV. This is
// the writer's add_address: mandatory marks the address as one that must
// appear in every fragment the message ends up split into (RFC 5444
// section 11.3), the way NHDP always carries its own originator address
// alongside whichever neighbor addresses fit a given fragment.
func (mb *MessageBuilder) AddAddress(addr []byte, prefixLen uint8, mandatory bool) AddressHandle {
	mb.addrs = append(mb.addrs, &addrContribution{
		addr:      append([]byte(nil), addr...),
		prefixLen: prefixLen,
		mandatory: mandatory,
	})
	return AddressHandle(len(mb.addrs) - 1)
}

// AddAddrTLV attaches TLV t to the address identified by handle. Several
// addresses carrying the same (Type, HasExt, Ext) TLV is exactly the case
// Build's coalescing pass turns into a single shared-value TLV instead of
// one per-address copy.
func (mb *MessageBuilder) AddAddrTLV(handle AddressHandle, t TLV) error {
	if int(handle) < 0 || int(handle) >= len(mb.addrs) {
		return errInvalidAddressHandle
	}
	mb.addrs[handle].tlvs = append(mb.addrs[handle].tlvs, t)
	return nil
}

// Build runs the writer's address optimization passes and returns the
// finished message, ready for fragmentation.
func (mb *MessageBuilder) Build() (Message, error) {
	msg := mb.msg
	if len(mb.addrs) == 0 {
		return msg, nil
	}

	mandatory, optional := splitByMandatory(mb.addrs)
	for _, run := range [][]*addrContribution{mandatory, optional} {
		if len(run) == 0 {
			continue
		}
		orderByLongestCommonPrefix(run)
		ab, err := buildAddressBlock(run, msg.AddrLen)
		if err != nil {
			return Message{}, err
		}
		msg.Blocks = append(msg.Blocks, ab)
	}
	return msg, nil
}

// splitByMandatory is the writer's address-run split pass: mandatory
// addresses (ones that must survive into every fragment) go in their own
// block, kept separate from addresses that can be dropped if a fragment
// runs out of room.
func splitByMandatory(addrs []*addrContribution) (mandatory, optional []*addrContribution) {
	for _, a := range addrs {
		if a.mandatory {
			mandatory = append(mandatory, a)
		} else {
			optional = append(optional, a)
		}
	}
	return mandatory, optional
}

// orderByLongestCommonPrefix is the writer's ordering pass: sorting
// addresses lexicographically (ties by prefix length) places addresses
// sharing long prefixes next to each other. AddressBlock.MarshalBinary
// computes its head/tail compression over the whole block, so the order
// does not change the encoded size.
func orderByLongestCommonPrefix(addrs []*addrContribution) {
	sort.SliceStable(addrs, func(i, j int) bool {
		c := bytes.Compare(addrs[i].addr, addrs[j].addr)
		if c != 0 {
			return c < 0
		}
		return addrs[i].prefixLen < addrs[j].prefixLen
	})
}

// buildAddressBlock assembles one AddressBlock from already-ordered
// contributions, running the TLV coalescing pass over their per-address
// TLVs.
func buildAddressBlock(addrs []*addrContribution, addrLen int) (AddressBlock, error) {
	ab := AddressBlock{AddrLen: addrLen}
	ab.Addrs = make([][]byte, len(addrs))
	ab.PrefixLens = make([]uint8, len(addrs))
	for i, a := range addrs {
		if len(a.addr) != addrLen {
			return AddressBlock{}, errInconsistentAddrLen
		}
		ab.Addrs[i] = a.addr
		ab.PrefixLens[i] = a.prefixLen
	}
	ab.TLVs = coalesceAddrTLVs(addrs)
	return ab, nil
}

// addrTLVKey groups per-address TLV contributions that can potentially
// share one coalesced TLV: same type and type-extension.
type addrTLVKey struct {
	tlvType TLVType
	hasExt  bool
	ext     uint8
}

// coalesceAddrTLVs is the writer's TLV coalescing pass: every address's
// per-address TLVs are grouped by (type, ext), split into contiguous index
// runs, and each run becomes one TLV — a bare whole-block TLV when every
// address carries the same value, a single-index TLV for a lone address,
// or a multi-index TLV (shared value, or one value per address via
// MultiValue) for a contiguous range with mixed values.
func coalesceAddrTLVs(addrs []*addrContribution) TLVBlock {
	var order []addrTLVKey
	byKey := map[addrTLVKey][]indexedValue{}
	for i, a := range addrs {
		for _, t := range a.tlvs {
			k := addrTLVKey{t.Type, t.HasExt, t.Ext}
			if _, ok := byKey[k]; !ok {
				order = append(order, k)
			}
			byKey[k] = append(byKey[k], indexedValue{idx: i, value: t.Value})
		}
	}

	var out TLVBlock
	for _, k := range order {
		out = append(out, coalesceRuns(k, byKey[k], len(addrs))...)
	}
	return out
}

type indexedValue struct {
	idx   int
	value []byte
}

// coalesceRuns splits entries (already in address-index order) into
// contiguous runs and emits one TLV per run.
func coalesceRuns(k addrTLVKey, entries []indexedValue, numAddrs int) TLVBlock {
	var out TLVBlock
	i := 0
	for i < len(entries) {
		j := i
		for j+1 < len(entries) && entries[j+1].idx == entries[j].idx+1 {
			j++
		}
		out = append(out, coalesceRun(k, entries[i:j+1], numAddrs))
		i = j + 1
	}
	return out
}

func coalesceRun(k addrTLVKey, run []indexedValue, numAddrs int) TLV {
	start, stop := run[0].idx, run[len(run)-1].idx
	sameValue := true
	for _, e := range run[1:] {
		if !bytes.Equal(e.value, run[0].value) {
			sameValue = false
			break
		}
	}

	t := TLV{Type: k.tlvType, HasExt: k.hasExt, Ext: k.ext}
	switch {
	case start == 0 && stop == numAddrs-1 && sameValue:
		// No index markers: RFC 5444 5.4.2 already defines that as
		// "applies to every address in the block".
		t.Value = run[0].value
	case len(run) == 1:
		t.HasSingleIndex = true
		t.SingleIndex = uint8(start)
		t.Value = run[0].value
	case sameValue:
		t.HasMultiIndex = true
		t.IndexStart, t.IndexStop = uint8(start), uint8(stop)
		t.Value = run[0].value
	default:
		t.HasMultiIndex = true
		t.IndexStart, t.IndexStop = uint8(start), uint8(stop)
		t.MultiValue = true
		var buf []byte
		for _, e := range run {
			buf = append(buf, e.value...)
		}
		t.Value = buf
	}
	return t
}
