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

import "fmt"

// ContentProvider fills in one message's header fields and address
// contributions via mb (NHDP's Hello generator, OLSRv2's TC generator, and
// so on). A writer round collects every provider's message before
// fragmenting and signing.
type ContentProvider func(mb *MessageBuilder) error

// SignHook computes a signature TLV over the serialized bytes of one
// packet fragment. It is called once per fragment, after fragmentation has
// decided which messages share a datagram, so a signature always covers
// exactly what goes out on the wire together.
//
// This is a deliberate simplification of the packet-level signing model:
// rather than reserving a message-TLV-sized hole ahead of marshaling and
// filling it in place (the pre-reserved-ICV-TLV approach packet/message
// signing conventionally uses), SignHook marshals the fragment once,
// computes the TLV over those bytes, and appends it as an extra packet
// TLV — so the ICV covers the fragment's messages but not itself. That is
// acceptable here because every signature this daemon actually enforces
// is wired at message level through sigpolicy.Policy.SignMessage, which
// does reserve and zero the ICV TLV's value in place before signing (see
// sigpolicy's withZeroedICV); SignHook exists only for an optional
// additional packet-level seal over a fragment's final bytes.
type SignHook func(fragmentBytes []byte) (TLV, error)

// Target is one destination this writer must produce a tailored fragment
// set for: typically one neighbor or one outgoing interface, each with
// its own negotiated MTU.
type Target struct {
	Name    string
	MaxSize int
}

// Writer assembles wire-ready packets from registered content providers,
// building each message once ("create_message_alltarget": the common case
// where a message's content does not vary per destination) and then
// fragmenting and signing it separately per Target so each destination
// gets fragments sized to its own MaxSize.
type Writer struct {
	providers []ContentProvider
	signHooks []SignHook
}

// NewWriter creates an empty Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// AddProvider registers a content provider. Providers run in registration
// order, and their messages are concatenated before fragmentation, so
// provider order determines which messages are preferentially kept
// together in the first fragment.
func (w *Writer) AddProvider(p ContentProvider) {
	w.providers = append(w.providers, p)
}

// AddSignHook registers a signing hook applied to every fragment this
// writer produces, for every target.
func (w *Writer) AddSignHook(h SignHook) {
	w.signHooks = append(w.signHooks, h)
}

// collectMessages runs every provider once, producing the message set
// shared across every target (create_message_alltarget).
func (w *Writer) collectMessages(addrLen int) ([]Message, error) {
	var all []Message
	for _, p := range w.providers {
		mb := NewMessageBuilder(addrLen)
		if err := p(mb); err != nil {
			return nil, fmt.Errorf("rfc5444 writer: content provider failed: %w", err)
		}
		msg, err := mb.Build()
		if err != nil {
			return nil, fmt.Errorf("rfc5444 writer: building message: %w", err)
		}
		all = append(all, msg)
	}
	return all, nil
}

// Generate builds every provider's message once and, for each target,
// fragments that shared message set to target.MaxSize, signs each
// fragment, and returns the wire bytes ready to send, keyed by target
// name. seqNum is used (and must be incremented by the caller between
// calls) for the optional packet sequence number, shared across targets
// since it identifies this writer round, not any one destination.
func (w *Writer) Generate(targets []Target, addrLen int, seqNum uint16, hasSeqNum bool) (map[string][][]byte, error) {
	all, err := w.collectMessages(addrLen)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, nil
	}

	out := make(map[string][][]byte, len(targets))
	for _, target := range targets {
		fragments, err := w.generateForTarget(all, target.MaxSize, seqNum, hasSeqNum)
		if err != nil {
			return nil, fmt.Errorf("rfc5444 writer: target %q: %w", target.Name, err)
		}
		out[target.Name] = fragments
	}
	return out, nil
}

// GenerateFor is Generate for the common single-target case (one
// interface, one MTU), returning the fragment list directly instead of a
// map.
func (w *Writer) GenerateFor(maxSize, addrLen int, seqNum uint16, hasSeqNum bool) ([][]byte, error) {
	all, err := w.collectMessages(addrLen)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, nil
	}
	return w.generateForTarget(all, maxSize, seqNum, hasSeqNum)
}

func (w *Writer) generateForTarget(all []Message, maxSize int, seqNum uint16, hasSeqNum bool) ([][]byte, error) {
	header := Packet{HasSeqNum: hasSeqNum, SeqNum: seqNum}
	groups := FragmentMessages(header, all, maxSize)

	out := make([][]byte, 0, len(groups))
	for _, msgs := range groups {
		pkt := Packet{HasSeqNum: hasSeqNum, SeqNum: seqNum, Messages: msgs}
		raw, err := pkt.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("marshaling fragment: %w", err)
		}
		for _, hook := range w.signHooks {
			tlv, err := hook(raw)
			if err != nil {
				return nil, fmt.Errorf("sign hook failed: %w", err)
			}
			pkt.TLVs = append(pkt.TLVs, tlv)
		}
		if len(w.signHooks) > 0 {
			raw, err = pkt.MarshalBinary()
			if err != nil {
				return nil, fmt.Errorf("marshaling signed fragment: %w", err)
			}
		}
		out = append(out, raw)
	}
	return out, nil
}
