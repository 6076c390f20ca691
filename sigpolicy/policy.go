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

// Package sigpolicy decides which RFC 5444 messages and packets must carry
// an RFC 7182 ICV, which key signs/verifies them, and whether a missing or
// invalid signature should be treated as fatal.
package sigpolicy

import (
	"fmt"

	"github.com/facebook/oonf-go/rfc5444"
	"github.com/facebook/oonf-go/rfc7182"
)

// icvTLVType is the TLV type this daemon uses for carrying an ICV, chosen
// from the private-use range of the packet/message TLV type registries.
const icvTLVType = rfc5444.TLVType(200)

// KeyStore resolves a key id carried on the wire to the shared secret
// bytes used to verify it. Subsystems that only ever sign (never verify
// someone else's traffic) do not need one.
type KeyStore interface {
	Key(id uint8) ([]byte, bool)
}

// Rule binds a set of message types (every type if MessageTypes is empty),
// or with PacketLevel set the enclosing packet itself, to a signing
// algorithm, a key id, and whether a failure to verify should drop the
// traffic.
type Rule struct {
	Name         string
	MessageTypes map[uint8]bool
	PacketLevel  bool
	Hash         rfc7182.HashType
	Crypt        rfc7182.CryptType
	KeyID        uint8
	Required     bool // true: missing/invalid signature is rejected, not just logged
}

func (r Rule) appliesTo(msgType uint8) bool {
	if len(r.MessageTypes) == 0 {
		return true
	}
	return r.MessageTypes[msgType]
}

// Policy is an ordered set of Rules plus the key store used to resolve
// verification keys.
type Policy struct {
	rules []Rule
	keys  KeyStore
}

// New creates an empty Policy. keys may be nil if the policy only signs
// outbound traffic with keys supplied directly to SignHook or SignMessage.
func New(keys KeyStore) *Policy {
	return &Policy{keys: keys}
}

// AddRule appends r to the policy.
func (p *Policy) AddRule(r Rule) {
	p.rules = append(p.rules, r)
}

// RulesForMessage returns every rule that applies to msgType.
func (p *Policy) RulesForMessage(msgType uint8) []Rule {
	var out []Rule
	for _, r := range p.rules {
		if !r.PacketLevel && r.appliesTo(msgType) {
			out = append(out, r)
		}
	}
	return out
}

// RulesForPacket returns every packet-level rule.
func (p *Policy) RulesForPacket() []Rule {
	var out []Rule
	for _, r := range p.rules {
		if r.PacketLevel {
			out = append(out, r)
		}
	}
	return out
}

func (p *Policy) providerFor(r Rule, signingKey []byte) (*rfc7182.ICVProvider, error) {
	key := signingKey
	if key == nil && p.keys != nil {
		k, ok := p.keys.Key(r.KeyID)
		if !ok {
			return nil, fmt.Errorf("sigpolicy: no key registered for id %d (rule %q)", r.KeyID, r.Name)
		}
		key = k
	}
	return rfc7182.NewICVProvider(r.Hash, r.Crypt, key)
}

// SignHook builds an rfc5444.SignHook that signs fragment bytes under r
// using signingKey (or, if nil, the key this Policy's KeyStore has
// registered for r.KeyID), producing the wire TLV.
func (p *Policy) SignHook(r Rule, signingKey []byte) rfc5444.SignHook {
	return func(fragment []byte) (rfc5444.TLV, error) {
		provider, err := p.providerFor(r, signingKey)
		if err != nil {
			return rfc5444.TLV{}, err
		}
		icv := provider.Sign(fragment)
		value := append([]byte{r.KeyID}, icv...)
		return rfc5444.TLV{
			Type:   icvTLVType,
			HasExt: true,
			Ext:    icvExt(r.Hash, r.Crypt),
			Value:  value,
		}, nil
	}
}

// icvExt packs a hash/crypt function pair into one type-extension byte,
// the way RFC 7182's ICV TLV identifies its algorithm pairing.
func icvExt(h rfc7182.HashType, c rfc7182.CryptType) uint8 {
	return uint8(h)<<4 | uint8(c)&0x0f
}

func unpackExt(ext uint8) (rfc7182.HashType, rfc7182.CryptType) {
	return rfc7182.HashType(ext >> 4), rfc7182.CryptType(ext & 0x0f)
}

// zeroedValue returns n zero bytes, the placeholder an ICV TLV's value
// holds while the signature covering it is being computed: the signed
// region includes the TLV itself (so its length and position on the wire
// never change between signing and verifying) but not the ICV bytes it
// will eventually carry.
func zeroedValue(n int) []byte {
	return make([]byte, n)
}

// icvValueLen is the wire length of an ICV TLV's value under r: one
// key-id byte followed by the digest r.Hash produces.
func icvValueLen(r Rule) (int, error) {
	h, err := rfc7182.LookupHash(r.Hash)
	if err != nil {
		return 0, err
	}
	return 1 + h.Size(), nil
}

// withZeroedICV returns tlvs with the value of the TLV matching ext
// replaced by n zero bytes (appending a placeholder TLV first if none
// matches yet), so the same helper builds both the pre-signing and the
// verification view.
func withZeroedICV(tlvs rfc5444.TLVBlock, ext uint8, n int) rfc5444.TLVBlock {
	out := make(rfc5444.TLVBlock, len(tlvs))
	copy(out, tlvs)
	for i, t := range out {
		if t.Type == icvTLVType && t.HasExt && t.Ext == ext {
			zeroed := t
			zeroed.Value = zeroedValue(len(t.Value))
			out[i] = zeroed
			return out
		}
	}
	return append(out, rfc5444.TLV{Type: icvTLVType, HasExt: true, Ext: ext, Value: zeroedValue(n)})
}

// SignMessage computes r's ICV over msg's signed region — msg's header
// with hop-limit and hop-count zeroed, its TLVs with the ICV TLV's value
// zeroed, followed by its address blocks — and appends the resulting ICV
// TLV to msg.TLVs.
func (p *Policy) SignMessage(msg *rfc5444.Message, r Rule, signingKey []byte) error {
	provider, err := p.providerFor(r, signingKey)
	if err != nil {
		return err
	}
	ext := icvExt(r.Hash, r.Crypt)
	n, err := icvValueLen(r)
	if err != nil {
		return err
	}

	view := *msg
	view.HopLimit, view.HopCount = 0, 0
	view.TLVs = withZeroedICV(msg.TLVs, ext, n)
	raw, err := view.MarshalBinary()
	if err != nil {
		return fmt.Errorf("sigpolicy: encoding message signed region: %w", err)
	}

	icv := provider.Sign(raw)
	msg.TLVs = append(msg.TLVs, rfc5444.TLV{
		Type:   icvTLVType,
		HasExt: true,
		Ext:    ext,
		Value:  append([]byte{r.KeyID}, icv...),
	})
	return nil
}

// VerifyPacket checks every packet-level rule against pkt's ICV TLVs,
// returning an error if a Required rule's signature is missing or
// invalid. Packet-level ICVs are signed by rfc5444.Writer's sign hooks
// over the fragment as marshaled before any ICV TLV is attached (see
// SignHook), so verification here reconstructs that same TLV-free view
// rather than msg-level's zero-in-place placeholder.
func (p *Policy) VerifyPacket(pkt rfc5444.Packet) error {
	rules := p.RulesForPacket()
	if len(rules) == 0 {
		return nil
	}
	stripped := pkt
	stripped.TLVs = stripICV(pkt.TLVs)
	raw, err := stripped.MarshalBinary()
	if err != nil {
		return fmt.Errorf("sigpolicy: re-encoding packet for verification: %w", err)
	}
	for _, r := range rules {
		if err := p.verify(r, pkt.TLVs, raw); err != nil {
			return fmt.Errorf("packet signature check %q: %w", r.Name, err)
		}
	}
	return nil
}

// stripICV returns tlvs with every ICV TLV removed. Used only for
// packet-level verification, matching the writer's simplified framing
// (see VerifyPacket); message-level signing uses withZeroedICV instead.
func stripICV(tlvs rfc5444.TLVBlock) rfc5444.TLVBlock {
	var out rfc5444.TLVBlock
	for _, t := range tlvs {
		if t.Type == icvTLVType {
			continue
		}
		out = append(out, t)
	}
	return out
}

// VerifyMessage checks every message-level rule matching msg.Type against
// msg's TLVs, reconstructing each rule's signed region by zeroing its ICV
// TLV's value (and msg's hop-limit/hop-count) in place rather than
// removing the TLV, mirroring how SignMessage computed it.
func (p *Policy) VerifyMessage(msg rfc5444.Message) error {
	for _, r := range p.RulesForMessage(msg.Type) {
		ext := icvExt(r.Hash, r.Crypt)
		view := msg
		view.HopLimit, view.HopCount = 0, 0

		tlv, found := findICV(msg.TLVs, ext)
		if !found {
			if r.Required {
				return fmt.Errorf("message signature check %q: no matching signature TLV present", r.Name)
			}
			continue
		}
		view.TLVs = withZeroedICV(msg.TLVs, ext, len(tlv.Value))
		raw, err := view.MarshalBinary()
		if err != nil {
			return fmt.Errorf("sigpolicy: re-encoding message for verification: %w", err)
		}
		if err := p.verifyTLV(r, tlv, raw); err != nil {
			return fmt.Errorf("message signature check %q: %w", r.Name, err)
		}
	}
	return nil
}

func findICV(tlvs rfc5444.TLVBlock, ext uint8) (rfc5444.TLV, bool) {
	for _, t := range tlvs {
		if t.Type == icvTLVType && t.HasExt && t.Ext == ext {
			return t, true
		}
	}
	return rfc5444.TLV{}, false
}

func (p *Policy) verify(r Rule, tlvs rfc5444.TLVBlock, raw []byte) error {
	ext := icvExt(r.Hash, r.Crypt)
	tlv, found := findICV(tlvs, ext)
	if !found {
		if r.Required {
			return fmt.Errorf("no matching signature TLV present")
		}
		return nil
	}
	return p.verifyTLV(r, tlv, raw)
}

func (p *Policy) verifyTLV(r Rule, t rfc5444.TLV, raw []byte) error {
	if len(t.Value) < 1 {
		if r.Required {
			return fmt.Errorf("signature TLV has no key id")
		}
		return nil
	}
	keyID := t.Value[0]
	icv := t.Value[1:]
	var key []byte
	var ok bool
	if p.keys != nil {
		key, ok = p.keys.Key(keyID)
	}
	if !ok {
		if r.Required {
			return fmt.Errorf("no key registered for id %d", keyID)
		}
		return nil
	}
	provider, err := rfc7182.NewICVProvider(r.Hash, r.Crypt, key)
	if err != nil {
		return err
	}
	if provider.Verify(raw, icv) {
		return nil
	}
	if r.Required {
		return fmt.Errorf("invalid signature under key %d", keyID)
	}
	return nil
}
