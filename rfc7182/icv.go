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

package rfc7182

import "fmt"

// ICVProvider combines a hash function and a crypto function into one
// Integrity Check Value computation, the pairing an RFC 5444 ICV TLV's
// type-extension field identifies.
type ICVProvider struct {
	Hash  *HashProvider
	Crypt CryptProvider
	Key   []byte
}

// NewICVProvider builds an ICVProvider for (hashCode, cryptCode) signing
// with key.
func NewICVProvider(hashCode HashType, cryptCode CryptType, key []byte) (*ICVProvider, error) {
	h, err := LookupHash(hashCode)
	if err != nil {
		return nil, err
	}
	var c CryptProvider
	switch cryptCode {
	case CryptIdentity:
		c = IdentityCryptProvider
	case CryptHMAC:
		c, err = NewHMACCryptProvider(h)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("rfc7182: unknown crypt function code %d", cryptCode)
	}
	return &ICVProvider{Hash: h, Crypt: c, Key: key}, nil
}

// Sign computes the ICV value over data.
func (p *ICVProvider) Sign(data []byte) []byte {
	digest := p.Hash.Compute(data)
	return p.Crypt.Sign(p.Key, digest)
}

// Verify reports whether icv is data's correct ICV under this provider.
func (p *ICVProvider) Verify(data, icv []byte) bool {
	digest := p.Hash.Compute(data)
	return p.Crypt.Verify(p.Key, digest, icv)
}
