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

import "errors"

// errNotEnoughData is returned by every Unmarshal* helper when the supplied
// buffer ends before a complete field has been read.
var errNotEnoughData = errors.New("rfc5444: not enough data")

// errTooManyAddresses is returned when an address block would need more
// than 255 addresses to encode, exceeding the 1-octet num-addr field.
var errTooManyAddresses = errors.New("rfc5444: address block holds more than 255 addresses")

// errInconsistentAddrLen is returned when addresses passed to the same
// address block are not all the same length.
var errInconsistentAddrLen = errors.New("rfc5444: addresses in one block must share a length")

// errUnsupportedAddrLen is returned for an address length rfc5444 cannot
// represent (it is encoded as length minus one in a 4-bit field of the
// message header, so only 1..16 fit).
var errUnsupportedAddrLen = errors.New("rfc5444: unsupported address length")

// errInvalidAddressHandle is returned by MessageBuilder.AddAddrTLV when
// given a handle AddAddress never issued.
var errInvalidAddressHandle = errors.New("rfc5444: invalid address handle")
