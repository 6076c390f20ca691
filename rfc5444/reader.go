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
	"fmt"

	log "github.com/sirupsen/logrus"
)

// MessageConsumer is called once per decoded Message of a type it was
// registered for. Returning an error aborts processing of the remaining
// messages in the current packet.
type MessageConsumer func(pkt Packet, msg Message) error

// PacketConsumer is called once per decoded packet before its messages are
// dispatched, mirroring the original reader's packet-level TLV consumers
// (e.g. to read a packet sequence number for the duplicate set).
type PacketConsumer func(pkt Packet) error

// Reader parses raw RFC 5444 packets and dispatches decoded messages to
// consumers registered by message type, the way the original reader lets
// every subsystem (NHDP, OLSRv2, DLEP-over-RFC5444) hook only the message
// types it cares about without parsing the whole packet itself.
type Reader struct {
	packetConsumers  []PacketConsumer
	messageConsumers map[uint8][]MessageConsumer
	defaultConsumer  MessageConsumer
}

// NewReader creates an empty Reader.
func NewReader() *Reader {
	return &Reader{messageConsumers: make(map[uint8][]MessageConsumer)}
}

// AddPacketConsumer registers fn to run against every decoded packet,
// before message dispatch.
func (r *Reader) AddPacketConsumer(fn PacketConsumer) {
	r.packetConsumers = append(r.packetConsumers, fn)
}

// AddMessageConsumer registers fn for messages of the given type.
func (r *Reader) AddMessageConsumer(msgType uint8, fn MessageConsumer) {
	r.messageConsumers[msgType] = append(r.messageConsumers[msgType], fn)
}

// SetDefaultConsumer registers fn to run for any message type with no
// consumer of its own, mirroring the original reader's behavior of
// silently skipping (but still accounting for) unknown message types.
func (r *Reader) SetDefaultConsumer(fn MessageConsumer) {
	r.defaultConsumer = fn
}

// Read decodes raw and dispatches it to registered consumers. The whole
// packet is decoded first, so any malformed message or TLV makes Read
// return the decode error before any consumer runs: message boundaries
// cannot be trusted past a corrupt field.
func (r *Reader) Read(raw []byte) error {
	pkt, err := UnmarshalPacket(raw)
	if err != nil {
		return fmt.Errorf("rfc5444 reader: %w", err)
	}
	for _, pc := range r.packetConsumers {
		if err := pc(pkt); err != nil {
			return err
		}
	}
	for _, msg := range pkt.Messages {
		consumers := r.messageConsumers[msg.Type]
		if len(consumers) == 0 {
			if r.defaultConsumer != nil {
				if err := r.defaultConsumer(pkt, msg); err != nil {
					return err
				}
			} else {
				log.WithField("msg-type", msg.Type).Debug("rfc5444 reader: no consumer for message type, ignoring")
			}
			continue
		}
		for _, c := range consumers {
			if err := c(pkt, msg); err != nil {
				return err
			}
		}
	}
	return nil
}
