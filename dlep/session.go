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

package dlep

import (
	"errors"
	"fmt"
	"time"

	"github.com/fatih/color"
	log "github.com/sirupsen/logrus"

	"github.com/facebook/oonf-go/monoclock"
	"github.com/facebook/oonf-go/timerwheel"
)

// State is one of a Session's four DLEP states.
type State int

// Session states, RFC 8175 section 7.2.
const (
	NotConnected State = iota
	Initialisation
	Initialised
	Terminated
)

func (s State) String() string {
	switch s {
	case NotConnected:
		return "not-connected"
	case Initialisation:
		return "initialisation"
	case Initialised:
		return "initialised"
	case Terminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Role distinguishes the two sides of a DLEP session.
type Role int

// Roles.
const (
	Router Role = iota
	Radio
)

// maxLIDLength is the largest link-identifier length this implementation
// accepts; a peer requesting more is refused with a Terminated session.
// The configuration surface allows 0..254 (RFC 8175's one-byte length
// field can encode up to 255, but 255 itself is reserved).
const maxLIDLength = 254

// defaultLIDLength is offered when the local configuration does not
// override it.
const defaultLIDLength = 4

// EndSessionFunc is invoked once when a Session transitions to
// Terminated, so the owning Interface can drop it from its session set.
type EndSessionFunc func(s *Session, reason string)

// Recorder observes signals sent and received. *metrics.Registry
// implements it; Session defaults to a no-op so metrics wiring stays
// optional.
type Recorder interface {
	ObserveDLEPSignal(direction, signal string)
}

type noopRecorder struct{}

func (noopRecorder) ObserveDLEPSignal(string, string) {}

// Conn is the minimal stream-socket behavior a Session drives; satisfied
// by a TCP connection, substitutable with a fake in tests.
type Conn interface {
	Read(b []byte) (int, error)
	Write(b []byte) (int, error)
	Close() error
}

// Session drives one DLEP TCP session's state machine: exactly one
// signal type is acceptable in NotConnected/Initialisation
// (restrictSignal), heartbeats are exchanged once Initialised, and a
// missed heartbeat or a Session-Termination signal ends the session.
type Session struct {
	role Role
	conn Conn
	peer string

	clock  *monoclock.Clock
	timers *timerwheel.Engine

	state          State
	restrictSignal SignalType

	peerType            string
	heartbeatInterval   time.Duration
	negotiatedHeartbeat time.Duration
	extensions          []uint16
	lidLength           int

	lastRX monoclock.Millis
	lastTX monoclock.Millis

	heartbeatTimer *timerwheel.Timer
	onEnd          EndSessionFunc
	stats          Recorder

	recvBuf []byte
}

// NewSession creates a Session for conn in Initialisation, awaiting the
// signal that each role expects first: a Router (which sends
// Session-Init through InitRouter) restricts to Session-Init-Ack; a
// Radio has just accepted a connection and restricts to Session-Init.
func NewSession(role Role, conn Conn, peer string, clock *monoclock.Clock, timers *timerwheel.Engine, onEnd EndSessionFunc) *Session {
	s := &Session{
		role:      role,
		conn:      conn,
		peer:      peer,
		clock:     clock,
		timers:    timers,
		state:     NotConnected,
		lidLength: defaultLIDLength,
		onEnd:     onEnd,
		stats:     noopRecorder{},
	}
	if role == Router {
		s.state = Initialisation
		s.restrictSignal = SignalSessionInitAck
	} else {
		s.state = Initialisation
		s.restrictSignal = SignalSessionInit
	}
	s.lastRX = clock.Now()
	s.lastTX = clock.Now()
	return s
}

func (s *Session) logSent(t SignalType, msg string, v ...interface{}) {
	log.Debugf(color.GreenString("[dlep %s] session -> %s (%s)", s.peer, t, fmt.Sprintf(msg, v...)))
}

func (s *Session) logReceive(t SignalType, msg string, v ...interface{}) {
	log.Debugf(color.BlueString("[dlep %s] peer -> %s (%s)", s.peer, t, fmt.Sprintf(msg, v...)))
}

// State returns the session's current state.
func (s *Session) State() State { return s.state }

// SetStats wires a metrics recorder into the session, replacing the
// default no-op.
func (s *Session) SetStats(r Recorder) {
	s.stats = r
}

// send marshals and writes one signal, tracking lastTX for heartbeat
// idle detection; msg and v describe the signal in the debug log.
func (s *Session) send(sig Signal, msg string, v ...interface{}) error {
	raw, err := sig.MarshalBinary()
	if err != nil {
		return err
	}
	if _, err := s.conn.Write(raw); err != nil {
		return err
	}
	s.lastTX = s.clock.Now()
	s.logSent(sig.Type, msg, v...)
	s.stats.ObserveDLEPSignal("sent", sig.Type.String())
	return nil
}

// terminate sends Session-Termination (if the peer can still receive
// it), closes the connection, and invokes onEnd exactly once.
func (s *Session) terminate(reason string) {
	if s.state == Terminated {
		return
	}
	s.state = Terminated
	if s.heartbeatTimer != nil {
		s.timers.Stop(s.heartbeatTimer)
	}
	// The farewell Session-Termination is best-effort: a peer that is
	// already gone may never read it, and shutdown must not block on
	// that.
	go func() {
		_ = s.send(Signal{Type: SignalSessionTermination}, "%s", reason)
		_ = s.conn.Close()
	}()
	if s.onEnd != nil {
		s.onEnd(s, reason)
	}
}

// startHeartbeat begins the Initialised-state heartbeat timer, sending
// a Heartbeat whenever the connection has been idle for the negotiated
// interval and terminating the session after two missed intervals.
func (s *Session) startHeartbeat() {
	interval := s.negotiatedHeartbeat
	if interval <= 0 {
		return
	}
	intervalMillis := monoclock.Millis(interval / time.Millisecond)
	s.heartbeatTimer = s.timers.Start("dlep-heartbeat", interval, interval, 0, func() {
		if s.state != Initialised {
			return
		}
		if s.clock.Since(s.lastRX) > 2*intervalMillis {
			s.terminate("heartbeat lost")
			return
		}
		if s.clock.Since(s.lastTX) >= intervalMillis {
			_ = s.send(Signal{Type: SignalHeartbeat}, "idle %s", interval)
		}
	})
}

// InitRouter sends the Router side's Session-Init, the first message on
// a freshly connected TCP session.
func (s *Session) InitRouter(peerType string, heartbeat time.Duration, extensions []uint16) error {
	s.peerType = peerType
	s.heartbeatInterval = heartbeat
	items := []DataItem{
		{Type: ItemPeerType, Value: []byte(peerType)},
		{Type: ItemHeartbeatInterval, Value: beUint16(uint16(heartbeat / time.Second))},
	}
	if len(extensions) > 0 {
		items = append(items, DataItem{Type: ItemExtensionsSupported, Value: encodeUint16List(extensions)})
	}
	return s.send(Signal{Type: SignalSessionInit, Items: items}, "peer_type=%s heartbeat=%s", peerType, heartbeat)
}

// HandleSignal dispatches one received signal through the state
// machine, enforcing restrictSignal and the transition table.
func (s *Session) HandleSignal(sig Signal) error {
	s.lastRX = s.clock.Now()
	s.logReceive(sig.Type, "state=%s", s.state)
	s.stats.ObserveDLEPSignal("received", sig.Type.String())

	if s.state == Terminated {
		return nil
	}

	if s.restrictSignal != 0 && sig.Type != s.restrictSignal && sig.Type != SignalSessionTermination {
		s.terminate("unexpected signal")
		return fmt.Errorf("dlep: unexpected signal %s in state %s (expected %s)", sig.Type, s.state, s.restrictSignal)
	}

	switch sig.Type {
	case SignalSessionInit:
		return s.handleSessionInit(sig)
	case SignalSessionInitAck:
		return s.handleSessionInitAck(sig)
	case SignalHeartbeat:
		return nil // lastRX already bumped above
	case SignalSessionTermination:
		_ = s.send(Signal{Type: SignalSessionTerminationAck}, "")
		s.state = Terminated
		if s.heartbeatTimer != nil {
			s.timers.Stop(s.heartbeatTimer)
		}
		_ = s.conn.Close()
		if s.onEnd != nil {
			s.onEnd(s, "peer requested termination")
		}
		return nil
	case SignalSessionTerminationAck:
		s.state = Terminated
		_ = s.conn.Close()
		if s.onEnd != nil {
			s.onEnd(s, "termination acknowledged")
		}
		return nil
	default:
		return nil
	}
}

// handleSessionInit runs on the Radio side: reply with Session-Init-Ack
// carrying the negotiated extension list and move to Initialised.
func (s *Session) handleSessionInit(sig Signal) error {
	if it, ok := sig.Item(ItemPeerType); ok {
		s.peerType = string(it.Value)
	}
	negotiated := s.heartbeatInterval
	if it, ok := sig.Item(ItemHeartbeatInterval); ok && len(it.Value) >= 2 {
		peerInterval := time.Duration(beToUint16(it.Value)) * time.Second
		if negotiated == 0 || peerInterval < negotiated {
			negotiated = peerInterval
		}
	}
	if negotiated <= 0 {
		negotiated = time.Second
	}
	s.negotiatedHeartbeat = negotiated

	if it, ok := sig.Item(ItemLinkIdentifierLength); ok && len(it.Value) >= 1 {
		requested := int(it.Value[0])
		if requested > maxLIDLength {
			s.terminate("request denied")
			return fmt.Errorf("dlep: requested lid length %d exceeds maximum %d", requested, maxLIDLength)
		}
		s.lidLength = requested
	}

	ackItems := []DataItem{
		{Type: ItemStatus, Value: []byte{0}},
		{Type: ItemHeartbeatInterval, Value: beUint16(uint16(negotiated / time.Second))},
	}
	if len(s.extensions) > 0 {
		ackItems = append(ackItems, DataItem{Type: ItemExtensionsSupported, Value: encodeUint16List(s.extensions)})
	}
	if err := s.send(Signal{Type: SignalSessionInitAck, Items: ackItems}, "heartbeat=%s", negotiated); err != nil {
		return err
	}
	s.state = Initialised
	s.restrictSignal = 0
	s.startHeartbeat()
	return nil
}

// handleSessionInitAck runs on the Router side: record the negotiated
// extension list and move to Initialised.
func (s *Session) handleSessionInitAck(sig Signal) error {
	negotiated := s.heartbeatInterval
	if it, ok := sig.Item(ItemHeartbeatInterval); ok && len(it.Value) >= 2 {
		negotiated = time.Duration(beToUint16(it.Value)) * time.Second
	}
	if negotiated <= 0 {
		negotiated = time.Second
	}
	s.negotiatedHeartbeat = negotiated
	if it, ok := sig.Item(ItemExtensionsSupported); ok {
		s.extensions = decodeUint16List(it.Value)
	}
	s.state = Initialised
	s.restrictSignal = 0
	s.startHeartbeat()
	return nil
}

// Feed appends newly received bytes and decodes as many complete
// signals as are available, dispatching each through HandleSignal.
func (s *Session) Feed(b []byte) error {
	s.recvBuf = append(s.recvBuf, b...)
	for {
		sig, n, err := UnmarshalSignal(s.recvBuf)
		if err != nil {
			if errors.Is(err, errNotEnoughData) {
				return nil
			}
			return err
		}
		s.recvBuf = s.recvBuf[n:]
		if err := s.HandleSignal(sig); err != nil {
			return err
		}
	}
}

func beUint16(v uint16) []byte {
	return []byte{byte(v >> 8), byte(v)}
}

func beToUint16(b []byte) uint16 {
	return uint16(b[0])<<8 | uint16(b[1])
}

func encodeUint16List(vs []uint16) []byte {
	out := make([]byte, 2*len(vs))
	for i, v := range vs {
		out[2*i] = byte(v >> 8)
		out[2*i+1] = byte(v)
	}
	return out
}

func decodeUint16List(b []byte) []uint16 {
	var out []uint16
	for len(b) >= 2 {
		out = append(out, beToUint16(b))
		b = b[2:]
	}
	return out
}
