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
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/fatih/color"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/facebook/oonf-go/dscp"
	"github.com/facebook/oonf-go/monoclock"
	"github.com/facebook/oonf-go/timerwheel"
)

// destKey looks a neighbor up by (MAC address, link identifier), the
// addressing pair the LID extension establishes once negotiated.
type destKey struct {
	mac string
	lid string
}

// Interface owns one UDP discovery socket for one layer-2 interface and
// every TCP session reachable through it. A router side periodically
// sends Peer-Discovery; a Peer-Offer it receives is only logged, and its
// TCP session is opened by calling DialSession. A radio side replies to
// Peer-Discovery with Peer-Offer and accepts TCP sessions through
// AcceptSessions.
type Interface struct {
	name   string
	role   Role
	cfg    *InterfaceConfig
	clock  *monoclock.Clock
	timers *timerwheel.Engine

	udpConn *net.UDPConn

	mu       sync.Mutex
	sessions map[string]*Session
	byDest   map[destKey]*Session

	discoveryTimer *timerwheel.Timer
	stats          Stats
}

// Stats is the metrics surface an Interface and the Sessions it creates
// observe through. *metrics.Registry implements it.
type Stats interface {
	Recorder
	SetDLEPSessionsActive(n int)
}

type noopStats struct{}

func (noopStats) ObserveDLEPSignal(string, string) {}
func (noopStats) SetDLEPSessionsActive(int)        {}

// NewInterface creates an Interface bound to the discovery socket named
// in cfg; it does not start discovery or accept traffic until Run is
// called.
func NewInterface(name string, role Role, cfg *InterfaceConfig, clock *monoclock.Clock, timers *timerwheel.Engine) (*Interface, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Interface{
		name:     name,
		role:     role,
		cfg:      cfg,
		clock:    clock,
		timers:   timers,
		sessions: make(map[string]*Session),
		byDest:   make(map[destKey]*Session),
		stats:    noopStats{},
	}, nil
}

// SetStats wires a metrics recorder into the interface and every session
// it subsequently creates, replacing the default no-op.
func (ifc *Interface) SetStats(r Stats) {
	ifc.stats = r
}

func (ifc *Interface) logSent(t SignalType, msg string, v ...interface{}) {
	log.Debugf(color.GreenString("[dlep %s] %s -> %s (%s)", ifc.name, ifc.role, t, fmt.Sprintf(msg, v...)))
}

func (ifc *Interface) logReceive(t SignalType, msg string, v ...interface{}) {
	log.Debugf(color.BlueString("[dlep %s] %s <- %s (%s)", ifc.name, ifc.role, t, fmt.Sprintf(msg, v...)))
}

// discoveryAddr resolves the configured multicast discovery address.
func (ifc *Interface) discoveryAddr() (*net.UDPAddr, error) {
	addr := ifc.cfg.DiscoveryMCV4
	if addr == "" {
		addr = ifc.cfg.DiscoveryMCV6
	}
	return net.ResolveUDPAddr("udp", net.JoinHostPort(addr, itoa(ifc.cfg.DiscoveryPort)))
}

func itoa(i int) string { return fmt.Sprintf("%d", i) }

// bindDiscovery opens and DSCP-marks the interface's UDP discovery
// socket.
func (ifc *Interface) bindDiscovery() error {
	bind := ifc.cfg.DiscoveryBindTo
	if bind == "" {
		bind = "0.0.0.0"
	}
	laddr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(bind, itoa(ifc.cfg.DiscoveryPort)))
	if err != nil {
		return err
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return err
	}
	if f, err := conn.File(); err == nil {
		_ = dscp.Enable(int(f.Fd()), laddr.IP, 0)
		_ = f.Close()
	}
	ifc.udpConn = conn
	return nil
}

// activeSessionCount reports how many TCP sessions are not yet
// Terminated, the count UDPMode.shouldListen gates on.
func (ifc *Interface) activeSessionCount() int {
	ifc.mu.Lock()
	defer ifc.mu.Unlock()
	n := 0
	for _, s := range ifc.sessions {
		if s.State() != Terminated {
			n++
		}
	}
	return n
}

// mode parses the interface's configured udp_mode, which Validate has
// already checked parses cleanly.
func (ifc *Interface) mode() UDPMode {
	m, _ := ParseUDPMode(ifc.cfg.UDPModeName)
	return m
}

func (ifc *Interface) addSession(s *Session) {
	ifc.mu.Lock()
	defer ifc.mu.Unlock()
	ifc.sessions[s.peer] = s
	ifc.stats.SetDLEPSessionsActive(len(ifc.sessions))
}

func (ifc *Interface) removeSession(s *Session, reason string) {
	ifc.mu.Lock()
	defer ifc.mu.Unlock()
	delete(ifc.sessions, s.peer)
	for k, v := range ifc.byDest {
		if v == s {
			delete(ifc.byDest, k)
		}
	}
	ifc.stats.SetDLEPSessionsActive(len(ifc.sessions))
	log.Debugf("dlep %s: session %s ended: %s", ifc.name, s.peer, reason)
}

// BindDestination records that dest is now reachable through s, the
// (MAC, LID) lookup key the session-level Destination-Up signal
// establishes.
func (ifc *Interface) BindDestination(mac, lid string, s *Session) {
	ifc.mu.Lock()
	defer ifc.mu.Unlock()
	ifc.byDest[destKey{mac: mac, lid: lid}] = s
}

// SessionFor returns the session carrying traffic to (mac, lid), if any.
func (ifc *Interface) SessionFor(mac, lid string) (*Session, bool) {
	ifc.mu.Lock()
	defer ifc.mu.Unlock()
	s, ok := ifc.byDest[destKey{mac: mac, lid: lid}]
	return s, ok
}

// Run starts discovery (router: periodic Peer-Discovery; radio:
// listen-and-reply subject to UDPMode) and blocks on the UDP receive
// loop, run under an errgroup, until ctx is cancelled. Session read
// loops are not part of that group: DialSession and AcceptSessions start
// each one in its own goroutine.
func (ifc *Interface) Run(ctx context.Context) error {
	if err := ifc.bindDiscovery(); err != nil {
		return fmt.Errorf("dlep: binding discovery socket on %s: %w", ifc.name, err)
	}
	defer ifc.udpConn.Close()

	eg, ctx := errgroup.WithContext(ctx)

	if ifc.role == Router {
		ifc.discoveryTimer = ifc.timers.Start("dlep-discovery", ifc.cfg.DiscoveryInterval, ifc.cfg.DiscoveryInterval, 10, func() {
			if err := ifc.sendPeerDiscovery(); err != nil {
				log.Debugf("dlep %s: sending peer-discovery: %v", ifc.name, err)
			}
		})
	}

	eg.Go(func() error {
		return ifc.recvDiscoveryLoop(ctx)
	})

	return eg.Wait()
}

// Close stops the interface's discovery timer and every active session.
func (ifc *Interface) Close() {
	if ifc.discoveryTimer != nil {
		ifc.timers.Stop(ifc.discoveryTimer)
	}
	ifc.mu.Lock()
	sessions := make([]*Session, 0, len(ifc.sessions))
	for _, s := range ifc.sessions {
		sessions = append(sessions, s)
	}
	ifc.mu.Unlock()
	for _, s := range sessions {
		s.terminate("interface shutting down")
	}
}

func (ifc *Interface) sendPeerDiscovery() error {
	addr, err := ifc.discoveryAddr()
	if err != nil {
		return err
	}
	sig := Signal{Type: SignalPeerDiscovery, Items: []DataItem{
		{Type: ItemPeerType, Value: []byte(ifc.cfg.PeerType)},
	}}
	raw, err := sig.MarshalBinary()
	if err != nil {
		return err
	}
	ifc.logSent(SignalPeerDiscovery, "peer_type=%s", ifc.cfg.PeerType)
	_, err = ifc.udpConn.WriteTo(WrapDiscovery(raw), addr)
	return err
}

func (ifc *Interface) sendPeerOffer(to *net.UDPAddr) error {
	sig := Signal{Type: SignalPeerOffer, Items: []DataItem{
		{Type: ItemPeerType, Value: []byte(ifc.cfg.PeerType)},
	}}
	raw, err := sig.MarshalBinary()
	if err != nil {
		return err
	}
	ifc.logSent(SignalPeerOffer, "to=%s", to)
	_, err = ifc.udpConn.WriteTo(WrapDiscovery(raw), to)
	return err
}

// recvDiscoveryLoop reads UDP discovery datagrams, dropping any whose
// source matches the local socket (loopback suppression) and any the
// current UDPMode forbids processing.
func (ifc *Interface) recvDiscoveryLoop(ctx context.Context) error {
	buf := make([]byte, 2048)
	local := ifc.udpConn.LocalAddr().String()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		n, from, err := ifc.udpConn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		if from.String() == local {
			continue
		}
		if !ifc.mode().shouldListen(ifc.activeSessionCount()) {
			continue
		}
		body, err := UnwrapDiscovery(buf[:n])
		if err != nil {
			continue
		}
		sig, _, err := UnmarshalSignal(body)
		if err != nil {
			continue
		}
		ifc.logReceive(sig.Type, "from=%s", from)
		switch sig.Type {
		case SignalPeerDiscovery:
			if ifc.role == Radio {
				_ = ifc.sendPeerOffer(from)
			}
		case SignalPeerOffer:
			if ifc.role == Router {
				log.Debugf("dlep %s: peer offer from %s, session setup is caller-driven", ifc.name, from)
			}
		}
	}
}
