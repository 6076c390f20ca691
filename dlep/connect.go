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

	log "github.com/sirupsen/logrus"

	"github.com/facebook/oonf-go/dscp"
)

// DialSession opens the TCP session a Router side establishes after
// receiving a Peer-Offer, sends Session-Init, and starts its read loop
// in the background.
func (ifc *Interface) DialSession(ctx context.Context, addr string) (*Session, error) {
	raddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.DialTCP("tcp", nil, raddr)
	if err != nil {
		return nil, fmt.Errorf("dlep: connecting session to %s: %w", addr, err)
	}
	if f, err := conn.File(); err == nil {
		_ = dscp.Enable(int(f.Fd()), raddr.IP, 0)
		_ = f.Close()
	}

	s := NewSession(Router, conn, addr, ifc.clock, ifc.timers, ifc.removeSession)
	s.SetStats(ifc.stats)
	ifc.addSession(s)
	if err := s.InitRouter(ifc.cfg.PeerType, ifc.cfg.HeartbeatInterval, nil); err != nil {
		_ = conn.Close()
		return nil, err
	}
	go ifc.serveSession(ctx, s, conn)
	return s, nil
}

// AcceptSessions listens on the radio side's session port, accepting
// TCP connections and starting a Session (restricted to Session-Init)
// for each.
func (ifc *Interface) AcceptSessions(ctx context.Context) error {
	bind := ifc.cfg.SessionBindTo
	if bind == "" {
		bind = "0.0.0.0"
	}
	laddr, err := net.ResolveTCPAddr("tcp", net.JoinHostPort(bind, itoa(ifc.cfg.SessionPort)))
	if err != nil {
		return err
	}
	ln, err := net.ListenTCP("tcp", laddr)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()
	for {
		conn, err := ln.AcceptTCP()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		s := NewSession(Radio, conn, conn.RemoteAddr().String(), ifc.clock, ifc.timers, ifc.removeSession)
		s.extensions = nil
		s.lidLength = ifc.cfg.LIDLength
		s.SetStats(ifc.stats)
		ifc.addSession(s)
		go ifc.serveSession(ctx, s, conn)
	}
}

// serveSession reads from conn until it errors or ctx is cancelled,
// feeding every chunk through the session's signal decoder.
func (ifc *Interface) serveSession(ctx context.Context, s *Session, conn net.Conn) {
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			if s.State() != Terminated {
				log.Debugf("dlep %s: session %s read error: %v", ifc.name, s.peer, err)
				ifc.removeSession(s, err.Error())
			}
			return
		}
		if err := s.Feed(buf[:n]); err != nil {
			log.Debugf("dlep %s: session %s: %v", ifc.name, s.peer, err)
			return
		}
		if ctx.Err() != nil {
			return
		}
	}
}
