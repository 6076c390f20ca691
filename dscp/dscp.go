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

// Package dscp marks outgoing packets on a socket with a DiffServ code
// point, so DLEP session and OLSRv2/NHDP control traffic can be
// prioritized ahead of best-effort traffic on a congested link.
package dscp

import (
	"net"

	"golang.org/x/sys/unix"
)

// Enable sets fd's outgoing DSCP marking to dscp (0..63), choosing the
// IPv4 TOS or IPv6 traffic class socket option based on localAddr's
// family.
func Enable(fd int, localAddr net.IP, dscp int) error {
	tos := dscp << 2
	if localAddr.To4() == nil {
		return unix.SetsockoptInt(fd, unix.IPPROTO_IPV6, unix.IPV6_TCLASS, tos)
	}
	return unix.SetsockoptInt(fd, unix.IPPROTO_IP, unix.IP_TOS, tos)
}
