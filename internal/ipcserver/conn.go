// SPDX-License-Identifier: BSD-3-Clause

package ipcserver

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

// ErrNotReady is returned when the embedded server hasn't become ready for
// connections within the caller's patience.
var ErrNotReady = errors.New("ipcserver: server not ready for connections")

// ConnProvider implements nats.InProcessConnProvider against an embedded
// *server.Server, the same adapter shape u-bmc's service/ipc/conn.go uses.
type ConnProvider struct {
	server *server.Server
}

// InProcessConn returns a direct in-process connection to the embedded
// server, waiting briefly for it to finish starting if needed.
func (p *ConnProvider) InProcessConn() (net.Conn, error) {
	if p.server == nil {
		return nil, ErrNotReady
	}
	if !p.server.ReadyForConnections(10 * time.Second) {
		return nil, ErrNotReady
	}
	conn, err := p.server.InProcessConn()
	if err != nil {
		return nil, fmt.Errorf("ipcserver: in-process conn: %w", err)
	}
	return conn, nil
}
