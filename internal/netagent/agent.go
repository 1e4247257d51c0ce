// SPDX-License-Identifier: BSD-3-Clause

package netagent

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/mtce-project/mtce-agent/pkg/wireproto"
)

// ackKey correlates a pending command-response wait to the network, remote
// address and command it was issued for.
type ackKey struct {
	network Network
	addr    string
	cmd     wireproto.Cmd
}

// Agent owns one UDP socket per provisioned physical network and
// implements the cmdRsp ACK sub-protocol of §4.2.
type Agent struct {
	log     *slog.Logger
	handler InboundHandler

	mu    sync.Mutex
	conns map[Network]net.PacketConn
	acks  map[ackKey]chan wireproto.Frame

	closed bool
}

// New creates an Agent with no sockets bound yet; call Listen per network.
func New(log *slog.Logger, handler InboundHandler) *Agent {
	if log == nil {
		log = slog.Default()
	}
	return &Agent{
		log:     log,
		handler: handler,
		conns:   make(map[Network]net.PacketConn),
		acks:    make(map[ackKey]chan wireproto.Frame),
	}
}

// Listen binds a UDP socket for network at addr (e.g. "0.0.0.0:2112") and
// starts its inbound read loop. Call once per provisioned network.
func (a *Agent) Listen(ctx context.Context, network Network, addr string) error {
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return fmt.Errorf("netagent: listen %s on %s: %w", network, addr, err)
	}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		conn.Close()
		return ErrAgentClosed
	}
	a.conns[network] = conn
	a.mu.Unlock()

	go a.readLoop(ctx, network, conn)
	return nil
}

func (a *Agent) readLoop(ctx context.Context, network Network, conn net.PacketConn) {
	buf := make([]byte, wireproto.FrameLen)
	for {
		n, remote, err := conn.ReadFrom(buf)
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			a.log.Warn("netagent: read error", "network", network, "error", err)
			return
		}
		if n != wireproto.FrameLen {
			a.log.Warn("netagent: short datagram dropped", "network", network, "len", n)
			continue
		}

		frame, err := wireproto.Decode(buf[:n])
		if err != nil {
			a.log.Warn("netagent: decode error", "network", network, "error", err)
			continue
		}

		a.dispatch(network, remote.String(), frame)
	}
}

func (a *Agent) dispatch(network Network, remoteAddr string, frame wireproto.Frame) {
	switch frame.HeaderString {
	case wireproto.ClassMtcAlive:
		if frame.IsJSON() {
			payload, err := wireproto.DecodeMtcAlive(frame)
			if err != nil {
				a.log.Warn("netagent: mtcAlive payload decode error", "error", err)
				return
			}
			a.handler.HandleMtcAlive(network, remoteAddr, payload)
		}
	case wireproto.ClassCommandResponse:
		if a.claimAck(network, remoteAddr, frame) {
			return
		}
		a.handler.HandleUnmatchedResponse(network, remoteAddr, frame)
	case wireproto.ClassWorkerMessage, wireproto.ClassHeartbeatEvent:
		a.handler.HandleWorkerMessage(network, remoteAddr, frame)
	default:
		a.log.Debug("netagent: unhandled frame class", "class", frame.HeaderString)
	}
}

func (a *Agent) claimAck(network Network, remoteAddr string, frame wireproto.Frame) bool {
	key := ackKey{network: network, addr: remoteAddr, cmd: frame.Cmd}

	a.mu.Lock()
	ch, ok := a.acks[key]
	if ok {
		delete(a.acks, key)
	}
	a.mu.Unlock()

	if !ok {
		return false
	}
	ch <- frame
	return true
}

// Send writes frame to addr on network without waiting for a response, the
// fire-and-forget path (§4.2's reboot and request-mtcAlive).
func (a *Agent) Send(network Network, addr string, frame wireproto.Frame) error {
	a.mu.Lock()
	conn, ok := a.conns[network]
	a.mu.Unlock()
	if !ok {
		return ErrUnknownNetwork
	}

	raw, err := wireproto.Encode(frame)
	if err != nil {
		return err
	}

	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return fmt.Errorf("netagent: resolve %s: %w", addr, err)
	}

	_, err = conn.WriteTo(raw, udpAddr)
	return err
}

// SendAllNetworks sends frame to the address registered for each network in
// addrs, used when a command must go out on every provisioned network.
func (a *Agent) SendAllNetworks(addrs map[Network]string, frame wireproto.Frame) map[Network]error {
	results := make(map[Network]error, len(addrs))
	for network, addr := range addrs {
		results[network] = a.Send(network, addr, frame)
	}
	return results
}

// SendWithAck sends frame and blocks until a command-response frame with a
// matching Cmd arrives from addr on network, or ctx is done. The caller is
// expected to derive ctx from a fixed ACK timeout ("a few
// seconds" constant), not an open-ended context.
func (a *Agent) SendWithAck(ctx context.Context, network Network, addr string, frame wireproto.Frame) (wireproto.Frame, error) {
	key := ackKey{network: network, addr: addr, cmd: frame.Cmd}
	ch := make(chan wireproto.Frame, 1)

	a.mu.Lock()
	a.acks[key] = ch
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		delete(a.acks, key)
		a.mu.Unlock()
	}()

	if err := a.Send(network, addr, frame); err != nil {
		return wireproto.Frame{}, err
	}

	select {
	case rsp := <-ch:
		return rsp, nil
	case <-ctx.Done():
		return wireproto.Frame{}, ErrNoAckReceived
	}
}

// Close releases every bound socket.
func (a *Agent) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.closed = true
	var firstErr error
	for network, conn := range a.conns {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("netagent: closing %s: %w", network, err)
		}
	}
	return firstErr
}
