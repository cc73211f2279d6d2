// Package udp implements transport.Listener on top of KCP, a reliable
// stream protocol carried over UDP datagrams.
//
// kcp-go holds up to 128 new sessions for AcceptKCP. Packets of further new
// sessions are dropped until Next takes one, and the peer retransmits.
package udp

import (
	"fmt"
	"net"
	"sync"

	"dominicbreuker/netserve/pkg/config"
	"dominicbreuker/netserve/pkg/transport"

	kcp "github.com/xtaci/kcp-go/v5"
)

// Listener accepts KCP sessions. Each session is a net.Conn in stream mode.
type Listener struct {
	pc net.PacketConn
	kl *kcp.Listener

	closeOnce sync.Once
	closeErr  error
}

var _ transport.Listener = (*Listener)(nil)

// Bind binds a UDP socket to addr and serves KCP on it. A KCP session
// becomes visible to Next when its first packet arrives.
// The deps parameter is optional and can be nil to use default implementations.
func Bind(addr string, deps *config.Dependencies) (*Listener, error) {
	if _, err := net.ResolveUDPAddr("udp", addr); err != nil {
		return nil, &transport.BindError{Network: "udp", Addr: addr, Err: fmt.Errorf("net.ResolveUDPAddr(udp, %s): %w", addr, err)}
	}

	pc, err := config.GetPacketListenerFunc(deps)("udp", addr)
	if err != nil {
		return nil, &transport.BindError{Network: "udp", Addr: addr, Err: err}
	}

	// no block cipher and no forward error correction
	kl, err := kcp.ServeConn(nil, 0, 0, pc)
	if err != nil {
		_ = pc.Close()
		return nil, &transport.BindError{Network: "udp", Addr: addr, Err: fmt.Errorf("kcp.ServeConn(): %w", err)}
	}

	return &Listener{pc: pc, kl: kl}, nil
}

// Next waits for the next KCP session.
func (l *Listener) Next() (net.Conn, error) {
	sess, err := l.kl.AcceptKCP()
	if err != nil {
		return nil, transport.Classify(fmt.Errorf("AcceptKCP(): %w", err))
	}

	sess.SetNoDelay(1, 10, 2, 1)
	sess.SetStreamMode(true)
	sess.SetWindowSize(1024, 1024)
	sess.SetWriteDelay(false)

	return sess, nil
}

// Addr returns the address of the UDP socket.
func (l *Listener) Addr() net.Addr {
	return l.pc.LocalAddr()
}

// Close stops the KCP listener and closes the UDP socket, which KCP
// does not own.
func (l *Listener) Close() error {
	l.closeOnce.Do(func() {
		l.closeErr = l.kl.Close()
		if err := l.pc.Close(); err != nil && l.closeErr == nil {
			l.closeErr = err
		}
	})
	return l.closeErr
}
