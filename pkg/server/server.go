// Package server drives the accept loop: it pulls connections from a
// transport.Listener and hands each one to an executor.Executor as an
// independent task.
//
// Run is the loop itself and works with any listener and executor. Server
// builds both from a config.Config and is what the CLI uses.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"dominicbreuker/netserve/pkg/config"
	"dominicbreuker/netserve/pkg/executor"
	"dominicbreuker/netserve/pkg/format"
	"dominicbreuker/netserve/pkg/log"
	"dominicbreuker/netserve/pkg/semaphore"
	"dominicbreuker/netserve/pkg/transport"
	"dominicbreuker/netserve/pkg/transport/tcp"
	"dominicbreuker/netserve/pkg/transport/udp"
	"dominicbreuker/netserve/pkg/transport/ws"
)

// DrainTimeout bounds how long Close waits for running handlers.
var DrainTimeout = 5 * time.Second

// Server binds a listener according to its config and serves it.
type Server struct {
	ctx    context.Context
	cfg    *config.Config
	handle transport.Handler

	exec executor.Executor
	opts *Options

	mu      sync.Mutex
	l       transport.Listener
	traffic *log.TrafficLog
}

// New validates cfg and prepares the executor. Nothing is bound yet.
func New(ctx context.Context, cfg *config.Config, handler transport.Handler) (*Server, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}

	s := &Server{
		ctx:    ctx,
		cfg:    cfg,
		handle: handler,
		opts: &Options{
			Logger:           cfg.Logger,
			EscalateCapacity: cfg.EscalateCapacity,
			SleepOnErrors:    cfg.SleepOnErrors,
		},
	}

	switch cfg.Executor {
	case config.ExecPool:
		pool, err := executor.NewPool(cfg.Workers, cfg.Logger)
		if err != nil {
			return nil, err
		}
		s.exec = pool
	default:
		s.exec = executor.NewGoroutine()
	}

	if cfg.MaxConns > 0 {
		switch cfg.Admission {
		case config.AdmitReject:
			s.exec = executor.NewLimited(s.exec, cfg.MaxConns)
		default:
			s.opts.Admission = semaphore.New(cfg.MaxConns, cfg.AdmissionTimeout)
		}
	}

	return s, nil
}

// Listen binds the listener. Serve calls it if needed; call it directly
// to learn the resolved address before serving.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.l != nil {
		return nil
	}

	addr := format.Addr(s.cfg.Host, s.cfg.Port)
	s.cfg.Logger.VerboseMsg("Creating listener for protocol %s at %s", s.cfg.Protocol, addr)

	l, err := s.bind(addr)
	if err != nil {
		return err
	}

	if s.cfg.LogFile != "" {
		traffic, err := log.OpenTrafficLog(s.cfg.LogFile)
		if err != nil {
			_ = l.Close()
			return fmt.Errorf("enabling traffic log: %w", err)
		}
		s.traffic = traffic
		s.opts.WrapConn = traffic.Wrap
	}

	s.l = l
	s.cfg.Logger.InfoMsg("Listening on %s", format.Transport(s.cfg.Protocol.String(), l.Addr()))
	return nil
}

func (s *Server) bind(addr string) (transport.Listener, error) {
	switch s.cfg.Protocol {
	case config.ProtoWS:
		return ws.Bind(addr, &ws.Options{HandshakeTimeout: s.cfg.Timeout, Logger: s.cfg.Logger})
	case config.ProtoUDP:
		return udp.Bind(addr, s.cfg.Deps)
	default:
		return tcp.Bind(addr, &tcp.Options{NoDelay: s.cfg.NoDelay, KeepAlive: s.cfg.KeepAlive, ReusePort: s.cfg.ReusePort}, s.cfg.Deps)
	}
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.l == nil {
		return nil
	}
	return s.l.Addr()
}

// Serve binds if necessary and runs the accept loop until the server's
// context is cancelled (ErrServerClosed) or a fatal error occurs.
func (s *Server) Serve() error {
	if err := s.Listen(); err != nil {
		return err
	}

	s.mu.Lock()
	l := s.l
	s.mu.Unlock()

	return Run(s.ctx, l, s.exec, s.handle, s.opts)
}

// Close stops accepting and waits up to DrainTimeout for running handlers.
func (s *Server) Close() error {
	s.mu.Lock()
	l, traffic := s.l, s.traffic
	s.mu.Unlock()

	var errs []error
	if l != nil {
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing listener: %w", err))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), DrainTimeout)
	defer cancel()
	if err := executor.Shutdown(ctx, s.exec); err != nil {
		errs = append(errs, fmt.Errorf("draining handlers: %w", err))
	}

	if traffic != nil {
		if err := traffic.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing traffic log: %w", err))
		}
	}

	return errors.Join(errs...)
}
