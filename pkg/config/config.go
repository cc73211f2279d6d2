// Package config holds the settings of a netserve server: where to listen,
// which executor runs the connection handlers and how admission is
// controlled.
package config

import (
	"fmt"
	"time"

	"dominicbreuker/netserve/pkg/log"
)

// Protocol selects the transport a server listens on.
type Protocol int

const (
	ProtoTCP Protocol = iota + 1
	ProtoWS
	ProtoUDP
)

// String returns the scheme used in transport specifications.
func (p Protocol) String() string {
	switch p {
	case ProtoTCP:
		return "tcp"
	case ProtoWS:
		return "ws"
	case ProtoUDP:
		return "udp"
	default:
		return ""
	}
}

// ExecutorKind selects the concurrency substrate for connection handlers.
type ExecutorKind string

const (
	// ExecGoroutine runs every handler on its own goroutine.
	ExecGoroutine ExecutorKind = "goroutine"
	// ExecPool runs handlers on at most Workers goroutines.
	ExecPool ExecutorKind = "pool"
)

// AdmissionPolicy decides what happens once MaxConns handlers are running.
type AdmissionPolicy string

const (
	// AdmitWait stops accepting until a handler finishes. Pending
	// connections stay in the OS backlog.
	AdmitWait AdmissionPolicy = "wait"
	// AdmitReject accepts and immediately drops connections over the limit.
	AdmitReject AdmissionPolicy = "reject"
)

// Config is the configuration of a server.
type Config struct {
	Protocol Protocol
	Host     string
	Port     int // 0 lets the OS pick a port

	Timeout time.Duration // websocket handshake and KCP session setup
	Verbose bool

	Executor ExecutorKind
	Workers  int // pool only

	MaxConns         int // 0 disables admission control
	Admission        AdmissionPolicy
	AdmissionTimeout time.Duration // wait only; a timed out wait is retried

	EscalateCapacity bool // treat a saturated executor as fatal
	SleepOnErrors    bool // back off after resource exhaustion errors

	NoDelay   bool
	KeepAlive time.Duration // 0 keeps the OS default, negative disables
	ReusePort bool          // tcp only, unix only

	LogFile string // mirror connection traffic to this file

	Logger *log.Logger
	Deps   *Dependencies
}

// Default returns a Config with the defaults used by the CLI.
func Default() *Config {
	return &Config{
		Protocol:         ProtoTCP,
		Host:             "127.0.0.1",
		Timeout:          10 * time.Second,
		Executor:         ExecGoroutine,
		Workers:          16,
		Admission:        AdmitWait,
		AdmissionTimeout: 10 * time.Second,
		NoDelay:          true,
	}
}

// Validate checks the configuration and returns all problems found.
func (c *Config) Validate() []error {
	var errors []error

	if c.Protocol.String() == "" {
		errors = append(errors, fmt.Errorf("unsupported protocol %d", c.Protocol))
	}

	if err := validatePort(c.Port); err != nil {
		errors = append(errors, fmt.Errorf("port: %s", err))
	}

	switch c.Executor {
	case ExecGoroutine:
	case ExecPool:
		if c.Workers < 1 {
			errors = append(errors, fmt.Errorf("'--workers' must be at least 1 for the pool executor"))
		}
	default:
		errors = append(errors, fmt.Errorf("unknown executor %q, want %s|%s", c.Executor, ExecGoroutine, ExecPool))
	}

	if c.MaxConns < 0 {
		errors = append(errors, fmt.Errorf("'--max-conns' must not be negative"))
	}

	if c.MaxConns > 0 {
		switch c.Admission {
		case AdmitWait:
			if c.AdmissionTimeout <= 0 {
				errors = append(errors, fmt.Errorf("'--admission-timeout' must be positive"))
			}
		case AdmitReject:
		default:
			errors = append(errors, fmt.Errorf("unknown admission policy %q, want %s|%s", c.Admission, AdmitWait, AdmitReject))
		}
	}

	if c.Timeout < 0 {
		errors = append(errors, fmt.Errorf("'--timeout' must not be negative"))
	}

	return errors
}
