// Package shared provides the CLI flag definitions and helpers used by
// netserve's commands.
package shared

import (
	"strings"

	"dominicbreuker/netserve/pkg/config"
	"dominicbreuker/netserve/pkg/handler"

	"github.com/urfave/cli/v3"
)

const categoryCommon = "common"

// VerboseFlag is the name of the flag to enable verbose logging.
const VerboseFlag = "verbose"

// TimeoutFlag is the name of the flag to specify the handshake timeout in milliseconds.
const TimeoutFlag = "timeout"

// LogFileFlag is the name of the flag to mirror connection traffic to a file.
const LogFileFlag = "log"

// GetBaseDescription returns the description of transport specifications.
func GetBaseDescription() string {
	return strings.Join([]string{
		"Specify transport like this: tcp://127.0.0.1:8080 (supports tcp|ws|udp)",
		"You can omit the host to bind to all interfaces. Port 0 lets the OS pick a free port.",
		"IPv6 hosts go in brackets: tcp://[::1]:8080",
	}, "\n")
}

// GetArgsUsage returns the arguments usage string for CLI commands.
func GetArgsUsage() string {
	return "transport"
}

// GetCommonFlags returns the flags every serving command accepts.
func GetCommonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:     VerboseFlag,
			Aliases:  []string{"v"},
			Usage:    "Verbose logging",
			Category: categoryCommon,
			Value:    false,
			Required: false,
		},
		&cli.IntFlag{
			Name:     TimeoutFlag,
			Aliases:  []string{"t"},
			Usage:    "Handshake timeout in milliseconds (websocket upgrade)",
			Category: categoryCommon,
			Value:    10000, // 10 seconds default
			Required: false,
		},
		&cli.StringFlag{
			Name:     LogFileFlag,
			Aliases:  []string{"l"},
			Usage:    "Mirror all connection traffic to this file",
			Category: categoryCommon,
			Value:    "",
			Required: false,
		},
	}
}

const categoryExecutor = "executor"

// ExecutorFlag is the name of the flag selecting how handlers are run.
const ExecutorFlag = "executor"

// WorkersFlag is the name of the flag for the pool size.
const WorkersFlag = "workers"

// MaxConnsFlag is the name of the flag limiting concurrent connections.
const MaxConnsFlag = "max-conns"

// AdmissionFlag is the name of the flag selecting what happens at the limit.
const AdmissionFlag = "admission"

// AdmissionTimeoutFlag is the name of the flag for how long the accept loop
// waits for a free slot before reporting it is still at capacity.
const AdmissionTimeoutFlag = "admission-timeout"

// EscalateFlag is the name of the flag making executor saturation fatal.
const EscalateFlag = "escalate"

// SleepOnErrorsFlag is the name of the flag enabling accept backoff.
const SleepOnErrorsFlag = "sleep-on-errors"

// GetExecutorFlags returns the flags controlling concurrency and admission.
func GetExecutorFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     ExecutorFlag,
			Aliases:  []string{"x"},
			Usage:    "Run handlers on a goroutine each (goroutine) or on a worker pool (pool)",
			Category: categoryExecutor,
			Value:    string(config.ExecGoroutine),
			Required: false,
		},
		&cli.IntFlag{
			Name:     WorkersFlag,
			Usage:    "Number of pool workers; a connection arriving while all are busy is a capacity error",
			Category: categoryExecutor,
			Value:    16,
			Required: false,
		},
		&cli.IntFlag{
			Name:     MaxConnsFlag,
			Aliases:  []string{"m"},
			Usage:    "Maximum number of connections handled at once, 0 for no limit",
			Category: categoryExecutor,
			Value:    0,
			Required: false,
		},
		&cli.StringFlag{
			Name:     AdmissionFlag,
			Usage:    "At the limit, stop accepting (wait) or accept and drop (reject)",
			Category: categoryExecutor,
			Value:    string(config.AdmitWait),
			Required: false,
		},
		&cli.IntFlag{
			Name:     AdmissionTimeoutFlag,
			Usage:    "With --admission wait: milliseconds between reports that all slots are busy",
			Category: categoryExecutor,
			Value:    10000,
			Required: false,
		},
		&cli.BoolFlag{
			Name:     EscalateFlag,
			Usage:    "Stop serving when the executor cannot take a connection",
			Category: categoryExecutor,
			Value:    false,
			Required: false,
		},
		&cli.BoolFlag{
			Name:     SleepOnErrorsFlag,
			Usage:    "Back off when accepting fails for lack of file descriptors or memory",
			Category: categoryExecutor,
			Value:    false,
			Required: false,
		},
	}
}

const categoryServe = "serve"

// HandlerFlag is the name of the flag selecting the connection handler.
const HandlerFlag = "handler"

// NoDelayFlag is the name of the flag controlling TCP_NODELAY.
const NoDelayFlag = "nodelay"

// ReusePortFlag is the name of the flag setting SO_REUSEPORT on the listener.
const ReusePortFlag = "reuseport"

// KeepAliveFlag is the name of the flag for the TCP keep-alive period in seconds.
const KeepAliveFlag = "keepalive"

// GetServeFlags returns the flags specific to the serve command.
func GetServeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     HandlerFlag,
			Aliases:  []string{"H"},
			Usage:    "Connection handler: " + strings.Join([]string{handler.NameEcho, handler.NameDiscard, handler.NameStdio, handler.NameMuxEcho}, "|"),
			Category: categoryServe,
			Value:    handler.NameEcho,
			Required: false,
		},
		&cli.BoolFlag{
			Name:     NoDelayFlag,
			Usage:    "Disable Nagle's algorithm on accepted TCP connections",
			Category: categoryServe,
			Value:    true,
			Required: false,
		},
		&cli.BoolFlag{
			Name:     ReusePortFlag,
			Usage:    "Let several processes listen on the same TCP port (unix only)",
			Category: categoryServe,
			Value:    false,
			Required: false,
		},
		&cli.IntFlag{
			Name:     KeepAliveFlag,
			Usage:    "TCP keep-alive period in seconds, 0 for the OS default, negative to disable",
			Category: categoryServe,
			Value:    0,
			Required: false,
		},
	}
}
