// Package serve implements the serve command: bind a transport and run the
// accept loop until interrupted.
package serve

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dominicbreuker/netserve/cmd/shared"
	"dominicbreuker/netserve/pkg/config"
	"dominicbreuker/netserve/pkg/handler"
	"dominicbreuker/netserve/pkg/log"
	"dominicbreuker/netserve/pkg/server"

	"github.com/urfave/cli/v3"
)

// GetCommand returns the serve command.
func GetCommand() *cli.Command {
	return &cli.Command{
		Name:        "serve",
		Usage:       "Accept connections and serve each one concurrently",
		Description: shared.GetBaseDescription(),
		ArgsUsage:   shared.GetArgsUsage(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			logger := log.NewLogger(cmd.Bool(shared.VerboseFlag))

			cfg, err := newConfig(cmd, logger)
			if err != nil {
				return err
			}

			if errors := config.Validate(cfg); len(errors) > 0 {
				logger.ErrorMsg("Argument validation errors:")
				for _, err := range errors {
					logger.ErrorMsg(" - %s", err)
				}
				return fmt.Errorf("exiting")
			}

			ctx, cancel := context.WithCancel(ctx)
			defer cancel()
			shared.SetupSignalHandling(cancel)

			return serve(ctx, cfg, cmd.String(shared.HandlerFlag))
		},
		Flags: getFlags(),
	}
}

func newConfig(cmd *cli.Command, logger *log.Logger) (*config.Config, error) {
	proto, host, port, err := shared.ParseTransport(cmd.Args().First())
	if err != nil {
		return nil, fmt.Errorf("parsing transport: %w", err)
	}

	cfg := config.Default()
	cfg.Protocol = proto
	cfg.Host = host
	cfg.Port = port
	cfg.Timeout = time.Duration(cmd.Int(shared.TimeoutFlag)) * time.Millisecond
	cfg.Verbose = cmd.Bool(shared.VerboseFlag)
	cfg.Executor = config.ExecutorKind(cmd.String(shared.ExecutorFlag))
	cfg.Workers = int(cmd.Int(shared.WorkersFlag))
	cfg.MaxConns = int(cmd.Int(shared.MaxConnsFlag))
	cfg.Admission = config.AdmissionPolicy(cmd.String(shared.AdmissionFlag))
	cfg.AdmissionTimeout = time.Duration(cmd.Int(shared.AdmissionTimeoutFlag)) * time.Millisecond
	cfg.EscalateCapacity = cmd.Bool(shared.EscalateFlag)
	cfg.SleepOnErrors = cmd.Bool(shared.SleepOnErrorsFlag)
	cfg.NoDelay = cmd.Bool(shared.NoDelayFlag)
	cfg.ReusePort = cmd.Bool(shared.ReusePortFlag)
	cfg.KeepAlive = time.Duration(cmd.Int(shared.KeepAliveFlag)) * time.Second
	cfg.LogFile = cmd.String(shared.LogFileFlag)
	cfg.Logger = logger

	return cfg, nil
}

func serve(ctx context.Context, cfg *config.Config, handlerName string) error {
	h, err := handler.New(ctx, handlerName, cfg.Logger)
	if err != nil {
		return err
	}

	s, err := server.New(ctx, cfg, h)
	if err != nil {
		return fmt.Errorf("server.New(): %w", err)
	}
	defer func() {
		if err := s.Close(); err != nil {
			cfg.Logger.ErrorMsg("Shutting down: %s", err)
		}
	}()

	if err := s.Serve(); err != nil && !errors.Is(err, server.ErrServerClosed) {
		return fmt.Errorf("serving: %w", err)
	}

	cfg.Logger.VerboseMsg("Stopped accepting, draining connections")
	return nil
}

func getFlags() []cli.Flag {
	flags := []cli.Flag{}

	flags = append(flags, shared.GetCommonFlags()...)
	flags = append(flags, shared.GetExecutorFlags()...)
	flags = append(flags, shared.GetServeFlags()...)

	return flags
}
