package main

import (
	"context"
	"os"

	"dominicbreuker/netserve/cmd/serve"
	"dominicbreuker/netserve/cmd/version"
	"dominicbreuker/netserve/pkg/log"

	"github.com/urfave/cli/v3"
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.ErrorMsg("%s", err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "netserve",
		Usage: "accept connections on tcp, ws or udp and serve each one concurrently",
		Commands: []*cli.Command{
			serve.GetCommand(),
			version.GetCommand(),
		},
	}
}
