package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	goLink "github.com/MrEthical07/goLink"
	"github.com/MrEthical07/goLink/command"
)

func newConsoleCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Run link commands from stdin as <player> <command> [args...]",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, _, err := setup(opts)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					a.logger.Error("shutdown", "error", err)
				}
			}()
			return runConsole(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), a.dispatcher)
		},
	}
}

// runConsole reads one command per line until EOF or ctx is done. The player
// name "console" issues the command as the non-interactive console.
func runConsole(ctx context.Context, in io.Reader, out io.Writer, d *command.Dispatcher) error {
	ctx = goLink.WithSource(ctx, "console")
	scanner := bufio.NewScanner(in)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		if len(fields) < 2 {
			fmt.Fprintln(out, "usage: <player> <command> [args...]")
			continue
		}

		var sender command.Sender = command.Player(fields[0])
		if strings.EqualFold(fields[0], "console") {
			sender = command.Console{}
		}
		name := strings.TrimPrefix(fields[1], "/")

		reply := d.Handle(ctx, sender, name, fields[2:])
		status := "ok"
		if !reply.OK {
			status = "error"
		}
		fmt.Fprintf(out, "[%s] %s: %s\n", status, sender.Name(), reply.Text)
	}
	return scanner.Err()
}
