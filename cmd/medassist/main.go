package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"medassist/pkg/client"
	"medassist/pkg/config"
	"medassist/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdin, os.Stdout).RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.ExitCode())
		}
		os.Exit(1)
	}
}

// env carries what every command needs; it is built once in the app's
// Before hook from the global flags.
type env struct {
	clinic *client.Client
	log    *logger.Logger
	in     io.Reader
	out    io.Writer
	json   bool
}

func newApp(in io.Reader, out io.Writer) *cli.App {
	e := &env{in: in, out: out}

	return &cli.App{
		Name:   "medassist",
		Usage:  "browse doctors, book appointments and chat with the clinic assistant",
		Writer: out,
		// main applies exit codes.
		ExitErrHandler: func(*cli.Context, error) {},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "api",
				Usage:   "clinic API base URL",
				Value:   config.DefaultAPIBaseURL,
				EnvVars: []string{config.EnvAPIBaseURL},
			},
			&cli.DurationFlag{
				Name:    "timeout",
				Usage:   "timeout for each clinic API call",
				Value:   config.DefaultAPITimeout,
				EnvVars: []string{config.EnvAPITimeout},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   logger.WARN,
				EnvVars: []string{config.EnvLogLevel},
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "print results as JSON",
			},
		},
		Before: func(c *cli.Context) error {
			e.log = logger.New(logger.Config{
				Level:   c.String("log-level"),
				Format:  logger.TEXT,
				Output:  os.Stderr,
				Service: "medassist-cli",
			})
			e.clinic = client.NewClient(c.String("api"), c.Duration("timeout"), e.log)
			e.json = c.Bool("json")
			return nil
		},
		Commands: []*cli.Command{
			doctorsCommand(e),
			specialtyCommand(e),
			addDoctorCommand(e),
			appointmentsCommand(e),
			slotsCommand(e),
			availabilityCommand(e),
			bookCommand(e),
			chatCommand(e),
		},
	}
}
