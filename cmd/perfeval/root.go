package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/geocoder89/perfeval/internal/app"
	"github.com/geocoder89/perfeval/internal/config"
	"github.com/geocoder89/perfeval/internal/observability"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// cli carries the global flags and the app opened for one invocation.
type cli struct {
	configPath string
	dataDir    string
	verbose    bool

	in           *bufio.Reader
	stdinFD      int
	isTerminal   func(fd int) bool
	readPassword func(fd int) ([]byte, error)

	app       *app.App
	logCloser io.Closer
}

func defaultIO() *cli {
	return &cli{
		in:           bufio.NewReader(os.Stdin),
		stdinFD:      int(os.Stdin.Fd()),
		isTerminal:   term.IsTerminal,
		readPassword: term.ReadPassword,
	}
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "perfeval",
		Short: "Manage users, criteria and performance evaluations",
		Long: `perfeval manages the performance-evaluation data files from the terminal.

It reads and writes the same users, criteria and evaluations files as the
web API, under the same file locks.`,
		SilenceUsage:      true,
		PersistentPreRunE: c.open,
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return c.close()
		},
	}

	root.PersistentFlags().StringVar(&c.configPath, "config", "", "YAML config file (default $PERFEVAL_CONFIG)")
	root.PersistentFlags().StringVar(&c.dataDir, "data-dir", "", "directory holding users.json, criteria.json and evaluations.json")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "log store activity to stderr")

	root.AddCommand(
		c.initAdminCmd(),
		c.usersCmd(),
		c.criteriaCmd(),
		c.evaluationsCmd(),
		c.summaryCmd(),
		c.exportCmd(),
		c.backupCmd(),
	)

	return root
}

func (c *cli) open(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.dataDir != "" {
		cfg = cfg.WithDataDir(c.dataDir)
	}

	logOut := io.Discard
	if c.verbose {
		logOut = cmd.ErrOrStderr()
	}
	log, closer, err := observability.NewLogger(observability.LoggerOptions{
		Env:     cfg.Env,
		LogsDir: cfg.LogsDir,
		ToFile:  cfg.LogToFile,
		Stdout:  logOut,
	})
	if err != nil {
		return err
	}
	c.logCloser = closer

	a, err := app.New(cmd.Context(), cfg, log, nil)
	if err != nil {
		_ = closer.Close()
		return err
	}
	c.app = a
	return nil
}

func (c *cli) close() error {
	var errs []error
	if c.app != nil {
		errs = append(errs, c.app.Close())
		c.app = nil
	}
	if c.logCloser != nil {
		errs = append(errs, c.logCloser.Close())
		c.logCloser = nil
	}
	return errors.Join(errs...)
}

func ctxOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// prompt prints label and reads one line. An empty answer yields def.
func (c *cli) prompt(w io.Writer, label, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(w, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(w, "%s: ", label)
	}

	line, err := c.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}

	if line = strings.TrimRight(line, "\r\n"); line != "" {
		return line, nil
	}
	if err != nil && def == "" {
		return "", fmt.Errorf("%s: no input", label)
	}
	return def, nil
}

// promptPassword reads without echo on a terminal and falls back to a plain
// line read when stdin is piped.
func (c *cli) promptPassword(w io.Writer, label, def string) (string, error) {
	if !c.isTerminal(c.stdinFD) {
		return c.prompt(w, label, def)
	}

	if def != "" {
		fmt.Fprintf(w, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(w, "%s: ", label)
	}
	pw, err := c.readPassword(c.stdinFD)
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	if len(pw) == 0 {
		return def, nil
	}
	return string(pw), nil
}
