package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/choonkeat/termrec/termsession"
)

type recordOptions struct {
	command    string
	output     string
	rows       int
	cols       int
	shell      string
	logFile    string
	debugLog   string
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &recordOptions{}

	cmd := &cobra.Command{
		Use:   "termrec [flags] [-- command [args...]]",
		Short: "Record an interactive terminal session to JSON",
		Long: `termrec runs a command on a pseudo-terminal, passes your keystrokes through
to it and records both directions with millisecond timing.

The recording is written when the command exits:

  {"start_time": ..., "end_time": ..., "term_rows": 24, "term_cols": 80,
   "command": ..., "frames": [["out", 0, "$ "], ["in", 310, "l"], ...]}

Examples:
  termrec                            # record your shell
  termrec -c 'make test'             # record a shell command
  termrec -o demo.json -- vim notes  # record vim into demo.json
  termrec info demo.json             # summarize a recording`,
		Args:          cobra.ArbitraryArgs,
		Version:       versionString(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecord(cmd, opts, args)
		},
	}

	flags := cmd.Flags()
	flags.SetInterspersed(false)
	flags.StringVarP(&opts.command, "command", "c", "", "shell command string to record")
	flags.StringVarP(&opts.output, "output", "o", "", "recording destination (default <output_dir>/session-<uuid>.json)")
	flags.IntVar(&opts.rows, "rows", 0, "override the discovered terminal height")
	flags.IntVar(&opts.cols, "cols", 0, "override the discovered terminal width")
	flags.StringVar(&opts.shell, "shell", "", "shell used for string commands (default $SHELL or /bin/sh)")
	flags.StringVar(&opts.logFile, "log", "", "write the diagnostic log to a file")
	flags.StringVar(&opts.debugLog, "debug-log", "", "append decoded output text to a file as it is recorded")
	flags.StringVar(&opts.configPath, "config", defaultConfigPath(), "TOML config file")

	cmd.AddCommand(newInfoCmd(), newVersionCmd())
	return cmd
}

func runRecord(cmd *cobra.Command, opts *recordOptions, args []string) error {
	cfg, err := loadConfig(opts.configPath, cmd.Flags().Changed("config"))
	if err != nil {
		return err
	}
	if opts.shell != "" {
		cfg.Shell = opts.shell
	}
	if opts.logFile != "" {
		cfg.LogFile = opts.logFile
	}
	if opts.debugLog != "" {
		cfg.DebugLog = opts.debugLog
	}
	if opts.rows < 0 || opts.cols < 0 || opts.rows > 0xffff || opts.cols > 0xffff {
		return fmt.Errorf("invalid window size %dx%d", opts.cols, opts.rows)
	}

	shell := resolveShell(cfg.Shell)
	command, err := resolveCommand(opts.command, args, shell)
	if err != nil {
		return err
	}
	output, err := resolveOutput(opts.output, cfg.OutputDir)
	if err != nil {
		return err
	}

	logger, logCloser, err := newLogger(cfg.LogFile)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	var debug io.Writer
	if cfg.DebugLog != "" {
		f, err := openAppend(cfg.DebugLog)
		if err != nil {
			return err
		}
		defer f.Close()
		debug = f
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	size := windowSize(opts.rows, opts.cols, os.Stdout, os.Stdin)
	logger.Printf("[SESSION] termrec %s recording %v at %dx%d into %s", versionString(), command, size.Cols, size.Rows, output)

	session := termsession.New(termsession.Config{
		Command:      command,
		Size:         size,
		Output:       output,
		Shell:        shell,
		Stdin:        os.Stdin,
		Stdout:       os.Stdout,
		Stderr:       os.Stderr,
		Debug:        debug,
		Logger:       logger,
		DrainTimeout: cfg.DrainTimeout,
		KillGrace:    cfg.KillGrace,
	})
	recorded, err := session.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "\n[termrec: %d frames over %s, exit code %d, saved to %s]\n",
		len(recorded.Frames), recorded.Duration().Round(time.Millisecond), session.ExitCode(), output)
	return nil
}
