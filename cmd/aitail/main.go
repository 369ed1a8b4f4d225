package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/aitail/aitail/internal/appinsights"
	"github.com/aitail/aitail/internal/config"
	"github.com/aitail/aitail/internal/logging"
	"github.com/aitail/aitail/internal/session"
	"github.com/aitail/aitail/internal/source"
	"github.com/aitail/aitail/internal/telemetry"
	"github.com/aitail/aitail/internal/tui/app"
	"github.com/aitail/aitail/internal/tui/views/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"
)

var version = "dev"

const defaultConfigPath = "aitail.yaml"

type options struct {
	configPath string
	file       string
	fromStart  bool
	wsURL      string
	demo       bool
	disable    []string
	plain      bool
	echo       bool
	pid        int32
	logFile    string
	logLevel   string
	version    bool
	command    []string
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "aitail: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (*options, *pflag.FlagSet, error) {
	opts := &options{}
	fs := pflag.NewFlagSet("aitail", pflag.ContinueOnError)
	fs.SetInterspersed(false)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: aitail [flags] [--] [command args...]\n\n")
		fmt.Fprintf(os.Stderr, "Shows Application Insights telemetry from a .NET process's debug output.\n\n")
		fs.PrintDefaults()
	}

	fs.StringVarP(&opts.configPath, "config", "c", defaultConfigPath, "Path to config file")
	fs.StringVarP(&opts.file, "file", "f", "", "Tail a log file")
	fs.BoolVar(&opts.fromStart, "from-start", false, "Read --file from the beginning instead of the end")
	fs.StringVar(&opts.wsURL, "ws", "", "Receive output lines from a WebSocket URL")
	fs.BoolVar(&opts.demo, "demo", false, "Generate synthetic telemetry")
	fs.StringSliceVar(&opts.disable, "disable", nil, "Hide a telemetry type (repeatable): "+describeTypes())
	fs.BoolVar(&opts.plain, "plain", false, "Print records to stdout instead of running the TUI")
	fs.BoolVar(&opts.echo, "echo", false, "With --plain, copy the command's raw output to stderr")
	fs.Int32Var(&opts.pid, "pid", 0, "Watch a process and stop when it exits")
	fs.StringVar(&opts.logFile, "log-file", "", "Write logs to a rotating file")
	fs.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	fs.BoolVarP(&opts.version, "version", "v", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, fs, err
	}
	opts.command = fs.Args()
	return opts, fs, nil
}

func run(args []string) error {
	opts, fs, err := parseFlags(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if opts.version {
		fmt.Println("aitail", version)
		return nil
	}

	cfg, err := loadConfig(opts.configPath, fs.Changed("config"))
	if err != nil {
		return err
	}
	applyFlags(cfg, opts, fs)
	if err := cfg.Validate(); err != nil {
		return err
	}

	filter, err := initialFilter(cfg, opts.disable)
	if err != nil {
		return err
	}

	// The TUI owns the terminal, so logs only go to a file there.
	var fallback io.Writer
	if opts.plain {
		fallback = os.Stderr
	}
	logger, closer, err := logging.New(cfg.Log, fallback)
	if err != nil {
		return err
	}
	defer closer.Close()
	slog.SetDefault(logger)

	sources := buildSources(cfg, opts, logger)
	if len(sources) == 0 {
		fs.Usage()
		return errors.New("no source: give --file, --ws, --demo or a command to run")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess := session.New(appinsights.NewParser(), filter)
	pump := source.NewPump(sess, cfg.Source.DegradedThreshold, logger)
	logger.Info("session started", "id", sess.ID(), "filter", filter.String(), "sources", len(sources))

	srcCtx, cancelSources := context.WithCancel(ctx)
	defer cancelSources()

	var process string
	if opts.pid != 0 {
		info, err := source.DescribeProcess(ctx, opts.pid)
		if err != nil {
			return err
		}
		process = fmt.Sprintf("%s (pid %d)", info.Name, info.PID)
		logger.Info("watching process", "pid", info.PID, "name", info.Name, "cmdline", info.CmdLine, "started", info.StartTime)
		go func() {
			if err := source.WaitForExit(srcCtx, opts.pid, cfg.Source.PollInterval); err == nil {
				logger.Info("watched process exited", "pid", opts.pid)
				cancelSources()
			}
		}()
	}

	if opts.plain {
		return runPlain(srcCtx, sess, pump, sources, os.Stdout, logger)
	}
	return runTUI(ctx, srcCtx, cancelSources, sess, pump, sources, cfg, process)
}

func loadConfig(path string, explicit bool) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, os.ErrNotExist) && !explicit {
		return config.Default(), nil
	}
	return nil, fmt.Errorf("loading config: %w", err)
}

func applyFlags(cfg *config.Config, opts *options, fs *pflag.FlagSet) {
	if fs.Changed("log-file") {
		cfg.Log.File = opts.logFile
	}
	if fs.Changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}
	if fs.Changed("from-start") {
		cfg.Source.FromStart = opts.fromStart
	}
}

func initialFilter(cfg *config.Config, disable []string) (telemetry.FilterSet, error) {
	filter, err := cfg.FilterSet()
	if err != nil {
		return 0, err
	}
	for _, name := range disable {
		t, err := telemetry.ParseType(name)
		if err != nil {
			return 0, fmt.Errorf("--disable %s: %w", name, err)
		}
		filter = filter.Without(t)
	}
	return filter, nil
}

func buildSources(cfg *config.Config, opts *options, logger *slog.Logger) []source.Source {
	var sources []source.Source
	if opts.file != "" {
		sources = append(sources, source.NewFileSource(opts.file, cfg.Source.FromStart, cfg.Source.PollInterval, logger))
	}
	if opts.wsURL != "" {
		sources = append(sources, source.NewWSSource(opts.wsURL, cfg.Source.ReconnectBase, cfg.Source.ReconnectMax, logger))
	}
	if opts.demo {
		sources = append(sources, source.NewDemoSource(cfg.Source.DemoInterval, 1))
	}
	if len(opts.command) > 0 {
		cmd := source.NewExecSource(opts.command)
		if opts.plain && opts.echo {
			cmd.Passthrough = os.Stderr
		}
		sources = append(sources, cmd)
	}
	return sources
}

// runPlain prints each visible record as it arrives and returns once every
// source has ended.
func runPlain(ctx context.Context, sess *session.Session, pump *source.Pump, sources []source.Source, out io.Writer, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	sess.Subscribe(
		func(t *telemetry.Telemetry) {
			fmt.Fprintln(out, list.Line(t, 0))
		},
		func(view []*telemetry.Telemetry) {
			fmt.Fprintf(out, "-- filter %s: %d records\n", sess.Filter(), len(view))
		},
	)
	pump.SetErrorHook(func(src string, err error) {
		logger.Warn("ingest error", "source", src, "err", err)
	})

	err := pump.RunAll(ctx, sources...)
	for _, h := range pump.Health() {
		logger.Info("source summary", "source", h.Source, "status", h.Status, "lines", h.Lines, "parse_failures", h.ParseFailures)
	}
	return err
}

func runTUI(ctx, srcCtx context.Context, cancelSources context.CancelFunc, sess *session.Session, pump *source.Pump, sources []source.Source, cfg *config.Config, process string) error {
	m := app.New(sess, app.Options{
		Process:     process,
		DetailStyle: cfg.TUI.DetailStyle,
		Follow:      cfg.TUI.Follow,
		Health:      pump,
	})
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))

	sess.Subscribe(app.Callbacks(p.Send))
	pump.SetErrorHook(app.ErrorHook(p.Send))

	done := make(chan struct{})
	go func() {
		defer close(done)
		err := pump.RunAll(srcCtx, sources...)
		p.Send(app.SourcesDoneMsg{Err: err})
	}()

	_, err := p.Run()
	cancelSources()
	<-done
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}

// describeTypes lists the accepted --disable names.
func describeTypes() string {
	names := make([]string, 0, len(telemetry.AllTypes()))
	for _, t := range telemetry.AllTypes() {
		names = append(names, strings.ToLower(t.String()))
	}
	return strings.Join(names, ", ")
}
