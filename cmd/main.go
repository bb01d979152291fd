// @title        Digital Microscope API
// @version      1.0
// @description  Shell command surface and state of a simulated digital microscope.
// @BasePath     /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"digital_microscope/internal/config"
	"digital_microscope/internal/console"
	"digital_microscope/internal/device"
	"digital_microscope/internal/handlers"
	"digital_microscope/internal/logger"
	"digital_microscope/internal/repository"
	"digital_microscope/internal/repository/db"
	"digital_microscope/internal/server"
	"digital_microscope/internal/service"
	"digital_microscope/internal/telemetry"

	"github.com/mattn/go-isatty"
	"github.com/spf13/pflag"
)

const (
	cmdServe = "serve"
	cmdShell = "shell"
	cmdExec  = "exec"

	shutdownTimeout = 10 * time.Second
)

const usage = `Usage: microscope [serve|shell|exec <command...>] [flags]

  serve   run the HTTP API, websocket stream and telemetry (default)
  shell   interactive console
  exec    run a command line, the -c lines, or a script on stdin, in order;
          stops at the first failing line and exits 1
`

// stdio is the process input and output, swapped out in tests.
type stdio struct {
	in  io.Reader
	out io.Writer
	// interactive is true when in is a terminal
	interactive bool
}

func main() {
	fd := os.Stdin.Fd()
	os.Exit(run(os.Args[1:], stdio{
		in:          os.Stdin,
		out:         os.Stdout,
		interactive: isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd),
	}))
}

// splitCommand separates the subcommand from the remaining arguments.
// Without a subcommand the process serves.
func splitCommand(args []string) (string, []string) {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return cmdServe, args
	}
	return args[0], args[1:]
}

// scriptLines collects the lines exec runs: -c lines, then the positional
// arguments as one line, or stdin when neither is given and it is not a
// terminal.
func scriptLines(fs *pflag.FlagSet, std stdio) ([]string, error) {
	lines, err := fs.GetStringArray("command")
	if err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		lines = append(lines, quoteArgs(fs.Args()))
	}
	if len(lines) > 0 || std.interactive || std.in == nil {
		return lines, nil
	}
	return console.ReadScript(std.in)
}

// quoteArgs joins already split arguments into one line that the shell
// tokenizer splits back into the same arguments.
func quoteArgs(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		if a != "" && !strings.ContainsAny(a, " \t\r\n\"'\\#") {
			quoted[i] = a
			continue
		}
		a = strings.ReplaceAll(a, `\`, `\\`)
		quoted[i] = `"` + strings.ReplaceAll(a, `"`, `\"`) + `"`
	}
	return strings.Join(quoted, " ")
}

func run(args []string, std stdio) int {
	cmd, rest := splitCommand(args)
	switch cmd {
	case cmdServe, cmdShell, cmdExec:
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		return 2
	}

	fs := config.NewFlagSet(cmd)
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(rest); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	var script []string
	if cmd == cmdExec {
		lines, err := scriptLines(fs, std)
		if err != nil {
			fmt.Fprintf(os.Stderr, "exec: %v\n", err)
			return 2
		}
		if len(lines) == 0 {
			fmt.Fprintf(os.Stderr, "exec: missing command line\n\n%s", usage)
			return 2
		}
		script = lines
	}

	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading config: %v\n", err)
		return 1
	}

	// stdout belongs to command output outside of serve
	log := logger.GetWith(logger.Options{Level: cfg.LogLevel, Stderr: cmd != cmdServe})
	defer func() { _ = log.Sync() }()

	conn, err := openDB(cfg, log)
	if err != nil {
		log.Errorw("failed to init sqlite", "err", err)
		return 1
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	publisher, err := newPublisher(cfg, log)
	if err != nil {
		log.Errorw("failed to connect mqtt broker", "err", err, "broker", cfg.MQTT.Broker)
		return 1
	}
	defer publisher.Close()

	// wire dependencies
	metrics := telemetry.NewMetrics()
	repos := repository.NewRepository(conn)
	services := service.NewService(repos, device.NewMachine(), service.Options{
		Publisher: publisher,
		Metrics:   metrics,
		Logger:    log,
		Auth: service.AuthConfig{
			SigningKey: cfg.Auth.SigningKey,
			TokenTTL:   cfg.Auth.TokenTTL,
		},
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.RestoreState {
		restored, err := services.Restore(ctx)
		if err != nil {
			log.Warnw("state_restore_failed", "err", err)
		} else if restored {
			log.Infow("state restored", "db", cfg.DBPath)
		}
	}

	repl := console.New(services.Console, std.out, log, console.Options{
		HistoryFile: cfg.Console.HistoryFile,
		Verbose:     cfg.Console.Verbose,
	})

	switch cmd {
	case cmdShell:
		if err := repl.Run(ctx); err != nil {
			log.Errorw("console failed", "err", err)
			return 1
		}
		return 0
	case cmdExec:
		if code := repl.RunScript(ctx, service.SourceExec, script); code != device.StatusOK {
			return 1
		}
		return 0
	}

	return serve(ctx, cfg, services, metrics, log)
}

// openDB initializes the SQLite database using configuration.
func openDB(cfg *config.Config, log *logger.Logger) (*sql.DB, error) {
	if cfg.DBPath == "" {
		log.Infow("db.path not set in config; using in-memory database")
		cfg.DBPath = ":memory:"
	}
	return db.InitDB(cfg.DBPath)
}

// newPublisher connects to the MQTT broker, or returns a no-op publisher
// when none is configured.
func newPublisher(cfg *config.Config, log *logger.Logger) (telemetry.Publisher, error) {
	if cfg.MQTT.Broker == "" {
		log.Debugw("mqtt.broker not set; telemetry publishing disabled")
		return telemetry.NopPublisher{}, nil
	}
	p, err := telemetry.NewMQTTPublisher(telemetry.MQTTConfig{
		Broker:      cfg.MQTT.Broker,
		ClientID:    cfg.MQTT.ClientID,
		TopicPrefix: cfg.MQTT.TopicPrefix,
	})
	if err != nil {
		return nil, err
	}
	log.Infow("mqtt connected", "broker", cfg.MQTT.Broker, "prefix", cfg.MQTT.TopicPrefix)
	return p, nil
}

func serve(ctx context.Context, cfg *config.Config, services *service.Service, metrics *telemetry.Metrics, log *logger.Logger) int {
	if n, err := services.Operators(ctx); err != nil {
		log.Warnw("operator count failed", "err", err)
	} else if n == 0 {
		log.Warnw("no operators registered; create one via POST /auth/sign-up")
	}
	if cfg.Auth.SigningKey == "" {
		log.Warnw("auth.signing_key not set; sign-in and protected routes will fail")
	}

	// heartbeat stops with ctx
	go services.Heartbeat.Run(ctx, cfg.MQTT.Heartbeat)

	apiHandler := handlers.NewHandler(services, log).
		WithMetrics(metrics.Handler()).
		WithAllowedOrigins(cfg.WS.AllowedOrigins)
	srv := server.New(cfg.Port, apiHandler.InitRoutes())

	errc := make(chan error, 1)
	go func() {
		log.Infow("http server listening", "addr", srv.Addr())
		errc <- srv.Run()
	}()

	select {
	case err := <-errc:
		if err != nil {
			log.Errorw("error starting server", "err", err)
			return 1
		}
		return 0
	case <-ctx.Done():
	}

	log.Infow("shutting down server...")

	// allow in-flight requests to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
		return 1
	}
	return 0
}
