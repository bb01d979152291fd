package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"digital_microscope/internal/device"
	"digital_microscope/internal/logger"
	"digital_microscope/internal/service"
	"digital_microscope/internal/shell"

	"github.com/peterh/liner"
)

// Prompt mirrors the device UART shell.
const Prompt = "uart:~$ "

// Executor runs command lines; service.Console satisfies it.
type Executor interface {
	Exec(ctx context.Context, source, line string) (shell.Result, error)
	Commands() []string
}

type Options struct {
	HistoryFile string
	Verbose     bool
}

// REPL is the interactive operator console.
type REPL struct {
	exec Executor
	out  io.Writer
	log  *logger.Logger
	opts Options
}

func New(exec Executor, out io.Writer, log *logger.Logger, opts Options) *REPL {
	if log == nil {
		log = logger.Nop()
	}
	return &REPL{exec: exec, out: out, log: log, opts: opts}
}

// Run reads lines until exit, quit, Ctrl-C or Ctrl-D.
func (r *REPL) Run(ctx context.Context) error {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(r.complete)
	r.loadHistory(line)
	defer r.saveHistory(line)

	fmt.Fprintln(r.out, `Type "help" for commands, Ctrl-D to quit.`)
	for ctx.Err() == nil {
		input, err := line.Prompt(Prompt)
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			fmt.Fprintln(r.out)
			return nil
		}
		if err != nil {
			return fmt.Errorf("read line: %w", err)
		}
		if strings.TrimSpace(input) != "" {
			line.AppendHistory(input)
		}
		if r.Handle(ctx, input) {
			return nil
		}
	}
	return nil
}

// Handle runs one console line and reports whether the console should exit.
func (r *REPL) Handle(ctx context.Context, input string) bool {
	input = strings.TrimSpace(input)
	switch input {
	case "":
		return false
	case "exit", "quit":
		return true
	}
	r.Exec(ctx, service.SourceConsole, input)
	return false
}

// Exec runs a line, prints its output and returns the status code.
func (r *REPL) Exec(ctx context.Context, source, input string) int {
	res, err := r.exec.Exec(ctx, source, input)
	if err != nil {
		r.log.Warnw("console_side_effects_failed", "err", err, "line", input)
	}
	for _, l := range res.Output {
		fmt.Fprintln(r.out, l)
	}
	if r.opts.Verbose && res.Code != 0 {
		fmt.Fprintf(r.out, "(exit code %d)\n", res.Code)
	}
	return res.Code
}

// RunScript runs lines in order and stops at the first failing one,
// returning its status code. Blank lines and lines starting with # are
// skipped.
func (r *REPL) RunScript(ctx context.Context, source string, lines []string) int {
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l == "" || strings.HasPrefix(l, "#") {
			continue
		}
		if err := ctx.Err(); err != nil {
			r.log.Warnw("console_script_canceled", "err", err, "line", l)
			return device.StatusInvalidArgument
		}
		if code := r.Exec(ctx, source, l); code != device.StatusOK {
			return code
		}
	}
	return device.StatusOK
}

// ReadScript reads one command line per input line.
func ReadScript(in io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return lines, nil
}

// complete offers top-level command names for the first word only. Names
// match case-sensitively, as dispatch does.
func (r *REPL) complete(line string) (c []string) {
	if strings.ContainsAny(line, " \t") {
		return nil
	}
	for _, name := range append(r.exec.Commands(), "exit", "quit") {
		if strings.HasPrefix(name, line) {
			c = append(c, name)
		}
	}
	sort.Strings(c)
	return c
}

func (r *REPL) loadHistory(line *liner.State) {
	if r.opts.HistoryFile == "" {
		return
	}
	f, err := os.Open(r.opts.HistoryFile)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			r.log.Warnw("console_history_read_failed", "err", err, "file", r.opts.HistoryFile)
		}
		return
	}
	defer f.Close()
	if _, err := line.ReadHistory(f); err != nil {
		r.log.Warnw("console_history_read_failed", "err", err, "file", r.opts.HistoryFile)
	}
}

func (r *REPL) saveHistory(line *liner.State) {
	if r.opts.HistoryFile == "" {
		return
	}
	f, err := os.Create(r.opts.HistoryFile)
	if err != nil {
		r.log.Warnw("console_history_write_failed", "err", err, "file", r.opts.HistoryFile)
		return
	}
	defer f.Close()
	if _, err := line.WriteHistory(f); err != nil {
		r.log.Warnw("console_history_write_failed", "err", err, "file", r.opts.HistoryFile)
	}
}
