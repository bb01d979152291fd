package shell

import (
	"errors"
	"fmt"
	"strings"

	"digital_microscope/internal/device"

	"github.com/google/shlex"
)

const helpCommand = "help"

// Handler runs a leaf command. args holds the tokens following the command
// name; handlers ignore tokens they do not need.
type Handler func(out *Output, args []string) error

// Command is a node of the command tree. A node has either a Handler or
// Subcommands.
type Command struct {
	Name        string
	Help        string
	Handler     Handler
	Subcommands []*Command

	index map[string]*Command
}

// Output collects the lines printed by a command.
type Output struct {
	lines []string
}

// Printf appends one line.
func (o *Output) Printf(format string, a ...any) {
	o.lines = append(o.lines, fmt.Sprintf(format, a...))
}

// Lines returns the printed lines.
func (o *Output) Lines() []string {
	return o.lines
}

// Result is the outcome of one command line.
type Result struct {
	// Command is the resolved command path, e.g. "objective change". Empty
	// when the line could not be resolved.
	Command string
	Code    int
	Output  []string
	Err     error
}

// OK reports whether the command succeeded.
func (r Result) OK() bool { return r.Code == device.StatusOK }

// Shell dispatches command lines to a command tree.
type Shell struct {
	root *Command
}

// New builds a shell over the given top-level commands.
func New(commands ...*Command) *Shell {
	root := &Command{Subcommands: commands}
	buildIndex(root)
	return &Shell{root: root}
}

func buildIndex(c *Command) {
	if len(c.Subcommands) == 0 {
		return
	}
	c.index = make(map[string]*Command, len(c.Subcommands))
	for _, sub := range c.Subcommands {
		c.index[sub.Name] = sub
		buildIndex(sub)
	}
}

// Names returns the top-level command names, including help.
func (s *Shell) Names() []string {
	names := make([]string, 0, len(s.root.Subcommands)+1)
	for _, c := range s.root.Subcommands {
		names = append(names, c.Name)
	}
	return append(names, helpCommand)
}

// Exec tokenizes and runs one line. An empty line yields a zero Result.
func (s *Shell) Exec(line string) Result {
	args, err := shlex.Split(line)
	if err != nil {
		return Result{
			Code:   device.StatusInvalidArgument,
			Output: []string{fmt.Sprintf("Failed: %v", err)},
			Err:    fmt.Errorf("%w: %v", device.ErrInvalidArgument, err),
		}
	}
	return s.ExecArgs(args)
}

// ExecArgs runs an already tokenized command.
func (s *Shell) ExecArgs(args []string) Result {
	if len(args) == 0 {
		return Result{}
	}
	if args[0] == helpCommand {
		return Result{Command: helpCommand, Output: s.Help()}
	}

	node := s.root
	var path []string
	for len(node.Subcommands) > 0 {
		if len(args) == 0 {
			p := strings.Join(path, " ")
			err := fmt.Errorf("%w: %s: missing subcommand", device.ErrInvalidArgument, p)
			return Result{
				Code: device.StatusInvalidArgument,
				Output: []string{
					p + ": missing subcommand",
					"Usage: " + p + " <" + strings.Join(childNames(node), "|") + ">",
				},
				Err: err,
			}
		}
		next, ok := node.index[args[0]]
		if !ok {
			return Result{
				Code:   device.StatusInvalidArgument,
				Output: []string{args[0] + ": command not found"},
				Err:    fmt.Errorf("%w: %s: command not found", device.ErrInvalidArgument, args[0]),
			}
		}
		path = append(path, next.Name)
		node = next
		args = args[1:]
	}

	res := Result{Command: strings.Join(path, " ")}
	if node.Handler == nil {
		res.Code = device.StatusInvalidArgument
		res.Err = fmt.Errorf("%w: %s: no handler", device.ErrInvalidArgument, res.Command)
		res.Output = []string{res.Command + ": command not found"}
		return res
	}

	var out Output
	err := node.Handler(&out, args)
	res.Output = out.Lines()
	res.Err = err
	res.Code = device.StatusCode(err)
	return res
}

// Help renders the command tree, one command per line.
func (s *Shell) Help() []string {
	lines := []string{"Available commands:"}
	var walk func(cmds []*Command, depth int)
	walk = func(cmds []*Command, depth int) {
		for _, c := range cmds {
			indent := strings.Repeat("  ", depth+1)
			lines = append(lines, fmt.Sprintf("%s%-*s %s", indent, 14-2*depth, c.Name, c.Help))
			walk(c.Subcommands, depth+1)
		}
	}
	walk(s.root.Subcommands, 0)
	return lines
}

func childNames(c *Command) []string {
	names := make([]string, 0, len(c.Subcommands))
	for _, sub := range c.Subcommands {
		names = append(names, sub.Name)
	}
	return names
}

// IsDenied reports whether a result was refused by the device state.
func (r Result) IsDenied() bool {
	return errors.Is(r.Err, device.ErrPermissionDenied)
}
