// Package maincmd implements cirstage's CLI dispatch, in the shape of the
// teacher's internal/maincmd.Cmd: a flag-tagged struct parsed by
// github.com/mna/mainer's Parser, reflection-based subcommand lookup
// (buildCmds), and mainer.CancelOnSignal providing a context.Context that
// is passed to each subcommand; none of the subcommands consults it.
package maincmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/mna/mainer"

	"github.com/mna/cirstage/lang/diag"
)

const binName = "cirstage"

var (
	shortUsage = fmt.Sprintf(`
usage: %s [<option>...] <command> <path>...
Run '%[1]s --help' for details.
`, binName)

	longUsage = fmt.Sprintf(`usage: %s [<option>...] <command> <path>...
       %[1]s -h|--help
       %[1]s -v|--version

Self-hosted staged C compiler.

The <command> can be one of:
       tokenize                  Scan the given files and print their
                                 token stream.
       parse                     Parse the given files (running any
                                 @f(args) staging triggers they contain)
                                 and report success or the first error.
       build                     Parse and fully resolve the given files
                                 into IR, without executing or emitting
                                 anything.
       run                       Build the given files and JIT-execute
                                 their "main" function.
       emit                      Build the given files and print the
                                 rendered C translation unit to stdout.

Valid flag options are:
       -h --help                 Show this help and exit.
       -v --version              Print version and exit.

More information on the cirstage repository:
       https://github.com/mna/cirstage
`, binName)
)

// Cmd is mainer's entrypoint type: its exported fields are populated from
// flags, and its methods matching buildCmds' signature become subcommands.
type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool `flag:"h,help"`
	Version bool `flag:"v,version"`

	args  []string
	flags map[string]bool
	cmdFn func(context.Context, mainer.Stdio, []string) error
}

func (c *Cmd) SetArgs(args []string) {
	c.args = args
}

func (c *Cmd) SetFlags(flags map[string]bool) {
	c.flags = flags
}

func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}

	if len(c.args) == 0 {
		return errors.New("no command specified")
	}

	cmdName := c.args[0]

	commands := buildCmds(c)
	c.cmdFn = commands[cmdName]
	if c.cmdFn == nil {
		return fmt.Errorf("unknown command: %s", c.args[0])
	}

	if len(c.args[1:]) == 0 {
		return fmt.Errorf("%s: at least one file must be provided", cmdName)
	}

	return nil
}

func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{
		EnvVars:   false, // leaving this here for now in case some flags can use this
		EnvPrefix: binName + "_",
	}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return mainer.InvalidArgs
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return mainer.Success

	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.Success
	}

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)
	if err := c.runCmd(ctx, stdio); err != nil {
		// each command takes care of printing its errors, just return with an error code
		return mainer.Failure
	}
	return mainer.Success
}

// runCmd invokes the resolved subcommand, recovering a diag.Bug panic
// (spec.md §7: an internal invariant violation, never a user-facing
// diagnostic) into a printed stack trace and an error return instead of
// crashing the process.
func (c *Cmd) runCmd(ctx context.Context, stdio mainer.Stdio) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if rerr := diag.Recover(r); rerr != nil {
				fmt.Fprintln(stdio.Stderr, rerr)
				err = rerr
				return
			}
		}
	}()
	return c.cmdFn(ctx, stdio, c.args[1:])
}

// valid commands are those that take a mainer.Stdio and a slice of strings as
// input, and return an error as output.
func buildCmds(v interface{}) map[string]func(context.Context, mainer.Stdio, []string) error {
	cmds := make(map[string]func(context.Context, mainer.Stdio, []string) error)

	vv := reflect.ValueOf(v)
	vt := vv.Type()
	for i := 0; i < vt.NumMethod(); i++ {
		m := vt.Method(i)
		mt := m.Type

		// must take 4 parameters (including receiver) and return 1
		if mt.NumIn() != 4 || mt.NumOut() != 1 {
			continue
		}

		if rt := mt.Out(0); rt.Kind() != reflect.Interface || rt.Name() != "error" {
			continue
		}
		if p0 := mt.In(0); p0.Kind() != reflect.Ptr || p0.Elem().Name() != "Cmd" {
			continue
		}
		if p1 := mt.In(1); p1.Kind() != reflect.Interface || p1.Name() != "Context" {
			continue
		}
		if p2 := mt.In(2); p2.Kind() != reflect.Struct || p2.Name() != "Stdio" {
			continue
		}
		if p3 := mt.In(3); p3.Kind() != reflect.Slice || p3.Elem().Name() != "string" {
			continue
		}
		cmds[strings.ToLower(m.Name)] = vv.Method(i).Interface().(func(context.Context, mainer.Stdio, []string) error)
	}
	return cmds
}
