// Command envecho reports whether named environment variables or properties
// are set, printing "<name>: <value>" or "<name>: -" for each lookup.
package main

import (
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/alecthomas/kingpin.v2"

	"greetprobe/internal/shim"
)

type arguments struct {
	lookup shim.Lookup
	names  []string
}

func (a *arguments) execute(output io.Writer) error {
	return shim.Echo(output, a.lookup, a.names...)
}

// hasCommand reports whether args name a command or ask for help. Without
// one, kingpin prints usage and exits 0 on its own.
func hasCommand(args []string) bool {
	for i := 0; i < len(args); i++ {
		switch arg := args[i]; {
		case arg == "--help" || arg == "--help-long" || arg == "--help-man":
			return true
		case arg == "-D" || arg == "--property":
			i++
		case strings.HasPrefix(arg, "-"):
		default:
			return true
		}
	}
	return false
}

func parseArgs(args []string) (*arguments, error) {
	if !hasCommand(args) {
		return nil, errors.New("not enough arguments, a command is required")
	}

	app := kingpin.New("envecho", "Prints the value of environment variables or properties, or '-' when unset.")
	properties := app.Flag("property", "A property visible to prop lookups, as key=value (repeatable).").Short('D').Strings()

	envCmd := app.Command("env", "Echo environment variables.")
	envNames := envCmd.Arg("names", "Environment variable names.").Required().Strings()

	propCmd := app.Command("prop", "Echo properties given with -D.")
	propNames := propCmd.Arg("names", "Property names.").Required().Strings()

	agentCmd := app.Command("verify-agent-loaded", "Echo the property set by the instrumentation agent.")

	command, err := app.Parse(args)
	if err != nil {
		return nil, err
	}

	props, err := shim.ParseProperties(*properties)
	if err != nil {
		return nil, err
	}

	switch command {
	case envCmd.FullCommand():
		return &arguments{lookup: shim.EnvLookup, names: *envNames}, nil
	case propCmd.FullCommand():
		return &arguments{lookup: shim.PropertyLookup(props), names: *propNames}, nil
	case agentCmd.FullCommand():
		return &arguments{lookup: shim.PropertyLookup(props), names: []string{shim.AgentLoadedProperty}}, nil
	default:
		return nil, errors.Errorf("unknown command: %s", command)
	}
}

func main() {
	args, err := parseArgs(os.Args[1:])
	if err != nil {
		kingpin.Fatalf("failed to parse arguments, %s, try --help", err)
	}
	if err := args.execute(os.Stdout); err != nil {
		kingpin.Fatalf("%s", err)
	}
}
