// Package shim implements the verification shim used by outside test
// scaffolding: it reports whether a named environment variable or property is
// set, one line per lookup, and has no other side effects.
package shim

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// AgentLoadedProperty is set by the instrumentation agent when it has run.
const AgentLoadedProperty = "greetprobe.agent.loaded"

// Absent is printed in place of a value that is not set.
const Absent = "-"

// Lookup resolves a name to its value and whether it is set.
type Lookup func(name string) (string, bool)

// EnvLookup reads environment variables.
func EnvLookup(name string) (string, bool) {
	return os.LookupEnv(name)
}

// PropertyLookup resolves names against a fixed set of properties.
func PropertyLookup(props map[string]string) Lookup {
	return func(name string) (string, bool) {
		v, ok := props[name]
		return v, ok
	}
}

// ParseProperties turns key=value pairs into a property map. A pair without
// '=' sets the key to the empty string.
func ParseProperties(pairs []string) (map[string]string, error) {
	props := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, _ := strings.Cut(pair, "=")
		if key == "" {
			return nil, errors.Errorf("invalid property %q: empty name", pair)
		}
		props[key] = value
	}
	return props, nil
}

// FormatLine renders a single lookup result.
func FormatLine(name, value string, ok bool) string {
	if !ok {
		value = Absent
	}
	return name + ": " + value
}

// Echo writes the lookup result for names to w. All but the last name are
// written on one line as "name: value; " with unset values shown as null; the
// last name ends the line in the FormatLine form.
func Echo(w io.Writer, lookup Lookup, names ...string) error {
	if len(names) == 0 {
		return errors.New("no names to echo")
	}

	var b strings.Builder
	for _, name := range names[:len(names)-1] {
		value, ok := lookup(name)
		if !ok {
			value = "null"
		}
		fmt.Fprintf(&b, "%s: %s; ", name, value)
	}
	last := names[len(names)-1]
	value, ok := lookup(last)
	b.WriteString(FormatLine(last, value, ok))
	b.WriteByte('\n')

	_, err := io.WriteString(w, b.String())
	return errors.WithMessage(err, "failed to write lookup result")
}
