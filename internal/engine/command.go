/*
PURPOSE:
  Builds the exact command line used to invoke the engine executables.
  A command is an ordered token list: [prefix] script [flag] config.

REQUIREMENTS:
  User-specified:
  - `backend/fit -c config.json` style invocations.
  - Empty prefix/flag tokens are simply omitted (per original PxS behavior).

  Implementation-discovered:
  - The joined string gets echoed into logs, so keep tokens unmodified.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine/estimator.go
  - Consumed by: internal/engine/process.go

ERROR HANDLING:
  - Errors on empty script or config path. Nothing else is validated;
    a bad path surfaces later as ExecutableNotFound.

IMPLEMENTATION RULES:
  - Pure function. No side effects, deterministic given inputs.
  - Command is immutable once built; one Command per invocation.

USAGE:
  cmd, err := engine.BuildCommand("backend/fit", "/tmp/config.json", "", "-c")

SELF-HEALING INSTRUCTIONS:
  - If the engine grows new flags, extend BuildCommand rather than
    mutating a built Command.

RELATED FILES:
  - internal/engine/process.go

MAINTENANCE:
  - Update if the engine's CLI contract changes.
*/

package engine

import (
	"fmt"
	"strings"
)

// Command is an immutable argument vector for one engine invocation.
type Command struct {
	args []string
}

// BuildCommand assembles the argument vector for an engine invocation.
// scriptPrefix (e.g. an interpreter) and configFlag (e.g. "-c") are optional;
// when empty they are left out entirely.
func BuildCommand(scriptFname, configFname, scriptPrefix, configFlag string) (Command, error) {
	if scriptFname == "" {
		return Command{}, fmt.Errorf("command builder: script path must not be empty")
	}
	if configFname == "" {
		return Command{}, fmt.Errorf("command builder: config path must not be empty")
	}

	var args []string
	if scriptPrefix != "" {
		args = append(args, scriptPrefix)
	}
	args = append(args, scriptFname)
	if configFlag != "" {
		args = append(args, configFlag)
	}
	args = append(args, configFname)

	return Command{args: args}, nil
}

// Args returns a copy of the argument vector.
func (c Command) Args() []string {
	out := make([]string, len(c.args))
	copy(out, c.args)
	return out
}

// String joins the tokens with spaces, suitable for echoing into a log.
func (c Command) String() string {
	return strings.Join(c.args, " ")
}
