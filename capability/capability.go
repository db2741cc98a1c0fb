// Package capability routes tool output to the handler matching the tool's
// declared output capability.
//
// A capability is immutable metadata set when a tool is registered, not
// per-invocation. New tool kinds are added by registering one new handler —
// never by branching inside the runner or inside existing tools. Unknown
// capabilities are rejected when a graph is compiled, so dispatch at run time
// cannot encounter one.
package capability

import "fmt"

// Capability is the declared output-routing category of a tool.
type Capability string

const (
	None     Capability = "none"
	Browser  Capability = "browser"
	File     Capability = "file"
	Realtime Capability = "realtime"
	Todo     Capability = "todo"
)

// All returns the closed set of known capabilities.
func All() []Capability {
	return []Capability{None, Browser, File, Realtime, Todo}
}

// Parse converts a string into a Capability. The empty string parses as None
// so tool definitions may omit the field.
func Parse(s string) (Capability, error) {
	switch c := Capability(s); c {
	case "":
		return None, nil
	case None, Browser, File, Realtime, Todo:
		return c, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownCapability, s)
	}
}
