package domain

import "strings"

// Sentinel marks a message as a command rather than chat.
const Sentinel = "/"

// Invocation is the transient, parsed form of a command message.
// Name keeps the sentinel and is matched verbatim against the registry.
type Invocation struct {
	Raw  string
	Name string
	Args []string
}

// IsCommand reports whether a trimmed message body targets the command layer.
func IsCommand(text string) bool {
	return strings.HasPrefix(text, Sentinel)
}

// ParseInvocation splits a command message into its name and
// whitespace-delimited arguments.
func ParseInvocation(text string) Invocation {
	fields := strings.Fields(text)
	inv := Invocation{Raw: text}
	if len(fields) == 0 {
		return inv
	}
	inv.Name = fields[0]
	inv.Args = fields[1:]
	return inv
}
