package command

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseResult holds the parsed command name and arguments from a text line.
type ParseResult struct {
	// Command is the first word of the input, lowercased.
	Command string
	// Args are the remaining words after the command.
	Args []string
	// RawArgs is the raw text after the command (preserving spacing for rule texts).
	RawArgs string
}

// Parse splits a text line into a command and arguments.
//
// Postcondition: Returns a ParseResult. If line is empty, Command is empty.
func Parse(line string) ParseResult {
	line = strings.TrimSpace(line)
	if line == "" {
		return ParseResult{}
	}

	// Split at first space for the command word
	spaceIdx := strings.IndexByte(line, ' ')
	if spaceIdx < 0 {
		return ParseResult{
			Command: strings.ToLower(line),
		}
	}

	cmd := strings.ToLower(line[:spaceIdx])
	rest := strings.TrimSpace(line[spaceIdx+1:])

	var args []string
	if rest != "" {
		args = strings.Fields(rest)
	}

	return ParseResult{
		Command: cmd,
		Args:    args,
		RawArgs: rest,
	}
}

// IntArg parses argument i as a decimal integer.
//
// Postcondition: Returns an error when the argument is missing or not an integer.
func (p ParseResult) IntArg(i int) (int, error) {
	if i >= len(p.Args) {
		return 0, fmt.Errorf("missing argument %d", i+1)
	}
	n, err := strconv.Atoi(p.Args[i])
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", p.Args[i])
	}
	return n, nil
}

// TextAfter returns the raw argument text following the first n words, trimmed.
func (p ParseResult) TextAfter(n int) string {
	rest := p.RawArgs
	for i := 0; i < n; i++ {
		rest = strings.TrimSpace(rest)
		idx := strings.IndexAny(rest, " \t")
		if idx < 0 {
			return ""
		}
		rest = rest[idx+1:]
	}
	return strings.TrimSpace(rest)
}
