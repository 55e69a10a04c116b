package bot

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseIDArg extracts a numeric ID from a command argument string.
func ParseIDArg(args string) (int64, error) {
	s := strings.TrimSpace(args)
	if s == "" {
		return 0, fmt.Errorf("ID is required")
	}
	id, err := strconv.ParseInt(strings.Fields(s)[0], 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid ID %q", s)
	}
	return id, nil
}

// ParseOptionalIDArg is ParseIDArg for commands where the ID may be omitted.
// ok is false when args is empty.
func ParseOptionalIDArg(args string) (id int64, ok bool, err error) {
	if strings.TrimSpace(args) == "" {
		return 0, false, nil
	}
	id, err = ParseIDArg(args)
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// ParseTextArg returns the trimmed free-text argument of a command, with runs
// of whitespace collapsed to a single space.
func ParseTextArg(args, what string) (string, error) {
	s := strings.Join(strings.Fields(args), " ")
	if s == "" {
		return "", fmt.Errorf("%s is required", what)
	}
	return s, nil
}
