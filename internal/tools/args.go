package tools

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"
)

// present reports whether key was supplied with a non-null value.
func (a Args) present(key string) bool {
	v, ok := a[key]
	return ok && v != nil
}

func (a Args) str(key string) (string, error) {
	if !a.present(key) {
		return "", nil
	}
	s, err := cast.ToStringE(a[key])
	if err != nil {
		return "", fmt.Errorf("%w: %s must be a string", ErrInvalidArgument, key)
	}
	return strings.TrimSpace(s), nil
}

func (a Args) requireStr(key string) (string, error) {
	s, err := a.str(key)
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", fmt.Errorf("%w: %s is required", ErrInvalidArgument, key)
	}
	return s, nil
}

// integer accepts JSON numbers and numeric strings. Fractional values are
// rejected rather than truncated.
func (a Args) integer(key string) (int, error) {
	if !a.present(key) {
		return 0, nil
	}
	v := a[key]
	if _, ok := v.(bool); ok {
		return 0, fmt.Errorf("%w: %s must be an integer, got %v", ErrInvalidArgument, key, v)
	}
	if s, ok := v.(string); ok {
		v = strings.TrimSpace(s)
		if v == "" {
			return 0, nil
		}
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || f != float64(int(f)) {
		return 0, fmt.Errorf("%w: %s must be an integer, got %v", ErrInvalidArgument, key, a[key])
	}
	return int(f), nil
}

// blank reports whether key is absent, null or an all-space string.
func (a Args) blank(key string) bool {
	if !a.present(key) {
		return true
	}
	s, ok := a[key].(string)
	return ok && strings.TrimSpace(s) == ""
}

func (a Args) requireInteger(key string) (int, error) {
	if a.blank(key) {
		return 0, fmt.Errorf("%w: %s is required", ErrInvalidArgument, key)
	}
	return a.integer(key)
}

// atLeast is integer with a lower bound checked when a value was given.
func (a Args) atLeast(key string, floor int) (int, error) {
	n, err := a.integer(key)
	if err != nil {
		return 0, err
	}
	if !a.blank(key) && n < floor {
		return 0, fmt.Errorf("%w: %s must be at least %d, got %d", ErrInvalidArgument, key, floor, n)
	}
	return n, nil
}

func (a Args) boolean(key string) (bool, error) {
	if !a.present(key) {
		return false, nil
	}
	b, err := cast.ToBoolE(a[key])
	if err != nil {
		return false, fmt.Errorf("%w: %s must be a boolean, got %v", ErrInvalidArgument, key, a[key])
	}
	return b, nil
}
