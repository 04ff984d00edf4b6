package kanban

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Priority is a card priority level.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ErrInvalidPriority is returned for priorities other than high, medium or low.
var ErrInvalidPriority = errors.New("priority must be one of high, medium, low")

// ParsePriority normalizes form input. Case and surrounding space are ignored;
// the empty string is the form default, medium.
func ParsePriority(s string) (Priority, error) {
	switch p := Priority(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PriorityMedium, nil
	case PriorityHigh, PriorityMedium, PriorityLow:
		return p, nil
	default:
		return "", fmt.Errorf("%w: got %q", ErrInvalidPriority, s)
	}
}

// UnmarshalJSON accepts any casing, so "High" from older clients decodes as high.
func (p *Priority) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParsePriority(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// UnmarshalYAML is the yaml.v3 counterpart of UnmarshalJSON.
func (p *Priority) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParsePriority(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
