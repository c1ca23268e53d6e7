package tasks

import (
	"fmt"
	"strings"
)

// Flag is the done state of a task. It always encodes as a JSON boolean
// and decodes booleans as well as the legacy 0/1 integer form.
type Flag bool

func (f *Flag) UnmarshalJSON(b []byte) error {
	switch strings.Trim(strings.TrimSpace(string(b)), `"`) {
	case "true", "1":
		*f = true
	case "false", "0", "", "null":
		*f = false
	default:
		return fmt.Errorf("invalid done flag %s", b)
	}
	return nil
}
