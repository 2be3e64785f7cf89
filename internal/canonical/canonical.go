package canonical

import (
	"strings"

	"crowdtags/pkg/model"
)

// Canonicalize returns one key per action, in input order. An empty batch yields
// an empty, non-nil slice.
func Canonicalize(batch model.Batch) []string {
	keys := make([]string, 0, len(batch))
	for _, action := range batch {
		keys = append(keys, Key(action))
	}
	return keys
}

// Key returns the canonical key of a single action.
func Key(action model.Action) string {
	var b strings.Builder
	writeAction(&b, action.Sorted())
	return b.String()
}

// Decode parses a key back into an action.
func Decode(key string) (model.Action, error) {
	return model.ParseAction([]byte(key))
}

// Verify reports whether key is already in canonical form.
func Verify(key string) (bool, error) {
	action, err := Decode(key)
	if err != nil {
		return false, err
	}
	return Key(action) == key, nil
}
