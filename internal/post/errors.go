package post

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNotFound is returned when a post id does not exist.
var ErrNotFound = errors.New("post not found")

// ValidationError maps form fields to a single human-readable message each.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, e.Fields[k])
	}
	return "validation failed: " + strings.Join(msgs, " ")
}

// Add records msg for field unless the field already has a message.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

// Empty reports whether no field failed.
func (e *ValidationError) Empty() bool { return len(e.Fields) == 0 }

// StorageError wraps a document-store or blob-store failure of a workflow step.
type StorageError struct {
	Op  string // create, update, delete, remove image, sync tags
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("Failed to %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
