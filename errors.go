package canvas

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrUnknownNodeType    = errors.New("unknown node type")
	ErrNodeNotFound       = errors.New("node not found")
	ErrConnectionNotFound = errors.New("connection not found")
	ErrTemplateNotFound   = errors.New("template not found")
	ErrNotConnecting      = errors.New("no connection is being drawn")
	ErrDuplicateID        = errors.New("duplicate id")
)

// Kind classifies a problem found in the graph.
type Kind int

const (
	// StructuralInvariantViolation is a broken graph invariant,
	// such as a dangling connection endpoint.
	StructuralInvariantViolation Kind = iota
	// RuleViolation is a failed validation rule on a single element.
	RuleViolation
)

func (k Kind) String() string {
	if k == RuleViolation {
		return "rule violation"
	}
	return "structural invariant violation"
}

type Severity int

const (
	Warning Severity = iota
	Error
)

func (s Severity) String() string {
	if s == Error {
		return "error"
	}
	return "warning"
}

// Issue is a problem reported by workflow validation.
// Issues are informational: the engine never corrects them.
type Issue struct {
	Kind      Kind
	Severity  Severity
	ElementID string
	Code      string
	Message   string
}

func (i Issue) String() string {
	if i.ElementID == "" {
		return fmt.Sprintf("%s: %s", i.Severity, i.Message)
	}
	return fmt.Sprintf("%s: %s: %s", i.Severity, i.ElementID, i.Message)
}

// ValidationError is a rule violation on a node or connection.
type ValidationError struct {
	ElementID string
	Rule      string
	Message   string
	At        time.Time
}

func (e *ValidationError) Error() string {
	if e.ElementID == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.ElementID, e.Message)
}

// ErrorLog holds the current validation errors of each element,
// oldest element first. Setting an element's errors to an empty
// list removes it. When the log holds more than its capacity,
// the oldest elements are dropped.
type ErrorLog struct {
	capacity int
	order    []string
	byID     map[string][]ValidationError
}

func NewErrorLog(capacity int) *ErrorLog {
	if capacity < 1 {
		capacity = 100
	}
	return &ErrorLog{capacity: capacity, byID: map[string][]ValidationError{}}
}

// Set replaces the errors recorded for id.
func (l *ErrorLog) Set(id string, errs []ValidationError) {
	l.remove(id)
	if len(errs) == 0 {
		return
	}
	l.order = append(l.order, id)
	l.byID[id] = append([]ValidationError{}, errs...)
	for len(l.order) > l.capacity {
		delete(l.byID, l.order[0])
		l.order = l.order[1:]
	}
}

// Append adds one error for id, keeping earlier ones.
func (l *ErrorLog) Append(e ValidationError) {
	errs := append(l.Get(e.ElementID), e)
	l.Set(e.ElementID, errs)
}

func (l *ErrorLog) Get(id string) []ValidationError {
	return append([]ValidationError(nil), l.byID[id]...)
}

// Clear removes the errors recorded for id.
func (l *ErrorLog) Clear(id string) {
	l.remove(id)
}

// Reset removes every entry.
func (l *ErrorLog) Reset() {
	l.order = nil
	l.byID = map[string][]ValidationError{}
}

func (l *ErrorLog) Len() int {
	return len(l.order)
}

// All returns every error, oldest element first.
func (l *ErrorLog) All() []ValidationError {
	var out []ValidationError
	for _, id := range l.order {
		out = append(out, l.byID[id]...)
	}
	return out
}

func (l *ErrorLog) remove(id string) {
	if _, ok := l.byID[id]; !ok {
		return
	}
	delete(l.byID, id)
	for i, existing := range l.order {
		if existing == id {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
}
