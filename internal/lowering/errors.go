package lowering

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ludo-technologies/coroflat/internal/parser"
)

// ErrUnsupported is wrapped by errors for statements this pass cannot
// split, such as a switch containing a suspension point.
var ErrUnsupported = errors.New("unsupported construct")

// InvariantError reports that a function could not be lowered. It carries
// the statement that triggered the failure.
type InvariantError struct {
	Node   *parser.Node
	Reason string
	Err    error
}

// Error implements the error interface
func (e *InvariantError) Error() string {
	var b strings.Builder
	if e.Node != nil {
		b.WriteString(e.Node.Location.String())
		b.WriteString(": ")
	}
	b.WriteString(e.Reason)
	if e.Node != nil {
		b.WriteString(" (")
		b.WriteString(string(e.Node.Type))
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error
func (e *InvariantError) Unwrap() error {
	return e.Err
}

func invariant(node *parser.Node, format string, args ...any) error {
	return &InvariantError{Node: node, Reason: fmt.Sprintf(format, args...)}
}

func unsupported(node *parser.Node, format string, args ...any) error {
	return &InvariantError{Node: node, Reason: fmt.Sprintf(format, args...), Err: ErrUnsupported}
}
