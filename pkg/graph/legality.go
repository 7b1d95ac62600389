package graph

import (
	"errors"
	"fmt"
)

// ErrIllegalConnection is matched by every *IllegalConnectionError.
var ErrIllegalConnection = errors.New("illegal connection")

// IllegalConnectionError rejects a wire between incompatible node kinds.
type IllegalConnectionError struct {
	Source      NodeKind
	Destination NodeKind
}

func (e *IllegalConnectionError) Error() string {
	return fmt.Sprintf("illegal connection: %s output cannot feed %s input", e.Source, e.Destination)
}

// Is makes errors.Is(err, ErrIllegalConnection) hold.
func (e *IllegalConnectionError) Is(target error) bool {
	return target == ErrIllegalConnection
}

// MayConnect reports whether an output of a src node may be wired to an input
// of a dst node.
//
// Sinks accept any source. Integer and string sources have no inputs. Image
// show accepts only string sources. Expressions accept integer sources and
// other expressions. A sink has no outputs, so it is never a source.
func MayConnect(src, dst NodeKind) bool {
	if src == NodeSink {
		return false
	}
	switch dst {
	case NodeSink:
		return true
	case NodeImageShow:
		return src == NodeStringSource
	case NodeExpression:
		return src == NodeIntegerSource || src == NodeExpression
	}
	return false // integer and string sources, unknown kinds
}

// CheckConnection is MayConnect returning an *IllegalConnectionError.
func CheckConnection(src, dst NodeKind) error {
	if !MayConnect(src, dst) {
		return &IllegalConnectionError{Source: src, Destination: dst}
	}
	return nil
}
