// Package errwrap contains the error helpers shared by the graph, editor and
// config packages.
package errwrap

import (
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// Wrapf adds context onto an existing error. If err is nil, nil is returned.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// Append safely joins err onto reterr. Either side may be nil, which makes it
// usable as an accumulating `reterr += err`.
func Append(reterr, err error) error {
	if reterr == nil {
		return err
	}
	if err == nil {
		return reterr
	}
	return multierror.Append(reterr, err)
}

// Flatten returns the individual errors inside a combined error. A nil error
// yields nil and a plain error yields a single element.
func Flatten(err error) []error {
	if err == nil {
		return nil
	}
	if merr, ok := err.(*multierror.Error); ok {
		return merr.WrappedErrors()
	}
	return []error{err}
}

// String returns err.Error(), or the empty string when err is nil.
func String(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
