// Package guard detects use of single-goroutine structures from other goroutines.
package guard

import (
	"fmt"
	"sync/atomic"

	"github.com/petermattis/goid"
)

// Owner remembers the goroutine that first claimed it.
// The zero value is unclaimed; a nil *Owner accepts every caller.
type Owner struct {
	gid  atomic.Int64
	name string
}

// New creates an owner guard labelled name for error messages.
func New(name string) *Owner {
	return &Owner{name: name}
}

// Check claims the owner for the calling goroutine on first use and reports
// an error when a different goroutine calls later.
func (o *Owner) Check() error {
	if o == nil {
		return nil
	}
	gid := goid.Get()
	if o.gid.CompareAndSwap(0, gid) {
		return nil
	}
	if owner := o.gid.Load(); owner != gid {
		return fmt.Errorf("%s is owned by goroutine %d, used from goroutine %d", o.name, owner, gid)
	}
	return nil
}
