package vfs

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// CoreVersion is the ABI this vfs package implements. A filesystem driver
// declares the range of core versions it was built against; MountFAT and
// MountRamfs refuse to attach a driver outside that range rather than risk silently running
// against fsops semantics it was never tested with.
var CoreVersion = semver.MustParse("1.0.0")

// Driver is implemented by filesystem constructors whose ABI compatibility
// should be checked before mounting.
type Driver interface {
	RequiredCoreVersion() string
}

// CheckCompat parses d's declared constraint and verifies CoreVersion
// satisfies it.
func CheckCompat(d Driver) error {
	c, err := semver.NewConstraint(d.RequiredCoreVersion())
	if err != nil {
		return fmt.Errorf("vfs: driver %T has an invalid ABI constraint %q: %w", d, d.RequiredCoreVersion(), err)
	}

	if !c.Check(CoreVersion) {
		return fmt.Errorf("vfs: driver %T requires core %s, have %s", d, d.RequiredCoreVersion(), CoreVersion)
	}

	return nil
}
