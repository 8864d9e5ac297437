package wire

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// ProtocolVersion is this build's wire protocol version, stamped onto
// every outgoing Envelope. Bumped on any breaking change to the Envelope
// or payload shapes in this package.
const ProtocolVersion = "1.0.0"

// compatConstraint accepts any peer on the same major version, mirroring
// semver's usual "^1.0.0" compatibility promise: additive (minor/patch)
// changes on either side never break the other end.
var compatConstraint = mustConstraint("^" + ProtocolVersion)

func mustConstraint(c string) *semver.Constraints {
	parsed, err := semver.NewConstraint(c)
	if err != nil {
		panic(err) // unreachable: ProtocolVersion is a constant, valid semver literal
	}
	return parsed
}

// IsCompatibleVersion reports whether a peer advertising version v can
// interoperate with this build. An empty v (an older peer predating
// version stamping) is treated as compatible, since every version prior
// to this field's introduction spoke an identical wire shape.
func IsCompatibleVersion(v string) (bool, error) {
	if v == "" {
		return true, nil
	}
	parsed, err := semver.NewVersion(v)
	if err != nil {
		return false, fmt.Errorf("wire: malformed protocol version %q: %w", v, err)
	}
	return compatConstraint.Check(parsed), nil
}
