package filechain

import (
	"fmt"
	"strings"
)

// MinCIDLength is the shortest accepted content identifier. A CIDv0 is 46
// characters; base32 CIDv1 strings are longer.
const MinCIDLength = 46

// cidPrefixes are the recognized content identifier prefixes: "Qm" for
// CIDv0 and the common base32 CIDv1 multihash prefixes.
var cidPrefixes = []string{"Qm", "bafy", "bafk", "bafz", "bafr"}

// ValidateCID checks a content identifier against the minimum length and
// the recognized prefix set. It returns an error wrapping ErrInvalidCID so
// callers can reject malformed values before spending network effort.
func ValidateCID(cid string) error {
	if cid == "" {
		return fmt.Errorf("%w: empty", ErrInvalidCID)
	}
	if len(cid) < MinCIDLength {
		return fmt.Errorf("%w: %q is shorter than %d characters", ErrInvalidCID, cid, MinCIDLength)
	}
	for _, prefix := range cidPrefixes {
		if strings.HasPrefix(cid, prefix) {
			return nil
		}
	}
	return fmt.Errorf("%w: %q has an unrecognized prefix", ErrInvalidCID, cid)
}
