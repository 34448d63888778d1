package audit

import (
	"strings"

	"github.com/casks-mutters/state-delta-audit/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"golang.org/x/crypto/sha3"
)

// NoChangeFingerprint is the textual fingerprint of an audit in which no slot changed. It is a marker for the empty
// set and not a digest of anything.
const NoChangeFingerprint = "0x0"

// Fingerprint summarizes the ordered list of changed slots of an audit. The zero value is the no-change marker.
type Fingerprint struct {
	digest common.Hash
	set    bool
}

// ComputeFingerprint returns the keccak-256 digest of the changed slots, each encoded as a 32-byte big-endian
// integer and concatenated in the order provided. Order and duplicates are significant. An empty list yields the
// no-change marker.
func ComputeFingerprint(changed []types.Slot) Fingerprint {
	if len(changed) == 0 {
		return Fingerprint{}
	}

	hasher := sha3.NewLegacyKeccak256()
	for _, slot := range changed {
		encoded := slot.Bytes32()
		hasher.Write(encoded[:])
	}
	return Fingerprint{digest: common.BytesToHash(hasher.Sum(nil)), set: true}
}

// ParseFingerprint parses the textual form produced by Fingerprint.String.
func ParseFingerprint(s string) (Fingerprint, error) {
	s = strings.TrimSpace(s)
	if s == NoChangeFingerprint {
		return Fingerprint{}, nil
	}

	b, err := hexutil.Decode(s)
	if err != nil {
		return Fingerprint{}, errors.Wrapf(err, "invalid fingerprint %q", s)
	}
	if len(b) != common.HashLength {
		return Fingerprint{}, errors.Errorf("invalid fingerprint %q: expected %d bytes, got %d", s, common.HashLength, len(b))
	}
	return Fingerprint{digest: common.BytesToHash(b), set: true}, nil
}

// IsNoChange indicates whether this is the no-change marker.
func (f Fingerprint) IsNoChange() bool {
	return !f.set
}

// Digest returns the keccak-256 digest, or false for the no-change marker.
func (f Fingerprint) Digest() (common.Hash, bool) {
	return f.digest, f.set
}

// Equal indicates whether two fingerprints are identical.
func (f Fingerprint) Equal(other Fingerprint) bool {
	return f.set == other.set && f.digest == other.digest
}

// String returns the 0x-prefixed hex digest, or NoChangeFingerprint.
func (f Fingerprint) String() string {
	if !f.set {
		return NoChangeFingerprint
	}
	return f.digest.Hex()
}

// MarshalText implements encoding.TextMarshaler.
func (f Fingerprint) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Fingerprint) UnmarshalText(text []byte) error {
	parsed, err := ParseFingerprint(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
