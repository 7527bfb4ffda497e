package ledger

import "errors"

// ErrDestinationCollision reports that a ready entry already claims the
// computed destination path. The engine disambiguates destinations before
// insert, so hitting this is a logic fault and is never swallowed.
var ErrDestinationCollision = errors.New("destination already planned by another entry")

// ErrFingerprintCollision reports that a ready entry already claims the
// fingerprint. Duplicate detection runs before insert, so this likewise
// signals a logic fault rather than an expected duplicate.
var ErrFingerprintCollision = errors.New("fingerprint already held by a ready entry")
