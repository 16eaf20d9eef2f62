package accumulator

import "errors"

var (
	ErrInvalidProof      = errors.New("accumulator: invalid proof")
	ErrStaleRoot         = errors.New("accumulator: stale root")
	ErrAddressExists     = errors.New("accumulator: address already exists")
	ErrLeafNotFound      = errors.New("accumulator: leaf not found")
	ErrLeafMismatch      = errors.New("accumulator: leaf mismatch")
	ErrWrongTree         = errors.New("accumulator: wrong address tree")
	ErrInvalidTransition = errors.New("accumulator: invalid transition")
	ErrUnavailable       = errors.New("accumulator: service unavailable")
)

// IsProofFailure reports whether err is one of the verifier's rejections, as
// opposed to a transport or availability failure.
func IsProofFailure(err error) bool {
	for _, target := range []error{ErrInvalidProof, ErrStaleRoot, ErrAddressExists, ErrLeafNotFound, ErrLeafMismatch, ErrWrongTree, ErrInvalidTransition} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
