// Package keys provides the ed25519 signer keys of credential authorities and
// authorized signers.
//
// Stable:
//   - Deterministic role-seed derivation and signed payload envelopes.
//
// Experimental:
//   - Filesystem-backed key storage (KeyStore). It is a local-first operator
//     utility and not part of the record formats.
package keys
