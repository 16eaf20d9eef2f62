package compressed

import (
	"errors"
	"fmt"

	"xdao.co/sas/accumulator"
	"xdao.co/sas/registry"
)

// Kind is a stable category for programmatic error handling.
//
// Callers should branch on Kind, Code or RuleID rather than matching error
// strings.
type Kind string

const (
	KindAuthorization Kind = "Authorization"
	KindSchema        Kind = "Schema"
	KindAddressing    Kind = "Addressing"
	KindProof         Kind = "Proof"
	KindResource      Kind = "Resource"
)

// Code is the numeric attestation service error code.
type Code uint32

const (
	CodeInvalidCredential      Code = 0
	CodeInvalidSchema          Code = 1
	CodeInvalidAttestation     Code = 2
	CodeInvalidAuthority       Code = 3
	CodeInvalidSchemaDataType  Code = 4
	CodeSignerNotAuthorized    Code = 5
	CodeInvalidAttestationData Code = 6
	CodeInvalidEventAuthority  Code = 7
	CodeInvalidTokenAccount    Code = 10
	CodeSchemaPaused           Code = 11
	CodeInvalidAddressTree     Code = 12

	// Codes without a service error number.
	CodeInvalidInstructionData Code = 100
	CodeProofRejected          Code = 101
	CodeAccumulatorUnavailable Code = 102
)

var codeNames = map[Code]string{
	CodeInvalidCredential:      "InvalidCredential",
	CodeInvalidSchema:          "InvalidSchema",
	CodeInvalidAttestation:     "InvalidAttestation",
	CodeInvalidAuthority:       "InvalidAuthority",
	CodeInvalidSchemaDataType:  "InvalidSchemaDataType",
	CodeSignerNotAuthorized:    "SignerNotAuthorized",
	CodeInvalidAttestationData: "InvalidAttestationData",
	CodeInvalidEventAuthority:  "InvalidEventAuthority",
	CodeInvalidTokenAccount:    "InvalidTokenAccount",
	CodeSchemaPaused:           "SchemaPaused",
	CodeInvalidAddressTree:     "InvalidAddressTree",
	CodeInvalidInstructionData: "InvalidInstructionData",
	CodeProofRejected:          "ProofRejected",
	CodeAccumulatorUnavailable: "AccumulatorUnavailable",
}

func (c Code) String() string {
	if n, ok := codeNames[c]; ok {
		return n
	}
	return fmt.Sprintf("Code(%d)", uint32(c))
}

// Rule identifiers.
const (
	RuleSignerNotAuthorized = "SAS-AUTH-001"
	RuleCredentialMismatch  = "SAS-AUTH-002"
	RuleTokenized           = "SAS-AUTH-003"
	RuleIncorrectAuthority  = "SAS-AUTH-004"
	RuleSchemaPaused        = "SAS-SCHEMA-001"
	RuleExpired             = "SAS-SCHEMA-002"
	RuleLayout              = "SAS-SCHEMA-003"
	RuleSchemaRecord        = "SAS-SCHEMA-004"
	RuleAddressTree         = "SAS-ADDR-001"
	RuleCompressedAddress   = "SAS-ADDR-002"
	RuleDuplicateAddress    = "SAS-ADDR-003"
	RulePlainAddress        = "SAS-ADDR-004"
	RuleProof               = "SAS-PROOF-001"
	RuleAccumulator         = "SAS-PROOF-002"
	RulePayload             = "SAS-RES-001"
	RuleDataSize            = "SAS-RES-002"
	RuleBatchCount          = "SAS-RES-003"
	RuleLedger              = "SAS-RES-004"
)

// Error is the structured error returned by every engine operation.
//
// Message is intended for humans; do not match on it.
type Error struct {
	Kind    Kind
	Code    Code
	RuleID  string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func newError(kind Kind, code Code, ruleID, msg string) error {
	return &Error{Kind: kind, Code: code, RuleID: ruleID, Message: msg}
}

func wrapError(kind Kind, code Code, ruleID, msg string, cause error) error {
	if cause == nil {
		return newError(kind, code, ruleID, msg)
	}
	return &Error{Kind: kind, Code: code, RuleID: ruleID, Message: msg + ": " + cause.Error(), Cause: cause}
}

// IsKind reports whether err is (or wraps) a *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// CodeOf returns the code of a structured error and whether err carries one.
func CodeOf(err error) (Code, bool) {
	var e *Error
	if !errors.As(err, &e) {
		return 0, false
	}
	return e.Code, true
}

// RuleID returns the stable RuleID for a structured error, or "" if unknown.
func RuleID(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.RuleID
}

// fromRegistry classifies a record loading or authorization failure.
// mismatch is the code used when a record sits at the wrong address.
func fromRegistry(err error, mismatch Code) error {
	switch {
	case errors.Is(err, registry.ErrSignerNotAuthorized):
		return wrapError(KindAuthorization, CodeSignerNotAuthorized, RuleSignerNotAuthorized, "signer not authorized", err)
	case errors.Is(err, registry.ErrIncorrectAuthority):
		return wrapError(KindAuthorization, CodeInvalidAuthority, RuleIncorrectAuthority, "incorrect authority", err)
	case errors.Is(err, registry.ErrAddressMismatch):
		return wrapError(KindAddressing, mismatch, RulePlainAddress, "record address mismatch", err)
	case errors.Is(err, registry.ErrInvalidCredential):
		return wrapError(KindAuthorization, CodeInvalidCredential, RuleCredentialMismatch, "invalid credential", err)
	case errors.Is(err, registry.ErrInvalidSchema):
		return wrapError(KindSchema, CodeInvalidSchema, RuleSchemaRecord, "invalid schema", err)
	case errors.Is(err, registry.ErrInvalidAttestation):
		return wrapError(KindAddressing, CodeInvalidAttestation, RulePlainAddress, "invalid attestation", err)
	default:
		return wrapError(KindResource, mismatch, RuleLedger, "ledger read failed", err)
	}
}

// fromAccumulator classifies an accumulator failure. The cause is kept so
// errors.Is matches the accumulator sentinels.
func fromAccumulator(err error) error {
	if accumulator.IsProofFailure(err) {
		return wrapError(KindProof, CodeProofRejected, RuleProof, "accumulator rejected transition", err)
	}
	return wrapError(KindProof, CodeAccumulatorUnavailable, RuleAccumulator, "accumulator call failed", err)
}
