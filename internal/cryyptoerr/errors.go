// Package cryyptoerr defines the closed error taxonomy shared by every
// façade, the key lifecycle engine, the JWT subsystem, and the vault.
// Call sites should use errors.As to recover a *Error and switch on Kind
// rather than comparing against package-level sentinels, since several
// constructors carry structured fields (expected/actual sizes, key ids).
package cryyptoerr

import (
	"errors"
	"fmt"
)

// Kind enumerates the closed set of error categories from spec.md §7.
type Kind int

const (
	KindUnknown Kind = iota

	// Validation
	KindInvalidKey
	KindInvalidKeySize
	KindInvalidNonceSize
	KindInvalidParameters
	KindDataTooShort
	KindUnsupportedAlgorithm

	// Crypto
	KindEncryptionFailed
	KindDecryptionFailed
	KindAuthenticationFailed
	KindInvalidSignature
	KindAlgorithmMismatch

	// Keys
	KindKeyNotFound
	KindKeyVersionTooOld
	KindKeyDerivationFailed
	KindKeyRotationFailed

	// JWT
	KindTokenExpired
	KindTokenNotYetValid
	KindInvalidClaims
	KindMalformed

	// Vault
	KindVaultLocked
	KindItemNotFound
	KindTransactionAlreadyCommitted
	KindTransactionAlreadyRolledBack

	// I/O and integration
	KindIO
	KindSerializationError
	KindProvider
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindInvalidKey:
		return "InvalidKey"
	case KindInvalidKeySize:
		return "InvalidKeySize"
	case KindInvalidNonceSize:
		return "InvalidNonceSize"
	case KindInvalidParameters:
		return "InvalidParameters"
	case KindDataTooShort:
		return "DataTooShort"
	case KindUnsupportedAlgorithm:
		return "UnsupportedAlgorithm"
	case KindEncryptionFailed:
		return "EncryptionFailed"
	case KindDecryptionFailed:
		return "DecryptionFailed"
	case KindAuthenticationFailed:
		return "AuthenticationFailed"
	case KindInvalidSignature:
		return "InvalidSignature"
	case KindAlgorithmMismatch:
		return "AlgorithmMismatch"
	case KindKeyNotFound:
		return "KeyNotFound"
	case KindKeyVersionTooOld:
		return "KeyVersionTooOld"
	case KindKeyDerivationFailed:
		return "KeyDerivationFailed"
	case KindKeyRotationFailed:
		return "KeyRotationFailed"
	case KindTokenExpired:
		return "TokenExpired"
	case KindTokenNotYetValid:
		return "TokenNotYetValid"
	case KindInvalidClaims:
		return "InvalidClaims"
	case KindMalformed:
		return "Malformed"
	case KindVaultLocked:
		return "VaultLocked"
	case KindItemNotFound:
		return "ItemNotFound"
	case KindTransactionAlreadyCommitted:
		return "TransactionAlreadyCommitted"
	case KindTransactionAlreadyRolledBack:
		return "TransactionAlreadyRolledBack"
	case KindIO:
		return "Io"
	case KindSerializationError:
		return "SerializationError"
	case KindProvider:
		return "Provider"
	case KindInternal:
		return "Internal"
	default:
		return "Unknown"
	}
}

// Error is the concrete type behind every error this module returns through
// typed façades. Fields is an open bag of structured context (e.g.
// {"expected": 32, "actual": 16}) rendered into Error() for human readers.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]any
	Wrapped error
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		if e.Message == "" {
			return e.Kind.String()
		}
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s %v", e.Kind, e.Message, e.Fields)
}

func (e *Error) Unwrap() error { return e.Wrapped }

// Is allows errors.Is(err, cryyptoerr.New(KindVaultLocked, "")) to match on Kind alone.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Kind == e.Kind
	}
	return false
}

// New builds a bare *Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds a *Error of the given kind wrapping an underlying cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Wrapped: cause}
}

// WithFields attaches structured context and returns the same *Error for chaining.
func (e *Error) WithFields(fields map[string]any) *Error {
	e.Fields = fields
	return e
}

// KindOf extracts the Kind of err if it (or something it wraps) is a *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Convenience constructors mirroring the spec.md §7 taxonomy exactly.

func InvalidKey(msg string) *Error { return New(KindInvalidKey, msg) }

func InvalidKeySize(expected, actual int) *Error {
	return New(KindInvalidKeySize, "invalid key size").WithFields(map[string]any{
		"expected": expected, "actual": actual,
	})
}

func InvalidNonceSize(expected, actual int) *Error {
	return New(KindInvalidNonceSize, "invalid nonce size").WithFields(map[string]any{
		"expected": expected, "actual": actual,
	})
}

func InvalidParameters(msg string) *Error { return New(KindInvalidParameters, msg) }

func DataTooShort(minimum, actual int) *Error {
	return New(KindDataTooShort, "data too short").WithFields(map[string]any{
		"minimum": minimum, "actual": actual,
	})
}

func UnsupportedAlgorithm(name string) *Error {
	return New(KindUnsupportedAlgorithm, fmt.Sprintf("unsupported algorithm %q", name))
}

func EncryptionFailed(cause error) *Error {
	return Wrap(KindEncryptionFailed, "encryption failed", cause)
}

func DecryptionFailed() *Error {
	// Deliberately carries no cause: never distinguish nonce/ciphertext/tag
	// failure modes (spec.md §7 — security-sensitive behavior).
	return New(KindDecryptionFailed, "decryption failed")
}

func AuthenticationFailed() *Error { return New(KindAuthenticationFailed, "authentication failed") }

func InvalidSignature() *Error { return New(KindInvalidSignature, "invalid signature") }

func AlgorithmMismatch(expected, got string) *Error {
	return New(KindAlgorithmMismatch, "algorithm mismatch").WithFields(map[string]any{
		"expected": expected, "got": got,
	})
}

func KeyNotFound(id string, version int) *Error {
	return New(KindKeyNotFound, "key not found").WithFields(map[string]any{
		"id": id, "version": version,
	})
}

func KeyVersionTooOld(actual, required int) *Error {
	return New(KindKeyVersionTooOld, "key version too old").WithFields(map[string]any{
		"actual": actual, "required": required,
	})
}

func KeyDerivationFailed(cause error) *Error {
	return Wrap(KindKeyDerivationFailed, "key derivation failed", cause)
}

func KeyRotationFailed(cause error) *Error {
	return Wrap(KindKeyRotationFailed, "key rotation failed", cause)
}

func TokenExpired() *Error { return New(KindTokenExpired, "token expired") }

func TokenNotYetValid() *Error { return New(KindTokenNotYetValid, "token not yet valid") }

func InvalidClaims(msg string) *Error { return New(KindInvalidClaims, msg) }

func Malformed(msg string) *Error { return New(KindMalformed, msg) }

func VaultLocked() *Error { return New(KindVaultLocked, "vault is locked") }

func ItemNotFound(key string) *Error {
	return New(KindItemNotFound, "item not found").WithFields(map[string]any{"key": key})
}

func TransactionAlreadyCommitted() *Error {
	return New(KindTransactionAlreadyCommitted, "transaction already committed")
}

func TransactionAlreadyRolledBack() *Error {
	return New(KindTransactionAlreadyRolledBack, "transaction already rolled back")
}

func IO(cause error) *Error { return Wrap(KindIO, "io error", cause) }

func SerializationError(cause error) *Error {
	return Wrap(KindSerializationError, "serialization error", cause)
}

func Provider(msg string, cause error) *Error { return Wrap(KindProvider, msg, cause) }

func Internal(msg string, cause error) *Error { return Wrap(KindInternal, msg, cause) }
