// Package qerrors enumerates the error taxonomy of spec.md §7 as sentinel
// errors, each carrying the stable numeric code the JSON-RPC surface
// returns to callers. Internal code wraps these with
// github.com/pkg/errors.Wrap to attach a stack trace without losing
// errors.Is/As compatibility with the sentinels below.
package qerrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Code is a stable numeric JSON-RPC error code, analogous to the codes the
// teacher's RPC layer assigns internal errors before returning them to
// clients.
type Code int

const (
	CodeDuplicateTransaction Code = -32000 - iota
	CodeValidationFailed
	CodeMempoolFull
	CodeAccountLimitExceeded
	CodeNonceGap
	CodeInsufficientBalance
	CodeInvalidSignature
	CodeInvalidNonce
	CodeShardNotFound
	CodeShardNotManaged
	CodeNotCrossShardTransaction
	CodeCodeAlreadyUsed
	CodeCodeOwnershipMismatch
	CodeRateLimitExceeded
	CodeInvalidOperation
	CodeSecurityError
	CodeBlockchainUnavailable
)

// Taxonomy is implemented by every sentinel below so RPC handlers can map
// any returned error to its JSON-RPC code via a single type switch.
type Taxonomy interface {
	error
	Code() Code
}

type sentinel struct {
	code Code
	msg  string
}

func (s *sentinel) Error() string { return s.msg }
func (s *sentinel) Code() Code    { return s.code }

var (
	ErrDuplicateTransaction    = &sentinel{CodeDuplicateTransaction, "duplicate transaction"}
	ErrValidationFailed        = &sentinel{CodeValidationFailed, "validation failed"}
	ErrMempoolFull              = &sentinel{CodeMempoolFull, "mempool full"}
	ErrAccountLimitExceeded     = &sentinel{CodeAccountLimitExceeded, "per-account mempool limit exceeded"}
	ErrInvalidSignature         = &sentinel{CodeInvalidSignature, "invalid signature"}
	ErrInvalidNonce             = &sentinel{CodeInvalidNonce, "invalid nonce"}
	ErrShardNotFound            = &sentinel{CodeShardNotFound, "shard not found"}
	ErrShardNotManaged          = &sentinel{CodeShardNotManaged, "shard not managed by this node"}
	ErrNotCrossShardTransaction = &sentinel{CodeNotCrossShardTransaction, "not a cross-shard transaction"}
	ErrCodeAlreadyUsed          = &sentinel{CodeCodeAlreadyUsed, "activation code already used by a different wallet"}
	ErrCodeOwnershipMismatch    = &sentinel{CodeCodeOwnershipMismatch, "activation code ownership mismatch"}
	ErrRateLimitExceeded        = &sentinel{CodeRateLimitExceeded, "rate limit exceeded"}
	ErrInvalidOperation         = &sentinel{CodeInvalidOperation, "invalid operation"}
	ErrSecurityError            = &sentinel{CodeSecurityError, "security violation"}
	ErrBlockchainUnavailable    = &sentinel{CodeBlockchainUnavailable, "blockchain unavailable"}
)

// NonceGap carries the expected/got pair spec.md §7 requires.
type NonceGap struct {
	Expected, Got uint64
}

func (e *NonceGap) Error() string {
	return fmt.Sprintf("nonce gap: expected %d, got %d", e.Expected, e.Got)
}
func (e *NonceGap) Code() Code { return CodeNonceGap }

// InsufficientBalance carries the have/need pair spec.md §7 requires.
type InsufficientBalance struct {
	Have, Need uint64
}

func (e *InsufficientBalance) Error() string {
	return fmt.Sprintf("insufficient balance: have %d, need %d", e.Have, e.Need)
}
func (e *InsufficientBalance) Code() Code { return CodeInsufficientBalance }

// Wrap attaches file/line stack context via github.com/pkg/errors while
// preserving errors.Is/As compatibility with the sentinel being wrapped.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, msg)
}

// CodeOf extracts the JSON-RPC code for any error produced by this package,
// unwrapping pkg/errors wrappers, defaulting to CodeValidationFailed for
// errors not part of the taxonomy.
func CodeOf(err error) Code {
	var t Taxonomy
	if errors.As(err, &t) {
		return t.Code()
	}
	return CodeValidationFailed
}
