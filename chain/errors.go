package chain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode classifies contract failures so callers can switch on a typed
// kind instead of matching revert strings.
type ErrorCode string

const (
	CodeAlreadyFinalized ErrorCode = "AGREEMENT_ALREADY_FINALIZED"
	CodeAlreadySigned    ErrorCode = "ALREADY_SIGNED"
	CodeTokenNotFound    ErrorCode = "TOKEN_NOT_FOUND"
	CodeProvider         ErrorCode = "PROVIDER_ERROR"
)

// ContractError is a classified failure from the contract gateway.
type ContractError struct {
	Code    ErrorCode
	Message string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("chain: %s: %s", e.Code, e.Message)
}

// IsAlreadyFinalized reports whether err is the benign "already finalized"
// failure which callers treat as success.
func IsAlreadyFinalized(err error) bool {
	var cerr *ContractError
	return errors.As(err, &cerr) && cerr.Code == CodeAlreadyFinalized
}

// ErrorMessage extracts a human-readable message suitable for API responses.
func ErrorMessage(err error) string {
	var cerr *ContractError
	if errors.As(err, &cerr) {
		return cerr.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

// classify maps a gateway error code, or failing that a revert-reason
// substring from older gateway versions, onto an ErrorCode.
func classify(code, message string) ErrorCode {
	switch ErrorCode(code) {
	case CodeAlreadyFinalized, CodeAlreadySigned, CodeTokenNotFound, CodeProvider:
		return ErrorCode(code)
	}
	switch {
	case strings.Contains(message, "AgreementAlreadyFinalized"):
		return CodeAlreadyFinalized
	case strings.Contains(message, "AlreadySigned"):
		return CodeAlreadySigned
	case strings.Contains(message, "nonexistent token"):
		return CodeTokenNotFound
	default:
		return CodeProvider
	}
}
