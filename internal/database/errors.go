package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

type ErrorClass int

const (
	ErrorClassPermanent ErrorClass = iota
	ErrorClassTransient
	ErrorClassDeadlock
	ErrorClassSerialization
)

const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
	codeQueryCanceled        = "57014"
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeNotNullViolation     = "23502"
	codeCheckViolation       = "23514"
)

func ClassifyError(err error) ErrorClass {
	if err == nil {
		return ErrorClassPermanent
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeSerializationFailure:
			return ErrorClassSerialization
		case codeDeadlockDetected:
			return ErrorClassDeadlock
		case codeLockNotAvailable, codeQueryCanceled:
			return ErrorClassTransient
		case codeUniqueViolation, codeForeignKeyViolation, codeNotNullViolation, codeCheckViolation:
			return ErrorClassPermanent
		}
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ErrorClassPermanent
	}

	return ErrorClassPermanent
}

func IsRetryable(err error) bool {
	class := ClassifyError(err)
	return class == ErrorClassTransient ||
		class == ErrorClassDeadlock ||
		class == ErrorClassSerialization
}

// ViolatedConstraint returns the constraint name when err is an integrity
// violation with the given SQLSTATE code.
func ViolatedConstraint(err error, code string) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == code {
		return pqErr.Constraint, true
	}
	return "", false
}

func IsForeignKeyViolation(err error) bool {
	_, ok := ViolatedConstraint(err, codeForeignKeyViolation)
	return ok
}

func IsUniqueViolation(err error) bool {
	_, ok := ViolatedConstraint(err, codeUniqueViolation)
	return ok
}

// Storage marks err as a persistence failure while keeping the driver error reachable.
func Storage(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}

var (
	ErrStorage              = errors.New("storage failure")
	ErrUserNotFound         = errors.New("user not found")
	ErrProductNotFound      = errors.New("product not found")
	ErrOrderNotFound        = errors.New("order not found")
	ErrAddressNotFound      = errors.New("address not found")
	ErrCreditCardNotFound   = errors.New("credit card not found")
	ErrEmailTaken           = errors.New("email already registered")
	ErrOptimisticLockFailed = errors.New("optimistic lock failed")
	ErrSettingsMissing      = errors.New("site settings not configured")
)
