package errors

import (
	"context"
	stderrs "errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// pgState is how one SQLSTATE maps onto an ErrorCode and the retry policy
type pgState struct {
	code  ErrorCode
	retry bool
}

// exact SQLSTATEs first, then two character classes
var (
	pgStates = map[string]pgState{
		"23502": {code: ErrorCodeValidation}, // not_null_violation
		"23514": {code: ErrorCodeValidation}, // check_violation
		"22P02": {code: ErrorCodeInvalidArgument},
		"25006": {code: ErrorCodeUnavailable},              // read_only_sql_transaction
		"57P03": {code: ErrorCodeUnavailable, retry: true}, // cannot_connect_now
		"40001": {code: ErrorCodeDB, retry: true},          // serialization_failure
		"40P01": {code: ErrorCodeDB, retry: true},          // deadlock_detected
		"55P03": {code: ErrorCodeDB, retry: true},          // lock_not_available
	}
	pgClasses = map[string]pgState{
		"08": {code: ErrorCodeUnavailable, retry: true}, // connection_exception
		"53": {code: ErrorCodeUnavailable},              // insufficient_resources
	}
)

// pgx reports some rollbacks as text only
var pgRetryText = []string{
	"commit unexpectedly resulted in rollback",
	"deadlock detected",
	"could not serialize access",
	"canceling statement due to lock timeout",
	"terminating connection due to administrator command",
}

func classify(pgErr *pgconn.PgError) pgState {
	if st, ok := pgStates[pgErr.Code]; ok {
		return st
	}
	if len(pgErr.Code) == 5 {
		if st, ok := pgClasses[pgErr.Code[:2]]; ok {
			return st
		}
	}
	return pgState{code: ErrorCodeDB}
}

// DBErrorCode maps a Postgres error to an ErrorCode
// ok is false when err carries no *pgconn.PgError
func DBErrorCode(err error) (ErrorCode, bool) {
	var pgErr *pgconn.PgError
	if !stderrs.As(err, &pgErr) {
		return ErrorCodeUnknown, false
	}
	return classify(pgErr).code, true
}

// FromPostgres wraps err with its mapped code, ErrorCodeDB for anything that is not a PgError
func FromPostgres(err error, msg string) error {
	if err == nil {
		return nil
	}
	code, ok := DBErrorCode(err)
	if !ok {
		code = ErrorCodeDB
	}
	return Wrap(err, code, msg)
}

// FromPostgresf is FromPostgres with a formatted message
func FromPostgresf(err error, format string, a ...any) error {
	return FromPostgres(err, fmt.Sprintf(format, a...))
}

// IsRetryable reports whether a database error is contention or a dropped connection
// Cancellation never is
func IsRetryable(err error) bool {
	if err == nil || stderrs.Is(err, context.Canceled) || stderrs.Is(err, context.DeadlineExceeded) {
		return false
	}
	var pgErr *pgconn.PgError
	if stderrs.As(err, &pgErr) {
		return classify(pgErr).retry
	}
	s := strings.ToLower(Root(err).Error())
	for _, frag := range pgRetryText {
		if strings.Contains(s, frag) {
			return true
		}
	}
	return false
}
