package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrNoActiveOrder is returned when a bill is closed for a table with nothing open.
	ErrNoActiveOrder = errors.New("no active order for table")
	// ErrDuplicateSubmission is returned by a ledger when the submission id was already recorded.
	ErrDuplicateSubmission = errors.New("order submission already recorded")
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func NewValidationError(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

func TableNotFound(id int) error {
	return &NotFoundError{Entity: "table", ID: strconv.Itoa(id)}
}

func OrderNotFound(id string) error {
	return &NotFoundError{Entity: "order", ID: id}
}

func ProductNotFound(id string) error {
	return &NotFoundError{Entity: "product", ID: id}
}

// PartialCommitError reports that the ledger write succeeded but the table
// write did not. The table stays flagged until it is reconciled. For a
// recorded order Submission_id is the key a client must resend on retry.
type PartialCommitError struct {
	Op            string
	Table_id      int
	Order_ids     []string
	Submission_id string
	Err           error
}

func (e *PartialCommitError) Error() string {
	return fmt.Sprintf("%s: partial commit on table %d (orders %s): %v",
		e.Op, e.Table_id, strings.Join(e.Order_ids, ","), e.Err)
}

func (e *PartialCommitError) Unwrap() error { return e.Err }

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsPartialCommit(err error) bool {
	var pc *PartialCommitError
	return errors.As(err, &pc)
}
