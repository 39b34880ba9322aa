package announcements

import (
	"fmt"

	"github.com/rotisserie/eris"

	"announcements/app/internal/platform/timestamp"
)

var (
	// ErrNotFound indicates the requested announcement or category does not exist.
	ErrNotFound = eris.New("not found")
	// ErrDuplicateCategory indicates a category with the derived slug already exists.
	ErrDuplicateCategory = eris.New("category already exists")
	// ErrCategoryNotFound indicates a write referenced an unknown category slug.
	ErrCategoryNotFound = eris.New("category does not exist")
	// ErrValidation indicates rejected input.
	ErrValidation = eris.New("invalid input")
	// ErrMalformedTimestamp indicates a stored timestamp could not be decoded.
	ErrMalformedTimestamp = timestamp.ErrMalformed
)

// ConstraintViolationError carries a database constraint rejection that has no
// more specific classification. The engine error is kept verbatim.
type ConstraintViolationError struct {
	Err error
}

func (e *ConstraintViolationError) Error() string {
	if e.Err == nil {
		return "constraint violation"
	}
	return fmt.Sprintf("constraint violation: %s", e.Err.Error())
}

func (e *ConstraintViolationError) Unwrap() error {
	return e.Err
}

func validationErrorf(format string, args ...any) error {
	return eris.Wrapf(ErrValidation, format, args...)
}
