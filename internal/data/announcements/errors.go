package announcements

import (
	"errors"
	"strings"

	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"

	domain "announcements/app/internal/domain/announcements"
)

type constraintKind int

const (
	constraintNone constraintKind = iota
	constraintUnique
	constraintForeignKey
	constraintOther
)

// classifyConstraint inspects an engine error for a constraint rejection.
func classifyConstraint(err error) constraintKind {
	if err == nil {
		return constraintNone
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return constraintUnique
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return constraintForeignKey
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		if sqliteErr.Code != sqlite3.ErrConstraint {
			return constraintNone
		}
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return constraintUnique
		case sqlite3.ErrConstraintForeignKey:
			return constraintForeignKey
		default:
			return constraintOther
		}
	}

	message := strings.ToLower(err.Error())
	switch {
	case strings.Contains(message, "unique constraint"):
		return constraintUnique
	case strings.Contains(message, "foreign key constraint"):
		return constraintForeignKey
	case strings.Contains(message, "constraint failed"):
		return constraintOther
	default:
		return constraintNone
	}
}

// constraintViolation wraps err verbatim when it is an otherwise unclassified
// constraint rejection, and returns it unchanged otherwise.
func constraintViolation(err error) error {
	if classifyConstraint(err) == constraintNone {
		return err
	}
	return &domain.ConstraintViolationError{Err: err}
}
