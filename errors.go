package abarorm

import (
	"errors"

	"github.com/abarorm/abarorm/errtranslator"
	"github.com/abarorm/abarorm/logger"
)

var (
	// ErrRecordNotFound record not found error
	ErrRecordNotFound = logger.ErrRecordNotFound
	// ErrInvalidConfig missing or inconsistent connection parameters
	ErrInvalidConfig = errors.New("invalid database config")
	// ErrConnection the database rejected the connection
	ErrConnection = errors.New("database connection failed")
	// ErrInvalidField unknown field or lookup
	ErrInvalidField = errors.New("invalid field")
	// ErrEmptyValues update without values
	ErrEmptyValues = errors.New("no values to update")
	// ErrEmptySlice bulk create without records
	ErrEmptySlice = errors.New("empty slice found")
	// ErrMissingWhereClause missing where clause
	ErrMissingWhereClause = errors.New("WHERE conditions required")
	// ErrInvalidPagination page or page size below one
	ErrInvalidPagination = errors.New("page and page size must be at least 1")
	// ErrUnregisteredModel a relation points at a model that was never registered
	ErrUnregisteredModel = errors.New("unregistered model")
	// ErrUnsupportedRelation no reverse relation with that name
	ErrUnsupportedRelation = errors.New("unsupported relations")
	// ErrDuplicatedKey occurs when there is a unique key constraint violation
	ErrDuplicatedKey = errtranslator.ErrDuplicatedKey
	// ErrNotNullViolation occurs when a NOT NULL constraint is violated
	ErrNotNullViolation = errtranslator.ErrNotNullViolation
	// ErrForeignKeyViolated occurs when there is a foreign key constraint violation
	ErrForeignKeyViolated = errtranslator.ErrForeignKeyViolated
)
