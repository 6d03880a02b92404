package errtranslator

import (
	"encoding/json"
	"strings"
)

// extended result codes, see https://www.sqlite.org/rescode.html
var sqliteErrCodes = map[int]error{
	2067: ErrDuplicatedKey,      // SQLITE_CONSTRAINT_UNIQUE
	1555: ErrDuplicatedKey,      // SQLITE_CONSTRAINT_PRIMARYKEY
	1299: ErrNotNullViolation,   // SQLITE_CONSTRAINT_NOTNULL
	787:  ErrForeignKeyViolated, // SQLITE_CONSTRAINT_FOREIGNKEY
}

// primary code SQLITE_CONSTRAINT, for connections without extended codes
const sqliteConstraint = 19

var sqliteConstraintMessages = map[string]error{
	"UNIQUE constraint failed":      ErrDuplicatedKey,
	"NOT NULL constraint failed":    ErrNotNullViolation,
	"FOREIGN KEY constraint failed": ErrForeignKeyViolated,
}

type SqliteErrTranslator struct{}

type SqliteErr struct {
	Code         int `json:"Code"`
	ExtendedCode int `json:"ExtendedCode"`
	SystemErrno  int `json:"SystemErrno"`
}

func (s *SqliteErrTranslator) Translate(err error) error {
	// modernc.org/sqlite keeps its fields private and reports the extended
	// code through a method
	if coder, ok := err.(interface{ Code() int }); ok {
		if kind, ok := sqliteErrCodes[coder.Code()]; ok {
			return translated(kind, coder.Code(), err.Error(), err)
		}
		if coder.Code()&0xff == sqliteConstraint {
			for message, kind := range sqliteConstraintMessages {
				if strings.Contains(err.Error(), message) {
					return translated(kind, coder.Code(), err.Error(), err)
				}
			}
		}
		return err
	}

	parsedErr, marshalErr := json.Marshal(err)
	if marshalErr != nil {
		return err
	}

	var sqliteErr SqliteErr
	unmarshalErr := json.Unmarshal(parsedErr, &sqliteErr)
	if unmarshalErr != nil {
		return err
	}

	if kind, ok := sqliteErrCodes[sqliteErr.ExtendedCode]; ok {
		return translated(kind, sqliteErr.ExtendedCode, err.Error(), err)
	}

	return err
}
