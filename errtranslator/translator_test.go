package errtranslator

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

type codedErr struct {
	code int
	msg  string
}

func (e codedErr) Error() string { return e.msg }
func (e codedErr) Code() int     { return e.code }

func TestSqliteErrTranslator(t *testing.T) {
	translator := &SqliteErrTranslator{}

	cases := []struct {
		err  error
		kind error
	}{
		{codedErr{2067, "UNIQUE constraint failed: category.title"}, ErrDuplicatedKey},
		{codedErr{1555, "UNIQUE constraint failed: category.id"}, ErrDuplicatedKey},
		{codedErr{1299, "NOT NULL constraint failed: post.title"}, ErrNotNullViolation},
		{codedErr{787, "FOREIGN KEY constraint failed"}, ErrForeignKeyViolated},
		{codedErr{19, "constraint failed: NOT NULL constraint failed: post.title"}, ErrNotNullViolation},
	}

	for _, c := range cases {
		t.Run(c.err.Error(), func(t *testing.T) {
			err := translator.Translate(c.err)
			assert.ErrorIs(t, err, c.kind)

			var coded codedErr
			assert.ErrorAs(t, err, &coded)
		})
	}

	plain := codedErr{1, "SQL logic error"}
	assert.Equal(t, error(plain), translator.Translate(plain))

	other := errors.New("boom")
	assert.Equal(t, other, translator.Translate(other))
}

func TestMysqlErrTranslator(t *testing.T) {
	translator := &MysqlErrTranslator{}

	cases := []struct {
		number uint16
		kind   error
	}{
		{1062, ErrDuplicatedKey},
		{1048, ErrNotNullViolation},
		{1138, ErrNotNullViolation},
		{1364, ErrNotNullViolation},
		{1451, ErrForeignKeyViolated},
		{1452, ErrForeignKeyViolated},
	}

	for _, c := range cases {
		t.Run(fmt.Sprint(c.number), func(t *testing.T) {
			driverErr := &mysql.MySQLError{Number: c.number, Message: "message"}
			err := translator.Translate(driverErr)
			assert.ErrorIs(t, err, c.kind)
			assert.ErrorIs(t, err, driverErr)
			assert.Contains(t, err.Error(), "message")
		})
	}

	driverErr := &mysql.MySQLError{Number: 1146, Message: "Table 'app.missing' doesn't exist"}
	assert.Equal(t, error(driverErr), translator.Translate(driverErr))
}

func TestPostgresErrTranslator(t *testing.T) {
	translator := &PostgresErrTranslator{}

	cases := []struct {
		code pq.ErrorCode
		kind error
	}{
		{"23505", ErrDuplicatedKey},
		{"23502", ErrNotNullViolation},
		{"23503", ErrForeignKeyViolated},
	}

	for _, c := range cases {
		t.Run(string(c.code), func(t *testing.T) {
			driverErr := &pq.Error{Code: c.code, Message: "message"}
			err := translator.Translate(driverErr)
			assert.ErrorIs(t, err, c.kind)

			var pqErr *pq.Error
			assert.ErrorAs(t, err, &pqErr)
			assert.Equal(t, c.code, pqErr.Code)
		})
	}

	driverErr := &pq.Error{Code: "42P01", Message: `relation "missing" does not exist`}
	assert.Equal(t, error(driverErr), translator.Translate(driverErr))
}
