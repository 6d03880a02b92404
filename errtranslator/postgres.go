package errtranslator

import "encoding/json"

var postgresErrCodes = map[string]error{
	"23505": ErrDuplicatedKey,      // unique_violation
	"23502": ErrNotNullViolation,   // not_null_violation
	"23503": ErrForeignKeyViolated, // foreign_key_violation
}

type PostgresErrTranslator struct{}

type PostgresErr struct {
	Code     string `json:"Code"`
	Severity string `json:"Severity"`
	Message  string `json:"Message"`
}

func (p *PostgresErrTranslator) Translate(err error) error {
	parsedErr, marshalErr := json.Marshal(err)
	if marshalErr != nil {
		return err
	}

	var postgresErr PostgresErr
	unmarshalErr := json.Unmarshal(parsedErr, &postgresErr)
	if unmarshalErr != nil {
		return err
	}

	if kind, ok := postgresErrCodes[postgresErr.Code]; ok {
		return translated(kind, postgresErr.Code, postgresErr.Message, err)
	}

	return err
}
