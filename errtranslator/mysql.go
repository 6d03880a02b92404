package errtranslator

import "encoding/json"

var mysqlErrCodes = map[int]error{
	1062: ErrDuplicatedKey,      // ER_DUP_ENTRY
	1048: ErrNotNullViolation,   // ER_BAD_NULL_ERROR
	1138: ErrNotNullViolation,   // ER_INVALID_USE_OF_NULL
	1364: ErrNotNullViolation,   // ER_NO_DEFAULT_FOR_FIELD
	1451: ErrForeignKeyViolated, // ER_ROW_IS_REFERENCED_2
	1452: ErrForeignKeyViolated, // ER_NO_REFERENCED_ROW_2
}

type MysqlErrTranslator struct{}

type MysqlErr struct {
	Number  int    `json:"Number"`
	Message string `json:"Message"`
}

func (m *MysqlErrTranslator) Translate(err error) error {
	parsedErr, marshalErr := json.Marshal(err)
	if marshalErr != nil {
		return err
	}

	var mysqlErr MysqlErr
	unmarshalErr := json.Unmarshal(parsedErr, &mysqlErr)
	if unmarshalErr != nil {
		return err
	}

	if kind, ok := mysqlErrCodes[mysqlErr.Number]; ok {
		return translated(kind, mysqlErr.Number, mysqlErr.Message, err)
	}

	return err
}
