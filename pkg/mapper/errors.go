package mapper

import (
	"errors"
	"fmt"
)

// ErrMissingParam - запись не содержит значения для параметра запроса
var ErrMissingParam = errors.New("missing statement parameter")

// ErrEmptyFilter - фильтр Select не пуст, но не задает ни одной колонки схемы
var ErrEmptyFilter = errors.New("filter matches no column")

// SchemaError - не удалось загрузить схему таблицы при создании маппера
type SchemaError struct {
	Table string
	Err   error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("failed to load schema for table %q: %v", e.Table, e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// PersistenceError - выполнение запроса завершилось ошибкой.
// Причина от драйвера доступна через errors.Unwrap.
type PersistenceError struct {
	Table string
	Op    Op
	Query string
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s on table %q failed: %v", e.Op, e.Table, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsSchemaError проверяет, что err (или любая обернутая ошибка) - SchemaError
func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}

// IsPersistenceError проверяет, что err (или любая обернутая ошибка) - PersistenceError
func IsPersistenceError(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
