// Package validator checks structs tagged with `validate`. Failures come back
// as a field to message map keyed by the snake_case field name.
package validator

type Validator interface {
	Validate(data any) error
}
