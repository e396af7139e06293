package template

import (
	"errors"
	"strings"
)

var (
	ErrTemplateNotFound = errors.New("prompt template not found")
	ErrMissingVariables = errors.New("missing required variables")
)

// MissingVariablesError 列出全部缺失的必填变量，顺序与模板声明一致。
type MissingVariablesError struct {
	Names []string
}

func (e *MissingVariablesError) Error() string {
	return "Missing required variables: " + strings.Join(e.Names, ", ")
}

// Is 使 errors.Is(err, ErrMissingVariables) 成立。
func (e *MissingVariablesError) Is(target error) bool {
	return target == ErrMissingVariables
}
