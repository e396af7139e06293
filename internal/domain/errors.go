package domain

import "errors"

var (
	// ErrNotFound 表示仓储查询结果为空。
	ErrNotFound = errors.New("domain: not found")
	// ErrConflict 表示唯一约束冲突。
	ErrConflict = errors.New("domain: conflict")
)
