package store

import "errors"

// 领域错误，调用方通过 errors.Is 判断类型
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("group not found")
	ErrNotMember  = errors.New("not a member of this group")
	ErrGroupFull  = errors.New("group has reached maximum capacity")
)
