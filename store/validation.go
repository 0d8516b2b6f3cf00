package store

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

const (
	MinNameLen    = 3
	MaxNameLen    = 50
	MaxMembers    = 100
	MaxMessageLen = 1000
)

var validate = validator.New()

// trim 去除首尾空白，包括字节序标记 U+FEFF
func trim(text string) string {
	return strings.TrimFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || r == '\uFEFF'
	})
}

var (
	nameRule    = fmt.Sprintf("required,min=%d,max=%d", MinNameLen, MaxNameLen)
	contentRule = fmt.Sprintf("required,max=%d", MaxMessageLen)
)

// ValidateGroupName 去除首尾空白后校验群组名，返回处理后的名称
func ValidateGroupName(name string) (string, error) {
	trimmed := trim(name)
	if err := validate.Var(trimmed, nameRule); err != nil {
		if failedTag(err) == "required" {
			return "", fmt.Errorf("%w: group name is required", ErrValidation)
		}
		return "", fmt.Errorf("%w: group name must be between %d and %d characters",
			ErrValidation, MinNameLen, MaxNameLen)
	}
	return trimmed, nil
}

// ValidateDescription 描述不能为空，没有长度上限
func ValidateDescription(description string) (string, error) {
	trimmed := trim(description)
	if err := validate.Var(trimmed, "required"); err != nil {
		return "", fmt.Errorf("%w: description is required", ErrValidation)
	}
	return trimmed, nil
}

// ValidateMessageContent 去除首尾空白后校验消息内容
func ValidateMessageContent(content string) (string, error) {
	trimmed := trim(content)
	if err := validate.Var(trimmed, contentRule); err != nil {
		if failedTag(err) == "required" {
			return "", fmt.Errorf("%w: message content cannot be empty", ErrValidation)
		}
		return "", fmt.Errorf("%w: message content cannot exceed %d characters",
			ErrValidation, MaxMessageLen)
	}
	return trimmed, nil
}

func failedTag(err error) string {
	var errs validator.ValidationErrors
	if errors.As(err, &errs) && len(errs) > 0 {
		return errs[0].Tag()
	}
	return ""
}
