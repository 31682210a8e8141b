package service

import "errors"

var (
	ErrValidation           = errors.New("validation error")
	ErrNotFound             = errors.New("error not found")
	ErrInsufficientPosition = errors.New("sell amount exceeds net position")
)
