package utils

import "errors"

var (
	ErrNoWorkbook           = errors.New("no workbook loaded")
	ErrColumnNotFound       = errors.New("column not found")
	ErrRowOutOfRange        = errors.New("row out of range")
	ErrUnsupportedAction    = errors.New("unsupported action")
	ErrUnsupportedFile      = errors.New("unsupported file type")
	ErrReferenceUnavailable = errors.New("reference lookup unavailable")
	ErrInvalidInput         = errors.New("invalid input")
)
