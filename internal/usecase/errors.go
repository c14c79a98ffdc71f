package usecase

import "errors"

var (
	// ErrHistoryDisabled is returned when no history repository is configured.
	ErrHistoryDisabled = errors.New("download history disabled")

	// ErrConversionDisabled is returned when no external conversion service
	// is configured.
	ErrConversionDisabled = errors.New("conversion service disabled")
)
