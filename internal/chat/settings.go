package chat

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator"
)

const ResetToken = "-"

var (
	ErrBadTemperature = errors.New("temperature must be a number from 0.0 to 2.0")
	ErrEmptyPrompt    = errors.New("prompt is empty")
)

var validate = validator.New()

// ParseTemperature accepts "0.5", "0,5" or the reset token, which yields nil.
func ParseTemperature(input string) (*float64, error) {
	input = strings.TrimSpace(input)
	if input == ResetToken {
		return nil, nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(input, ",", "."), 64)
	if err != nil {
		return nil, ErrBadTemperature
	}
	if err := validate.Var(v, "gte=0,lte=2"); err != nil {
		return nil, ErrBadTemperature
	}
	return &v, nil
}

// ParseSystemPrompt returns nil for the reset token.
func ParseSystemPrompt(input string) (*string, error) {
	input = strings.TrimSpace(input)
	if input == ResetToken {
		return nil, nil
	}
	if err := validate.Var(input, "required"); err != nil {
		return nil, ErrEmptyPrompt
	}
	return &input, nil
}
