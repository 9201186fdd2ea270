package sl_test

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/BatmanBruc/arima-bot/internal/sl"
)

func TestErr(t *testing.T) {
	attr := sl.Err(errors.New("boom"))

	assert.Equal(t, "error", attr.Key)
	assert.Equal(t, slog.StringValue("boom"), attr.Value)
}
