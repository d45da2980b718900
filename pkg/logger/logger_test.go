package logger

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestSetLevel(t *testing.T) {
	t.Cleanup(func() { SetLevel("info") })

	SetLevel("debug")
	assert.Equal(t, zerolog.DebugLevel, Log.GetLevel())

	SetLevel("not-a-level")
	assert.Equal(t, zerolog.InfoLevel, Log.GetLevel())
}

func TestNewLogger_WritesJSON(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf)

	l.Info().Str("sequence", "billNumber").Msg("reserved")

	assert.Contains(t, buf.String(), `"sequence":"billNumber"`)
	assert.Contains(t, buf.String(), `"message":"reserved"`)
}
