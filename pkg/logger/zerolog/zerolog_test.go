package zerolog

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatterPlain(t *testing.T) {
	f := formatter{layout: "15:04", colored: false}

	assert.Equal(t, "[INF]", f.level("info"))
	assert.Equal(t, "[UNK]", f.level("bogus"))
	assert.Equal(t, ">", f.message(""))

	msg := f.message("hello")
	assert.True(t, strings.HasPrefix(msg, "> hello"))
	assert.Len(t, msg, 2+messageWidth)
	assert.Len(t, f.message(strings.Repeat("x", 200)), 2+messageWidth)

	assert.Equal(t, "[engine.go         :  42]", f.caller("/src/pkg/fusion/engine.go:42"))
	assert.Equal(t, "[engine.go         :2345]", f.caller("engine.go:12345"))
	assert.Equal(t, "engine.go", f.caller("/src/engine.go"))
	assert.Empty(t, f.caller(nil))
}

func TestNew(t *testing.T) {
	_, err := New("bogus", "", false, false, nil)
	require.Error(t, err)

	buffer := &bytes.Buffer{}
	l, err := New("info", "15:04", false, true, buffer)
	require.NoError(t, err)

	l.Debug().Msg("hidden")
	l.Info().Msg("shown")
	assert.NotContains(t, buffer.String(), "hidden")
	assert.Contains(t, buffer.String(), `"message":"shown"`)
}
