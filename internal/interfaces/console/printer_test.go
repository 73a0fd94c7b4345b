package console

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unifut/internal/application/futures"
)

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := &Printer{out: &buf}

	ok, err := p.Print(futures.Wrap("cancel-done", nil))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.Print(futures.Wrap(nil, errors.New("get order: order not confirmed")))
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, "{\"success\":\"cancel-done\"}\n{\"error\":\"get order: order not confirmed\"}\n", buf.String())
}

func TestPrinterIndent(t *testing.T) {
	var buf bytes.Buffer
	p := &Printer{out: &buf, indent: true}

	_, err := p.Print(futures.Wrap([]string{"BTCUSDT"}, nil))
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"success\": [\n    \"BTCUSDT\"\n  ]\n}\n", buf.String())
}
