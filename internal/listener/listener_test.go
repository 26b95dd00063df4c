package listener

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parser-agent/internal/session"
)

func newTestConsole(t *testing.T, input string) *Console {
	t.Helper()
	c, err := NewConsole(io.NopCloser(strings.NewReader(input)), io.Discard, false)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestAskYesNo(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  bool
	}{
		{"yes", "y\n", true},
		{"full yes", "YES\n", true},
		{"no", "n\n", false},
		{"retries on garbage", "maybe\nno\n", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestConsole(t, tc.input)
			got, err := c.AskYesNo("Proceed?")
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestAskYesNo_EOF(t *testing.T) {
	c := newTestConsole(t, "")
	_, err := c.AskYesNo("Proceed?")
	assert.Error(t, err)
}

func TestFormatCandidate(t *testing.T) {
	s, err := session.New("r", "sbi", 3, session.DefaultLayout())
	require.NoError(t, err)
	s.GeneratedCode = strings.Repeat("x = 1\n", previewLines+5)

	out := formatCandidate(s)
	assert.Contains(t, out, s.ParserPath)
	assert.Contains(t, out, "... (5 more lines)")
	assert.Equal(t, previewLines, strings.Count(out, "x = 1"))
}

func TestApprove(t *testing.T) {
	s, err := session.New("r", "sbi", 3, session.DefaultLayout())
	require.NoError(t, err)
	s.GeneratedCode = "def parse(p):\n    pass\n"

	ok, err := newTestConsole(t, "yes\n").Approve(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, ok)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = newTestConsole(t, "yes\n").Approve(ctx, s)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFormatCandidate_FlagsRiskyCalls(t *testing.T) {
	s, err := session.New("r", "sbi", 3, session.DefaultLayout())
	require.NoError(t, err)

	s.GeneratedCode = "import subprocess\ndef parse(p):\n    subprocess.run(['pdftotext', p])\n"
	assert.Contains(t, formatCandidate(s), "WARNING: candidate uses subprocess")

	s.GeneratedCode = "def parse(p):\n    pass\n"
	assert.NotContains(t, formatCandidate(s), "WARNING")
}
