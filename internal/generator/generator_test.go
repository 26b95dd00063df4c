package generator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parser-agent/internal/session"
)

type fakeLLM struct {
	reply  string
	err    error
	prompt string
}

func (f *fakeLLM) Complete(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.reply, f.err
}

func TestStripCodeFences(t *testing.T) {
	testCases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "python fence",
			in:   "```python\nimport pandas as pd\n\ndef parse(p):\n    return pd.DataFrame()\n```",
			want: "import pandas as pd\n\ndef parse(p):\n    return pd.DataFrame()\n",
		},
		{
			name: "bare fence with prose around it",
			in:   "Here is the code:\n```\ndef parse(p):\n    pass\n```\nHope it helps!",
			want: "def parse(p):\n    pass\n",
		},
		{
			name: "first block wins",
			in:   "```py\na = 1\n```\nand a test:\n```py\nparse('x')\n```",
			want: "a = 1\n",
		},
		{
			name: "no fence",
			in:   "\n\ndef parse(p):\n    pass\n\n",
			want: "def parse(p):\n    pass\n",
		},
		{
			name: "unterminated fence",
			in:   "```python\ndef parse(p):\n    pass\n",
			want: "def parse(p):\n    pass\n",
		},
		{
			name: "only markers",
			in:   "```",
			want: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, StripCodeFences(tc.in))
		})
	}
}

func TestGenerator_Run(t *testing.T) {
	s, err := session.New("run", "sbi", 3, session.DefaultLayout())
	require.NoError(t, err)
	s.Plan = "use pdfplumber"
	s.GeneratedCode = "stale"
	llm := &fakeLLM{reply: "```python\ndef parse(pdf_path):\n    return None\n```"}

	require.NoError(t, New(llm).Run(context.Background(), s))

	assert.Equal(t, "def parse(pdf_path):\n    return None\n", s.GeneratedCode)
	assert.Contains(t, llm.prompt, "use pdfplumber")
	assert.Contains(t, llm.prompt, "parse(pdf_path)")
}

func TestGenerator_PropagatesLLMError(t *testing.T) {
	s, err := session.New("run", "sbi", 3, session.DefaultLayout())
	require.NoError(t, err)
	boom := errors.New("rate limited")

	err = New(&fakeLLM{err: boom}).Run(context.Background(), s)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, s.GeneratedCode)
}
