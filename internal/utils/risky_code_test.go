package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRiskyCalls(t *testing.T) {
	testCases := []struct {
		name string
		code string
		want []string
	}{
		{
			name: "plain parser",
			code: "import pdfplumber\nimport pandas as pd\n\ndef parse(p):\n    return pd.DataFrame()\n",
		},
		{
			name: "shell out",
			code: "import subprocess\nsubprocess.run(['pdftotext', p])\n",
			want: []string{"subprocess"},
		},
		{
			name: "several",
			code: "import os, shutil\nos.system('ls')\nshutil.rmtree('/tmp/x')\n",
			want: []string{"os.system", "shutil.rmtree"},
		},
		{
			name: "method named exec is fine",
			code: "cur.exec(query)\n",
		},
		{
			name: "bare eval",
			code: "x = eval(s)\n",
			want: []string{"eval/exec"},
		},
		{
			name: "commented out",
			code: "# os.system('rm -rf /')\ndef parse(p):\n    pass\n",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := RiskyCalls(tc.code)
			assert.Equal(t, tc.want, got)
		})
	}
}
