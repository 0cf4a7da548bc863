package shell

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"mvdan.cc/sh/v3/syntax"
)

func TestSplitWords(t *testing.T) {
	tests := []struct {
		command string
		want    []string
	}{
		{"echo a b", []string{"echo", "a", "b"}},
		{`echo "a b" 'c d'`, []string{"echo", "a b", "c d"}},
		{`echo a\ b "q\"uote" 'back\slash'`, []string{"echo", "a b", `q"uote`, `back\slash`}},
		{"cp $src ${dst}", []string{"cp", "$src", "${dst}"}},
		{"echo $P['k'][0] ${P['k'][$i]}", []string{"echo", "$P['k'][0]", "${P['k'][$i]}"}},
		{`echo "$a-$b"`, []string{"echo", "$a-$b"}},
		{"echo $(date)", []string{"echo", "$(date)"}},
		{"echo a && echo b", []string{"echo", "a", "&&", "echo", "b"}},
		{"echo a|b", []string{"echo", "a|b"}},
		{"echo x > y", []string{"echo", "x", ">", "y"}},
		{"grep -E foo|bar file &", []string{"grep", "-E", "foo|bar", "file", "&"}},
		{`echo "a|b" 'c>d' e\&f`, []string{"echo", "a|b", "c>d", "e&f"}},
		{"echo $x|$y", []string{"echo", "$x|$y"}},
		{"", []string{}},
	}

	parser := syntax.NewParser()
	for _, tc := range tests {
		t.Run(tc.command, func(t *testing.T) {
			words, err := splitWords(parser, tc.command)
			require.NoError(t, err)
			assert.Equal(t, tc.want, words)
		})
	}
}

func TestSplitWordsUnbalancedQuote(t *testing.T) {
	_, err := splitWords(syntax.NewParser(), `echo "open`)
	assert.Error(t, err)
}
