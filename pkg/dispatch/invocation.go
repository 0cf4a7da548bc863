// Package dispatch turns command line tokens into target invocations.
package dispatch

import (
	"regexp"
	"strings"

	"github.com/JulianFerry/easymake/pkg/value"
)

var (
	keywordPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*=.+$`)
	flagPattern    = regexp.MustCompile(`^-[A-Za-z]+$`)
)

// Invocation is the parsed form of the command line tokens
type Invocation struct {
	// Positional tokens in their original order; target names are taken from the front
	Positional []string
	// Keywords holds the decoded values of name=value tokens
	Keywords *value.Map
	// Flags holds every letter of every -xyz token, in order of first appearance
	Flags []string
	// FlagWords holds the -xyz tokens without their dash
	FlagWords []string
}

// Parse sorts tokens into keywords, flags and positional tokens. Empty tokens are dropped.
func Parse(tokens []string) *Invocation {
	inv := &Invocation{
		Positional: make([]string, 0, len(tokens)),
		Keywords:   value.NewMap(0),
		Flags:      make([]string, 0),
		FlagWords:  make([]string, 0),
	}

	seenFlags := make(map[string]bool)
	for _, token := range tokens {
		switch {
		case token == "":
			continue
		case keywordPattern.MatchString(token):
			pos := strings.Index(token, "=")
			inv.Keywords.Set(token[:pos], value.Decode(token[pos+1:]))
		case flagPattern.MatchString(token):
			word := token[1:]
			inv.FlagWords = append(inv.FlagWords, word)
			for _, letter := range word {
				if !seenFlags[string(letter)] {
					seenFlags[string(letter)] = true
					inv.Flags = append(inv.Flags, string(letter))
				}
			}
		default:
			inv.Positional = append(inv.Positional, token)
		}
	}

	return inv
}

// HasFlag reports whether name was passed as a flag. Single letters match any -xyz group,
// longer names have to match a whole flag token (-verbose sets verbose).
func (inv *Invocation) HasFlag(name string) bool {
	for _, word := range inv.FlagWords {
		if word == name {
			return true
		}
	}

	if len([]rune(name)) == 1 {
		for _, letter := range inv.Flags {
			if letter == name {
				return true
			}
		}
	}
	return false
}
