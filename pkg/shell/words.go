package shell

import (
	"fmt"
	"strings"

	"github.com/JulianFerry/easymake/pkg/vars"
	"github.com/rotisserie/eris"
	"mvdan.cc/sh/v3/syntax"
)

const (
	placeholderFmt = "__easymake_ref_%d__"
	// no shell runs the commands, so operators are passed on as plain words
	operatorChars = "&|<>"
)

// SplitCommands splits a compound command on ";". Quotes do not protect a ";".
func SplitCommands(command string) []string {
	parts := strings.Split(command, ";")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) != "" {
			result = append(result, part)
		}
	}
	return result
}

// splitWords splits one command into words the way a POSIX shell would, removing quotes and
// backslash escapes. Variable references are kept verbatim so that they can be interpolated
// afterwards; parameter expansions, globs and command substitutions are not performed.
func splitWords(parser *syntax.Parser, command string) ([]string, error) {
	// Hide references from the shell parser, it would treat brackets and quotes inside them as syntax.
	refs := make([]string, 0)
	masked := vars.ReplaceReferences(command, func(token string) string {
		refs = append(refs, token)
		return fmt.Sprintf(placeholderFmt, len(refs)-1)
	})
	masked = maskOperators(masked, func(token string) string {
		refs = append(refs, token)
		return fmt.Sprintf(placeholderFmt, len(refs)-1)
	})

	printer := syntax.NewPrinter(syntax.Minify(true))
	result := make([]string, 0)
	var buffer strings.Builder
	var printErr error

	err := parser.Words(strings.NewReader(masked), func(word *syntax.Word) bool {
		buffer.Reset()
		printErr = flattenParts(&buffer, printer, word.Parts, false)
		if printErr != nil {
			return false
		}

		result = append(result, buffer.String())
		return true
	})
	if err != nil {
		return nil, eris.Wrapf(err, "failed to parse command %s", strings.TrimSpace(command))
	}
	if printErr != nil {
		return nil, eris.Wrapf(printErr, "failed to process command %s", strings.TrimSpace(command))
	}

	for idx := range result {
		for refIdx := len(refs) - 1; refIdx >= 0; refIdx-- {
			result[idx] = strings.ReplaceAll(result[idx], fmt.Sprintf(placeholderFmt, refIdx), refs[refIdx])
		}
	}

	return result, nil
}

// maskOperators replaces unquoted and unescaped runs of operator characters (&&, |, >, ...)
// so that the parser reads them as plain word text.
func maskOperators(command string, replace func(token string) string) string {
	var buffer strings.Builder
	var quote byte
	for idx := 0; idx < len(command); idx++ {
		char := command[idx]
		switch {
		case char == '\\' && quote != '\'' && idx+1 < len(command):
			buffer.WriteByte(char)
			buffer.WriteByte(command[idx+1])
			idx++
			continue
		case quote != 0:
			if char == quote {
				quote = 0
			}
		case char == '\'' || char == '"':
			quote = char
		case strings.IndexByte(operatorChars, char) > -1:
			end := idx + 1
			for end < len(command) && strings.IndexByte(operatorChars, command[end]) > -1 {
				end++
			}
			buffer.WriteString(replace(command[idx:end]))
			idx = end - 1
			continue
		}
		buffer.WriteByte(char)
	}
	return buffer.String()
}

func flattenParts(buffer *strings.Builder, printer *syntax.Printer, parts []syntax.WordPart, quoted bool) error {
	for _, part := range parts {
		switch part := part.(type) {
		case *syntax.Lit:
			buffer.WriteString(unescape(part.Value, quoted))
		case *syntax.SglQuoted:
			buffer.WriteString(part.Value)
		case *syntax.DblQuoted:
			err := flattenParts(buffer, printer, part.Parts, true)
			if err != nil {
				return err
			}
		default:
			// $vars, $(cmd) and friends are passed on as written
			err := printer.Print(buffer, part)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// unescape removes backslash escapes. Inside double quotes a backslash only escapes $, `, ", \
// and newlines.
func unescape(text string, quoted bool) string {
	if !strings.Contains(text, `\`) {
		return text
	}

	var buffer strings.Builder
	for idx := 0; idx < len(text); idx++ {
		char := text[idx]
		if char != '\\' || idx+1 == len(text) {
			buffer.WriteByte(char)
			continue
		}

		next := text[idx+1]
		switch {
		case next == '\n':
			idx++
		case !quoted || strings.IndexByte("$`\"\\", next) > -1:
			buffer.WriteByte(next)
			idx++
		default:
			buffer.WriteByte(char)
		}
	}
	return buffer.String()
}
