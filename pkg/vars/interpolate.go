package vars

import (
	"regexp"

	"github.com/JulianFerry/easymake/pkg/value"
)

const (
	identPattern     = `[A-Za-z0-9_]+`
	subscriptPattern = `\[(?:'([^'\[\]]+)'|"([^"\[\]]+)"|\$(` + identPattern + `)|([0-9]+))\]`
)

var (
	// $name['key'][$ref][0] or ${name['key'][$ref][0]}
	referencePattern = regexp.MustCompile(
		`\$(` + identPattern + `)((?:` + subscriptPattern + `)*)` +
			`|\$\{(` + identPattern + `)((?:` + subscriptPattern + `)*)\}`,
	)
	subscriptRegexp = regexp.MustCompile(subscriptPattern)
)

type subscript struct {
	text string
	ref  bool
}

type reference struct {
	name       string
	subscripts []subscript
}

func parseReference(token string) reference {
	groups := referencePattern.FindStringSubmatch(token)
	if groups == nil {
		return reference{}
	}

	// the braced alternative starts after the groups of the plain one
	braced := 3 + subscriptRegexp.NumSubexp()
	ref := reference{name: groups[1]}
	subs := groups[2]
	if ref.name == "" {
		ref.name = groups[braced]
		subs = groups[braced+1]
	}

	for _, match := range subscriptRegexp.FindAllStringSubmatch(subs, -1) {
		switch {
		case match[1] != "":
			ref.subscripts = append(ref.subscripts, subscript{text: match[1]})
		case match[2] != "":
			ref.subscripts = append(ref.subscripts, subscript{text: match[2]})
		case match[3] != "":
			ref.subscripts = append(ref.subscripts, subscript{text: match[3], ref: true})
		default:
			ref.subscripts = append(ref.subscripts, subscript{text: match[4]})
		}
	}
	return ref
}

// References returns the distinct reference tokens in text in order of first appearance.
func References(text string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0)
	for _, token := range referencePattern.FindAllString(text, -1) {
		if !seen[token] {
			seen[token] = true
			result = append(result, token)
		}
	}
	return result
}

// ReplaceReferences calls replace for every reference token in text and substitutes its result.
// The output of replace is not scanned again.
func ReplaceReferences(text string, replace func(token string) string) string {
	return referencePattern.ReplaceAllStringFunc(text, replace)
}

// Interpolate replaces every $name reference in text with its value.
//
// Names that resolve neither in the store nor in the environment produce a warning and are left
// in place. Subscripts that can't be applied (wrong type, missing key, index out of range) leave
// the reference in place without a warning.
func (s *Store) Interpolate(text string) string {
	replacements := make(map[string]string)
	for _, token := range References(text) {
		if resolved, ok := s.resolveReference(token); ok {
			replacements[token] = resolved
		} else {
			replacements[token] = token
		}
	}

	if len(replacements) == 0 {
		return text
	}

	return ReplaceReferences(text, func(token string) string {
		return replacements[token]
	})
}

func (s *Store) resolveReference(token string) (string, bool) {
	ref := parseReference(token)

	base, found := s.ResolveOrEnv(ref.name)
	if !found {
		s.warnMissing(ref.name)
	}

	keys := make([]string, len(ref.subscripts))
	for idx, sub := range ref.subscripts {
		if !sub.ref {
			keys[idx] = sub.text
			continue
		}

		resolved, ok := s.ResolveOrEnv(sub.text)
		if !ok {
			s.warnMissing(sub.text)
			found = false
			continue
		}
		keys[idx] = value.Encode(resolved)
	}

	if !found {
		return "", false
	}

	current := base
	for _, key := range keys {
		next, ok := value.Lookup(current, key)
		if !ok {
			return "", false
		}
		current = next
	}

	return value.Encode(current), true
}

func (s *Store) warnMissing(name string) {
	s.logger.Warn().
		Str("variable", name).
		Msgf("$%s not found in variables or environment", name)
}
