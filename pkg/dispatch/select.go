package dispatch

import (
	"fmt"
	"sort"
	"strings"

	"github.com/JulianFerry/easymake/pkg/targets"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// UnknownTargetError is returned when none of the positional tokens names a target
type UnknownTargetError struct {
	Requested  []string
	Known      []string
	Suggestion string
}

var _ error = (*UnknownTargetError)(nil)

func (e UnknownTargetError) Error() string {
	msg := fmt.Sprintf("the arguments %s did not match any target declared in the script: %s",
		strings.Join(e.Requested, " "), strings.Join(e.Known, ", "))
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %s?)", e.Suggestion)
	}
	return msg
}

// Selection is the ordered list of targets to run and the tokens left over after their names
type Selection struct {
	Targets []*targets.Descriptor
	Rest    []string
}

// Select takes target names from the front of positional. Without any positional tokens the
// first registered target is selected.
func Select(registry *targets.Registry, positional []string) (*Selection, error) {
	sel := &Selection{
		Targets: make([]*targets.Descriptor, 0),
		Rest:    make([]string, 0),
	}

	if len(positional) == 0 {
		if target, ok := registry.First(); ok {
			sel.Targets = append(sel.Targets, target)
			return sel, nil
		}
		return nil, &UnknownTargetError{Requested: []string{}, Known: []string{}}
	}

	idx := 0
	for ; idx < len(positional); idx++ {
		target, ok := registry.Lookup(positional[idx])
		if !ok {
			break
		}
		sel.Targets = append(sel.Targets, target)
	}

	if len(sel.Targets) == 0 {
		return nil, &UnknownTargetError{
			Requested:  positional,
			Known:      registry.Names(),
			Suggestion: closestName(positional[0], registry.Names()),
		}
	}

	sel.Rest = append(sel.Rest, positional[idx:]...)
	return sel, nil
}

func closestName(name string, candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}

	ranks := fuzzy.RankFindFold(name, candidates)
	if len(ranks) == 0 {
		return ""
	}

	sort.Sort(ranks)
	return ranks[0].Target
}
