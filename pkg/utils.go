package pkg

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/JulianFerry/easymake/pkg/targets"
	"github.com/mitchellh/colorstring"
	"github.com/rotisserie/eris"
)

// FindScript looks for a file called name in start and each of its parent directories
func FindScript(start, name string) (string, error) {
	path, err := filepath.Abs(start)
	if err != nil {
		return "", eris.Wrapf(err, "failed to resolve %s", start)
	}

	for {
		scriptPath := filepath.Join(path, name)
		_, err := os.Stat(scriptPath)
		if err == nil {
			return scriptPath, nil
		}

		if !eris.Is(err, os.ErrNotExist) {
			return "", eris.Wrapf(err, "failed to check %s", scriptPath)
		}

		parent := filepath.Dir(path)
		if parent == path {
			break
		}
		path = parent
	}

	return "", eris.Errorf("no %s file found", name)
}

// PrintTargets lists the targets of registry with their signatures and descriptions
func PrintTargets(w io.Writer, registry *targets.Registry) {
	colorstring.Fprintf(w, "[blue][bold]==>[default] Available targets:\n")

	maxLen := 0
	for _, name := range registry.Names() {
		target, _ := registry.Lookup(name)
		if sigLen := len(target.Signature()); sigLen > maxLen {
			maxLen = sigLen
		}
	}

	lineFmt := fmt.Sprintf("[green][bold]  ->[reset] %%-%ds %%s\n", maxLen+3)
	for idx, name := range registry.Names() {
		target, _ := registry.Lookup(name)
		desc := target.Desc
		if idx == 0 {
			desc = "(default) " + desc
		}
		colorstring.Fprintf(w, lineFmt, target.Signature(), desc)
	}
}
