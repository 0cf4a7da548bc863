package vars

import (
	"path/filepath"
	"strings"

	"github.com/JulianFerry/easymake/pkg/value"
	"github.com/rotisserie/eris"
)

// FromPath seeds <segment>_path and <segment>_name variables for the script and each of its
// ancestor directories.
//
// logicalPath describes where the script sits inside the project, i.e. "project/tools/Makefile".
// The last segment stands for the script itself (scriptPath); every preceding segment is mapped to
// the next parent directory of scriptPath, walking upwards. Only the path strings are inspected.
func (s *Store) FromPath(logicalPath, scriptPath string) error {
	if !strings.HasSuffix(logicalPath, "Makefile") {
		return eris.Errorf(`the logical path %q must end with "Makefile"`, logicalPath)
	}

	current, err := filepath.Abs(scriptPath)
	if err != nil {
		return eris.Wrapf(err, "failed to resolve %s", scriptPath)
	}

	s.Set("Makefile_path", value.String(current))
	s.Set("Makefile_name", value.String(filepath.Base(current)))

	segments := strings.Split(logicalPath, "/")
	for idx := len(segments) - 2; idx >= 0; idx-- {
		current = filepath.Dir(current)
		if segments[idx] == "" {
			continue
		}

		s.Set(segments[idx]+"_path", value.String(current))
		s.Set(segments[idx]+"_name", value.String(filepath.Base(current)))
	}

	return nil
}
