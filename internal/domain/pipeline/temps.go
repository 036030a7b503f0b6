package pipeline

import (
	"os"

	"github.com/alonePlayerr1/MAI-Bot/internal/platform/logging"
)

// tempAccumulator collects artifact paths as the run produces them so a
// single deferred drain can remove each exactly once on every exit path.
type tempAccumulator struct {
	paths []string
}

func (t *tempAccumulator) add(path string) {
	if path == "" {
		return
	}
	t.paths = append(t.paths, path)
}

// drain removes every accumulated path. Removal failures are logged, never
// raised.
func (t *tempAccumulator) drain(log *logging.Logger) {
	for _, path := range t.paths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.WarnTag("PIPE", "failed to remove temp file %s: %v", path, err)
		}
	}
	t.paths = nil
}
