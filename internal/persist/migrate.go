package persist

import (
	"fmt"
	"math"
)

// MigrationStep transforms a document from one schema version to the next.
// Steps are pure: they receive the previous version's shape and return the
// next version's shape. The engine stamps the version afterwards.
type MigrationStep func(doc map[string]any) (map[string]any, error)

// migrator applies forward migrations one registered step at a time until
// the document reaches the current version. Unknown transitions and
// documents newer than this build fail loudly rather than being skipped.
type migrator struct {
	kind    string
	current int
	steps   map[int]MigrationStep

	// looksLikeV1 decides whether a document without a version field is
	// well-formed enough to have version 1 injected.
	looksLikeV1 func(doc map[string]any) bool
}

func (m migrator) migrate(doc map[string]any) (out map[string]any, changed bool, err error) {
	if _, ok := doc["version"]; !ok {
		if m.looksLikeV1 == nil || !m.looksLikeV1(doc) {
			return nil, false, fmt.Errorf("%s document must include a version", m.kind)
		}
		doc["version"] = float64(1)
		changed = true
	}

	version, err := intVersion(doc["version"])
	if err != nil {
		return nil, false, fmt.Errorf("%s version must be an integer", m.kind)
	}
	if version > m.current {
		return nil, false, fmt.Errorf("%s version %d is newer than supported version %d", m.kind, version, m.current)
	}

	for version < m.current {
		step, ok := m.steps[version]
		if !ok {
			return nil, false, fmt.Errorf("no migration implemented for %s version %d", m.kind, version)
		}
		doc, err = step(doc)
		if err != nil {
			return nil, false, fmt.Errorf("migrate %s version %d: %w", m.kind, version, err)
		}
		version++
		doc["version"] = float64(version)
		changed = true
	}

	return doc, changed, nil
}

func intVersion(value any) (int, error) {
	number, ok := value.(float64)
	if !ok || number != math.Trunc(number) {
		return 0, fmt.Errorf("not an integer")
	}
	return int(number), nil
}
