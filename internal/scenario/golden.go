package scenario

import (
	"testing"

	"github.com/sebdah/goldie/v2"
)

// RunWithGolden executes the scenario at path and compares its
// canonical trace against testdata/golden/{name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/scenario -update
//
// Returns the run result so callers can assert on expectations too.
func RunWithGolden(t *testing.T, path string) (*Result, error) {
	t.Helper()

	s, err := Load(path)
	if err != nil {
		return nil, err
	}
	result, err := Run(s)
	if err != nil {
		return nil, err
	}

	data, err := NewTraceSnapshot(s, result).MarshalCanonical()
	if err != nil {
		return nil, err
	}

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"))
	g.Assert(t, s.Name, data)
	return result, nil
}
