package logdb

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert"
	"github.com/davecgh/go-spew/spew"
	"github.com/pmezard/go-difflib/difflib"
)

var spewConfig = spew.ConfigState{
	Indent:                  " ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// diffIndex returns unified diff between expected and actual index
// or empty string if they're the same
func diffIndex(exp map[string]string, got map[string]string) string {
	a := spewConfig.Sdump(exp)
	b := spewConfig.Sdump(got)
	if a == b {
		return ""
	}
	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(a),
		B:        difflib.SplitLines(b),
		FromFile: "Expected",
		ToFile:   "Actual",
		Context:  1,
	})
	return diff
}

// checkIndex verifies that db has exactly the keys and values in exp
func checkIndex(t *testing.T, db *DB, exp map[string]string) {
	t.Helper()
	got := map[string]string{}
	for _, k := range db.Keys() {
		v, ok := db.Get(k)
		assert.True(t, ok, "Get('%s') returned false for a key from Keys()", k)
		got[k] = v
	}
	if diff := diffIndex(exp, got); diff != "" {
		t.Fatalf("index mismatch:\n%s", diff)
	}
	assert.Equal(t, len(exp), db.Len())
}

func tempLogPath(t *testing.T) string {
	return filepath.Join(t.TempDir(), "test.log")
}

func openDB(t *testing.T, path string) *DB {
	t.Helper()
	db, err := Open(path)
	assert.NoError(t, err, "Open('%s')", path)
	return db
}

func closeDB(t *testing.T, db *DB) {
	t.Helper()
	err := db.Close()
	assert.NoError(t, err)
}

func readFile(t *testing.T, path string) string {
	d, err := os.ReadFile(path)
	assert.NoError(t, err)
	return string(d)
}

func writeFile(t *testing.T, path string, s string) {
	err := os.WriteFile(path, []byte(s), 0644)
	assert.NoError(t, err)
}
