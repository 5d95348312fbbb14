package logdb

import (
	"encoding/json"
	"fmt"

	"github.com/devadrianapostol/toydb/atomicfile"

	"github.com/tidwall/pretty"
)

// MarshalJSON returns current state as a JSON object, sorted by key
// and pretty-printed
func (db *DB) MarshalJSON() ([]byte, error) {
	m := db.index
	if m == nil {
		m = map[string]string{}
	}
	d, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return pretty.Pretty(d), nil
}

// ExportJSON writes current state as JSON to path.
// The file is either fully written or not created at all.
func (db *DB) ExportJSON(path string) error {
	d, err := db.MarshalJSON()
	if err != nil {
		return err
	}
	f, err := atomicfile.New(path)
	if err != nil {
		return fmt.Errorf("logdb: failed to create '%s': %w", path, err)
	}
	defer f.RemoveIfNotClosed()
	if _, err = f.Write(d); err != nil {
		return err
	}
	return f.Close()
}
