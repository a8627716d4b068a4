package variants

import (
	"encoding/json"
	"os"

	pkgerrors "beacon/pkg/errors"
)

// LoadFile reads a JSON array of entries, the seed format for the in-memory
// source in development deployments.
func LoadFile(path string) ([]Entry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "read variants seed file")
	}
	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "decode variants seed file")
	}
	return entries, nil
}
