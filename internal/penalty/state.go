package penalty

import "errors"

// LoadState merges the penalty document at path into the table, replacing the
// records of every character it contains. A missing, unreadable or malformed
// document leaves the table unchanged and is not an error. A corrupt numeric
// field fails the whole load and nothing is merged.
func (t *Tracker) LoadState(path string) error {
	loaded, err := ReadDocumentFile(path)
	if errors.Is(err, ErrNoState) {
		return nil
	}
	if err != nil {
		return err
	}
	t.Merge(loaded)
	return nil
}

// SaveState overwrites the document at path with the whole table.
func (t *Tracker) SaveState(path string) error {
	return WriteDocumentFile(path, t.table)
}
