// This file contains helpers for enumerating local input files.
package file

import "os"

// ListDir returns the names of the regular files directly inside dir, in
// lexical order. Subdirectories and irregular entries are skipped. The order
// is stable so that downstream record sequences are reproducible.
func ListDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		out = append(out, e.Name())
	}
	return out, nil
}
