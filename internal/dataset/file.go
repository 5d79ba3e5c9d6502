package dataset

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Read loads a dataset file. Paths ending in ".gz" are decompressed.
func Read(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open dataset %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	var ds Dataset
	if err := json.NewDecoder(r).Decode(&ds); err != nil {
		return nil, fmt.Errorf("decode dataset %s: %w", path, err)
	}
	if ds.Vars == nil {
		ds.Vars = map[string]*Variable{}
	}
	return &ds, nil
}

// Write persists a dataset atomically: the document is written to a
// temporary file in the destination directory and renamed into place, so a
// crash mid-write never leaves a partial file under the final name. Paths
// ending in ".gz" are compressed.
func Write(path string, ds *Dataset) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("write dataset %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if err := encodeTo(tmp, path, ds); err != nil {
		tmp.Close()
		return fmt.Errorf("write dataset %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write dataset %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write dataset %s: %w", path, err)
	}
	return nil
}

func encodeTo(w io.Writer, path string, ds *Dataset) error {
	if strings.HasSuffix(path, ".gz") {
		gz := gzip.NewWriter(w)
		if err := json.NewEncoder(gz).Encode(ds); err != nil {
			gz.Close()
			return err
		}
		return gz.Close()
	}
	return json.NewEncoder(w).Encode(ds)
}
