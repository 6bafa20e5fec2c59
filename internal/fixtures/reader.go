// Package fixtures loads test data files from a single directory. The file
// extension selects the decoder: .json, .yaml/.yml, or .csv. Paths are
// resolved relative to the configured fixtures directory so cases reference
// data by name only.
package fixtures

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Reader resolves and decodes fixture files under a base directory.
type Reader struct {
	baseDir  string
	validate *validator.Validate
}

// NewReader creates a Reader rooted at baseDir. The directory must exist.
func NewReader(baseDir string) (*Reader, error) {
	info, err := os.Stat(baseDir)
	if err != nil {
		return nil, fmt.Errorf("fixtures directory %s: %w", baseDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("fixtures path %s is not a directory", baseDir)
	}
	return &Reader{
		baseDir:  baseDir,
		validate: validator.New(),
	}, nil
}

// Load decodes the named fixture into dest. The decoder is chosen by file
// extension; CSV files are not supported here because they have no natural
// struct mapping, use ReadCSV instead.
func (r *Reader) Load(name string, dest interface{}) error {
	path := filepath.Join(r.baseDir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read fixture %s: %w", name, err)
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		if err := json.Unmarshal(data, dest); err != nil {
			return fmt.Errorf("failed to parse JSON fixture %s: %w", name, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, dest); err != nil {
			return fmt.Errorf("failed to parse YAML fixture %s: %w", name, err)
		}
	default:
		return fmt.Errorf("unsupported fixture format %s", filepath.Ext(name))
	}
	return nil
}

// LoadValidated decodes the named fixture into dest and then checks its
// validate struct tags. dest must be a pointer to a struct or a pointer to a
// slice of structs; slice elements are validated individually.
func (r *Reader) LoadValidated(name string, dest interface{}) error {
	if err := r.Load(name, dest); err != nil {
		return err
	}

	v := reflect.Indirect(reflect.ValueOf(dest))
	if v.Kind() == reflect.Slice {
		for i := 0; i < v.Len(); i++ {
			if err := r.validate.Struct(v.Index(i).Interface()); err != nil {
				return fmt.Errorf("fixture %s element %d failed validation: %w", name, i, err)
			}
		}
		return nil
	}

	if err := r.validate.Struct(dest); err != nil {
		return fmt.Errorf("fixture %s failed validation: %w", name, err)
	}
	return nil
}

// ReadCSV reads the named CSV fixture and returns each record as a map keyed
// by the header row.
func (r *Reader) ReadCSV(name string) ([]map[string]string, error) {
	path := filepath.Join(r.baseDir, name)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open fixture %s: %w", name, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV fixture %s: %w", name, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("CSV fixture %s has no header row", name)
	}

	header := rows[0]
	records := make([]map[string]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		record := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(row) {
				record[col] = row[i]
			}
		}
		records = append(records, record)
	}
	return records, nil
}

// Exists reports whether the named fixture file is present.
func (r *Reader) Exists(name string) bool {
	_, err := os.Stat(filepath.Join(r.baseDir, name))
	return err == nil
}
