// Package request reads formation requests from JSON or YAML files.
package request

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/rakeform/core/model"
)

// Format is the encoding of a request document.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
)

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return JSON, nil
	case ".yaml", ".yml":
		return YAML, nil
	default:
		return "", fmt.Errorf("unsupported request format: %s", filepath.Ext(path))
	}
}

// Load reads the request stored at path. "-" reads JSON from stdin.
func Load(path string) (model.FormationRequest, error) {
	if path == "-" {
		return Decode(os.Stdin, JSON)
	}
	f, err := FormatOf(path)
	if err != nil {
		return model.FormationRequest{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return model.FormationRequest{}, err
	}
	req, err := Decode(bytes.NewReader(data), f)
	if err != nil {
		return req, fmt.Errorf("%s: %w", path, err)
	}
	return req, nil
}

// Decode reads one request in the given format. Unknown fields are rejected
// so that typos in hand-written files surface.
func Decode(r io.Reader, f Format) (model.FormationRequest, error) {
	var req model.FormationRequest
	switch f {
	case JSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			return req, fmt.Errorf("decode json: %w", err)
		}
	case YAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&req); err != nil {
			return req, fmt.Errorf("decode yaml: %w", err)
		}
	default:
		return req, fmt.Errorf("unsupported request format: %s", f)
	}
	return req, nil
}
