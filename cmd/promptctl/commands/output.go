package commands

import (
	"encoding/json"
	"io"

	"gopkg.in/yaml.v3"
)

type printer struct {
	w      io.Writer
	format string
}

func (p printer) print(v any) error {
	if p.format == "json" {
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	enc := yaml.NewEncoder(p.w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
