package category

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	apierrors "callreport/internal/errors"
)

type fileFormat struct {
	Categories []Entry `yaml:"categories"`
}

// LoadFile reads a category table from YAML:
//
//	categories:
//	  - label: "Dispatch Counter <5150>"
//	    group: Dispatch
//
// Entry order is kept so the last-definition rule applies as written.
func LoadFile(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apierrors.NewConfigError("read category file", err)
	}
	return Parse(data)
}

// Parse builds a Map from YAML bytes in the LoadFile format.
func Parse(data []byte) (*Map, error) {
	var f fileFormat
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return nil, apierrors.NewConfigError("parse category file", err)
	}
	if len(f.Categories) == 0 {
		return nil, apierrors.NewConfigError("category file has no entries", nil)
	}
	for i, e := range f.Categories {
		if e.Label == "" || e.Group == "" {
			return nil, apierrors.NewConfigError(
				fmt.Sprintf("category entry %d needs both label and group", i+1), nil)
		}
	}
	return New(f.Categories), nil
}
