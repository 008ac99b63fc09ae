package model

import (
	_ "embed"

	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"
)

//go:embed elements.yaml
var defaultElementsRaw []byte

// Element is an element unlocked by a player
type Element struct {
	Name  string `json:"name" yaml:"name"`
	Emoji string `json:"emoji" yaml:"emoji"`
}

// Validate checks if the element is valid
func (e *Element) Validate() error {
	if e.Name == "" {
		return goerr.New("element name is empty")
	}
	return nil
}

// DefaultElements returns the elements every new player starts with
func DefaultElements() ([]Element, error) {
	return ParseElements(defaultElementsRaw)
}

// ParseElements reads a YAML list of elements
func ParseElements(data []byte) ([]Element, error) {
	var doc struct {
		Elements []Element `yaml:"elements"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, goerr.Wrap(err, "failed to parse elements")
	}

	for i := range doc.Elements {
		if err := doc.Elements[i].Validate(); err != nil {
			return nil, goerr.Wrap(err, "invalid element", goerr.V("index", i))
		}
	}

	return doc.Elements, nil
}
