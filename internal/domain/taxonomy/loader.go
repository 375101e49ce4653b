package taxonomy

import (
	"bytes"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/turtacn/QuestionBank/pkg/errors"
)

// Document is the on-disk vocabulary format:
//
//	topics: [Fractions, Ratio]
//	heuristics: [Supposition]
//	aliases:
//	  heuristic:
//	    "Guess & Check": Supposition
type Document struct {
	Version    string                       `yaml:"version,omitempty"`
	Topics     []string                     `yaml:"topics"`
	Heuristics []string                     `yaml:"heuristics"`
	Aliases    map[string]map[string]string `yaml:"aliases,omitempty"`
}

// Entries flattens the document into (label, category) pairs.
func (d *Document) Entries() []Entry {
	out := make([]Entry, 0, len(d.Topics)+len(d.Heuristics))
	for _, t := range d.Topics {
		out = append(out, Entry{Label: t, Category: CategoryTopic})
	}
	for _, h := range d.Heuristics {
		out = append(out, Entry{Label: h, Category: CategoryHeuristic})
	}
	return out
}

// Options converts the alias tables into registry options.
func (d *Document) Options() ([]Option, error) {
	var opts []Option
	for name, table := range d.Aliases {
		c, err := ParseCategory(name)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithAliases(c, table))
	}
	return opts, nil
}

// ParseDocument decodes a YAML vocabulary. Unknown keys are rejected.
func ParseDocument(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, errors.New(errors.CodeInvalidTaxonomyEntry, "taxonomy document is empty")
		}
		return nil, errors.Wrap(err, errors.CodeSerialization, "decode taxonomy document")
	}
	return &doc, nil
}

// LoadFile reads the vocabulary at path and builds a Registry. opts are
// applied after the document's own alias options.
func LoadFile(path string, opts ...Option) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeNotFound, "read taxonomy file %s", path)
	}
	return Load(bytes.NewReader(data), opts...)
}

// Load is LoadFile over an arbitrary reader.
func Load(r io.Reader, opts ...Option) (*Registry, error) {
	doc, err := ParseDocument(r)
	if err != nil {
		return nil, err
	}
	docOpts, err := doc.Options()
	if err != nil {
		return nil, err
	}
	return NewRegistry(doc.Entries(), append(docOpts, opts...)...)
}

//Personal.AI order the ending
