// Package schema loads model definitions from YAML:
//
//	models:
//	  - name: Address
//	    fields:
//	      - {name: city, type: text, required: true}
//	  - name: User
//	    collection: users
//	    extra_fields: ignore
//	    fields:
//	      - {name: user_id, type: id, generate: uuid}
//	      - {name: name, type: text, column: full_name}
//	      - {name: address, type: nested, model: Address}
//	      - {name: tags, type: list, element: {type: text}}
//
// Nested fields must name a model defined earlier in the document.
package schema

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/arthur-debert/nanomodel/nanomodel"
	"gopkg.in/yaml.v3"
)

// ErrInvalidSchema is wrapped by every definition error.
var ErrInvalidSchema = errors.New("invalid schema")

// Document is the top-level YAML layout.
type Document struct {
	Models []ModelDef `yaml:"models"`
}

// ModelDef defines one model type.
type ModelDef struct {
	Name        string     `yaml:"name"`
	Collection  string     `yaml:"collection,omitempty"`
	Abstract    bool       `yaml:"abstract,omitempty"`
	ExtraFields string     `yaml:"extra_fields,omitempty"`
	Fields      []FieldDef `yaml:"fields"`
}

// FieldDef defines one field. Type is one of id, text, number, boolean,
// datetime, list, map, nested.
type FieldDef struct {
	Name       string    `yaml:"name"`
	Type       string    `yaml:"type"`
	Column     string    `yaml:"column,omitempty"`
	Required   bool      `yaml:"required,omitempty"`
	Default    any       `yaml:"default,omitempty"`
	Include    bool      `yaml:"include,omitempty"`
	Generate   string    `yaml:"generate,omitempty"`
	Auto       bool      `yaml:"auto,omitempty"`
	AutoUpdate bool      `yaml:"auto_update,omitempty"`
	Model      string    `yaml:"model,omitempty"`
	Element    *FieldDef `yaml:"element,omitempty"`
}

// LoadFile reads a schema file.
func LoadFile(path string) (*nanomodel.Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema: %w", err)
	}
	return Load(bytes.NewReader(raw))
}

// Load decodes a schema document and builds its models into a new
// registry, in document order.
func Load(r io.Reader) (*nanomodel.Registry, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSchema, err)
	}
	return Build(doc)
}

// Build turns a decoded document into a registry.
func Build(doc Document) (*nanomodel.Registry, error) {
	reg := nanomodel.NewRegistry()
	for i, md := range doc.Models {
		meta, err := buildModel(md, reg)
		if err != nil {
			return nil, fmt.Errorf("%w: model %d (%s): %w", ErrInvalidSchema, i, md.Name, err)
		}
		if err := reg.Register(meta); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidSchema, err)
		}
	}
	return reg, nil
}

func buildModel(md ModelDef, reg *nanomodel.Registry) (*nanomodel.Meta, error) {
	if md.Name == "" {
		return nil, errors.New("model name is required")
	}
	b := nanomodel.Define(md.Name)
	if md.Collection != "" {
		b.Collection(md.Collection)
	}
	if md.Abstract {
		b.Abstract()
	}
	if md.ExtraFields != "" {
		policy, err := nanomodel.ParseExtraFieldPolicy(md.ExtraFields)
		if err != nil {
			return nil, err
		}
		b.ExtraFields(policy)
	}
	for _, fd := range md.Fields {
		if fd.Name == "" {
			return nil, errors.New("field name is required")
		}
		f, err := buildField(fd, reg)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", fd.Name, err)
		}
		b.Field(f)
	}
	return b.Build()
}

func buildField(fd FieldDef, reg *nanomodel.Registry) (nanomodel.Field, error) {
	if fd.Name == "" {
		// list elements are anonymous
		fd.Name = "element"
	}
	var opts []nanomodel.FieldOption
	if fd.Column != "" {
		opts = append(opts, nanomodel.Column(fd.Column))
	}
	if fd.Required {
		opts = append(opts, nanomodel.Required())
	}
	if fd.Default != nil {
		opts = append(opts, nanomodel.Default(fd.Default))
	}

	switch strings.ToLower(fd.Type) {
	case "id":
		if fd.Include {
			opts = append(opts, nanomodel.IncludeInDocument())
		}
		switch fd.Generate {
		case "":
		case "uuid":
			opts = append(opts, nanomodel.UUID())
		default:
			return nil, fmt.Errorf("unknown id generator %q", fd.Generate)
		}
		return nanomodel.ID(fd.Name, opts...), nil
	case "text", "string":
		return nanomodel.Text(fd.Name, opts...), nil
	case "number":
		return nanomodel.Number(fd.Name, opts...), nil
	case "boolean", "bool":
		return nanomodel.Boolean(fd.Name, opts...), nil
	case "datetime":
		if fd.Auto {
			opts = append(opts, nanomodel.Auto())
		}
		if fd.AutoUpdate {
			opts = append(opts, nanomodel.AutoUpdate())
		}
		return nanomodel.DateTime(fd.Name, opts...), nil
	case "list":
		if fd.Element != nil {
			elem, err := buildField(*fd.Element, reg)
			if err != nil {
				return nil, fmt.Errorf("element: %w", err)
			}
			opts = append(opts, nanomodel.Element(elem))
		}
		return nanomodel.List(fd.Name, opts...), nil
	case "map":
		return nanomodel.Map(fd.Name, opts...), nil
	case "nested":
		nested, ok := reg.Lookup(fd.Model)
		if !ok {
			return nil, fmt.Errorf("nested model %q is not defined before use", fd.Model)
		}
		return nanomodel.Nested(fd.Name, nested, opts...), nil
	case "":
		return nil, errors.New("field type is required")
	default:
		return nil, fmt.Errorf("unknown field type %q", fd.Type)
	}
}
