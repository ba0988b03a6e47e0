package nanomodel

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

// TagName is the struct tag read by MetaFromStruct and the struct helpers.
//
//	type User struct {
//	    UserID  string    `nanomodel:",id"`
//	    Name    string    `nanomodel:"full_name,required"`
//	    Age     int
//	    Updated time.Time `nanomodel:",auto_update"`
//	    Secret  string    `nanomodel:"-"`
//	}
const TagName = "nanomodel"

var timeType = reflect.TypeOf(time.Time{})

// fieldTag holds the parsed tag of one struct field
type fieldTag struct {
	goName     string
	attrName   string
	column     string
	isID       bool
	required   bool
	include    bool
	auto       bool
	autoUpdate bool
	skip       bool
}

func parseFieldTag(field reflect.StructField) fieldTag {
	tag := fieldTag{goName: field.Name, attrName: toSnakeCase(field.Name)}
	raw, ok := field.Tag.Lookup(TagName)
	if !ok {
		return tag
	}
	if raw == "-" {
		tag.skip = true
		return tag
	}
	parts := strings.Split(raw, ",")
	tag.column = strings.TrimSpace(parts[0])
	for _, part := range parts[1:] {
		switch strings.TrimSpace(part) {
		case "id":
			tag.isID = true
		case "required":
			tag.required = true
		case "include":
			tag.include = true
		case "auto":
			tag.auto = true
		case "auto_update":
			tag.autoUpdate = true
		}
	}
	return tag
}

// MetaFromStruct declares a model type from the exported fields of a
// struct. Attribute names are the snake_case form of the Go field names.
// An empty name uses the struct type name.
func MetaFromStruct(name string, v any) (*Meta, error) {
	t := reflect.TypeOf(v)
	if t == nil {
		return nil, fmt.Errorf("expected struct, got nil")
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("expected struct type, got %s", t.Kind())
	}
	if name == "" {
		name = t.Name()
	}

	b := Define(name)
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)

		// Skip unexported fields
		if !sf.IsExported() {
			continue
		}
		tag := parseFieldTag(sf)
		if tag.skip {
			continue
		}
		f, err := fieldForType(sf.Type, tag)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", name, sf.Name, err)
		}
		b.Field(f)
	}
	return b.Build()
}

func fieldForType(t reflect.Type, tag fieldTag) (Field, error) {
	var opts []FieldOption
	if tag.column != "" {
		opts = append(opts, Column(tag.column))
	}
	if tag.required {
		opts = append(opts, Required())
	}

	if tag.isID {
		if t.Kind() != reflect.String {
			return nil, fmt.Errorf("id field must be a string, got %s", t)
		}
		if tag.include {
			opts = append(opts, IncludeInDocument())
		}
		return ID(tag.attrName, opts...), nil
	}

	if t == timeType || (t.Kind() == reflect.Ptr && t.Elem() == timeType) {
		if tag.auto {
			opts = append(opts, Auto())
		}
		if tag.autoUpdate {
			opts = append(opts, AutoUpdate())
		}
		return DateTime(tag.attrName, opts...), nil
	}

	switch t.Kind() {
	case reflect.String:
		return Text(tag.attrName, opts...), nil
	case reflect.Bool:
		return Boolean(tag.attrName, opts...), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return Number(tag.attrName, opts...), nil
	case reflect.Slice, reflect.Array:
		return List(tag.attrName, opts...), nil
	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return nil, fmt.Errorf("map fields need string keys, got %s", t)
		}
		return Map(tag.attrName, opts...), nil
	case reflect.Ptr:
		if t.Elem().Kind() == reflect.Struct {
			return nestedForType(t.Elem(), tag, opts)
		}
		return fieldForType(t.Elem(), tag)
	case reflect.Struct:
		return nestedForType(t, tag, opts)
	}
	return nil, fmt.Errorf("unsupported field type %s", t)
}

func nestedForType(t reflect.Type, tag fieldTag, opts []FieldOption) (Field, error) {
	nested, err := MetaFromStruct(t.Name(), reflect.New(t).Interface())
	if err != nil {
		return nil, err
	}
	return Nested(tag.attrName, nested, opts...), nil
}

// toSnakeCase converts a CamelCase string to snake_case
func toSnakeCase(s string) string {
	var result strings.Builder
	result.Grow(len(s) + 10)

	for i, r := range s {
		if i > 0 && isUpper(r) {
			// Check if previous rune is lowercase or next rune is lowercase
			prevIsLower := isLower(rune(s[i-1]))
			nextIsLower := i+1 < len(s) && isLower(rune(s[i+1]))

			if prevIsLower || nextIsLower {
				result.WriteRune('_')
			}
		}
		result.WriteRune(toLower(r))
	}

	return result.String()
}

// Helper functions for case conversion
func isUpper(r rune) bool {
	return r >= 'A' && r <= 'Z'
}

func isLower(r rune) bool {
	return r >= 'a' && r <= 'z'
}

func toLower(r rune) rune {
	if isUpper(r) {
		return r + ('a' - 'A')
	}
	return r
}
