package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// OptionValue is one selectable value of a product option. ID is the vendor's
// opaque value identifier; Label is its display text.
type OptionValue struct {
	ID    string `json:"id"    validate:"required"`
	Label string `json:"label" validate:"required"`
}

// UnmarshalJSON accepts both "label" and the discovery collaborator's "text"
// key, and numeric IDs.
func (v *OptionValue) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID    json.RawMessage `json:"id"`
		Label string          `json:"label"`
		Text  string          `json:"text"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	id, err := rawString(raw.ID)
	if err != nil {
		return fmt.Errorf("option value id: %w", err)
	}

	v.ID = id
	v.Label = raw.Label
	if v.Label == "" {
		v.Label = raw.Text
	}
	return nil
}

// Option is a named product configuration axis with its ordered values.
type Option struct {
	Name   string        `json:"name"   validate:"required"`
	Values []OptionValue `json:"values" validate:"dive"`
}

// Catalog is the ordered set of options for a product. Option order is
// significant: it drives enumeration order and column order.
type Catalog []Option

// Names returns option names in catalog order.
func (c Catalog) Names() []string {
	names := make([]string, len(c))
	for i := range c {
		names[i] = c[i].Name
	}
	return names
}

// Lookup returns the option with the given name.
func (c Catalog) Lookup(name string) (Option, bool) {
	for i := range c {
		if c[i].Name == name {
			return c[i], true
		}
	}
	return Option{}, false
}

// Clone returns a deep copy of the catalog.
func (c Catalog) Clone() Catalog {
	out := make(Catalog, len(c))
	for i := range c {
		out[i] = Option{
			Name:   c[i].Name,
			Values: append([]OptionValue(nil), c[i].Values...),
		}
	}
	return out
}

// UnmarshalJSON decodes either the array form
// [{"name": "Size", "values": [...]}] or the object form
// {"Size": [...], "Paper": [...]}, keeping the object's key order.
func (c *Catalog) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*c = nil
		return nil
	}

	if trimmed[0] == '[' {
		var opts []Option
		if err := json.Unmarshal(trimmed, &opts); err != nil {
			return err
		}
		*c = opts
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("catalog: expected object or array, got %v", tok)
	}

	var opts Catalog
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("catalog: expected option name, got %v", keyTok)
		}

		var values []OptionValue
		if err := dec.Decode(&values); err != nil {
			return fmt.Errorf("catalog option %q: %w", name, err)
		}
		opts = append(opts, Option{Name: name, Values: values})
	}

	if _, err := dec.Token(); err != nil {
		return err
	}

	*c = opts
	return nil
}

func rawString(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}
