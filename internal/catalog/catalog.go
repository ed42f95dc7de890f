// Package catalog loads product analysis files produced by option discovery.
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	domain "github.com/donaldgifford/print-price-matrix/pkg/types"
)

//go:embed analysis.schema.json
var analysisSchema string

var schemaLoader = gojsonschema.NewStringLoader(analysisSchema)

// FieldError is a single schema violation at a JSON path.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError lists every schema violation of an analysis document.
type ValidationError struct {
	Source string
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "invalid product analysis %s:", e.Source)
	for _, fe := range e.Errors {
		fmt.Fprintf(&sb, " %s: %s;", fe.Field, fe.Message)
	}
	return strings.TrimSuffix(sb.String(), ";")
}

// Load reads and validates a product analysis JSON file.
func Load(path string) (*domain.ProductAnalysis, error) {
	data, err := os.ReadFile(path) //nolint:gosec // analysis path from trusted CLI flag
	if err != nil {
		return nil, fmt.Errorf("reading analysis file: %w", err)
	}

	analysis, err := parse(path, data)
	if err != nil {
		return nil, err
	}
	return analysis, nil
}

// Parse validates and decodes product analysis JSON.
func Parse(data []byte) (*domain.ProductAnalysis, error) {
	return parse("(inline)", data)
}

func parse(source string, data []byte) (*domain.ProductAnalysis, error) {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("validating analysis %s: %w", source, err)
	}

	if !result.Valid() {
		verr := &ValidationError{
			Source: source,
			Errors: make([]FieldError, 0, len(result.Errors())),
		}
		for _, desc := range result.Errors() {
			field := desc.Field()
			if field == "" {
				field = "(root)"
			}
			verr.Errors = append(verr.Errors, FieldError{
				Field:   field,
				Message: desc.Description(),
			})
		}
		return nil, verr
	}

	var analysis domain.ProductAnalysis
	if err := json.Unmarshal(data, &analysis); err != nil {
		return nil, fmt.Errorf("decoding analysis %s: %w", source, err)
	}
	return &analysis, nil
}

// ParseExclusions builds exclusions from option names and "Option=id1,id2"
// value specs as given on a command line.
func ParseExclusions(options, valueSpecs []string) (domain.Exclusions, error) {
	ex := domain.Exclusions{Options: options}
	if len(valueSpecs) == 0 {
		return ex, nil
	}

	ex.Values = make(map[string][]string, len(valueSpecs))
	for _, spec := range valueSpecs {
		name, ids, ok := strings.Cut(spec, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" || strings.TrimSpace(ids) == "" {
			return domain.Exclusions{}, fmt.Errorf("invalid value exclusion %q, want option=id[,id...]", spec)
		}
		for id := range strings.SplitSeq(ids, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ex.Values[name] = append(ex.Values[name], id)
			}
		}
	}
	return ex, nil
}
