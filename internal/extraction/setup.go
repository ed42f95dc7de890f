package extraction

import (
	"maps"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/donaldgifford/print-price-matrix/pkg/combo"
	domain "github.com/donaldgifford/print-price-matrix/pkg/types"
)

var validate = validator.New()

// Plan is the validated, filtered input of one job.
type Plan struct {
	ProductName string
	ProductID   string
	Catalog     domain.Catalog
	Mappings    domain.AttributeMapping
	Exclusions  domain.Exclusions
	Report      combo.FilterReport
	Total       int
}

// Prepare validates an analysis, applies exclusions and counts combinations.
// Every failure is a *SetupError.
func Prepare(analysis *domain.ProductAnalysis, ex domain.Exclusions) (*Plan, error) {
	if analysis == nil {
		return nil, &SetupError{Reason: "no product analysis"}
	}
	if strings.TrimSpace(analysis.ProductID) == "" {
		return nil, &SetupError{Reason: "missing product id"}
	}
	if err := validate.Struct(analysis); err != nil {
		return nil, &SetupError{Reason: "invalid product analysis", Err: err}
	}

	filtered, report := combo.Filter(analysis.Options, ex)
	if len(filtered) == 0 {
		return nil, &SetupError{Reason: "no options remain after exclusions"}
	}

	total := combo.Total(filtered)
	if total == 0 {
		return nil, &SetupError{Reason: "zero valid combinations"}
	}

	mappings := make(domain.AttributeMapping, len(analysis.AttributeMappings))
	maps.Copy(mappings, analysis.AttributeMappings)

	return &Plan{
		ProductName: analysis.ProductName,
		ProductID:   analysis.ProductID,
		Catalog:     filtered,
		Mappings:    mappings,
		Exclusions:  ex,
		Report:      report,
		Total:       total,
	}, nil
}
