package assist

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	domain "github.com/donaldgifford/print-price-matrix/pkg/types"
)

const mappingSystemMsg = `You map print product option names to the attribute slots of a price
calculator request. Respond ONLY with a JSON object.`

const mappingTmpl = `Product: {{.ProductName}}

Known slots:
{{- range .Slots}}
  {{.ID}}: {{.Meaning}}
{{- end}}

Other options use slots attr2, attr7 and higher, one per option.

Map each option name below to exactly one slot. Omit an option if you are
not confident. Never assign two options to the same slot.

Options:
{{- range .Options}}
  - {{.}}
{{- end}}

Respond as {"mappings": {"<option name>": "attrN", ...}}`

var mappingTemplate = template.Must(template.New("mapping").Parse(mappingTmpl))

var slotMeanings = []struct {
	ID      domain.SlotID
	Meaning string
}{
	{domain.SlotPaper, "paper, stock or material"},
	{domain.SlotSize, "size or dimensions"},
	{domain.SlotPage, "pages, sides or color sides"},
	{domain.SlotQuantity, "quantity"},
	{domain.SlotTime, "printing or turnaround time"},
	{domain.SlotBundling, "bundling"},
}

// MappingPrompt renders the slot suggestion prompt.
func MappingPrompt(productName string, options []string) (string, error) {
	var buf bytes.Buffer
	err := mappingTemplate.Execute(&buf, map[string]any{
		"ProductName": productName,
		"Slots":       slotMeanings,
		"Options":     options,
	})
	if err != nil {
		return "", fmt.Errorf("rendering mapping prompt: %w", err)
	}
	return buf.String(), nil
}

// cleanJSONBlock strips markdown code fences some models wrap JSON in.
func cleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
