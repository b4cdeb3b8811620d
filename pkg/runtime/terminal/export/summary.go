package export

import (
	"fmt"
	"io"
	"os"
	"text/template"

	"github.com/de-tools/workspace-steward/pkg/models/api"
)

// SummaryReporter outputs cost summaries to the console in a formatted
// text form
type SummaryReporter struct {
	writer io.Writer
}

func NewSummaryReporter(writer io.Writer) *SummaryReporter {
	if writer == nil {
		writer = os.Stdout
	}
	return &SummaryReporter{writer: writer}
}

func (c *SummaryReporter) Handle(summary *api.CostSummary) error {
	tmpl := `
Fleet Cost Summary ({{.Workspaces}} workspaces)
Total Monthly Cost: USD {{printf "%.2f" .TotalMonthlyCost}}
Idle Monthly Cost: USD {{printf "%.2f" .IdleMonthlyCost}}
Potential Savings: USD {{printf "%.2f" .PotentialSavings}}

=== By Resource Type ===
{{range $type, $cost := .CostByResourceType}}
{{$type}}: USD {{printf "%.2f" $cost}}
{{end}}
`
	t, err := template.New("costs").Parse(tmpl)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	return t.Execute(c.writer, summary)
}
