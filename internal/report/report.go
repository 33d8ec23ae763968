// Package report renders analysis runs as markdown tables and HTML pages
package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/montanaflynn/stats"

	"gosip/domain/sip"
)

// NA is printed for missing values
const NA = "NA"

// Report holds one run and its result rows. Only the table matching the
// run kind is rendered.
type Report struct {
	Run    *sip.Run
	Shifts []sip.WeightedShiftRecord
	Atoms  []sip.AtomExcessInterval
}

// Markdown renders the report as markdown
func (r Report) Markdown() []byte {
	var b bytes.Buffer

	title := "SIP analysis"
	if r.Run != nil {
		title = kindTitle(r.Run.Kind)
		if r.Run.ID != "" {
			title = fmt.Sprintf("%s run %s", title, r.Run.ID)
		}
	}
	fmt.Fprintf(&b, "# %s\n\n", title)

	if r.Run != nil {
		fmt.Fprintf(&b, "- Created: %s\n", r.Run.CreatedAt.UTC().Format("2006-01-02 15:04:05 UTC"))
		if r.Run.Isotope != "" {
			fmt.Fprintf(&b, "- Isotope: %s\n", r.Run.Isotope)
		}
		if len(r.Run.Params) > 0 {
			fmt.Fprintf(&b, "- Parameters: `%s`\n", strings.TrimSpace(string(r.Run.Params)))
		}
		b.WriteString("\n")
	}

	if r.Run == nil || r.Run.Kind == sip.RunKindBDShift {
		writeShifts(&b, r.Shifts)
	}
	if r.Run == nil || r.Run.Kind == sip.RunKindQSIP {
		writeAtoms(&b, r.Atoms)
	}
	return b.Bytes()
}

// HTML renders the report as a complete HTML page
func (r Report) HTML() []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	doc := p.Parse(r.Markdown())

	title := "SIP analysis"
	if r.Run != nil {
		title = strings.TrimSpace(fmt.Sprintf("%s %s", kindTitle(r.Run.Kind), r.Run.ID))
	}
	renderer := html.NewRenderer(html.RendererOptions{
		Title: title,
		Flags: html.CommonFlags | html.CompletePage,
	})
	return markdown.Render(doc, renderer)
}

func kindTitle(kind sip.RunKind) string {
	switch kind {
	case sip.RunKindBDShift:
		return "BD shift"
	case sip.RunKindQSIP:
		return "qSIP"
	}
	return string(kind)
}

func writeShifts(b *bytes.Buffer, shifts []sip.WeightedShiftRecord) {
	b.WriteString("## Overlap-weighted community shift\n\n")
	if len(shifts) == 0 {
		b.WriteString("No treatment fractions.\n\n")
		return
	}

	dists := make([]float64, len(shifts))
	for i, s := range shifts {
		dists[i] = s.WeightedMeanDistance
	}
	if hi, err := stats.Max(dists); err == nil {
		median, _ := stats.Median(dists)
		fmt.Fprintf(b, "%d treatment fractions, median shift %s, max shift %s.\n\n",
			len(shifts), num(median), num(hi))
	}

	b.WriteString("| Treatment sample | BD min | Weighted mean distance | Overlapping fractions | Null low | Null high |\n")
	b.WriteString("|---|---:|---:|---:|---:|---:|\n")
	for _, s := range shifts {
		fmt.Fprintf(b, "| %s | %s | %s | %d | %s | %s |\n",
			escape(s.TreatmentSampleID.String()), num(s.BDMin), num(s.WeightedMeanDistance),
			s.NOverlappingFractions, optional(s.NullCILow), optional(s.NullCIHigh))
	}
	b.WriteString("\n")
}

func writeAtoms(b *bytes.Buffer, atoms []sip.AtomExcessInterval) {
	b.WriteString("## Atom fraction excess\n\n")
	if len(atoms) == 0 {
		b.WriteString("No taxa.\n\n")
		return
	}

	var defined []float64
	for _, a := range atoms {
		if a.A != nil {
			defined = append(defined, *a.A)
		}
	}
	fmt.Fprintf(b, "%d taxa, %d with both gradient types", len(atoms), len(defined))
	if median, err := stats.Median(defined); err == nil {
		fmt.Fprintf(b, ", median A %s", num(median))
	}
	b.WriteString(".\n\n")

	b.WriteString("| Taxon | Wlight | Wlab | Z | A | A low | A high |\n")
	b.WriteString("|---|---:|---:|---:|---:|---:|---:|\n")
	for _, a := range atoms {
		fmt.Fprintf(b, "| %s | %s | %s | %s | %s | %s | %s |\n",
			escape(a.TaxonID.String()), optional(a.Wlight), optional(a.Wlab), optional(a.Z),
			optional(a.A), optional(a.ACILow), optional(a.ACIHigh))
	}
	b.WriteString("\n")
}

func num(v float64) string {
	return fmt.Sprintf("%.4f", v)
}

func optional(v *float64) string {
	if v == nil {
		return NA
	}
	return num(*v)
}

// escape keeps pipes in ids from splitting table cells
func escape(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
