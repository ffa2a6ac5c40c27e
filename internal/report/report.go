// Package report renders a metrics snapshot as a terminal table, a markdown
// document, or HTML. Reports are derived artifacts, regenerated at will.
package report

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/probelab/lexiprobe/internal/metrics"
)

const sampleWidth = 48

// WriteTable renders the per-group summary table. withSamples adds a sample
// response column, truncated display-width aware since responses carry wide
// glyphs.
func WriteTable(w io.Writer, snap *metrics.Snapshot, withSamples bool) {
	fmt.Fprintln(w, strings.Repeat("=", 96))
	fmt.Fprintln(w, " LEXICAL METRICS")
	fmt.Fprintln(w, strings.Repeat("=", 96))
	fmt.Fprintf(w, "%-12s %4s %9s %9s %9s %9s %8s %8s %9s  %s\n",
		"Group", "N", "Coupling", "LightScr", "VoidScr", "AnalScr", "Escape", "Refusal", "Reasoning", "Basin")
	fmt.Fprintln(w, strings.Repeat("-", 96))

	for _, g := range snap.Groups {
		fmt.Fprintf(w, "%-12s %4d %9s %+9.3f %9.3f %9.3f %7.1f%% %7.1f%% %9.0f  %s\n",
			g.Group, g.N, couplingCell(&g),
			g.NetScoreMean, g.VoidScoreMean, g.AnalyticalScoreMean,
			g.EscapeRate*100, g.RefusalRate*100,
			g.MeanReasoningTokens, g.Basin)
	}

	fmt.Fprintln(w, strings.Repeat("-", 96))
	fmt.Fprintf(w, "rows=%d unparsed=%d\n", snap.TotalRows, snap.Unparsed)

	if withSamples {
		fmt.Fprintln(w)
		for _, g := range snap.Groups {
			if g.Sample == "" {
				continue
			}
			fmt.Fprintf(w, "  %-12s %s\n", g.Group, runewidth.Truncate(g.Sample, sampleWidth, "…"))
		}
	}
}

// RenderMarkdown produces the markdown report.
func RenderMarkdown(studyName string, snap *metrics.Snapshot) []byte {
	var b bytes.Buffer

	fmt.Fprintf(&b, "# Lexical metrics — %s\n\n", studyName)
	fmt.Fprintf(&b, "Rows: %d (unparsed: %d)\n\n", snap.TotalRows, snap.Unparsed)

	b.WriteString("| Group | N | Coupling | Light score | CI95 | Void | Analytical | Escape | Refusal | Reasoning | Basin |\n")
	b.WriteString("|-------|---|----------|-------------|------|------|------------|--------|---------|-----------|-------|\n")
	for _, g := range snap.Groups {
		sig := ""
		if g.N >= 2 && g.NetScoreCI.ExcludesZero() {
			sig = " *"
		}
		fmt.Fprintf(&b, "| %s | %d | %s | %+.3f%s | [%+.3f, %+.3f] | %.3f | %.3f | %.1f%% | %.1f%% | %.0f | %s |\n",
			g.Group, g.N, couplingCell(&g),
			g.NetScoreMean, sig,
			g.NetScoreCI.Lower, g.NetScoreCI.Upper,
			g.VoidScoreMean, g.AnalyticalScoreMean,
			g.EscapeRate*100, g.RefusalRate*100,
			g.MeanReasoningTokens, g.Basin)
	}

	b.WriteString("\n`*` marks groups whose light score CI95 excludes zero.\n")
	b.WriteString("\n## Interpretation guide\n\n")
	b.WriteString("- Light score: -0.3 (void dominant) → 0.0 (hybrid) → +0.3 (light dominant)\n")
	b.WriteString("- Coupling: >70% = stable attractor, <50% = destabilizing\n")
	b.WriteString("- Escapes: >1% = model under pressure, seeking exit\n")
	b.WriteString("- Reasoning: >300 tokens = high cognitive load\n")
	return b.Bytes()
}

// RenderHTML converts the markdown report to HTML. Tables need the GFM
// extension.
func RenderHTML(studyName string, snap *metrics.Snapshot) ([]byte, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	var out bytes.Buffer
	if err := md.Convert(RenderMarkdown(studyName, snap), &out); err != nil {
		return nil, fmt.Errorf("report: render html: %w", err)
	}
	return out.Bytes(), nil
}

// couplingCell formats a coupling rate, with N/A for empty groups.
func couplingCell(g *metrics.GroupMetrics) string {
	if g.CouplingRate == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", *g.CouplingRate*100)
}
