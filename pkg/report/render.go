package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

// Render writes doc to w in the given format.
func Render(w io.Writer, doc *Document, format Format) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, doc)
	case FormatYAML:
		return WriteYAML(w, doc)
	case FormatTerminal, "":
		return WriteTerminal(w, doc)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

// WriteJSON writes doc as indented JSON.
func WriteJSON(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode json report: %w", err)
	}
	return nil
}

// WriteYAML writes doc as YAML.
func WriteYAML(w io.Writer, doc *Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode yaml report: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("flush yaml report: %w", err)
	}
	return nil
}

// =============================================================================
// Terminal
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")
	colorGreen  = lipgloss.Color("35")
	colorYellow = lipgloss.Color("220")
	colorRed    = lipgloss.Color("167")
	colorGray   = lipgloss.Color("245")
	colorDim    = lipgloss.Color("240")
)

const (
	iconValid   = "✓"
	iconInvalid = "✗"
	iconWarning = "!"
	iconArrow   = "→"
	iconBack    = "←"
)

// styles binds the palette to one writer so colors are dropped when w is not a terminal.
type styles struct {
	title   lipgloss.Style
	heading lipgloss.Style
	dim     lipgloss.Style
	number  lipgloss.Style
	high    lipgloss.Style
	medium  lipgloss.Style
	low     lipgloss.Style
	valid   lipgloss.Style
	invalid lipgloss.Style
	warning lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		title:   r.NewStyle().Bold(true).Foreground(colorCyan),
		heading: r.NewStyle().Bold(true),
		dim:     r.NewStyle().Foreground(colorDim),
		number:  r.NewStyle().Foreground(colorCyan),
		high:    r.NewStyle().Foreground(colorGreen).Bold(true),
		medium:  r.NewStyle().Foreground(colorYellow),
		low:     r.NewStyle().Foreground(colorGray),
		valid:   r.NewStyle().Foreground(colorGreen),
		invalid: r.NewStyle().Foreground(colorRed),
		warning: r.NewStyle().Foreground(colorYellow),
	}
}

func (s styles) tier(tier string) lipgloss.Style {
	switch tier {
	case "high":
		return s.high
	case "medium":
		return s.medium
	default:
		return s.low
	}
}

// WriteTerminal writes a human-readable summary of doc.
func WriteTerminal(w io.Writer, doc *Document) error {
	s := newStyles(w)
	var b strings.Builder

	title := "Relationship analysis"
	if doc.RunID != "" {
		title += " " + s.dim.Render(doc.RunID)
	}
	b.WriteString(s.title.Render(title) + "\n")
	b.WriteString("  " + summaryLine(s, doc) + "\n")

	if len(doc.PrimaryKeys) > 0 {
		b.WriteString("\n" + s.heading.Render("Primary keys") + "\n")
		width := 0
		for _, pk := range doc.PrimaryKeys {
			width = max(width, len(pk.Table))
		}
		for _, pk := range doc.PrimaryKeys {
			fmt.Fprintf(&b, "  %-*s  %s %s\n", width, pk.Table, pk.Column, s.dim.Render(fmt.Sprintf("(tier %d)", pk.Tier)))
		}
	}

	if len(doc.Relationships) > 0 {
		b.WriteString("\n" + s.heading.Render("Relationships") + "\n")
		srcWidth, tgtWidth := 0, 0
		for _, r := range doc.Relationships {
			srcWidth = max(srcWidth, len(r.Source))
			tgtWidth = max(tgtWidth, len(r.Target))
		}
		for _, r := range doc.Relationships {
			conf := s.tier(r.Tier).Render(fmt.Sprintf("%.2f %-6s", r.Confidence, r.Tier))
			fmt.Fprintf(&b, "  %3d  %s  %-*s %s %-*s  %-7s %s%s\n",
				r.Rank, conf,
				srcWidth, r.Source, iconArrow, tgtWidth, r.Target,
				r.Cardinality, s.dim.Render(r.DirectionRule), verdict(s, r.Validation))
		}
	} else if doc.Profiles == nil {
		b.WriteString("\n" + s.dim.Render("No relationships found.") + "\n")
	}

	if len(doc.ReferencedBy) > 0 {
		b.WriteString("\n" + s.heading.Render("Referenced by") + "\n")
		for _, ref := range doc.ReferencedBy {
			froms := make([]string, len(ref.From))
			for i, f := range ref.From {
				froms[i] = f.Source + s.dim.Render(" ("+f.Cardinality+")")
			}
			fmt.Fprintf(&b, "  %s %s %s\n", ref.Target, iconBack, strings.Join(froms, ", "))
		}
	}

	if len(doc.Profiles) > 0 {
		b.WriteString("\n" + s.heading.Render("Columns") + "\n")
		width := 0
		for _, p := range doc.Profiles {
			width = max(width, len(p.Table)+1+len(p.Column))
		}
		for _, p := range doc.Profiles {
			name := p.Table + "." + p.Column
			pk := ""
			if p.PrimaryKey {
				pk = " " + s.high.Render("PK")
			}
			fmt.Fprintf(&b, "  %-*s  %-8s %s%s\n", width, name, p.DataType,
				s.dim.Render(fmt.Sprintf("%d rows, %d null, %d unique (%.0f%%) %s",
					p.Rows, p.Nulls, p.Unique, p.Uniqueness*100, p.Pattern)), pk)
		}
	}

	if doc.Validation != nil {
		v := doc.Validation
		fmt.Fprintf(&b, "\n%s %s confirmed, %s rejected, %s failed\n", s.heading.Render("Validation"),
			s.valid.Render(fmt.Sprint(v.Confirmed)), s.invalid.Render(fmt.Sprint(v.Rejected)), s.warning.Render(fmt.Sprint(v.Failed)))
	}

	for _, d := range doc.Degraded {
		fmt.Fprintf(&b, "\n%s %s\n", s.warning.Render(iconWarning), s.warning.Render(fmt.Sprintf("%s unavailable: %s", d.Component, d.Reason)))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func summaryLine(s styles, doc *Document) string {
	n := func(v int) string { return s.number.Render(fmt.Sprint(v)) }
	parts := []string{
		n(doc.Summary.Tables) + " tables",
		n(doc.Summary.Columns) + " columns",
		n(doc.Summary.PrimaryKeys) + " primary keys",
	}
	if doc.Summary.PairsScored > 0 || doc.Summary.Candidates > 0 {
		parts = append(parts,
			n(doc.Summary.PairsScored)+" pairs scored",
			fmt.Sprintf("%s candidates (%d high, %d medium, %d low)", n(doc.Summary.Candidates),
				doc.Summary.ByTier["high"], doc.Summary.ByTier["medium"], doc.Summary.ByTier["low"]))
	}
	line := strings.Join(parts, s.dim.Render(" · "))
	if doc.Elapsed != "" {
		line += s.dim.Render(" in " + doc.Elapsed)
	}
	return line
}

func verdict(s styles, v *Validation) string {
	switch {
	case v == nil:
		return ""
	case v.Error != "":
		return "  " + s.warning.Render(iconWarning+" unvalidated")
	case v.IsValid:
		return "  " + s.valid.Render(iconValid+" valid")
	default:
		return "  " + s.invalid.Render(iconInvalid+" rejected")
	}
}
