package tui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/pourline/pourline/internal/domain"
)

// ── warm bar palette ──
var (
	accent  = lipgloss.Color("#D97706") // amber
	fg      = lipgloss.Color("#E8E6E3") // warm light gray
	dim     = lipgloss.Color("#6B7280") // muted gray
	faint   = lipgloss.Color("#3F3F46") // very dim
	success = lipgloss.Color("#22C55E") // green
	danger  = lipgloss.Color("#EF4444") // red
	warning = lipgloss.Color("#F59E0B") // amber-yellow
	info    = lipgloss.Color("#8B949E") // soft blue-gray
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accent).
			Align(lipgloss.Center)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(1, 4).
			Align(lipgloss.Center).
			Width(56)

	dimStyle      = lipgloss.NewStyle().Foreground(dim)
	faintStyle    = lipgloss.NewStyle().Foreground(faint)
	passStyle     = lipgloss.NewStyle().Foreground(success)
	failStyle     = lipgloss.NewStyle().Foreground(danger)
	warnStyle     = lipgloss.NewStyle().Foreground(warning)
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(fg)
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)
	separatorLine = faintStyle.Render(strings.Repeat("─", 52))

	severityColors = map[domain.Severity]lipgloss.Color{
		domain.SeverityInfo:    info,
		domain.SeveritySuccess: success,
		domain.SeverityWarning: warning,
		domain.SeverityDanger:  danger,
	}
)

// RenderReport formats a dispatch report for terminal output.
func RenderReport(r domain.SessionReport) string {
	var b strings.Builder

	// ── Header ──
	title := headerStyle.Render("pourline")
	subtitle := dimStyle.Render("Send to dispenser")
	ratio := lipgloss.NewStyle().Bold(true).Foreground(reportColor(r)).Render(r.Ratio())
	b.WriteString(boxStyle.Render(title + "\n" + subtitle + "\n\n" + ratio))
	b.WriteString("\n\n")

	if r.Probe != nil {
		if r.Probe.Success {
			fmt.Fprintf(&b, "  %s %s\n\n", passStyle.Render("●"), dimStyle.Render("middleware reachable"))
		} else {
			fmt.Fprintf(&b, "  %s %s\n\n", warnStyle.Render("●"), dimStyle.Render("middleware unreachable: "+r.Probe.Message))
		}
	}

	// ── Items ──
	for _, o := range r.Outcomes {
		icon := passStyle.Render("✓")
		if !o.Success {
			icon = failStyle.Render("✗")
		}
		code := o.Item.Code
		if o.Item.Kind == domain.KindComposite {
			code = "cocktail"
		}
		fmt.Fprintf(&b, "  %s %s %s  %s\n",
			icon,
			titleStyle.Render(padRight(o.Item.Name, 22)),
			dimStyle.Render(padRight(fmt.Sprintf("x%d %s", o.Item.Quantity, code), 14)),
			faintStyle.Render(o.Message),
		)
	}

	b.WriteString("\n  " + separatorLine + "\n")
	fmt.Fprintf(&b, "  %s\n", lipgloss.NewStyle().Foreground(reportColor(r)).Render(r.Message))
	return b.String()
}

// RenderOrder formats an order snapshot. The selected line is marked and
// combo children are indented under their anchor.
func RenderOrder(v domain.OrderView) string {
	var b strings.Builder

	header := fmt.Sprintf("Order %s", v.ID)
	if v.SessionID != "" {
		header += dimStyle.Render("  session " + v.SessionID)
	}
	b.WriteString("  " + titleStyle.Render(header) + "\n")
	mode := "mode " + string(v.Mode)
	if v.Finalized {
		mode += ", finalized"
	}
	b.WriteString("  " + dimStyle.Render(mode) + "\n")
	b.WriteString("  " + separatorLine + "\n")

	if len(v.Lines) == 0 {
		b.WriteString("  " + dimStyle.Render("No products in the order") + "\n")
		return b.String()
	}

	for _, l := range v.Lines {
		marker := "  "
		name := l.Product
		if l.ParentID != 0 {
			name = "└ " + name
		}
		text := fmt.Sprintf("%s %s", padRight(name, 28), fmt.Sprintf("x%d", l.Quantity))
		if l.ID == v.Selected {
			marker = selectedStyle.Render("▸ ")
			text = selectedStyle.Render(text)
		}
		fmt.Fprintf(&b, "  %s%s\n", marker, text)
	}
	return b.String()
}

// RenderCancel formats the outcome of a manual cancellation.
func RenderCancel(o domain.CancelOutcome) string {
	switch {
	case o.Skipped:
		return "  " + dimStyle.Render("skipped: "+o.Message) + "\n"
	case o.Success:
		return "  " + passStyle.Render("✓ ") + o.Message + "\n"
	default:
		return "  " + failStyle.Render("✗ ") + o.Message + "\n"
	}
}

// RenderProbe formats a connectivity probe.
func RenderProbe(p domain.ProbeResult) string {
	icon := passStyle.Render("●")
	if !p.Success {
		icon = failStyle.Render("●")
	}
	line := fmt.Sprintf("  %s %s", icon, p.Message)
	if p.URL != "" {
		line += "  " + dimStyle.Render(p.URL)
	}
	return line + "\n"
}

// RenderHistory formats past dispatch runs, oldest first.
func RenderHistory(entries []domain.DispatchEntry) string {
	if len(entries) == 0 {
		return "  " + dimStyle.Render("No dispatch recorded yet") + "\n"
	}

	var b strings.Builder
	for _, e := range entries {
		ratio := lipgloss.NewStyle().Foreground(reportColor(e.Report)).Render(padRight(e.Report.Ratio(), 6))
		fmt.Fprintf(&b, "  %s %s %s  %s\n",
			dimStyle.Render(padRight(e.Timestamp, 21)),
			titleStyle.Render(padRight(e.OrderID, 14)),
			ratio,
			faintStyle.Render(e.Operator),
		)
	}
	return b.String()
}

// Notifier prints operator notifications as colored lines.
type Notifier struct {
	mu sync.Mutex
	w  io.Writer
}

// NewNotifier creates a Notifier writing to w.
func NewNotifier(w io.Writer) *Notifier { return &Notifier{w: w} }

func (n *Notifier) Notify(message string, severity domain.Severity) {
	color, ok := severityColors[severity]
	if !ok {
		color = fg
	}
	tag := lipgloss.NewStyle().Bold(true).Foreground(color).Render(padRight(string(severity), 7))

	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintf(n.w, "  %s %s\n", tag, message)
}

func reportColor(r domain.SessionReport) lipgloss.Color {
	switch {
	case r.AllSucceeded():
		return success
	case r.PartialFailure():
		return warning
	case r.Status == domain.ReportEmpty:
		return info
	default:
		return danger
	}
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
