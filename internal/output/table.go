package output

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/blackwell-systems/leechkit/internal/detector"
	"github.com/blackwell-systems/leechkit/internal/store"
)

// RenderOptionsTable renders the effective scan options.
func RenderOptionsTable(options []Option) string {
	width := len("Option")
	for _, o := range options {
		if len(o.Name) > width {
			width = len(o.Name)
		}
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-*s  %s\n", width, "Option", "Value"))
	sb.WriteString(strings.Repeat("─", width+20))
	sb.WriteString("\n")
	for _, o := range options {
		sb.WriteString(fmt.Sprintf("%-*s  %s\n", width, o.Name, o.Value))
	}
	return sb.String()
}

// FormatLeech renders the one-line notice printed while a scan runs.
func FormatLeech(l Leech) string {
	return colorize(colorGreen, fmt.Sprintf("Found leech - cid:%d - metadata:%s", l.CardID, formatMetadata(l)))
}

// formatMetadata renders the mode-specific verdict values in key order.
func formatMetadata(l Leech) string {
	var parts []string
	if l.CrossoverCount != nil {
		parts = append(parts, fmt.Sprintf("crossover_count: %d", *l.CrossoverCount))
	} else {
		if l.Probability != nil {
			parts = append(parts, "p: "+formatFloat(*l.Probability))
		}
		if l.Threshold != nil {
			parts = append(parts, "t: "+formatFloat(*l.Threshold))
		}
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// RenderLeechTable renders the leeches found by a scan, ordered by card id.
func RenderLeechTable(leeches []Leech) string {
	if len(leeches) == 0 {
		return "No leeches found.\n"
	}

	sorted := make([]Leech, len(leeches))
	copy(sorted, leeches)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CardID < sorted[j].CardID
	})

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-15s %-15s %-24s %-7s %-11s %-11s %s\n",
		"Card", "Note", "Deck", "Trials", "p", "t", "Crossovers"))
	sb.WriteString(strings.Repeat("─", 98))
	sb.WriteString("\n")

	for _, l := range sorted {
		crossovers := "—"
		if l.CrossoverCount != nil {
			crossovers = strconv.Itoa(*l.CrossoverCount)
		}
		sb.WriteString(fmt.Sprintf("%-15d %-15d %-24s %-7d %-11s %-11s %s\n",
			l.CardID,
			l.NoteID,
			truncate(l.Deck, 24),
			l.Trials,
			formatOptional(l.Probability),
			formatOptional(l.Threshold),
			crossovers))
	}
	return sb.String()
}

// RenderSummary renders the closing lines of a scan.
func RenderSummary(r *Report) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Processed %d cards\n", r.Checked))
	sb.WriteString(fmt.Sprintf("Found %d leeches\n", len(r.Leeches)))
	if len(r.Errors) > 0 {
		sb.WriteString(colorize(colorRed, fmt.Sprintf("%d cards could not be classified\n", len(r.Errors))))
	}
	if r.RunID != "" {
		sb.WriteString(fmt.Sprintf("Changes recorded as run %s (revert with: leechkit undo %s)\n", r.RunID, r.RunID))
	}
	return sb.String()
}

// RenderErrors lists the cards whose classification failed.
func RenderErrors(errs []CardError) string {
	var sb strings.Builder
	for _, e := range errs {
		sb.WriteString(colorize(colorRed, fmt.Sprintf("card %d: %s", e.CardID, e.Error)))
		sb.WriteString("\n")
	}
	return sb.String()
}

// RenderTrialTable renders every trial of an explained card together with
// the test evaluated on the trials up to and including it.
func RenderTrialTable(cardID int64, ex *detector.Explanation) string {
	var sb strings.Builder

	verdict := colorize(colorGreen, "not a leech")
	if ex.Result.IsLeech {
		verdict = colorize(colorRed, "leech")
	}
	sb.WriteString(fmt.Sprintf("Card %d: %s (%d trials)\n", cardID, verdict, ex.Result.Trials))

	if len(ex.Steps) == 0 {
		sb.WriteString("Not enough review history to judge this card.\n")
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("p=%s t=%s", formatOptional(ex.Result.Probability), formatOptional(ex.Result.Threshold)))
	if n, ok := ex.Result.CrossoverCount(); ok {
		sb.WriteString(fmt.Sprintf(" crossovers=%d", n))
	}
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("%-4s %-11s %-8s %-9s %-7s %-8s %-11s %-11s %s\n",
		"#", "Date", "Elapsed", "Stability", "R", "Outcome", "p", "t", "Crossed"))
	sb.WriteString(strings.Repeat("─", 84))
	sb.WriteString("\n")

	for _, s := range ex.Steps {
		outcome := colorize(colorGreen, "pass   ")
		if !s.Trial.Succeeded {
			outcome = colorize(colorRed, "fail   ")
		}
		crossed := colorize(colorGray, "no")
		if s.Crossed {
			crossed = colorize(colorYellow, "yes")
		}
		sb.WriteString(fmt.Sprintf("%-4d %-11s %-8s %-9s %-7s %s  %-11s %-11s %s\n",
			s.N,
			s.Trial.Date.String(),
			strconv.FormatFloat(s.Trial.ElapsedDays, 'f', 1, 64)+"d",
			strconv.FormatFloat(s.Trial.Stability, 'f', 2, 64),
			strconv.FormatFloat(s.Trial.Probability, 'f', 3, 64),
			outcome,
			formatFloat(s.TailProbability),
			formatFloat(s.Threshold),
			crossed))
	}
	return sb.String()
}

// RenderRunTable renders recorded write runs, newest first.
func RenderRunTable(runs []*store.Run) string {
	if len(runs) == 0 {
		return "No runs recorded.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-36s  %-16s %-16s %-6s %-6s %s\n",
		"Run", "Created", "Tag", "Flag", "Cards", "Status"))
	sb.WriteString(strings.Repeat("─", 100))
	sb.WriteString("\n")

	for _, r := range runs {
		status := colorize(colorGreen, "applied")
		if r.RevertedAt != nil {
			status = colorize(colorGray, "reverted "+formatRelativeTime(*r.RevertedAt))
		}
		flag := "—"
		if r.Flag != 0 {
			flag = strconv.Itoa(r.Flag)
		}
		sb.WriteString(fmt.Sprintf("%-36s  %-16s %-16s %-6s %-6d %s\n",
			r.ID,
			formatRelativeTime(r.CreatedAt),
			truncate(r.Tag, 16),
			flag,
			r.CardCount,
			status))
	}
	return sb.String()
}

// formatFloat renders a probability compactly: fixed for ordinary values,
// scientific for very small ones.
func formatFloat(v float64) string {
	if v != 0 && v < 1e-4 {
		return strconv.FormatFloat(v, 'e', 3, 64)
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return "—"
	}
	return formatFloat(*v)
}

// formatRelativeTime formats a time as relative to now (e.g., "2 days ago").
func formatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	diff := time.Since(t)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return plural(int(diff.Minutes()), "minute")
	case diff < 24*time.Hour:
		return plural(int(diff.Hours()), "hour")
	case diff < 30*24*time.Hour:
		return plural(int(diff.Hours()/24), "day")
	default:
		return t.Format("2006-01-02")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit + " ago"
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

// truncate truncates a string to maxLen characters, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
