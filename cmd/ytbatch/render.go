package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"ytbatch/internal/job"
	"ytbatch/internal/progress"
	"ytbatch/internal/services"
	"ytbatch/internal/textutil"
	"ytbatch/internal/verify"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 20
	statusIndent     = "  "
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range r {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
			WidthMax:    72,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := fmt.Sprintf("[%s]", statusKindLabel(kind))
	if message != "" {
		statusText += " " + message
	}
	line := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + line + ansiReset
		}
	}
	return line
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func renderProgress(s progress.Snapshot, colorize bool) string {
	line := fmt.Sprintf("[%d/%d] %3.0f%%", s.Current, s.Total, s.Percentage)
	if s.Label != "" {
		line += " " + s.Label
	}
	if colorize {
		return ansiBlue + line + ansiReset
	}
	return line
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func displayLabel(o job.Outcome) string {
	if label := textutil.NormalizeLabel(o.Label); label != "" {
		return label
	}
	return o.Item
}

func errorDetail(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("%s: %v", services.Kind(err), err)
}

// renderResult prints the per-item table followed by the run summary.
func renderResult(result job.Result, colorize bool) string {
	var b strings.Builder

	for _, line := range renderSectionHeader(fmt.Sprintf("%s job %s", textutil.Title(string(result.Kind)), shortID(result.JobID)), colorize) {
		b.WriteString(line + "\n")
	}

	outcomes := append(append([]job.Outcome(nil), result.Succeeded...), result.Failed...)
	sort.SliceStable(outcomes, func(i, j int) bool { return outcomes[i].Index < outcomes[j].Index })
	rows := make([][]string, 0, len(outcomes)+len(result.Untried))
	for _, o := range outcomes {
		detail := ""
		if o.Err != nil {
			detail = services.Kind(o.Err)
		}
		rows = append(rows, []string{fmt.Sprintf("%d", o.Index), string(o.Status), displayLabel(o), detail})
	}
	next := len(outcomes)
	for _, url := range result.Untried {
		next++
		rows = append(rows, []string{fmt.Sprintf("%d", next), "untried", url, ""})
	}
	if len(rows) > 0 {
		b.WriteString(renderTable([]string{"#", "Status", "Item", "Detail"}, rows, []columnAlignment{alignRight}))
		b.WriteString("\n")
	}

	b.WriteString(renderStatusLine("Succeeded", statusOK, fmt.Sprintf("%d", len(result.Succeeded)), colorize) + "\n")
	failedKind := statusOK
	if len(result.Failed) > 0 {
		failedKind = statusError
	}
	b.WriteString(renderStatusLine("Failed", failedKind, fmt.Sprintf("%d", len(result.Failed)), colorize) + "\n")
	if len(result.Untried) > 0 {
		b.WriteString(renderStatusLine("Untried", statusWarn, fmt.Sprintf("%d", len(result.Untried)), colorize) + "\n")
	}
	if report := result.Verification; report != nil {
		kind := statusOK
		switch report.Status {
		case verify.StatusIncomplete:
			kind = statusError
		case verify.StatusUnknown:
			kind = statusWarn
		}
		detail := fmt.Sprintf("%s (%d/%d files, %d retries)", report.Status, report.State.ObservedCount, report.State.ExpectedCount, report.Retries)
		b.WriteString(renderStatusLine("Verification", kind, detail, colorize) + "\n")
	}
	stateKind := statusOK
	if !result.OK() {
		stateKind = statusError
	}
	b.WriteString(renderStatusLine("State", stateKind, fmt.Sprintf("%s in %s", result.State, result.Duration().Round(100*time.Millisecond)), colorize) + "\n")
	b.WriteString(renderStatusLine("Directory", statusInfo, result.Dir, colorize) + "\n")
	return b.String()
}
