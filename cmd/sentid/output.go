package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

var (
	successColor = color.New(color.FgGreen)
	errorColor   = color.New(color.FgRed)
	warningColor = color.New(color.FgYellow)
	labelColor   = color.New(color.Bold)
)

// stderr is swapped out by tests.
var stderr io.Writer = os.Stderr

func printSuccess(format string, args ...any) {
	fmt.Fprintln(stderr, successColor.Sprint("✓ "+fmt.Sprintf(format, args...)))
}

func printError(format string, args ...any) {
	fmt.Fprintln(stderr, errorColor.Sprint("✗ "+fmt.Sprintf(format, args...)))
}

func printWarning(format string, args ...any) {
	fmt.Fprintln(stderr, warningColor.Sprint("⚠ "+fmt.Sprintf(format, args...)))
}

func printStatus(label string, format string, args ...any) {
	fmt.Fprintf(stderr, "  %s %s\n", labelColor.Sprint(label+":"), fmt.Sprintf(format, args...))
}

// record is either prediction shape as returned by the API.
type record struct {
	ID         int64              `json:"id"`
	Text       string             `json:"text"`
	Sentiment  string             `json:"sentiment,omitempty"`
	Confidence *float64           `json:"confidence,omitempty"`
	Emotions   map[string]float64 `json:"emotions,omitempty"`
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	t := tablewriter.NewWriter(w)
	t.SetHeader(header)
	t.SetAutoWrapText(false)
	t.SetAlignment(tablewriter.ALIGN_LEFT)
	t.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	return t
}

// printRecord renders rec as a table. Emotion scores are listed highest first.
func printRecord(w io.Writer, rec record) {
	fmt.Fprintf(w, "%s %d\n", labelColor.Sprint("id:"), rec.ID)
	fmt.Fprintf(w, "%s %s\n", labelColor.Sprint("text:"), rec.Text)

	if rec.Emotions == nil {
		t := newTable(w, "Sentiment", "Confidence")
		conf := ""
		if rec.Confidence != nil {
			conf = strconv.FormatFloat(*rec.Confidence, 'f', 4, 64)
		}
		t.Append([]string{rec.Sentiment, conf})
		t.Render()
		return
	}

	labels := make([]string, 0, len(rec.Emotions))
	for l := range rec.Emotions {
		labels = append(labels, l)
	}
	sort.Slice(labels, func(i, j int) bool {
		si, sj := rec.Emotions[labels[i]], rec.Emotions[labels[j]]
		if si != sj {
			return si > sj
		}
		return labels[i] < labels[j]
	})

	t := newTable(w, "Emotion", "Score")
	for _, l := range labels {
		t.Append([]string{l, strconv.FormatFloat(rec.Emotions[l], 'f', 3, 64)})
	}
	t.Render()
}
