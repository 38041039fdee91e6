package agent

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/RodrigoLima82/databricks-assessment-tool/internal/safeio"
)

// maxSampleRows bounds how many data rows per UCX table end up in the
// LLM prompt. The row counts carry the signal; samples just give shape.
const maxSampleRows = 5

// summarizeUCX condenses the CSV tables of a UCX assessment export into
// a prompt-sized text block. Returns ("", nil) when the export directory
// holds no CSV files.
func summarizeUCX(fsys *safeio.SafeFS, onLog func(string)) (string, error) {
	entries, err := fsys.ReadDir(".")
	if err != nil {
		if safeio.Missing(err) {
			return "", nil
		}
		return "", fmt.Errorf("reading ucx export dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".csv") {
			continue
		}
		names = append(names, entry.Name())
	}
	if len(names) == 0 {
		return "", nil
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		data, err := fsys.ReadFile(name)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", name, err)
		}
		section, err := summarizeCSV(name, data)
		if err != nil {
			// a malformed table degrades to a note, not a failed phase
			section = fmt.Sprintf("## %s\n\nunreadable table: %v\n", tableName(name), err)
		}
		b.WriteString(section)
		b.WriteString("\n")
		if onLog != nil {
			onLog(fmt.Sprintf("summarized %s", name))
		}
	}
	return b.String(), nil
}

func summarizeCSV(name string, data []byte) (string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return fmt.Sprintf("## %s\n\nempty table\n", tableName(name)), nil
	}
	if err != nil {
		return "", err
	}

	var samples [][]string
	rows := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		rows++
		if len(samples) < maxSampleRows {
			samples = append(samples, rec)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", tableName(name))
	fmt.Fprintf(&b, "rows: %d\ncolumns: %s\n", rows, strings.Join(header, ", "))
	if len(samples) > 0 {
		b.WriteString("sample:\n")
		for _, rec := range samples {
			fmt.Fprintf(&b, "  %s\n", strings.Join(rec, " | "))
		}
	}
	return b.String(), nil
}

func tableName(filename string) string {
	name := strings.TrimSuffix(filename, ".csv")
	name = strings.TrimSuffix(name, ".CSV")
	return strings.ReplaceAll(name, "_", " ")
}
