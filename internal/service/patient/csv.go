package patient

import (
	"bufio"
	"encoding/csv"
	"io"
	"strings"
)

// parseError carries a message meant for the uploader.
type parseError struct {
	msg string
	err error
}

func (e *parseError) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

func (e *parseError) Unwrap() error { return e.err }

type csvRow struct {
	name  string
	phone string
	email string
}

// parseCSV reads an uploaded patient list. The first non-blank line is the
// header; the name, phone and email columns are the first headers containing
// those words.
func parseCSV(r io.Reader) ([]csvRow, error) {
	lines, err := nonBlankLines(r)
	if err != nil {
		return nil, err
	}
	if len(lines) < 2 {
		return nil, &parseError{msg: "CSV must have data"}
	}

	reader := csv.NewReader(strings.NewReader(strings.Join(lines, "\n")))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, &parseError{msg: "Could not read CSV file", err: err}
	}

	header := records[0]
	nameIdx, phoneIdx, emailIdx := -1, -1, -1
	for i, h := range header {
		h = strings.ToLower(clean(h))
		if nameIdx < 0 && strings.Contains(h, "name") {
			nameIdx = i
		}
		if phoneIdx < 0 && strings.Contains(h, "phone") {
			phoneIdx = i
		}
		if emailIdx < 0 && strings.Contains(h, "email") {
			emailIdx = i
		}
	}
	if nameIdx < 0 || phoneIdx < 0 {
		return nil, &parseError{msg: "Need name and phone columns"}
	}

	rows := make([]csvRow, 0, len(records)-1)
	for _, rec := range records[1:] {
		rows = append(rows, csvRow{
			name:  field(rec, nameIdx),
			phone: field(rec, phoneIdx),
			email: field(rec, emailIdx),
		})
	}
	return rows, nil
}

func nonBlankLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, &parseError{msg: "Could not read CSV file", err: err}
	}
	return lines, nil
}

func field(rec []string, idx int) string {
	if idx < 0 || idx >= len(rec) {
		return ""
	}
	return clean(rec[idx])
}

func clean(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, `"`, ""))
}
