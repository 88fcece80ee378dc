package fleet

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// maxLineSize bounds a single input line.
const maxLineSize = 1 << 20

// ReadFile reads input rows from a CSV file.
func ReadFile(path string) ([]Row, error) {
	// #nosec G304 -- path is supplied by the operator
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer func() { _ = f.Close() }()

	rows, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

// ReadCSV reads `"instance_full_name","agent_rules"` records, one per line.
// Each line is decoded on its own with lenient quoting, so an unquoted JSON
// field is accepted and a line that still cannot be decoded becomes a Row
// carrying Err. Parse rejects such rows and the wrong number of fields per
// row; only I/O failures are returned as an error.
func ReadCSV(r io.Reader) ([]Row, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var rows []Row
	for number := 1; scanner.Scan(); number++ {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		rows = append(rows, readLine(number, line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return rows, nil
}

func readLine(number int, line string) Row {
	reader := csv.NewReader(strings.NewReader(line))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	record, err := reader.Read()
	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			err = parseErr.Err
		}
		return Row{Number: number, Err: err}
	}

	row := Row{Number: number, Instance: record[0], Fields: len(record)}
	if len(record) > 1 {
		row.Rules = record[1]
	}
	return row
}
