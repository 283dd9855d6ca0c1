package visit

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// utf8BOM is written in front of every table so spreadsheet tools pick up
// the encoding, it is stripped again when reading.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// NewBOMWriter writes the UTF-8 byte order mark to w and returns a csv writer
// on top of it.
func NewBOMWriter(w io.Writer) (*csv.Writer, error) {
	_, err := w.Write(utf8BOM)
	if err != nil {
		return nil, err
	}
	return csv.NewWriter(w), nil
}

// WriteCSV writes records as a table with the Columns header.
func WriteCSV(w io.Writer, records []Record) error {
	cw, err := NewBOMWriter(w)
	if err != nil {
		return err
	}
	err = cw.Write(Columns)
	if err != nil {
		return err
	}
	for _, r := range records {
		err = cw.Write(r.Values())
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes records to the file at path, replacing it.
func WriteCSVFile(path string, records []Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create record table: %w", err)
	}
	defer f.Close()

	buffered := bufio.NewWriter(f)
	err = WriteCSV(buffered, records)
	if err != nil {
		return fmt.Errorf("write record table: %w", err)
	}
	err = buffered.Flush()
	if err != nil {
		return fmt.Errorf("write record table: %w", err)
	}
	return f.Close()
}

// ReadCSV reads a record table. Header names are trimmed, unknown columns are
// ignored and absent columns or cells read as empty strings. The returned
// slice preserves file order.
func ReadCSV(r io.Reader) ([]Record, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(utf8BOM))
	if err == nil && bytes.Equal(head, utf8BOM) {
		_, err = br.Discard(len(utf8BOM))
		if err != nil {
			return nil, err
		}
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("read record table: missing header")
	}
	if err != nil {
		return nil, fmt.Errorf("read record table header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var records []Record
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record table: %w", err)
		}

		var rec Record
		for i, column := range header {
			if i >= len(row) {
				break
			}
			field := rec.field(column)
			if field == nil {
				continue
			}
			*field = row[i]
		}
		records = append(records, rec)
	}

	return records, nil
}

// ReadCSVFile reads the record table at path.
func ReadCSVFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open record table: %w", err)
	}
	defer f.Close()
	return ReadCSV(f)
}
