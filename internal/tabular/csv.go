package tabular

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/sells-group/empresas-cli/internal/model"
)

// Supported CSV encodings.
const (
	EncodingUTF8        = "utf-8"
	EncodingWindows1252 = "windows-1252"
	EncodingLatin1      = "latin1"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVOptions configures the CSV reader and writer.
type CSVOptions struct {
	Delimiter rune   // default ','
	Encoding  string // default utf-8; input only
	Comment   rune   // comment character (0 = none)
}

func decoderFor(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", EncodingUTF8, "utf8":
		return nil, nil
	case EncodingWindows1252, "cp1252":
		return charmap.Windows1252, nil
	case EncodingLatin1, "iso-8859-1":
		return charmap.ISO8859_1, nil
	}
	return nil, eris.Errorf("csv: unsupported encoding %q", name)
}

// ReadCSV reads a delimited file into a table. The first record is the
// header. Cells that are empty after trimming become absent.
func ReadCSV(ctx context.Context, r io.Reader, opts CSVOptions) (*model.Table, error) {
	enc, err := decoderFor(opts.Encoding)
	if err != nil {
		return nil, err
	}
	if enc != nil {
		r = transform.NewReader(r, enc.NewDecoder())
	}
	br := bufio.NewReader(r)
	if b, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(b, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	reader := csv.NewReader(br)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	if opts.Comment != 0 {
		reader.Comment = opts.Comment
	}
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1 // allow variable fields

	var header []string
	var rows []model.Row
	for {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "csv: context cancelled")
		}
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "csv: read row")
		}
		if header == nil {
			header = record
			continue
		}
		rows = append(rows, toRow(record))
	}
	if header == nil {
		return nil, eris.New("csv: missing header row")
	}
	return model.NewTable(header, rows), nil
}

// WriteCSV writes t as UTF-8 CSV with a header row. Absent cells are
// written as empty fields.
func WriteCSV(w io.Writer, t *model.Table, opts CSVOptions) error {
	cw := csv.NewWriter(w)
	if opts.Delimiter != 0 {
		cw.Comma = opts.Delimiter
	}
	if err := cw.Write(t.Columns); err != nil {
		return eris.Wrap(err, "csv: write header")
	}
	record := make([]string, len(t.Columns))
	for _, r := range t.Rows {
		for i, c := range r {
			record[i] = c.String()
		}
		if err := cw.Write(record); err != nil {
			return eris.Wrap(err, "csv: write row")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "csv: flush")
	}
	return nil
}

func toRow(values []string) model.Row {
	row := make(model.Row, len(values))
	for i, v := range values {
		if strings.TrimSpace(v) == "" {
			row[i] = model.Null()
			continue
		}
		row[i] = model.Str(v)
	}
	return row
}
