package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/inferloop/kanon/pkg/constants"
	"github.com/inferloop/kanon/pkg/errors"
)

// CSVOptions controls CSV reading and writing
type CSVOptions struct {
	Delimiter string `mapstructure:"delimiter"`
	NullValue string `mapstructure:"null_value"`
	// HeaderAliases renames source headers to canonical column names on read.
	HeaderAliases map[string]string `mapstructure:"header_aliases"`
}

func (o CSVOptions) comma() (rune, error) {
	delim := o.Delimiter
	if delim == "" {
		delim = constants.DefaultCSVDelimiter
	}
	if len([]rune(delim)) != 1 {
		return 0, errors.NewConfigurationError(errors.CodeInvalidFormat, "CSV delimiter must be a single character")
	}
	return []rune(delim)[0], nil
}

// ReadCSV parses a header row followed by data rows.
func ReadCSV(ctx context.Context, r io.Reader, opts CSVOptions) (*Dataset, error) {
	comma, err := opts.comma()
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(r)
	reader.Comma = comma
	reader.FieldsPerRecord = 0

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.WrapError(errors.ErrEmptyDataset, errors.ErrorTypeConfiguration, errors.CodeEmptyDataset, "input has no header")
	}
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeConfiguration, errors.CodeInvalidFormat, "failed to read CSV header")
	}
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if alias, ok := opts.HeaderAliases[name]; ok {
			name = alias
		}
		header[i] = name
	}

	var rows [][]Value
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.WrapError(err, errors.ErrorTypeConfiguration, errors.CodeInvalidFormat,
				fmt.Sprintf("failed to read CSV row %d", len(rows)+2))
		}
		row := make([]Value, len(fields))
		for i, field := range fields {
			if opts.NullValue != "" && field == opts.NullValue {
				row[i] = Null()
				continue
			}
			row[i] = Parse(field)
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, errors.WrapError(errors.ErrEmptyDataset, errors.ErrorTypeConfiguration, errors.CodeEmptyDataset, "input has no data rows")
	}
	return FromRows(header, rows)
}

// WriteCSV writes the dataset with a header row.
func WriteCSV(ctx context.Context, w io.Writer, ds *Dataset, opts CSVOptions) error {
	comma, err := opts.comma()
	if err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	writer.Comma = comma

	if err := writer.Write(ds.ColumnNames()); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}

	names := ds.ColumnNames()
	columns := make([]*Column, len(names))
	for i, name := range names {
		columns[i], _ = ds.Column(name)
	}

	row := make([]string, len(columns))
	for r := 0; r < ds.Rows(); r++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		for i, col := range columns {
			v := col.Values[r]
			if v.IsNull() {
				row[i] = opts.NullValue
			} else {
				row[i] = v.Text()
			}
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}
