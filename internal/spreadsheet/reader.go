package spreadsheet

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	apierrors "callreport/internal/errors"
)

// ErrFormatMismatch is returned by a Parser that does not recognise its input.
var ErrFormatMismatch = errors.New("spreadsheet: format not recognised")

// Parser decodes one workbook format.
type Parser interface {
	Format() Format
	Parse(ctx context.Context, data []byte) (*Table, error)
}

// Reader runs the parser chain.
type Reader struct {
	parsers []Parser
	logger  *slog.Logger
}

// NewReader creates a Reader. Without explicit parsers it uses
// XLSXParser followed by XLSParser.
func NewReader(logger *slog.Logger, parsers ...Parser) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	if len(parsers) == 0 {
		parsers = DefaultParsers()
	}
	return &Reader{
		parsers: parsers,
		logger:  logger.With(slog.String("component", "spreadsheet_reader")),
	}
}

// DefaultParsers returns the standard chain, modern format first.
func DefaultParsers() []Parser {
	return []Parser{NewXLSXParser(), NewXLSParser()}
}

// Read materialises src and returns the first table any parser produces.
// Errors from src itself are returned wrapped, so an *http.MaxBytesError
// stays detectable with errors.As.
func (r *Reader) Read(ctx context.Context, name string, src io.Reader) (*Table, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("read upload %s: %w", name, err)
	}

	var mismatch error
	for _, p := range r.parsers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		table, err := r.try(ctx, p, data)
		if err == nil {
			r.logger.InfoContext(ctx, "spreadsheet parsed",
				slog.String("file", name),
				slog.String("format", string(table.Format)),
				slog.String("sheet", table.Sheet),
				slog.Int("rows", table.Len()),
				slog.Int("bytes", len(data)),
			)
			return table, nil
		}

		if errors.Is(err, ErrFormatMismatch) {
			r.logger.DebugContext(ctx, "parser rejected format",
				slog.String("file", name),
				slog.String("parser", string(p.Format())),
				slog.String("error", err.Error()),
			)
			mismatch = err
			continue
		}

		r.logger.WarnContext(ctx, "spreadsheet read failed",
			slog.String("file", name),
			slog.String("parser", string(p.Format())),
			slog.String("error", err.Error()),
		)
		return nil, apierrors.NewReadError(err)
	}

	r.logger.WarnContext(ctx, "no parser recognised upload",
		slog.String("file", name),
		slog.Int("bytes", len(data)),
	)
	return nil, apierrors.NewCorruptFileError(mismatch)
}

// try runs one parser, turning a decoder panic into an error.
func (r *Reader) try(ctx context.Context, p Parser, data []byte) (table *Table, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%s parser panic: %v", p.Format(), rec)
		}
	}()
	return p.Parse(ctx, bytes.Clone(data))
}
