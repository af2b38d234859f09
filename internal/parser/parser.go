package parser

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// maxLineSize bounds a single line of a result file.
const maxLineSize = 16 * 1024 * 1024

// ErrUnreadable is returned when a result file cannot be opened or read.
// Callers skip the file; it is never fatal for an aggregation.
var ErrUnreadable = errors.New("result file unreadable")

// Parser turns xvg-like text into ResultMatrix values.
// Malformed input never fails a parse: bad tokens are dropped with a warning.
type Parser struct {
	commentPrefixes []string
	logger          *zap.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithCommentPrefixes replaces the comment markers. An empty list keeps the
// defaults.
func WithCommentPrefixes(prefixes ...string) Option {
	return func(p *Parser) {
		if len(prefixes) > 0 {
			p.commentPrefixes = append([]string(nil), prefixes...)
		}
	}
}

// WithLogger sets the logger warnings are reported to.
func WithLogger(l *zap.Logger) Option {
	return func(p *Parser) {
		if l != nil {
			p.logger = l
		}
	}
}

// New creates a Parser using DefaultCommentPrefixes and a no-op logger
// unless told otherwise.
func New(opts ...Option) *Parser {
	p := &Parser{
		commentPrefixes: DefaultCommentPrefixes,
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Parser) isComment(line string) bool {
	for _, prefix := range p.commentPrefixes {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

// ParseLine extracts the numeric tokens of one line. lineNum (1-based) and
// source only label the warnings. ok is false for comment lines and lines
// without a single convertible token; such lines contribute no row.
func (p *Parser) ParseLine(line string, lineNum int, source string) (RawLine, bool) {
	if p.isComment(line) {
		return nil, false
	}
	var values RawLine
	for _, tok := range strings.Fields(line) {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			var numErr *strconv.NumError
			// out-of-range values come back as ±Inf with ErrRange and are kept
			if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
				values = append(values, v)
				continue
			}
			p.logger.Warn("unconvertible token skipped",
				zap.String("token", tok),
				zap.Int("line", lineNum),
				zap.String("file", source))
			continue
		}
		values = append(values, v)
	}
	if len(values) == 0 {
		return nil, false
	}
	return values, true
}

// ParseReader reads every line of r and builds the matrix. An empty matrix
// (no usable rows) is a valid result and is logged as a warning; only a
// failure of r itself is returned as an error.
func (p *Parser) ParseReader(r io.Reader, source string) (*ResultMatrix, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var lines []RawLine
	lineNum := 0
	for sc.Scan() {
		lineNum++
		if values, ok := p.ParseLine(sc.Text(), lineNum, source); ok {
			lines = append(lines, values)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: line %d: %w", ErrUnreadable, source, lineNum+1, err)
	}

	m := NewResultMatrix(source, lines)
	if m.Empty() {
		p.logger.Warn("no valid data extracted", zap.String("file", source), zap.Int("lines", lineNum))
	}
	return m, nil
}

// ParseFile opens path, decompressing it when it is gzip or zstd encoded,
// and parses its content.
func (p *Parser) ParseFile(path string) (*ResultMatrix, error) {
	rc, err := openResult(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	defer rc.Close()
	return p.ParseReader(rc, path)
}
