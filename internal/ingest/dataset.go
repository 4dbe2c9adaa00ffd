// Package ingest reads the tab-separated dataset files the index is built
// from: a documents file, a queries file, and a relevance judgments (qrel)
// file. Malformed lines are skipped with a warning rather than failing the
// whole read.
package ingest

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/semsearch/internal/domain"
)

// maxLineSize allows document bodies well past bufio's default token limit.
const maxLineSize = 1 << 20

// Dataset locates the corpus files under a single directory.
type Dataset struct {
	dir       string
	docsFile  string
	queryFile string
	qrelsFile string
	logger    *zap.Logger
}

// New creates a dataset reader rooted at dir.
func New(dir, docsFile, queryFile, qrelsFile string, logger *zap.Logger) *Dataset {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dataset{
		dir:       dir,
		docsFile:  docsFile,
		queryFile: queryFile,
		qrelsFile: qrelsFile,
		logger:    logger,
	}
}

// ReadDocuments parses the documents file. Each line is either
// `doc_id<TAB>title<TAB>body` or `doc_id<TAB>text`; lines with fewer fields
// or an empty id are skipped.
func (d *Dataset) ReadDocuments() ([]domain.CorpusRecord, error) {
	path := filepath.Join(d.dir, d.docsFile)

	var records []domain.CorpusRecord
	err := d.scanLines(path, func(lineNo int, fields []string) {
		if len(fields) < 2 || strings.TrimSpace(fields[0]) == "" {
			d.logger.Warn("skipping malformed document line",
				zap.String("file", d.docsFile), zap.Int("line", lineNo))
			return
		}

		rec := domain.CorpusRecord{ID: strings.TrimSpace(fields[0])}
		if len(fields) >= 3 {
			rec.Title = fields[1]
			rec.Body = strings.Join(fields[2:], " ")
		} else {
			rec.Body = fields[1]
		}
		if strings.TrimSpace(rec.Text()) == "" {
			d.logger.Warn("skipping document with empty text",
				zap.String("file", d.docsFile), zap.Int("line", lineNo))
			return
		}
		records = append(records, rec)
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// ReadQueries parses the queries file: `query_id<TAB>text`.
func (d *Dataset) ReadQueries() ([]domain.Query, error) {
	path := filepath.Join(d.dir, d.queryFile)

	var queries []domain.Query
	err := d.scanLines(path, func(lineNo int, fields []string) {
		if len(fields) < 2 || strings.TrimSpace(fields[0]) == "" || strings.TrimSpace(fields[1]) == "" {
			d.logger.Warn("skipping malformed query line",
				zap.String("file", d.queryFile), zap.Int("line", lineNo))
			return
		}
		queries = append(queries, domain.Query{
			ID:   strings.TrimSpace(fields[0]),
			Text: fields[1],
		})
	})
	if err != nil {
		return nil, err
	}
	return queries, nil
}

// ReadJudgments parses the qrel file in the standard four-column format:
// `query_id<TAB>iteration<TAB>doc_id<TAB>grade`. The iteration column is
// ignored. A non-integer grade skips the line.
func (d *Dataset) ReadJudgments() ([]domain.Judgment, error) {
	path := filepath.Join(d.dir, d.qrelsFile)

	var judgments []domain.Judgment
	err := d.scanLines(path, func(lineNo int, fields []string) {
		if len(fields) < 4 {
			d.logger.Warn("skipping malformed qrel line",
				zap.String("file", d.qrelsFile), zap.Int("line", lineNo))
			return
		}
		grade, convErr := strconv.Atoi(strings.TrimSpace(fields[3]))
		if convErr != nil {
			d.logger.Warn("skipping qrel line with non-integer grade",
				zap.String("file", d.qrelsFile), zap.Int("line", lineNo),
				zap.String("grade", fields[3]))
			return
		}
		judgments = append(judgments, domain.Judgment{
			QueryID: strings.TrimSpace(fields[0]),
			DocID:   strings.TrimSpace(fields[2]),
			Grade:   grade,
		})
	})
	if err != nil {
		return nil, err
	}
	return judgments, nil
}

// scanLines reads path line by line, splits on tabs, and hands non-empty
// lines to fn with a 1-based line number.
func (d *Dataset) scanLines(path string, fn func(lineNo int, fields []string)) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open dataset file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		fn(lineNo, strings.Split(line, "\t"))
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan %s: %w", filepath.Base(path), err)
	}
	return nil
}
