package ocr

import (
	"bufio"
	"fmt"
	"image"
	"io"
	"strconv"
	"strings"
)

// Tesseract TSV columns.
const (
	tsvLevel = iota
	tsvPage
	tsvBlock
	tsvPar
	tsvLine
	tsvWord
	tsvLeft
	tsvTop
	tsvWidth
	tsvHeight
	tsvConf
	tsvText
	tsvColumns
)

const wordLevel = 5

// ParseTSV reads Tesseract's tsv output and returns the word-level rows.
// Rows of other levels (page, block, paragraph, line) are skipped.
func ParseTSV(r io.Reader) ([]Word, error) {
	var words []Word
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	line := 0
	for sc.Scan() {
		line++
		row := strings.TrimRight(sc.Text(), "\r")
		if row == "" || (line == 1 && strings.HasPrefix(row, "level")) {
			continue
		}

		fields := strings.SplitN(row, "\t", tsvColumns)
		if len(fields) < tsvConf+1 {
			return nil, fmt.Errorf("tsv line %d: expected %d columns, got %d", line, tsvColumns, len(fields))
		}
		level, err := strconv.Atoi(fields[tsvLevel])
		if err != nil {
			return nil, fmt.Errorf("tsv line %d: bad level %q", line, fields[tsvLevel])
		}
		if level != wordLevel {
			continue
		}

		w := Word{Box: parseBox(fields)}
		if len(fields) > tsvText {
			w.Text = fields[tsvText]
		}
		if c, err := strconv.ParseFloat(strings.TrimSpace(fields[tsvConf]), 64); err == nil {
			w.Confidence = c
			w.HasConfidence = true
		}
		words = append(words, w)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read tsv: %w", err)
	}
	return words, nil
}

func parseBox(fields []string) image.Rectangle {
	var v [4]int
	for i, col := range []int{tsvLeft, tsvTop, tsvWidth, tsvHeight} {
		v[i], _ = strconv.Atoi(fields[col])
	}
	return image.Rect(v[0], v[1], v[0]+v[2], v[1]+v[3])
}
