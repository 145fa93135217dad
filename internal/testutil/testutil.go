package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// WriteFile writes data to dir/name and returns the path.
func WriteFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

const tsvHeader = "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n"

// TesseractTSV renders words as Tesseract TSV output, all on one line with
// confidence 90. Use it to feed the replay OCR engine.
func TesseractTSV(words ...string) string {
	var sb strings.Builder
	sb.WriteString(tsvHeader)
	sb.WriteString("1\t1\t0\t0\t0\t0\t0\t0\t1200\t900\t-1\t\n")
	for i, w := range words {
		fmt.Fprintf(&sb, "5\t1\t1\t1\t1\t%d\t%d\t40\t80\t30\t90\t%s\n", i+1, 20+i*90, w)
	}
	return sb.String()
}
