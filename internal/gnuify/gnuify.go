// Package gnuify turns a dump snapshot into gnuplot-friendly rows. Only
// entries whose key has exactly two coordinates are exported, one
// "x, y, v" line each.
package gnuify

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// DefaultOutputName 构造 <时间戳>_<输入文件名去扩展名>_.dat。
func DefaultOutputName(inPath string, now time.Time) string {
	base := filepath.Base(inPath)
	if idx := strings.Index(base, "."); idx >= 0 {
		base = base[:idx]
	}
	return now.Format("20060102150405") + "_" + base + "_.dat"
}

// Convert 从 r 读取 dump 行并写出二维条目，返回导出的行数。
func Convert(r io.Reader, w io.Writer) (int, error) {
	scanner := bufio.NewScanner(r)
	bw := bufio.NewWriter(w)
	written := 0
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok || strings.Contains(value, "=") {
			return written, fmt.Errorf("line %d: malformed entry %q", lineNo, line)
		}
		coords := strings.Split(key, "/")
		if len(coords) != 2 {
			continue
		}
		if _, err := fmt.Fprintf(bw, "%s, %s, %s\n", coords[0], coords[1], value); err != nil {
			return written, err
		}
		written++
	}
	if err := scanner.Err(); err != nil {
		return written, err
	}
	return written, bw.Flush()
}

// ConvertFile 针对文件系统上的 dump 文件执行 Convert。
func ConvertFile(fsys afero.Fs, inPath, outPath string) (int, error) {
	in, err := fsys.Open(inPath)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", inPath, err)
	}
	defer in.Close()

	out, err := fsys.Create(outPath)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", outPath, err)
	}

	n, err := Convert(in, out)
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		return n, fmt.Errorf("convert %s: %w", inPath, err)
	}
	return n, nil
}
