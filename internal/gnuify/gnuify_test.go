package gnuify

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
)

func TestConvertKeepsTwoDimensionalEntries(t *testing.T) {
	in := strings.NewReader("1.0/2.0=3.0\n1.0=5.0\n1.0/2.0/3.0=4.0\n\n-1.5/0.5=9.0\n")
	var out bytes.Buffer
	n, err := Convert(in, &out)
	if err != nil {
		t.Fatalf("convert error: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 rows, got %d", n)
	}
	want := "1.0, 2.0, 3.0\n-1.5, 0.5, 9.0\n"
	if out.String() != want {
		t.Fatalf("output mismatch: %q", out.String())
	}
}

func TestConvertRejectsMalformedLine(t *testing.T) {
	if _, err := Convert(strings.NewReader("no-separator\n"), &bytes.Buffer{}); err == nil {
		t.Fatalf("malformed line should fail")
	}
}

func TestDefaultOutputName(t *testing.T) {
	now := time.Date(2024, 3, 5, 7, 8, 9, 0, time.UTC)
	if got := DefaultOutputName("/tmp/mapfile.db", now); got != "20240305070809_mapfile_.dat" {
		t.Fatalf("unexpected name %s", got)
	}
}

func TestConvertFile(t *testing.T) {
	fsys := afero.NewMemMapFs()
	if err := afero.WriteFile(fsys, "/in.db", []byte("1/2=3\n"), 0o644); err != nil {
		t.Fatalf("seed error: %v", err)
	}
	if _, err := ConvertFile(fsys, "/in.db", "/out.dat"); err != nil {
		t.Fatalf("convert file error: %v", err)
	}
	data, _ := afero.ReadFile(fsys, "/out.dat")
	if string(data) != "1, 2, 3\n" {
		t.Fatalf("unexpected output %q", string(data))
	}
	if _, err := ConvertFile(fsys, "/missing.db", "/x.dat"); err == nil {
		t.Fatalf("missing input should fail")
	}
}
