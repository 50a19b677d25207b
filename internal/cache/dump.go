package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/leafdb/leafdb/internal/codec"
)

// Record 是 dump 快照中的一行。
type Record struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// String 输出 "<key>=<value>"。
func (r Record) String() string {
	return r.Key + "=" + r.Value
}

// Dumper 遍历 Store 的目录树，生成按 key 排序的快照文件。
type Dumper struct {
	fs    afero.Fs
	codec codec.Codec
	path  string
}

// NewDumper 构建 Dumper，dumpPath 为每次全量覆盖的快照文件。
func NewDumper(fsys afero.Fs, c codec.Codec, dumpPath string) (*Dumper, error) {
	if fsys == nil {
		return nil, errors.New("filesystem required")
	}
	if dumpPath == "" {
		return nil, errors.New("dump path required")
	}
	return &Dumper{fs: fsys, codec: c, path: filepath.Clean(dumpPath)}, nil
}

// Path 返回快照文件路径。
func (d *Dumper) Path() string {
	return d.path
}

// Snapshot 重新计算整个快照，不写文件。遍历顺序不影响结果顺序。
func (d *Dumper) Snapshot() ([]Record, error) {
	root := d.codec.Root()
	if _, err := d.fs.Stat(root); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, opError("dump", root, ErrIO, err)
	}

	values := make(map[string]string)
	walkErr := afero.Walk(d.fs, root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return opError("dump", p, ErrIO, err)
		}
		if info.IsDir() || !codec.IsLeaf(info.Name()) {
			return nil
		}
		key, err := d.codec.RelativeKey(p)
		if err != nil {
			return opError("dump", p, ErrIO, err)
		}
		value, err := readFirstLine(d.fs, "dump", p)
		if err != nil {
			return err
		}
		if prev, exists := values[key]; exists {
			return opError("dump", p, ErrKeyCollision, fmt.Errorf("key %q already mapped to %q", key, prev))
		}
		values[key] = value
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	records := make([]Record, 0, len(values))
	for key, value := range values {
		records = append(records, Record{Key: key, Value: value})
	}
	// key 以 '=' 结尾参与比较，与逐行排序一致："1/2=" 排在 "1=" 之前
	sort.Slice(records, func(i, j int) bool {
		return records[i].Key+"=" < records[j].Key+"="
	})
	return records, nil
}

// Dump 重新计算快照并覆盖写入快照文件，返回条目数。
func (d *Dumper) Dump() (int, error) {
	records, err := d.Snapshot()
	if err != nil {
		return 0, err
	}

	var b strings.Builder
	for _, r := range records {
		b.WriteString(r.String())
		b.WriteByte('\n')
	}

	dir := filepath.Dir(d.path)
	if err := d.fs.MkdirAll(dir, dirPerm); err != nil {
		return 0, opError("dump", dir, ErrIO, err)
	}
	if err := writeFileAtomic(d.fs, d.path, b.String()); err != nil {
		return 0, opError("dump", d.path, ErrIO, err)
	}
	return len(records), nil
}
