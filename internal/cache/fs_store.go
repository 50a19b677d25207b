package cache

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"github.com/leafdb/leafdb/internal/codec"
)

const (
	dirPerm      = 0o755
	filePerm     = 0o644
	tempPattern  = ".tmp-*"
	maxLineBytes = 4096
)

// NewStore 以 root 为根目录构建缓存，precision 决定所有派生路径。
func NewStore(fsys afero.Fs, root string, precision int) (Store, error) {
	if fsys == nil {
		return nil, errors.New("filesystem required")
	}
	c, err := codec.New(root, precision)
	if err != nil {
		return nil, err
	}
	if err := fsys.MkdirAll(c.Root(), dirPerm); err != nil {
		return nil, opError("init", c.Root(), ErrIO, err)
	}
	return &fileStore{fs: fsys, codec: c}, nil
}

// NewOSStore 在真实文件系统上构建 Store，root 会被解析为绝对路径。
func NewOSStore(root string, precision int) (Store, error) {
	if root == "" {
		return nil, errors.New("storage path required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage path: %w", err)
	}
	return NewStore(afero.NewOsFs(), abs, precision)
}

type fileStore struct {
	fs    afero.Fs
	codec codec.Codec
}

func (s *fileStore) Codec() codec.Codec {
	return s.codec
}

func (s *fileStore) Retrieve(key []float64) (Result, error) {
	filePath, err := s.codec.KeyToPath(key)
	if err != nil {
		return Result{}, opError("retrieve", "", nil, err)
	}

	info, err := s.fs.Stat(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Result{Path: filePath}, nil
		}
		return Result{}, opError("retrieve", filePath, ErrIO, err)
	}
	if info.IsDir() {
		return Result{}, formatErrorf("retrieve", filePath, "leaf is a directory")
	}

	line, err := readFirstLine(s.fs, "retrieve", filePath)
	if err != nil {
		return Result{}, err
	}
	value, err := strconv.ParseFloat(line, 64)
	if err != nil {
		return Result{}, opError("retrieve", filePath, ErrFormat, err)
	}
	return Result{Found: true, Value: value, Path: filePath}, nil
}

func (s *fileStore) Get(key []float64) (float64, error) {
	res, err := s.Retrieve(key)
	if err != nil {
		return 0, err
	}
	if !res.Found {
		return 0, opError("retrieve", res.Path, ErrNotFound, nil)
	}
	return res.Value, nil
}

func (s *fileStore) Add(key []float64, value float64) (*Entry, error) {
	filePath, err := s.codec.KeyToPath(key)
	if err != nil {
		return nil, opError("add", "", nil, err)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return nil, opError("add", filePath, ErrInvalidValue, fmt.Errorf("value %v", value))
	}

	if _, err := s.fs.Stat(filePath); err == nil {
		return nil, opError("add", filePath, ErrAlreadyExists, nil)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, opError("add", filePath, ErrIO, err)
	}

	dir := filepath.Dir(filePath)
	// MkdirAll 对已存在目录（含并发创建）返回 nil
	if err := s.fs.MkdirAll(dir, dirPerm); err != nil {
		return nil, opError("add", dir, ErrIO, err)
	}

	if err := writeFileAtomic(s.fs, filePath, s.codec.Stringify(value)+"\n"); err != nil {
		return nil, opError("add", filePath, ErrIO, err)
	}

	return &Entry{
		Key:      append([]float64(nil), key...),
		Value:    value,
		FilePath: filePath,
	}, nil
}

// writeFileAtomic 先写同目录临时文件再 rename；失败时清理临时文件。
func writeFileAtomic(fsys afero.Fs, target, content string) error {
	tempFile, err := afero.TempFile(fsys, filepath.Dir(target), tempPattern)
	if err != nil {
		return err
	}
	tempName := tempFile.Name()

	_, err = io.WriteString(tempFile, content)
	if err == nil {
		err = tempFile.Sync()
	}
	if err == nil {
		err = fsys.Chmod(tempName, filePerm)
	}
	closeErr := tempFile.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		fsys.Remove(tempName)
		return err
	}

	if err := fsys.Rename(tempName, target); err != nil {
		fsys.Remove(tempName)
		return err
	}
	return nil
}

// readFirstLine 读取叶子文件首行并去掉行尾；文件句柄在所有路径上关闭。
func readFirstLine(fsys afero.Fs, op, filePath string) (string, error) {
	f, err := fsys.Open(filePath)
	if err != nil {
		return "", opError(op, filePath, ErrIO, err)
	}
	defer f.Close()

	reader := bufio.NewReaderSize(io.LimitReader(f, maxLineBytes), maxLineBytes)
	line, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", opError(op, filePath, ErrIO, err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", formatErrorf(op, filePath, "empty leaf")
	}
	return line, nil
}
