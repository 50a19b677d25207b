package cache

import (
	"errors"
	"fmt"

	"github.com/leafdb/leafdb/internal/codec"
)

// Store 负责叶子文件的读写。磁盘布局遵循：
//
//	<StoragePath>/<k0>/<k1>/.../<kn-1>.leaf    # 单行数值
//
// 条目一经写入不可覆盖，也不提供删除接口。
type Store interface {
	// Retrieve 查找 key；未命中时返回 Found=false 且 error 为 nil。
	Retrieve(key []float64) (Result, error)

	// Get 与 Retrieve 相同，但未命中时返回 ErrNotFound。
	Get(key []float64) (float64, error)

	// Add 写入新条目。若 key 已存在则返回 ErrAlreadyExists，原值不变。
	// 实现需通过临时文件 + rename 保证失败时不留下半写的叶子文件。
	Add(key []float64, value float64) (*Entry, error)

	// Codec 返回 Store 使用的路径编码器。
	Codec() codec.Codec
}

// Result 是 Retrieve 的显式结果，由调用方分支 Found 而非依赖错误。
type Result struct {
	Found bool
	Value float64
	Path  string
}

// Entry 描述一条已写入的缓存条目。
type Entry struct {
	Key      []float64 `json:"key"`
	Value    float64   `json:"value"`
	FilePath string    `json:"file_path"`
}

var (
	// ErrNotFound 表示缓存不存在，是唯一预期被调用方捕获的错误。
	ErrNotFound = errors.New("cache entry not found")
	// ErrAlreadyExists 表示重复写入同一个 key。
	ErrAlreadyExists = errors.New("cache entry already exists")
	// ErrIO 包装底层文件系统失败。
	ErrIO = errors.New("cache io failure")
	// ErrFormat 表示叶子内容无法解析为数值。
	ErrFormat = errors.New("malformed cache entry")
	// ErrInvalidValue 表示待写入的值为 NaN/Inf。
	ErrInvalidValue = errors.New("invalid cache value")
	// ErrKeyCollision 表示两个叶子推导出同一个 dump key，属于内部不变量破坏。
	ErrKeyCollision = errors.New("dump key collision")
)

// OpError 记录失败的操作与路径，Kind 为上面的哨兵错误之一。
type OpError struct {
	Op   string
	Path string
	Kind error
	Err  error
}

func (e *OpError) Error() string {
	msg := e.Op
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Kind != nil {
		msg += ": " + e.Kind.Error()
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap 同时暴露 Kind 与底层错误，便于 errors.Is 判断两者。
func (e *OpError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func opError(op, path string, kind, err error) error {
	return &OpError{Op: op, Path: path, Kind: kind, Err: err}
}

func formatErrorf(op, path, format string, args ...any) error {
	return opError(op, path, ErrFormat, fmt.Errorf(format, args...))
}
