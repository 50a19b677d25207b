package config

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/leafdb/leafdb/internal/codec"
)

// Validate 针对语义级别做进一步校验，防止非法配置启动。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	if strings.TrimSpace(c.StoragePath) == "" {
		return newFieldError("StoragePath", "不能为空")
	}
	if c.Precision < 0 || c.Precision > codec.MaxPrecision {
		return newFieldError("Precision", "必须在 0-17")
	}
	if strings.TrimSpace(c.DumpPath) == "" {
		return newFieldError("DumpPath", "不能为空")
	}
	if codec.IsLeaf(filepath.Base(c.DumpPath)) {
		return newFieldError("DumpPath", "不能以 "+codec.LeafSuffix+" 结尾")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return newFieldError("LogLevel", "无法识别的日志级别")
	}
	if c.LogMaxSize < 0 {
		return newFieldError("LogMaxSize", "不能为负数")
	}
	if c.LogMaxBackups < 0 {
		return newFieldError("LogMaxBackups", "不能为负数")
	}
	if c.ListenPort <= 0 || c.ListenPort > 65535 {
		return newFieldError("ListenPort", "必须在 1-65535")
	}
	if c.ReadTimeout.DurationValue() < 0 {
		return newFieldError("ReadTimeout", "不能为负数")
	}
	return nil
}

// validateDumpLocation 要求 dump 文件位于存储目录之外，避免快照混入目录树。
func validateDumpLocation(storage, dump string) error {
	rel, err := filepath.Rel(storage, dump)
	if err != nil {
		return nil
	}
	if rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))) {
		return newFieldError("DumpPath", "不能位于 StoragePath 之内")
	}
	return nil
}
