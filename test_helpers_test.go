package main

import (
	"path/filepath"
	"testing"
)

// configFixture 返回 internal/config/testdata 下的配置样例；go test 以包目录
// （即仓库根目录）为工作目录运行 main 包测试。
func configFixture(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join("internal", "config", "testdata", name)
}
