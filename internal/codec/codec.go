package codec

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
)

// LeafSuffix 标记叶子文件，目录段永远不会携带该后缀。
const LeafSuffix = ".leaf"

// DefaultPrecision 为小数点后的固定位数。
const DefaultPrecision = 10

// MaxPrecision 限制在 float64 仍有意义的位数内。
const MaxPrecision = 17

var (
	// ErrEmptyKey 表示传入了长度为 0 的 key。
	ErrEmptyKey = errors.New("empty key")
	// ErrInvalidCoordinate 表示 key 中含 NaN/Inf。
	ErrInvalidCoordinate = errors.New("invalid coordinate")
)

// Codec 绑定根目录与精度；二者共同决定所有派生路径，生命周期内不可变。
type Codec struct {
	root      string
	precision int
}

// New 构建 Codec，precision 需处于 [0, MaxPrecision]。
func New(root string, precision int) (Codec, error) {
	if root == "" {
		return Codec{}, errors.New("codec root required")
	}
	if precision < 0 || precision > MaxPrecision {
		return Codec{}, fmt.Errorf("precision %d out of range [0, %d]", precision, MaxPrecision)
	}
	return Codec{root: filepath.Clean(root), precision: precision}, nil
}

// Root 返回存储根目录。
func (c Codec) Root() string { return c.root }

// Precision 返回小数位数。
func (c Codec) Precision() int { return c.precision }

// Stringify 以固定小数位格式化数值。strconv 使用 round-half-even 的精确十进制
// 舍入，与平台和 locale 无关；舍入后相同的值得到逐字节相同的字符串。
func (c Codec) Stringify(value float64) string {
	s := strconv.FormatFloat(value, 'f', c.precision, 64)
	// 舍入为零的负数与 +0 落在同一路径上
	if s[0] == '-' && strings.Trim(s[1:], "0.") == "" {
		s = s[1:]
	}
	return s
}

// KeyToPath 将 key 转为 root/seg(k0)/.../seg(kn-1)+LeafSuffix。
func (c Codec) KeyToPath(key []float64) (string, error) {
	if len(key) == 0 {
		return "", ErrEmptyKey
	}
	parts := make([]string, 0, len(key)+1)
	parts = append(parts, c.root)
	for i, k := range key {
		if math.IsNaN(k) || math.IsInf(k, 0) {
			return "", fmt.Errorf("%w: key[%d]=%v", ErrInvalidCoordinate, i, k)
		}
		seg := c.Stringify(k)
		if i == len(key)-1 {
			seg += LeafSuffix
		}
		parts = append(parts, seg)
	}
	return filepath.Join(parts...), nil
}

// KeyString 返回 key 在 dump 中的表示：各段以 '/' 连接，不带后缀。
func (c Codec) KeyString(key []float64) (string, error) {
	p, err := c.KeyToPath(key)
	if err != nil {
		return "", err
	}
	rel, err := c.RelativeKey(p)
	if err != nil {
		return "", err
	}
	return rel, nil
}

// RelativeKey 把叶子文件路径还原为 dump key 字符串。
func (c Codec) RelativeKey(leafPath string) (string, error) {
	rel, err := filepath.Rel(c.root, leafPath)
	if err != nil {
		return "", err
	}
	if !IsLeaf(rel) {
		return "", fmt.Errorf("not a leaf path: %s", leafPath)
	}
	rel = rel[:len(rel)-len(LeafSuffix)]
	return filepath.ToSlash(rel), nil
}

// IsLeaf 判断文件名是否携带叶子后缀。
func IsLeaf(name string) bool {
	return len(name) > len(LeafSuffix) && name[len(name)-len(LeafSuffix):] == LeafSuffix
}
