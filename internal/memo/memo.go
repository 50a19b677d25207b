// Package memo wires a cache.Store to an expensive computation: look the key
// up, and on a miss compute the value and persist it before returning.
package memo

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/leafdb/leafdb/internal/cache"
	"github.com/leafdb/leafdb/internal/logging"
)

// ComputeFunc 计算 key 对应的值，仅在缓存未命中时被调用。
type ComputeFunc func(key []float64) (float64, error)

// Outcome 描述一次查找的结果。
type Outcome struct {
	Value float64
	Hit   bool
	Path  string
}

// Memoizer 组合 Store 与日志，是唯一对未命中进行分支的地方。
type Memoizer struct {
	store  cache.Store
	logger *logrus.Logger
}

// New 构建 Memoizer；logger 为空时丢弃日志。
func New(store cache.Store, logger *logrus.Logger) (*Memoizer, error) {
	if store == nil {
		return nil, errors.New("cache store required")
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Memoizer{store: store, logger: logger}, nil
}

// Lookup 返回 key 的值：命中直接返回，未命中则调用 compute 并写入 Store。
// 除未命中外的 Store 错误全部原样返回。
func (m *Memoizer) Lookup(key []float64, compute ComputeFunc) (Outcome, error) {
	if compute == nil {
		return Outcome{}, errors.New("compute function required")
	}

	res, err := m.store.Retrieve(key)
	if err != nil {
		return Outcome{}, err
	}

	keyString, err := m.store.Codec().RelativeKey(res.Path)
	if err != nil {
		return Outcome{}, err
	}
	if res.Found {
		m.logger.WithFields(logging.KeyFields("lookup", keyString, true)).
			WithField("path", res.Path).
			Debug("cache hit")
		return Outcome{Value: res.Value, Hit: true, Path: res.Path}, nil
	}

	m.logger.WithFields(logging.KeyFields("lookup", keyString, false)).
		WithField("path", res.Path).
		Info("value not found in db")

	value, err := compute(key)
	if err != nil {
		return Outcome{}, fmt.Errorf("compute %s: %w", keyString, err)
	}

	entry, err := m.store.Add(key, value)
	if err != nil {
		return Outcome{}, err
	}
	m.logger.WithFields(logging.KeyFields("store", keyString, false)).
		WithField("path", entry.FilePath).
		Debug("cache entry stored")

	return Outcome{Value: value, Hit: false, Path: entry.FilePath}, nil
}
