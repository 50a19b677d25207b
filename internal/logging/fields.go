package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// KeyFields 提供 key/命中状态字段，供查找与写入日志复用。
func KeyFields(action, key string, cacheHit bool) logrus.Fields {
	return logrus.Fields{
		"action":    action,
		"key":       key,
		"cache_hit": cacheHit,
	}
}
