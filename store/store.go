// Package store 提供 core.Store 的实现：MemoryStore 与 RedisStore。
//
// 接口定义在 core 包，本包只包含实现：
//
//	var s core.Store = store.NewMemoryStore(time.Minute)
//	s, err := store.Open(ctx, store.Config{Type: "redis", Addr: "localhost:6379"})
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/rushteam/fraudkit/core"
)

// 存储后端类型
const (
	TypeNone   = "none"
	TypeMemory = "memory"
	TypeRedis  = "redis"
)

// Config 存储配置
type Config struct {
	Type     string
	Addr     string
	Password string
	DB       int
}

// Open 按配置创建存储。Type 为空或 "none" 时返回 (nil, nil)，表示不记录预测。
func Open(ctx context.Context, cfg Config) (core.Store, error) {
	switch cfg.Type {
	case "", TypeNone:
		return nil, nil
	case TypeMemory:
		return NewMemoryStore(time.Minute), nil
	case TypeRedis:
		rs, err := NewRedisStore(ctx, RedisOptions{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
		if err != nil {
			return nil, err
		}
		return rs, nil
	default:
		return nil, fmt.Errorf("unknown store type %q", cfg.Type)
	}
}
