package artifact

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// LoadFunc 从路径加载一个不可变产物。
type LoadFunc[T any] func(path string) (T, error)

// fingerprint 是文件的 (size, mtime) 指纹，用于判断缓存条目是否过期。
type fingerprint struct {
	size    int64
	modTime int64
}

func (f fingerprint) String() string {
	return fmt.Sprintf("%d-%d", f.size, f.modTime)
}

type entry[T any] struct {
	value T
	fp    fingerprint
}

// Registry 是按路径索引的只读产物缓存（read-through）。
//
// 并发语义：
//   - 读路径只读取原子发布的不可变快照，无锁
//   - 同一 (路径, 指纹) 的并发未命中通过 singleflight 合并为一次加载
//   - 写入采用 copy-on-write：复制快照、插入条目、原子替换，读者不会看到半写状态
//
// 每次 Get 都会 stat 文件；指纹变化即重新加载，上游更新产物后不会再返回旧对象。
type Registry[T any] struct {
	load  LoadFunc[T]
	stat  func(string) (os.FileInfo, error)
	group singleflight.Group

	mu       sync.Mutex // 串行化发布者
	snapshot atomic.Pointer[map[string]*entry[T]]

	hits   atomic.Int64
	misses atomic.Int64
}

// NewRegistry 创建 Registry。
func NewRegistry[T any](load LoadFunc[T]) *Registry[T] {
	r := &Registry[T]{
		load: load,
		stat: os.Stat,
	}
	empty := make(map[string]*entry[T])
	r.snapshot.Store(&empty)
	return r
}

// Get 返回路径对应的产物；缓存条目指纹与文件一致时直接命中，否则加载并发布。
func (r *Registry[T]) Get(path string) (T, error) {
	var zero T

	info, err := r.stat(path)
	if err != nil {
		r.Invalidate(path)
		return zero, err
	}
	fp := fingerprint{size: info.Size(), modTime: info.ModTime().UnixNano()}

	if e, ok := (*r.snapshot.Load())[path]; ok && e.fp == fp {
		r.hits.Add(1)
		return e.value, nil
	}
	r.misses.Add(1)

	v, err, _ := r.group.Do(path+"@"+fp.String(), func() (any, error) {
		value, err := r.load(path)
		if err != nil {
			return nil, err
		}
		// 使用加载前的指纹：若加载期间文件被替换，下次 Get 会因指纹不一致而重新加载
		r.publish(path, &entry[T]{value: value, fp: fp})
		return value, nil
	})
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}

func (r *Registry[T]) publish(path string, e *entry[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := *r.snapshot.Load()
	next := make(map[string]*entry[T], len(cur)+1)
	for k, v := range cur {
		next[k] = v
	}
	next[path] = e
	r.snapshot.Store(&next)
}

// Invalidate 移除路径对应的缓存条目。
func (r *Registry[T]) Invalidate(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := *r.snapshot.Load()
	if _, ok := cur[path]; !ok {
		return
	}
	next := make(map[string]*entry[T], len(cur))
	for k, v := range cur {
		if k != path {
			next[k] = v
		}
	}
	r.snapshot.Store(&next)
}

// Purge 清空缓存。
func (r *Registry[T]) Purge() {
	r.mu.Lock()
	defer r.mu.Unlock()

	empty := make(map[string]*entry[T])
	r.snapshot.Store(&empty)
}

// Len 返回当前缓存条目数。
func (r *Registry[T]) Len() int {
	return len(*r.snapshot.Load())
}

// Stats 返回命中与未命中次数。
func (r *Registry[T]) Stats() (hits, misses int64) {
	return r.hits.Load(), r.misses.Load()
}
