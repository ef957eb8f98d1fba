package storage

import "errors"

// ErrNotFound 表示键不存在
// ErrNotFound reports that a key has no stored value
var ErrNotFound = errors.New("storage: key not found")

// Store 本地持久化键值接口（对应浏览器 localStorage）
// Store is the durable local key/value interface (the client's localStorage)
type Store interface {
	// Get 读取键值；不存在时返回 ErrNotFound
	// Get reads a value; returns ErrNotFound when the key is absent
	Get(key string) (string, error)

	// Set 覆盖写入
	// Set overwrites the value stored under key
	Set(key, value string) error

	// Delete 删除键；键不存在不视为错误
	// Delete removes key; a missing key is not an error
	Delete(key string) error

	// 生命周期 / Lifecycle
	Close() error
}
