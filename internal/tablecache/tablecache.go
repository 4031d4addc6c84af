package tablecache

import (
	"errors"
	"fmt"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
)

// Cache 持久化的 CDF 表缓存（Badger）。
// 高 terms 下整表计算不便宜，算过一次就落盘，进程重启后仍可命中。
type Cache struct {
	db *badger.DB
}

// Open 打开（必要时创建）表缓存目录
func Open(dir string) (*Cache, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("tablecache: dir is required")
	}
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("tablecache: open: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close 关闭底层数据库
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Key 规范化缓存键：modelID/terms/from/to/step
func Key(modelID string, terms int, from, to, step float64) string {
	return fmt.Sprintf("%s/%d/%v/%v/%v", modelID, terms, from, to, step)
}

// Get 查表。未命中返回 (nil, false, nil)。
func (c *Cache) Get(key string) ([]byte, bool, error) {
	if c == nil || c.db == nil {
		return nil, false, errors.New("tablecache: not opened")
	}
	var out []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

// Set 写表
func (c *Cache) Set(key string, val []byte) error {
	if c == nil || c.db == nil {
		return errors.New("tablecache: not opened")
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), val)
	})
}

// InvalidateModel 删除某个模型的所有缓存表（模型删除时调用）
func (c *Cache) InvalidateModel(modelID string) error {
	if c == nil || c.db == nil {
		return errors.New("tablecache: not opened")
	}
	prefix := []byte(modelID + "/")
	return c.db.Update(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
		defer it.Close()
		var keys [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}
