package filestore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Store 文件内容存储。元数据在数据库，内容在这里
type Store interface {
	// Save 写入文件内容，返回存储键
	Save(filename string, r io.Reader) (key string, size int64, err error)
	// Open 按存储键打开文件内容
	Open(key string) (io.ReadCloser, error)
	// Remove 删除文件内容，键不存在时为 no-op
	Remove(key string) error
}

// DiskStore 本地磁盘存储。存储键是随机 UUID 加原始扩展名，
// 避免用户提供的文件名造成路径穿越
type DiskStore struct {
	dir string
}

// NewDiskStore 创建磁盘存储，目录不存在时自动创建
func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建上传目录失败: %w", err)
	}
	return &DiskStore{dir: dir}, nil
}

func (s *DiskStore) Save(filename string, r io.Reader) (string, int64, error) {
	key := uuid.NewString() + filepath.Ext(filename)

	f, err := os.Create(filepath.Join(s.dir, key))
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	size, err := io.Copy(f, r)
	if err != nil {
		os.Remove(f.Name())
		return "", 0, err
	}
	return key, size, nil
}

func (s *DiskStore) Open(key string) (io.ReadCloser, error) {
	// 存储键由我们生成，拒绝任何带路径成分的键
	if filepath.Base(key) != key {
		return nil, os.ErrNotExist
	}
	return os.Open(filepath.Join(s.dir, key))
}

func (s *DiskStore) Remove(key string) error {
	if filepath.Base(key) != key {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
