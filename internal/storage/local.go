package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"resumebox/internal/config"
)

// ErrNotFound 表示按全部约定路径均未找到文件。
var ErrNotFound = errors.New("storage: file not found")

// Store 管理本地磁盘上的文档与生成产物。
//
// 数据库中记录的 StoragePath 可能是绝对路径、相对 UploadRoot 的路径，
// 或遗留布局下相对 FallbackDir 的路径，Resolve 依次尝试这三种约定。
type Store struct {
	uploadRoot  string
	fallbackDir string
}

// NewStore 创建 Store 并确保上传根目录存在。
func NewStore(cfg config.StorageConfig) (*Store, error) {
	root := strings.TrimSpace(cfg.UploadRoot)
	if root == "" {
		return nil, errors.New("storage: upload root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload root %q: %w", root, err)
	}
	return &Store{
		uploadRoot:  root,
		fallbackDir: strings.TrimSpace(cfg.FallbackDir),
	}, nil
}

// Save 将数据写入 UploadRoot 下的相对路径并返回该相对路径。
// 中间目录按需创建。
func (s *Store) Save(relPath string, data []byte) (string, error) {
	relPath = filepath.Clean(relPath)
	if relPath == "." || strings.HasPrefix(relPath, "..") || filepath.IsAbs(relPath) {
		return "", fmt.Errorf("storage: invalid relative path %q", relPath)
	}

	full := filepath.Join(s.uploadRoot, relPath)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create dir for %q: %w", relPath, err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("write %q: %w", relPath, err)
	}
	return relPath, nil
}

// Resolve 按约定顺序把记录的存储路径解析为磁盘上的绝对路径：
// 绝对路径原样使用；否则先在 UploadRoot 下查找，再在 FallbackDir 下查找。
func (s *Store) Resolve(storedPath string) (string, error) {
	storedPath = strings.TrimSpace(storedPath)
	if storedPath == "" {
		return "", fmt.Errorf("%w: empty path", ErrNotFound)
	}

	candidates := make([]string, 0, 3)
	if filepath.IsAbs(storedPath) {
		candidates = append(candidates, storedPath)
	} else {
		candidates = append(candidates, filepath.Join(s.uploadRoot, storedPath))
		if s.fallbackDir != "" {
			candidates = append(candidates, filepath.Join(s.fallbackDir, storedPath))
		}
	}

	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, nil
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("stat %q: %w", candidate, err)
		}
	}

	return "", fmt.Errorf("%w: %q", ErrNotFound, storedPath)
}

// Read 解析并读取存储路径对应的文件内容。
func (s *Store) Read(storedPath string) ([]byte, error) {
	full, err := s.Resolve(storedPath)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", full, err)
	}
	return data, nil
}

// Remove 删除存储路径对应的文件。
// 文件已不存在视为成功（幂等）。
func (s *Store) Remove(storedPath string) error {
	full, err := s.Resolve(storedPath)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %q: %w", full, err)
	}
	return nil
}

// UploadRoot 返回上传根目录。
func (s *Store) UploadRoot() string {
	return s.uploadRoot
}
