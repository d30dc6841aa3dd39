package objstore

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
)

// Uploader 对象上传
type Uploader interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
}

// ArchiveDir 将目录下的常规文件上传到 prefix 下，返回上传的文件数
//
// key 为 prefix 加上相对路径（统一使用 /）。符号链接和特殊文件被跳过。
func ArchiveDir(ctx context.Context, up Uploader, dir, prefix string) (int, error) {
	count := 0
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		key := path.Join(prefix, filepath.ToSlash(rel))

		if err := uploadFile(ctx, up, p, key); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("archive %s: %w", dir, err)
	}
	return count, nil
}

func uploadFile(ctx context.Context, up Uploader, p, key string) error {
	f, err := os.Open(p)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	return up.Upload(ctx, key, f, info.Size(), mime.TypeByExtension(filepath.Ext(p)))
}
