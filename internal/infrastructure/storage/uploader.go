// Package storage 提供附件上传能力：写入字节，换回可持久访问的 URL
package storage

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"medichat_server/pkg/errorx"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Uploader 附件存储接口，消息服务只依赖它
type Uploader interface {
	// Upload 保存附件并返回访问 URL
	// 内容不是图片或超出大小限制返回 CodeInvalidParam，写入失败返回 CodeUploadFailed
	Upload(ctx context.Context, fileName string, content io.Reader) (string, error)
}

// StaticRoute 本地附件的访问路由前缀
const StaticRoute = "/static/files"

// 允许的图片 MIME 类型及对应扩展名
var imageExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
}

// LocalUploader 将附件写到本地目录，由 gin 静态路由对外提供
type LocalUploader struct {
	dir           string
	publicBaseURL string
	maxSize       int64
}

// NewLocalUploader 创建本地附件存储，目录不存在时自动创建
func NewLocalUploader(dir, publicBaseURL string, maxSize int64) (*LocalUploader, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errorx.Wrapf(err, errorx.CodeUploadFailed, "create upload dir %s", dir)
	}
	return &LocalUploader{
		dir:           dir,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		maxSize:       maxSize,
	}, nil
}

// Upload 校验 Magic Bytes 后写入文件
// 先写临时文件再重命名，失败时不留下半个文件
func (u *LocalUploader) Upload(ctx context.Context, fileName string, content io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", errorx.Wrap(err, errorx.CodeUploadFailed, "upload cancelled")
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(content, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", errorx.Wrap(err, errorx.CodeUploadFailed, "read attachment")
	}
	head = head[:n]
	if n == 0 {
		return "", errorx.New(errorx.CodeInvalidParam, "attachment is empty")
	}

	contentType := http.DetectContentType(head)
	ext, ok := imageExtensions[contentType]
	if !ok {
		return "", errorx.Newf(errorx.CodeInvalidParam, "invalid file type: %s", contentType)
	}

	name := uuid.NewString() + ext
	tmp, err := os.CreateTemp(u.dir, ".upload-*")
	if err != nil {
		return "", errorx.Wrap(err, errorx.CodeUploadFailed, "create temp file")
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	// 多读一个字节用来判断是否超限
	src := io.MultiReader(bytes.NewReader(head), content)
	if u.maxSize > 0 {
		src = io.LimitReader(src, u.maxSize+1)
	}
	written, err := io.Copy(tmp, src)
	if err != nil {
		cleanup()
		return "", errorx.Wrap(err, errorx.CodeUploadFailed, "write attachment")
	}
	if u.maxSize > 0 && written > u.maxSize {
		cleanup()
		return "", errorx.Newf(errorx.CodeInvalidParam, "attachment exceeds %d bytes", u.maxSize)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", errorx.Wrap(err, errorx.CodeUploadFailed, "close attachment")
	}
	if err := os.Rename(tmpName, filepath.Join(u.dir, name)); err != nil {
		_ = os.Remove(tmpName)
		return "", errorx.Wrap(err, errorx.CodeUploadFailed, "store attachment")
	}

	zap.L().Info("attachment stored",
		zap.String("original", fileName),
		zap.String("stored", name),
		zap.String("contentType", contentType),
		zap.Int64("size", written))
	return u.publicBaseURL + StaticRoute + "/" + name, nil
}

var _ Uploader = (*LocalUploader)(nil)
