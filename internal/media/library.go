// Package media provides access to local images: the permission grant, a
// picker that validates files and the reader used for uploads.
package media

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"github.com/sharanperla/Greenleaf-client/internal/core"
)

// maxImageBytes bounds what Open reads into memory.
const maxImageBytes = 20 << 20

// Asset describes a picked image.
type Asset struct {
	URI      string
	Path     string
	Name     string
	MIMEType string
	Size     int64
}

// Library answers permission requests with the host's decision and reads
// image files.
type Library struct {
	allow bool
	log   *zerolog.Logger

	mu      sync.Mutex
	granted bool
}

// NewLibrary creates a library. allow is the answer every permission request
// receives.
func NewLibrary(allow bool, logger *zerolog.Logger) *Library {
	if logger == nil {
		disabled := zerolog.Nop()
		logger = &disabled
	}
	return &Library{allow: allow, log: logger}
}

// RequestMediaLibrary asks for access and remembers the answer.
func (l *Library) RequestMediaLibrary(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.granted = l.allow
	if !l.granted {
		l.log.Info().Msg("media library access denied")
	}
	return l.granted, nil
}

// Granted reports whether access was granted by an earlier request.
func (l *Library) Granted() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.granted
}

// Pick validates that path is a readable image and describes it.
func (l *Library) Pick(path string) (Asset, error) {
	if !l.Granted() {
		return Asset{}, core.ErrMediaDenied
	}
	return inspect(path)
}

// Open resolves a path or file:// URI and returns the image bytes.
func (l *Library) Open(uri string) (Asset, []byte, error) {
	if !l.Granted() {
		return Asset{}, nil, core.ErrMediaDenied
	}
	path, err := PathFromURI(uri)
	if err != nil {
		return Asset{}, nil, err
	}
	asset, err := inspect(path)
	if err != nil {
		return Asset{}, nil, err
	}
	if asset.Size > maxImageBytes {
		return Asset{}, nil, core.ValidationError(fmt.Sprintf("image %s exceeds %d bytes", asset.Name, maxImageBytes))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Asset{}, nil, core.ValidationError(fmt.Sprintf("read image: %v", err))
	}
	return asset, data, nil
}

// PathFromURI accepts plain paths and file:// URIs.
func PathFromURI(uri string) (string, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return "", core.ValidationError("image uri is empty")
	}
	if !strings.Contains(uri, "://") {
		return filepath.Clean(uri), nil
	}
	u, err := url.Parse(uri)
	if err != nil {
		return "", core.ValidationError(fmt.Sprintf("parse image uri: %v", err))
	}
	if u.Scheme != "file" {
		return "", core.ValidationError(fmt.Sprintf("unsupported image uri scheme %q", u.Scheme))
	}
	return filepath.FromSlash(u.Path), nil
}

func inspect(path string) (Asset, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Asset{}, core.ValidationError(fmt.Sprintf("image not found: %v", err))
	}
	if info.IsDir() {
		return Asset{}, core.ValidationError(path + " is a directory")
	}

	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return Asset{}, core.ValidationError(fmt.Sprintf("detect image type: %v", err))
	}
	if !strings.HasPrefix(mt.String(), "image/") {
		return Asset{}, core.ValidationError(fmt.Sprintf("%s is %s, not an image", filepath.Base(path), mt.String()))
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return Asset{
		URI:      (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(),
		Path:     path,
		Name:     filepath.Base(path),
		MIMEType: mt.String(),
		Size:     info.Size(),
	}, nil
}
