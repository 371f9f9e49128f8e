// Package storage persists uploaded resumes and logos, either on local
// disk or on Cloudinary.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrFileType     = errors.New("file type not allowed")
	ErrFileTooLarge = errors.New("file too large")
)

// Kind describes one category of upload.
type Kind struct {
	Folder       string
	Exts         map[string]bool
	ResourceType string // cloudinary resource type
}

var (
	Resume = Kind{
		Folder:       "resumes",
		Exts:         map[string]bool{".pdf": true, ".doc": true, ".docx": true},
		ResourceType: "raw",
	}
	Logo = Kind{
		Folder:       "logos",
		Exts:         map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".webp": true},
		ResourceType: "image",
	}
)

// Validate checks the extension and size of an upload before it is read.
func Validate(k Kind, filename string, size, max int64) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if !k.Exts[ext] {
		return fmt.Errorf("%w: %s", ErrFileType, allowed(k))
	}
	if max > 0 && size > max {
		return fmt.Errorf("%w: max %d MB", ErrFileTooLarge, max>>20)
	}
	return nil
}

func allowed(k Kind) string {
	out := make([]string, 0, len(k.Exts))
	for e := range k.Exts {
		out = append(out, strings.TrimPrefix(e, "."))
	}
	sort.Strings(out)
	return strings.Join(out, ", ")
}

// Uploader stores r and returns the location to record on the profile.
type Uploader interface {
	Save(ctx context.Context, k Kind, filename string, r io.Reader) (string, error)
}

// Disk writes files under Dir and returns paths under URLPrefix.  The
// router serves logos from there directly and resumes behind a check.
type Disk struct {
	Dir       string
	URLPrefix string
}

func NewDisk(dir, urlPrefix string) *Disk { return &Disk{Dir: dir, URLPrefix: urlPrefix} }

func (d *Disk) Save(_ context.Context, k Kind, filename string, r io.Reader) (string, error) {
	dir := filepath.Join(d.Dir, k.Folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}
	name := uuid.NewString() + strings.ToLower(filepath.Ext(filename))
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path.Join(d.URLPrefix, k.Folder, name), nil
}
