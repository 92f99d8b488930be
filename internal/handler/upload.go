package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/neristhub/campushub/internal/apperror"
)

// maxUploadSize bounds a single multipart upload (in-memory parse limit
// and the hard cap on the stored file).
const maxUploadSize = 10 << 20 // 10 MB

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// uploadStore saves multipart attachments under per-kind subdirectories
// of one uploads root, which the server exposes at /uploads/.
type uploadStore struct {
	dir string
}

func newUploadStore(dir string) *uploadStore {
	return &uploadStore{dir: dir}
}

// saveImage stores an optional image file from the named form field.
// Returns the stored relative path, or "" when the field is absent.
func (u *uploadStore) saveImage(r *http.Request, field, subdir string) (string, error) {
	return u.save(r, field, subdir, false)
}

// savePDF stores a PDF from the named form field. Unlike images the file
// may still be absent; the service decides whether it was required.
func (u *uploadStore) savePDF(r *http.Request, field, subdir string) (string, error) {
	return u.save(r, field, subdir, true)
}

func (u *uploadStore) save(r *http.Request, field, subdir string, pdfOnly bool) (string, error) {
	file, header, err := r.FormFile(field)
	// A request without any attachment is often not multipart at all
	// (urlencoded form, JSON body), so both errors mean "no file here".
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return "", nil
	}
	if err != nil {
		return "", apperror.ValidationFailed(field, "malformed file upload")
	}
	defer file.Close()

	if header.Size > maxUploadSize {
		return "", apperror.ValidationFailed(field, "file is too large (10 MB max)")
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if pdfOnly {
		if ext != ".pdf" {
			return "", apperror.ValidationFailed(field, "only PDF files are accepted")
		}
	} else if !imageExtensions[ext] {
		return "", apperror.ValidationFailed(field, "only image files are accepted")
	}

	name := fmt.Sprintf("%d-%s", time.Now().UnixMilli(), sanitizeFilename(header.Filename))
	relative := filepath.Join(subdir, name)

	if err := u.write(relative, file); err != nil {
		return "", fmt.Errorf("handler: storing upload: %w", err)
	}
	return relative, nil
}

func (u *uploadStore) write(relative string, src multipart.File) error {
	full := filepath.Join(u.dir, relative)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}

	dst, err := os.Create(full)
	if err != nil {
		return err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, io.LimitReader(src, maxUploadSize)); err != nil {
		os.Remove(full)
		return err
	}
	return nil
}

// sanitizeFilename strips anything that could escape the uploads dir or
// confuse a filesystem: only letters, digits, dot, dash and underscore
// survive.
func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	var sb strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}
	if sb.Len() == 0 || strings.Trim(sb.String(), "._") == "" {
		return "file"
	}
	return sb.String()
}
