// Package validators contains validators found throughout the application
// that have been abstracted away from the main code
package validators

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrFileTooLarge    = errors.New("file too large")
	ErrFileNameTooLong = errors.New("file name is too long")
	ErrFileNameInvalid = errors.New("invalid file name")
	ErrNoFile          = errors.New("no file provided")
)

// Object keys embed the name, most stores cap a key segment at 255 bytes
const maxFileNameSize = 255

// genericMimeTypes are client-sent types that say nothing and get sniffed
var genericMimeTypes = []string{"", "application/octet-stream", "binary/octet-stream"}

// FileNameValidator rejects names that can't be used as the last segment
// of an object key.
func FileNameValidator(name string) error {
	if name == "" || name == "." || name == ".." {
		return ErrFileNameInvalid
	}

	if strings.ContainsAny(name, "/\\\x00") {
		return ErrFileNameInvalid
	}

	if len(name) > maxFileNameSize {
		return ErrFileNameTooLong
	}

	return nil
}

// FileValidator checks an uploaded file and opens it. It returns the HTTP
// status to use on failure, the open file rewound to the start and the
// content type. The client's content type is trusted unless it's missing
// or generic, in which case the content is sniffed.
func FileValidator(fh *multipart.FileHeader, maxFileSize int64) (int, multipart.File, string, error) {
	if fh == nil {
		return http.StatusBadRequest, nil, "", ErrNoFile
	}

	if err := FileNameValidator(fh.Filename); err != nil {
		return http.StatusBadRequest, nil, "", err
	}

	if fh.Size > maxFileSize {
		return http.StatusRequestEntityTooLarge, nil, "", ErrFileTooLarge
	}

	f, err := fh.Open()
	if err != nil {
		return http.StatusInternalServerError, nil, "", err
	}

	ct := fh.Header.Get("Content-Type")
	if isGeneric(ct) {
		mime, err := mimetype.DetectReader(f)
		if err != nil {
			f.Close()
			return http.StatusInternalServerError, nil, "", err
		}

		ct = mime.String()

		if _, err := f.Seek(0, io.SeekStart); err != nil {
			f.Close()
			return http.StatusInternalServerError, nil, "", err
		}
	}

	return 0, f, ct, nil
}

func isGeneric(ct string) bool {
	base, _, _ := strings.Cut(ct, ";")
	base = strings.TrimSpace(strings.ToLower(base))

	for _, g := range genericMimeTypes {
		if base == g {
			return true
		}
	}

	return false
}
