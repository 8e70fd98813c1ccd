package rest

import (
	"errors"
	"io"
	"mime/multipart"
	"reflect"
)

// FileUpload holds a parsed file from a multipart form upload. Declare
// fields of this type (or []FileUpload) on a schema loaded from LocationFiles.
type FileUpload struct {
	Filename    string
	Size        int64
	ContentType string
	Header      *multipart.FileHeader
}

// Open returns a reader for the uploaded file contents.
func (f FileUpload) Open() (io.ReadCloser, error) {
	if f.Header == nil {
		return nil, errors.New("no file header")
	}
	return f.Header.Open()
}

func newFileUpload(h *multipart.FileHeader) FileUpload {
	return FileUpload{
		Filename:    h.Filename,
		Size:        h.Size,
		ContentType: h.Header.Get("Content-Type"),
		Header:      h,
	}
}

// isUploadType reports whether t is filled from multipart files.
func isUploadType(t reflect.Type) bool {
	t = derefType(t)
	if t.Kind() == reflect.Slice {
		t = derefType(t.Elem())
	}
	return t == reflect.TypeFor[FileUpload]() || t == reflect.TypeFor[multipart.FileHeader]()
}

func setUploadField(field reflect.Value, headers []*multipart.FileHeader) {
	t := field.Type()
	switch {
	case t == reflect.TypeFor[FileUpload]():
		field.Set(reflect.ValueOf(newFileUpload(headers[0])))
	case t == reflect.TypeFor[*FileUpload]():
		up := newFileUpload(headers[0])
		field.Set(reflect.ValueOf(&up))
	case t == reflect.TypeFor[*multipart.FileHeader]():
		field.Set(reflect.ValueOf(headers[0]))
	case t == reflect.TypeFor[[]*multipart.FileHeader]():
		field.Set(reflect.ValueOf(headers))
	case t == reflect.TypeFor[[]FileUpload]():
		uploads := make([]FileUpload, 0, len(headers))
		for _, h := range headers {
			uploads = append(uploads, newFileUpload(h))
		}
		field.Set(reflect.ValueOf(uploads))
	}
}
