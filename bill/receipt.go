package bill

import (
	"fmt"
	"io"
	"mime/multipart"
	"path"
	"strings"
)

var acceptedReceiptExt = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
}

// UploadedFile is a receipt selected in the new-bill form. It only lives
// until the bill carrying it has been created.
type UploadedFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// Extension returns the lower-cased text after the last dot of name, or ""
// when there is none.
func Extension(name string) string {
	i := strings.LastIndex(name, ".")
	if i < 0 || i == len(name)-1 {
		return ""
	}
	return strings.ToLower(name[i+1:])
}

// AcceptedReceipt reports whether name has a jpg, jpeg or png extension.
func AcceptedReceipt(name string) bool {
	_, ok := acceptedReceiptExt[Extension(name)]
	return ok
}

// CheckReceipt returns ErrReceiptFormat unless f can be attached to a bill.
func (f UploadedFile) CheckReceipt() error {
	if !AcceptedReceipt(f.Name) {
		return ErrReceiptFormat
	}
	return nil
}

// MediaType is the content type used to serve the receipt back. It trusts the
// extension over whatever the client declared.
func (f UploadedFile) MediaType() string {
	if t, ok := acceptedReceiptExt[Extension(f.Name)]; ok {
		return t
	}
	if f.ContentType != "" {
		return f.ContentType
	}
	return "application/octet-stream"
}

// BaseName strips any directory a browser may have sent along with the name.
func (f UploadedFile) BaseName() string {
	return path.Base(strings.ReplaceAll(f.Name, `\`, "/"))
}

// ReadUpload loads a multipart file part into memory.
func ReadUpload(fh *multipart.FileHeader) (UploadedFile, error) {
	f, err := fh.Open()
	if err != nil {
		return UploadedFile{}, fmt.Errorf("opening upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return UploadedFile{}, fmt.Errorf("reading upload: %w", err)
	}
	return UploadedFile{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
