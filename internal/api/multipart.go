package api

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
)

// Upload is a file part of a multipart request.
type Upload struct {
	Filename string
	MIMEType string
	Data     []byte
}

type formField struct {
	name  string
	value string
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// multipartRequest buffers a form so it can be resent after a token refresh.
func multipartRequest(path string, fields []formField, fileField string, file *Upload) (request, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return request{}, fmt.Errorf("write field %s: %w", f.name, err)
		}
	}

	if file != nil {
		mimeType := file.MIMEType
		if mimeType == "" {
			mimeType = http.DetectContentType(file.Data)
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			quoteEscaper.Replace(fileField), quoteEscaper.Replace(file.Filename)))
		h.Set("Content-Type", mimeType)
		part, err := w.CreatePart(h)
		if err != nil {
			return request{}, fmt.Errorf("create %s part: %w", fileField, err)
		}
		if _, err := part.Write(file.Data); err != nil {
			return request{}, fmt.Errorf("write %s part: %w", fileField, err)
		}
	}

	if err := w.Close(); err != nil {
		return request{}, fmt.Errorf("close multipart: %w", err)
	}

	return request{
		method:      http.MethodPost,
		path:        path,
		body:        buf.Bytes(),
		contentType: w.FormDataContentType(),
	}, nil
}
