package backend

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/eringen/pubforms/forms"
)

// payload builds a multipart/form-data body one part per field, in call
// order. The first write error sticks and is reported by close.
type payload struct {
	buf bytes.Buffer
	w   *multipart.Writer
	err error
}

func newPayload() *payload {
	p := &payload{}
	p.w = multipart.NewWriter(&p.buf)
	return p
}

func (p *payload) field(name, value string) {
	if p.err != nil {
		return
	}
	p.err = p.w.WriteField(name, value)
}

// file writes f as a file part. A missing file is sent as an empty field.
func (p *payload) file(name string, f *forms.File) {
	if p.err != nil {
		return
	}
	if f == nil {
		p.field(name, "")
		return
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		escapeQuotes(name), escapeQuotes(f.Name)))
	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)
	part, err := p.w.CreatePart(h)
	if err != nil {
		p.err = err
		return
	}
	_, p.err = part.Write(f.Data)
}

func (p *payload) close() error {
	if p.err != nil {
		return fmt.Errorf("build multipart payload: %w", p.err)
	}
	return p.w.Close()
}

func (p *payload) body() io.Reader {
	return bytes.NewReader(p.buf.Bytes())
}

func (p *payload) contentType() string {
	return p.w.FormDataContentType()
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
