package httppresentation

import (
	"errors"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Zhima-Mochi/minishop-storefront/internal/application"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/media"
)

// formData is the union of url-encoded and multipart fields of a request.
type formData struct {
	values url.Values
	files  map[string][]*multipart.FileHeader
}

func (f formData) value(key string) string {
	return strings.TrimSpace(f.values.Get(key))
}

// optional returns nil when the field is absent or blank.
func (f formData) optional(key string) *string {
	if _, ok := f.values[key]; !ok {
		return nil
	}
	v := f.value(key)
	if v == "" {
		return nil
	}
	return &v
}

func (f formData) has(key string) bool {
	_, ok := f.values[key]
	return ok
}

func (h *Handler) parseForm(w http.ResponseWriter, r *http.Request) (formData, func(), error) {
	noop := func() {}
	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxUploadBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(h.opts.MaxUploadBytes); err != nil {
			return formData{}, noop, formError(err)
		}
		cleanup := func() { _ = r.MultipartForm.RemoveAll() }
		return formData{values: r.MultipartForm.Value, files: r.MultipartForm.File}, cleanup, nil
	}
	if err := r.ParseForm(); err != nil {
		return formData{}, noop, formError(err)
	}
	return formData{values: r.PostForm}, noop, nil
}

func formError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return application.Invalidf("request body exceeds %d bytes", tooLarge.Limit)
	}
	return application.Invalidf("invalid form: %v", err)
}

type openedUploads []openedUpload

type openedUpload struct {
	upload media.Upload
	file   multipart.File
}

func uploadsFrom(form formData, field string) (openedUploads, error) {
	var out openedUploads
	for _, fh := range form.files[field] {
		f, err := fh.Open()
		if err != nil {
			closeUploads(out)
			return nil, application.Invalidf("cannot read upload %q", fh.Filename)
		}
		out = append(out, openedUpload{
			file: f,
			upload: media.Upload{
				Filename:    fh.Filename,
				ContentType: fh.Header.Get("Content-Type"),
				Size:        fh.Size,
				Body:        f,
			},
		})
	}
	return out, nil
}

func (u openedUploads) all() []media.Upload {
	out := make([]media.Upload, 0, len(u))
	for _, o := range u {
		out = append(out, o.upload)
	}
	return out
}

func (u openedUploads) first() *media.Upload {
	if len(u) == 0 {
		return nil
	}
	up := u[0].upload
	return &up
}

func closeUploads(u openedUploads) {
	for _, o := range u {
		_ = o.file.Close()
	}
}

func atoiField(name, v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, application.Invalidf("%s must be a whole number", name)
	}
	return n, nil
}
