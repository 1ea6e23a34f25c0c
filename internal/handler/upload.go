package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/apperror"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/service"
)

// multipartMemory is how much of a form is buffered before spilling to
// temporary files.
const multipartMemory = 1 << 20

// formFile reads the single file sent under field. The body is capped a
// little above limit so the size check in the upload policy still sees
// oversized files by their declared size. The returned release func must
// be called once the upload has been consumed.
func (a *api) formFile(w http.ResponseWriter, r *http.Request, field string, limit int64, missing string) (service.Upload, func(), error) {
	noop := func() {}
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartMemory)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return service.Upload{}, noop, apperror.PayloadTooLarge(
				fmt.Sprintf("El archivo no puede superar %d MB", limit/(1024*1024)))
		}
		return service.Upload{}, noop, apperror.BadRequest(missing, "")
	}

	release := func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		release()
		return service.Upload{}, noop, apperror.BadRequest(missing, "")
	}

	return service.Upload{
			OriginalName: header.Filename,
			Mimetype:     header.Header.Get("Content-Type"),
			Size:         header.Size,
			Content:      file,
		}, func() {
			_ = file.Close()
			release()
		}, nil
}
