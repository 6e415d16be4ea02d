package echoapi

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"

	"github.com/gabriel-vasile/mimetype"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/storage/files"
)

// bodyLimit caps every request body; uploads have their own, smaller caps.
const bodyLimit = "12M"

type uploadRule struct {
	field   string
	kind    string
	maxSize int64
	allowed []string // sniffed MIME types; empty allows anything
}

var (
	assignmentUpload = uploadRule{field: "file", kind: files.KindAssignments, maxSize: 5 << 20}
	submissionUpload = uploadRule{field: "file", kind: files.KindSubmissions, maxSize: 10 << 20}
	avatarUpload     = uploadRule{
		field:   "avatar",
		kind:    files.KindAvatars,
		maxSize: 2 << 20,
		allowed: []string{"image/jpeg", "image/png", "image/gif"},
	}
)

// paramID reads a positive integer path parameter. Anything else is a 404.
func paramID(ctx echo.Context, name string) (int, error) {
	id, err := strconv.Atoi(ctx.Param(name))
	if err != nil || id <= 0 {
		return 0, errHttpNotFound
	}
	return id, nil
}

func queryInt(ctx echo.Context, name string) (int, bool) {
	v, err := strconv.Atoi(ctx.QueryParam(name))
	return v, err == nil
}

// bind decodes the request into data and hides decoding details behind a 400.
func bind(ctx echo.Context, data interface{}) error {
	if err := ctx.Bind(data); err != nil {
		if herr, ok := err.(*echo.HTTPError); ok && herr.Code != http.StatusBadRequest {
			return err
		}
		return core.NewValidationError(errors.New("invalid request data"))
	}
	return nil
}

// saveUpload stores the uploaded file of rule.field and returns its storage path.
// A missing file yields "" unless required.
func saveUpload(ctx echo.Context, store core.FileStorage, rule uploadRule, required bool) (string, error) {
	fh, err := ctx.FormFile(rule.field)
	if err != nil {
		if err == http.ErrMissingFile || err == http.ErrNotMultipart {
			if required {
				return "", core.NewValidationError(nil, core.FieldError{Field: rule.field, Error: errFileRequired})
			}
			return "", nil
		}
		return "", errors.Wrap(err, "reading form file")
	}
	if fh.Size > rule.maxSize {
		return "", echo.NewHTTPError(errFileTooLarge.Code, fmt.Sprintf("file too large (max %dMB)", rule.maxSize>>20))
	}

	src, err := fh.Open()
	if err != nil {
		return "", errors.Wrap(err, "opening form file")
	}
	defer src.Close()

	mtype, err := mimetype.DetectReader(src)
	if err != nil {
		return "", errors.Wrap(err, "detecting file type")
	}
	if len(rule.allowed) > 0 && !mimetype.EqualsAny(mtype.String(), rule.allowed...) {
		return "", errUnsupportedFile
	}
	if _, err = src.Seek(0, io.SeekStart); err != nil {
		return "", errors.Wrap(err, "rewinding form file")
	}

	p, err := store.Save(ctx.Request().Context(), files.NewKey(rule.kind, fh.Filename), src, mtype.String())
	return p, errors.Wrap(err, "saving file")
}

// sendFile streams a stored file as an attachment.
func sendFile(ctx echo.Context, store core.FileStorage, p string) error {
	if p == "" {
		return core.NewNotFoundError("file")
	}
	rc, err := store.Open(ctx.Request().Context(), p)
	if err != nil {
		return err
	}
	defer rc.Close()

	head := make([]byte, 3072)
	n, err := io.ReadFull(rc, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return errors.Wrap(err, "reading file")
	}
	head = head[:n]

	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", path.Base(p)))
	return ctx.Stream(http.StatusOK, mimetype.Detect(head).String(), io.MultiReader(bytes.NewReader(head), rc))
}

// deleteFile removes a stored file; failures are only logged.
func deleteFile(ctx echo.Context, store core.FileStorage, logger core.Logger, p string) {
	if p == "" {
		return
	}
	if err := store.Delete(ctx.Request().Context(), p); err != nil {
		logger.Warn("deleting stored file", err, map[string]interface{}{"path": p})
	}
}

type (
	SuccessResponse struct {
		Success string `json:"success"`
	}

	InfoResponse struct {
		Info string `json:"info"`
	}

	ErrorResponse struct {
		Error string `json:"error"`
	}
)
