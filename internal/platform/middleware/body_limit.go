package middleware

import (
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
)

// UploadPath receives multipart file uploads and gets the larger limit.
const UploadPath = "/api/v1/files/upload"

// BodyLimit caps request bodies at jsonLimit bytes, or uploadLimit bytes for
// POST UploadPath. The multipart envelope adds overhead on top of the file,
// so uploadLimit should sit a little above the file size cap.
func BodyLimit(jsonLimit, uploadLimit int64) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Body == nil || req.Body == http.NoBody {
				return next(c)
			}

			limit := jsonLimit
			if req.Method == http.MethodPost && req.URL.Path == UploadPath {
				limit = uploadLimit
			}
			if req.ContentLength > limit {
				return payloadTooLarge(limit)
			}

			// Content-Length may be absent or lie.
			req.Body = &cappedBody{ReadCloser: req.Body, left: limit, limit: limit}
			return next(c)
		}
	}
}

type cappedBody struct {
	io.ReadCloser
	left  int64
	limit int64
}

func (b *cappedBody) Read(p []byte) (int, error) {
	if b.left < 0 {
		return 0, payloadTooLarge(b.limit)
	}
	// Read one byte past the limit to tell "exactly at" from "over".
	if int64(len(p)) > b.left+1 {
		p = p[:b.left+1]
	}
	n, err := b.ReadCloser.Read(p)
	b.left -= int64(n)
	if b.left < 0 {
		return 0, payloadTooLarge(b.limit)
	}
	return n, err
}

func payloadTooLarge(limit int64) error {
	return echo.NewHTTPError(http.StatusRequestEntityTooLarge,
		fmt.Sprintf("request body exceeds %d bytes", limit))
}
