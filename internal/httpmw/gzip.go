package httpmw

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"
)

// compressedReader wraps an io.ReadCloser and decompresses its input using gzip.
type compressedReader struct {
	r  io.ReadCloser
	zr *gzip.Reader
}

func newCompressedReader(requestBody io.ReadCloser) (*compressedReader, error) {
	zippedRequestBody, err := gzip.NewReader(requestBody)
	if err != nil {
		return nil, err
	}

	return &compressedReader{
		r:  requestBody,
		zr: zippedRequestBody,
	}, nil
}

func (c *compressedReader) Read(p []byte) (n int, err error) {
	return c.zr.Read(p)
}

// Close closes both the gzip reader and the underlying io.ReadCloser.
func (c *compressedReader) Close() error {
	if err := c.r.Close(); err != nil {
		return err
	}
	return c.zr.Close()
}

// compressedResponseWriter gzips the body of responses that have one.
// Whether to compress is decided on the first WriteHeader or Write.
type compressedResponseWriter struct {
	http.ResponseWriter
	zw          *gzip.Writer
	wroteHeader bool
}

var gzipWriterPool = sync.Pool{
	New: func() interface{} {
		w, _ := gzip.NewWriterLevel(nil, gzip.BestSpeed)
		return w
	},
}

func (c *compressedResponseWriter) WriteHeader(statusCode int) {
	if c.wroteHeader {
		return
	}
	c.wroteHeader = true

	if statusCode != http.StatusNoContent && statusCode != http.StatusNotModified {
		c.Header().Set("Content-Encoding", "gzip")
		c.Header().Add("Vary", "Accept-Encoding")
		c.Header().Del("Content-Length")

		c.zw = gzipWriterPool.Get().(*gzip.Writer)
		c.zw.Reset(c.ResponseWriter)
	}

	c.ResponseWriter.WriteHeader(statusCode)
}

func (c *compressedResponseWriter) Write(p []byte) (int, error) {
	if !c.wroteHeader {
		c.WriteHeader(http.StatusOK)
	}
	if c.zw == nil {
		return c.ResponseWriter.Write(p)
	}

	return c.zw.Write(p)
}

func (c *compressedResponseWriter) Close() error {
	if c.zw == nil {
		return nil
	}
	err := c.zw.Close()
	gzipWriterPool.Put(c.zw)
	c.zw = nil

	return err
}

// GzipResponse compresses response bodies for clients sending
// "Accept-Encoding: gzip". Empty 204 and 304 responses are left as is.
func GzipResponse(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		acceptEncoding := request.Header.Get("Accept-Encoding")
		if !strings.Contains(acceptEncoding, "gzip") || request.Method == http.MethodHead {
			h.ServeHTTP(response, request)
			return
		}

		responseWithCompression := &compressedResponseWriter{ResponseWriter: response}
		defer func() {
			_ = responseWithCompression.Close()
		}()

		h.ServeHTTP(responseWithCompression, request)
	}

	return http.HandlerFunc(middleware)
}

// UngzipRequest replaces a gzip-encoded request body ("Content-Encoding: gzip")
// with a decompressing reader. A body that is not valid gzip is a 400.
func UngzipRequest(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		contentEncoding := request.Header.Get("Content-Encoding")
		if !strings.Contains(contentEncoding, "gzip") {
			h.ServeHTTP(response, request)
			return
		}

		requestBodyWithCompression, err := newCompressedReader(request.Body)
		if err != nil {
			writeError(response, http.StatusBadRequest, "Bad Request")
			return
		}
		request.Body = requestBodyWithCompression
		defer requestBodyWithCompression.Close()

		h.ServeHTTP(response, request)
	}

	return http.HandlerFunc(middleware)
}
