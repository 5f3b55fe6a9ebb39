package assetcache

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// DefaultMaxEntryBytes caps a single stored body.
const DefaultMaxEntryBytes = 16 << 20

// Response is a fully buffered HTTP response as stored in a generation.
type Response struct {
	URL      string      `json:"url"`
	Status   int         `json:"status"`
	Header   http.Header `json:"header"`
	Body     []byte      `json:"body"`
	StoredAt time.Time   `json:"stored_at"`
}

// hopHeaders are dropped before storing a response.
var hopHeaders = []string{
	"Connection", "Keep-Alive", "Proxy-Authenticate", "Proxy-Authorization",
	"Te", "Trailer", "Transfer-Encoding", "Upgrade", "Set-Cookie",
}

// readResponse buffers resp and closes its body.
func readResponse(url string, resp *http.Response, limit int64) (Response, error) {
	defer resp.Body.Close()
	if limit <= 0 {
		limit = DefaultMaxEntryBytes
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return Response{}, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > limit {
		return Response{}, fmt.Errorf("%w: %s exceeds %d bytes", ErrTooLarge, url, limit)
	}
	h := resp.Header.Clone()
	if h == nil {
		h = http.Header{}
	}
	for _, k := range hopHeaders {
		h.Del(k)
	}
	return Response{
		URL:      url,
		Status:   resp.StatusCode,
		Header:   h,
		Body:     body,
		StoredAt: time.Now().UTC(),
	}, nil
}

func (r Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// HTTP builds a fresh *http.Response for req. Each call gets its own body reader.
func (r Response) HTTP(req *http.Request) *http.Response {
	h := r.Header.Clone()
	if h == nil {
		h = http.Header{}
	}
	h.Set("Content-Length", strconv.Itoa(len(r.Body)))
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", r.Status, http.StatusText(r.Status)),
		StatusCode:    r.Status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        h,
		Body:          io.NopCloser(bytes.NewReader(r.Body)),
		ContentLength: int64(len(r.Body)),
		Request:       req,
	}
}
