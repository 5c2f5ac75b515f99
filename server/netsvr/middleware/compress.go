// Copyright 2025 Zintix Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package middleware

import (
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

func isUpgrade(r *http.Request) bool {
	return strings.Contains(strings.ToLower(r.Header.Get("Connection")), "upgrade") ||
		r.Header.Get("Upgrade") != ""
}

func isNoBodyStatus(code int) bool {
	// 204 No Content, 304 Not Modified, 1xx Informational
	return (code >= 100 && code < 200) || code == http.StatusNoContent || code == http.StatusNotModified
}

type CompressConfig struct {
	GzipLevel int
	ZstdLevel zstd.EncoderLevel
}

var DefaultCompressConfig = CompressConfig{
	GzipLevel: gzip.DefaultCompression,
	ZstdLevel: zstd.SpeedFastest,
}

// compressor 每組設定各自一組 writer pool，避免不同等級的 writer 混用。
type compressor struct {
	cfg      CompressConfig
	gzipPool sync.Pool
	zstdPool sync.Pool
}

func (c *compressor) zstdWriter(w io.Writer) *zstd.Encoder {
	if v := c.zstdPool.Get(); v != nil {
		zw := v.(*zstd.Encoder)
		zw.Reset(w)
		return zw
	}
	zw, err := zstd.NewWriter(w,
		zstd.WithEncoderLevel(c.cfg.ZstdLevel),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		panic(err)
	}
	return zw
}

func (c *compressor) gzipWriter(w io.Writer) *gzip.Writer {
	if v := c.gzipPool.Get(); v != nil {
		gw := v.(*gzip.Writer)
		gw.Reset(w)
		return gw
	}
	gw, err := gzip.NewWriterLevel(w, c.cfg.GzipLevel)
	if err != nil {
		gw = gzip.NewWriter(w)
	}
	return gw
}

// encodedWriter 壓縮器的共同介面（gzip.Writer / zstd.Encoder）。
type encodedWriter interface {
	io.WriteCloser
	Flush() error
}

type compressResponseWriter struct {
	http.ResponseWriter
	w        encodedWriter
	disabled bool // 204/304/1xx 時取消壓縮
}

func (cw *compressResponseWriter) Write(b []byte) (int, error) {
	if cw.disabled {
		return cw.ResponseWriter.Write(b)
	}
	// 防禦隱式 Header 發送
	cw.Header().Del("Content-Length")
	if cw.Header().Get("Content-Type") == "" {
		cw.Header().Set("Content-Type", http.DetectContentType(b))
	}
	return cw.w.Write(b)
}

func (cw *compressResponseWriter) WriteHeader(code int) {
	cw.Header().Del("Content-Length")
	if isNoBodyStatus(code) {
		cw.disabled = true
		cw.Header().Del("Content-Encoding")
		cw.Header().Del("Vary")
	}
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *compressResponseWriter) Flush() {
	if !cw.disabled {
		_ = cw.w.Flush()
	}
	if f, ok := cw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// negotiate 依 Accept-Encoding 選擇編碼：zstd 優先，其次 gzip；q=0 視為拒絕。
func negotiate(header string) string {
	accept := map[string]bool{}
	for _, part := range strings.Split(strings.ToLower(header), ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		q := strings.ReplaceAll(params, " ", "")
		accept[strings.TrimSpace(name)] = !(q == "q=0" || q == "q=0.0" || q == "q=0.00" || q == "q=0.000")
	}
	switch {
	case accept["zstd"]:
		return "zstd"
	case accept["gzip"]:
		return "gzip"
	default:
		return ""
	}
}

// Compression 預設設定的壓縮 middleware。
var Compression = NewCompression(DefaultCompressConfig)

// NewCompression 依設定建立 gzip/zstd 回應壓縮 middleware。
func NewCompression(cfg CompressConfig) func(http.Handler) http.Handler {
	c := &compressor{cfg: cfg}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodHead || isUpgrade(r) || w.Header().Get("Content-Encoding") != "" {
				next.ServeHTTP(w, r)
				return
			}

			enc := negotiate(r.Header.Get("Accept-Encoding"))
			if enc == "" {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("Content-Encoding", enc)
			w.Header().Add("Vary", "Accept-Encoding")

			cw := &compressResponseWriter{ResponseWriter: w}
			var release func()
			switch enc {
			case "zstd":
				zw := c.zstdWriter(w)
				cw.w = zw
				release = func() {
					// 204/304 時把 footer 丟到 io.Discard，避免污染無 body 的回應
					if cw.disabled {
						zw.Reset(io.Discard)
					}
					_ = zw.Close()
					c.zstdPool.Put(zw)
				}
			default:
				gw := c.gzipWriter(w)
				cw.w = gw
				release = func() {
					if cw.disabled {
						gw.Reset(io.Discard)
					}
					_ = gw.Close()
					c.gzipPool.Put(gw)
				}
			}
			done := false
			defer func() {
				// panic 往外傳時丟棄壓縮串流並撤回標頭，外層 Recover 才能寫出明文 500
				if !done {
					cw.disabled = true
					w.Header().Del("Content-Encoding")
					w.Header().Del("Vary")
				}
				release()
			}()
			next.ServeHTTP(cw, r)
			done = true
		})
	}
}
