package telemetry

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
)

// DumpOutput receives one rendered request/response pair per call.
type DumpOutput interface {
	Write(id string, contents string)
}

type FilesystemOutput struct {
	directory string
}

// NewFilesystemOutput writes each message to <dir>/<id>.txt. Existing files
// in `dir` are left alone.
func NewFilesystemOutput(dir string) (FilesystemOutput, error) {
	err := os.MkdirAll(dir, 0700)
	if err != nil {
		return FilesystemOutput{}, err
	}
	return FilesystemOutput{directory: dir}, nil
}

func (o FilesystemOutput) Write(id string, contents string) {
	err := os.WriteFile(filepath.Join(o.directory, id+".txt"), []byte(contents), 0600)
	if err != nil {
		slog.Warn("failed to write http dump", "id", id, "err", err)
	}
}

// Dumper renders every response of the clients it instruments into an
// output, for debugging scrapers against pages that changed.
type Dumper struct {
	output  DumpOutput
	counter atomic.Uint64
}

func NewDumper(output DumpOutput) *Dumper {
	return &Dumper{output: output}
}

func (d *Dumper) Instrument(client *resty.Client) {
	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		n := d.counter.Add(1)
		id := fmt.Sprintf("%03d-%s%s", n, strings.ToLower(res.Request.Method), dumpName(res.Request.RawRequest))
		d.output.Write(id, formatHttpMessage(res))
		return nil
	})
}

func dumpName(req *http.Request) string {
	if req == nil || req.URL == nil {
		return ""
	}
	var out strings.Builder
	for _, r := range req.URL.Path {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			out.WriteRune(r)
		default:
			out.WriteRune('_')
		}
	}
	return strings.TrimRight(out.String(), "_")
}

func isSecretHeader(key string) bool {
	switch http.CanonicalHeaderKey(key) {
	case "Cookie", "Set-Cookie", "Authorization", "X-Csrf-Token":
		return true
	}
	return false
}

func formatHeaders(headers http.Header) string {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []string
	for _, k := range keys {
		for _, v := range headers[k] {
			if isSecretHeader(k) {
				v = redacted
			}
			out = append(out, fmt.Sprintf("%s: %s", k, v))
		}
	}
	return strings.Join(out, "\n")
}

// 1: request method
// 2: request url
// 3: request headers
// 4: request body
// 5: response status
// 6: response headers
// 7: response body
const messageTemplate = `---- REQUEST ----

%s %s

%s

%s

---- RESPONSE ----

%s

%s

%s`

func formatHttpMessage(res *resty.Response) string {
	var requestHeaders string
	if res.Request.RawRequest != nil {
		requestHeaders = formatHeaders(res.Request.RawRequest.Header)
	}
	return fmt.Sprintf(
		messageTemplate,

		res.Request.Method, res.Request.URL,
		requestHeaders,
		formatRequestBody(res.Request.RawRequest),

		res.Status(),
		formatHeaders(res.Header()),
		res.String(),
	)
}
