package chromelogger

import (
	"bytes"
	"encoding/base64"
	"encoding/json"

	"github.com/klauspost/compress/gzip"

	"github.com/zircuit-labs/zkr-chromelogger/version"
	"github.com/zircuit-labs/zkr-chromelogger/xerrors/errclass"
	"github.com/zircuit-labs/zkr-chromelogger/xerrors/stacktrace"
)

// HeaderName is the response header read by the browser extension.
const HeaderName = "X-ChromeLogger-Data"

// Columns names the members of each row, in order.
var Columns = []string{"log", "backtrace", "type"}

// Row is one console call. It marshals to `[logs, backtrace, type]`.
type Row struct {
	Logs []any
	// Backtrace is nil when the row shows no call site.
	Backtrace *string
	Level     Level
}

// MarshalJSON implements json.Marshaler.
func (r Row) MarshalJSON() ([]byte, error) {
	logs := r.Logs
	if logs == nil {
		logs = []any{}
	}
	return json.Marshal([]any{logs, r.Backtrace, r.Level})
}

// Payload is the document carried by the header.
type Payload struct {
	Version    string   `json:"version"`
	Columns    []string `json:"columns"`
	Rows       []Row    `json:"rows"`
	RequestURI string   `json:"request_uri"`
}

// NewPayload returns an empty payload for the given request.
func NewPayload(requestURI string) Payload {
	return Payload{
		Version:    version.Protocol,
		Columns:    Columns,
		Rows:       []Row{},
		RequestURI: requestURI,
	}
}

// Encode renders the payload as a header value: JSON, optionally gzipped, then base64.
func (p Payload) Encode(compress bool) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", errclass.WrapAs(stacktrace.Wrap(err), errclass.Persistent)
	}

	if compress {
		var buf bytes.Buffer
		zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
		if err != nil {
			return "", stacktrace.Wrap(err)
		}
		if _, err := zw.Write(data); err != nil {
			return "", stacktrace.Wrap(err)
		}
		if err := zw.Close(); err != nil {
			return "", stacktrace.Wrap(err)
		}
		data = buf.Bytes()
	}

	return base64.StdEncoding.EncodeToString(data), nil
}

// Decode reverses Encode. Compressed values are recognised by the gzip magic number.
func Decode(value string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, errclass.WrapAs(stacktrace.Wrap(err), errclass.Persistent)
	}
	if len(data) < 2 || data[0] != 0x1f || data[1] != 0x8b {
		return data, nil
	}

	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, errclass.WrapAs(stacktrace.Wrap(err), errclass.Persistent)
	}
	defer zr.Close()

	var out bytes.Buffer
	if _, err := out.ReadFrom(zr); err != nil {
		return nil, errclass.WrapAs(stacktrace.Wrap(err), errclass.Persistent)
	}
	return out.Bytes(), nil
}
