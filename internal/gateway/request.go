// Package gateway - request.go decodes the transports into orchestrator requests.
//
// DESIGN: Decoding is lenient. A malformed body or history never fails the
// request: it decodes to an empty question (answered with the standard
// prompt) or to no history.
//   - JSON:      message | q | query, model, version, style, chat_id, history
//   - multipart: the same fields as form values, history as a JSON string,
//     attachments under files[] (or files)
//   - query:     q, model, version, style, chat_id, history (JSON string)
package gateway

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/gaia-chat/gaia-gateway/internal/chat"
	"github.com/gaia-chat/gaia-gateway/internal/config"
	"github.com/gaia-chat/gaia-gateway/internal/ingest"
	"github.com/gaia-chat/gaia-gateway/internal/orchestrator"
)

const (
	// userHeader carries the caller identity used for persistence.
	userHeader = "X-User-Id"

	maxJSONBody = 4 << 20
)

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "multipart/form-data")
}

// decodeJSON reads an ask request from a JSON document.
func decodeJSON(body []byte) orchestrator.Request {
	if !gjson.ValidBytes(body) {
		return orchestrator.Request{}
	}
	doc := gjson.ParseBytes(body)
	question := ""
	for _, k := range []string{"message", "q", "query"} {
		if v := strings.TrimSpace(doc.Get(k).String()); v != "" {
			question = v
			break
		}
	}
	return orchestrator.Request{
		Question: question,
		ModelKey: modelKey(doc.Get("model").String()),
		Version:  strings.TrimSpace(doc.Get("version").String()),
		Style:    strings.TrimSpace(doc.Get("style").String()),
		ChatID:   strings.TrimSpace(doc.Get("chat_id").String()),
		History:  decodeHistory(doc.Get("history")),
	}
}

// decodeQuery reads an ask request from URL parameters.
func decodeQuery(q url.Values) orchestrator.Request {
	return orchestrator.Request{
		Question: strings.TrimSpace(q.Get("q")),
		ModelKey: modelKey(q.Get("model")),
		Version:  strings.TrimSpace(q.Get("version")),
		Style:    strings.TrimSpace(q.Get("style")),
		ChatID:   strings.TrimSpace(q.Get("chat_id")),
		History:  historyFromString(q.Get("history")),
	}
}

// decodeMultipart reads form fields and attachments.
func decodeMultipart(r *http.Request) (orchestrator.Request, error) {
	if err := r.ParseMultipartForm(config.MaxMultipartMemory); err != nil {
		return orchestrator.Request{}, fmt.Errorf("parse multipart form: %w", err)
	}
	form := r.MultipartForm
	value := func(k string) string {
		if v := form.Value[k]; len(v) > 0 {
			return strings.TrimSpace(v[0])
		}
		return ""
	}

	req := orchestrator.Request{
		Question: value("message"),
		ModelKey: modelKey(value("model")),
		Version:  value("version"),
		Style:    value("style"),
		ChatID:   value("chat_id"),
		History:  historyFromString(value("history")),
	}

	headers := append(form.File["files[]"], form.File["files"]...)
	for _, fh := range headers {
		f, err := readUpload(fh)
		if err != nil {
			return orchestrator.Request{}, err
		}
		req.Files = append(req.Files, f)
	}
	return req, nil
}

func readUpload(fh *multipart.FileHeader) (ingest.UploadedFile, error) {
	src, err := fh.Open()
	if err != nil {
		return ingest.UploadedFile{}, fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return ingest.UploadedFile{}, fmt.Errorf("read upload %s: %w", fh.Filename, err)
	}
	return ingest.Wrap(fh.Filename, data, fh.Header.Get("Content-Type")), nil
}

func historyFromString(raw string) []chat.RawTurn {
	raw = strings.TrimSpace(raw)
	if raw == "" || !gjson.Valid(raw) {
		return nil
	}
	return decodeHistory(gjson.Parse(raw))
}

// decodeHistory accepts an array of {role, content} objects, or a string
// holding one. Entries that are not objects are dropped.
func decodeHistory(v gjson.Result) []chat.RawTurn {
	if v.Type == gjson.String {
		return historyFromString(v.Str)
	}
	if !v.IsArray() {
		return nil
	}
	var out []chat.RawTurn
	v.ForEach(func(_, item gjson.Result) bool {
		if item.IsObject() {
			out = append(out, chat.RawTurn{
				Role:    item.Get("role").String(),
				Content: item.Get("content").String(),
			})
		}
		return true
	})
	return out
}

func modelKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func userID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(userHeader))
}
