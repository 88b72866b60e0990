package ocr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
)

// remoteEngine posts the image to an OCR HTTP service and reads the text out of its JSON reply.
// Accepted reply shapes: {"text": ...}, {"result": {"text": ...}} or {"pages": [{"text": ...}]},
// with an optional 0..1 or 0..100 "confidence" at the same level.
type remoteEngine struct {
	url    string
	lang   string
	client *http.Client
}

func (r *remoteEngine) Name() string { return BackendRemote }

func (r *remoteEngine) Recognize(ctx context.Context, path string) (recognition, error) {
	body, contentType, err := multipartFile(path, r.lang)
	if err != nil {
		return recognition{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, body)
	if err != nil {
		return recognition{}, err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return recognition{}, fmt.Errorf("remote ocr: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return recognition{}, fmt.Errorf("remote ocr: read body: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return recognition{Warnings: []string{truncate(string(raw), 512)}}, fmt.Errorf("remote ocr: status %d", resp.StatusCode)
	}
	if !gjson.ValidBytes(raw) {
		return recognition{}, fmt.Errorf("remote ocr: response is not JSON")
	}
	return parseRemoteResponse(raw)
}

func parseRemoteResponse(raw []byte) (recognition, error) {
	doc := gjson.ParseBytes(raw)
	var rec recognition
	switch {
	case doc.Get("text").Exists():
		rec.Text = doc.Get("text").String()
		rec.Confidence = scaleConfidence(doc.Get("confidence"))
	case doc.Get("result.text").Exists():
		rec.Text = doc.Get("result.text").String()
		rec.Confidence = scaleConfidence(doc.Get("result.confidence"))
	case doc.Get("pages").IsArray():
		var parts []string
		var sum float32
		var n int
		for _, p := range doc.Get("pages").Array() {
			parts = append(parts, p.Get("text").String())
			if c := p.Get("confidence"); c.Exists() {
				sum += scaleConfidence(c)
				n++
			}
		}
		rec.Text = strings.Join(parts, "\n\n")
		if n > 0 {
			rec.Confidence = sum / float32(n)
		}
	default:
		return recognition{}, fmt.Errorf("remote ocr: no text in response")
	}
	for _, w := range doc.Get("warnings").Array() {
		rec.Warnings = append(rec.Warnings, w.String())
	}
	return rec, nil
}

func scaleConfidence(v gjson.Result) float32 {
	if !v.Exists() {
		return 0
	}
	c := v.Float()
	if c > 1 {
		c /= 100
	}
	if c < 0 {
		c = 0
	}
	if c > 1 {
		c = 1
	}
	return float32(c)
}

func multipartFile(path, lang string) (io.Reader, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = f.Close() }()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", err
	}
	if lang != "" {
		_ = mw.WriteField("language", lang)
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}
