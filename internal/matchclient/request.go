package matchclient

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/tobin4900/ai-resume-matcher/internal/resume"
)

const (
	acceptType     = "application/json"
	acceptEncoding = "gzip"

	fieldResume         = "resume"
	fieldJobDescription = "job_description"

	defaultResumeName   = "resume"
	defaultErrorMessage = "failed to get response from server"
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// Request is a single match submission.
type Request struct {
	ResumeName     string
	Resume         io.Reader
	JobDescription string
}

// Response is the decoded reply of the matching service.
type Response struct {
	StatusCode int
	// Text is the analysis text: the result field, else the analysis field,
	// else the whole JSON body.
	Text string
	// Fields holds the decoded JSON object, nil for non-object bodies.
	Fields map[string]any
}

// StatusError is returned for non-2xx replies.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("match service returned %d: %s", e.StatusCode, e.Message)
}

type reply struct {
	Result   string `mapstructure:"result"`
	Analysis string `mapstructure:"analysis"`
	Error    string `mapstructure:"error"`
	Detail   string `mapstructure:"detail"`
}

func (c *Client) postMatch(ctx context.Context, req Request) (*Response, error) {
	data, err := io.ReadAll(req.Resume)
	if err != nil {
		return nil, fmt.Errorf("read resume: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrMissingInput
	}

	body, contentType, err := encodeForm(req.ResumeName, data, req.JobDescription)
	if err != nil {
		return nil, fmt.Errorf("encode form: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, err
	}

	httpReq = c.setHeaders(httpReq)
	httpReq.Header.Set("Content-Type", contentType)

	resp, err := c.request(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := readBody(resp)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.logger.Debug("got response from match service",
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(payload)),
	)

	var decoded any
	decodeErr := json.Unmarshal(payload, &decoded)
	fields, _ := decoded.(map[string]any)
	fields = nonNil(fields, decodeErr)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: errorMessage(fields)}
	}

	if decodeErr != nil {
		return nil, fmt.Errorf("decode response: %w", decodeErr)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Text:       analysisText(fields, payload),
		Fields:     fields,
	}, nil
}

func encodeForm(name string, data []byte, jobDescription string) (*bytes.Buffer, string, error) {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = defaultResumeName
	}

	var b bytes.Buffer
	w := multipart.NewWriter(&b)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, fieldResume, quoteEscaper.Replace(name)))
	header.Set("Content-Type", resume.DetectMIME(data))

	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}

	if err := w.WriteField(fieldJobDescription, jobDescription); err != nil {
		return nil, "", err
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}

	return &b, w.FormDataContentType(), nil
}

func (c *Client) request(req *http.Request) (*http.Response, error) {
	c.logger.Debug("make request", zap.String("url", req.URL.String()))
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}

	return resp, nil
}

func (c *Client) setHeaders(req *http.Request) *http.Request {
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", acceptType)
	req.Header.Set("Accept-Encoding", acceptEncoding)

	return req
}

func readBody(resp *http.Response) ([]byte, error) {
	var reader io.Reader = resp.Body
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gzipReader.Close()
		reader = gzipReader
	}

	return io.ReadAll(reader)
}

func decodeReply(fields map[string]any) reply {
	var r reply
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &r,
	})
	if err != nil {
		return r
	}

	// Fields of unexpected shape are left empty.
	_ = decoder.Decode(fields)

	return r
}

func analysisText(fields map[string]any, payload []byte) string {
	r := decodeReply(fields)
	if text := strings.TrimSpace(r.Result); text != "" {
		return r.Result
	}
	if text := strings.TrimSpace(r.Analysis); text != "" {
		return r.Analysis
	}
	return strings.TrimSpace(string(payload))
}

func errorMessage(fields map[string]any) string {
	r := decodeReply(fields)
	if msg := strings.TrimSpace(r.Error); msg != "" {
		return msg
	}
	if msg := strings.TrimSpace(r.Detail); msg != "" {
		return msg
	}
	return defaultErrorMessage
}

func nonNil(fields map[string]any, decodeErr error) map[string]any {
	if fields == nil && decodeErr == nil {
		return map[string]any{}
	}
	return fields
}
