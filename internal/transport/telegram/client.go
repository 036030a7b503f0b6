package telegram

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"

	"github.com/alonePlayerr1/MAI-Bot/internal/platform/errors"
)

// DefaultAPIBase is the public Bot API endpoint.
const DefaultAPIBase = "https://api.telegram.org"

// Chat actions shown while the bot works.
const (
	ActionTyping         = "typing"
	ActionUploadDocument = "upload_document"
)

// Sender is the outbound surface consumed by the bot service.
type Sender interface {
	SendText(ctx context.Context, chatID, text string) error
	SendDocument(ctx context.Context, chatID, filePath, caption string) error
	SendChatAction(ctx context.Context, chatID, action string) error
}

// Client talks to the Bot API over HTTP.
type Client struct {
	httpClient *http.Client
	apiBase    string
	token      string
}

// ClientOption tweaks client construction.
type ClientOption func(*Client)

// WithHTTPClient replaces the HTTP client, used by tests.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) { cl.httpClient = c }
}

// WithAPIBase points the client at a different Bot API host.
func WithAPIBase(base string) ClientOption {
	return func(cl *Client) { cl.apiBase = base }
}

// NewClient builds a Bot API client.
func NewClient(token string, opts ...ClientOption) (*Client, error) {
	if token == "" {
		return nil, errors.New(errors.KindConfig, "telegram.client", "bot token required")
	}
	c := &Client{
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		apiBase:    DefaultAPIBase,
		token:      token,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.apiBase, c.token, method)
}

func (c *Client) call(ctx context.Context, method string, payload any, out any) error {
	body, err := sonic.Marshal(payload)
	if err != nil {
		return errors.Wrap(errors.KindTransport, "telegram."+method, "failed to encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(method), bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(errors.KindTransport, "telegram."+method, "failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(errors.KindTransport, "telegram."+method, "request failed", err)
	}
	defer resp.Body.Close()

	return decodeAPIResponse(resp.Body, method, out)
}

func decodeAPIResponse(r io.Reader, method string, out any) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return errors.Wrap(errors.KindTransport, "telegram."+method, "failed to read response", err)
	}

	var envelope apiResponse
	if err := sonic.Unmarshal(raw, &envelope); err != nil {
		return errors.Wrap(errors.KindTransport, "telegram."+method, "failed to decode response", err)
	}
	if !envelope.OK {
		return errors.New(errors.KindTransport, "telegram."+method,
			fmt.Sprintf("api error: %s", envelope.Description))
	}
	if out != nil && len(envelope.Result) > 0 {
		if err := sonic.Unmarshal(envelope.Result, out); err != nil {
			return errors.Wrap(errors.KindTransport, "telegram."+method, "failed to decode result", err)
		}
	}
	return nil
}

// SendText sends a plain text message.
func (c *Client) SendText(ctx context.Context, chatID, text string) error {
	return c.call(ctx, "sendMessage", map[string]any{
		"chat_id": chatID,
		"text":    text,
	}, nil)
}

// SendChatAction shows a typing/upload indicator in the chat.
func (c *Client) SendChatAction(ctx context.Context, chatID, action string) error {
	return c.call(ctx, "sendChatAction", map[string]any{
		"chat_id": chatID,
		"action":  action,
	}, nil)
}

// SendDocument uploads a local file as a document with a caption.
func (c *Client) SendDocument(ctx context.Context, chatID, filePath, caption string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return errors.Wrap(errors.KindTransport, "telegram.sendDocument", "failed to open document", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("chat_id", chatID); err != nil {
		return errors.Wrap(errors.KindTransport, "telegram.sendDocument", "failed to write field", err)
	}
	if caption != "" {
		if err := writer.WriteField("caption", caption); err != nil {
			return errors.Wrap(errors.KindTransport, "telegram.sendDocument", "failed to write field", err)
		}
	}
	part, err := writer.CreateFormFile("document", filepath.Base(filePath))
	if err != nil {
		return errors.Wrap(errors.KindTransport, "telegram.sendDocument", "failed to create form file", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return errors.Wrap(errors.KindTransport, "telegram.sendDocument", "failed to copy document", err)
	}
	if err := writer.Close(); err != nil {
		return errors.Wrap(errors.KindTransport, "telegram.sendDocument", "failed to finalize form", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL("sendDocument"), &body)
	if err != nil {
		return errors.Wrap(errors.KindTransport, "telegram.sendDocument", "failed to build request", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(errors.KindTransport, "telegram.sendDocument", "request failed", err)
	}
	defer resp.Body.Close()

	return decodeAPIResponse(resp.Body, "sendDocument", nil)
}

// ReadDocument downloads an uploaded file's content by file id.
func (c *Client) ReadDocument(ctx context.Context, fileID string) (string, error) {
	var file File
	if err := c.call(ctx, "getFile", map[string]any{"file_id": fileID}, &file); err != nil {
		return "", err
	}
	if file.FilePath == "" {
		return "", errors.New(errors.KindTransport, "telegram.getFile", "file path missing in response")
	}

	url := fmt.Sprintf("%s/file/bot%s/%s", c.apiBase, c.token, file.FilePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", errors.Wrap(errors.KindTransport, "telegram.download", "failed to build request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(errors.KindTransport, "telegram.download", "download failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.New(errors.KindTransport, "telegram.download",
			fmt.Sprintf("unexpected download status: %d", resp.StatusCode))
	}
	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(errors.KindTransport, "telegram.download", "failed to read content", err)
	}
	return string(content), nil
}
