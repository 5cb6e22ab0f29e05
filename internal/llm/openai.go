package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"go.uber.org/zap"
)

const defaultBaseURL = "https://api.openai.com/v1"

// OpenAIClient talks to the OpenAI Files and Responses APIs over plain
// HTTP. The request context carries per-call deadlines; the client-level
// timeout is only a safety net.
type OpenAIClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
	log     *zap.Logger
}

func NewOpenAIClient(apiKey string, log *zap.Logger) *OpenAIClient {
	return &OpenAIClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 5 * time.Minute},
		log:     log,
	}
}

func (c *OpenAIClient) UploadFile(ctx context.Context, data []byte, filename, contentType string) (string, error) {
	if c.apiKey == "" {
		return "", errors.New("missing OPENAI_API_KEY")
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.WriteField("purpose", "vision"); err != nil {
		return "", err
	}
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/files", body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	raw, err := c.do(req)
	if err != nil {
		return "", err
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("decode file upload response: %w", err)
	}
	if result.ID == "" {
		return "", errors.New("file upload response missing id")
	}
	return result.ID, nil
}

func (c *OpenAIClient) DeleteFile(ctx context.Context, fileID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/files/"+fileID, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	_, err = c.do(req)
	return err
}

func (c *OpenAIClient) Infer(ctx context.Context, infReq InferenceRequest) (string, error) {
	if c.apiKey == "" {
		return "", errors.New("missing OPENAI_API_KEY")
	}

	content := []map[string]string{}
	if infReq.Text != "" {
		content = append(content, map[string]string{
			"type": "input_text",
			"text": infReq.Text,
		})
	}
	for _, fileID := range infReq.FileIDs {
		content = append(content, map[string]string{
			"type":    "input_image",
			"file_id": fileID,
		})
	}

	payload := map[string]interface{}{
		"model":        infReq.Model,
		"instructions": infReq.Instructions,
		"input": []map[string]interface{}{
			{"role": "user", "content": content},
		},
	}

	text := map[string]interface{}{}
	if infReq.Schema != nil {
		text["format"] = map[string]interface{}{
			"type":   "json_schema",
			"name":   infReq.SchemaName,
			"schema": infReq.Schema,
			"strict": true,
		}
	}
	if infReq.Verbosity != "" {
		text["verbosity"] = infReq.Verbosity
	}
	if len(text) > 0 {
		payload["text"] = text
	}
	if infReq.ReasoningEffort != "" {
		payload["reasoning"] = map[string]interface{}{
			"effort": infReq.ReasoningEffort,
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/responses", bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	raw, err := c.do(req)
	if err != nil {
		return "", err
	}

	return extractOutputText(raw)
}

func (c *OpenAIClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Warn("openai api error",
			zap.String("path", req.URL.Path),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", raw),
		)
		return nil, fmt.Errorf("openai api error: status %d", resp.StatusCode)
	}
	return raw, nil
}

// extractOutputText pulls the textual content out of a Responses API
// payload, preferring the aggregate output_text field.
func extractOutputText(raw []byte) (string, error) {
	var result struct {
		OutputText string `json:"output_text"`
		Output     []struct {
			Type    string `json:"type"`
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"output"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("decode responses payload: %w", err)
	}

	if result.OutputText != "" {
		return result.OutputText, nil
	}
	for _, item := range result.Output {
		if item.Type != "message" {
			continue
		}
		for _, part := range item.Content {
			if part.Type == "output_text" && part.Text != "" {
				return part.Text, nil
			}
		}
	}
	return "", errors.New("openai response returned empty output_text")
}
