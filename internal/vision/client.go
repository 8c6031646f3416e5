// Пакет vision — клиент внешнего сервиса описания изображений
// (Messages API). Формирует промпт по стилю тенанта, разбирает
// JSON-ответ модели и считает потреблённые токены.
package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"github.com/bigkaa/goportfolio/internal/domain/model"
)

// Версия протокола Messages API.
const apiVersion = "2023-06-01"

// Лимит токенов ответа модели.
const maxResponseTokens = 1024

// Максимальная сторона изображения для анализа: рекомендация
// Messages API, более крупные изображения модель всё равно уменьшает.
const maxAnalysisDimension = 1568

// Качество JPEG уменьшенного изображения для анализа.
const analysisJPEGQuality = 85

// Ошибки клиента.
var (
	// ErrNotConfigured — URL или ключ сервиса не заданы
	ErrNotConfigured = errors.New("сервис описания не сконфигурирован")
	// ErrMalformedResponse — ответ модели не разбирается как JSON
	ErrMalformedResponse = errors.New("ответ сервиса описания не содержит корректный JSON")
)

// Description — описательные метаданные, сгенерированные моделью.
type Description struct {
	Title       string   `json:"title"`
	Caption     string   `json:"caption"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Category    string   `json:"category"`
}

// Usage — потреблённые токены вызова.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Describer — интерфейс генерации описаний, облегчает тестирование
// пайплайна без сетевых вызовов.
type Describer interface {
	Describe(ctx context.Context, imageData []byte, mediaType string, style model.AIStyle) (*Description, *Usage, error)
	Model() string
}

// Client — HTTP-клиент Messages API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

// NewClient создаёт клиента сервиса описаний.
// Пустой baseURL или apiKey означает, что сервис отключён:
// Describe будет возвращать ErrNotConfigured.
func NewClient(baseURL, apiKey, model string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
	}
}

// Model возвращает имя используемой модели.
func (c *Client) Model() string {
	return c.model
}

// --- Структуры запроса и ответа Messages API ---

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *imageSource `json:"source,omitempty"`
}

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage Usage `json:"usage"`
}

// Describe отправляет изображение модели и возвращает описание.
// Таймаут задаётся клиентом; превышение возвращается ошибкой
// и обрабатывается вызывающим кодом как некритичный сбой.
func (c *Client) Describe(ctx context.Context, imageData []byte, mediaType string, style model.AIStyle) (*Description, *Usage, error) {
	if c.baseURL == "" || c.apiKey == "" {
		return nil, nil, ErrNotConfigured
	}

	imageData, mediaType = analysisImage(imageData, mediaType)

	reqBody := messagesRequest{
		Model:     c.model,
		MaxTokens: maxResponseTokens,
		Messages: []message{{
			Role: "user",
			Content: []contentBlock{
				{
					Type: "image",
					Source: &imageSource{
						Type:      "base64",
						MediaType: mediaType,
						Data:      base64.StdEncoding.EncodeToString(imageData),
					},
				},
				{Type: "text", Text: promptFor(style)},
			},
		}},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, nil, fmt.Errorf("ошибка сериализации запроса: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, nil, fmt.Errorf("ошибка создания запроса: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, nil, fmt.Errorf("ошибка вызова сервиса описания: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("сервис описания вернул статус %d", resp.StatusCode)
	}

	var parsed messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, nil, fmt.Errorf("ошибка чтения ответа: %w", err)
	}
	if len(parsed.Content) == 0 {
		return nil, nil, ErrMalformedResponse
	}

	desc, err := parseDescription(parsed.Content[0].Text)
	if err != nil {
		return nil, &parsed.Usage, err
	}

	return desc, &parsed.Usage, nil
}

// analysisImage готовит изображение к отправке модели: стороны свыше
// maxAnalysisDimension уменьшаются с перекодированием в JPEG, иначе
// оплачивается передача мегабайтов, которые модель всё равно отбросит.
// При любой ошибке декодирования возвращаются исходные байты.
func analysisImage(data []byte, mediaType string) ([]byte, string) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return data, mediaType
	}

	bounds := img.Bounds()
	if bounds.Dx() <= maxAnalysisDimension && bounds.Dy() <= maxAnalysisDimension {
		return data, mediaType
	}

	resized := imaging.Fit(img, maxAnalysisDimension, maxAnalysisDimension, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(analysisJPEGQuality)); err != nil {
		return data, mediaType
	}
	return buf.Bytes(), "image/jpeg"
}

// parseDescription разбирает текст ответа модели.
// Модель иногда оборачивает JSON в markdown-ограждение,
// поэтому ограждение снимается перед разбором.
func parseDescription(text string) (*Description, error) {
	text = stripJSONFence(strings.TrimSpace(text))

	// tags может прийти и массивом, и строкой через запятую
	var raw struct {
		Title       string          `json:"title"`
		Caption     string          `json:"caption"`
		Description string          `json:"description"`
		Tags        json.RawMessage `json:"tags"`
		Category    string          `json:"category"`
	}
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	desc := &Description{
		Title:       raw.Title,
		Caption:     raw.Caption,
		Description: raw.Description,
		Category:    raw.Category,
	}

	if len(raw.Tags) > 0 {
		var list []string
		if err := json.Unmarshal(raw.Tags, &list); err == nil {
			desc.Tags = list
		} else {
			var s string
			if err := json.Unmarshal(raw.Tags, &s); err == nil {
				for _, tag := range strings.Split(s, ",") {
					if tag = strings.TrimSpace(tag); tag != "" {
						desc.Tags = append(desc.Tags, tag)
					}
				}
			}
		}
	}

	return desc, nil
}

// stripJSONFence снимает markdown-ограждение ```json ... ``` или ``` ... ```.
func stripJSONFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}

	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	if i := strings.Index(text, "```"); i != -1 {
		text = text[:i]
	}
	return strings.TrimSpace(text)
}
