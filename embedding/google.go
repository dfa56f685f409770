package embedding

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	gojson "github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/medivault/recall/internal/math32"
)

const (
	// DefaultGoogleModel is the embedding model used unless overridden.
	DefaultGoogleModel = "text-embedding-004"

	// DefaultGoogleBaseURL is the Generative Language API endpoint.
	DefaultGoogleBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// googleDimension is the native vector width of text-embedding-004.
	googleDimension = 768

	maxErrorBodyBytes = 1 << 20
)

// GoogleOptions configures the Google embedding client.
type GoogleOptions struct {
	// Model is the embedding model name, without the "models/" prefix.
	Model string

	// BaseURL is the API root. Override it to point at a test server.
	BaseURL string

	// HTTPClient performs the requests.
	HTTPClient *http.Client

	// Dimension is the expected vector width. Responses with a different
	// width are rejected.
	Dimension int

	// TaskType hints the API how the vectors will be used.
	TaskType string

	// BatchSize is the number of texts sent per batchEmbedContents call.
	BatchSize int

	// MaxConcurrency bounds how many batch requests run in parallel.
	MaxConcurrency int

	// RequestsPerSecond throttles outgoing API calls.
	RequestsPerSecond rate.Limit

	// Burst is the rate limiter burst size.
	Burst int
}

// DefaultGoogleOptions are the options used by NewGoogle unless overridden.
var DefaultGoogleOptions = GoogleOptions{
	Model:             DefaultGoogleModel,
	BaseURL:           DefaultGoogleBaseURL,
	Dimension:         googleDimension,
	TaskType:          "RETRIEVAL_DOCUMENT",
	BatchSize:         10,
	MaxConcurrency:    4,
	RequestsPerSecond: 10,
	Burst:             10,
}

// Google embeds text via the Generative Language REST API.
type Google struct {
	apiKey    string
	model     string
	baseURL   string
	client    *http.Client
	limiter   *rate.Limiter
	dimension int
	taskType  string
	batchSize int
	maxConc   int
}

// NewGoogle creates a Google embedding client.
func NewGoogle(apiKey string, optFns ...func(o *GoogleOptions)) (*Google, error) {
	opts := DefaultGoogleOptions

	for _, fn := range optFns {
		fn(&opts)
	}

	if apiKey == "" {
		return nil, fmt.Errorf("embedding: missing Google API key")
	}

	if opts.Model == "" {
		opts.Model = DefaultGoogleModel
	}

	if opts.Dimension <= 0 {
		return nil, fmt.Errorf("embedding: dimension must be positive, got %d", opts.Dimension)
	}

	if opts.BatchSize <= 0 {
		return nil, fmt.Errorf("embedding: batch size must be positive, got %d", opts.BatchSize)
	}

	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 1
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	return &Google{
		apiKey:    apiKey,
		model:     opts.Model,
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		client:    client,
		limiter:   rate.NewLimiter(opts.RequestsPerSecond, opts.Burst),
		dimension: opts.Dimension,
		taskType:  opts.TaskType,
		batchSize: opts.BatchSize,
		maxConc:   opts.MaxConcurrency,
	}, nil
}

// Dimension returns the expected vector width.
func (g *Google) Dimension() int {
	return g.dimension
}

type googleContent struct {
	Parts []googlePart `json:"parts"`
}

type googlePart struct {
	Text string `json:"text"`
}

type googleEmbedRequest struct {
	Model    string        `json:"model"`
	Content  googleContent `json:"content"`
	TaskType string        `json:"taskType,omitempty"`
}

type googleEmbedding struct {
	Values []float32 `json:"values"`
}

// Embed converts a single text via the embedContent endpoint.
func (g *Google) Embed(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var result struct {
		Embedding googleEmbedding `json:"embedding"`
	}
	if err := g.post(ctx, ":embedContent", g.embedRequest(text), &result); err != nil {
		return nil, err
	}

	if err := g.checkDimension(result.Embedding.Values); err != nil {
		return nil, err
	}

	return result.Embedding.Values, nil
}

// EmbedBatch converts many texts via batchEmbedContents, splitting the input
// into API-sized chunks that run concurrently.
func (g *Google) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	trimmed := make([]string, len(texts))
	for i, text := range texts {
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, fmt.Errorf("embedding: text %d: %w", i, ErrEmptyText)
		}
		trimmed[i] = text
	}

	out := make([][]float32, len(trimmed))

	gr, gctx := errgroup.WithContext(ctx)
	gr.SetLimit(g.maxConc)

	for start := 0; start < len(trimmed); start += g.batchSize {
		end := min(start+g.batchSize, len(trimmed))
		chunk := trimmed[start:end]
		dst := out[start:end]

		gr.Go(func() error {
			if err := g.limiter.Wait(gctx); err != nil {
				return err
			}
			return g.embedChunk(gctx, chunk, dst)
		})
	}

	if err := gr.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}

func (g *Google) embedChunk(ctx context.Context, texts []string, dst [][]float32) error {
	requests := make([]googleEmbedRequest, len(texts))
	for i, text := range texts {
		requests[i] = g.embedRequest(text)
	}

	var result struct {
		Embeddings []googleEmbedding `json:"embeddings"`
	}
	err := g.post(ctx, ":batchEmbedContents", struct {
		Requests []googleEmbedRequest `json:"requests"`
	}{Requests: requests}, &result)
	if err != nil {
		return err
	}

	if len(result.Embeddings) != len(texts) {
		return fmt.Errorf("embedding: got %d embeddings for %d texts", len(result.Embeddings), len(texts))
	}

	for i, emb := range result.Embeddings {
		if err := g.checkDimension(emb.Values); err != nil {
			return err
		}
		dst[i] = emb.Values
	}

	return nil
}

func (g *Google) embedRequest(text string) googleEmbedRequest {
	return googleEmbedRequest{
		Model:    "models/" + g.model,
		Content:  googleContent{Parts: []googlePart{{Text: text}}},
		TaskType: g.taskType,
	}
}

func (g *Google) post(ctx context.Context, method string, in, out any) error {
	body, err := gojson.Marshal(in)
	if err != nil {
		return err
	}

	url := g.baseURL + "/models/" + g.model + method

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return fmt.Errorf("embedding: %s: HTTP %d: %s", method, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if err := gojson.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("embedding: decode %s response: %w", method, err)
	}

	return nil
}

func (g *Google) checkDimension(values []float32) error {
	if len(values) != g.dimension {
		return fmt.Errorf("embedding: model returned %d-dimensional vector, want %d", len(values), g.dimension)
	}
	if math32.Norm(values) == 0 {
		return fmt.Errorf("embedding: model returned zero vector")
	}
	return nil
}
