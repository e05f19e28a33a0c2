package askdoc

import "go.uber.org/zap"

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	dataDir   string
	indexName string

	apiKey          string
	baseURL         string
	embeddingModel  string
	dimensions      int
	completionModel string
	temperature     float32

	embedder  Embedder
	completer Completer

	chunkSize    int
	chunkOverlap int
	topK         int

	logger *zap.Logger
}

// WithDataDir sets the directory holding the index artifact and the
// document registry. Default: "./vector_store".
func WithDataDir(dir string) Option {
	return optionFunc(func(c *clientConfig) {
		c.dataDir = dir
	})
}

// WithIndexName sets the index artifact filename. Default: "documents.idx".
func WithIndexName(name string) Option {
	return optionFunc(func(c *clientConfig) {
		c.indexName = name
	})
}

// WithOpenAI configures the built-in OpenAI providers for both embedding
// and completion. Required unless WithEmbedder and WithCompleter supply
// custom providers.
func WithOpenAI(apiKey string) Option {
	return optionFunc(func(c *clientConfig) {
		c.apiKey = apiKey
	})
}

// WithBaseURL points the built-in providers at an OpenAI-compatible
// endpoint (Azure, a local gateway, a proxy).
func WithBaseURL(url string) Option {
	return optionFunc(func(c *clientConfig) {
		c.baseURL = url
	})
}

// WithEmbeddingModel sets the embedding model. Default: text-embedding-3-small.
func WithEmbeddingModel(model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.embeddingModel = model
	})
}

// WithDimensions requests reduced-dimension embeddings from models that
// support it. Zero keeps the model's native dimension.
func WithDimensions(dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.dimensions = dim
	})
}

// WithCompletionModel sets the chat completion model. Default: gpt-4o-mini.
func WithCompletionModel(model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.completionModel = model
	})
}

// WithTemperature sets the completion sampling temperature. Default: 0.7.
func WithTemperature(t float32) Option {
	return optionFunc(func(c *clientConfig) {
		c.temperature = t
	})
}

// WithEmbedder sets a custom embedding provider, replacing the built-in
// OpenAI one.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithCompleter sets a custom completion provider, replacing the built-in
// OpenAI one.
func WithCompleter(p Completer) Option {
	return optionFunc(func(c *clientConfig) {
		c.completer = p
	})
}

// WithChunking overrides the sliding-window parameters.
// Defaults: size 2000, overlap 200.
func WithChunking(size, overlap int) Option {
	return optionFunc(func(c *clientConfig) {
		c.chunkSize = size
		c.chunkOverlap = overlap
	})
}

// WithTopK sets the number of chunks retrieved per question. Default: 4.
func WithTopK(k int) Option {
	return optionFunc(func(c *clientConfig) {
		c.topK = k
	})
}

// WithLogger enables structured logging for client operations.
// Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}
