package domain

// Defaults for indexing and retrieval settings.
const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 50
	DefaultBatchSize    = 8
	DefaultEmbedBatch   = 32
	DefaultMaxFileBytes = 50 << 20 // 50MB
	DefaultTopK         = 5
)

// EmbeddingSettings selects and configures the embedding provider.
type EmbeddingSettings struct {
	// Provider is one of "ollama" or "openai".
	Provider string `toml:"provider"`

	// Model is the embedding model name.
	Model string `toml:"model"`

	// BaseURL overrides the provider endpoint.
	BaseURL string `toml:"base_url,omitempty"`

	// APIKey authenticates hosted providers.
	APIKey string `toml:"api_key,omitempty"`

	// Dimensions is the embedding vector size. Fixed for the lifetime
	// of one vector collection.
	Dimensions int `toml:"dimensions"`

	// BatchSize caps how many texts one provider request carries.
	BatchSize int `toml:"batch_size,omitempty"`
}

// IsConfigured reports whether the settings name a usable provider.
func (s *EmbeddingSettings) IsConfigured() bool {
	return s != nil && s.Provider != ""
}

// LLMSettings selects and configures the answer-generation provider.
type LLMSettings struct {
	// Provider is "auto", "ollama", "claude", or "openai". With
	// "auto" the first available provider in that order is used,
	// decided per call.
	Provider string `toml:"provider"`

	// Model is the model name for the selected provider.
	Model string `toml:"model,omitempty"`

	// BaseURL overrides the Ollama endpoint.
	BaseURL string `toml:"base_url,omitempty"`

	// ClaudeAPIKey and OpenAIAPIKey authenticate the hosted providers.
	ClaudeAPIKey string `toml:"claude_api_key,omitempty"`
	OpenAIAPIKey string `toml:"openai_api_key,omitempty"`
}

// IsConfigured reports whether the settings name a usable provider.
func (s *LLMSettings) IsConfigured() bool {
	return s != nil && s.Provider != ""
}

// Settings is the full application configuration.
type Settings struct {
	// ScanDir is the root directory the scanner enumerates.
	ScanDir string `toml:"scan_dir"`

	// Recursive controls whether the scanner descends into subfolders.
	Recursive bool `toml:"recursive"`

	// ChunkSize is the target chunk size in characters.
	ChunkSize int `toml:"chunk_size"`

	// ChunkOverlap is the overlap between adjacent oversized-split
	// chunks, in characters.
	ChunkOverlap int `toml:"chunk_overlap"`

	// BatchSize is how many pending documents the job engine pulls
	// per batch. Smaller batches trade throughput for lower peak
	// memory.
	BatchSize int `toml:"batch_size"`

	// MaxFileBytes is the per-file size ceiling. Larger files are
	// marked failed without being read.
	MaxFileBytes int64 `toml:"max_file_bytes"`

	// MemoryCeilingBytes pauses a run when heap usage crosses it.
	// Zero disables the check.
	MemoryCeilingBytes uint64 `toml:"memory_ceiling_bytes,omitempty"`

	// TopK is the default number of retrieval results.
	TopK int `toml:"top_k"`

	// ScoreThreshold is the default high-confidence score cut-off.
	ScoreThreshold float64 `toml:"score_threshold"`

	Embedding EmbeddingSettings `toml:"embedding"`
	LLM       LLMSettings       `toml:"llm"`
}

// DefaultSettings returns settings with all defaults applied.
func DefaultSettings() Settings {
	return Settings{
		ScanDir:      "./documents",
		Recursive:    true,
		ChunkSize:    DefaultChunkSize,
		ChunkOverlap: DefaultChunkOverlap,
		BatchSize:    DefaultBatchSize,
		MaxFileBytes: DefaultMaxFileBytes,
		TopK:         DefaultTopK,
		Embedding: EmbeddingSettings{
			Provider:   "ollama",
			Model:      "nomic-embed-text",
			Dimensions: 768,
			BatchSize:  DefaultEmbedBatch,
		},
		LLM: LLMSettings{
			Provider: "auto",
			Model:    "llama3",
		},
	}
}

// Normalise fills zero values with defaults.
func (s *Settings) Normalise() {
	def := DefaultSettings()
	if s.ScanDir == "" {
		s.ScanDir = def.ScanDir
	}
	if s.ChunkSize <= 0 {
		s.ChunkSize = def.ChunkSize
	}
	if s.ChunkOverlap < 0 {
		s.ChunkOverlap = def.ChunkOverlap
	}
	if s.BatchSize <= 0 {
		s.BatchSize = def.BatchSize
	}
	if s.MaxFileBytes <= 0 {
		s.MaxFileBytes = def.MaxFileBytes
	}
	if s.TopK <= 0 {
		s.TopK = def.TopK
	}
	if s.Embedding.BatchSize <= 0 {
		s.Embedding.BatchSize = DefaultEmbedBatch
	}
}
