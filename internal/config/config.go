// Package config loads service configuration. Precedence is environment
// variable, then the optional YAML file named by CONFIG_FILE, then the
// built-in default. YAML keys are the lower-cased environment names, so
// "min_quality_chars: 150" and MIN_QUALITY_CHARS=150 set the same field.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Server
	Port              string
	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	MaxJSONBodyBytes  int64

	// Secrets
	InternalSharedSecret string
	MistralAPIKey        string
	OpenRouterAPIKey     string

	// Limits
	MaxFileBytes       int64
	ExtractTimeout     time.Duration
	DownloadTimeout    time.Duration
	MaxProcessBytes    int64
	MaxProcessDuration time.Duration

	// Concurrency and rate limiting
	MaxConcurrentRequests int64
	MaxOCRConcurrent      int64
	RateLimitEvery        time.Duration
	RateLimitBurst        int

	// Quality gate
	MinQualityChars int
	MinOCRTextChars int

	// Document AI
	DocAIProjectID   string
	DocAILocation    string
	DocAIProcessorID string

	// Vision OCR (Mistral)
	VisionModel   string
	VisionTimeout time.Duration

	// LLM OCR (OpenRouter)
	LLMModel string

	// Drive OCR
	DriveCredentialsFile string

	// Object storage gateway
	StorageEndpoint string
	StorageToken    string

	// Status callback
	StatusEndpoint string
	StatusToken    string
}

func Load() Config {
	src := newSource(os.Getenv("CONFIG_FILE"))
	return Config{
		Port:              src.str("PORT", "8080"),
		ReadHeaderTimeout: src.dur("READ_HEADER_TIMEOUT", 10*time.Second),
		ReadTimeout:       src.dur("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:      src.dur("WRITE_TIMEOUT", 180*time.Second),
		IdleTimeout:       src.dur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    src.num("MAX_HEADER_BYTES", 1<<20),
		MaxJSONBodyBytes:  int64(src.num("MAX_JSON_BODY_BYTES", 2<<20)),

		InternalSharedSecret: src.str("INTERNAL_SHARED_SECRET", ""),
		MistralAPIKey:        src.str("MISTRAL_API_KEY", ""),
		OpenRouterAPIKey:     src.str("OPENROUTER_API_KEY", ""),

		MaxFileBytes:       int64(src.num("MAX_FILE_BYTES", 500<<20)),
		ExtractTimeout:     src.dur("EXTRACT_TIMEOUT", 300*time.Second),
		DownloadTimeout:    src.dur("DOWNLOAD_TIMEOUT", 25*time.Second),
		MaxProcessBytes:    int64(src.num("MAX_PROCESS_BYTES", 200<<20)),
		MaxProcessDuration: src.dur("MAX_PROCESS_DURATION", 120*time.Second),

		MaxConcurrentRequests: int64(src.num("MAX_CONCURRENT_REQUESTS", 15)),
		MaxOCRConcurrent:      int64(src.num("MAX_OCR_CONCURRENT", 3)),
		RateLimitEvery:        src.dur("RATE_LIMIT_EVERY", 600*time.Millisecond),
		RateLimitBurst:        src.num("RATE_LIMIT_BURST", 20),

		MinQualityChars: src.num("MIN_QUALITY_CHARS", 100),
		MinOCRTextChars: src.num("MIN_OCR_TEXT_CHARS", 50),

		DocAIProjectID:   src.str("DOCAI_PROJECT_ID", ""),
		DocAILocation:    src.str("DOCAI_LOCATION", "us"),
		DocAIProcessorID: src.str("DOCAI_PROCESSOR_ID", ""),

		VisionModel:   src.str("VISION_MODEL", "mistral-ocr-latest"),
		VisionTimeout: src.dur("VISION_TIMEOUT", 90*time.Second),

		LLMModel: src.str("LLM_MODEL", "google/gemma-3-27b-it"),

		DriveCredentialsFile: src.str("DRIVE_CREDENTIALS_FILE", ""),

		StorageEndpoint: src.str("STORAGE_ENDPOINT", ""),
		StorageToken:    src.str("STORAGE_TOKEN", ""),

		StatusEndpoint: src.str("STATUS_ENDPOINT", ""),
		StatusToken:    src.str("STATUS_TOKEN", ""),
	}
}

func (c Config) Validate() error {
	if len(strings.TrimSpace(c.InternalSharedSecret)) < 32 {
		return fmt.Errorf("INTERNAL_SHARED_SECRET must be at least 32 characters")
	}
	return nil
}

// source resolves one key against the environment and the file overlay.
type source struct {
	file map[string]string
}

func newSource(path string) source {
	s := source{file: map[string]string{}}
	if path == "" {
		return s
	}
	data, err := os.ReadFile(path)
	if err != nil {
		// A named-but-missing config file is a deployment mistake worth
		// failing loudly on, unlike the absence of CONFIG_FILE itself.
		panic(fmt.Sprintf("config: cannot read %s: %v", path, err))
	}
	raw := map[string]any{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		panic(fmt.Sprintf("config: cannot parse %s: %v", path, err))
	}
	for k, v := range raw {
		s.file[strings.ToUpper(k)] = fmt.Sprintf("%v", v)
	}
	return s
}

func (s source) lookup(key string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return strings.TrimSpace(s.file[key])
}

func (s source) str(key, fallback string) string {
	if v := s.lookup(key); v != "" {
		return v
	}
	return fallback
}

func (s source) num(key string, fallback int) int {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func (s source) dur(key string, fallback time.Duration) time.Duration {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
