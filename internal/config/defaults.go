package config

// Default returns a fresh Config populated with the built-in defaults.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults fills in defaults for any zero-valued settings.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.RequestTimeoutSecs == 0 {
		cfg.Server.RequestTimeoutSecs = 60
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "google"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-004"
	}
	if cfg.Embedding.Dimension == 0 {
		cfg.Embedding.Dimension = 768
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 10
	}
	if cfg.Embedding.RequestsPerSecond == 0 {
		cfg.Embedding.RequestsPerSecond = 10
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 4096
	}
	if cfg.Index.Dir == "" {
		cfg.Index.Dir = "./indices"
	}
	if cfg.Index.Compression == "" {
		cfg.Index.Compression = "zstd"
	}
	if cfg.Index.Codec == "" {
		cfg.Index.Codec = "go-json"
	}
	if cfg.Index.OverfetchFactor == 0 {
		cfg.Index.OverfetchFactor = 3
	}
	if cfg.Watch.DebounceMillis == 0 {
		cfg.Watch.DebounceMillis = 2000
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}
