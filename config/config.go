package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Upload   UploadConfig   `yaml:"upload"`
	Storage  StorageConfig  `yaml:"storage"`
	Database DatabaseConfig `yaml:"database"`
	LLM      LLMConfig      `yaml:"llm"`
	Chat     ChatConfig     `yaml:"chat"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Port int    `yaml:"port"`
	Mode string `yaml:"mode"` // debug, test, release
}

type UploadConfig struct {
	MaxFileSizeMB int    `yaml:"max_file_size_mb"`
	Dir           string `yaml:"dir"`
}

type StorageConfig struct {
	Backend string      `yaml:"backend"` // local, minio
	Minio   MinioConfig `yaml:"minio"`
}

type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type LLMConfig struct {
	APIKey            string `yaml:"api_key"`
	BaseURL           string `yaml:"base_url"`
	Model             string `yaml:"model"`
	AnalysisMaxTokens int64  `yaml:"analysis_max_tokens"`
	ChatMaxTokens     int64  `yaml:"chat_max_tokens"`
}

type ChatConfig struct {
	MaxMessageLength int `yaml:"max_message_length"`
	HistoryLimit     int `yaml:"history_limit"`
}

type LogConfig struct {
	Level  string `yaml:"level"` // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// Default returns the configuration used when the file omits a value.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080, Mode: "release"},
		Upload: UploadConfig{
			MaxFileSizeMB: 10,
			Dir:           "./uploads",
		},
		Storage:  StorageConfig{Backend: "local"},
		Database: DatabaseConfig{Path: "./contracts.db"},
		LLM: LLMConfig{
			Model:             "gpt-4.1",
			AnalysisMaxTokens: 4096,
			ChatMaxTokens:     1024,
		},
		Chat: ChatConfig{
			MaxMessageLength: 1000,
			HistoryLimit:     50,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads a yaml config file over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	// Credentials can stay out of the file
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = key
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	d := Default()
	if c.Server.Port == 0 {
		c.Server.Port = d.Server.Port
	}
	if c.Upload.MaxFileSizeMB == 0 {
		c.Upload.MaxFileSizeMB = d.Upload.MaxFileSizeMB
	}
	if c.Upload.Dir == "" {
		c.Upload.Dir = d.Upload.Dir
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = d.Storage.Backend
	}
	if c.Database.Path == "" {
		c.Database.Path = d.Database.Path
	}
	if c.LLM.Model == "" {
		c.LLM.Model = d.LLM.Model
	}
	if c.LLM.AnalysisMaxTokens == 0 {
		c.LLM.AnalysisMaxTokens = d.LLM.AnalysisMaxTokens
	}
	if c.LLM.ChatMaxTokens == 0 {
		c.LLM.ChatMaxTokens = d.LLM.ChatMaxTokens
	}
	if c.Chat.MaxMessageLength == 0 {
		c.Chat.MaxMessageLength = d.Chat.MaxMessageLength
	}
	if c.Chat.HistoryLimit == 0 {
		c.Chat.HistoryLimit = d.Chat.HistoryLimit
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
}

// MaxFileSizeBytes returns the upload limit in bytes.
func (c *Config) MaxFileSizeBytes() int64 {
	return int64(c.Upload.MaxFileSizeMB) * 1024 * 1024
}
