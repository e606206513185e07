package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// remote api (openai compatible)
	APIURL         string `toml:"APIURL"`
	OpenAIToken    string `toml:"OpenAIToken"`
	RequestTimeout int    `toml:"RequestTimeout"` // seconds
	// STT
	STT_MODEL string `toml:"STT_MODEL"`
	STT_LANG  string `toml:"STT_LANG"`
	STT_SR    int    `toml:"STT_SR"`
	// chat
	ChatModel     string `toml:"ChatModel"`
	MaxTokens     int    `toml:"MaxTokens"`
	SysPrompt     string `toml:"SysPrompt"`
	ChatHistory   bool   `toml:"ChatHistory"` // send the whole log instead of the last message
	UserRole      string `toml:"UserRole"`
	AssistantRole string `toml:"AssistantRole"`
	// TTS
	TTS_ENABLED  bool    `toml:"TTS_ENABLED"`
	TTS_PROVIDER string  `toml:"TTS_PROVIDER"` // openai, google
	TTS_MODEL    string  `toml:"TTS_MODEL"`
	TTS_VOICE    string  `toml:"TTS_VOICE"`
	TTS_SPEED    float32 `toml:"TTS_SPEED"`
	TTS_LANGUAGE string  `toml:"TTS_LANGUAGE"`
	//
	LogFile  string `toml:"LogFile"`
	LogLevel string `toml:"LogLevel"`
	DBPATH   string `toml:"DBPATH"`
	// export
	ExportDir   string `toml:"ExportDir"`
	S3Endpoint  string `toml:"S3Endpoint"`
	S3AccessKey string `toml:"S3AccessKey"`
	S3SecretKey string `toml:"S3SecretKey"`
	S3Bucket    string `toml:"S3Bucket"`
	S3Region    string `toml:"S3Region"`
	S3Secure    bool   `toml:"S3Secure"`
	// api server
	ServerHost string `toml:"ServerHost"`
}

// envOverrides are read after the toml file; set values win.
type envOverrides struct {
	OpenAIToken string `envconfig:"OPENAI_API_KEY"`
	APIURL      string `envconfig:"VOXCHAT_API_URL"`
	LogLevel    string `envconfig:"VOXCHAT_LOG_LEVEL"`
	DBPATH      string `envconfig:"VOXCHAT_DB_PATH"`
	S3AccessKey string `envconfig:"VOXCHAT_S3_ACCESS_KEY"`
	S3SecretKey string `envconfig:"VOXCHAT_S3_SECRET_KEY"`
}

func LoadConfig(fn string) (*Config, error) {
	if fn == "" {
		fn = "config.toml"
	}
	config := &Config{}
	_, err := toml.DecodeFile(fn, &config)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	// .env is optional
	_ = godotenv.Load()
	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	// if any value is empty fill with default
	config.fillDefaults()
	return config, nil
}

func (c *Config) applyEnv() error {
	env := envOverrides{}
	if err := envconfig.Process("", &env); err != nil {
		return fmt.Errorf("failed to read env: %w", err)
	}
	if env.OpenAIToken != "" {
		c.OpenAIToken = env.OpenAIToken
	}
	if env.APIURL != "" {
		c.APIURL = env.APIURL
	}
	if env.LogLevel != "" {
		c.LogLevel = env.LogLevel
	}
	if env.DBPATH != "" {
		c.DBPATH = env.DBPATH
	}
	if env.S3AccessKey != "" {
		c.S3AccessKey = env.S3AccessKey
	}
	if env.S3SecretKey != "" {
		c.S3SecretKey = env.S3SecretKey
	}
	return nil
}

func (c *Config) fillDefaults() {
	if c.APIURL == "" {
		c.APIURL = "https://api.openai.com/v1"
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 90
	}
	if c.STT_MODEL == "" {
		c.STT_MODEL = "whisper-1"
	}
	if c.STT_LANG == "" {
		c.STT_LANG = "es"
	}
	if c.STT_SR <= 0 {
		c.STT_SR = 16000
	}
	if c.ChatModel == "" {
		c.ChatModel = "gpt-3.5-turbo"
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 300
	}
	if c.UserRole == "" {
		c.UserRole = "user"
	}
	if c.AssistantRole == "" {
		c.AssistantRole = "assistant"
	}
	if c.TTS_PROVIDER == "" {
		c.TTS_PROVIDER = "openai"
	}
	if c.TTS_MODEL == "" {
		c.TTS_MODEL = "tts-1"
	}
	if c.TTS_VOICE == "" {
		c.TTS_VOICE = "onyx"
	}
	if c.TTS_SPEED <= 0 {
		c.TTS_SPEED = 1.0
	}
	if c.TTS_LANGUAGE == "" {
		c.TTS_LANGUAGE = c.STT_LANG
	}
	if c.LogFile == "" {
		c.LogFile = "log.txt"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.DBPATH == "" {
		c.DBPATH = "voxchat.db"
	}
	if c.ExportDir == "" {
		c.ExportDir = "."
	}
	if c.ServerHost == "" {
		c.ServerHost = "localhost"
	}
}

func (c *Config) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// S3Enabled reports whether exported logs should also be uploaded.
func (c *Config) S3Enabled() bool {
	return c.S3Endpoint != "" && c.S3Bucket != ""
}
