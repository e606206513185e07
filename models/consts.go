package models

const (
	DefaultSTTModel   = "whisper-1"
	DefaultChatModel  = "gpt-3.5-turbo"
	DefaultTTSModel   = "tts-1"
	DefaultVoice      = "onyx"
	DefaultLanguage   = "es"
	DefaultMaxTokens  = 300
	DefaultSampleRate = 16000
	// speech endpoint rejects longer input
	MaxSpeechInput = 4096
)
