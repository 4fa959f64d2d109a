// Package config loads the agent configuration from a YAML file,
// environment variables, and (in development) a .env file. CLI flags
// are applied on top by the command layer.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Provider constants for backend selection.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Channel kind names accepted in the inputs/outputs lists.
const (
	ChannelStdin   = "stdin"
	ChannelStdout  = "stdout"
	ChannelWebhook = "webhook"
	ChannelMQTT    = "mqtt"
	ChannelRedis   = "redis"
)

// DefaultSystemMessage is used when neither the config file nor the CLI
// provides a system prompt.
const DefaultSystemMessage = "You are a helpful AI assistant with access to tools for retrieving weather information and performing calculations. " +
	"You can answer questions, provide information, and assist with various tasks. When asked about weather or calculations, " +
	"use the appropriate tools to provide accurate responses. Be concise, helpful, and friendly in your interactions."

type Config struct {
	Provider           string
	Model              string
	SystemMessage      string
	EnableTools        bool
	Inputs             []string
	Outputs            []string
	MaxHistoryMessages int
	MaxToolRounds      int
	MaxTokens          int
	Env                string
	Verbose            bool

	// APIKey and BaseURL are resolved from <PROVIDER>_API_KEY and
	// <PROVIDER>_BASE_URL environment variables, never from the file.
	AIAPIKey  string
	AIBaseURL string

	MQTT    MQTTConfig
	Webhook WebhookConfig
	Redis   RedisConfig
}

type MQTTConfig struct {
	Broker      string
	Port        int
	AgentName   string
	InputTopic  string // defaults to agent/<name>/input
	OutputTopic string // defaults to agent/<name>/output
}

type WebhookConfig struct {
	ListenAddr string // address for the inbound webhook server
	OutputURL  string // URL assistant messages are POSTed to; empty disables sends
}

type RedisConfig struct {
	URL           string
	InputChannel  string
	OutputChannel string
}

var validChannels = map[string]bool{
	ChannelStdin:   true,
	ChannelStdout:  true,
	ChannelWebhook: true,
	ChannelMQTT:    true,
	ChannelRedis:   true,
}

// Load reads configuration from path (or ./config.yaml when path is
// empty, missing file tolerated) and fills defaults mirroring the
// environment. In development a .env file is honored.
func Load(path string) (Config, error) {
	env := getEnv("CONVOPIPE_ENV", "development")
	if env == "development" {
		_ = godotenv.Load(".env")
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	cfg := Config{
		Provider:           strings.ToLower(v.GetString("provider")),
		Model:              v.GetString("model"),
		SystemMessage:      v.GetString("system_message"),
		EnableTools:        v.GetBool("enable_tools"),
		Inputs:             v.GetStringSlice("inputs"),
		Outputs:            v.GetStringSlice("outputs"),
		MaxHistoryMessages: v.GetInt("max_history_messages"),
		MaxToolRounds:      v.GetInt("max_tool_rounds"),
		MaxTokens:          v.GetInt("max_tokens"),
		Env:                env,
		MQTT: MQTTConfig{
			Broker:      v.GetString("mqtt.broker"),
			Port:        v.GetInt("mqtt.port"),
			AgentName:   v.GetString("mqtt.agent_name"),
			InputTopic:  v.GetString("mqtt.input_topic"),
			OutputTopic: v.GetString("mqtt.output_topic"),
		},
		Webhook: WebhookConfig{
			ListenAddr: v.GetString("webhook.listen_addr"),
			OutputURL:  v.GetString("webhook.output_url"),
		},
		Redis: RedisConfig{
			URL:           v.GetString("redis.url"),
			InputChannel:  v.GetString("redis.input_channel"),
			OutputChannel: v.GetString("redis.output_channel"),
		},
	}

	// An explicit empty string in the file means "use the default", not
	// "run without a system message".
	if cfg.SystemMessage == "" {
		cfg.SystemMessage = DefaultSystemMessage
	}

	if cfg.MQTT.InputTopic == "" {
		cfg.MQTT.InputTopic = fmt.Sprintf("agent/%s/input", cfg.MQTT.AgentName)
	}
	if cfg.MQTT.OutputTopic == "" {
		cfg.MQTT.OutputTopic = fmt.Sprintf("agent/%s/output", cfg.MQTT.AgentName)
	}

	prefix := strings.ToUpper(cfg.Provider)
	cfg.AIAPIKey = getEnv(prefix+"_API_KEY", "")
	cfg.AIBaseURL = getEnv(prefix+"_BASE_URL", "")

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("provider", ProviderOpenAI)
	v.SetDefault("model", "")
	v.SetDefault("system_message", DefaultSystemMessage)
	v.SetDefault("enable_tools", false)
	v.SetDefault("inputs", []string{ChannelMQTT, ChannelStdin})
	v.SetDefault("outputs", []string{ChannelMQTT, ChannelStdout})
	v.SetDefault("max_history_messages", 50)
	v.SetDefault("max_tool_rounds", 8)
	v.SetDefault("max_tokens", 0)
	v.SetDefault("mqtt.broker", "localhost")
	v.SetDefault("mqtt.port", 1883)
	v.SetDefault("mqtt.agent_name", "agent")
	v.SetDefault("webhook.listen_addr", ":8082")
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.input_channel", "agent:input")
	v.SetDefault("redis.output_channel", "agent:output")
}

// Validate rejects unknown providers and channel kinds at startup so a
// typo fails fast instead of silently dropping a channel.
func (c Config) Validate() error {
	if c.Provider != ProviderOpenAI && c.Provider != ProviderAnthropic {
		return fmt.Errorf("unsupported provider: %s", c.Provider)
	}
	for _, in := range c.Inputs {
		if in == ChannelStdout {
			return fmt.Errorf("stdout is not an input channel")
		}
		if !validChannels[in] {
			return fmt.Errorf("unknown input channel: %s", in)
		}
	}
	for _, out := range c.Outputs {
		if out == ChannelStdin {
			return fmt.Errorf("stdin is not an output channel")
		}
		if !validChannels[out] {
			return fmt.Errorf("unknown output channel: %s", out)
		}
	}
	if c.MaxHistoryMessages < 2 {
		return fmt.Errorf("max_history_messages must be at least 2, got %d", c.MaxHistoryMessages)
	}
	if c.MaxToolRounds < 1 {
		return fmt.Errorf("max_tool_rounds must be at least 1, got %d", c.MaxToolRounds)
	}
	return nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
