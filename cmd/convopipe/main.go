package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/convopipe/convopipe/common/id"
	"github.com/convopipe/convopipe/common/llm"
	"github.com/convopipe/convopipe/common/logger"
	"github.com/convopipe/convopipe/core/config"
	"github.com/convopipe/convopipe/internal/channel"
	"github.com/convopipe/convopipe/internal/chat"
	"github.com/convopipe/convopipe/internal/engine"
	"github.com/convopipe/convopipe/internal/tool"
)

var version = "dev"

var (
	flagConfig          string
	flagProvider        string
	flagModel           string
	flagSystemMessage   string
	flagEnableTools     bool
	flagInputs          string
	flagOutputs         string
	flagMQTTBroker      string
	flagMQTTPort        int
	flagMQTTInputTopic  string
	flagMQTTOutputTopic string
	flagMaxHistory      int
	flagVerbose         bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "convopipe",
		Short:   "convopipe pipes one AI conversation across stdin, webhook, MQTT, and Redis channels",
		Version: version,
		RunE:    run,
		// Errors are logged in run with full context.
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.Flags()
	flags.StringVarP(&flagConfig, "config", "c", "", "path to YAML configuration file")
	flags.StringVarP(&flagProvider, "provider", "p", "", "provider to use (openai, anthropic)")
	flags.StringVarP(&flagModel, "model", "m", "", "model to use (e.g. gpt-4o, claude-sonnet-4-5)")
	flags.StringVarP(&flagSystemMessage, "system-message", "s", "", "system message to set the behavior of the assistant")
	flags.BoolVarP(&flagEnableTools, "enable-tools", "t", false, "enable tool usage")
	flags.StringVar(&flagInputs, "inputs", "", "comma-separated input channels (stdin, webhook, mqtt, redis)")
	flags.StringVar(&flagOutputs, "outputs", "", "comma-separated output channels (stdout, webhook, mqtt, redis)")
	flags.StringVar(&flagMQTTBroker, "mqtt-broker", "", "MQTT broker address")
	flags.IntVar(&flagMQTTPort, "mqtt-port", 0, "MQTT broker port")
	flags.StringVar(&flagMQTTInputTopic, "mqtt-input-topic", "", "MQTT input topic")
	flags.StringVar(&flagMQTTOutputTopic, "mqtt-output-topic", "", "MQTT output topic")
	flags.IntVar(&flagMaxHistory, "max-history-messages", 0, "maximum number of messages kept in history")
	flags.BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	cfg = applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger.Setup(cfg)
	fmt.Printf("%s\n", banner)

	slog.InfoContext(ctx, "convopipe starting",
		"env", cfg.Env,
		"provider", cfg.Provider,
		"model", cfg.Model,
		"inputs", strings.Join(cfg.Inputs, ","),
		"outputs", strings.Join(cfg.Outputs, ","),
		"tools_enabled", cfg.EnableTools)

	if err := id.Init(1); err != nil {
		return fmt.Errorf("init id generator: %w", err)
	}

	client, err := llm.New(llm.Config{
		Provider: cfg.Provider,
		APIKey:   cfg.AIAPIKey,
		BaseURL:  cfg.AIBaseURL,
		Model:    cfg.Model,
	})
	if err != nil {
		return fmt.Errorf("create llm client: %w", err)
	}

	var registry *tool.Registry
	if cfg.EnableTools {
		registry = tool.NewRegistry()
		for _, t := range []tool.Tool{tool.Weather(), tool.Calculator()} {
			if err := registry.Register(t); err != nil {
				return fmt.Errorf("register tool: %w", err)
			}
		}
	}

	var closers []io.Closer

	sinks, sinkClosers, err := buildSinks(ctx, cfg)
	closers = append(closers, sinkClosers...)
	if err != nil {
		closeAll(ctx, closers)
		return err
	}

	sources, sourceClosers, err := buildSources(ctx, cfg)
	closers = append(closers, sourceClosers...)
	if err != nil {
		closeAll(ctx, closers)
		return err
	}

	history := chat.NewHistory(cfg.MaxHistoryMessages)
	history.Seed(cfg.SystemMessage)

	dispatcher := channel.NewDispatcher(sinks...)
	mux := channel.NewMux(sources...)

	eng := engine.New(engine.Config{
		Client:        client,
		Out:           dispatcher,
		Tools:         registry,
		History:       history,
		MaxToolRounds: cfg.MaxToolRounds,
		MaxTokens:     cfg.MaxTokens,
	})

	runErr := eng.Run(ctx, mux.Run(ctx))

	// Shutdown: cancel the sources, let in-flight deliveries drain, then
	// close the channel clients.
	stop()
	slog.InfoContext(ctx, "shutting down")

	drained := make(chan struct{})
	go func() {
		dispatcher.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(10 * time.Second):
		slog.WarnContext(ctx, "shutdown timeout exceeded waiting for deliveries")
	}

	closeAll(ctx, closers)
	slog.InfoContext(ctx, "shutdown complete")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

// applyFlags overrides file configuration with values the user set
// explicitly on the command line.
func applyFlags(cmd *cobra.Command, cfg config.Config) config.Config {
	flags := cmd.Flags()
	if flags.Changed("provider") {
		cfg.Provider = strings.ToLower(flagProvider)
	}
	if flags.Changed("model") {
		cfg.Model = flagModel
	}
	if flags.Changed("system-message") {
		cfg.SystemMessage = flagSystemMessage
	}
	if flags.Changed("enable-tools") {
		cfg.EnableTools = flagEnableTools
	}
	if flags.Changed("inputs") {
		cfg.Inputs = splitList(flagInputs)
	}
	if flags.Changed("outputs") {
		cfg.Outputs = splitList(flagOutputs)
	}
	if flags.Changed("mqtt-broker") {
		cfg.MQTT.Broker = flagMQTTBroker
	}
	if flags.Changed("mqtt-port") {
		cfg.MQTT.Port = flagMQTTPort
	}
	if flags.Changed("mqtt-input-topic") {
		cfg.MQTT.InputTopic = flagMQTTInputTopic
	}
	if flags.Changed("mqtt-output-topic") {
		cfg.MQTT.OutputTopic = flagMQTTOutputTopic
	}
	if flags.Changed("max-history-messages") {
		cfg.MaxHistoryMessages = flagMaxHistory
	}
	if flags.Changed("verbose") {
		cfg.Verbose = flagVerbose
	}
	return cfg
}

// splitList parses a comma-separated flag value, dropping empty items.
func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func buildSources(ctx context.Context, cfg config.Config) ([]channel.Source, []io.Closer, error) {
	var sources []channel.Source
	var closers []io.Closer

	for _, kind := range cfg.Inputs {
		switch kind {
		case config.ChannelStdin:
			sources = append(sources, channel.NewStdinSource())
		case config.ChannelWebhook:
			sources = append(sources, channel.NewWebhookSource(cfg.Webhook))
		case config.ChannelMQTT:
			src, err := channel.NewMQTTSource(cfg.MQTT)
			if err != nil {
				return sources, closers, err
			}
			sources = append(sources, src)
			closers = append(closers, src)
		case config.ChannelRedis:
			src, err := channel.NewRedisSource(ctx, cfg.Redis)
			if err != nil {
				return sources, closers, err
			}
			sources = append(sources, src)
			closers = append(closers, src)
		}
	}
	return sources, closers, nil
}

func buildSinks(ctx context.Context, cfg config.Config) ([]channel.Sink, []io.Closer, error) {
	var sinks []channel.Sink
	var closers []io.Closer

	for _, kind := range cfg.Outputs {
		switch kind {
		case config.ChannelStdout:
			sinks = append(sinks, channel.NewConsoleSink(os.Stdout))
		case config.ChannelWebhook:
			sinks = append(sinks, channel.NewWebhookSink(cfg.Webhook.OutputURL))
		case config.ChannelMQTT:
			sink, err := channel.NewMQTTSink(cfg.MQTT)
			if err != nil {
				return sinks, closers, err
			}
			sinks = append(sinks, sink)
			closers = append(closers, sink)
		case config.ChannelRedis:
			sink, err := channel.NewRedisSink(ctx, cfg.Redis)
			if err != nil {
				return sinks, closers, err
			}
			sinks = append(sinks, sink)
			closers = append(closers, sink)
		}
	}
	return sinks, closers, nil
}

func closeAll(ctx context.Context, closers []io.Closer) {
	for _, c := range closers {
		if err := c.Close(); err != nil {
			slog.WarnContext(ctx, "close failed", "error", err)
		}
	}
}
