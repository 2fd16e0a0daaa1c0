package daemon

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/zerocode/haybot/internal/config"
	"github.com/zerocode/haybot/internal/logger"
	"github.com/zerocode/haybot/internal/metrics"
	"github.com/zerocode/haybot/internal/telegram"
	"github.com/zerocode/haybot/pkg/agent"
	"github.com/zerocode/haybot/pkg/cleanup"
	"github.com/zerocode/haybot/pkg/commandqueue"
	"github.com/zerocode/haybot/pkg/embedding"
	"github.com/zerocode/haybot/pkg/fragment"
	"github.com/zerocode/haybot/pkg/fragment/chromem"
	"github.com/zerocode/haybot/pkg/fragment/sqlitevec"
	"github.com/zerocode/haybot/pkg/ingest"
	"github.com/zerocode/haybot/pkg/memory"
	"github.com/zerocode/haybot/pkg/orchestrator"
	"github.com/zerocode/haybot/pkg/summary"
	"github.com/zerocode/haybot/pkg/tools"
)

// Daemon wires the bot together: fragment store, embeddings, memory,
// ingestion, the agent and the Telegram transport.
type Daemon struct {
	config *config.Config
	logger *logger.Logger

	// Core modules
	queue        *commandqueue.CommandQueue
	store        fragment.Store
	embedder     embedding.Provider
	writer       *memory.Writer
	retriever    *memory.Retriever
	pipeline     *ingest.Pipeline
	summarizer   *summary.Summarizer
	agentRunner  *agent.Runner
	orchestrator *orchestrator.Orchestrator

	// Background services
	sweeper     *cleanup.Sweeper
	dropWatcher *ingest.DropWatcher

	// Telegram
	telegramBot *telegram.Bot
	telegramCmd *telegram.Commands
	chatHandler *telegram.Handler
	documents   *telegram.Documents

	// Observability
	metrics       *metrics.Metrics
	metricsServer *http.Server

	// Internal
	eventLoop *EventLoop
	pidFile   *PIDFile

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// startedAt is zero while the daemon is stopped.
	mu        sync.Mutex
	startedAt time.Time
}

// New creates a new daemon instance
func New(cfg *config.Config, log *logger.Logger) (*Daemon, error) {
	ctx, cancel := context.WithCancel(context.Background())

	d := &Daemon{
		config: cfg,
		logger: log,
		ctx:    ctx,
		cancel: cancel,
	}

	// Initialize core modules in dependency order
	if err := d.initializeCoreModules(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize core modules: %w", err)
	}

	// Initialize the Telegram transport
	if err := d.initializeTelegram(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize telegram: %w", err)
	}

	d.eventLoop = NewEventLoop(d)
	d.pidFile = NewPIDFile(cfg.DataDir, d.logger.GetZerolog())

	return d, nil
}

// initializeCoreModules initializes all core modules
func (d *Daemon) initializeCoreModules() error {
	cfg := d.config
	zlog := d.logger.GetZerolog()

	if cfg.DataDir != "" {
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	d.metrics = metrics.NewMetrics()

	d.queue = commandqueue.New(zlog)
	d.logger.Info().Msg("Command queue initialized")

	store, err := d.openStore()
	if err != nil {
		return fmt.Errorf("failed to open fragment store: %w", err)
	}
	d.store = store
	d.logger.Info().
		Str("driver", cfg.Store.Driver).
		Str("path", cfg.Store.Path).
		Msg("Fragment store opened")

	embedder, err := embedding.NewOpenAIProvider(embedding.OpenAIConfig{
		APIKey:    cfg.OpenAI.APIKey,
		Model:     cfg.OpenAI.EmbeddingModel,
		Dimension: cfg.OpenAI.EmbeddingDimension,
		BaseURL:   cfg.OpenAI.BaseURL,
	})
	if err != nil {
		return fmt.Errorf("failed to create embedding provider: %w", err)
	}
	d.embedder = embedder
	d.logger.Info().Str("model", cfg.OpenAI.EmbeddingModel).Msg("Embedding provider initialized")

	writer, err := memory.NewWriter(memory.WriterConfig{
		Embedder: embedder,
		Store:    store,
		Logger:   zlog,
	})
	if err != nil {
		return fmt.Errorf("failed to create memory writer: %w", err)
	}
	d.writer = writer

	retriever, err := memory.NewRetriever(memory.RetrieverConfig{
		Store:  store,
		TopK:   cfg.Memory.TopK,
		Logger: zlog,
	})
	if err != nil {
		return fmt.Errorf("failed to create memory retriever: %w", err)
	}
	d.retriever = retriever
	d.logger.Info().Int("top_k", cfg.Memory.TopK).Msg("Memory initialized")

	converter, err := ingest.NewTextConverter(ingest.TextConverterConfig{
		MinChunkSize: cfg.Ingest.MinChunkSize,
		MaxChunkSize: cfg.Ingest.MaxChunkSize,
		Overlap:      cfg.Ingest.Overlap,
	})
	if err != nil {
		return fmt.Errorf("failed to create document converter: %w", err)
	}

	pipeline, err := ingest.NewPipeline(ingest.PipelineConfig{
		Converter: converter,
		Embedder:  embedder,
		Store:     store,
		Logger:    zlog,
	})
	if err != nil {
		return fmt.Errorf("failed to create ingestion pipeline: %w", err)
	}
	d.pipeline = pipeline
	d.logger.Info().Msg("Ingestion pipeline initialized")

	provider, chatModel, err := d.buildProvider()
	if err != nil {
		return fmt.Errorf("failed to create LLM provider: %w", err)
	}

	agentTools, err := d.buildTools()
	if err != nil {
		return fmt.Errorf("failed to create agent tools: %w", err)
	}

	runCfg := agent.DefaultRunConfig()
	runCfg.Model = chatModel
	runCfg.Temperature = cfg.Agent.Temperature
	if cfg.Agent.MaxTokens > 0 {
		runCfg.MaxTokens = cfg.Agent.MaxTokens
	}
	if cfg.Agent.MaxRetries > 0 {
		runCfg.MaxRetries = cfg.Agent.MaxRetries
	}

	agentRunner, err := agent.NewRunner(agent.Config{
		Provider: provider,
		Tools:    agentTools,
		Run:      runCfg,
		Logger:   zlog,
	})
	if err != nil {
		return fmt.Errorf("failed to create agent runner: %w", err)
	}
	d.agentRunner = agentRunner
	d.logger.Info().
		Str("provider", cfg.Agent.Provider).
		Str("model", chatModel).
		Int("tools", len(agentTools)).
		Msg("Agent runner initialized")

	completer, err := agent.NewCompleter(provider, chatModel)
	if err != nil {
		return fmt.Errorf("failed to create completer: %w", err)
	}

	summarizer, err := summary.New(summary.Config{
		Completer: completer,
		MaxChars:  cfg.Summary.MaxChars,
		MaxTokens: cfg.Summary.MaxTokens,
		Logger:    zlog,
	})
	if err != nil {
		return fmt.Errorf("failed to create summarizer: %w", err)
	}
	d.summarizer = summarizer

	systemPrompt := cfg.Agent.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = config.DefaultSystemPrompt
	}

	orch, err := orchestrator.New(orchestrator.Config{
		Embedder:     embedder,
		Retriever:    retriever,
		Runner:       agentRunner,
		Recorder:     writer,
		SystemPrompt: systemPrompt,
		Logger:       zlog,
	})
	if err != nil {
		return fmt.Errorf("failed to create orchestrator: %w", err)
	}
	d.orchestrator = orch
	d.logger.Info().Msg("Orchestrator initialized")

	tempDir := cfg.Ingest.TempDir
	if tempDir == "" {
		tempDir = filepath.Join(cfg.DataDir, "uploads")
	}
	d.config.Ingest.TempDir = tempDir

	sweeper, err := cleanup.New(cleanup.Config{
		Dir:      tempDir,
		MaxAge:   time.Duration(cfg.Cleanup.MaxAgeHours) * time.Hour,
		Schedule: cfg.Cleanup.Schedule,
		Logger:   zlog,
	})
	if err != nil {
		return fmt.Errorf("failed to create upload sweeper: %w", err)
	}
	d.sweeper = sweeper
	d.logger.Info().Str("dir", tempDir).Msg("Upload sweeper initialized")

	if cfg.Ingest.DropDir != "" {
		watcher, err := ingest.NewDropWatcher(zlog, d.handleDroppedFile)
		if err != nil {
			return fmt.Errorf("failed to create drop watcher: %w", err)
		}
		d.dropWatcher = watcher
		d.logger.Info().
			Str("dir", cfg.Ingest.DropDir).
			Str("user_id", cfg.Ingest.DropUserID).
			Msg("Drop watcher initialized")
	}

	return nil
}

// openStore opens the configured fragment store backend
func (d *Daemon) openStore() (fragment.Store, error) {
	cfg := d.config
	zlog := d.logger.GetZerolog()

	path := cfg.Store.Path
	if path == "" {
		switch cfg.Store.Driver {
		case "chromem":
			path = filepath.Join(cfg.DataDir, "fragments")
		default:
			path = filepath.Join(cfg.DataDir, "fragments.db")
		}
		d.config.Store.Path = path
	}

	switch cfg.Store.Driver {
	case "chromem":
		return chromem.New(chromem.Config{
			Path:      path,
			Dimension: cfg.OpenAI.EmbeddingDimension,
			Logger:    zlog,
		})
	case "sqlite", "":
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
		return sqlitevec.New(sqlitevec.Config{
			Path:      path,
			Dimension: cfg.OpenAI.EmbeddingDimension,
			Logger:    zlog,
		})
	default:
		return nil, fmt.Errorf("unknown store driver: %s", cfg.Store.Driver)
	}
}

// buildProvider creates the chat LLM provider and returns it with the model name
func (d *Daemon) buildProvider() (agent.LLMProvider, string, error) {
	cfg := d.config

	switch cfg.Agent.Provider {
	case "anthropic":
		provider, err := agent.NewProvider(agent.ProviderConfig{
			Provider: "anthropic",
			APIKey:   cfg.Anthropic.APIKey,
			BaseURL:  cfg.Anthropic.BaseURL,
		})
		return provider, cfg.Anthropic.Model, err
	default:
		provider, err := agent.NewProvider(agent.ProviderConfig{
			Provider: "openai",
			APIKey:   cfg.OpenAI.APIKey,
			BaseURL:  cfg.OpenAI.BaseURL,
		})
		return provider, cfg.OpenAI.ChatModel, err
	}
}

// buildTools creates the agent tool set
func (d *Daemon) buildTools() ([]agent.Tool, error) {
	cfg := d.config

	describer, err := tools.NewVisionDescriber(tools.VisionConfig{
		APIKey:  cfg.OpenAI.APIKey,
		Model:   cfg.OpenAI.ChatModel,
		BaseURL: cfg.OpenAI.BaseURL,
	})
	if err != nil {
		return nil, err
	}

	dogImage, err := tools.NewDogImageTool(describer)
	if err != nil {
		return nil, err
	}

	return []agent.Tool{
		tools.NewDogFactTool(),
		dogImage,
	}, nil
}

// initializeTelegram sets up the Telegram transport. The bot is optional so
// the rest of the daemon can run (and be tested) without network access.
func (d *Daemon) initializeTelegram() error {
	if d.config.Telegram.BotToken == "" {
		d.logger.Warn().Msg("Telegram bot token not set, transport disabled")
		return nil
	}

	bot, err := telegram.New(&d.config.Telegram, d.logger)
	if err != nil {
		return fmt.Errorf("failed to create telegram bot: %w", err)
	}
	d.telegramBot = bot

	d.telegramCmd = telegram.NewCommands(bot)
	bot.SetCommandHandler(d.telegramCmd)

	chatHandler, err := telegram.NewHandler(telegram.HandlerConfig{
		Sender:    bot,
		Queue:     d.queue,
		Responder: d.orchestrator,
		Metrics:   d.metrics,
		Logger:    d.logger.GetZerolog(),
	})
	if err != nil {
		return fmt.Errorf("failed to create message handler: %w", err)
	}
	d.chatHandler = chatHandler
	bot.SetMessageHandler(chatHandler)

	documents, err := telegram.NewDocuments(telegram.DocumentsConfig{
		Sender:     bot,
		Files:      bot,
		Queue:      d.queue,
		Ingestor:   d.pipeline,
		Summarizer: d.summarizer,
		TempDir:    d.config.Ingest.TempDir,
		Metrics:    d.metrics,
		Logger:     d.logger.GetZerolog(),
	})
	if err != nil {
		return fmt.Errorf("failed to create document handler: %w", err)
	}
	d.documents = documents
	bot.SetDocumentHandler(documents)

	d.logger.Info().Msg("Telegram transport initialized")
	return nil
}

// handleDroppedFile ingests a file placed in the drop directory. The file is
// attributed to the configured drop user and removed after ingestion.
func (d *Daemon) handleDroppedFile(path string) {
	userID := d.config.Ingest.DropUserID
	filename := filepath.Base(path)
	lane := "user:" + userID

	ctx, cancel := context.WithTimeout(d.ctx, 10*time.Minute)
	defer cancel()

	_, err := d.queue.Enqueue(ctx, lane, func(ctx context.Context) (interface{}, error) {
		result, err := d.pipeline.Ingest(ctx, path, userID, filename)
		if err != nil {
			return nil, err
		}
		if err := os.Remove(path); err != nil {
			d.logger.Warn().Err(err).Str("path", path).Msg("Failed to remove ingested drop file")
		}
		d.logger.Info().
			Str("filename", filename).
			Str("user_id", userID).
			Int("fragments", result.Written).
			Msg("Drop file ingested")
		return nil, nil
	})
	if err != nil {
		d.logger.Error().
			Err(err).
			Str("path", path).
			Msg("Failed to ingest drop file")
	}
}

// markStarted flips the daemon into the running state.
func (d *Daemon) markStarted() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.startedAt.IsZero() {
		return fmt.Errorf("daemon is already running")
	}
	d.startedAt = time.Now()
	return nil
}

// markStopped flips the daemon back into the stopped state.
func (d *Daemon) markStopped() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.startedAt.IsZero() {
		return fmt.Errorf("daemon is not running")
	}
	d.startedAt = time.Time{}
	return nil
}

// spawn runs fn on a tracked goroutine so Stop can wait for it.
func (d *Daemon) spawn(fn func()) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		fn()
	}()
}

// Start brings up the background services and the Telegram transport.
func (d *Daemon) Start() error {
	if err := d.markStarted(); err != nil {
		return err
	}

	d.logger.Info().Msg("Starting haybot daemon")

	if err := d.pidFile.Acquire(); err != nil {
		return fmt.Errorf("failed to acquire pid file: %w", err)
	}

	// Start upload sweeper
	if err := d.sweeper.Start(); err != nil {
		return fmt.Errorf("failed to start upload sweeper: %w", err)
	}
	d.logger.Info().Msg("Upload sweeper started")

	// Start drop watcher if configured
	if d.dropWatcher != nil {
		if err := os.MkdirAll(d.config.Ingest.DropDir, 0755); err != nil {
			return fmt.Errorf("failed to create drop directory: %w", err)
		}
		if err := d.dropWatcher.Watch(d.config.Ingest.DropDir); err != nil {
			return fmt.Errorf("failed to watch drop directory: %w", err)
		}
		d.logger.Info().Str("dir", d.config.Ingest.DropDir).Msg("Drop watcher started")
	}

	// Start Telegram bot if configured
	if d.telegramBot != nil {
		if err := d.telegramBot.Start(); err != nil {
			return fmt.Errorf("failed to start telegram bot: %w", err)
		}
		d.logger.Info().Msg("Telegram bot started")
	}

	if d.config.Metrics.Enabled {
		d.startMetricsServer()
	}

	d.spawn(func() { d.eventLoop.Run(d.ctx) })

	d.logger.Info().Msg("Daemon started successfully")

	return nil
}

// startMetricsServer exposes the Prometheus endpoint on its own listener.
func (d *Daemon) startMetricsServer() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", d.metrics.Handler())
	d.metricsServer = &http.Server{Addr: d.config.Metrics.Addr, Handler: mux}

	d.spawn(func() {
		if err := d.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			d.logger.Error().Err(err).Msg("Metrics server failed")
		}
	})
	d.logger.Info().Str("addr", d.config.Metrics.Addr).Msg("Metrics endpoint started")
}

// Stop shuts the daemon down gracefully, front to back: transport
// first so no new work arrives, then the workers, then storage.
func (d *Daemon) Stop() error {
	if err := d.markStopped(); err != nil {
		return err
	}

	d.logger.Info().Msg("Stopping haybot daemon")

	// Stop Telegram bot
	if d.telegramBot != nil && d.telegramBot.IsRunning() {
		if err := d.telegramBot.Stop(); err != nil {
			d.logger.Error().Err(err).Msg("Failed to stop telegram bot")
		}
	}

	// Stop drop watcher
	if d.dropWatcher != nil {
		if err := d.dropWatcher.Stop(); err != nil {
			d.logger.Error().Err(err).Msg("Failed to stop drop watcher")
		}
	}

	// Let in-flight replies and ingestions finish
	d.eventLoop.HandleShutdown()

	// Stop metrics endpoint
	if d.metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := d.metricsServer.Shutdown(shutdownCtx); err != nil {
			d.logger.Error().Err(err).Msg("Failed to stop metrics server")
		}
		cancel()
	}

	// Stop upload sweeper
	d.sweeper.Stop()

	// Stop command queue
	if err := d.queue.Close(); err != nil {
		d.logger.Error().Err(err).Msg("Failed to close command queue")
	}

	d.cancel()
	d.drainGoroutines(5 * time.Second)

	if err := d.pidFile.Release(); err != nil {
		d.logger.Error().Err(err).Msg("Failed to release pid file")
	}

	// Close fragment store
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			d.logger.Error().Err(err).Msg("Failed to close fragment store")
		}
	}

	d.logger.Info().Msg("Daemon stopped successfully")

	return nil
}

// drainGoroutines waits for tracked goroutines, giving up after the
// timeout so a stuck worker cannot wedge shutdown.
func (d *Daemon) drainGoroutines(timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info().Msg("All goroutines stopped")
	case <-time.After(timeout):
		d.logger.Warn().Msg("Timeout waiting for goroutines to stop")
	}
}

// Status represents daemon status
type Status struct {
	Running   bool
	Uptime    time.Duration
	StartTime time.Time
}

// Status reports whether the daemon runs and for how long.
func (d *Daemon) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.startedAt.IsZero() {
		return Status{}
	}
	return Status{
		Running:   true,
		Uptime:    time.Since(d.startedAt),
		StartTime: d.startedAt,
	}
}

// Wait blocks until SIGINT or SIGTERM arrives, then stops the daemon.
func (d *Daemon) Wait() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigs
	d.logger.Info().Str("signal", sig.String()).Msg("Received signal")

	if err := d.Stop(); err != nil {
		d.logger.Error().Err(err).Msg("Failed to stop daemon")
	}
}
