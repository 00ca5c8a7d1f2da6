package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vigneshmj1997/CodingAgent/internal/approval"
	"github.com/vigneshmj1997/CodingAgent/internal/checkpoint"
	"github.com/vigneshmj1997/CodingAgent/internal/config"
	"github.com/vigneshmj1997/CodingAgent/internal/console"
	"github.com/vigneshmj1997/CodingAgent/internal/core"
	"github.com/vigneshmj1997/CodingAgent/internal/dispatcher"
	"github.com/vigneshmj1997/CodingAgent/internal/eventbus"
	"github.com/vigneshmj1997/CodingAgent/internal/llm"
	"github.com/vigneshmj1997/CodingAgent/internal/stream"
	"github.com/vigneshmj1997/CodingAgent/internal/tools"
)

// Options select the front end and the conversation thread.
type Options struct {
	Plain    bool      // line-oriented console instead of the full-screen UI
	ThreadID string    // resume this thread when a checkpoint exists
	In       io.Reader // defaults to os.Stdin
	Out      io.Writer // defaults to os.Stdout
}

// Application manages the complete application lifecycle
type Application struct {
	config   *config.Config
	opts     Options
	logger   *slog.Logger
	logFile  *os.File
	eventBus *eventbus.EventBus
	emitter  *stream.Emitter
	service  *core.ChatService
}

// NewApplication wires the agent for the active profile. It fails before
// anything is started when the profile has no usable credentials.
func NewApplication(cfg *config.Config, opts Options) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger, logFile, err := openLog(cfg.LogPath())
	if err != nil {
		return nil, err
	}

	profile := cfg.Current()
	invoker, err := llm.New(profile, logger)
	if err != nil {
		logFile.Close()
		return nil, err
	}

	workDir, err := os.Getwd()
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("failed to get current working directory: %w", err)
	}

	eb := eventbus.NewEventBus()
	eb.SetErrorCallback(func(e eventbus.EventBusError) {
		logger.Warn("event bus", "operation", e.Operation, "error", e.Err)
	})
	gate := approval.NewGate(eb.ApprovalNotifier(),
		approval.WithTimeout(cfg.ApprovalTimeout()),
		approval.WithLogger(logger),
	)
	emitter := stream.NewEmitter()

	registry, err := tools.NewDefaultRegistry(tools.Deps{
		WorkDir:      workDir,
		NotepadPath:  cfg.NotepadPath(),
		ShellTimeout: cfg.ShellTimeout(),
		FetchTimeout: cfg.FetchTimeout(),
		Confirmator:  gate,
		Asker:        gate,
	})
	if err != nil {
		logFile.Close()
		return nil, err
	}

	var store checkpoint.Store = checkpoint.NewMemoryStore()
	if dir := cfg.CheckpointDir(); dir != "" {
		fileStore, err := checkpoint.NewFileStore(dir)
		if err != nil {
			logFile.Close()
			return nil, err
		}
		store = fileStore
	}

	ctx := context.Background()
	orch, err := core.NewOrchestrator(core.Options{
		Invoker:    invoker,
		Dispatcher: tools.NewDispatcher(registry, emitter, logger),
		Tools:      registry.Specs(),
		Emitter:    emitter,
		Store:      store,
		Logger:     logger,
		BasePrompt: core.BuildSystemPrompt(ctx, core.PromptOptions{
			WorkDir:  workDir,
			Model:    profile.Model,
			Provider: profile.ProviderName(),
		}),
		ThreadID:       opts.ThreadID,
		MaxInvocations: cfg.MaxInvocationsPerTurn(),
	})
	if err != nil {
		logFile.Close()
		return nil, err
	}

	resumed, err := orch.Restore(ctx)
	if err != nil {
		logger.Warn("starting a fresh conversation", "error", err)
	}

	notices := welcomeNotices(cfg, profile, orch, resumed)
	service := core.NewChatService(orch, gate, emitter, eb, logger, notices...)

	logger.Info("application ready", "profile", cfg.ActiveProfile, "provider", profile.ProviderName(), "model", profile.Model, "thread", orch.ThreadID())
	return &Application{
		config:   cfg,
		opts:     opts,
		logger:   logger,
		logFile:  logFile,
		eventBus: eb,
		emitter:  emitter,
		service:  service,
	}, nil
}

func welcomeNotices(cfg *config.Config, profile config.Profile, orch *core.Orchestrator, resumed bool) []string {
	notices := []string{
		"-- SWI --",
		fmt.Sprintf("Profile: %s (%s, %s)", cfg.ActiveProfile, profile.ProviderName(), profile.Model),
	}
	if resumed {
		notices = append(notices, fmt.Sprintf("Resumed thread %s with %d messages", orch.ThreadID(), len(orch.Conversation().History)))
	} else {
		notices = append(notices, "Thread: "+orch.ThreadID())
	}
	return append(notices, "Type a message and press Enter. 'exit' quits.", "")
}

func openLog(path string) (*slog.Logger, *os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelInfo})), f, nil
}

// Start runs the chosen front end until the user quits.
func (app *Application) Start() error {
	app.service.Start()

	if app.opts.Plain {
		in, out := app.opts.In, app.opts.Out
		if in == nil {
			in = os.Stdin
		}
		if out == nil {
			out = os.Stdout
		}
		return console.NewREPL(app.eventBus, in, out, app.logger).Run(context.Background())
	}

	programOpts := []tea.ProgramOption{tea.WithAltScreen()}
	if app.opts.In != nil {
		programOpts = append(programOpts, tea.WithInput(app.opts.In))
	}
	if app.opts.Out != nil {
		programOpts = append(programOpts, tea.WithOutput(app.opts.Out))
	}
	p := tea.NewProgram(NewAppModel(dispatcher.NewEventDispatcher(app.eventBus)), programOpts...)
	_, err := p.Run()
	return err
}

func (app *Application) Stop() {
	app.service.Stop()
	app.emitter.Close()
	app.eventBus.Close()
	app.logger.Info("application stopped")
	app.logFile.Close()
}
