// Package dependency wires core blockhand services using go.uber.org/dig.
package dependency

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/crystaldolphin/blockhand/internal/agent"
	"github.com/crystaldolphin/blockhand/internal/agentstate"
	"github.com/crystaldolphin/blockhand/internal/audit"
	"github.com/crystaldolphin/blockhand/internal/bus"
	"github.com/crystaldolphin/blockhand/internal/config"
	"github.com/crystaldolphin/blockhand/internal/cron"
	"github.com/crystaldolphin/blockhand/internal/heartbeat"
	"github.com/crystaldolphin/blockhand/internal/persona"
	"github.com/crystaldolphin/blockhand/internal/providers"
	"github.com/crystaldolphin/blockhand/internal/schema"
	"github.com/crystaldolphin/blockhand/internal/tools"
	"github.com/crystaldolphin/blockhand/internal/transcript"
	"github.com/crystaldolphin/blockhand/internal/world"
)

const busSize = 100

// Options tune what New builds.
type Options struct {
	Logger *zap.Logger
	// Offline builds only the provider, persona and interpreter path. The
	// resulting loop has no bus, dispatcher or transcript.
	Offline bool
}

// Container holds the resolved core service singletons.
// Callers use the typed getter methods; they never need to import dig directly.
// Getters for world-facing services return nil in offline mode.
type Container struct {
	cfg        *config.Config
	log        *zap.Logger
	bus        bus.Bus
	world      *world.Client
	state      *agentstate.State
	runner     *tools.TaskRunner
	persona    *persona.Store
	provider   schema.CompletionProvider
	loop       *agent.Loop
	audit      *audit.Recorder
	transcript *transcript.Writer
	heartbeat  *heartbeat.Service
	cron       *cron.Service
}

func (c *Container) Config() *config.Config              { return c.cfg }
func (c *Container) Logger() *zap.Logger                 { return c.log }
func (c *Container) Bus() bus.Bus                        { return c.bus }
func (c *Container) World() *world.Client                { return c.world }
func (c *Container) State() *agentstate.State            { return c.state }
func (c *Container) Runner() *tools.TaskRunner           { return c.runner }
func (c *Container) Persona() *persona.Store             { return c.persona }
func (c *Container) Provider() schema.CompletionProvider { return c.provider }
func (c *Container) Loop() *agent.Loop                   { return c.loop }
func (c *Container) Audit() *audit.Recorder              { return c.audit }
func (c *Container) Heartbeat() *heartbeat.Service       { return c.heartbeat }
func (c *Container) Cron() *cron.Service                 { return c.cron }

// components collects everything New hands back. World-facing services are
// optional so the offline graph resolves too.
type components struct {
	dig.In

	Persona    *persona.Store
	Provider   schema.CompletionProvider
	Loop       *agent.Loop
	Bus        bus.Bus            `optional:"true"`
	World      *world.Client      `optional:"true"`
	State      *agentstate.State  `optional:"true"`
	Runner     *tools.TaskRunner  `optional:"true"`
	Audit      *audit.Recorder    `optional:"true"`
	Transcript *transcript.Writer `optional:"true"`
	Heartbeat  *heartbeat.Service `optional:"true"`
	Cron       *cron.Service      `optional:"true"`
}

// New builds and wires all services from cfg. ctx bounds the detached task
// loops started by tools.
func New(ctx context.Context, cfg *config.Config, opts Options) (*Container, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	d := dig.New()

	provide := []any{
		func() *config.Config { return cfg },
		func() *zap.Logger { return logger },
		newProvider,
		newRegistry,
		newPersonaStore,
		newInterpreter,
		newLoop,
	}
	if !opts.Offline {
		provide = append(provide,
			func() context.Context { return ctx },
			newMessageBus,
			agentstate.New,
			newTaskRunner,
			newWorldClient,
			newToolEnv,
			newAuditRecorder,
			newTranscriptWriter,
			newDispatcher,
			newHeartbeat,
			newCron,
		)
	}
	for _, fn := range provide {
		if err := d.Provide(fn); err != nil {
			return nil, err
		}
	}

	var result *Container
	err := d.Invoke(func(c components) {
		result = &Container{
			cfg:        cfg,
			log:        logger,
			bus:        c.Bus,
			world:      c.World,
			state:      c.State,
			runner:     c.Runner,
			persona:    c.Persona,
			provider:   c.Provider,
			loop:       c.Loop,
			audit:      c.Audit,
			transcript: c.Transcript,
			heartbeat:  c.Heartbeat,
			cron:       c.Cron,
		}
	})
	if err != nil {
		return nil, dig.RootCause(err)
	}
	return result, nil
}

// Close flushes and releases the stores and unblocks bus publishers.
func (c *Container) Close() error {
	var errs []error
	if c.transcript != nil {
		errs = append(errs, c.transcript.Close())
	}
	if c.audit != nil {
		errs = append(errs, c.audit.Close())
	}
	if c.bus != nil {
		c.bus.Close()
	}
	return errors.Join(errs...)
}

func newProvider(cfg *config.Config, logger *zap.Logger) (schema.CompletionProvider, error) {
	params := cfg.ProviderParams()
	if params.ProviderName == "" {
		return nil, fmt.Errorf("no API key configured for model %q: edit %s", cfg.Agent.Model, config.ConfigPath())
	}
	if spec := providers.FindByName(params.ProviderName); params.APIKey == "" && (spec == nil || !spec.IsLocal) {
		return nil, fmt.Errorf("no API key configured for provider %q: edit %s", params.ProviderName, config.ConfigPath())
	}
	params.Logger = logger.Named("provider")
	return providers.New(params), nil
}

func newRegistry(cfg *config.Config) *tools.Registry {
	return tools.DefaultRegistry(
		tools.NewFollowTool(cfg.Tasks.FollowDistance, cfg.Tasks.FollowInterval()),
		tools.NewMineTool(cfg.Tasks.MineRadius),
	)
}

func newPersonaStore(cfg *config.Config, reg *tools.Registry, logger *zap.Logger) (*persona.Store, error) {
	path := filepath.Join(cfg.WorkspacePath(), persona.FileName)
	return persona.Load(path, reg.Describe(), logger.Named("persona"))
}

func newInterpreter(reg *tools.Registry, logger *zap.Logger) *agent.Interpreter {
	return agent.NewInterpreter(reg, logger.Named("interpreter"))
}

func newMessageBus() bus.Bus {
	return bus.NewMessageBus(busSize)
}

func newTaskRunner(ctx context.Context, logger *zap.Logger) *tools.TaskRunner {
	return tools.NewTaskRunner(ctx, logger.Named("tasks"))
}

func newWorldClient(cfg *config.Config, b bus.Bus, store *persona.Store, logger *zap.Logger) *world.Client {
	return world.NewClient(world.Options{
		URL:         cfg.World.URL,
		Token:       cfg.World.Token,
		AgentName:   cfg.Agent.Name,
		ChatChannel: cfg.World.ChatChannel,
		Reconnect:   cfg.World.ReconnectDelay(),
		Bus:         b,
		OnSpawn:     func(context.Context) {
			if greeting := store.Greeting(); greeting != "" {
				b.PublishOutbound(bus.NewOutboundMessage(bus.ChannelSystem, "", greeting))
			}
		},
		Logger: logger.Named("world"),
	})
}

func newToolEnv(
	w *world.Client,
	state *agentstate.State,
	runner *tools.TaskRunner,
	b bus.Bus,
	logger *zap.Logger,
) tools.Env {
	return tools.Env{
		World:  w,
		State:  state,
		Runner: runner,
		Say:    func(text string) {
			b.PublishOutbound(bus.NewOutboundMessage(bus.ChannelWorld, "", text))
		},
		Logger: logger.Named("tools"),
	}
}

// newAuditRecorder returns nil when auditing is disabled.
func newAuditRecorder(cfg *config.Config, logger *zap.Logger) (*audit.Recorder, error) {
	if !cfg.Audit.Enabled {
		return nil, nil
	}
	return audit.Open(cfg.AuditPath(), logger.Named("audit"))
}

// newTranscriptWriter returns nil when transcripts are disabled.
func newTranscriptWriter(cfg *config.Config) *transcript.Writer {
	if !cfg.Transcript.Enabled {
		return nil
	}
	return transcript.NewWriter(cfg.TranscriptDir())
}

func newDispatcher(reg *tools.Registry, env tools.Env, rec *audit.Recorder, logger *zap.Logger) *agent.Dispatcher {
	var recorder agent.ActionRecorder
	if rec != nil {
		recorder = rec
	}
	return agent.NewDispatcher(reg, env, recorder, logger.Named("dispatch"))
}

type loopParams struct {
	dig.In

	Config      *config.Config
	Provider    schema.CompletionProvider
	Persona     *persona.Store
	Interpreter *agent.Interpreter
	Logger      *zap.Logger
	Bus         bus.Bus            `optional:"true"`
	Dispatcher  *agent.Dispatcher  `optional:"true"`
	Transcript  *transcript.Writer `optional:"true"`
}

func newLoop(p loopParams) *agent.Loop {
	var tw agent.TranscriptWriter
	if p.Transcript != nil {
		tw = p.Transcript
	}
	agentCfg := p.Config.Agent
	return agent.NewLoop(agent.LoopDeps{
		Bus:      p.Bus,
		Provider: p.Provider,
		Settings: schema.NewAgentSettings(
			agentCfg.Name, agentCfg.Model, agentCfg.Temperature, agentCfg.MaxTokens, agentCfg.ContextWindow,
		),
		Prompt:      p.Persona,
		Interpreter: p.Interpreter,
		Dispatcher:  p.Dispatcher,
		Transcript:  tw,
		Logger:      p.Logger.Named("agent"),
	})
}

func newHeartbeat(cfg *config.Config, state *agentstate.State, w *world.Client, logger *zap.Logger) *heartbeat.Service {
	return heartbeat.NewService(state, w, cfg.Heartbeat.Interval(), logger.Named("heartbeat"))
}

func newCron(cfg *config.Config, b bus.Bus, logger *zap.Logger) (*cron.Service, error) {
	svc := cron.NewService(b, logger.Named("cron"))
	for i, a := range cfg.Announcements {
		if _, err := svc.Add(cron.Announcement{Schedule: a.Schedule, Text: a.Text}); err != nil {
			return nil, fmt.Errorf("announcement %d: %w", i, err)
		}
	}
	return svc, nil
}
