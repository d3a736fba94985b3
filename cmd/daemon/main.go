package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/genricoloni/turntable/internal/audio"
	"github.com/genricoloni/turntable/internal/config"
	"github.com/genricoloni/turntable/internal/domain"
	"github.com/genricoloni/turntable/internal/durations"
	"github.com/genricoloni/turntable/internal/effects"
	"github.com/genricoloni/turntable/internal/engine"
	"github.com/genricoloni/turntable/internal/fetcher"
	"github.com/genricoloni/turntable/internal/label"
	"github.com/genricoloni/turntable/internal/mpris"
	"github.com/genricoloni/turntable/internal/playlist"
	"github.com/genricoloni/turntable/internal/watcher"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// AppOptions is the daemon's dependency graph
var AppOptions = fx.Options(
	// Provide dependencies
	fx.Provide(
		newLogger,
		config.NewAppConfig,
		asConfig,
		config.NewStoreFromConfig,
		loadSettings,

		// Media and label artwork have different limits, so they get separate fetchers
		fx.Annotate(
			fetcher.NewMediaFetcher,
			fx.As(new(domain.Fetcher)),
			fx.ResultTags(`name:"media"`),
		),
		fx.Annotate(
			fetcher.NewImageFetcher,
			fx.As(new(domain.Fetcher)),
			fx.ResultTags(`name:"image"`),
		),

		fx.Annotate(
			audio.NewProber,
			fx.ParamTags(``, `name:"media"`),
			fx.As(new(domain.Prober)),
		),
		fx.Annotate(
			audio.NewElement,
			fx.ParamTags(``, `name:"media"`),
			fx.As(new(domain.AudioElement)),
		),
		fx.Annotate(
			newSequencer,
			fx.ParamTags(``, `name:"media"`),
		),
		durations.NewAggregator,
		engine.NewSystemClock,
		engine.NewEngine,
		asController,

		label.NewScreenResolution,
		fx.Annotate(
			label.NewRenderer,
			fx.ParamTags(``, `name:"image"`),
		),
		playlist.NewSource,
		watcher.New,
		mpris.NewPublisher,
	),

	// Lifecycle hooks
	fx.Invoke(registerHooks),
)

func main() {
	app := fx.New(
		// Logger configuration
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),

		AppOptions,
	)

	// Handle graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Start the application
	if err := app.Start(ctx); err != nil {
		panic(err)
	}

	// Wait for interrupt signal
	<-ctx.Done()

	// Stop the application gracefully
	if err := app.Stop(context.Background()); err != nil {
		panic(err)
	}
}

// newLogger creates a new zap logger instance
func newLogger() (*zap.Logger, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return logger, nil
}

func asConfig(cfg *config.AppConfig) domain.Config {
	return cfg
}

func asController(e *engine.Engine) domain.Controller {
	return e
}

// loadSettings reads the persisted settings once at startup; later changes arrive through the watcher
func loadSettings(store *config.Store) config.Settings {
	return store.Load()
}

// newSequencer builds the drop and runout stingers from the startup settings.
// Stinger locators are read once; toggles follow live settings.
func newSequencer(logger *zap.Logger, media domain.Fetcher, settings config.Settings) *effects.Sequencer {
	drop := audio.NewStinger(logger.Named("drop"), media, settings.Effects.DropURL)
	runout := audio.NewStinger(logger.Named("runout"), media, settings.Effects.RunoutURL)
	return effects.NewSequencer(logger, drop, runout, settings.Effects)
}

// daemon groups the components driven by the lifecycle hooks
type daemon struct {
	fx.In

	Logger    *zap.Logger
	Config    domain.Config
	Store     *config.Store
	Engine    *engine.Engine
	Sequencer *effects.Sequencer
	Renderer  *label.Renderer
	Playlist  *playlist.Source
	Watcher   *watcher.Watcher
	Publisher *mpris.Publisher
}

// registerHooks sets up application lifecycle hooks
func registerHooks(lc fx.Lifecycle, d daemon) {
	watchCtx, cancelWatch := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := d.Engine.Start(ctx); err != nil {
				return err
			}

			d.reloadPlaylist(ctx)
			d.renderLabel(ctx)
			go d.Sequencer.Preload(watchCtx)

			d.watch(watchCtx, d.Store.Path(), d.reloadSettings(watchCtx))
			d.watch(watchCtx, d.Playlist.Path(), func() { d.reloadPlaylist(watchCtx) })

			if err := d.Publisher.Start(ctx); err != nil {
				d.Logger.Warn("MPRIS publisher failed to start", zap.Error(err))
			}

			d.Logger.Info("Turntable Daemon Started")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			d.Logger.Info("Shutting down")

			cancelWatch()
			d.Watcher.Wait()

			var err error
			err = multierr.Append(err, d.Publisher.Stop(ctx))
			err = multierr.Append(err, d.Engine.Stop(ctx))
			return err
		},
	})
}

// watch registers a file watch; a missing directory only disables live reload
func (d daemon) watch(ctx context.Context, path string, onChange func()) {
	if err := d.Watcher.Watch(ctx, path, onChange); err != nil {
		d.Logger.Warn("Live reload disabled", zap.String("path", path), zap.Error(err))
	}
}

func (d daemon) reloadPlaylist(ctx context.Context) {
	tracks, err := d.Playlist.Load(ctx)
	if err != nil {
		d.Logger.Error("Failed to load playlist", zap.Error(err))
		return
	}
	d.Engine.SetPlaylist(tracks)
}

func (d daemon) renderLabel(ctx context.Context) {
	if _, err := d.Renderer.Render(ctx, d.Config.GetLabelURL()); err != nil {
		d.Logger.Error("Failed to render label", zap.Error(err))
	}
}

func (d daemon) reloadSettings(ctx context.Context) func() {
	return func() {
		settings := d.Store.Load()
		d.Engine.ApplySettings(settings)
		d.Renderer.SetLayout(settings.Layout)
		d.renderLabel(ctx)
		d.Logger.Info("Settings reloaded")
	}
}
