// Package carbon runs a robot world: it loads the configuration, builds the world from a robot
// description, ticks it at a fixed rate and releases everything on shutdown.
package carbon

import (
	"context"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/argus-labs/carbon/pkg/carbon/device"
	"github.com/argus-labs/carbon/pkg/carbon/ecs"
	"github.com/argus-labs/carbon/pkg/carbon/hierarchy"
	"github.com/argus-labs/carbon/pkg/carbon/kinematics"
	carbonlog "github.com/argus-labs/carbon/pkg/carbon/log"
	"github.com/argus-labs/carbon/pkg/carbon/robot"
	"github.com/argus-labs/carbon/pkg/carbon/statsd"
	"github.com/argus-labs/carbon/pkg/carbon/worldstage"
)

const (
	defaultBaseName = "base_link"
	shutdownTimeout = 10 * time.Second
)

// App owns a world and the loop that ticks it.
type App struct {
	world   *ecs.World
	poses   *kinematics.PoseTree
	robot   *robot.Robot
	devices *device.Manager // nil unless ports are connected
	events  *ecs.Events[hierarchy.Event]
	stage   *worldstage.Manager
	options Options
	logger  *zerolog.Logger
}

// New creates an App. Options are applied over the environment configuration.
func New(opts Options) (*App, error) {
	options := newDefaultOptions()

	cfg, err := loadConfig()
	if err != nil {
		return nil, eris.Wrap(err, "failed to load app config")
	}
	options.apply(cfg.toOptions())
	options.apply(opts)

	if err := options.validate(); err != nil {
		return nil, eris.Wrap(err, "invalid app options")
	}

	logger := newLogger(options)

	world := ecs.NewWorld(ecs.WithLogger(*logger))
	robot.Register(world)

	app := &App{
		world:   world,
		poses:   ecs.MustResource[kinematics.PoseTree](world),
		events:  hierarchy.AddEvents(world),
		stage:   worldstage.NewManager(),
		options: options,
		logger:  logger,
	}

	if options.ConnectPorts {
		var deviceOpts []device.Option
		if options.Opener != nil {
			deviceOpts = append(deviceOpts, device.WithOpener(options.Opener))
		}
		app.devices = device.Register(world, deviceOpts...)
	}

	if options.StatsdAddress != "" {
		if err := statsd.Init(options.StatsdAddress, options.StatsdTags); err != nil {
			return nil, eris.Wrap(err, "failed to init statsd")
		}
	}

	if err := app.spawnRobot(); err != nil {
		return nil, err
	}

	return app, nil
}

// newLogger builds the app logger and tags it with a run trace id. A logger passed in the options
// is used as is.
func newLogger(options Options) *zerolog.Logger {
	traceID := uuid.NewString()
	if options.Logger != nil {
		return carbonlog.CreateTraceLogger(options.Logger, traceID)
	}

	level, _ := zerolog.ParseLevel(strings.ToLower(options.LogLevel))
	var writer io.Writer = os.Stdout
	if options.LogPretty {
		writer = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	base := zerolog.New(writer).Level(level).With().Timestamp().Caller().Logger()
	logger := carbonlog.CreateTraceLogger(&base, traceID)

	log.Logger = *logger
	return logger
}

func (a *App) spawnRobot() error {
	if a.options.Description == "" {
		base := a.world.Spawn(
			robot.Link{},
			robot.Frame{Label: defaultBaseName},
			robot.BaseFrame{},
			kinematics.WorldPose(kinematics.Identity()),
		)
		a.robot = &robot.Robot{
			Name:   defaultBaseName,
			Base:   base,
			Links:  map[string]ecs.EntityID{defaultBaseName: base},
			Joints: map[string]ecs.EntityID{},
		}
		a.logger.Info().Msg("no robot description, spawned a bare base frame")
		return nil
	}

	desc, err := robot.LoadDescription(a.options.Description)
	if err != nil {
		return eris.Wrap(err, "failed to load robot description")
	}
	r, err := desc.Spawn(a.world)
	if err != nil {
		return eris.Wrapf(err, "failed to spawn robot %s", desc.Name)
	}
	a.robot = r
	a.logger.Info().
		Str("robot", r.Name).
		Int("links", len(r.Links)).
		Int("joints", len(r.Joints)).
		Msg("robot spawned")
	return nil
}

// Run ticks the world until SIGINT or SIGTERM, then shuts down.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.RunContext(ctx); err != nil {
		a.logger.Error().Err(err).Msg("app stopped with error")
		return err
	}
	return nil
}

// RunContext ticks the world at the configured rate until ctx is done, MaxTicks is reached or a
// tick fails. The app is shut down before it returns and cannot be run again.
func (a *App) RunContext(ctx context.Context) error {
	if a.stage.IsStopping() {
		return eris.New("app has already been shut down")
	}
	if !a.stage.CompareAndSwap(worldstage.Init, worldstage.Starting) {
		return eris.New("app is already running")
	}
	defer a.shutdown()

	if err := a.stage.Advance(worldstage.Ready); err != nil {
		return eris.Wrap(err, "failed to mark app ready")
	}

	period := time.Duration(float64(time.Second) / a.options.TickRate)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	a.logger.Info().Float64("tick_rate", a.options.TickRate).Msg("starting tick loop")
	for {
		select {
		case <-ctx.Done():
			a.logger.Info().Msg("stop requested")
			return nil
		case <-ticker.C:
			if err := a.tick(period); err != nil {
				return err
			}
			if a.options.MaxTicks > 0 && a.world.CurrentTick() >= a.options.MaxTicks {
				a.logger.Info().Uint64("ticks", a.world.CurrentTick()).Msg("reached max ticks")
				return nil
			}
		}
	}
}

func (a *App) tick(period time.Duration) error {
	start := time.Now()
	ecs.MustResource[kinematics.Clock](a.world).Advance(period)

	if err := a.world.Tick(); err != nil {
		statsd.CountTickFailure()
		return eris.Wrapf(err, "tick %d failed", a.world.CurrentTick())
	}
	statsd.EmitTickStat(start, "full")
	statsd.EmitWorldStats(a.world.Len(), a.poses.Len())

	if a.world.CurrentTick() == 1 {
		if err := a.stage.Advance(worldstage.Running); err != nil {
			return eris.Wrap(err, "failed to mark app running")
		}
	}

	for _, event := range a.events.Drain() {
		a.logger.Debug().
			Stringer("kind", event.Kind).
			Stringer("child", event.Child).
			Msg("hierarchy changed")
	}
	return nil
}

// shutdown releases ports and metrics and writes the debug snapshot. Failures are logged.
func (a *App) shutdown() {
	if err := a.stage.Advance(worldstage.ShuttingDown); err != nil {
		a.logger.Error().Err(err).Msg("failed to mark app shutting down")
	}
	a.logger.Info().Uint64("tick", a.world.CurrentTick()).Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if a.devices != nil {
			if err := a.devices.Close(); err != nil {
				a.logger.Error().Err(err).Msg("failed to close serial ports")
			}
		}
		if a.options.StatsdAddress != "" {
			if err := statsd.Close(); err != nil {
				a.logger.Error().Err(err).Msg("failed to close statsd client")
			}
		}
		if a.options.SnapshotPath != "" {
			if err := a.WriteSnapshot(a.options.SnapshotPath); err != nil {
				a.logger.Error().Err(err).Msg("failed to write snapshot")
			}
		}
	}()

	select {
	case <-done:
	case <-ctx.Done():
		a.logger.Error().Dur("timeout", shutdownTimeout).Msg("shutdown timed out")
	}

	carbonlog.World(a.logger, a.world, zerolog.DebugLevel)
	if err := a.stage.Advance(worldstage.ShutDown); err != nil {
		a.logger.Error().Err(err).Msg("failed to mark app shut down")
	}
	a.logger.Info().Msg("shutdown complete")
}

type snapshot struct {
	Tick       uint64               `json:"tick"`
	Stage      worldstage.Stage     `json:"stage"`
	Entities   int                  `json:"entities"`
	Components []string             `json:"components"`
	Systems    []string             `json:"systems"`
	Poses      *kinematics.PoseTree `json:"poses"`
}

// Snapshot encodes the world's tick, registrations and resolved pose tree as JSON.
func (a *App) Snapshot() ([]byte, error) {
	data, err := json.Marshal(snapshot{
		Tick:       a.world.CurrentTick(),
		Stage:      a.stage.Current(),
		Entities:   a.world.Len(),
		Components: a.world.ComponentNames(),
		Systems:    a.world.SystemNames(),
		Poses:      a.poses,
	})
	if err != nil {
		return nil, eris.Wrap(err, "failed to encode snapshot")
	}
	return data, nil
}

// WriteSnapshot writes Snapshot to path.
func (a *App) WriteSnapshot(path string) error {
	data, err := a.Snapshot()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return eris.Wrapf(err, "failed to write snapshot to %s", path)
	}
	return nil
}

// World returns the app's world. It must not be used concurrently with a running loop.
func (a *App) World() *ecs.World {
	return a.world
}

// PoseTree returns the pose tree resolved by the last successful tick.
func (a *App) PoseTree() *kinematics.PoseTree {
	return a.poses
}

// Robot returns the entities the robot was spawned into.
func (a *App) Robot() *robot.Robot {
	return a.robot
}

// Stage returns the current lifecycle stage.
func (a *App) Stage() worldstage.Stage {
	return a.stage.Current()
}
