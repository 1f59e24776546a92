package daemon

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"time"

	"github.com/diogocavaiar/session-android/internal/api"
	"github.com/diogocavaiar/session-android/internal/attachment"
	"github.com/diogocavaiar/session-android/internal/bus"
	"github.com/diogocavaiar/session-android/internal/config"
	"github.com/diogocavaiar/session-android/internal/delivery"
	"github.com/diogocavaiar/session-android/internal/envelope"
	"github.com/diogocavaiar/session-android/internal/lock"
	"github.com/diogocavaiar/session-android/internal/logging"
	"github.com/diogocavaiar/session-android/internal/notify"
	"github.com/diogocavaiar/session-android/internal/outbox"
	"github.com/diogocavaiar/session-android/internal/publicchat"
	"github.com/diogocavaiar/session-android/internal/routing"
	"github.com/diogocavaiar/session-android/internal/sender"
	"github.com/diogocavaiar/session-android/internal/session"
	"github.com/diogocavaiar/session-android/internal/sessionproto"
	"github.com/diogocavaiar/session-android/internal/status"
	"github.com/diogocavaiar/session-android/internal/store"
	"github.com/diogocavaiar/session-android/internal/swarm"
	"github.com/diogocavaiar/session-android/internal/transport"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved session configuration passed to the fx module.
type Params struct {
	SessionName string
	SocketPath  string         // optional override for testing; empty = use default
	Config      *config.Config // optional override; nil = read the config file
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideConfig,
			provideBus,
			provideStateMachine,
			provideLock,
			provideStore,
			provideIdentity,
			provideHTTPClient,
			provideRedis,
			provideResolver,
			provideSwitch,
			provideSwarmDispatcher,
			provideChannelDispatcher,
			provideUploader,
			provideSender,
			providePipeKeeper,
			provideWorker,
			provideService,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params, cfg *config.Config) (*zap.Logger, error) {
	return logging.New(session.LogPath(p.SessionName), p.SessionName, cfg.LogLevel)
}

// provideConfig reads config.toml. A missing file means defaults.
func provideConfig(p Params) (*config.Config, error) {
	if p.Config != nil {
		return p.Config.WithDefaults(), nil
	}
	cfg, err := config.Load(session.ConfigPath())
	if errors.Is(err, fs.ErrNotExist) {
		return cfg.WithDefaults(), nil
	}
	if err != nil {
		return nil, err
	}
	return cfg.WithDefaults(), nil
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := session.EnsureDir(p.SessionName); err != nil {
		return nil, err
	}
	logger.Info("acquiring session lock", zap.String("session", p.SessionName))
	l, err := lock.Acquire(session.LockPath(p.SessionName))
	if err != nil {
		return nil, err
	}
	logger.Info("session lock acquired")
	return l, nil
}

// provideStore depends on the lock so the database is only opened by the
// daemon holding it.
func provideStore(p Params, _ *lock.Lock, logger *zap.Logger) (*store.DB, error) {
	dbPath := session.AppDBPath(p.SessionName)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideIdentity(p Params, _ *lock.Lock, logger *zap.Logger) (*sessionproto.Identity, error) {
	id, err := sessionproto.LoadOrCreateIdentity(session.IdentityPath(p.SessionName))
	if err != nil {
		return nil, err
	}
	logger.Info("identity loaded", zap.String("public_key", id.PublicKey()))
	return id, nil
}

func provideHTTPClient(cfg *config.Config) *http.Client {
	return &http.Client{Timeout: cfg.DispatchTimeout.Duration}
}

// provideRedis returns nil when no relay is configured.
func provideRedis(cfg *config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
}

func provideResolver(cfg *config.Config, db *store.DB) *routing.Resolver {
	return routing.NewResolver(db, db, ttlTable(cfg.TTL))
}

func provideSwitch(cfg *config.Config, client *http.Client, logger *zap.Logger) *transport.Switch {
	return transport.NewSwitch(transport.NewSnodeClient(client, cfg.SwarmNodes, logger))
}

func provideSwarmDispatcher(cfg *config.Config, id *sessionproto.Identity, db *store.DB, sw *transport.Switch, resolver *routing.Resolver, logger *zap.Logger) *swarm.Dispatcher {
	return swarm.NewDispatcher(sessionproto.NewCipher(id), db, sw, swarm.Config{
		LocalPublicKey: id.PublicKey(),
		RegularTTL:     resolver.TTLs().Regular,
		Timeout:        cfg.DispatchTimeout.Duration,
	}, logger)
}

func provideChannelDispatcher(cfg *config.Config, id *sessionproto.Identity, db *store.DB, client *http.Client, logger *zap.Logger) *publicchat.Dispatcher {
	return publicchat.NewDispatcher(transport.NewChannelPoster(client), db, id.PublicKey(), cfg.DispatchTimeout.Duration, logger)
}

func provideUploader(cfg *config.Config, client *http.Client, resolver *routing.Resolver, logger *zap.Logger) *attachment.Uploader {
	return attachment.NewUploader(transport.NewFileServer(client), resolver, cfg.FileServer, logger)
}

type senderParams struct {
	fx.In

	Config   *config.Config
	Identity *sessionproto.Identity
	DB       *store.DB
	Bus      *bus.Bus
	Redis    *redis.Client
	Resolver *routing.Resolver
	Swarm    *swarm.Dispatcher
	Channel  *publicchat.Dispatcher
	Uploader *attachment.Uploader
	Logger   *zap.Logger
}

func provideSender(p senderParams) *sender.Sender {
	var notifier delivery.Notifier
	if p.Redis != nil {
		notifier = notify.NewQueue(p.Redis, p.Config.NotifyKey)
	}
	return sender.New(sender.Deps{
		Builder:     envelope.NewBuilder(envelope.WithSyncPaddingSize(p.Config.SyncPaddingSize)),
		Router:      p.Resolver,
		Swarm:       p.Swarm,
		Channel:     p.Channel,
		Uploader:    p.Uploader,
		Profiles:    p.DB,
		Devices:     p.DB,
		Sessions:    p.DB,
		Broadcaster: p.Bus,
		Notifier:    notifier,
	}, sender.Config{
		LocalPublicKey:  p.Identity.PublicKey(),
		SyncConcurrency: p.Config.SyncConcurrency,
	}, p.Logger)
}

func providePipeKeeper(cfg *config.Config, sw *transport.Switch, machine *status.Machine, logger *zap.Logger) *PipeKeeper {
	return NewPipeKeeper(cfg.PipeURL, sw, machine, logger)
}

func provideWorker(db *store.DB, s *sender.Sender, b *bus.Bus, id *sessionproto.Identity, logger *zap.Logger) *outbox.Worker {
	return outbox.NewWorker(db, s, b, id.PublicKey(), logger)
}

func provideService(p Params, db *store.DB, machine *status.Machine, b *bus.Bus) *api.Service {
	return api.NewService(p.SessionName, db, machine, b)
}

// ttlTable applies the configured overrides to the default table.
func ttlTable(c config.TTL) routing.TTLTable {
	t := routing.DefaultTTLTable()
	set := func(dst *time.Duration, d config.Duration) {
		if d.Duration > 0 {
			*dst = d.Duration
		}
	}
	set(&t.Regular, c.Regular)
	set(&t.Typing, c.Typing)
	set(&t.Receipt, c.Receipt)
	set(&t.SessionRequest, c.SessionRequest)
	set(&t.GroupControl, c.GroupControl)
	return t
}

type lifecycleParams struct {
	fx.In

	Server *Server
	Lock   *lock.Lock
	DB     *store.DB
	Redis  *redis.Client
	Keeper *PipeKeeper
	Worker *outbox.Worker
	Logger *zap.Logger
}

func registerLifecycle(lc fx.Lifecycle, p lifecycleParams) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			// Start gRPC server in background.
			go func() {
				if err := p.Server.Start(); err != nil {
					p.Logger.Error("gRPC server error", zap.Error(err))
				}
			}()

			p.Keeper.Start(context.Background())
			p.Worker.Start(context.Background())
			return nil
		},
		OnStop: func(ctx context.Context) error {
			p.Worker.Stop()
			p.Keeper.Stop()
			p.Server.Stop(ctx)
			if p.Redis != nil {
				if err := p.Redis.Close(); err != nil {
					p.Logger.Warn("error closing redis client", zap.Error(err))
				}
			}
			if err := p.DB.Close(); err != nil {
				p.Logger.Warn("error closing store", zap.Error(err))
			}
			if err := p.Lock.Release(); err != nil {
				p.Logger.Warn("error releasing lock", zap.Error(err))
			}
			p.Logger.Info("daemon stopped")
			return nil
		},
	})
}
