package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.dedis.ch/kyber/v4"

	"blockjack-backend/internal/blockjack"
	"blockjack-backend/internal/confidential"
	"blockjack-backend/internal/config"
	"blockjack-backend/internal/handlers"
	"blockjack-backend/internal/models"
	"blockjack-backend/internal/services"
)

func runServe(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	redisService, closeRedis, err := openRedis(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeRedis()

	var nc *nats.Conn
	if cfg.BridgeMode == config.BridgeNATS {
		nc, err = confidential.Connect(cfg.NATSURL, "blockjack-api")
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		defer nc.Close()
	}

	hub := handlers.NewWebSocketHub(log)
	go hub.Run(ctx)

	history := services.NewHistoryRecorder(redisService, log)
	historyDone := make(chan struct{})
	go func() {
		defer close(historyDone)
		history.Run(ctx)
	}()
	defer func() {
		cancel()
		<-historyDone
	}()

	notifiers := blockjack.Notifiers{
		services.NewEventBroadcaster(hub),
		history,
	}
	if nc != nil {
		notifiers = append(notifiers, confidential.NewEventPublisher(nc, log))
	}

	naive := blockjack.NewEngine[blockjack.Card](string(models.VariantNaive),
		services.NewRedisGameStore[blockjack.Card](redisService.Client(), string(models.VariantNaive)),
		blockjack.PlainResolver{}, blockjack.PlainCodec{}, blockjack.NaiveRules,
		engineOptions(cfg, log, notifiers, "naive")...,
	)

	var (
		pub      kyber.Point
		bridge   confidential.Bridge
		revealer confidential.Revealer
		start    func(secure *blockjack.Engine[confidential.Ciphertext]) error
	)
	switch cfg.BridgeMode {
	case config.BridgeNATS:
		if pub, err = bridgePublicKey(cfg); err != nil {
			return err
		}
		nb := confidential.NewNATSBridge(nc, log)
		bridge, revealer = nb, nb
		start = func(secure *blockjack.Engine[confidential.Ciphertext]) error {
			_, err := nb.Listen(ctx, secure.Resume)
			return err
		}
	default:
		kp, err := localOracleKey(cfg, log)
		if err != nil {
			return err
		}
		pub = kp.Public
		lb := confidential.NewLocalBridge(confidential.NewOracle(kp), cfg.BridgeQueueSize, log)
		bridge, revealer = lb, lb
		start = func(secure *blockjack.Engine[confidential.Ciphertext]) error {
			go lb.Run(ctx, secure.Resume)
			return nil
		}
	}

	secure := blockjack.NewEngine[confidential.Ciphertext](string(models.VariantSecure),
		services.NewRedisGameStore[confidential.Ciphertext](redisService.Client(), string(models.VariantSecure)),
		confidential.NewBridgeResolver(bridge), confidential.NewSealer(pub), blockjack.SecureRules,
		engineOptions(cfg, log, notifiers, "secure")...,
	)
	if err := start(secure); err != nil {
		return fmt.Errorf("failed to start bridge: %w", err)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handlers.NewRouter(handlers.RouterConfig{
		Games:           services.NewGameService(naive, secure, revealer, redisService, log),
		Redis:           redisService,
		JWT:             services.NewJWTService(cfg),
		Hub:             hub,
		Log:             log,
		RateLimit:       cfg.RateLimitActions,
		RateLimitWindow: cfg.RateLimitWindow,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{
			"port":     cfg.Port,
			"store":    cfg.Store,
			"bridge":   cfg.BridgeMode,
			"planting": cfg.AllowPlanting,
		}).Info("server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	log.Info("server shutting down")
	return srv.Shutdown(shutdownCtx)
}

// openRedis connects to Redis, or starts an in-process instance when the
// memory store is selected.
func openRedis(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*services.RedisService, func(), error) {
	if cfg.Store == config.StoreMemory {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to start in-memory redis: %w", err)
		}
		log.Warn("using in-memory store, games are lost on restart")
		svc := services.NewRedisServiceFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
		return svc, func() {
			svc.Close()
			mr.Close()
		}, nil
	}

	svc, err := services.NewRedisService(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return svc, func() { svc.Close() }, nil
}

func engineOptions(cfg *config.Config, log logrus.FieldLogger, n blockjack.Notifier, variant string) []blockjack.Option {
	opts := []blockjack.Option{
		blockjack.WithLogger(log),
		blockjack.WithNotifier(n),
		blockjack.WithPlanting(cfg.AllowPlanting),
	}
	if cfg.ShuffleSeed != "" {
		opts = append(opts, blockjack.WithRand(blockjack.NewSeededRand([]byte(cfg.ShuffleSeed+":"+variant))))
	}
	return opts
}

// bridgePublicKey is the key the API seals to when the oracle runs
// elsewhere.
func bridgePublicKey(cfg *config.Config) (kyber.Point, error) {
	if cfg.BridgePublicKey != "" {
		return confidential.ParsePublicKey(cfg.BridgePublicKey)
	}
	kp, err := confidential.ParseSecretKey(cfg.OracleSecretKey)
	if err != nil {
		return nil, err
	}
	return kp.Public, nil
}

func localOracleKey(cfg *config.Config, log logrus.FieldLogger) (confidential.KeyPair, error) {
	if cfg.OracleSecretKey != "" {
		return confidential.ParseSecretKey(cfg.OracleSecretKey)
	}
	log.Warn("ORACLE_SECRET_KEY not set, sealing with a throwaway key")
	return confidential.GenerateKeyPair(), nil
}
