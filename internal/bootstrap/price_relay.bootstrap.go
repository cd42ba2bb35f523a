package bootstrap

import (
	"context"
	"errors"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/krobus00/price-relay/internal/config"
	"github.com/krobus00/price-relay/internal/constant"
	"github.com/krobus00/price-relay/internal/entity"
	relayHTTPHandler "github.com/krobus00/price-relay/internal/handler/relay/http"
	relayWSHandler "github.com/krobus00/price-relay/internal/handler/relay/ws"
	"github.com/krobus00/price-relay/internal/infrastructure"
	"github.com/krobus00/price-relay/internal/repository"
	"github.com/krobus00/price-relay/internal/service/feed"
	"github.com/krobus00/price-relay/internal/service/publisher"
	"github.com/krobus00/price-relay/internal/service/relay"
	"github.com/krobus00/price-relay/internal/service/symbol"
	"github.com/krobus00/price-relay/internal/util"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func StartPriceRelay(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	util.ContinueOrFatal(config.Env.Validate())
	relayCfg := config.Env.Relay

	var (
		relayDB    *sqlx.DB
		symbolRepo symbol.RelaySymbolRepository
		err        error
	)
	if relayCfg.SymbolSource == config.SymbolSourceDatabase {
		dbCfg := config.Env.Database["relay"]
		relayDB, err = infrastructure.NewPostgresConnection(ctx, dbCfg)
		util.ContinueOrFatal(err)
		infrastructure.StartPostgresHealthCheck(ctx, relayDB, dbCfg.PingInterval)
		symbolRepo = repository.NewRelaySymbolRepository(relayDB)
	}

	symbolSet, err := symbol.NewSymbolService(relayCfg, symbolRepo).Resolve(ctx)
	util.ContinueOrFatal(err)

	streamURL, err := feed.BuildStreamURL(relayCfg.UpstreamURL, symbolSet.Symbols, relayCfg.StreamSuffix)
	util.ContinueOrFatal(err)

	tickerPublishers := make([]entity.TickerPublisher, 0)
	var tickerReader relayHTTPHandler.TickerReader

	var redisClient *redis.Client
	if cacheDSN := config.Env.Redis["ticker_cache"].CacheDSN; cacheDSN != "" {
		redisClient, err = infrastructure.NewRedisClient(ctx, cacheDSN)
		util.ContinueOrFatal(err)

		tickerCacheRepo := repository.NewTickerCacheRepository(redisClient, relayCfg.TickerCacheTTL)
		tickerPublishers = append(tickerPublishers, tickerCacheRepo)
		tickerReader = tickerCacheRepo
	}

	var nc *nats.Conn
	if config.Env.NatsJetstream.URL != "" {
		var js nats.JetStreamContext
		nc, js, err = infrastructure.NewJetstream(config.Env.NatsJetstream)
		util.ContinueOrFatal(err)

		jetstreamPublisher := publisher.NewJetstreamTickerPublisher(js, config.ServiceName)

		publishers := make([]entity.Publisher, 0)
		publishers = append(publishers, jetstreamPublisher)
		for _, v := range publishers {
			err = v.JetstreamEventInit(ctx)
			util.ContinueOrFatal(err)
		}

		tickerPublishers = append(tickerPublishers, jetstreamPublisher)
	}

	var kafkaPublisher *publisher.KafkaTickerPublisher
	if brokers := config.Env.Kafka.Brokers; len(brokers) > 0 {
		kafkaWriter := publisher.NewKafkaWriter(brokers, config.Env.Kafka.Topic)
		kafkaPublisher = publisher.NewKafkaTickerPublisher(kafkaWriter, config.ServiceName)
		tickerPublishers = append(tickerPublishers, kafkaPublisher)
	}

	registry := relay.NewRegistry(symbolSet.DefaultSymbol)
	relayService := relay.NewRelay(
		relay.NewRouter(registry),
		relay.WithPublishers(tickerPublishers...),
		relay.WithPublishTimeout(relayCfg.PublishTimeout),
		relay.WithPublishQueueSize(relayCfg.PublishQueueSize),
	)

	var (
		grpcServer     *infrastructure.GRPCHealthServer
		upstreamHealth servingSetter
	)
	if grpcPort := config.Env.Port["grpc"]; grpcPort != "" {
		grpcServer, err = infrastructure.NewGRPCHealthServer(grpcPort, constant.UpstreamHealthService)
		util.ContinueOrFatal(err)
		upstreamHealth = grpcServer

		go func() {
			if err := grpcServer.Start(); err != nil {
				logrus.Error(err)
			}
		}()
	}

	feedClient := feed.NewClient(feed.Config{
		URL:              streamURL,
		ReconnectDelay:   relayCfg.ReconnectDelay,
		PingInterval:     relayCfg.PingInterval,
		HandshakeTimeout: relayCfg.HandshakeTimeout,
	}, relayService.HandleFrame, feed.WithStateObserver(upstreamStateObserver(upstreamHealth)))

	wsHandler := relayWSHandler.NewRelayWSHandler(registry, relayWSHandler.Config{
		SendBufferSize: relayCfg.SendBufferSize,
		WriteTimeout:   relayCfg.WriteTimeout,
		AllowedOrigins: relayCfg.AllowedOrigins,
	})
	httpHandler := relayHTTPHandler.NewRelayHTTPHandler(registry, feedClient, symbolSet.Symbols, tickerReader)

	httpMux := http.NewServeMux()
	wsHandler.Register(httpMux, relayCfg.WSPath)
	httpHandler.Register(httpMux)

	httpServer := infrastructure.NewHTTPServer(httpMux)
	go func() {
		if err := httpServer.Start(); err != nil {
			logrus.Error(err)
		}
	}()

	go func() {
		if err := feedClient.Run(ctx); err != nil {
			logrus.Error(err)
		}
	}()

	logrus.WithFields(logrus.Fields{
		"upstream":       streamURL,
		"ws_path":        relayCfg.WSPath,
		"default_symbol": symbolSet.DefaultSymbol,
	}).Info("price relay started")

	ops := map[string]operation{
		"upstream feed": func(ctx context.Context) error {
			cancel()
			feedClient.Stop()
			return nil
		},
		"http": func(ctx context.Context) error {
			return httpServer.Shutdown(ctx)
		},
		"downstream clients": func(ctx context.Context) error {
			wsHandler.CloseAll()
			return nil
		},
	}
	if grpcServer != nil {
		ops["grpc"] = func(ctx context.Context) error {
			return grpcServer.Shutdown(ctx)
		}
	}
	ops["ticker mirrors"] = func(ctx context.Context) error {
		// queued updates are flushed before their sinks close
		relayService.Close()

		closers := make([]func() error, 0)
		if redisClient != nil {
			closers = append(closers, func() error { return infrastructure.CloseRedis(redisClient) })
		}
		if nc != nil {
			closers = append(closers, func() error { return infrastructure.CloseJetstream(nc) })
		}
		if kafkaPublisher != nil {
			closers = append(closers, kafkaPublisher.Close)
		}

		var errs []error
		for _, closeFn := range closers {
			if err := closeFn(); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
	if relayDB != nil {
		ops["relay database"] = func(ctx context.Context) error {
			return infrastructure.ClosePostgres(relayDB)
		}
	}

	wait := gracefulShutdown(ctx, config.Env.GracefulShutdownTimeout, ops)

	<-wait
}

type servingSetter interface {
	SetServing(serving bool)
}

// upstreamStateObserver mirrors the feed state into the grpc health status.
func upstreamStateObserver(health servingSetter) func(feed.State) {
	return func(state feed.State) {
		if health == nil {
			return
		}
		health.SetServing(state == feed.StateConnected)
	}
}
