package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf"
	"github.com/jellydator/ttlcache/v3"
	"github.com/nervoshalving/countdown-service/business/domain/countdown"
	"github.com/nervoshalving/countdown-service/business/domain/halving"
	"github.com/nervoshalving/countdown-service/entities"
	"github.com/nervoshalving/countdown-service/external/ckbrpc"
	"github.com/nervoshalving/countdown-service/external/kafka"
	"github.com/nervoshalving/countdown-service/infrastructure/api"
	"github.com/nervoshalving/countdown-service/infrastructure/metrics"
	"github.com/nervoshalving/countdown-service/infrastructure/rpc"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

const envPrefix = "CKB_HALVING_COUNTDOWN"

var build = "develop"

func main() {
	if err := run(); err != nil {
		log.Fatalf("main: exited with error: %s", err.Error())
	}
}

func run() error {
	config := zap.NewProductionConfig()
	// this is just for sugar, to display a readable date instead of an epoch time
	config.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.DateTime)

	logger, err := config.Build()
	if err != nil {
		return errors.Wrap(err, "creating logger")
	}
	defer logger.Sync()
	sLogger := logger.Sugar()

	var cfg struct {
		conf.Version
		Node struct {
			Url         string        `conf:"default:https://mainnet.ckb.dev/rpc"`
			Method      string        `conf:"default:get_tip_header,help:get_tip_header or get_blockchain_info"`
			PollTimeout time.Duration `conf:"default:10s"`
		}
		Countdown struct {
			FastTick         time.Duration `conf:"default:500ms"`
			PartialRefresh   time.Duration `conf:"default:11s"`
			FullRefresh      time.Duration `conf:"default:5m"`
			EpochsPerHalving uint64        `conf:"default:8760"`
			HoursPerEpoch    float64       `conf:"default:4"`
			TimeZone         string        `conf:"default:Local,help:IANA name used for the target date sentence"`
		}
		Server struct {
			HttpHost        string        `conf:"default:0.0.0.0:8000"`
			GrpcHost        string        `conf:"default:0.0.0.0:8001"`
			MetricsHttpHost string        `conf:"default:0.0.0.0:9999"`
			CacheTtl        time.Duration `conf:"default:250ms"`
			RequestTimeout  time.Duration `conf:"default:5s"`
		}
		Metrics struct {
			Namespace string `conf:"default:halving_countdown"`
		}
		Kafka struct {
			BootstrapServers []string `conf:"help:publishing is disabled when empty"`
			TargetTopic      string   `conf:"default:ckb-halving-targets"`
		}
	}
	cfg.Version.SVN = build
	cfg.Version.Desc = "CKB halving countdown service"

	if err := conf.Parse(os.Args[1:], envPrefix, &cfg); err != nil {
		switch {
		case errors.Is(err, conf.ErrHelpWanted):
			usage, err := conf.Usage(envPrefix, &cfg)
			if err != nil {
				return errors.Wrap(err, "generating config usage")
			}
			fmt.Println(usage)
			return nil
		case errors.Is(err, conf.ErrVersionWanted):
			version, err := conf.VersionString(envPrefix, &cfg)
			if err != nil {
				return errors.Wrap(err, "generating config version")
			}
			fmt.Println(version)
			return nil
		}
		return errors.Wrap(err, "parsing config")
	}

	out, err := conf.String(&cfg)
	if err != nil {
		return errors.Wrap(err, "generating config for output")
	}
	sLogger.Infof("main: Config :\n%v\n", out)

	location, err := time.LoadLocation(cfg.Countdown.TimeZone)
	if err != nil {
		return errors.Wrapf(err, "loading time zone [%s]", cfg.Countdown.TimeZone)
	}

	nodeClient, err := ckbrpc.NewClient(cfg.Node.Url, cfg.Node.Method, cfg.Node.PollTimeout)
	if err != nil {
		return errors.Wrap(err, "creating node client")
	}
	sLogger.Infow("main: Polling node", "node", nodeClient.String())

	m := metrics.NewMetrics(cfg.Metrics.Namespace)
	scheduler := countdown.NewScheduler(nodeClient, halving.Schedule{
		EpochsPerHalving: cfg.Countdown.EpochsPerHalving,
		HoursPerEpoch:    cfg.Countdown.HoursPerEpoch,
	}, m, sLogger, countdown.Config{
		FastTick:       cfg.Countdown.FastTick,
		PartialRefresh: cfg.Countdown.PartialRefresh,
		FullRefresh:    cfg.Countdown.FullRefresh,
		PollTimeout:    cfg.Node.PollTimeout,
		Location:       location,
		Now:            time.Now,
	})

	if len(cfg.Kafka.BootstrapServers) > 0 {
		kcl, err := kgo.NewClient(
			kgo.DefaultProduceTopic(cfg.Kafka.TargetTopic),
			kgo.SeedBrokers(cfg.Kafka.BootstrapServers...),
			kgo.ProducerBatchCompression(kgo.ZstdCompression()),
		)
		if err != nil {
			return errors.Wrap(err, "creating kafka client")
		}
		defer kcl.Close()
		scheduler.SetListener(kafka.NewClient(kcl, sLogger))
	} else {
		sLogger.Warnw("main: kafka publishing disabled")
	}

	displayCache := ttlcache.New[string, entities.Display](
		ttlcache.WithTTL[string, entities.Display](cfg.Server.CacheTtl),
		ttlcache.WithDisableTouchOnHit[string, entities.Display](),
	)
	go displayCache.Start()
	defer displayCache.Stop()

	mux := http.NewServeMux()
	api.NewHandler(api.NewDisplayCache(scheduler, displayCache), cfg.Server.RequestTimeout, sLogger).RegisterRoutes(mux)
	httpServer := &http.Server{Addr: cfg.Server.HttpHost, Handler: mux}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{Addr: cfg.Server.MetricsHttpHost, Handler: metricsMux}

	healthServer := rpc.NewHealthServer(cfg.Server.GrpcHost, sLogger)
	serverError := make(chan error, 1)
	if err := healthServer.Start(serverError); err != nil {
		return errors.Wrap(err, "starting grpc server")
	}
	defer healthServer.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return scheduler.Run(ctx)
	})
	g.Go(func() error {
		healthServer.WatchLoaded(ctx, scheduler.Loaded())
		return nil
	})
	g.Go(func() error {
		sLogger.Infow("main: Starting http server", "addr", cfg.Server.HttpHost)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "serving http")
		}
		return nil
	})
	g.Go(func() error {
		sLogger.Infow("main: Starting metrics server", "addr", cfg.Server.MetricsHttpHost)
		if err := metricsServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "serving metrics")
		}
		return nil
	})
	g.Go(func() error {
		select {
		case err := <-serverError:
			return err
		case <-ctx.Done():
			return nil
		}
	})
	g.Go(func() error {
		<-ctx.Done()
		sLogger.Infow("main: Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutting down http server")
		}
		return errors.Wrap(metricsServer.Shutdown(shutdownCtx), "shutting down metrics server")
	})

	sLogger.Infow("main: Service started")
	return g.Wait()
}
