package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/denhac/spacebot"
	"github.com/denhac/spacebot/membership"
	"github.com/denhac/spacebot/pkg/eventstream"
	"github.com/denhac/spacebot/pkg/membershipapi"
	"github.com/denhac/spacebot/pkg/projection"
	"github.com/denhac/spacebot/provider/inmemorystore"
	"github.com/denhac/spacebot/provider/leveldbstore"
	"github.com/denhac/spacebot/provider/postgresstore"
	"github.com/denhac/spacebot/provider/sqlitestore"
)

const (
	httpTimeout = 10 * time.Second
)

func main() {
	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ExitOnError)

	port := flag.Int("port", 8080, "port")
	levelDBPath := flag.String("levelDBPath", "", "path to LevelDB directory")
	sqlitePath := flag.String("sqlitePath", "", "path to SQLite database file")
	gRPCPort := flag.Int("gRPCPort", 8081, "gRPC port")
	dev := flag.Bool("dev", false, "development logging")
	flag.Parse()

	logger, err := newLogger(*dev)
	if err != nil {
		log.Fatalf("unable to build logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := setupTracing(ctx)
	if err != nil {
		logger.Fatal("unable to set up tracing", zap.Error(err))
	}

	store, closeStore, err := getStore(*sqlitePath, *levelDBPath, logger)
	if err != nil {
		logger.Fatal("unable to get store", zap.Error(err))
	}

	app := membership.New(store, membership.WithLogger(logger))
	members := membership.NewMembersProjection()
	aggregateTypeStats := projection.NewAggregateTypeStats()

	totalEvents, err := projection.Replay(ctx, store, members, aggregateTypeStats)
	if err != nil {
		logger.Fatal("unable to replay projections", zap.Error(err))
	}
	logger.Info("replayed projections", zap.Uint64("totalEvents", totalEvents))

	err = store.Subscribe(ctx, members, aggregateTypeStats)
	if err != nil {
		logger.Fatal("unable to subscribe projections", zap.Error(err))
	}

	api := membershipapi.New(app, members,
		membershipapi.WithLogger(logger),
		membershipapi.WithAggregateTypeStats(aggregateTypeStats),
	)

	websocketAPI, err := eventstream.New(store, eventstream.WithLogger(logger))
	if err != nil {
		logger.Fatal("unable to create event stream", zap.Error(err))
	}

	router := mux.NewRouter()
	router.PathPrefix("/api/").Handler(http.StripPrefix("/api", api))
	router.PathPrefix("/ws/").Handler(http.StripPrefix("/ws", websocketAPI))

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("0.0.0.0:%d", *port),
		ReadTimeout:  httpTimeout + time.Second,
		WriteTimeout: httpTimeout + time.Second,
		Handler:      router,
	}

	healthServer := health.NewServer()
	gRPCServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
	)
	grpc_health_v1.RegisterHealthServer(gRPCServer, healthServer)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return serveHTTP(httpServer, logger)
	})
	group.Go(func() error {
		return serveGRPC(gRPCServer, *gRPCPort, logger)
	})
	group.Go(func() error {
		<-groupCtx.Done()

		logger.Info("shutting down gRPC server")
		healthServer.Shutdown()
		gRPCServer.GracefulStop()

		logger.Info("shutting down event stream")
		websocketAPI.Stop()

		logger.Info("shutting down HTTP server")
		shutdownCtx, done := context.WithTimeout(context.Background(), httpTimeout)
		defer done()
		return httpServer.Shutdown(shutdownCtx)
	})

	err = group.Wait()
	if err != nil {
		logger.Error("server stopped", zap.Error(err))
	}

	logger.Info("shutting down store")
	err = closeStore()
	if err != nil {
		logger.Error("unable to close store", zap.Error(err))
	}

	err = shutdownTracing(context.Background())
	if err != nil {
		logger.Error("unable to flush traces", zap.Error(err))
	}
}

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}

	return zap.NewProduction()
}

func getStore(sqlitePath, levelDBPath string, logger *zap.Logger) (spacebot.Store, func() error, error) {
	postgreSQLConfig, err := postgresstore.NewConfigFromEnvironment()
	if err == nil {
		postgresStore, err := postgresstore.New(
			postgreSQLConfig,
			postgresstore.WithLogger(logger),
		)
		if err != nil {
			return nil, nil, err
		}

		err = postgresStore.InitDB()
		if err != nil {
			_ = postgresStore.CloseDB()
			return nil, nil, err
		}

		logger.Info("using PostgreSQL store", zap.String("host", postgreSQLConfig.Host))
		return postgresStore, postgresStore.CloseDB, nil
	}

	if sqlitePath != "" {
		sqliteStore, err := sqlitestore.New(sqlitePath, sqlitestore.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}

		logger.Info("using SQLite store", zap.String("path", sqlitePath))
		return sqliteStore, sqliteStore.Close, nil
	}

	if levelDBPath != "" {
		levelDBStore, err := leveldbstore.New(levelDBPath, leveldbstore.WithLogger(logger))
		if err != nil {
			return nil, nil, fmt.Errorf("unable to load db (%s): %w", levelDBPath, err)
		}

		logger.Info("using LevelDB store", zap.String("path", levelDBPath))
		return levelDBStore, levelDBStore.Stop, nil
	}

	logger.Info("using in memory store")
	return inmemorystore.New(inmemorystore.WithLogger(logger)), nilFunc, nil
}

func nilFunc() error {
	return nil
}

func serveHTTP(srv *http.Server, logger *zap.Logger) error {
	logger.Info("listening", zap.String("address", "http://"+srv.Addr+"/"))
	err := srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}

	return nil
}

func serveGRPC(srv *grpc.Server, gRPCPort int, logger *zap.Logger) error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", gRPCPort))
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", gRPCPort, err)
	}

	logger.Info("gRPC health listening", zap.Int("port", gRPCPort))
	return srv.Serve(listener)
}
