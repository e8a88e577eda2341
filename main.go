package main

import (
	"context"
	"crypto/rand"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/CodedInternet/gomotor/comms"
	"github.com/CodedInternet/gomotor/onboard"
	"github.com/CodedInternet/gomotor/onboard/app"
	"github.com/CodedInternet/gomotor/onboard/canbus"
)

type EnvConfig struct {
	CONFIG     string `env:"CONFIG" envDefault:"./motors.yaml"`
	DEBUG      bool   `env:"DEBUG" envDefault:"false"`
	SIMULATED  bool   `env:"SIMULATED" envDefault:"false"`
	PORT       string `env:"PORT" envDefault:"0.0.0.0:80"`
	JWT_SECRET string `env:"JWT_SECRET"`
	JWT_ISSUER string `env:"JWT_ISSUER" envDefault:"DEV"`

	Config    *onboard.MotorConfig
	Device    onboard.MotorDevice
	Conductor *comms.Conductor
	Logger    *zap.SugaredLogger
	jwtSecret []byte
}

var (
	ENV *EnvConfig
)

func init() {
	ENV = new(EnvConfig)
	if err := env.Parse(ENV); err != nil {
		panic(err)
	}
	ENV.Logger = zap.NewNop().Sugar()

	if ENV.JWT_SECRET != "" {
		ENV.jwtSecret = []byte(ENV.JWT_SECRET)
	} else {
		// tokens only live as long as the process
		ENV.jwtSecret = make([]byte, 32)
		if _, err := rand.Read(ENV.jwtSecret); err != nil {
			panic(err)
		}
	}
}

func newLogger(debug bool) (*zap.SugaredLogger, error) {
	var logger *zap.Logger
	var err error
	if debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

func newRouter() chi.Router {
	r := chi.NewRouter()

	// A good base middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.RedirectSlashes)
	r.Use(middleware.Recoverer) // make sure this is last

	r.Route("/api", func(r chi.Router) {
		r.Post("/login", Login)

		r.Group(func(r chi.Router) {
			// Seek, verify and validate JWT tokens
			r.Use(ValidateJWT)

			r.Get("/refresh_token", JWTRefresh)
			r.Get("/groups", ListGroups)
			r.Get("/groups/{group}", GetGroup)
			r.Post("/groups/{group}/motors/{index}/current", SetCurrent)
			r.Post("/stop", StopAll)
		})
	})

	r.Route("/ws", func(r chi.Router) {
		if !ENV.DEBUG {
			r.Use(ValidateJWT)
		}
		r.Get("/state", StreamHandler)
	})

	return r
}

func main() {
	// process flags, they override the environment
	simulated := flag.Bool("sim", ENV.SIMULATED, "Run the device against simulated motors")
	port := flag.String("port", ENV.PORT, "Specify the ip:port to listen on")
	configFile := flag.String("config", ENV.CONFIG, "Motor configuration file")
	withShell := flag.Bool("shell", false, "Start the development shell")
	flag.Parse()

	logger, err := newLogger(ENV.DEBUG)
	if err != nil {
		panic(fmt.Sprintf("Unable to create logger: %v", err))
	}
	defer logger.Sync()
	ENV.Logger = logger
	ENV.SIMULATED = *simulated

	if ENV.DEBUG {
		logger.Warn("Running in debug mode. Stream authentication disabled.")
	}
	if ENV.JWT_SECRET == "" {
		logger.Warn("JWT_SECRET not set, tokens will not survive a restart")
	}

	config, err := onboard.LoadConfig(*configFile)
	if err != nil {
		logger.Fatalw("unable to load config", "file", *configFile, "error", err)
	}
	ENV.Config = config

	manager := app.NewManager(
		app.WithLogger(logger.Named("app")),
		app.WithPeriods(config.UpdatePeriod(), config.MonitorPeriod()))

	hw := canbus.NewRegistry()
	defer func() {
		if err := hw.Close(); err != nil {
			logger.Errorw("unable to close buses", "error", err)
		}
	}()

	var opener canbus.Opener = canbus.SocketCAN
	if ENV.SIMULATED {
		sim := onboard.NewSimulator(config.UpdatePeriod(), logger.Named("sim"))
		manager.Register(sim)
		opener = sim.Open
	}

	device, err := onboard.NewDevice(config, hw, opener, manager, logger.Named("device"))
	if err != nil {
		logger.Fatalw("unable to initialise device", "error", err)
	}
	defer device.Stop()
	ENV.Device = device

	ENV.Conductor = comms.NewConductor(device, config.StreamPeriod(), logger.Named("stream"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := manager.Run(ctx); err != context.Canceled {
			return err
		}
		return nil
	})

	g.Go(func() error {
		if err := ENV.Conductor.UpdateClients(ctx); err != context.Canceled {
			return err
		}
		return nil
	})

	srv := &http.Server{Addr: *port, Handler: newRouter()}
	g.Go(func() error {
		logger.Infow("listening", "addr", *port, "simulated", ENV.SIMULATED)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	if *withShell {
		go newShell(device).Start()
	}

	if err := g.Wait(); err != nil {
		logger.Errorw("stopped", "error", err)
		return
	}
	logger.Info("stopped")
}
