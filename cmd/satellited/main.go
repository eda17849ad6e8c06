// Command satellited runs the on-device satellite modem controller. It
// wires a modem endpoint (simulated or remote), dependent-radio
// tracking and persistent settings into the controller, then exposes
// the control surface over HTTP.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/satcom-control/satcom-go/internal/config"
	"github.com/satcom-control/satcom-go/internal/httpapi"
	"github.com/satcom-control/satcom-go/internal/version"
	"github.com/satcom-control/satcom-go/pkg/controller"
	"github.com/satcom-control/satcom-go/pkg/metrics"
	"github.com/satcom-control/satcom-go/pkg/modem"
	"github.com/satcom-control/satcom-go/pkg/modem/remote"
	"github.com/satcom-control/satcom-go/pkg/persistence"
	"github.com/satcom-control/satcom-go/pkg/radios"
	"github.com/satcom-control/satcom-go/pkg/radios/bluez"
	"github.com/satcom-control/satcom-go/pkg/satellite"
)

var (
	flagConfig   string
	flagHTTPAddr string
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:     "satellited",
	Short:   "Satellite modem controller daemon",
	Version: version.Version,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cmd.SilenceUsage = true
		return run()
	},
}

func init() {
	rootCmd.Flags().StringVarP(&flagConfig, "config", "c", "", "configuration file (YAML)")
	rootCmd.Flags().StringVar(&flagHTTPAddr, "http-addr", "", "HTTP listen address (overrides config)")
	rootCmd.Flags().StringVar(&flagLogLevel, "log-level", "", "log level (overrides config)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "satellited: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Default()
	if flagConfig != "" {
		loaded, err := config.Load(flagConfig)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if flagHTTPAddr != "" {
		cfg.HTTPAddr = flagHTTPAddr
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	endpoint, err := buildEndpoint(ctx, cfg, log)
	if err != nil {
		return err
	}

	tracker := buildRadios(ctx, cfg, log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	httpapi.RegisterMetrics(reg)
	sink := metrics.NewPrometheus(reg)

	ctrl, err := controller.New(controller.Deps{
		Endpoint: endpoint,
		Radios:   tracker,
		Store:    persistence.NewFileStore(cfg.SettingsPath),
		Metrics:  sink,
		Pointing: logLauncher{log: log},
		Log:      log,
	}, controller.Config{})
	if err != nil {
		return err
	}
	ctrl.Start()
	defer ctrl.Close()

	if cfg.Serve.Enabled {
		shutdown, err := serveEndpoint(cfg, endpoint, log)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	httpSrv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: httpapi.NewHandler(ctrl, log, reg),
	}
	httpErr := make(chan error, 1)
	go func() { httpErr <- httpSrv.ListenAndServe() }()
	log.Info().Str("addr", cfg.HTTPAddr).Str("backend", cfg.Modem.Backend).
		Str("version", version.Version).Msg("satellited running")

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err := <-httpErr:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// logLauncher stands in for the device pointing UI, which has no
// counterpart on a development host.
type logLauncher struct {
	log zerolog.Logger
}

func (l logLauncher) StartUI(fullScreen bool) {
	l.log.Info().Bool("fullScreen", fullScreen).Msg("pointing UI start requested")
}

func (l logLauncher) StopUI() {
	l.log.Info().Msg("pointing UI stop requested")
}

func buildEndpoint(ctx context.Context, cfg config.Config, log zerolog.Logger) (modem.Endpoint, error) {
	switch cfg.Modem.Backend {
	case config.BackendSimulated:
		return modem.NewSimulated(modem.SimConfig{
			Supported:   true,
			Provisioned: cfg.Modem.Provisioned,
			Capabilities: satellite.Capabilities{
				Technologies:        []satellite.RadioTechnology{satellite.TechnologyProprietary},
				PointingRequired:    cfg.Modem.PointingRequired,
				MaxBytesPerDatagram: 255,
			},
			CommunicationAllowed: true,
			NextVisibility:       30 * time.Second,
		}), nil

	case config.BackendRemote:
		address := cfg.Modem.Address
		if address == "" {
			log.Info().Msg("no modem address configured, browsing mDNS")
			svc, err := remote.FindFirst(ctx, 10*time.Second)
			if err != nil {
				return nil, fmt.Errorf("modem discovery: %w", err)
			}
			address = svc.Address()
			log.Info().Str("instance", svc.InstanceName).Str("address", address).
				Msg("discovered modem endpoint")
		}
		return remote.Dial(ctx, address, log)

	default:
		return nil, fmt.Errorf("unknown modem backend %q", cfg.Modem.Backend)
	}
}

func buildRadios(ctx context.Context, cfg config.Config, log zerolog.Logger) *radios.Tracker {
	tracker := radios.NewTracker(log)
	if !cfg.Radios.WatchBluetooth {
		return tracker
	}

	source, err := bluez.New(log)
	if err != nil {
		// The daemon still works without radio tracking; enable requests
		// just settle immediately.
		log.Warn().Err(err).Msg("bluez unavailable, bluetooth not tracked")
		return tracker
	}
	if powered, err := source.Powered(); err == nil {
		tracker.SetDependency(radios.RadioBluetooth, true, powered)
	} else {
		tracker.SetDependency(radios.RadioBluetooth, true, false)
	}
	go func() {
		defer source.Close()
		if err := source.Watch(ctx, tracker.Update); err != nil && ctx.Err() == nil {
			log.Warn().Err(err).Msg("bluetooth watch ended")
		}
	}()
	return tracker
}

func serveEndpoint(cfg config.Config, endpoint modem.Endpoint, log zerolog.Logger) (shutdown func(), err error) {
	port := cfg.Serve.Port
	if port == 0 {
		port = remote.DefaultPort
	}
	srv := remote.NewServer(endpoint, log)
	go func() {
		addr := fmt.Sprintf(":%d", port)
		if err := srv.ListenAndServe(addr); err != nil {
			log.Warn().Err(err).Msg("endpoint server stopped")
		}
	}()

	var announcer *remote.Announcer
	if cfg.Serve.Announce {
		hostname, _ := os.Hostname()
		announcer, err = remote.Announce("satmodem-"+hostname, port, []string{"version=" + version.Version})
		if err != nil {
			srv.Close()
			return nil, fmt.Errorf("mDNS announce: %w", err)
		}
	}

	return func() {
		if announcer != nil {
			announcer.Shutdown()
		}
		srv.Close()
	}, nil
}
