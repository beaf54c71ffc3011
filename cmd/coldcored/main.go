// coldcored is the demo controller runtime: it boots the plant module set
// from its manifests, then runs the cooperative tick loop alongside the
// watchdog, the config watcher and the diagnostics HTTP server.
//
// All registry mutation (ticks, reloads, watchdog restarts) is funneled into
// the single control loop below; the watcher and watchdog only enqueue work.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frostdyne/coldcore"
	"github.com/frostdyne/coldcore/configwatch"
	"github.com/frostdyne/coldcore/httpapi"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the controller config file")
	listenAddr := flag.String("listen", ":8321", "diagnostics listen address")
	development := flag.Bool("dev", false, "use development logging")
	flag.Parse()

	logger, err := newZapLogger(*development)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	tree, err := coldcore.LoadConfigFile(*configPath)
	if err != nil {
		logger.Error("Failed to load config", "path", *configPath, "error", err)
		os.Exit(1)
	}

	broker := coldcore.NewEventBroker(logger)
	_ = broker.RegisterObserver(coldcore.NewFunctionalObserver("event-log",
		func(ctx context.Context, event coldcore.CloudEvent) error {
			logger.Info("Core event", "type", event.Type(), "source", event.Source())
			return nil
		}))

	// Restart requests from the watchdog are queued for the control loop
	// rather than applied on the cron timeline; the callback reports
	// acceptance.
	restartQueue := make(chan string, 8)
	watchdog := coldcore.NewWatchdog(logger,
		coldcore.WithWatchdogSubject(broker),
		coldcore.WithRestart(func(name string) bool {
			select {
			case restartQueue <- name:
				return true
			default:
				return false
			}
		}),
	)

	orch := coldcore.NewOrchestrator(logger,
		coldcore.WithManifests(plantManifests()),
		coldcore.WithWatchdog(watchdog),
		coldcore.WithSubject(broker),
	)

	if err := orch.RegisterFromManifests(newPlantFactory(logger)); err != nil {
		logger.Error("Module registration failed", "error", err)
		os.Exit(1)
	}
	orch.ConfigureAll(tree)
	if err := orch.InitAll(context.Background()); err != nil {
		logger.Error("Controller startup aborted", "error", err)
		os.Exit(1)
	}

	registrar := httpapi.NewRegistrar(logger)
	orch.RegisterAPIs(registrar)
	registrar.MountDiagnostics(orch, watchdog)
	srv := &http.Server{
		Addr:              *listenAddr,
		Handler:           registrar.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Diagnostics server failed", "error", err)
		}
	}()

	reloadQueue := make(chan *coldcore.ConfigTree, 1)
	watcher := configwatch.New(*configPath, logger, func(tree *coldcore.ConfigTree) {
		select {
		case reloadQueue <- tree:
		default:
		}
	})
	if err := watcher.Start(); err != nil {
		logger.Warn("Config watching disabled", "error", err)
	}

	if err := watchdog.Start(); err != nil {
		logger.Error("Failed to start watchdog", "error", err)
		os.Exit(1)
	}

	tickInterval := 10 * time.Millisecond
	tickBudget := 8 * time.Millisecond
	if sched, ok := tree.Section("scheduler"); ok {
		tickInterval = sched.GetDuration("tick_interval", tickInterval)
		tickBudget = sched.GetDuration("tick_budget", tickBudget)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	logger.Info("Controller running", "tickInterval", tickInterval, "tickBudget", tickBudget)

run:
	for {
		select {
		case <-ticker.C:
			orch.TickAll(tickBudget)
		case name := <-restartQueue:
			if !orch.RestartModule(name) {
				logger.Error("Watchdog-requested restart failed", "module", name)
			}
		case tree := <-reloadQueue:
			for _, name := range orch.ModuleNames() {
				section, ok := tree.Section(orch.SectionFor(name))
				if !ok {
					continue
				}
				if err := orch.Reload(name, section); err != nil {
					logger.Error("Module reload failed", "module", name, "error", err)
				}
			}
		case sig := <-sigChan:
			logger.Info("Received signal, shutting down", "signal", sig.String())
			break run
		}
	}

	watcher.Stop()
	watchdog.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Diagnostics server shutdown failed", "error", err)
	}

	orch.ShutdownAll()
	report := orch.HealthReport()
	logger.Info("Controller stopped", "systemScore", report.SystemScore)
}
