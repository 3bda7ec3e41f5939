package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/qashinka/PoseLockTool/internal/db"
	"github.com/qashinka/PoseLockTool/internal/driver"
	"github.com/qashinka/PoseLockTool/internal/hostsim"
	"github.com/qashinka/PoseLockTool/internal/monitor"
	"github.com/qashinka/PoseLockTool/internal/telemetry"
	"github.com/qashinka/PoseLockTool/internal/version"
)

var (
	listen       = flag.String("listen", ":8080", "Listen address for the monitor server")
	dbFile       = flag.String("db", "poses.db", "Path to the recording database")
	settingsFile = flag.String("settings", "", "Settings file (JSON); empty uses built-in defaults")
	scenarioFile = flag.String("scenario", "", "Headset motion scenario (YAML); empty uses the built-in orbit")
	sessionName  = flag.String("session", "", "Recording session name; empty picks a timestamped one")
	numTrackers  = flag.Int("trackers", 2, "Virtual tracker count when the settings file does not set one")
	runFor       = flag.Duration("duration", 0, "Stop after this long; 0 runs until interrupted")
	mqttBroker   = flag.String("mqtt", "", "MQTT broker URL for pose telemetry; empty disables publishing")
	mqttClientID = flag.String("mqtt-client", "poselock-sim", "MQTT client identifier")
)

// Loop cadences. Trackers poll the world every 5ms, so the headset pose
// must refresh at least that often for proxied poses to stay current.
const (
	worldTickPeriod = 5 * time.Millisecond
	framePeriod     = 10 * time.Millisecond
)

// Main
func main() {
	// "migrate" manages the recording schema and exits without starting
	// the simulator.
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		runMigrate(os.Args[2:])
		return
	}

	flag.Parse()

	if *listen == "" {
		log.Fatal("Listen address is required")
	}
	log.Printf("poselock-sim %s (%s)", version.Version, version.GitSHA)

	settings, err := loadSettings(*settingsFile)
	if err != nil {
		log.Fatalf("Failed to load settings: %v", err)
	}

	world := hostsim.NewWorld()
	host := hostsim.NewSimHost(world, settings)

	provider := driver.NewProvider(host)
	if err := provider.Init(); err != nil {
		log.Fatalf("Failed to initialise tracker provider: %v", err)
	}
	if err := host.ActivateAll(); err != nil {
		log.Fatalf("Failed to activate devices: %v", err)
	}
	log.Printf("activated %d virtual trackers: %s", len(provider.Devices()), strings.Join(host.Serials(), ", "))

	database, err := db.NewDB(*dbFile)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	name := *sessionName
	if name == "" {
		name = fmt.Sprintf("run %s", time.Now().UTC().Format(time.RFC3339))
	}
	recorder, err := db.NewRecorder(database, name)
	if err != nil {
		log.Fatalf("Failed to create recording session: %v", err)
	}
	log.Printf("recording to %s (session %s)", *dbFile, recorder.Session().ID)

	poseAt, err := headMotion(*scenarioFile)
	if err != nil {
		log.Fatalf("Failed to load scenario: %v", err)
	}

	// Create a wait group for the world feed, frame loop, recorder,
	// telemetry, and HTTP server routines
	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *runFor > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *runFor)
		defer cancel()
	}

	// feed the simulated headset pose into the world so tracker loops
	// always see a live proxy target
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(worldTickPeriod)
		defer ticker.Stop()
		for {
			select {
			case now := <-ticker.C:
				world.SetPose(driver.DeviceIndexHMD, poseAt(now))
			case <-ctx.Done():
				log.Printf("world feed routine terminated")
				return
			}
		}
	}()

	// drive the provider frame loop so devices refresh inputs and see
	// queued host events
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(framePeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				provider.RunFrame()
			case <-ctx.Done():
				log.Printf("frame loop terminated")
				return
			}
		}
	}()

	// subscribe to pose submissions and batch them into the database
	wg.Add(1)
	go func() {
		defer wg.Done()
		id, c := host.Subscribe()
		defer host.Unsubscribe(id)
		if err := recorder.Run(ctx, c); err != nil {
			log.Printf("error recording poses: %v", err)
		}
		log.Printf("recorder routine terminated")
	}()

	if *mqttBroker != "" {
		publisher, err := telemetry.NewPublisher(telemetry.Config{
			Broker:   *mqttBroker,
			ClientID: *mqttClientID,
			Retained: true,
		})
		if err != nil {
			log.Fatalf("Failed to connect to MQTT broker: %v", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer publisher.Close()
			id, c := host.Subscribe()
			defer host.Unsubscribe(id)
			if err := publisher.Run(ctx, c); err != nil {
				log.Printf("error publishing telemetry: %v", err)
			}
			log.Printf("telemetry routine terminated")
		}()
	}

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		server := monitor.NewWebServer(monitor.WebServerConfig{
			Address: *listen,
			Host:    host,
			DB:      database,
		})
		if err := server.Start(ctx); err != nil {
			log.Printf("monitor server error: %v", err)
		}
		log.Printf("HTTP server routine stopped")
	}()

	// Wait for all goroutines to finish
	wg.Wait()

	host.DeactivateAll()
	provider.Cleanup()
	host.Close()
	log.Printf("Graceful shutdown complete")
}

// loadSettings reads the settings file when one is given, otherwise starts
// from defaults. Either way a tracker count ends up configured, falling
// back to the -trackers flag when the file does not set one.
func loadSettings(path string) (*hostsim.SettingsStore, error) {
	settings := hostsim.NewSettingsStore()
	if path != "" {
		var err error
		settings, err = hostsim.LoadSettings(path)
		if err != nil {
			return nil, err
		}
	}
	if _, ok := settings.Int32(driver.SettingsSectionDriver, driver.SettingsKeyNumVirtualTrackers); !ok {
		settings.SetInt32(driver.SettingsSectionDriver, driver.SettingsKeyNumVirtualTrackers, int32(*numTrackers))
	}
	return settings, nil
}

// headMotion returns the headset pose source: the scenario when one is
// given, otherwise the built-in orbit around the play space. Whether
// playback loops or holds the final pose is the scenario's own choice.
func headMotion(path string) (func(time.Time) driver.TrackedPose, error) {
	start := time.Now()
	if path == "" {
		motion := hostsim.NewHeadMotion(start)
		return motion.PoseAt, nil
	}

	scenario, err := hostsim.LoadScenario(path)
	if err != nil {
		return nil, err
	}
	return func(now time.Time) driver.TrackedPose {
		return scenario.PoseAt(now.Sub(start))
	}, nil
}

// runMigrate parses the migrate subcommand's own flags before handing the
// action off to the db package.
func runMigrate(args []string) {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	path := fs.String("db", "poses.db", "Path to the recording database")
	fs.Parse(args)
	db.RunMigrateCommand(fs.Args(), *path)
}
