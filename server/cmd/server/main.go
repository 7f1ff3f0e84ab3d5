package main

import (
	"flag"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
	"github.com/sirupsen/logrus"

	"github.com/automoto/physnet/assets"
	"github.com/automoto/physnet/config"
	"github.com/automoto/physnet/network"
	"github.com/automoto/physnet/server/core"
	"github.com/automoto/physnet/shared/logging"
)

func main() {
	configPath := flag.String("config", "server.toml", "Path to the TOML config file")
	writeConfig := flag.Bool("write-config", false, "Write the default config to -config and exit")
	addr := flag.String("addr", "", "Listen address")
	transport := flag.String("transport", "", "Socket substrate (raknet or websocket)")
	tickRate := flag.Int("tickrate", 0, "Simulation ticks per second")
	sendRate := flag.Int("sendrate", 0, "Ticks between state broadcasts (0 = every tick)")
	maxPlayers := flag.Int("maxplayers", 0, "Player slots")
	scene := flag.String("scene", "", "Starting scene")
	masterURL := flag.String("master", "", "Master server URL (empty = don't register)")
	name := flag.String("name", "", "Server display name")
	sentryDSN := flag.String("sentry-dsn", "", "Sentry DSN for crash reports")
	statsAddr := flag.String("statsview", "", "Serve runtime charts on this address")
	logLevel := flag.String("log", "", "Log level")
	flag.Parse()

	if *writeConfig {
		if err := config.WriteDefault(*configPath); err != nil {
			logrus.Fatalf("write config: %v", err)
		}
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Server.Address = *addr
		case "transport":
			cfg.Server.Transport = *transport
		case "tickrate":
			cfg.Server.TickRate = *tickRate
		case "sendrate":
			cfg.Server.SendRate = *sendRate
		case "maxplayers":
			cfg.Server.MaxPlayers = *maxPlayers
		case "scene":
			cfg.Server.Scene = *scene
		case "master":
			cfg.Server.Registration.MasterURL = *masterURL
		case "name":
			cfg.Server.Registration.Name = *name
		case "sentry-dsn":
			cfg.Server.SentryDSN = *sentryDSN
		case "statsview":
			cfg.Server.StatsAddress = *statsAddr
		case "log":
			cfg.Log.Level = *logLevel
		}
	})

	log := logging.New(cfg.Log.Level)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	if cfg.Server.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Server.SentryDSN}); err != nil {
			log.Fatalf("sentry init: %v", err)
		}
		defer sentry.Flush(2 * time.Second)
	}
	if cfg.Server.StatsAddress != "" {
		viewer.SetConfiguration(viewer.WithAddr(cfg.Server.StatsAddress))
		mgr := statsview.New()
		go mgr.Start()
		log.Infof("Runtime charts on http://%s/debug/statsview", cfg.Server.StatsAddress)
	}

	scenes, names, err := assets.LoadScenes()
	if err != nil {
		log.Fatalf("scenes: %v", err)
	}
	log.Debugf("Loaded scenes %v", names)

	host, err := network.NewHost(cfg.Server.Transport, log)
	if err != nil {
		log.Fatalf("transport: %v", err)
	}
	netServer := network.NewServer(host, cfg.Server.MaxPlayers, log)
	if err := netServer.Start(cfg.Server.Address); err != nil {
		log.Fatalf("listen on %s: %v", cfg.Server.Address, err)
	}

	server, err := core.NewServer(netServer, core.Options{
		Scenes:         scenes,
		Scene:          cfg.Server.Scene,
		Physics:        cfg.Physics,
		Timestep:       1 / float32(cfg.Server.TickRate),
		SendRate:       cfg.Server.SendRate,
		RequireVersion: cfg.Server.RequireVersion,
	}, log)
	if err != nil {
		log.Fatalf("server: %v", err)
	}

	loop := core.NewGameLoop(server, cfg.Server.TickRate, log)
	go loop.Run()

	var reg *core.Registration
	if rc := cfg.Server.Registration; rc.MasterURL != "" {
		public := rc.PublicAddress
		if public == "" {
			public = cfg.Server.Address
		}
		reg = core.NewRegistration(core.RegistrationConfig{
			MasterURL:  rc.MasterURL,
			Name:       rc.Name,
			Address:    public,
			Region:     rc.Region,
			MaxPlayers: cfg.Server.MaxPlayers,
			Heartbeat:  time.Duration(rc.HeartbeatSeconds) * time.Second,
		}, server, log)
		reg.Start()
	}

	log.WithFields(logrus.Fields{
		"addr":      cfg.Server.Address,
		"transport": cfg.Server.Transport,
		"tickrate":  cfg.Server.TickRate,
		"sendrate":  cfg.Server.SendRate,
		"scene":     cfg.Server.Scene,
	}).Info("Server started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	// SIGHUP moves every player on to the next scene.
	hupChan := make(chan os.Signal, 1)
	signal.Notify(hupChan, syscall.SIGHUP)
	current := slices.Index(names, cfg.Server.Scene)
wait:
	for {
		select {
		case <-sigChan:
			break wait
		case <-hupChan:
			next := names[(current+1)%len(names)]
			if err := loop.ChangeScene(next); err != nil {
				log.WithError(err).WithField("scene", next).Error("scene change failed")
				continue
			}
			current = (current + 1) % len(names)
		}
	}
	log.Info("Shutting down server...")

	if reg != nil {
		reg.Stop()
	}
	loop.Stop()
	if err := server.Stop(); err != nil {
		log.Warnf("stop: %v", err)
	}
}
