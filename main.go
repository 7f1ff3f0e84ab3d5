// Command physnet runs a headless client: a scripted bot joins a server,
// predicts its own movement and reports how far the server's corrections
// drift from the prediction.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/automoto/physnet/assets"
	"github.com/automoto/physnet/config"
	"github.com/automoto/physnet/network"
	"github.com/automoto/physnet/scenes"
	"github.com/automoto/physnet/shared/logging"
	"github.com/automoto/physnet/shared/messages"
	"github.com/automoto/physnet/shared/netconfig"
	"github.com/automoto/physnet/shared/protocol"
	"github.com/automoto/physnet/systems"
)

func main() {
	configPath := flag.String("config", "client.toml", "Path to the TOML config file")
	addr := flag.String("addr", "", "Server address")
	transport := flag.String("transport", "", "Socket substrate (raknet or websocket)")
	masterURL := flag.String("master", "", "Join the least populated compatible server listed by this master server")
	difficulty := flag.String("bot", "", "Bot difficulty (easy, normal, hard)")
	seed := flag.Int64("seed", 0, "Bot random seed")
	ticks := flag.Int("ticks", 0, "Stop after this many ticks (0 = run until interrupted)")
	logLevel := flag.String("log", "", "Log level")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Client.Address = *addr
		case "transport":
			cfg.Client.Transport = *transport
		case "log":
			cfg.Log.Level = *logLevel
		}
	})
	if *difficulty != "" {
		d, err := config.ParseBotDifficulty(*difficulty)
		if err != nil {
			logrus.Fatal(err)
		}
		bot := config.DefaultBot(d)
		bot.Seed, bot.Ticks = cfg.Bot.Seed, cfg.Bot.Ticks
		cfg.Bot = bot
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "seed":
			cfg.Bot.Seed = *seed
		case "ticks":
			cfg.Bot.Ticks = *ticks
		}
	})

	log := logging.New(cfg.Log.Level)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	if *masterURL != "" {
		browser := scenes.NewServerBrowser(*masterURL, log)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := browser.Fetch(ctx)
		cancel()
		if err != nil {
			log.Fatalf("server list: %v", err)
		}
		server, err := browser.Pick()
		if err != nil {
			log.Fatalf("server list: %v", err)
		}
		log.WithFields(logrus.Fields{"name": server.Name, "players": server.Players}).Info("Picked server")
		cfg.Client.Address = server.Address
	}

	scns, _, err := assets.LoadScenes()
	if err != nil {
		log.Fatalf("scenes: %v", err)
	}
	host, err := network.NewHost(cfg.Client.Transport, log)
	if err != nil {
		log.Fatalf("transport: %v", err)
	}

	done := make(chan struct{})
	stop := func() {
		select {
		case <-done:
		default:
			close(done)
		}
	}
	client := network.NewClient(host, messages.PlayerJoinRequest{
		GameVersion:      protocol.Version(),
		UserAuthID:       cfg.Client.AuthID,
		UserAuthUniverse: cfg.Client.AuthUniverse,
	}, network.ClientCallbacks{
		OnJoined: func(id uint8) {
			log.WithField("id", id).Info("Joined")
		},
		OnRejected: func(reason netconfig.RejectReason) {
			log.WithField("reason", reason).Error("Join rejected")
			stop()
		},
		OnDisconnected: func(reason netconfig.DisconnectReason) {
			log.WithField("reason", reason).Warn("Disconnected")
			stop()
		},
	}, log)

	scene := scenes.NewNetworkedScene(client, scenes.NetworkedSceneConfig{
		Scenes:       scns,
		Input:        systems.NewBot(cfg.Bot),
		Physics:      cfg.Physics,
		Timestep:     1 / float32(cfg.Client.TickRate),
		HistoryLimit: cfg.Client.HistoryLimit,
		MaxPlayers:   cfg.Client.MaxPlayers,
	}, log)

	if err := client.Connect(cfg.Client.Address); err != nil {
		log.Fatalf("connect to %s: %v", cfg.Client.Address, err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(time.Second / time.Duration(cfg.Client.TickRate))
	defer ticker.Stop()
	report := cfg.Client.TickRate * 5

	for tick := 1; ; tick++ {
		select {
		case <-sigChan:
			stop()
		case <-done:
		case <-ticker.C:
			scene.Simulate()
		}
		select {
		case <-done:
			client.Disconnect()
			if err := host.Close(); err != nil {
				log.Warnf("close transport: %v", err)
			}
			logErrors(log, scene)
			return
		default:
		}

		if tick%report == 0 {
			logErrors(log, scene)
		}
		if cfg.Bot.Ticks > 0 && tick >= cfg.Bot.Ticks {
			stop()
		}
	}
}

func logErrors(log logrus.FieldLogger, scene *scenes.NetworkedScene) {
	errs := &scene.Prediction().Errors
	latest, ok := errs.Latest()
	if !ok {
		return
	}
	log.WithFields(logrus.Fields{
		"latest":  latest,
		"mean":    errs.Mean(),
		"max":     errs.Max(),
		"remotes": scene.RemoteCount(),
		"dropped": scene.Dropped(),
	}).Info("Prediction error")
}
