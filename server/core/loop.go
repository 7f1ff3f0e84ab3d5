package core

import (
	"errors"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"

	"github.com/automoto/physnet/shared/logging"
)

var ErrLoopStopped = errors.New("game loop stopped")

// GameLoop calls Server.Tick at a fixed rate on its own goroutine.
type GameLoop struct {
	server    *Server
	log       logrus.FieldLogger
	tickRate  int
	sceneChan chan sceneRequest
	stopChan  chan struct{}
	done      chan struct{}
}

type sceneRequest struct {
	name   string
	result chan error
}

func NewGameLoop(server *Server, tickRate int, log logrus.FieldLogger) *GameLoop {
	if tickRate < 1 {
		tickRate = 1
	}
	return &GameLoop{
		server:    server,
		log:       logging.Component(log, "loop"),
		tickRate:  tickRate,
		sceneChan: make(chan sceneRequest),
		stopChan:  make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Run ticks until Stop is called. A panic inside a tick is reported to
// Sentry before it propagates.
func (g *GameLoop) Run() {
	defer close(g.done)
	ticker := time.NewTicker(time.Second / time.Duration(g.tickRate))
	defer ticker.Stop()

	g.log.WithField("tickRate", g.tickRate).Info("game loop started")
	for {
		select {
		case <-g.stopChan:
			g.log.Info("game loop stopped")
			return
		case <-ticker.C:
			g.tick()
		case req := <-g.sceneChan:
			req.result <- g.server.ChangeScene(req.name)
		}
	}
}

// ChangeScene switches the server to the named scene between two ticks and
// waits for the result.
func (g *GameLoop) ChangeScene(name string) error {
	req := sceneRequest{name: name, result: make(chan error, 1)}
	select {
	case g.sceneChan <- req:
		return <-req.result
	case <-g.done:
		return ErrLoopStopped
	}
}

// Stop ends Run and waits for the current tick to finish.
func (g *GameLoop) Stop() {
	close(g.stopChan)
	<-g.done
}

func (g *GameLoop) tick() {
	defer func() {
		if r := recover(); r != nil {
			g.log.Errorf("tick %d panic: %v", g.server.Ticks(), r)
			hub := sentry.CurrentHub().Clone()
			hub.ConfigureScope(func(scope *sentry.Scope) {
				scope.SetTag("scene", g.server.Level().Scene.Name)
				scope.SetTag("players", fmt.Sprint(g.server.PlayerCount()))
			})
			hub.Recover(r)
			hub.Flush(5 * time.Second)
			panic(r)
		}
	}()
	g.server.Tick()
}
