package main

import (
	"flag"
	"fmt"
	"net/http"
	"time"

	"github.com/automoto/physnet/master"
	"github.com/automoto/physnet/shared/logging"
)

func main() {
	port := flag.Int("port", 8080, "HTTP listen port")
	ttl := flag.Duration("ttl", 90*time.Second, "Server TTL before expiry")
	level := flag.String("log", "info", "Log level")
	flag.Parse()

	log := logging.New(*level)
	reg := master.NewRegistry(*ttl, log)
	go reg.Run(30 * time.Second)

	addr := fmt.Sprintf(":%d", *port)
	log.WithField("ttl", *ttl).Infof("master starting on %s", addr)
	if err := http.ListenAndServe(addr, master.NewHandler(reg)); err != nil {
		log.Fatalf("master: %v", err)
	}
}
