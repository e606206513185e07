package main

import (
	"flag"
	"fmt"
	"os"
)

func main() {
	apiPort := flag.Int("port", 0, "port to host api; no tui when set")
	configPath := flag.String("config", "config.toml", "path to the config file")
	flag.Parse()
	if err := setup(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer shutdown()
	if *apiPort > 0 {
		srv := &Server{
			logger:   logger,
			ctrl:     ctrl,
			sess:     sess,
			registry: registry,
		}
		addr := fmt.Sprintf("%s:%d", cfg.ServerHost, *apiPort)
		// a turn makes up to three remote calls
		if err := srv.ListenToRequests(addr, 3*cfg.Timeout()+cfg.Timeout()/2); err != nil {
			logger.Error("api server stopped", "error", err)
		}
		return
	}
	if err := runTUI(); err != nil {
		logger.Error("failed to start tview app", "error", err)
		return
	}
}
