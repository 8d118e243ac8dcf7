package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/stereo_session/internal/app"
	"github.com/relabs-tech/stereo_session/internal/config"
)

func main() {
	configPath := flag.String("config", "./stereo_config.txt", "path to configuration file")
	flag.Parse()

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunInspect(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
