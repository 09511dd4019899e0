// @title Student Forms API
// @version 1.0
// @description Student login and multi-section form runtime.

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /

package main

import (
	"flag"
	"log"
	"student_forms/internal/app"
	"student_forms/internal/config"
	"student_forms/pkg/logger"
)

func main() {
	configDir := flag.String("config", "configs", "directory containing config.yaml")
	registry := flag.Bool("registry", false, "also serve the registry (create-user / get-form) API")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *registry {
		cfg.Registry.Enabled = true
	}

	application := app.NewApp(cfg)
	defer logger.Log.Sync()

	application.Run()
}
