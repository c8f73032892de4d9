package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/m3rciful/venuebot/bot"
	corecmd "github.com/m3rciful/venuebot/core/cmd"
	coreconfig "github.com/m3rciful/venuebot/core/config"
)

func main() {
	// Local development keeps secrets in .env; missing file is fine.
	_ = godotenv.Load()

	err := corecmd.Run(corecmd.Options{
		ConfigEnvVar:      "CONFIG_PATH",
		DefaultConfigPath: "config.yaml",
		Bootstrap: func(cfg *coreconfig.Config) (corecmd.TelegramApp, error) {
			return bot.New(cfg)
		},
	})
	if err != nil {
		log.Fatalf("venuebot: %v", err)
	}
}
