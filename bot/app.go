// Package bot wires the dialogue engine to the Telegram transport.
package bot

import (
	"fmt"

	coreconfig "github.com/m3rciful/venuebot/core/config"
	"github.com/m3rciful/venuebot/core/netutil"
	tg "github.com/m3rciful/venuebot/core/telegram"
	"github.com/m3rciful/venuebot/core/telegram/commands"
	"github.com/m3rciful/venuebot/core/telegram/router"
	"github.com/m3rciful/venuebot/dialog"
	"github.com/m3rciful/venuebot/venues"
)

// App holds the composed bot application.
type App struct {
	cfg    *coreconfig.Config
	engine *dialog.Engine
}

// New composes the session store, the Foursquare client, and the dialogue
// engine from configuration.
func New(cfg *coreconfig.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bot: nil config provided")
	}

	search := venues.NewClient(venues.ClientOptions{
		ClientID:     cfg.Foursquare.ClientID,
		ClientSecret: cfg.Foursquare.ClientSecret,
		BaseURL:      cfg.Foursquare.BaseURL,
		HTTPClient:   netutil.BuildHTTPClient(),
	})
	maps := venues.StaticMapBuilder{APIKey: cfg.Maps.APIKey}

	engine, err := dialog.NewEngine(dialog.Options{
		Store:  dialog.NewMemoryStore(),
		Search: search,
		MapURL: maps.URL,
	})
	if err != nil {
		return nil, fmt.Errorf("bot: engine setup: %w", err)
	}

	return &App{cfg: cfg, engine: engine}, nil
}

// TelegramRunOptions builds the runtime wiring consumed by tg.RunTelegram.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	reg := tg.NewRegistry()
	reg.RegisterCommand("/start", commands.Command{
		Handler:     a.handleStart,
		Description: "Start looking for venues nearby",
	})
	reg.RegisterCommand("/help", commands.Command{
		Handler:     a.handleStart,
		Description: "Show how the bot works",
		Aliases:     []string{"h"},
	})
	routes := router.Routes(reg, router.Options{
		Text:     a.handleText,
		Location: a.handleLocation,
	})

	return tg.RunOptions{
		Config:      a.cfg,
		Registry:    reg,
		Middlewares: tg.DefaultMiddlewares(a.cfg, nil),
		Routes:      routes,
	}, nil
}
