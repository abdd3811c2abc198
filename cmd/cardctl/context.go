package main

import (
	"strings"
	"sync"

	"github.com/codyseavey/card-lookup/internal/config"
	"github.com/codyseavey/card-lookup/internal/services"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	serviceOnce sync.Once
	service     *services.CardService
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// cardService builds the card service from the resolved configuration.
func (c *commandContext) cardService() (*services.CardService, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	c.serviceOnce.Do(func() {
		client := services.NewYGOProDeckClient(cfg.CardAPIBaseURL, cfg.CardAPITimeout, cfg.CardAPIRateLimit)
		c.service = services.NewCardService(client, services.CardServiceConfig{
			ScratchDir:      cfg.ScratchDir,
			ImageRetention:  cfg.ImageRetention,
			RebuildInterval: cfg.IndexRebuildInterval,
			MatchCacheSize:  cfg.MatchCacheSize,
		})
	})
	return c.service, nil
}
