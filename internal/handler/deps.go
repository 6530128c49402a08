package handler

import (
	"neochat/internal/app/engine"
	"neochat/internal/app/settings"
	"neochat/internal/app/storage"
	"neochat/internal/configs"
)

type AppDeps struct {
	Engine   *engine.Engine
	Config   *configs.AppConfig
	Storage  storage.Service
	Settings *settings.Provider
}
