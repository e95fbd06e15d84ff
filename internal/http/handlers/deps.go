package handlers

import (
	"gatekeeper/internal/config"
	"gatekeeper/internal/services"
)

type Deps struct {
	Config       config.Config
	AuthService  *services.AuthService
	AuthHandler  *AuthHandler
	UserHandler  *UserHandler
	AdminHandler *AdminHandler
}

func NewDeps(cfg config.Config, auth *services.AuthService) *Deps {
	return &Deps{
		Config:       cfg,
		AuthService:  auth,
		AuthHandler:  &AuthHandler{Auth: auth, Secure: cfg.CookieSecure, SameSite: cfg.CookieSameSite},
		UserHandler:  &UserHandler{Auth: auth},
		AdminHandler: &AdminHandler{Auth: auth},
	}
}
