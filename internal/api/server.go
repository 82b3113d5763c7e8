package api

import (
	"github.com/hshukla4/stt-project/internal/config"
	"github.com/hshukla4/stt-project/internal/engine"
	"github.com/hshukla4/stt-project/internal/orchestrator"
)

type Server struct {
	cfg          *config.Config
	registry     *engine.Registry
	orchestrator *orchestrator.Orchestrator
}

func NewServer(cfg *config.Config, registry *engine.Registry, orch *orchestrator.Orchestrator) *Server {
	return &Server{
		cfg:          cfg,
		registry:     registry,
		orchestrator: orch,
	}
}
