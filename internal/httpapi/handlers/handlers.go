package handlers

import (
	"manimq/internal/pkg/logger"
	"manimq/internal/queue"
)

type Deps struct {
	Queue *queue.Client
	Log   *logger.Logger
}

type Handler struct {
	queue *queue.Client
	log   *logger.Logger
}

func New(d Deps) *Handler {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	return &Handler{
		queue: d.Queue,
		log:   log,
	}
}
