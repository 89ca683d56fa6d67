package birdnet

import (
	"sync"

	"github.com/aviaudio/perch/internal/logger"
)

var (
	serviceLogger logger.Logger
	initOnce      sync.Once
)

// getLogger returns the package logger scoped to the birdnet module.
func getLogger() logger.Logger {
	initOnce.Do(func() {
		serviceLogger = logger.Global().Module("birdnet")
	})
	return serviceLogger
}
