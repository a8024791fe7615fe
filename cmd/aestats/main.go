package main

import (
	"errors"
	"os"

	cmd "github.com/researchartifacts/aestats/internal"
	"github.com/researchartifacts/aestats/internal/logger"
	"github.com/researchartifacts/aestats/internal/middleware"
)

func main() {
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, middleware.ErrLogged) {
			logger.LogError("%s", err)
		}
		os.Exit(1)
	}
}
