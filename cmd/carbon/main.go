package main

import (
	"github.com/rs/zerolog/log"

	"github.com/argus-labs/carbon/pkg/carbon"
)

func main() {
	// Configured through CARBON_* environment variables.
	app, err := carbon.New(carbon.Options{})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create app")
	}

	if err := app.Run(); err != nil {
		log.Fatal().Err(err).Msg("app stopped with error")
	}
}
