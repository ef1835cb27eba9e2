// Package statsd wraps the few statsd calls the app makes so the datadog client stays behind one
// import. Until Init succeeds every call goes to a no-op client.
package statsd

import (
	"time"

	ddstatsd "github.com/DataDog/datadog-go/v5/statsd"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"
)

// Namespace prefixes every metric.
const Namespace = "carbon"

var client ddstatsd.ClientInterface = &ddstatsd.NoOpClient{} //nolint:gochecknoglobals // process-wide sink

func Client() ddstatsd.ClientInterface {
	return client
}

// Init points the package at a statsd agent. tags are added to every metric.
func Init(address string, tags []string) error {
	if address == "" {
		return eris.New("statsd address must not be empty")
	}
	opts := []ddstatsd.Option{ddstatsd.WithNamespace(Namespace)}
	if len(tags) > 0 {
		opts = append(opts, ddstatsd.WithTags(tags))
	}

	newClient, err := ddstatsd.New(address, opts...)
	if err != nil {
		return eris.Wrapf(err, "failed to create statsd client for %s", address)
	}
	client = newClient
	return nil
}

// Close flushes and closes the client and falls back to the no-op client.
func Close() error {
	err := client.Close()
	client = &ddstatsd.NoOpClient{}
	return eris.Wrap(err, "failed to close statsd client")
}

// EmitTickStat records how long a tick phase took since start.
func EmitTickStat(start time.Time, phase string) {
	if err := Client().Timing("tick", time.Since(start), []string{"phase:" + phase}, 1); err != nil {
		log.Logger.Warn().Err(err).Msg("failed to emit tick stat")
	}
}

// EmitWorldStats records the entity and posed entity counts.
func EmitWorldStats(entities, posed int) {
	if err := Client().Gauge("entities", float64(entities), nil, 1); err != nil {
		log.Logger.Warn().Err(err).Msg("failed to emit entity count")
	}
	if err := Client().Gauge("posed_entities", float64(posed), nil, 1); err != nil {
		log.Logger.Warn().Err(err).Msg("failed to emit posed entity count")
	}
}

// CountTickFailure records a tick that returned an error.
func CountTickFailure() {
	if err := Client().Incr("tick.failed", nil, 1); err != nil {
		log.Logger.Warn().Err(err).Msg("failed to count tick failure")
	}
}
