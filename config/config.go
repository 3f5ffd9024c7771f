// Package config holds every tunable of the pipeline in one place. All
// zero-looking values are filled with defaults by Default; FromEnv lays
// environment overrides on top.
package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/cockroachdb/errors"
)

type (
	NET struct {
		// WriteBufferSize is the initial capacity of the per-response
		// serialization buffer.
		WriteBufferSize int `env:"COBALT_WRITE_BUFFER_SIZE"`
	}

	Body struct {
		// MaxSize bounds the accumulated body size. Exceeding it aborts
		// the request with 413 Request Entity Too Large.
		MaxSize uint `env:"COBALT_BODY_MAX_SIZE"`
		// AccumulatorPrealloc is the initial capacity of the body
		// accumulator.
		AccumulatorPrealloc int `env:"COBALT_BODY_PREALLOC"`
	}

	Headers struct {
		// Default are headers added to every response unless the handler
		// set them itself.
		Default map[string]string
	}

	Executors struct {
		// IOWorkers is the size of the shared encoding pool.
		IOWorkers int `env:"COBALT_IO_WORKERS"`
		// QueueDepth is how many pending tasks the pool buffers before
		// submission starts blocking.
		QueueDepth int `env:"COBALT_IO_QUEUE_DEPTH"`
	}

	Config struct {
		NET       NET
		Body      Body
		Headers   Headers
		Executors Executors
	}
)

// Default returns the configuration with all defaults set.
func Default() *Config {
	return &Config{
		NET: NET{
			WriteBufferSize: 1024,
		},
		Body: Body{
			MaxSize:             512 * 1024 * 1024,
			AccumulatorPrealloc: 1024,
		},
		Headers: Headers{
			Default: map[string]string{
				"Server": "cobalt",
			},
		},
		Executors: Executors{
			IOWorkers:  4,
			QueueDepth: 64,
		},
	}
}

// FromEnv returns the default configuration with environment variable
// overrides applied.
func FromEnv() (*Config, error) {
	cfg := Default()
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, "parsing environment")
	}

	return cfg, nil
}
