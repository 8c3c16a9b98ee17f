package store

import (
	"context"
	"errors"

	"github.com/review-impact/impact-sim/sim"
)

// Options selects a data source. PostgresDSN takes precedence over FixturePath.
type Options struct {
	FixturePath string `yaml:"fixture"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// Open opens the data source named by opts. The caller must Close it.
func Open(ctx context.Context, opts Options) (sim.DataSource, error) {
	switch {
	case opts.PostgresDSN != "":
		pg, err := OpenPostgres(ctx, opts.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return pg, nil
	case opts.FixturePath != "":
		f, err := LoadFixture(opts.FixturePath)
		if err != nil {
			return nil, err
		}
		return f, nil
	default:
		return nil, errors.New("no data source configured: set a fixture path or a postgres dsn")
	}
}
