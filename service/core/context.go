package core

import (
	"context"
	"log/slog"

	r "histdata/data/repos"
	"histdata/service/config"
)

type ServiceContext struct {
	Context context.Context
	RunID   string
	Config  config.Config
	Window  config.Window
	Logger  *slog.Logger
	Sources map[string]Source
	Writers []r.TableWriter
	Metrics *Metrics
}

func (sc *ServiceContext) logger() *slog.Logger {
	if sc.Logger == nil {
		return slog.Default()
	}
	return sc.Logger
}
