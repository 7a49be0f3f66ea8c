// Package app assembles the stores and the remote client used by one run
// of the CLI.
package app

import (
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"roletodo/internal/auth"
	"roletodo/internal/backend/rest"
	"roletodo/internal/clock"
	"roletodo/internal/config"
	"roletodo/internal/logging"
	"roletodo/internal/prompt"
	"roletodo/internal/service"
	"roletodo/internal/session"
	"roletodo/internal/storage"
	"roletodo/internal/taskstore"
)

// Env is everything a command can use. Service, Flow and Tasks are nil
// when no server is configured.
type Env struct {
	Config   *config.Config
	Log      *logrus.Logger
	Metrics  *prometheus.Registry
	KV       storage.KV
	Sessions *session.Store
	Service  service.Service
	Flow     *auth.Flow
	Tasks    *taskstore.Store
	Prompt   prompt.Prompter
}

// Options overrides parts of the environment. Zero values select the
// production implementation.
type Options struct {
	Clock     clock.Clock
	KV        storage.KV
	Service   service.Service
	Prompt    prompt.Prompter
	Log       *logrus.Logger
	LogOutput io.Writer
}

// New builds an Env from cfg.
func New(cfg *config.Config, opts Options) (*Env, error) {
	log := opts.Log
	if log == nil {
		out := opts.LogOutput
		if out == nil {
			out = io.Discard
		}
		log = logging.New(out, logging.Options{
			Level:  cfg.EffectiveLogLevel(),
			Format: cfg.LogFormat,
		})
	}
	pr := opts.Prompt
	if pr == nil {
		pr = prompt.NewTerminal(os.Stdin, os.Stderr)
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real{}
	}

	kv := opts.KV
	if kv == nil {
		var err error
		if kv, err = OpenStorage(cfg); err != nil {
			return nil, err
		}
	}

	env := &Env{
		Config:   cfg,
		Log:      log,
		Metrics:  prometheus.NewRegistry(),
		KV:       kv,
		Sessions: session.NewStore(kv, clk, log),
		Prompt:   pr,
	}

	svc := opts.Service
	baseURL, urlErr := cfg.RequireBaseURL()
	if svc == nil && urlErr == nil {
		client, err := rest.New(rest.Options{
			BaseURL: baseURL,
			Timeout: cfg.Timeout,
			Log:     log,
			Metrics: rest.NewMetrics(env.Metrics),
		}, env.Sessions.TokenSource())
		if err != nil {
			kv.Close()
			return nil, err
		}
		svc = client
	}
	if svc != nil {
		resolver := auth.NewRoleResolver(svc, log)
		resolver.Retries = cfg.RoleRetries
		resolver.RetryDelay = cfg.RoleRetryDelay

		env.Service = svc
		env.Flow = auth.NewFlow(svc, env.Sessions, resolver, log)
		env.Tasks = taskstore.New(svc, log, env.Metrics)
	}
	return env, nil
}

// OpenStorage opens the session storage backend selected by cfg.Storage.
func OpenStorage(cfg *config.Config) (storage.KV, error) {
	if err := cfg.EnsureDir(); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}
	switch cfg.Storage {
	case config.StorageSQLite:
		kv, err := storage.OpenSQLite(cfg.DBPath())
		if err != nil {
			return nil, err
		}
		return kv, nil
	case config.StorageFile, "":
		return storage.NewFile(cfg.StatePath()), nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage)
}

// Close releases the storage backend.
func (e *Env) Close() error {
	if e.Tasks != nil {
		e.Tasks.Reset()
	}
	return e.KV.Close()
}
