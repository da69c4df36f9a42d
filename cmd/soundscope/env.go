package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/abelbrown/soundscope/internal/catalog"
	"github.com/abelbrown/soundscope/internal/config"
	"github.com/abelbrown/soundscope/internal/logging"
	"github.com/abelbrown/soundscope/internal/otel"
	"github.com/abelbrown/soundscope/internal/search"
	"github.com/abelbrown/soundscope/internal/sequence"
	"github.com/abelbrown/soundscope/internal/store"
)

// eventLogName is the JSONL event log inside the data directory.
const eventLogName = "soundscope.events.jsonl"

// env holds everything a command needs. Built by setup, released by close.
type env struct {
	cfg      *config.Config
	events   *otel.Logger
	ring     *otel.RingBuffer
	store    *store.Store // nil when history is unavailable
	client   *catalog.Client
	searcher *search.Searcher

	eventsFile *os.File
}

// resolveDataDir returns --data-dir or the default, creating it.
func resolveDataDir() (string, error) {
	dir := dataDirFlag
	if dir == "" {
		var err error
		if dir, err = config.DefaultDataDir(); err != nil {
			return "", err
		}
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create data directory: %w", err)
	}
	return dir, nil
}

// loadConfig reads the config file and applies command line overrides.
func loadConfig(dataDir string) (*config.Config, error) {
	cfg, err := config.Load(dataDir)
	if err != nil {
		return nil, err
	}
	if departmentFlag != "" {
		if !slices.Contains(catalog.Departments, departmentFlag) {
			return nil, fmt.Errorf("unknown department %q", departmentFlag)
		}
		cfg.Search.Department = departmentFlag
	}
	if pageSizeFlag >= 0 {
		cfg.Search.PageSize = pageSizeFlag
	}
	if locationFlag != "" {
		lat, lon, err := config.ParseLocation(locationFlag)
		if err != nil {
			return nil, fmt.Errorf("--location: %w", err)
		}
		cfg.Location = config.LocationConfig{Enabled: true, Latitude: lat, Longitude: lon}
	}
	if noNearbyFlag {
		cfg.Location.Enabled = false
	}
	return cfg, cfg.Validate()
}

func setup() (*env, error) {
	dataDir, err := resolveDataDir()
	if err != nil {
		return nil, err
	}
	cfg, err := loadConfig(dataDir)
	if err != nil {
		return nil, err
	}
	if cfg.Catalog.Token == "" {
		return nil, errors.New("no Freesound API token: set FREESOUND_API_KEY or catalog.token in " + config.Path(dataDir))
	}

	if err := logging.Init(dataDir, debugFlag); err != nil {
		return nil, err
	}
	if traceFlag {
		otel.SetTraceEnabled(true)
	}

	e := &env{cfg: cfg, ring: otel.NewRingBuffer(otel.DefaultRingSize)}

	f, err := os.OpenFile(filepath.Join(dataDir, eventLogName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		logging.Warn("Event log unavailable", "error", err)
		e.events = otel.NewNullLogger()
	} else {
		e.eventsFile = f
		e.events = otel.NewLogger(f)
	}
	e.events.SetRingBuffer(e.ring)
	e.events.Info(otel.KindStartup, "main", "soundscope "+version)

	st, path, err := store.OpenDiscovered(dataDir)
	if err != nil {
		// History is optional; searching still works without it.
		logging.Warn("Search history disabled", "error", err)
		e.events.Error(otel.KindStoreError, "store", err)
	} else {
		logging.Info("Database opened", "path", path)
		e.store = st
	}

	e.client = catalog.NewClient(cfg.Catalog.Token, catalog.Options{
		Scheme:    cfg.Catalog.Scheme,
		Host:      cfg.Catalog.Host,
		Timeout:   cfg.Catalog.Timeout.Duration,
		RateEvery: cfg.Catalog.RateEvery.Duration,
		Logger:    e.events,
	})
	e.searcher = search.New(e.client, search.Options{
		Timeout: cfg.Search.Timeout.Duration,
		Logger:  e.events,
	})

	logging.Info("Started", "version", version, "session", e.events.SessionID(),
		"page_size", catalog.PageSize(cfg.Search.PageSize), "nearby", cfg.Location.Enabled)
	return e, nil
}

func (e *env) close() {
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			logging.Warn("Close database", "error", err)
		}
	}
	e.events.Info(otel.KindShutdown, "main", "")
	e.events.Close()
	if e.eventsFile != nil {
		e.eventsFile.Close()
	}
	logging.Close()
}

// request builds a search for text from the configuration.
func (e *env) request(text, department string) search.Request {
	req := search.Request{
		ID:         uuid.NewString(),
		Text:       text,
		Department: department,
		PageSize:   catalog.PageSize(e.cfg.Search.PageSize),
		RadiusKm:   e.cfg.Search.NearbyRadius,
	}
	if e.cfg.Location.Enabled {
		req.Location = &catalog.Location{Latitude: e.cfg.Location.Latitude, Longitude: e.cfg.Location.Longitude}
	}
	return req
}

// run performs req, recording it in the history when a store is open.
func (e *env) run(ctx context.Context, req search.Request, sink sequence.Sink[catalog.Sound]) (search.Summary, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	recording := false
	if e.store != nil {
		err := e.store.BeginSearch(req.ID, req.Text, req.Department, req.PageSize, time.Now())
		if err != nil {
			logging.Warn("Record search", "qid", req.ID, "error", err)
		} else {
			recording = true
			sink = store.NewRecorder(e.store, req.ID, sink, e.events)
		}
	}

	logging.Info("Search", "qid", req.ID, "query", req.Text, "department", req.Department)
	sum, err := e.searcher.Run(ctx, req, sink)
	for c, cerr := range sum.Errors {
		logging.Warn("Category failed", "qid", req.ID, "category", search.CategoryName(c), "error", cerr)
	}
	if err != nil {
		logging.Error("Search failed", "qid", req.ID, "error", err)
	}

	if recording {
		if ferr := e.store.FinishSearch(req.ID, time.Now(), sum.Emitted(), sum.Held(), err); ferr != nil {
			logging.Warn("Finish search", "qid", req.ID, "error", ferr)
		}
	}
	return sum, err
}
