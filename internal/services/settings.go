package services

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mycelian/postybirb/internal/model"
	"github.com/mycelian/postybirb/internal/store"
)

// DefaultProfile names the settings record created on first start.
const DefaultProfile = "default"

const startupFileName = "startup.json"

// StartupOptions are read before the store opens, so they live in a plain JSON file.
type StartupOptions struct {
	AppDataPath string `json:"appDataPath"`
	Port        string `json:"port"`
}

type UpdateSettingsRequest struct {
	Settings model.SettingsOptions `json:"settings"`
}

type SettingsService struct {
	store    store.Store
	dataDir  string
	defaults StartupOptions
	log      zerolog.Logger

	mu sync.Mutex
}

func NewSettingsService(s store.Store, dataDir string, defaults StartupOptions, log zerolog.Logger) *SettingsService {
	return &SettingsService{
		store:    s,
		dataDir:  dataDir,
		defaults: defaults,
		log:      log.With().Str("component", "settings").Logger(),
	}
}

// EnsureDefault creates the default profile when it is missing.
func (s *SettingsService) EnsureDefault(ctx context.Context) (*model.Settings, error) {
	st, err := s.store.Settings().GetByProfile(ctx, DefaultProfile)
	if err == nil {
		return st, nil
	}
	if !model.IsNotFound(err) {
		return nil, err
	}
	st = &model.Settings{Profile: DefaultProfile, Settings: model.SettingsOptions{HiddenWebsites: []string{}}}
	if err := s.store.Settings().Create(ctx, st); err != nil {
		return nil, err
	}
	s.log.Debug().Str("settings_id", st.ID).Msg("default settings created")
	return st, nil
}

func (s *SettingsService) List(ctx context.Context) ([]*model.Settings, error) {
	return s.store.Settings().List(ctx)
}

func (s *SettingsService) Update(ctx context.Context, id string, req UpdateSettingsRequest) (*model.Settings, error) {
	s.log.Info().Str("settings_id", id).Msg("updating settings")
	st, err := s.store.Settings().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	st.Settings = req.Settings
	if st.Settings.HiddenWebsites == nil {
		st.Settings.HiddenWebsites = []string{}
	}
	if err := s.store.Settings().Update(ctx, st); err != nil {
		return nil, wrapPersistence(err, "update settings "+id)
	}
	return st, nil
}

func (s *SettingsService) startupPath() string { return filepath.Join(s.dataDir, startupFileName) }

// StartupOptions returns the persisted options merged over the defaults.
func (s *SettingsService) StartupOptions() (StartupOptions, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readStartup()
}

func (s *SettingsService) readStartup() (StartupOptions, error) {
	opts := s.defaults
	b, err := os.ReadFile(s.startupPath())
	if err != nil {
		if os.IsNotExist(err) {
			return opts, nil
		}
		return opts, err
	}
	var saved StartupOptions
	if err := json.Unmarshal(b, &saved); err != nil {
		s.log.Warn().Err(err).Msg("startup options unreadable, using defaults")
		return opts, nil
	}
	if saved.AppDataPath != "" {
		opts.AppDataPath = saved.AppDataPath
	}
	if saved.Port != "" {
		opts.Port = saved.Port
	}
	return opts, nil
}

// UpdateStartupOptions trims and validates the given fields and writes them over the current file.
// The port must be between 1024 and 65535.
func (s *SettingsService) UpdateStartupOptions(update StartupOptions) (StartupOptions, error) {
	update.AppDataPath = strings.TrimSpace(update.AppDataPath)
	update.Port = strings.TrimSpace(update.Port)
	if update.Port != "" {
		p, err := strconv.Atoi(update.Port)
		if err != nil || p < 1024 || p > 65535 {
			return StartupOptions{}, model.BadRequest("invalid port %q", update.Port)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cur, err := s.readStartup()
	if err != nil {
		return StartupOptions{}, err
	}
	if update.AppDataPath != "" {
		cur.AppDataPath = update.AppDataPath
	}
	if update.Port != "" {
		cur.Port = update.Port
	}
	b, err := json.MarshalIndent(cur, "", " ")
	if err != nil {
		return StartupOptions{}, err
	}
	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		return StartupOptions{}, err
	}
	if err := os.WriteFile(s.startupPath(), b, 0o644); err != nil {
		return StartupOptions{}, err
	}
	return cur, nil
}
