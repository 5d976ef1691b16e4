package digest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	apperrors "github.com/nijaru/yt-digest/errors"
)

type LengthCategory string

const (
	LengthShort    LengthCategory = "short"
	LengthMedium   LengthCategory = "medium"
	LengthLong     LengthCategory = "long"
	LengthVeryLong LengthCategory = "very_long"
)

const (
	DefaultMaxTokens   = 1000
	DefaultTemperature = 0.7

	// UpgradeModel is the highest capability model in the default tables.
	UpgradeModel = "deepseek-r1-distill-llama-70b"

	upgradeMinutes = 30
)

// Upgrades apply only to these content types.
var upgradeContentTypes = map[string]bool{"educational": true, "technical": true}

// LengthCategoryFor buckets a duration with inclusive upper bounds.
func LengthCategoryFor(minutes float64) LengthCategory {
	switch {
	case minutes <= 10:
		return LengthShort
	case minutes <= 30:
		return LengthMedium
	case minutes <= 60:
		return LengthLong
	default:
		return LengthVeryLong
	}
}

// ModelConfig is the model choice for one request.
type ModelConfig struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

// Tables is the model configuration file layout.
type Tables struct {
	Models       map[Mode]map[LengthCategory]string `yaml:"models"`
	TokenLimits  map[Mode]map[string]int            `yaml:"token_limits"`
	Temperatures map[Mode]float64                   `yaml:"temperature_settings"`
}

func DefaultTables() *Tables {
	const (
		instant = "llama-3.1-8b-instant"
		gemma   = "gemma2-9b-it"
		scout   = "meta-llama/llama-4-scout-17b-16e-instruct"
		versa   = "llama-3.3-70b-versatile"
	)
	return &Tables{
		Models: map[Mode]map[LengthCategory]string{
			ModeTLDR:          {LengthShort: instant, LengthMedium: gemma, LengthLong: scout, LengthVeryLong: scout},
			ModeKeyInsights:   {LengthShort: gemma, LengthMedium: scout, LengthLong: versa, LengthVeryLong: UpgradeModel},
			ModeComprehensive: {LengthShort: scout, LengthMedium: versa, LengthLong: versa, LengthVeryLong: versa},
			ModeArticle:       {LengthShort: scout, LengthMedium: versa, LengthLong: versa, LengthVeryLong: versa},
			ModeCustom:        {LengthShort: instant, LengthMedium: versa, LengthLong: versa, LengthVeryLong: versa},
		},
		TokenLimits: map[Mode]map[string]int{
			ModeTLDR:          {instant: 800, gemma: 1000, scout: 1200},
			ModeKeyInsights:   {gemma: 2000, scout: 2500, versa: 3000, UpgradeModel: 3500},
			ModeComprehensive: {scout: 4000, versa: 4500, UpgradeModel: 5000},
			ModeArticle:       {scout: 6000, UpgradeModel: 7000},
			ModeCustom:        {instant: 800, versa: 10000},
		},
		Temperatures: map[Mode]float64{
			ModeTLDR:          0.3,
			ModeKeyInsights:   0.5,
			ModeComprehensive: 0.7,
			ModeArticle:       0.8,
			ModeCustom:        0.6,
		},
	}
}

// LoadTables reads a YAML tables file. Sections missing from the file keep
// their defaults; an unreadable or invalid file yields the defaults.
func LoadTables(path string, logger logrus.FieldLogger) *Tables {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	t, err := readTables(path)
	if err != nil {
		logger.WithError(err).WithField("path", path).Warn("Using default model tables")
		return DefaultTables()
	}
	return t
}

func readTables(path string) (*Tables, error) {
	if path == "" {
		return nil, errors.New("no model tables file configured")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read model tables")
	}

	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, errors.Wrapf(err, "parse model tables %s", path)
	}

	def := DefaultTables()
	if len(t.Models) == 0 {
		t.Models = def.Models
	}
	if len(t.TokenLimits) == 0 {
		t.TokenLimits = def.TokenLimits
	}
	if len(t.Temperatures) == 0 {
		t.Temperatures = def.Temperatures
	}
	return &t, nil
}

// Selector maps a mode and duration to a model. Its tables can be replaced
// while requests are in flight.
type Selector struct {
	tables atomic.Pointer[Tables]
	logger logrus.FieldLogger
}

func NewSelector(t *Tables, logger logrus.FieldLogger) *Selector {
	if t == nil {
		t = DefaultTables()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &Selector{logger: logger}
	s.tables.Store(t)
	return s
}

func (s *Selector) Tables() *Tables {
	return s.tables.Load()
}

func (s *Selector) SetTables(t *Tables) {
	if t != nil {
		s.tables.Store(t)
	}
}

func (s *Selector) Select(mode Mode, minutes float64) (ModelConfig, error) {
	t := s.tables.Load()

	category := LengthCategoryFor(minutes)
	model, ok := t.Models[mode][category]
	if !ok || model == "" {
		return ModelConfig{}, fmt.Errorf("%w: no model for mode %s and length %s",
			apperrors.ErrConfiguration, mode, category)
	}

	return ModelConfig{
		Model:       model,
		MaxTokens:   s.tokenLimit(t, mode, model),
		Temperature: s.temperature(t, mode),
	}, nil
}

// SelectForContent is Select plus an upgrade to UpgradeModel for long
// educational or technical videos outside TLDR mode. The token limit is
// looked up again for the upgraded model.
func (s *Selector) SelectForContent(mode Mode, minutes float64, contentType string) (ModelConfig, error) {
	cfg, err := s.Select(mode, minutes)
	if err != nil {
		return cfg, err
	}
	if !upgradeContentTypes[contentType] || mode == ModeTLDR || cfg.Model == UpgradeModel || minutes <= upgradeMinutes {
		return cfg, nil
	}

	s.logger.WithFields(logrus.Fields{
		"mode":         mode,
		"content_type": contentType,
		"from":         cfg.Model,
		"to":           UpgradeModel,
	}).Info("Upgrading model for long content")

	cfg.Model = UpgradeModel
	cfg.MaxTokens = s.tokenLimit(s.tables.Load(), mode, UpgradeModel)
	return cfg, nil
}

func (s *Selector) tokenLimit(t *Tables, mode Mode, model string) int {
	if n, ok := t.TokenLimits[mode][model]; ok && n > 0 {
		return n
	}
	s.logger.WithFields(logrus.Fields{"mode": mode, "model": model}).
		Warn("No token limit configured, using default")
	return DefaultMaxTokens
}

func (s *Selector) temperature(t *Tables, mode Mode) float64 {
	if v, ok := t.Temperatures[mode]; ok {
		return v
	}
	s.logger.WithField("mode", mode).Warn("No temperature configured, using default")
	return DefaultTemperature
}

// WatchTables reloads path into s whenever the file changes, until ctx is
// done. The parent directory is watched so editors that replace the file
// are picked up.
func WatchTables(ctx context.Context, path string, s *Selector, logger logrus.FieldLogger) error {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create tables watcher")
	}
	defer w.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(err, "resolve tables path")
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return errors.Wrapf(err, "watch %s", filepath.Dir(abs))
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return errors.New("tables watcher events channel closed")
			}
			if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			t, err := readTables(abs)
			if err != nil {
				logger.WithError(err).Warn("Keeping previous model tables")
				continue
			}
			s.SetTables(t)
			logger.WithField("path", abs).Info("Model tables reloaded")
		case err, ok := <-w.Errors:
			if !ok {
				return errors.New("tables watcher errors channel closed")
			}
			logger.WithError(err).Warn("Tables watcher error")
		}
	}
}
