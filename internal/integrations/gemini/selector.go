package gemini

import (
	"context"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Selector picks the model identifier used for generation. Selection is kept
// pluggable so the fixed default can be swapped for provider-side discovery
// without touching the handler.
type Selector interface {
	Model(ctx context.Context) string
}

// Static always returns a fixed model name, or DefaultModel when empty.
// Dynamic discovery adds a listing round-trip per cold start, so this is the
// default strategy.
type Static struct {
	Name string
}

func (s Static) Model(context.Context) string {
	if s.Name == "" {
		return DefaultModel
	}
	return s.Name
}

type modelLister interface {
	ListModels(ctx context.Context) ([]ModelInfo, error)
}

// Discovery queries the provider's model listing once per process and picks
// the cheapest flash-lite model, falling back to a fixed name whenever the
// listing fails or contains no usable entry.
type Discovery struct {
	lister   modelLister
	fallback string
	log      *slog.Logger

	once   sync.Once
	cached string
}

func NewDiscovery(lister modelLister, fallback string, log *slog.Logger) *Discovery {
	if fallback == "" {
		fallback = DefaultModel
	}
	if log == nil {
		log = slog.Default()
	}
	return &Discovery{lister: lister, fallback: fallback, log: log}
}

func (d *Discovery) Model(ctx context.Context) string {
	d.once.Do(func() {
		d.cached = d.discover(ctx)
	})
	return d.cached
}

func (d *Discovery) discover(ctx context.Context) string {
	models, err := d.lister.ListModels(ctx)
	if err != nil {
		d.log.Warn("model discovery failed, using fallback", "fallback", d.fallback, "err", err)
		return d.fallback
	}
	if name := cheapestFlashLite(models); name != "" {
		d.log.Info("model discovery selected", "model", name)
		return name
	}
	d.log.Info("no flash-lite models found, using fallback", "fallback", d.fallback)
	return d.fallback
}

var flashLiteVersion = regexp.MustCompile(`gemini-(\d+\.\d+)-flash-lite`)

// cheapestFlashLite ranks generateContent-capable flash-lite models by their
// version number ascending and returns the lowest, or "" when none qualify.
func cheapestFlashLite(models []ModelInfo) string {
	type ranked struct {
		name    string
		version float64
	}
	var candidates []ranked
	for _, m := range models {
		if !supportsGenerateContent(m) {
			continue
		}
		name := strings.TrimPrefix(m.Name, "models/")
		if !strings.Contains(name, "-flash-lite") {
			continue
		}
		match := flashLiteVersion.FindStringSubmatch(name)
		if match == nil {
			continue
		}
		version, err := strconv.ParseFloat(match[1], 64)
		if err != nil || version <= 0 {
			continue
		}
		candidates = append(candidates, ranked{name: name, version: version})
	}
	if len(candidates) == 0 {
		return ""
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].version < candidates[j].version })
	return candidates[0].name
}

func supportsGenerateContent(m ModelInfo) bool {
	for _, method := range m.SupportedGenerationMethods {
		if method == "generateContent" {
			return true
		}
	}
	return false
}
