package provider

import (
	"careerai/app/client/gemini"
	"careerai/app/config"
	"careerai/app/metrics"
	"context"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/elliotchance/pie/v2"
)

const GeminiName = "gemini"

var (
	geminiVersionPattern = regexp.MustCompile(`gemini-(\d+)(?:\.(\d+))?`)
	nonGenerativeMarkers = []string{"embedding", "embed", "aqa"}
)

type geminiAPI interface {
	Configured() bool
	ListModels(ctx context.Context) ([]gemini.Model, error)
	GenerateContent(ctx context.Context, apiVersion, model, system, prompt string) (string, error)
}

type GeminiBackend struct {
	client geminiAPI
	cfg    config.Gemini
}

func NewGeminiBackend(client geminiAPI, cfg config.Gemini) *GeminiBackend {
	return &GeminiBackend{
		client: client,
		cfg:    cfg,
	}
}

func (b *GeminiBackend) Name() string {
	return GeminiName
}

func (b *GeminiBackend) Configured() bool {
	return b.client.Configured()
}

func (b *GeminiBackend) Limits() ReplyLimits {
	return ReplyLimits{
		MaxChars:   b.cfg.MaxReplyChars,
		Confidence: b.cfg.Confidence,
	}
}

// Candidates merges the live model list with the static fallbacks.
func (b *GeminiBackend) Candidates(ctx context.Context) []Candidate {
	var discovered []string
	if !b.cfg.DisableDiscovery {
		discovered = b.discover(ctx)
	}

	return mergeGeminiCandidates(discovered, b.cfg.FallbackModels)
}

func (b *GeminiBackend) discover(ctx context.Context) []string {
	ctx, cancel := withTimeout(ctx, b.cfg.DiscoveryTimeout)
	defer cancel()

	models, err := b.client.ListModels(ctx)
	if err != nil {
		metrics.DiscoveryFailuresTotal.WithLabelValues(GeminiName).Inc()
		slog.WarnContext(ctx, "Gemini model discovery failed, using fallback list", "error", err)
		return nil
	}

	var result []string
	for _, model := range models {
		if !model.Supports("generateContent") {
			continue
		}
		if id := model.ID(); isGenerativeGemini(id) {
			result = append(result, id)
		}
	}

	slog.DebugContext(ctx, "Gemini models discovered", "count", len(result), "models", result)

	return result
}

func (b *GeminiBackend) Generate(ctx context.Context, candidate Candidate, system, user string) (string, error) {
	ctx, cancel := withTimeout(ctx, b.cfg.RequestTimeout)
	defer cancel()

	return b.client.GenerateContent(ctx, candidate.APIVersion, candidate.Model, system, user)
}

func isGenerativeGemini(id string) bool {
	lower := strings.ToLower(id)
	if !strings.Contains(lower, "gemini") {
		return false
	}

	for _, marker := range nonGenerativeMarkers {
		if strings.Contains(lower, marker) {
			return false
		}
	}

	return true
}

// versionScore turns "gemini-2.5-pro" into 205; ids without a version score 0.
func versionScore(id string) int {
	match := geminiVersionPattern.FindStringSubmatch(strings.ToLower(id))
	if match == nil {
		return 0
	}

	major, _ := strconv.Atoi(match[1])
	minor, _ := strconv.Atoi(match[2])

	return major*100 + minor
}

func isPro(id string) bool {
	return strings.Contains(strings.ToLower(id), "pro")
}

// rankModels orders ids newest version first, pro before others at equal
// version, then by id.
func rankModels(ids []string) []string {
	result := pie.Unique(ids)

	sort.SliceStable(result, func(i, j int) bool {
		vi, vj := versionScore(result[i]), versionScore(result[j])
		if vi != vj {
			return vi > vj
		}

		pi, pj := isPro(result[i]), isPro(result[j])
		if pi != pj {
			return pi
		}

		return result[i] < result[j]
	})

	return result
}

func mergeGeminiCandidates(discovered []string, fallbacks []config.ModelRef) []Candidate {
	var result []Candidate
	seen := make(map[string]struct{})

	add := func(apiVersion, model string) {
		key := apiVersion + "/" + model
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}

		result = append(result, Candidate{
			Provider:   GeminiName,
			APIVersion: apiVersion,
			Model:      model,
			Priority:   len(result),
		})
	}

	for _, id := range rankModels(discovered) {
		add(gemini.DiscoveryVersion, id)
	}
	for _, ref := range fallbacks {
		add(ref.APIVersion, ref.Model)
	}

	return result
}

var _ Backend = (*GeminiBackend)(nil)
