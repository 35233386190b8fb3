package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kjstillabower/weathertools/internal/attribution"
	"github.com/kjstillabower/weathertools/internal/cache"
	"github.com/kjstillabower/weathertools/internal/models"
	"github.com/kjstillabower/weathertools/internal/resolver"
	"github.com/kjstillabower/weathertools/internal/toolerr"
)

// resolveCacheTTL is deliberately long: the gazetteer never changes during
// a process lifetime, so a cached resolver result never goes stale (§4.11,
// §3 Ownership — "the gazetteer store is shared read-only for the process
// lifetime").
const resolveCacheTTL = 1 * time.Hour

type resolveInput struct {
	Query                     string              `json:"query"`
	Limit                     int                 `json:"limit,omitempty"`
	PreferredPlaceClasses     []models.PlaceClass `json:"preferredPlaceClasses,omitempty"`
	PreferredMunicipalityCode string              `json:"preferredMunicipalityCode,omitempty"`
}

// ResolveTool implements places.resolve_name (§4.9+§4.11), the only tool
// exposing the gazetteer resolver rather than an upstream weather product.
type ResolveTool struct {
	Resolver *resolver.Resolver
	// Cache is optional; when nil every call hits the resolver directly.
	Cache cache.Cache
}

func (t *ResolveTool) Name() string { return "places.resolve_name" }

func (t *ResolveTool) Call(ctx context.Context, raw json.RawMessage) attribution.Envelope {
	var in resolveInput
	if err := decodeInput(raw, &in); err != nil {
		return attribution.BuildErrorResponse(err)
	}

	filter := resolver.Filter{
		PreferredPlaceClasses:     in.PreferredPlaceClasses,
		PreferredMunicipalityCode: in.PreferredMunicipalityCode,
	}
	cacheKey := resolveCacheKey(in, filter)

	if t.Cache != nil {
		if cached, ok, cerr := t.Cache.Get(ctx, cacheKey); cerr == nil && ok {
			return resolveEnvelope(cached)
		}
	}

	res, rerr := t.Resolver.Resolve(ctx, in.Query, in.Limit, filter)
	if rerr != nil {
		return attribution.BuildErrorResponse(toolerr.Invalid("%v", rerr))
	}
	if t.Cache != nil {
		_ = t.Cache.Set(ctx, cacheKey, res, resolveCacheTTL)
	}

	return resolveEnvelope(res)
}

func resolveEnvelope(res resolver.Result) attribution.Envelope {
	structured := map[string]any{
		"matches": res.Matches,
	}
	summary := res.Summary
	if summary == "" {
		summary = fmt.Sprintf("%d match(es) found.", len(res.Matches))
	}
	return attribution.BuildToolResponse(structured, summary)
}

// resolveCacheKey builds a stable cache key from the query and every filter
// field that affects the result set.
func resolveCacheKey(in resolveInput, filter resolver.Filter) string {
	key := fmt.Sprintf("q=%s&limit=%d&muni=%s&classes=",
		in.Query, in.Limit, filter.PreferredMunicipalityCode)
	for i, c := range filter.PreferredPlaceClasses {
		if i > 0 {
			key += ","
		}
		key += string(c)
	}
	return key
}
