// Package variant narrows a product's variant list against a partial
// attribute selection. It is pure: no storage, no transport, no clock.
package variant

import (
	"regexp"
	"sort"
	"strings"

	"github.com/brunoshop/storefront/internal/domain"
)

// AttributeMeta is one attribute dimension discovered across active variants.
// ID is the normalized key used for matching; Label keeps the first raw
// spelling seen, for display.
type AttributeMeta struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Resolution is the full outcome of resolving a selection against a variant
// list. It is always usable: a selection that matches nothing degrades to the
// first active variant, and an option set never comes back empty for a
// dimension that has values at all.
type Resolution struct {
	Attributes []AttributeMeta
	Options    map[string][]string
	Variant    *domain.Variant
	InStock    bool
}

// Resolve computes per-dimension valid options and the single resolved
// variant for the given selection. Zero active variants yields a nil variant
// and InStock false, never an error.
func Resolve(variants []domain.Variant, selection map[string]string) Resolution {
	active := activeVariants(variants)
	attributes := attributeMeta(active)

	options := make(map[string][]string, len(attributes))
	for _, attribute := range attributes {
		options[attribute.ID] = optionsFor(active, attributes, attribute.ID, selection)
	}

	resolved := match(active, attributes, selection)

	return Resolution{
		Attributes: attributes,
		Options:    options,
		Variant:    resolved,
		InStock:    resolved != nil && resolved.IsActive,
	}
}

// SeedSelection builds the initial selection from the first active variant's
// attribute values. Used when switching products or when the resolved
// variant's identity changes.
func SeedSelection(variants []domain.Variant) map[string]string {
	active := activeVariants(variants)
	attributes := attributeMeta(active)
	if len(active) == 0 || len(attributes) == 0 {
		return map[string]string{}
	}

	seed := make(map[string]string, len(attributes))
	for _, attribute := range attributes {
		seed[attribute.ID] = active[0].AttributeValue(attribute.ID)
	}
	return seed
}

// HealSelection replaces selected values that the recomputed options no
// longer offer with the first valid option for that dimension. The returned
// bool reports whether anything changed; when false the input map is returned
// untouched so callers can avoid update loops.
func HealSelection(selection map[string]string, resolution Resolution) (map[string]string, bool) {
	changed := false
	next := selection

	for _, attribute := range resolution.Attributes {
		options := resolution.Options[attribute.ID]
		if len(options) == 0 {
			continue
		}
		current, ok := next[attribute.ID]
		if ok && current != "" && contains(options, current) {
			continue
		}
		if !changed {
			next = copySelection(selection)
			changed = true
		}
		next[attribute.ID] = options[0]
	}

	return next, changed
}

// RankImages stably orders images so that those whose alt text contains any
// of the resolved variant's attribute values come first. Relative order is
// preserved among matches and among non-matches.
func RankImages(images []domain.ProductImage, resolved *domain.Variant) []domain.ProductImage {
	ranked := make([]domain.ProductImage, len(images))
	copy(ranked, images)
	if resolved == nil {
		return ranked
	}

	tokens := make([]string, 0, len(resolved.AttributeValues))
	for _, key := range sortedKeys(resolved.AttributeValues) {
		token := strings.ToLower(strings.TrimSpace(resolved.AttributeValues[key]))
		if token != "" {
			tokens = append(tokens, token)
		}
	}
	if len(tokens) == 0 {
		return ranked
	}

	score := func(image domain.ProductImage) int {
		alt := strings.ToLower(image.AltText)
		if alt == "" {
			return 0
		}
		for _, token := range tokens {
			if strings.Contains(alt, token) {
				return 1
			}
		}
		return 0
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return score(ranked[i]) > score(ranked[j])
	})
	return ranked
}

var keySeparators = regexp.MustCompile(`[_-]+`)

// HumanizeAttributeKey turns a raw attribute key into display text.
func HumanizeAttributeKey(key string) string {
	return keySeparators.ReplaceAllString(key, " ")
}

// MergeSpecifications overlays the resolved variant's attribute values onto
// the base specification rows. A variant attribute whose name matches a spec
// key case-insensitively overwrites that row's value; unmatched attributes
// are appended as new rows.
func MergeSpecifications(base []domain.Specification, resolved *domain.Variant) []domain.Specification {
	merged := make([]domain.Specification, len(base))
	copy(merged, base)
	if resolved == nil {
		return merged
	}

	overrides := make(map[string]string)
	order := make([]string, 0, len(resolved.AttributeValues))
	for _, key := range sortedKeys(resolved.AttributeValues) {
		value := strings.TrimSpace(resolved.AttributeValues[key])
		if key == "" || value == "" {
			continue
		}
		normalized := domain.NormalizeAttributeKey(key)
		if _, seen := overrides[normalized]; !seen {
			order = append(order, normalized)
		}
		overrides[normalized] = value
	}
	if len(overrides) == 0 {
		return merged
	}

	consumed := make(map[string]bool, len(overrides))
	for i, specification := range merged {
		normalized := domain.NormalizeAttributeKey(specification.Key)
		if value, ok := overrides[normalized]; ok && !consumed[normalized] {
			merged[i].Value = value
			consumed[normalized] = true
		}
	}

	for _, normalized := range order {
		if consumed[normalized] {
			continue
		}
		merged = append(merged, domain.Specification{
			Key:   HumanizeAttributeKey(normalized),
			Value: overrides[normalized],
		})
	}
	return merged
}

func activeVariants(variants []domain.Variant) []domain.Variant {
	active := make([]domain.Variant, 0, len(variants))
	for _, v := range variants {
		if v.IsActive {
			active = append(active, v)
		}
	}
	return active
}

// attributeMeta collects dimensions in variant order; keys within a variant
// are visited in sorted order so results are deterministic.
func attributeMeta(active []domain.Variant) []AttributeMeta {
	seen := make(map[string]bool)
	meta := make([]AttributeMeta, 0)
	for _, v := range active {
		for _, raw := range sortedKeys(v.AttributeValues) {
			normalized := domain.NormalizeAttributeKey(raw)
			if normalized == "" || seen[normalized] {
				continue
			}
			seen[normalized] = true
			meta = append(meta, AttributeMeta{ID: normalized, Label: raw})
		}
	}
	return meta
}

// optionsFor returns the values of the target dimension among variants that
// are compatible with the selection on every other dimension. When no variant
// is compatible it falls back to all active variants, so a dimension with any
// values never renders zero options.
func optionsFor(active []domain.Variant, attributes []AttributeMeta, targetID string, selection map[string]string) []string {
	compatible := make([]domain.Variant, 0, len(active))
	for _, v := range active {
		if matchesOthers(v, attributes, targetID, selection) {
			compatible = append(compatible, v)
		}
	}

	source := compatible
	if len(source) == 0 {
		source = active
	}

	seen := make(map[string]bool)
	values := make([]string, 0, len(source))
	for _, v := range source {
		value := v.AttributeValue(targetID)
		if value == "" || seen[value] {
			continue
		}
		seen[value] = true
		values = append(values, value)
	}
	return values
}

func matchesOthers(v domain.Variant, attributes []AttributeMeta, targetID string, selection map[string]string) bool {
	for _, attribute := range attributes {
		if attribute.ID == targetID {
			continue
		}
		selected := selection[attribute.ID]
		if selected == "" {
			continue
		}
		if v.AttributeValue(attribute.ID) != selected {
			return false
		}
	}
	return true
}

// match returns the first active variant whose attribute map agrees with the
// selection on every dimension, falling back to the first active variant so
// the caller always has a sellable variant when one exists.
func match(active []domain.Variant, attributes []AttributeMeta, selection map[string]string) *domain.Variant {
	if len(active) == 0 {
		return nil
	}
	for i := range active {
		if matchesOthers(active[i], attributes, "", selection) {
			return &active[i]
		}
	}
	return &active[0]
}

func contains(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}

func copySelection(selection map[string]string) map[string]string {
	next := make(map[string]string, len(selection))
	for key, value := range selection {
		next[key] = value
	}
	return next
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
