package variant

import (
	"regexp"
	"strings"

	"github.com/brunoshop/storefront/internal/domain"
)

// Attribute keys recognized as the color and size dimensions across the
// storefront's locales.
var (
	colorAttributeKeys = map[string]bool{
		"color": true, "colour": true, "cor": true, "cores": true,
	}
	sizeAttributeKeys = map[string]bool{
		"size": true, "tamanho": true, "tam": true, "talla": true,
	}
)

// IsColorAttribute reports whether the key names the color dimension.
func IsColorAttribute(key string) bool {
	return colorAttributeKeys[domain.NormalizeAttributeKey(key)]
}

// IsSizeAttribute reports whether the key names the size dimension.
func IsSizeAttribute(key string) bool {
	return sizeAttributeKeys[domain.NormalizeAttributeKey(key)]
}

var (
	hexPattern  = regexp.MustCompile(`#(?i:[0-9a-f]{3}|[0-9a-f]{6})`)
	emptyParens = regexp.MustCompile(`\(\s*\)`)
)

// ColorValue is a color attribute value split into display label and
// optional hex swatch.
type ColorValue struct {
	Label string
	Hex   string
}

// ParseColorValue splits values like "Navy Blue: #1e3a8a" or "Preto|#111"
// into a label and swatch hex. A bare label parses with an empty hex.
func ParseColorValue(value string) ColorValue {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return ColorValue{}
	}

	hex := hexPattern.FindString(raw)

	label := raw
	if idx := strings.Index(raw, ":"); idx >= 0 {
		if left := strings.TrimSpace(raw[:idx]); left != "" {
			label = left
		}
	} else if idx := strings.Index(raw, "|"); idx >= 0 {
		if left := strings.TrimSpace(raw[:idx]); left != "" {
			label = left
		}
	}

	label = strings.TrimSpace(hexPattern.ReplaceAllString(label, ""))
	label = strings.TrimSpace(emptyParens.ReplaceAllString(label, ""))
	if label == "" {
		label = raw
	}

	return ColorValue{Label: label, Hex: hex}
}
