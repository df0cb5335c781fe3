package logger

import (
	"strings"
	"unicode"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const redacted = "***"

type maskRule struct {
	match string
	mask  func(string) string
}

// Rules are checked in order against the normalised key (lower case, no "-"
// or "_"). Promo codes printed on QR stickers are public and logged under
// "promo_code", which no rule matches.
var maskRules = []maskRule{
	{match: "authorization", mask: redactAll},
	{match: "cookie", mask: redactAll},
	{match: "visitorref", mask: redactAll},
	{match: "password", mask: redactAll},
	{match: "secret", mask: redactAll},
	{match: "apikey", mask: redactAll},
	{match: "token", mask: redactAll},
	{match: "whatsapp", mask: keepTrailingDigits(4)},
	{match: "phone", mask: keepTrailingDigits(4)},
}

// SanitizeFields masks credentials and seller contact details in request log
// fields, descending into maps and slices carried by zap.Any.
func SanitizeFields(fields []zap.Field) []zap.Field {
	if len(fields) == 0 {
		return fields
	}

	out := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		if rule, ok := ruleFor(field.Key); ok {
			out = append(out, zap.String(field.Key, maskValue(rule, fieldValue(field))))
			continue
		}

		value := fieldValue(field)
		switch value.(type) {
		case map[string]interface{}, []interface{}:
			out = append(out, zap.Any(field.Key, sanitizeValue(value)))
		default:
			out = append(out, field)
		}
	}
	return out
}

func sanitizeValue(value interface{}) interface{} {
	switch typed := value.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(typed))
		for key, inner := range typed {
			if rule, ok := ruleFor(key); ok {
				out[key] = maskValue(rule, inner)
				continue
			}
			out[key] = sanitizeValue(inner)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(typed))
		for i, inner := range typed {
			out[i] = sanitizeValue(inner)
		}
		return out
	default:
		return typed
	}
}

func maskValue(rule maskRule, value interface{}) string {
	text, ok := value.(string)
	if !ok {
		return redacted
	}
	return rule.mask(text)
}

func fieldValue(field zap.Field) interface{} {
	enc := zapcore.NewMapObjectEncoder()
	field.AddTo(enc)
	return enc.Fields[field.Key]
}

func ruleFor(key string) (maskRule, bool) {
	normalized := strings.NewReplacer("-", "", "_", "").Replace(strings.ToLower(strings.TrimSpace(key)))
	if normalized == "" {
		return maskRule{}, false
	}
	for _, rule := range maskRules {
		if strings.Contains(normalized, rule.match) {
			return rule, true
		}
	}
	return maskRule{}, false
}

func redactAll(string) string {
	return redacted
}

// keepTrailingDigits keeps the last n digits of a phone number so support
// can tell sellers apart in logs.
func keepTrailingDigits(n int) func(string) string {
	return func(value string) string {
		digits := make([]rune, 0, len(value))
		for _, r := range value {
			if unicode.IsDigit(r) {
				digits = append(digits, r)
			}
		}
		if len(digits) <= n {
			return redacted
		}
		return redacted + string(digits[len(digits)-n:])
	}
}
