package sanitize

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictPolicyOnce sync.Once
	strictPolicy     *bluemonday.Policy
)

func Text(input string) string {
	return html.EscapeString(strings.TrimSpace(input))
}

func TextPtr(input *string) *string {
	if input == nil {
		return nil
	}
	value := Text(*input)
	return &value
}

// Headline strips every tag from seller-supplied promotion copy. The result
// is rendered on public landing pages, so no markup survives.
func Headline(input string) string {
	value := strings.TrimSpace(input)
	if value == "" {
		return ""
	}
	cleaned := getStrictPolicy().Sanitize(value)
	return strings.Join(strings.Fields(html.UnescapeString(cleaned)), " ")
}

// HeadlinePtr returns nil when nothing is left after sanitising.
func HeadlinePtr(input *string) *string {
	if input == nil {
		return nil
	}
	value := Headline(*input)
	if value == "" {
		return nil
	}
	return &value
}

func getStrictPolicy() *bluemonday.Policy {
	strictPolicyOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()
	})

	return strictPolicy
}
