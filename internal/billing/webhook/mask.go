package webhook

import (
	"encoding/json"
	"strings"
)

// maskPayload redacts card and billing details before a payload leaves the
// process. Payloads that are not JSON objects are returned unchanged.
func maskPayload(raw []byte) []byte {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return raw
	}
	maskMap(obj)
	masked, err := json.Marshal(obj)
	if err != nil {
		return raw
	}
	return masked
}

func maskMap(m map[string]any) {
	for k, v := range m {
		switch strings.ToLower(k) {
		case "card", "billing_details", "shipping", "shipping_details", "payment_method_details", "client_secret":
			m[k] = "***"
		default:
			maskValue(v)
		}
	}
}

func maskValue(v any) {
	switch t := v.(type) {
	case map[string]any:
		maskMap(t)
	case []any:
		for _, item := range t {
			maskValue(item)
		}
	}
}
