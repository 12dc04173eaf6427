package getsafe

import "time"

func String(payload map[string]any, key string) string {
	if v, ok := payload[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func Time(payload map[string]any, key string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, String(payload, key))
	return t
}
