package marketdata

import "time"

// Helper functions to safely extract values from map

func getFloat64(m map[string]interface{}, key string) *float64 {
	if val, ok := m[key]; ok && val != nil {
		switch v := val.(type) {
		case float64:
			return &v
		case int:
			f := float64(v)
			return &f
		case int64:
			f := float64(v)
			return &f
		}
	}
	return nil
}

func getStringPtr(m map[string]interface{}, key string) *string {
	if val, ok := m[key]; ok && val != nil {
		if s, ok := val.(string); ok && s != "" {
			return &s
		}
	}
	return nil
}

// getUnixTime converts a raw epoch field to a time pointer.
func getUnixTime(m map[string]interface{}, key string) *time.Time {
	if val := getFloat64(m, key); val != nil && *val > 0 {
		t := time.Unix(int64(*val), 0).UTC()
		return &t
	}
	return nil
}
