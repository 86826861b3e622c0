package config

import (
	"strconv"
	"strings"
)

// ApplyKVOverrides applies free-form -c key=value overrides.
func ApplyKVOverrides(cfg Config, overrides []string) Config {
	if len(overrides) == 0 {
		return cfg
	}
	for _, raw := range overrides {
		parts := strings.SplitN(raw, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		val := strings.TrimSpace(parts[1])
		switch key {
		case "url":
			cfg.URL = val
		case "endpoint":
			cfg.Endpoint = val
		case "param":
			cfg.Param = val
		case "token":
			cfg.Token = val
		case "timeout_seconds", "timeout":
			if n, err := strconv.Atoi(val); err == nil && n >= 0 {
				cfg.TimeoutSeconds = n
			}
		case "prompt":
			// 提示符通常以空格结尾，这里保留原值。
			cfg.Prompt = parts[1]
		case "greeting":
			cfg.Greeting = val
		case "history_path":
			cfg.HistoryPath = val
		case "log_level":
			cfg.LogLevel = val
		case "log_path":
			cfg.LogPath = val
		case "listen":
			cfg.Listen = val
		case "cors_origins":
			cfg.CORSOrigins = splitCSV(val)
		}
	}
	return cfg
}

func splitCSV(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
