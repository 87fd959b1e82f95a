package puppet

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// invalidTimestamp is reported when time.last_run is present but does not
// parse as an integer epoch.
const invalidTimestamp = "invalid or missing timestamp"

// RunSummary is the parsed last-run report. Fields absent from the source
// document stay absent here.
type RunSummary struct {
	LastRun   string         `json:"last_run,omitempty"`
	Time      map[string]any `json:"time,omitempty"`
	Resources map[string]any `json:"resources,omitempty"`
}

// Summary reads and parses the last-run summary document.
func (a *Agent) Summary() (RunSummary, error) {
	data, err := os.ReadFile(a.paths.LastRunFile())
	if err != nil {
		return RunSummary{}, fmt.Errorf("%w: unable to read run summary: %v", ErrFileAccess, err)
	}

	var report map[string]any
	if err := yaml.Unmarshal(data, &report); err != nil {
		return RunSummary{}, fmt.Errorf("%w: %v", ErrDocumentParse, err)
	}

	var summary RunSummary

	if timing, ok := report["time"].(map[string]any); ok {
		if epoch, ok := toEpoch(timing["last_run"]); ok {
			summary.LastRun = time.Unix(epoch, 0).Format(time.RFC3339)
		} else {
			summary.LastRun = invalidTimestamp
		}

		summary.Time = map[string]any{}
		for _, key := range []string{"total", "config_retrieval"} {
			if value, ok := timing[key]; ok {
				summary.Time[key] = value
			}
		}
	}

	if resources, ok := report["resources"].(map[string]any); ok {
		summary.Resources = resources
	}

	return summary, nil
}

// toEpoch coerces the YAML scalar forms an integer epoch can decode to.
func toEpoch(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	case uint64:
		return int64(v), true
	case float64:
		return int64(v), true
	case string:
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}
