package capture

import (
	"encoding/json"
	"fmt"
	"strconv"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// Prober inspects a finalized recording and returns its duration in
// seconds. Probe failure after a clean stop is the recoverable encoding
// failure of the capture flow: the outcome survives with an error marker.
type Prober func(path string) (float64, error)

// ProbeVideo reads the container metadata with ffprobe.
func ProbeVideo(path string) (float64, error) {
	jsonOutput, err := ffmpeg.Probe(path)
	if err != nil {
		return 0, fmt.Errorf("probe failed: %w", err)
	}

	var result struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal([]byte(jsonOutput), &result); err != nil {
		return 0, fmt.Errorf("probe output unreadable: %w", err)
	}

	duration, err := strconv.ParseFloat(result.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("probe reported no duration: %w", err)
	}
	return duration, nil
}
