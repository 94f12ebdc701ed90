package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// SizeBytes unmarshals human-friendly byte-size strings ("64MB", "512KiB")
// or plain integers into a byte count. Grounded on the teacher's
// service/pkg/config/types.go SizeBytes type; adapted to goccy/go-yaml's
// BytesUnmarshaler interface (raw scalar bytes, not a yaml.Node).
type SizeBytes int64

func (s *SizeBytes) UnmarshalYAML(b []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(b)), `"'`)
	if raw == "" {
		*s = 0
		return nil
	}
	if v, err := humanize.ParseBytes(raw); err == nil {
		*s = SizeBytes(v)
		return nil
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*s = SizeBytes(i)
		return nil
	}
	return fmt.Errorf("invalid size value: %q", raw)
}

// Int64 returns the byte count.
func (s SizeBytes) Int64() int64 { return int64(s) }

// Duration unmarshals a Go duration string ("60s", "500ms") or a bare
// number of seconds. Grounded on the teacher's Duration type in
// service/pkg/config/types.go.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(b []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(b)), `"'`)
	if raw == "" {
		*d = 0
		return nil
	}
	if td, err := time.ParseDuration(raw); err == nil {
		*d = Duration(td)
		return nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		*d = Duration(time.Duration(f * float64(time.Second)))
		return nil
	}
	return fmt.Errorf("invalid duration value: %q", raw)
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration { return time.Duration(d) }
