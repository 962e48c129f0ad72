package engine

import (
	"bufio"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

// Progress is the fraction of the input already transcoded.
type Progress struct {
	Ratio float64
}

// Percent returns the ratio as a rounded integer percentage in [0,100].
func (p Progress) Percent() int {
	return int(math.Round(clampRatio(p.Ratio) * 100))
}

// ProgressFunc receives progress events. It is called from the goroutine
// running Exec.
type ProgressFunc func(Progress)

func clampRatio(ratio float64) float64 {
	switch {
	case math.IsNaN(ratio), ratio < 0:
		return 0
	case ratio > 1:
		return 1
	default:
		return ratio
	}
}

// progressParser turns `-progress` key=value blocks into ratio events.
type progressParser struct {
	duration   time.Duration
	onProgress ProgressFunc
	sawMicros  bool
}

func (p *progressParser) consume(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		p.line(scanner.Text())
	}
	// drain so ffmpeg never blocks on a full pipe
	_, _ = io.Copy(io.Discard, r)
}

func (p *progressParser) line(raw string) {
	if p.onProgress == nil {
		return
	}
	key, value, ok := strings.Cut(strings.TrimSpace(raw), "=")
	if !ok {
		return
	}
	switch key {
	case "out_time_us":
		p.sawMicros = true
		p.emitMicros(value)
	case "out_time_ms":
		// ffmpeg reports out_time_ms in microseconds too.
		if !p.sawMicros {
			p.emitMicros(value)
		}
	case "progress":
		if strings.TrimSpace(value) == "end" {
			p.onProgress(Progress{Ratio: 1})
		}
	}
}

func (p *progressParser) emitMicros(value string) {
	if p.duration <= 0 {
		return
	}
	micros, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return
	}
	elapsed := time.Duration(micros) * time.Microsecond
	p.onProgress(Progress{Ratio: clampRatio(float64(elapsed) / float64(p.duration))})
}
