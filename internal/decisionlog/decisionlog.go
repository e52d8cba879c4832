package decisionlog

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var mu sync.Mutex

// Entry is one confirmation outcome, appended as a JSON line to the current
// day's log file.
type Entry struct {
	Time                string         `json:"time"`
	Pair                string         `json:"pair"`
	Approved            bool           `json:"approved"`
	ImpactScore         float64        `json:"impact_score"`
	Sentiment           string         `json:"sentiment"`
	HistoricalAvgImpact float64        `json:"historical_avg_impact"`
	Reason              string         `json:"reason"`
	Cached              bool           `json:"cached"`
	Degraded            bool           `json:"degraded,omitempty"`
	Extra               map[string]any `json:"extra,omitempty"`
}

func logDir() string {
	if v := os.Getenv("BOT_LOG_DIR"); v != "" {
		return v
	}
	return "logs"
}

func dailyFilepath(t time.Time) string {
	d := t.UTC().Format("2006-01-02")
	return filepath.Join(logDir(), "decisions", d+".txt")
}

// Append writes one entry to the current day's decision log.
func Append(e Entry) error {
	mu.Lock()
	defer mu.Unlock()
	now := time.Now().UTC()
	e.Time = now.Format("2006-01-02 15:04:05")
	p := dailyFilepath(now)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	b, _ := json.Marshal(e)
	_, err = fmt.Fprintln(f, string(b))
	return err
}

// CompressOlder gzips decision logs older than retentionDays and removes the
// originals. Zero or negative retention disables compression.
func CompressOlder(retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	root := logDir()
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	return filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if filepath.Ext(p) != ".txt" {
			return nil
		}
		info, er := os.Stat(p)
		if er != nil {
			return nil
		}
		if info.ModTime().After(cutoff) {
			return nil
		}
		if err := gzipFile(p); err != nil {
			return nil
		}
		return os.Remove(p)
	})
}

func gzipFile(p string) error {
	src, err := os.Open(p)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(p + ".gz")
	if err != nil {
		return err
	}
	defer dst.Close()

	zw := gzip.NewWriter(dst)
	if _, err := io.Copy(zw, src); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}
