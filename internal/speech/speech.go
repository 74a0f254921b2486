package speech

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mohammad-safakhou/parley/config"
	"github.com/mohammad-safakhou/parley/provider"
)

// Synthesizer turns interviewer text into cached mp3 files and hands
// back URLs under the server's /audio route. Synthesis results are
// keyed by content hash so repeated phrasings hit the disk cache
// instead of the TTS backend.
type Synthesizer struct {
	cfg      config.SpeechConfig
	provider provider.Provider
	logger   *log.Logger
}

// New prepares the cache directory and returns a synthesizer.
func New(cfg config.SpeechConfig, p provider.Provider) (*Synthesizer, error) {
	cfg = cfg.Normalize()
	if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("speech cache dir: %w", err)
	}
	return &Synthesizer{
		cfg:      cfg,
		provider: p,
		logger:   log.New(log.Writer(), "[SPEECH] ", log.LstdFlags),
	}, nil
}

// CacheDir returns the directory audio files are written to, for the
// server to mount as a static route.
func (s *Synthesizer) CacheDir() string {
	return s.cfg.CacheDir
}

// cacheKey identifies one utterance: text, voice and speed all change
// the produced audio.
func (s *Synthesizer) cacheKey(text string) string {
	sum := sha1.Sum([]byte(fmt.Sprintf("%s|%s|%.2f", text, s.cfg.Voice, s.cfg.Speed)))
	return hex.EncodeToString(sum[:])
}

// SynthesizeToURL returns the /audio URL for an utterance, producing
// and caching the file on a miss.
func (s *Synthesizer) SynthesizeToURL(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("empty text")
	}

	key := s.cacheKey(text)
	name := key + ".mp3"
	path := filepath.Join(s.cfg.CacheDir, name)

	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		// Refresh mtime so the pruner treats this entry as recently used.
		now := time.Now()
		_ = os.Chtimes(path, now, now)
		return "/audio/" + name, nil
	}

	audio, err := s.provider.Synthesize(ctx, provider.SpeechRequest{
		Text:  text,
		Voice: s.cfg.Voice,
		Speed: s.cfg.Speed,
	})
	if err != nil {
		return "", fmt.Errorf("synthesize: %w", err)
	}
	if len(audio) == 0 {
		return "", fmt.Errorf("synthesize: empty audio")
	}

	// Unique temp name: concurrent requests for the same utterance must
	// not clobber each other's partial writes.
	tmp := path + "." + uuid.NewString() + ".tmp"
	if err := os.WriteFile(tmp, audio, 0o644); err != nil {
		return "", fmt.Errorf("write audio: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("write audio: %w", err)
	}
	return "/audio/" + name, nil
}

// Prune removes cache entries older than the configured max age, then
// evicts oldest-first until the cache fits the byte budget. Returns how
// many files were removed.
func (s *Synthesizer) Prune() (int, error) {
	entries, err := os.ReadDir(s.cfg.CacheDir)
	if err != nil {
		return 0, err
	}

	type cacheFile struct {
		path    string
		modTime time.Time
		size    int64
	}
	var (
		files []cacheFile
		total int64
	)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".mp3") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, cacheFile{
			path:    filepath.Join(s.cfg.CacheDir, e.Name()),
			modTime: info.ModTime(),
			size:    info.Size(),
		})
		total += info.Size()
	}

	sort.Slice(files, func(i, j int) bool { return files[i].modTime.Before(files[j].modTime) })

	removed := 0
	cutoff := time.Now().Add(-s.cfg.CacheMaxAge)
	for _, f := range files {
		expired := f.modTime.Before(cutoff)
		over := total > s.cfg.CacheMaxBytes
		if !expired && !over {
			break
		}
		if err := os.Remove(f.path); err != nil {
			s.logger.Printf("prune %s failed: %v", f.path, err)
			continue
		}
		total -= f.size
		removed++
	}
	if removed > 0 {
		s.logger.Printf("pruned %d cached audio file(s)", removed)
	}
	return removed, nil
}
