// Package chatlog persists per-conversation interaction records as
// append-only JSONL files, partitioned by chat identity and interaction
// kind, and keeps a bounded in-memory tail for quick inspection.
package chatlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/hosamdev/wassist/internal/utils"
)

// Interaction kinds. Each kind gets its own file under the chat's
// directory so outreach and reactive traffic never interleave.
const (
	KindOutreach = "outreach"
	KindReactive = "reactive"
)

// Record is one logged interaction turn.
type Record struct {
	ID        string            `json:"id"`
	Timestamp string            `json:"timestamp"`
	Role      string            `json:"role"`
	Content   string            `json:"content"`
	Extras    map[string]string `json:"extras,omitempty"`
}

// GlobalEntry is one interaction in the cross-conversation recent log.
type GlobalEntry struct {
	Chat   string
	Kind   string
	Record Record
}

// Logger appends interaction records to disk and serves recent tails.
type Logger struct {
	mu      sync.Mutex
	dir     string
	maxTail int
	recent  map[string][]Record
	global  []GlobalEntry
}

// NewLogger creates a logger rooted at dir. maxTail bounds the in-memory
// tail kept per chat+kind (0 uses a small default).
func NewLogger(dir string, maxTail int) *Logger {
	if maxTail <= 0 {
		maxTail = 20
	}
	return &Logger{
		dir:     dir,
		maxTail: maxTail,
		recent:  make(map[string][]Record),
	}
}

func (l *Logger) filePath(chatID, kind string) string {
	return filepath.Join(l.dir, utils.SafeFilename(chatID), kind+"_history.jsonl")
}

func tailKey(chatID, kind string) string {
	return utils.SafeFilename(chatID) + "/" + kind
}

// Append writes one record for chatID under kind. Disk failures are
// logged and the in-memory tail is still updated, so a full disk never
// stalls message handling.
func (l *Logger) Append(chatID, kind, role, content string, extras map[string]string) Record {
	rec := Record{
		ID:        uuid.NewString(),
		Timestamp: utils.Timestamp(),
		Role:      role,
		Content:   content,
		Extras:    extras,
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := tailKey(chatID, kind)
	tail := append(l.recent[key], rec)
	if len(tail) > l.maxTail {
		tail = tail[len(tail)-l.maxTail:]
	}
	l.recent[key] = tail

	l.global = append(l.global, GlobalEntry{Chat: chatID, Kind: kind, Record: rec})
	if len(l.global) > l.maxTail {
		l.global = l.global[len(l.global)-l.maxTail:]
	}

	path := l.filePath(chatID, kind)
	if _, err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		log.Printf("[ChatLog] mkdir for %s: %v", chatID, err)
		return rec
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("[ChatLog] open %s: %v", path, err)
		return rec
	}
	defer f.Close()

	line, err := json.Marshal(rec)
	if err != nil {
		log.Printf("[ChatLog] encode record for %s: %v", chatID, err)
		return rec
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		log.Printf("[ChatLog] write %s: %v", path, err)
	}
	return rec
}

// Recent returns the bounded in-memory tail for chatID under kind,
// oldest first.
func (l *Logger) Recent(chatID, kind string) []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	tail := l.recent[tailKey(chatID, kind)]
	out := make([]Record, len(tail))
	copy(out, tail)
	return out
}

// ClearRecent drops the in-memory tail for chatID under kind. The JSONL
// file on disk is untouched.
func (l *Logger) ClearRecent(chatID, kind string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.recent, tailKey(chatID, kind))
}

// GlobalRecent returns the bounded cross-conversation recent log,
// oldest first.
func (l *Logger) GlobalRecent() []GlobalEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]GlobalEntry, len(l.global))
	copy(out, l.global)
	return out
}

// ClearGlobalRecent empties the cross-conversation recent log.
func (l *Logger) ClearGlobalRecent() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.global = nil
}

// Tail reads the last n records of the on-disk log for chatID under
// kind, oldest first. Missing files yield an empty slice.
func (l *Logger) Tail(chatID, kind string, n int) ([]Record, error) {
	path := l.filePath(chatID, kind)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log %s: %w", path, err)
	}
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var rec Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			log.Printf("[ChatLog] skipping corrupt line in %s: %v", path, err)
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan log %s: %w", path, err)
	}

	if n > 0 && len(records) > n {
		records = records[len(records)-n:]
	}
	return records, nil
}

// ListChats returns the sanitized chat directory names that have logs,
// sorted for stable numbered listings.
func (l *Logger) ListChats() ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read logs dir: %w", err)
	}
	var chats []string
	for _, e := range entries {
		if e.IsDir() {
			chats = append(chats, e.Name())
		}
	}
	sort.Strings(chats)
	return chats, nil
}

// TailByDir is Tail keyed by an already-sanitized chat directory name,
// as returned by ListChats.
func (l *Logger) TailByDir(chatDir, kind string, n int) ([]Record, error) {
	if utils.SafeFilename(chatDir) != chatDir {
		return nil, fmt.Errorf("invalid chat directory %q", chatDir)
	}
	return l.Tail(chatDir, kind, n)
}
