package arena

import (
	"fmt"
	"iter"
	"leekwars-tracker/internal/domain"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	dataSuffix = "_data.json"
	logsSuffix = "_logs.json"
)

// Entry is one saved fight in a payload directory.
type Entry struct {
	FightID  int64
	DataPath string
	// LogsPath is empty when no logs sibling exists.
	LogsPath string
}

// Payload is a loaded entry.
type Payload struct {
	Entry
	Fight   *Fight
	Logs    *Logs
	ModTime time.Time
	// LogsErr is set when the logs sibling exists but could not be used.
	LogsErr error
}

func DataFileName(fightID int64) string {
	return strconv.FormatInt(fightID, 10) + dataSuffix
}

func LogsFileName(fightID int64) string {
	return strconv.FormatInt(fightID, 10) + logsSuffix
}

// Scan lists the fights saved in dir, ordered by fight id. Only file names
// are read here; bodies are decoded one at a time by Entry.Load.
func Scan(dir string) (iter.Seq[Entry], int, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read payload directory %s: %w: %w", dir, domain.ErrIO, err)
	}

	names := make(map[string]bool, len(files))
	var ids []int64
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		name := file.Name()
		names[name] = true
		prefix, ok := strings.CutSuffix(name, dataSuffix)
		if !ok {
			continue
		}
		id, err := strconv.ParseInt(prefix, 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)

	seq := func(yield func(Entry) bool) {
		for _, id := range ids {
			e := Entry{
				FightID:  id,
				DataPath: filepath.Join(dir, DataFileName(id)),
			}
			if names[LogsFileName(id)] {
				e.LogsPath = filepath.Join(dir, LogsFileName(id))
			}
			if !yield(e) {
				return
			}
		}
	}
	return seq, len(ids), nil
}

// Load reads and decodes the entry. An unreadable or undecodable data file
// is ErrCorruptPayload; a bad logs sibling only sets LogsErr.
func (e Entry) Load() (*Payload, error) {
	info, err := os.Stat(e.DataPath)
	if err != nil {
		return nil, corrupt("fight %d: %v", e.FightID, err)
	}
	body, err := os.ReadFile(e.DataPath)
	if err != nil {
		return nil, corrupt("fight %d: %v", e.FightID, err)
	}
	fight, err := DecodeFight(body)
	if err != nil {
		return nil, fmt.Errorf("fight %d: %w", e.FightID, err)
	}
	if fight.ID > 0 && fight.ID != e.FightID {
		return nil, corrupt("file for fight %d holds fight %d", e.FightID, fight.ID)
	}

	p := &Payload{
		Entry:   e,
		Fight:   fight,
		ModTime: info.ModTime(),
	}
	if e.LogsPath == "" {
		return p, nil
	}

	logsBody, err := os.ReadFile(e.LogsPath)
	if err != nil {
		p.LogsErr = corrupt("fight %d logs: %v", e.FightID, err)
		return p, nil
	}
	if p.Logs, err = DecodeLogs(logsBody); err != nil {
		p.LogsErr = fmt.Errorf("fight %d logs: %w", e.FightID, err)
	}
	return p, nil
}
