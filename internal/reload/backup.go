package reload

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"photocore/internal/archive"
)

// BackupInfo describes one completed configuration backup.
type BackupInfo struct {
	ID        string    `json:"id"`
	Prefix    string    `json:"prefix"`
	Files     int       `json:"files"`
	CreatedAt time.Time `json:"created_at"`
}

// Backup copies every configuration document from the watched directories
// into the archive under a timestamped prefix, mirroring each directory's
// relative structure so a backup can be restored by straight copy.
func (m *Manager) Backup(ctx context.Context, store archive.Store) (BackupInfo, error) {
	now := time.Now().UTC()
	info := BackupInfo{
		ID:        uuid.NewString(),
		CreatedAt: now,
	}
	info.Prefix = fmt.Sprintf("%s-%s", now.Format("20060102-150405"), info.ID[:8])

	for _, dir := range m.store.Directories() {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				m.logger.Warn("skipping missing directory in backup", "dir", dir)
				continue
			}
			return BackupInfo{}, err
		}
		base := filepath.Base(dir)
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			file, err := os.Open(path)
			if err != nil {
				return BackupInfo{}, err
			}
			key := info.Prefix + "/" + base + "/" + entry.Name()
			_, putErr := store.Put(ctx, key, file)
			_ = file.Close()
			if putErr != nil {
				return BackupInfo{}, fmt.Errorf("reload: archive %s: %w", key, putErr)
			}
			info.Files++
		}
	}

	m.logger.Info("configuration backup completed",
		"backup_id", info.ID, "prefix", info.Prefix, "files", info.Files)
	return info, nil
}

// ListBackups returns the distinct backup prefixes present in the archive,
// newest first by prefix name.
func (m *Manager) ListBackups(ctx context.Context, store archive.Store) ([]string, error) {
	entries, err := store.List(ctx, "")
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var prefixes []string
	for _, entry := range entries {
		prefix, _, ok := strings.Cut(entry.Key, "/")
		if !ok {
			continue
		}
		if _, dup := seen[prefix]; dup {
			continue
		}
		seen[prefix] = struct{}{}
		prefixes = append(prefixes, prefix)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(prefixes)))
	return prefixes, nil
}

// PruneBackups removes the oldest backups beyond keep.
func (m *Manager) PruneBackups(ctx context.Context, store archive.Store, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	prefixes, err := m.ListBackups(ctx, store)
	if err != nil {
		return 0, err
	}
	if len(prefixes) <= keep {
		return 0, nil
	}
	pruned := 0
	for _, prefix := range prefixes[keep:] {
		if _, err := store.Delete(ctx, prefix+"/"); err != nil {
			return pruned, err
		}
		pruned++
	}
	if pruned > 0 {
		m.logger.Info("pruned old backups", "removed", pruned, "kept", keep)
	}
	return pruned, nil
}
