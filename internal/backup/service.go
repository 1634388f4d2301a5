package backup

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"divtrack/internal/events"
)

const (
	archivePrefix     = "divtrack-backup-"
	archiveTimeFormat = "2006-01-02-150405"
	metadataFilename  = "backup-metadata.json"
	minBackupsToKeep  = 3
	metadataVersion   = "1.0.0"
)

// Metadata describes the contents of one backup archive.
type Metadata struct {
	Timestamp time.Time      `json:"timestamp"`
	Version   string         `json:"version"`
	Databases []FileMetadata `json:"databases"`
}

// FileMetadata describes a single database file in the archive.
type FileMetadata struct {
	Filename  string `json:"filename"`
	SizeBytes int64  `json:"size_bytes"`
	Checksum  string `json:"checksum"`
}

// Info describes a backup held in object storage.
type Info struct {
	Filename  string    `json:"filename"`
	Timestamp time.Time `json:"timestamp"`
	SizeBytes int64     `json:"size_bytes"`
	AgeHours  int64     `json:"age_hours"`
}

// Service creates tar.gz backups of the SQLite files and manages their
// remote copies.
type Service struct {
	store   ObjectStore
	dataDir string
	bus     *events.Bus
	log     zerolog.Logger
	now     func() time.Time
}

// NewService creates a backup service. bus may be nil.
func NewService(store ObjectStore, dataDir string, bus *events.Bus, log zerolog.Logger) *Service {
	return &Service{
		store:   store,
		dataDir: dataDir,
		bus:     bus,
		log:     log.With().Str("service", "backup").Logger(),
		now:     time.Now,
	}
}

// CreateAndUpload archives every .db file under the data directory together
// with a metadata manifest and uploads the archive. Returns the archive key.
// Callers should checkpoint or close write connections first so the files on
// disk are consistent.
func (s *Service) CreateAndUpload(ctx context.Context) (string, error) {
	start := s.now()
	s.log.Info().Msg("Starting backup")

	dbFiles, err := filepath.Glob(filepath.Join(s.dataDir, "*.db"))
	if err != nil {
		return "", fmt.Errorf("failed to scan data directory: %w", err)
	}
	if len(dbFiles) == 0 {
		return "", fmt.Errorf("no database files found in %s", s.dataDir)
	}
	sort.Strings(dbFiles)

	metadata := Metadata{
		Timestamp: s.now().UTC(),
		Version:   metadataVersion,
		Databases: make([]FileMetadata, 0, len(dbFiles)),
	}
	for _, path := range dbFiles {
		info, err := os.Stat(path)
		if err != nil {
			return "", fmt.Errorf("failed to stat %s: %w", path, err)
		}
		checksum, err := fileChecksum(path)
		if err != nil {
			return "", fmt.Errorf("failed to checksum %s: %w", path, err)
		}
		metadata.Databases = append(metadata.Databases, FileMetadata{
			Filename:  filepath.Base(path),
			SizeBytes: info.Size(),
			Checksum:  checksum,
		})
	}

	archiveName := archivePrefix + s.now().Format(archiveTimeFormat) + ".tar.gz"
	archivePath := filepath.Join(s.dataDir, archiveName)
	defer os.Remove(archivePath)

	if err := s.writeArchive(archivePath, dbFiles, metadata); err != nil {
		return "", fmt.Errorf("failed to create archive: %w", err)
	}

	archiveFile, err := os.Open(archivePath)
	if err != nil {
		return "", fmt.Errorf("failed to open archive: %w", err)
	}
	defer archiveFile.Close()

	archiveInfo, err := archiveFile.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat archive: %w", err)
	}

	if err := s.store.Upload(ctx, archiveName, archiveFile); err != nil {
		return "", fmt.Errorf("failed to upload archive: %w", err)
	}

	s.log.Info().
		Str("archive", archiveName).
		Int64("size_bytes", archiveInfo.Size()).
		Dur("duration", time.Since(start)).
		Msg("Backup completed")

	if s.bus != nil {
		s.bus.Publish(events.BackupCompleted, "backup", map[string]interface{}{
			"archive":   archiveName,
			"sizeBytes": archiveInfo.Size(),
			"databases": len(dbFiles),
		})
	}

	return archiveName, nil
}

// ListBackups returns remote backups, newest first.
func (s *Service) ListBackups(ctx context.Context) ([]Info, error) {
	objects, err := s.store.List(ctx, archivePrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}

	now := s.now()
	backups := make([]Info, 0, len(objects))
	for _, obj := range objects {
		if !strings.HasPrefix(obj.Key, archivePrefix) || !strings.HasSuffix(obj.Key, ".tar.gz") {
			continue
		}

		stamp := strings.TrimSuffix(strings.TrimPrefix(obj.Key, archivePrefix), ".tar.gz")
		ts, err := time.Parse(archiveTimeFormat, stamp)
		if err != nil {
			s.log.Warn().Str("key", obj.Key).Msg("Unparseable backup filename, skipping")
			continue
		}

		backups = append(backups, Info{
			Filename:  obj.Key,
			Timestamp: ts,
			SizeBytes: obj.Size,
			AgeHours:  int64(now.Sub(ts).Hours()),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})
	return backups, nil
}

// RotateOldBackups deletes backups older than retentionDays while always
// keeping the newest three. retentionDays 0 keeps everything.
func (s *Service) RotateOldBackups(ctx context.Context, retentionDays int) (int, error) {
	backups, err := s.ListBackups(ctx)
	if err != nil {
		return 0, err
	}
	if retentionDays == 0 || len(backups) <= minBackupsToKeep {
		return 0, nil
	}

	cutoff := s.now().AddDate(0, 0, -retentionDays)
	deleted := 0
	for i, backup := range backups {
		if i < minBackupsToKeep || !backup.Timestamp.Before(cutoff) {
			continue
		}
		if err := s.store.Delete(ctx, backup.Filename); err != nil {
			s.log.Error().Err(err).Str("filename", backup.Filename).Msg("Failed to delete old backup")
			continue
		}
		s.log.Info().Str("filename", backup.Filename).Msg("Deleted old backup")
		deleted++
	}

	return deleted, nil
}

func (s *Service) writeArchive(archivePath string, dbFiles []string, metadata Metadata) error {
	archiveFile, err := os.Create(archivePath)
	if err != nil {
		return err
	}
	defer archiveFile.Close()

	gzipWriter := gzip.NewWriter(archiveFile)
	defer gzipWriter.Close()

	tarWriter := tar.NewWriter(gzipWriter)
	defer tarWriter.Close()

	manifest, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return err
	}
	if err := tarWriter.WriteHeader(&tar.Header{
		Name:    metadataFilename,
		Size:    int64(len(manifest)),
		Mode:    0o644,
		ModTime: metadata.Timestamp,
	}); err != nil {
		return err
	}
	if _, err := tarWriter.Write(manifest); err != nil {
		return err
	}

	for _, path := range dbFiles {
		if err := addFile(tarWriter, path); err != nil {
			return fmt.Errorf("failed to add %s: %w", filepath.Base(path), err)
		}
	}
	return nil
}

func addFile(tw *tar.Writer, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	if err := tw.WriteHeader(&tar.Header{
		Name:    filepath.Base(path),
		Size:    info.Size(),
		Mode:    int64(info.Mode()),
		ModTime: info.ModTime(),
	}); err != nil {
		return err
	}

	_, err = io.Copy(tw, file)
	return err
}

func fileChecksum(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return fmt.Sprintf("sha256:%x", hash.Sum(nil)), nil
}
