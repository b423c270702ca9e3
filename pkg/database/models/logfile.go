package models

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Server is one game server publishing logfiles.
type Server struct {
	ID      uint   `gorm:"primaryKey"`
	Name    string `gorm:"type:varchar(30);uniqueIndex"`
	BaseURL string `gorm:"type:varchar(255)"`

	// Dormant servers are excluded from scheduling entirely.
	Dormant bool `gorm:"default:false"`
}

// Logfile is one tracked remote logfile of a server for a single game version.
type Logfile struct {
	ID       uint `gorm:"primaryKey"`
	ServerID uint `gorm:"not null;index"`
	Server   Server

	// Version label of the game the logfile belongs to, e.g. "0.31".
	// Nil when the server doesn't advertise one.
	GameVersion *string `gorm:"type:varchar(10)"`

	RemotePath string `gorm:"type:varchar(255)"`
	LocalPath  string `gorm:"type:varchar(255);uniqueIndex"`

	// Bytes of the local mirror already consumed by the reader.
	// Monotonically non-decreasing.
	BytesRead int64 `gorm:"default:0"`

	LastFetched *time.Time
}

// Logfile service structure.
type LogfileService struct {
	db *gorm.DB
}

// Create a logfile service.
func CreateLogfileService(db *gorm.DB) *LogfileService {
	return &LogfileService{db: db}
}

// GetActiveLogfiles returns every logfile whose server is not dormant.
func (ls *LogfileService) GetActiveLogfiles() ([]*Logfile, error) {
	var logfiles []*Logfile
	err := ls.db.
		Joins("JOIN servers ON servers.id = logfiles.server_id").
		Where("servers.dormant = ?", false).
		Preload("Server").
		Find(&logfiles).Error
	if err != nil {
		return nil, fmt.Errorf("couldn't get the active logfiles: %v", err)
	}

	return logfiles, nil
}

// SetLastFetched stores the time of the last remote transfer.
func (ls *LogfileService) SetLastFetched(logfileID uint, fetchedAt time.Time) error {
	return ls.db.Model(&Logfile{}).
		Where("id = ?", logfileID).
		UpdateColumn("last_fetched", fetchedAt).Error
}

// AdvanceCursor persists a new read offset for the logfile.
// The cursor never moves backwards.
func (ls *LogfileService) AdvanceCursor(logfileID uint, offset int64) error {
	result := ls.db.Model(&Logfile{}).
		Where("id = ? AND bytes_read <= ?", logfileID, offset).
		UpdateColumn("bytes_read", offset)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return errors.New("cursor update would move the read offset backwards")
	}

	return nil
}

// EnsureServer creates the server if it doesn't exist yet and
// keeps the dormant flag in sync with the configuration.
func (ls *LogfileService) EnsureServer(name, baseURL string, dormant bool) (*Server, error) {
	server := &Server{Name: name, BaseURL: baseURL, Dormant: dormant}

	err := ls.db.Where(Server{Name: name}).FirstOrCreate(server).Error
	if err != nil {
		return nil, fmt.Errorf("couldn't ensure the server %s: %v", name, err)
	}

	// The dormancy flag follows the configuration, not the stored row.
	if server.Dormant != dormant {
		server.Dormant = dormant
		if err := ls.db.Model(server).UpdateColumn("dormant", dormant).Error; err != nil {
			return nil, fmt.Errorf("couldn't update the dormant flag of %s: %v", name, err)
		}
	}

	return server, nil
}

// EnsureLogfile creates the tracked logfile if it doesn't exist yet.
// Existing rows keep their cursor untouched.
func (ls *LogfileService) EnsureLogfile(server *Server, gameVersion *string, remotePath, localPath string) (*Logfile, error) {
	logfile := &Logfile{
		ServerID:    server.ID,
		GameVersion: gameVersion,
		RemotePath:  remotePath,
		LocalPath:   localPath,
	}

	err := ls.db.Where(Logfile{LocalPath: localPath}).FirstOrCreate(logfile).Error
	if err != nil {
		return nil, fmt.Errorf("couldn't ensure the logfile %s: %v", localPath, err)
	}

	return logfile, nil
}
