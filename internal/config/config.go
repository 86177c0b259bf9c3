package config

import (
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Database
		Cache
		Remote
		Sync
		AutoRefresh
		Tasks
		Jobs
		Global
	}

	HTTP struct {
		Port int32
		Host string
	}
	Database struct {
		Path        string // main catalog database (gorm)
		KVPath      string // key-value database (sync meta, preview tokens)
		CatalogPath string // synced copy of the remote catalog database
	}
	Cache struct {
		Dir            string
		PurgeOnExit    bool
		PreviewText    string
		PreviewSize    int
		PreviewWidth   int
		PreviewPadding int
	}
	Remote struct {
		BaseURL      string
		DownloadURL  string
		CatalogDBURL string
		Timeout      time.Duration
		MinDelay     time.Duration
		MaxDelay     time.Duration
		MaxAttempts  int
	}
	Sync struct {
		Timeout time.Duration
	}
	AutoRefresh struct {
		Enabled  bool
		Schedule string // Cron format: "0 3 * * *" = daily at 03:00
	}
	Tasks struct {
		Workers int
	}
	Jobs struct {
		Enabled           bool
		Workers           int
		MaxRetries        int
		RetryDelay        time.Duration
		TaskTimeout       time.Duration
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
)

// dataPath resolves a configured path against DATA_HOME: an explicit setting
// wins, otherwise the file lives under the data home directory.
func dataPath(v *viper.Viper, key, filename string) string {
	if p := v.GetString(key); p != "" {
		return p
	}
	return filepath.Join(v.GetString("DATA_HOME"), filename)
}

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8177)
	v.SetDefault("host", "127.0.0.1")
	v.SetDefault("shutdown_timeout_in_seconds", 2)

	v.SetDefault("data_home", DefaultDataHome)
	v.SetDefault("database_path", "")
	v.SetDefault("kv_database_path", "")
	v.SetDefault("catalog_db_path", "")
	v.SetDefault("cache_dir", "")
	v.SetDefault("cache_purge_on_exit", true)
	v.SetDefault("preview_text", DefaultPreviewText)
	v.SetDefault("preview_size", 64)
	v.SetDefault("preview_width", 900)
	v.SetDefault("preview_padding", 18)

	v.SetDefault("remote_base_url", DefaultBaseURL)
	v.SetDefault("remote_download_url", DefaultDownloadURL)
	v.SetDefault("remote_catalog_db_url", DefaultCatalogDBURL)
	v.SetDefault("remote_timeout", "20s")
	v.SetDefault("remote_min_delay", "450ms")
	v.SetDefault("remote_max_delay", "1050ms")
	v.SetDefault("remote_max_attempts", 4)
	v.SetDefault("sync_timeout", "30s")

	v.SetDefault("auto_refresh_enabled", false)
	v.SetDefault("auto_refresh_schedule", "0 3 * * *") // Daily at 03:00

	v.SetDefault("task_workers", 4)

	// Maintenance job queue defaults
	v.SetDefault("jobs_enabled", true)
	v.SetDefault("jobs_workers", 1)
	v.SetDefault("jobs_max_retries", 2)
	v.SetDefault("jobs_retry_delay", "5m")
	v.SetDefault("jobs_timeout", "45m")
	v.SetDefault("jobs_release_after", "60m")
	v.SetDefault("jobs_cleanup_interval", "1h")
	v.SetDefault("jobs_retention_duration", "24h")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Database: Database{
			Path:        dataPath(v, "DATABASE_PATH", "fontpeek.db"),
			KVPath:      dataPath(v, "KV_DATABASE_PATH", "fontpeek-kv.db"),
			CatalogPath: dataPath(v, "CATALOG_DB_PATH", "fontes.db"),
		},
		Cache: Cache{
			Dir:            dataPath(v, "CACHE_DIR", "cache"),
			PurgeOnExit:    v.GetBool("CACHE_PURGE_ON_EXIT"),
			PreviewText:    v.GetString("PREVIEW_TEXT"),
			PreviewSize:    v.GetInt("PREVIEW_SIZE"),
			PreviewWidth:   v.GetInt("PREVIEW_WIDTH"),
			PreviewPadding: v.GetInt("PREVIEW_PADDING"),
		},
		Remote: Remote{
			BaseURL:      v.GetString("REMOTE_BASE_URL"),
			DownloadURL:  v.GetString("REMOTE_DOWNLOAD_URL"),
			CatalogDBURL: v.GetString("REMOTE_CATALOG_DB_URL"),
			Timeout:      v.GetDuration("REMOTE_TIMEOUT"),
			MinDelay:     v.GetDuration("REMOTE_MIN_DELAY"),
			MaxDelay:     v.GetDuration("REMOTE_MAX_DELAY"),
			MaxAttempts:  v.GetInt("REMOTE_MAX_ATTEMPTS"),
		},
		Sync: Sync{
			Timeout: v.GetDuration("SYNC_TIMEOUT"),
		},
		AutoRefresh: AutoRefresh{
			Enabled:  v.GetBool("AUTO_REFRESH_ENABLED"),
			Schedule: v.GetString("AUTO_REFRESH_SCHEDULE"),
		},
		Tasks: Tasks{
			Workers: v.GetInt("TASK_WORKERS"),
		},
		Jobs: Jobs{
			Enabled:           v.GetBool("JOBS_ENABLED"),
			Workers:           v.GetInt("JOBS_WORKERS"),
			MaxRetries:        v.GetInt("JOBS_MAX_RETRIES"),
			RetryDelay:        v.GetDuration("JOBS_RETRY_DELAY"),
			TaskTimeout:       v.GetDuration("JOBS_TIMEOUT"),
			ReleaseAfter:      v.GetDuration("JOBS_RELEASE_AFTER"),
			CleanupInterval:   v.GetDuration("JOBS_CLEANUP_INTERVAL"),
			RetentionDuration: v.GetDuration("JOBS_RETENTION_DURATION"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
	}
}
