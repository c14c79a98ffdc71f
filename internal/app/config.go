package app

import (
	"os"
	"strconv"
	"strings"
)

// Config carries all runtime settings for the gateway. Every field has an
// environment variable override and a default that works for local runs.
type Config struct {
	HTTPAddr string

	MediaCacheDir    string
	SubtitleCacheDir string
	CacheMaxFiles    int64

	YTDLPPath   string
	FFMPEGPath  string
	FFProbePath string

	ProbeTimeoutSec          int64
	ListTimeoutSec           int64
	ExtractTimeoutSec        int64
	ExtractRetries           int64
	MaxConcurrentExtractions int64

	DownloadRatePoints    int64
	DownloadRateWindowSec int64
	SubtitleRatePoints    int64
	SubtitleRateWindowSec int64
	GlobalRateRPS         int64
	GlobalRateBurst       int64

	MongoURI        string
	MongoDatabase   string
	MongoCollection string

	RedisAddr      string
	RedisPassword  string
	RedisDB        int64
	MetadataTTLSec int64

	ConvertAPIURL string
	ConvertAPIKey string

	TorrentDataDir string

	CORSAllowedOrigins []string

	LogLevel  string
	LogFormat string
}

// LoadConfig reads settings from the environment, falling back to defaults.
// An empty MONGO_URI leaves download history disabled.
func LoadConfig() Config {
	return Config{
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		MediaCacheDir:    getEnv("MEDIA_CACHE_DIR", "downloads"),
		SubtitleCacheDir: getEnv("SUBTITLE_CACHE_DIR", "subtitles"),
		CacheMaxFiles:    getEnvInt64("CACHE_MAX_FILES", 10),

		YTDLPPath:   getEnv("YTDLP_PATH", "yt-dlp"),
		FFMPEGPath:  getEnv("FFMPEG_PATH", "ffmpeg"),
		FFProbePath: getEnv("FFPROBE_PATH", "ffprobe"),

		ProbeTimeoutSec:          getEnvInt64("PROBE_TIMEOUT_SEC", 5),
		ListTimeoutSec:           getEnvInt64("LIST_TIMEOUT_SEC", 30),
		ExtractTimeoutSec:        getEnvInt64("EXTRACT_TIMEOUT_SEC", 600),
		ExtractRetries:           getEnvInt64("EXTRACT_RETRIES", 3),
		MaxConcurrentExtractions: getEnvInt64("MAX_CONCURRENT_EXTRACTIONS", 2),

		DownloadRatePoints:    getEnvInt64("DOWNLOAD_RATE_POINTS", 30),
		DownloadRateWindowSec: getEnvInt64("DOWNLOAD_RATE_WINDOW_SEC", 60),
		SubtitleRatePoints:    getEnvInt64("SUBTITLE_RATE_POINTS", 10),
		SubtitleRateWindowSec: getEnvInt64("SUBTITLE_RATE_WINDOW_SEC", 10),
		GlobalRateRPS:         getEnvInt64("GLOBAL_RATE_RPS", 100),
		GlobalRateBurst:       getEnvInt64("GLOBAL_RATE_BURST", 200),

		MongoURI:        getEnv("MONGO_URI", ""),
		MongoDatabase:   getEnv("MONGO_DB", "mediagate"),
		MongoCollection: getEnv("MONGO_COLLECTION", "downloads"),

		RedisAddr:      getEnv("REDIS_ADDR", ""),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisDB:        getEnvInt64("REDIS_DB", 0),
		MetadataTTLSec: getEnvInt64("METADATA_TTL_SEC", 300),

		ConvertAPIURL: getEnv("CONVERT_API_URL", ""),
		ConvertAPIKey: getEnv("CONVERT_API_KEY", ""),

		TorrentDataDir: getEnv("TORRENT_DATA_DIR", ""),

		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", nil),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
