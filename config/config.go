// config/config.go
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

var (
	Port          string
	Env           string
	LogLevel      string
	MongoURI      string
	MongoDatabase string
	JWTKey        []byte
	JWTExpiration time.Duration
	CORSOrigin    string

	// File storage
	FileStorage   string // "local" or "s3"
	UploadDir     string
	MaxUploadSize int64
	S3Bucket      string
	S3Region      string
	S3Endpoint    string
	S3AccessKey   string
	S3SecretKey   string

	// Notifications
	EmailProviderURL string
	EmailServiceID   string
	EmailTemplateID  string
	EmailPublicKey   string
	EmailPrivateKey  string
	SMTPHost         string
	SMTPPort         int
	SMTPUser         string
	SMTPPassword     string
	SMTPFrom         string
	AppURL           string

	// First admin, created at startup when both are set.
	AdminEmail    string
	AdminPassword string
)

// Invalid duration values fall back to the default; callers log the result.
var Warnings []string

func LoadConfig() {
	Warnings = nil

	Port = getEnv("PORT", "8080")
	Env = getEnv("APP_ENV", "development")
	LogLevel = getEnv("LOG_LEVEL", "info")

	MongoURI = getEnv("MONGO_URI", "mongodb://localhost:27017")
	MongoDatabase = getEnv("MONGO_DB", "vendor_compliance")

	JWTKey = []byte(os.Getenv("JWT_SECRET"))
	if len(JWTKey) == 0 {
		JWTKey = []byte("secret")
		Warnings = append(Warnings, "JWT_SECRET not set, using insecure default")
	}
	JWTExpiration = parseExpire(os.Getenv("JWT_EXPIRE"))
	CORSOrigin = getEnv("CORS_ORIGIN", "")

	FileStorage = strings.ToLower(getEnv("FILE_STORAGE", "local"))
	UploadDir = getEnv("UPLOAD_DIR", "uploads")
	MaxUploadSize = getEnvAsInt64("MAX_UPLOAD_SIZE", 10<<20)
	S3Bucket = getEnv("S3_BUCKET", "")
	S3Region = getEnv("AWS_REGION", "us-east-1")
	S3Endpoint = getEnv("S3_ENDPOINT", "")
	S3AccessKey = getEnv("S3_ACCESS_KEY", "")
	S3SecretKey = getEnv("S3_SECRET_KEY", "")

	EmailProviderURL = getEnv("EMAIL_PROVIDER_URL", "https://api.emailjs.com/api/v1.0/email/send")
	EmailServiceID = getEnv("EMAIL_SERVICE_ID", "")
	EmailTemplateID = getEnv("EMAIL_TEMPLATE_ID", "")
	EmailPublicKey = getEnv("EMAIL_PUBLIC_KEY", "")
	EmailPrivateKey = getEnv("EMAIL_PRIVATE_KEY", "")
	SMTPHost = getEnv("SMTP_HOST", "")
	SMTPPort = int(getEnvAsInt64("SMTP_PORT", 587))
	SMTPUser = getEnv("SMTP_USER", "")
	SMTPPassword = getEnv("SMTP_PASSWORD", "")
	SMTPFrom = getEnv("SMTP_FROM", "compliance@localhost")
	AppURL = getEnv("APP_URL", "http://localhost:3000")

	AdminEmail = getEnv("ADMIN_EMAIL", "")
	AdminPassword = getEnv("ADMIN_PASSWORD", "")
}

// parseExpire accepts Go durations plus the "<n>d" day form used by the old API.
func parseExpire(s string) time.Duration {
	if s == "" {
		return 24 * time.Hour
	}
	if strings.HasSuffix(s, "d") {
		if days, err := strconv.Atoi(strings.TrimSuffix(s, "d")); err == nil && days > 0 {
			return time.Duration(days) * 24 * time.Hour
		}
	}
	dur, err := time.ParseDuration(s)
	if err != nil || dur <= 0 {
		Warnings = append(Warnings, "invalid JWT_EXPIRE "+s+", using 24h")
		return 24 * time.Hour
	}
	return dur
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value, err := strconv.ParseInt(getEnv(key, ""), 10, 64); err == nil {
		return value
	}
	return defaultValue
}
