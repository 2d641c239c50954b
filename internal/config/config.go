package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort        string
	AppEnv         string
	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	S3BucketName    string
	S3PublicBaseURL string // optional CDN/base URL prefix for uploaded media

	JWTPrivateKeyPath  string
	JWTPublicKeyPath   string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration

	// CookieEncryptionKey is a hex-encoded 32-byte AES key. Required.
	CookieEncryptionKey    string
	CookieSecure           bool
	RegistrationTTL        time.Duration
	PasswordResetOTPTTL    time.Duration
	PendingEmailCookieTTL  time.Duration
	VerifiedEmailCookieTTL time.Duration

	MailProvider   string // "smtp" | "sendgrid"
	MailFrom       string
	SMTPHost       string
	SMTPPort       string
	SMTPUsername   string
	SMTPPassword   string
	SendGridAPIKey string

	RedisAddr      string
	RedisPassword  string
	OTPMaxAttempts int
	OTPWindow      time.Duration

	SNSTopicARN string

	DefaultPageSize int
	MaxPageSize     int

	AllowedOrigins []string // CORS allowed origins
	LogLevel       string
	LogFile        string // empty disables the rotating file sink
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users         string
	Registrations string
	RefreshTokens string
	Videos        string
	Tweets        string
	Comments      string
	Playlists     string
	Relations     string
	Reports       string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:        getEnv("APP_PORT", "8000"),
		AppEnv:         getEnv("APP_ENV", "development"),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Users:         getEnv("DYNAMO_TABLE_USERS", "users"),
			Registrations: getEnv("DYNAMO_TABLE_REGISTRATIONS", "registrations"),
			RefreshTokens: getEnv("DYNAMO_TABLE_REFRESH_TOKENS", "refresh_tokens"),
			Videos:        getEnv("DYNAMO_TABLE_VIDEOS", "videos"),
			Tweets:        getEnv("DYNAMO_TABLE_TWEETS", "tweets"),
			Comments:      getEnv("DYNAMO_TABLE_COMMENTS", "comments"),
			Playlists:     getEnv("DYNAMO_TABLE_PLAYLISTS", "playlists"),
			Relations:     getEnv("DYNAMO_TABLE_RELATIONS", "relations"),
			Reports:       getEnv("DYNAMO_TABLE_REPORTS", "reports"),
		},
		S3BucketName:    getEnv("S3_BUCKET_NAME", "videotube-media"),
		S3PublicBaseURL: getEnv("S3_PUBLIC_BASE_URL", ""),

		JWTPrivateKeyPath:  getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:   getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		AccessTokenExpiry:  getEnvDuration("ACCESS_TOKEN_EXPIRY", 24*time.Hour),
		RefreshTokenExpiry: getEnvDuration("REFRESH_TOKEN_EXPIRY", 240*time.Hour),

		CookieEncryptionKey:    getEnv("COOKIE_ENCRYPTION_KEY", ""),
		CookieSecure:           getEnvBool("COOKIE_SECURE", true),
		RegistrationTTL:        getEnvDuration("REGISTRATION_TTL", 20*time.Minute),
		PasswordResetOTPTTL:    getEnvDuration("PASSWORD_RESET_OTP_TTL", 15*time.Minute),
		PendingEmailCookieTTL:  getEnvDuration("PENDING_EMAIL_COOKIE_TTL", 20*time.Minute),
		VerifiedEmailCookieTTL: getEnvDuration("VERIFIED_EMAIL_COOKIE_TTL", 30*time.Minute),

		MailProvider:   getEnv("MAIL_PROVIDER", "smtp"),
		MailFrom:       getEnv("MAIL_FROM", "noreply@example.com"),
		SMTPHost:       getEnv("SMTP_HOST", "localhost"),
		SMTPPort:       getEnv("SMTP_PORT", "1025"),
		SMTPUsername:   getEnv("SMTP_USERNAME", ""),
		SMTPPassword:   getEnv("SMTP_PASSWORD", ""),
		SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),

		RedisAddr:      getEnv("REDIS_ADDR", ""),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		OTPMaxAttempts: getEnvInt("OTP_MAX_ATTEMPTS", 5),
		OTPWindow:      getEnvDuration("OTP_WINDOW", 15*time.Minute),

		SNSTopicARN: getEnv("SNS_TOPIC_ARN", ""),

		DefaultPageSize: getEnvInt("DEFAULT_PAGE_SIZE", 10),
		MaxPageSize:     getEnvInt("MAX_PAGE_SIZE", 100),

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFile:        getEnv("LOG_FILE", ""),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("15m", "240h").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
