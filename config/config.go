package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Env       string
	Port      string
	SaltRound int

	DBDriver   string // postgres or sqlite
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	SqlitePath string

	JWTKey          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	SignupTokenTTL  time.Duration

	SmsApiKey   string
	SmsApiUrl   string
	SmsSenderID string

	EmailSender    string
	SendgridApiKey string
	SmtpHost       string
	SmtpPort       string
	SmtpPassword   string

	AadharApiURL   string
	AadharApiKey   string
	AadharSimulate bool // format check only, no upstream call

	RedisAddr string

	ExternalTimeout time.Duration
	OTPReaperSpec   string
	ReminderSpec    string
	ReminderLead    time.Duration
	VideoDir        string
	FrontendURL     string
}

// IsDevelopment reports whether the process runs with APP_ENV=development
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// LoadConfig initializes configuration from environment variables or defaults
func LoadConfig() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found. Using system environment variables.")
	}

	env := getEnv("APP_ENV", "development")

	cfg := &Config{
		Env:       env,
		Port:      getEnv("PORT", "5000"),
		SaltRound: getEnvInt("SALT_ROUND", 10),

		DBDriver:   strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "eduvibex"),
		DBPort:     getEnv("DB_PORT", "5432"),
		SqlitePath: getEnv("SQLITE_PATH", "eduvibex.db"),

		JWTKey:          getEnv("JWT_SECRET_KEY", "defaultSecret"),
		AccessTokenTTL:  getEnvDuration("ACCESS_TOKEN_TTL", time.Hour),
		RefreshTokenTTL: getEnvDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		SignupTokenTTL:  getEnvDuration("SIGNUP_TOKEN_TTL", time.Hour),

		SmsApiKey:   getEnv("SMS_API_KEY", ""),
		SmsApiUrl:   getEnv("SMS_API_URL", "https://www.fast2sms.com/dev/bulkV2"),
		SmsSenderID: getEnv("SMS_SENDER_ID", "EDUVBX"),

		EmailSender:    getEnv("EMAIL_SENDER", "no-reply@eduvibex.in"),
		SendgridApiKey: getEnv("SENDGRID_API_KEY", ""),
		SmtpHost:       getEnv("SMTP_HOST", "smtp.gmail.com"),
		SmtpPort:       getEnv("SMTP_PORT", "587"),
		SmtpPassword:   getEnv("SMTP_PASSWORD", ""),

		AadharApiURL: getEnv("AADHAR_API_URL", "https://api.sandbox.co.in/kyc/aadhaar"),
		AadharApiKey: getEnv("AADHAR_API_KEY", ""),

		AadharSimulate: getEnvBool("AADHAR_SIMULATE", env == "development"),

		RedisAddr: getEnv("REDIS_ADDR", ""),

		ExternalTimeout: getEnvDuration("EXTERNAL_TIMEOUT", 10*time.Second),
		OTPReaperSpec:   getEnv("OTP_REAPER_SPEC", "@every 5m"),
		ReminderSpec:    getEnv("CLASS_REMINDER_SPEC", "@every 1m"),
		ReminderLead:    getEnvDuration("CLASS_REMINDER_LEAD", 30*time.Minute),
		VideoDir:        getEnv("VIDEO_DIR", "./videos"),
		FrontendURL:     getEnv("FRONTEND_URL", "http://localhost:3000"),
	}

	// Validate critical configuration
	if cfg.JWTKey == "defaultSecret" {
		log.Println("Warning: Using default JWT_SECRET_KEY. Update it in your environment.")
	}
	if cfg.DBDriver != "postgres" && cfg.DBDriver != "sqlite" {
		log.Printf("Warning: Unknown DB_DRIVER %q, falling back to postgres.", cfg.DBDriver)
		cfg.DBDriver = "postgres"
	}

	return cfg
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt retrieves an environment variable as an integer or returns the default integer value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Error converting environment variable %s to int: %v", key, err)
		return defaultValue
	}
	return intValue
}

// getEnvBool accepts anything strconv.ParseBool does
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("Error converting environment variable %s to bool: %v", key, err)
		return defaultValue
	}
	return b
}

// getEnvDuration accepts Go duration strings ("90s", "1h") or bare seconds
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	log.Printf("Error converting environment variable %s to duration: %q", key, value)
	return defaultValue
}
