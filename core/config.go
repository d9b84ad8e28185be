package core

import (
	"fmt"
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	serverConfig struct {
		Host                      string
		Address                   string
		DebugHost                 string
		ReadTimeout               time.Duration
		WriteTimeout              time.Duration
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	databaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	redisConfig struct {
		Address        string
		Password       string
		DB             int
		LeaderboardTTL time.Duration
	}

	// postgrestConfig points at the Supabase REST endpoint used for read-mostly paths.
	postgrestConfig struct {
		URL     string
		APIKey  string
		Timeout time.Duration
	}

	liveClassConfig struct {
		ProviderURL  string
		APIKey       string
		Timeout      time.Duration
		ReminderLead time.Duration
	}

	schedulerConfig struct {
		Enabled               bool
		CouponExpirySpec      string
		LiveClassReminderSpec string
	}

	Config struct {
		Build                     string
		Env                       string
		Debug                     bool
		TestMode                  bool
		AppName                   string
		SecretKey                 string
		FrontendBaseURL           string
		SendgridApiKey            string
		RollbarToken              string
		PasswordResetTimeoutDelta time.Duration

		Server    serverConfig
		Database  databaseConfig
		Redis     redisConfig
		PostgREST postgrestConfig
		LiveClass liveClassConfig
		Scheduler schedulerConfig

		defaultFromEmail string
	}
)

// Address returns the "host:port" the database listens on.
func (db databaseConfig) Address() string {
	if db.Port == "" {
		return db.Host
	}
	return db.Host + ":" + db.Port
}

// DefaultFromEmail parses the configured sender; falls back to a bare address on parse errors.
func (conf *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(conf.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: conf.AppName, Address: conf.defaultFromEmail}
	}
	if addr.Name == "" {
		addr.Name = conf.AppName
	}
	return *addr
}

// NewConfig loads the configuration of the current environment (ENV: DEV (default), TEST, QA, PROD).
func NewConfig() *Config {
	v := viper.New()

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("build", "dev")
	v.SetDefault("debug", env == "DEV")
	v.SetDefault("testMode", env == "TEST")
	v.SetDefault("appName", "Elimu")
	v.SetDefault("secretKey", "k7x$-9wq)zbn&+31=fe*hoyp2(r!a)#*c8(#ub4j^$cmgn2emy")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "Elimu <noreply@localhost>")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)

	v.SetDefault("serverHost", "localhost")
	v.SetDefault("serverAddress", ":8000")
	v.SetDefault("serverDebugHost", ":4000")
	v.SetDefault("serverReadTimeout", 5*time.Second)
	v.SetDefault("serverWriteTimeout", 5*time.Second)
	v.SetDefault("serverShutdownTimeout", 5*time.Second)
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)

	v.SetDefault("dbEngine", "postgres")
	v.SetDefault("dbHost", "localhost")
	v.SetDefault("dbPort", "5432")
	v.SetDefault("dbName", "elimu")
	v.SetDefault("dbUser", "elimu")
	v.SetDefault("dbPassword", "elimu")
	v.SetDefault("dbAdminUser", "postgres")
	v.SetDefault("dbAdminPassword", "postgres")
	v.SetDefault("dbDisableTLS", true)

	v.SetDefault("redisAddress", "")
	v.SetDefault("redisPassword", "")
	v.SetDefault("redisDB", 0)
	v.SetDefault("redisLeaderboardTTL", time.Minute)

	v.SetDefault("postgrestURL", "")
	v.SetDefault("postgrestAPIKey", "")
	v.SetDefault("postgrestTimeout", 10*time.Second)

	v.SetDefault("liveClassProviderURL", "")
	v.SetDefault("liveClassAPIKey", "")
	v.SetDefault("liveClassTimeout", 10*time.Second)
	v.SetDefault("liveClassReminderLead", 30*time.Minute)

	v.SetDefault("schedulerEnabled", true)
	v.SetDefault("schedulerCouponExpirySpec", "@hourly")
	v.SetDefault("schedulerLiveClassReminderSpec", "*/5 * * * *")

	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Build:                     v.GetString("build"),
		Env:                       env,
		Debug:                     v.GetBool("debug"),
		TestMode:                  v.GetBool("testMode"),
		AppName:                   v.GetString("appName"),
		SecretKey:                 v.GetString("secretKey"),
		FrontendBaseURL:           v.GetString("frontendBaseURL"),
		SendgridApiKey:            v.GetString("sendgridApiKey"),
		RollbarToken:              v.GetString("rollbarToken"),
		PasswordResetTimeoutDelta: v.GetDuration("passwordResetTimeoutDelta"),
		defaultFromEmail:          v.GetString("defaultFromEmail"),
		Server: serverConfig{
			Host:                      v.GetString("serverHost"),
			Address:                   v.GetString("serverAddress"),
			DebugHost:                 v.GetString("serverDebugHost"),
			ReadTimeout:               v.GetDuration("serverReadTimeout"),
			WriteTimeout:              v.GetDuration("serverWriteTimeout"),
			ShutdownTimeout:           v.GetDuration("serverShutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("jwtRefreshExpirationDelta"),
		},
		Database: databaseConfig{
			Engine:        v.GetString("dbEngine"),
			Host:          v.GetString("dbHost"),
			Port:          v.GetString("dbPort"),
			Name:          v.GetString("dbName"),
			User:          v.GetString("dbUser"),
			Password:      v.GetString("dbPassword"),
			AdminUser:     v.GetString("dbAdminUser"),
			AdminPassword: v.GetString("dbAdminPassword"),
			DisableTLS:    v.GetBool("dbDisableTLS"),
		},
		Redis: redisConfig{
			Address:        v.GetString("redisAddress"),
			Password:       v.GetString("redisPassword"),
			DB:             v.GetInt("redisDB"),
			LeaderboardTTL: v.GetDuration("redisLeaderboardTTL"),
		},
		PostgREST: postgrestConfig{
			URL:     v.GetString("postgrestURL"),
			APIKey:  v.GetString("postgrestAPIKey"),
			Timeout: v.GetDuration("postgrestTimeout"),
		},
		LiveClass: liveClassConfig{
			ProviderURL:  v.GetString("liveClassProviderURL"),
			APIKey:       v.GetString("liveClassAPIKey"),
			Timeout:      v.GetDuration("liveClassTimeout"),
			ReminderLead: v.GetDuration("liveClassReminderLead"),
		},
		Scheduler: schedulerConfig{
			Enabled:               v.GetBool("schedulerEnabled"),
			CouponExpirySpec:      v.GetString("schedulerCouponExpirySpec"),
			LiveClassReminderSpec: v.GetString("schedulerLiveClassReminderSpec"),
		},
	}
}

// NewTestConfig returns a config suitable for tests, without touching the environment.
func NewTestConfig() *Config {
	return &Config{
		Build:                     "test",
		Env:                       "TEST",
		TestMode:                  true,
		AppName:                   "Elimu",
		SecretKey:                 "secret",
		FrontendBaseURL:           "http://localhost:3000",
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		defaultFromEmail:          fmt.Sprintf("%s <noreply@localhost>", "Elimu"),
		Server: serverConfig{
			Host:                      "localhost",
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: 4 * time.Hour,
			ShutdownTimeout:           time.Second,
		},
		Redis:     redisConfig{LeaderboardTTL: time.Minute},
		LiveClass: liveClassConfig{ReminderLead: 30 * time.Minute},
	}
}
