package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		AppName          string
		Env              string // DEV (local; default), TEST, QA, PROD
		Build            string
		Debug            bool
		TestMode         bool
		SecretKey        string
		FrontendBaseURL  string
		WorkDir          string
		RollbarToken     string
		SendgridApiKey   string
		defaultFromEmail string

		Server    ServerConfig
		Database  DatabaseConfig
		SMS       SMSConfig
		Files     FilesConfig
		Scheduler SchedulerConfig
	}

	ServerConfig struct {
		Host                      string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string // postgres | sqlite
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Host          string
		Port          string
		Name          string // file path when Engine is sqlite
		DisableTLS    bool
	}

	SMSConfig struct {
		Username string
		APIKey   string
		SenderID string
		Sandbox  bool
	}

	FilesConfig struct {
		Backend         string // fs | oss
		Root            string
		OSSEndpoint     string
		OSSAccessKey    string
		OSSAccessSecret string
		OSSBucket       string
	}

	SchedulerConfig struct {
		RecomputeSpec string
	}
)

func (c *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(c.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: c.AppName, Address: "noreply@localhost"}
	}
	if addr.Name == "" {
		addr.Name = c.AppName
	}
	return *addr
}

func (db DatabaseConfig) Address() string {
	return net.JoinHostPort(db.Host, db.Port)
}

func (db DatabaseConfig) IsSQLite() bool { return db.Engine == "sqlite" }

// NewConfig loads the configuration for the current ENV from the environment,
// optionally seeded by config/.env.<env>.
func NewConfig() *Config {
	v := viper.New()

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	workDir := Getwd()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("appName", "Educator")
	v.SetDefault("debug", env == "DEV" || env == "TEST")
	v.SetDefault("testMode", env == "TEST")
	v.SetDefault("build", "develop")
	v.SetDefault("secretKey", "h8s-2k)vq!u7m+0dz&xzr(3c#p^_e4w=ly$9t!bj@k1ao6fn5")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "Educator <noreply@localhost>")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")

	v.SetDefault("serverHost", "0.0.0.0:8000")
	v.SetDefault("serverDebugHost", "0.0.0.0:4000")
	v.SetDefault("serverShutdownTimeout", 5*time.Second)
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)

	v.SetDefault("dbEngine", "postgres")
	v.SetDefault("dbUser", "educator")
	v.SetDefault("dbPassword", "educator")
	v.SetDefault("dbAdminUser", "postgres")
	v.SetDefault("dbAdminPassword", "postgres")
	v.SetDefault("dbHost", "localhost")
	v.SetDefault("dbPort", "5432")
	v.SetDefault("dbName", "educator")
	v.SetDefault("dbDisableTLS", true)

	v.SetDefault("smsUsername", "sandbox")
	v.SetDefault("smsApiKey", "")
	v.SetDefault("smsSenderId", "")
	v.SetDefault("smsSandbox", true)

	v.SetDefault("filesBackend", "fs")
	v.SetDefault("filesRoot", filepath.Join(workDir, "media"))
	v.SetDefault("ossEndpoint", "")
	v.SetDefault("ossAccessKey", "")
	v.SetDefault("ossAccessSecret", "")
	v.SetDefault("ossBucket", "")

	v.SetDefault("schedulerRecomputeSpec", "@every 5m")

	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(workDir, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		AppName:          v.GetString("appName"),
		Env:              env,
		Build:            v.GetString("build"),
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		SecretKey:        v.GetString("secretKey"),
		FrontendBaseURL:  v.GetString("frontendBaseURL"),
		WorkDir:          workDir,
		RollbarToken:     v.GetString("rollbarToken"),
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		defaultFromEmail: v.GetString("defaultFromEmail"),
		Server: ServerConfig{
			Host:                      v.GetString("serverHost"),
			DebugHost:                 v.GetString("serverDebugHost"),
			ShutdownTimeout:           v.GetDuration("serverShutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("jwtRefreshExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("dbEngine"),
			User:          v.GetString("dbUser"),
			Password:      v.GetString("dbPassword"),
			AdminUser:     v.GetString("dbAdminUser"),
			AdminPassword: v.GetString("dbAdminPassword"),
			Host:          v.GetString("dbHost"),
			Port:          v.GetString("dbPort"),
			Name:          v.GetString("dbName"),
			DisableTLS:    v.GetBool("dbDisableTLS"),
		},
		SMS: SMSConfig{
			Username: v.GetString("smsUsername"),
			APIKey:   v.GetString("smsApiKey"),
			SenderID: v.GetString("smsSenderId"),
			Sandbox:  v.GetBool("smsSandbox"),
		},
		Files: FilesConfig{
			Backend:         v.GetString("filesBackend"),
			Root:            v.GetString("filesRoot"),
			OSSEndpoint:     v.GetString("ossEndpoint"),
			OSSAccessKey:    v.GetString("ossAccessKey"),
			OSSAccessSecret: v.GetString("ossAccessSecret"),
			OSSBucket:       v.GetString("ossBucket"),
		},
		Scheduler: SchedulerConfig{
			RecomputeSpec: v.GetString("schedulerRecomputeSpec"),
		},
	}
}

// NewTestConfig returns a Config suitable for tests: debug on, sqlite, no external services.
func NewTestConfig() *Config {
	return &Config{
		AppName:          "Educator",
		Env:              "TEST",
		Build:            "test",
		Debug:            true,
		TestMode:         true,
		SecretKey:        "test-secret",
		FrontendBaseURL:  "http://localhost:3000",
		defaultFromEmail: "Educator <noreply@localhost>",
		Server: ServerConfig{
			Host:                      "127.0.0.1:0",
			ShutdownTimeout:           time.Second,
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: time.Hour,
		},
		Database:  DatabaseConfig{Engine: "sqlite"},
		Files:     FilesConfig{Backend: "fs"},
		Scheduler: SchedulerConfig{RecomputeSpec: "@every 5m"},
	}
}
