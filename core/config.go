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

type Config struct {
	Env      string
	Debug    bool
	TestMode bool
	Build    string

	AppName          string
	SecretKey        []byte
	FrontendBaseURL  string
	WorkDir          string
	RollbarToken     string
	SendgridApiKey   string
	DefaultFromEmail mail.Address

	PasswordResetTimeoutDelta time.Duration

	// BreakGlass is the operator-override account. It authenticates through the
	// normal login path but bypasses the active-user check; every use is
	// audit-logged. Disabled when Username is empty.
	BreakGlass struct {
		Username string
		Password string
	}

	Server struct {
		Host                      string
		Port                      int
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	Database struct {
		Engine        string
		Name          string
		Host          string
		Port          int
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	Attendance struct {
		// BulkReattribution controls whether a bulk write that touches an
		// existing record overwrites its teacher attribution with the acting
		// teacher. The single-record path always re-attributes.
		BulkReattribution bool
	}
}

func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) DatabaseAddress() string {
	return fmt.Sprintf("%s:%d", c.Database.Host, c.Database.Port)
}

// NewConfig loads the app configuration from defaults, an optional
// config/.env.<env> file and environment variables prefixed with <ENV>_.
func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("build", "dev")
	v.SetDefault("appName", "Mahudhurio")
	v.SetDefault("secretKey", "w3&0y+jqcb%9$_s@4pkz(x7ue!85#vof-2m^1ngl*dh)6rt(ai")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)

	v.SetDefault("breakGlassUsername", "")
	v.SetDefault("breakGlassPassword", "")

	v.SetDefault("serverHost", "0.0.0.0")
	v.SetDefault("serverPort", 8000)
	v.SetDefault("shutdownTimeout", 5*time.Second)
	v.SetDefault("jwtExpirationDelta", 24*time.Hour)
	v.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)

	v.SetDefault("databaseEngine", "postgres")
	v.SetDefault("databaseName", "mahudhurio")
	v.SetDefault("databaseHost", "localhost")
	v.SetDefault("databasePort", 5432)
	v.SetDefault("databaseUser", "mahudhurio")
	v.SetDefault("databasePassword", "")
	v.SetDefault("databaseAdminUser", "")
	v.SetDefault("databaseAdminPassword", "")
	v.SetDefault("databaseDisableTLS", true)

	v.SetDefault("attendanceBulkReattribution", true)

	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	wd := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := &Config{
		Env:                       env,
		Debug:                     v.GetBool("debug"),
		TestMode:                  v.GetBool("testMode"),
		Build:                     v.GetString("build"),
		AppName:                   v.GetString("appName"),
		SecretKey:                 []byte(v.GetString("secretKey")),
		FrontendBaseURL:           v.GetString("frontendBaseURL"),
		WorkDir:                   wd,
		RollbarToken:              v.GetString("rollbarToken"),
		SendgridApiKey:            v.GetString("sendgridApiKey"),
		DefaultFromEmail:          mail.Address{Name: v.GetString("appName"), Address: v.GetString("defaultFromEmail")},
		PasswordResetTimeoutDelta: v.GetDuration("passwordResetTimeoutDelta"),
	}
	conf.BreakGlass.Username = v.GetString("breakGlassUsername")
	conf.BreakGlass.Password = v.GetString("breakGlassPassword")
	conf.Server.Host = v.GetString("serverHost")
	conf.Server.Port = v.GetInt("serverPort")
	conf.Server.ShutdownTimeout = v.GetDuration("shutdownTimeout")
	conf.Server.JWTExpirationDelta = v.GetDuration("jwtExpirationDelta")
	conf.Server.JWTRefreshExpirationDelta = v.GetDuration("jwtRefreshExpirationDelta")
	conf.Database.Engine = v.GetString("databaseEngine")
	conf.Database.Name = v.GetString("databaseName")
	conf.Database.Host = v.GetString("databaseHost")
	conf.Database.Port = v.GetInt("databasePort")
	conf.Database.User = v.GetString("databaseUser")
	conf.Database.Password = v.GetString("databasePassword")
	conf.Database.AdminUser = v.GetString("databaseAdminUser")
	conf.Database.AdminPassword = v.GetString("databaseAdminPassword")
	conf.Database.DisableTLS = v.GetBool("databaseDisableTLS")
	conf.Attendance.BulkReattribution = v.GetBool("attendanceBulkReattribution")
	return conf
}

// Conf is the app-wide configuration, loaded once at init.
var Conf = NewConfig()
