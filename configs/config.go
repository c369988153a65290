package configs

import (
	"log"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     int    `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER" envDefault:"postgres"`
	DBPassword string `env:"DB_PASSWORD" envDefault:"postgres"`
	DBName     string `env:"DB_NAME" envDefault:"taskboard"`
	DBNameTest string `env:"DB_NAME_TEST" envDefault:"taskboard_test"`

	// RedisAddr kosong berarti cache task dimatikan.
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	JWTSecret string `env:"JWT_SECRET_KEY" envDefault:"secret"`

	// Path ke service account Firebase untuk verifikasi google-login.
	FirebaseCredentials string `env:"FIREBASE_CREDENTIALS"`

	UploadDir   string `env:"UPLOAD_DIR" envDefault:"uploads"`
	LogDir      string `env:"LOG_DIR" envDefault:"logs"`
	ListenAddr  string `env:"LISTEN_ADDR" envDefault:":5000"`
	CORSOrigins string `env:"CORS_ORIGINS" envDefault:"*"`
}

func LoadConfig() Config {
	// Muat file .env
	if err := godotenv.Load(); err != nil {
		// Hanya log jika tidak dalam mode test
		if os.Getenv("GO_ENV") != "test" {
			log.Println("No .env file found, using default values")
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("Failed to parse environment: %v", err)
	}
	return cfg
}
