package env

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Address  string `env:"RCON_ADDRESS,default=127.0.0.1:25575"`
	Password string `env:"RCON_PASSWORD"`

	DialTimeout time.Duration `env:"RCON_DIAL_TIMEOUT,default=2s"`
	KeepAlive   time.Duration `env:"RCON_KEEP_ALIVE,default=30s"`

	ReadBufferSize  int `env:"RCON_READ_BUFFER_SIZE,default=16384"`
	WriteBufferSize int `env:"RCON_WRITE_BUFFER_SIZE,default=16384"`
	MaxPacketLength int `env:"RCON_MAX_PACKET_LENGTH,default=1048576"`

	LogLevel string `env:"RCON_LOG_LEVEL,default=info"`

	HTTPAddress    string `env:"RCON_HTTP_ADDRESS,default=127.0.0.1:7362"`
	DebugHTTP      bool   `env:"RCON_DEBUG_HTTP"`
	TranscriptSize int    `env:"RCON_TRANSCRIPT_SIZE,default=100"`
	TranscriptFile string `env:"RCON_TRANSCRIPT_FILE"`
}

func LoadConfig(ctx context.Context) (*Config, error) {
	return loadConfig(ctx, envconfig.OsLookuper())
}

func loadConfig(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	config := Config{}

	if err := godotenv.Load(".env.local"); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	if err := envconfig.ProcessWith(ctx, &config, lookuper); err != nil {
		return nil, err
	}

	return &config, nil
}
