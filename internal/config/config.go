package config

import (
	"github.com/ilyakaznacheev/cleanenv"
	"log"
	"time"
)

type Config struct {
	Env        string `yaml:"env" env-default:"prod"`
	HTTPServer `yaml:"http_server"`
	DBUser     string `yaml:"db_user" env-required:"true"`
	DBPassword string `yaml:"db_password" env-required:"false"`
	DBHost     string `yaml:"db_host" env-default:"localhost"`
	DBPort     int    `yaml:"db_port" env-default:"3306"`
	DBName     string `yaml:"db_name" env-required:"true"`
	ParseTime  bool   `yaml:"parse_time" env-default:"true"`

	// Дефолтная мощность (ед/день), когда по этажу не заведено ни одной швеи.
	// Прогноз и применение плана исторически используют разные константы,
	// пока ПЭО не подтвердит единое значение — держим обе в конфиге.
	DefaultCapacityPlan  int `yaml:"default_capacity_plan" env-default:"500"`
	DefaultCapacityApply int `yaml:"default_capacity_apply" env-default:"200"`

	AuthTokens []AuthToken `yaml:"auth_tokens"`
}

type HTTPServer struct {
	Address     string        `yaml:"address" env-default:"localhost:4001"`
	Timeout     time.Duration `yaml:"timeout"  env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout"  env-default:"60s"`
}

// AuthToken — строка таблицы токенов: роль владельца и, для технолога, его этаж.
type AuthToken struct {
	Token   string `yaml:"token"`
	Role    string `yaml:"role"`
	FloorID int    `yaml:"floor_id"`
}

func MustConfig() *Config {
	var cfg Config
	a := "./config/local.yaml"

	if err := cleanenv.ReadConfig(a, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}

	return &cfg
}
