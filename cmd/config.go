package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/naka-gawa/coverage-stats/internal/domain"
	"github.com/naka-gawa/coverage-stats/internal/usecase"
	"github.com/spf13/viper"
)

const (
	envPrefix  = "COVSTATS"
	configName = ".covstats"
)

var validate = validator.New()

// FileNames are the output files of one report kind.
type FileNames struct {
	CSV   string `mapstructure:"csv"`
	Chart string `mapstructure:"chart"`
}

// Config holds every path the commands read from or write to.
type Config struct {
	Input     string `mapstructure:"input" validate:"required"`
	OutputDir string `mapstructure:"output_dir" validate:"required"`
	Obfuscate struct {
		Source string `mapstructure:"source" validate:"required"`
		Output string `mapstructure:"output" validate:"required"`
	} `mapstructure:"obfuscate"`
	Files map[string]FileNames `mapstructure:"files"`
}

// GeneratorConfig converts the file settings into the report generator's form.
func (c Config) GeneratorConfig() (usecase.GeneratorConfig, error) {
	files := make(map[domain.ReportKind]usecase.OutputFiles, len(c.Files))
	for name, f := range c.Files {
		kind, err := domain.ParseReportKind(name)
		if err != nil {
			return usecase.GeneratorConfig{}, fmt.Errorf("config files.%s: %w", name, err)
		}
		files[kind] = usecase.OutputFiles{CSV: f.CSV, Chart: f.Chart}
	}
	return usecase.GeneratorConfig{OutputDir: c.OutputDir, Files: files}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("input", "obfuscated_data.json")
	v.SetDefault("output_dir", ".")
	v.SetDefault("obfuscate.source", "../article-coverage-and-bugs-private/data/data.json")
	v.SetDefault("obfuscate.output", "obfuscated_data.json")
	for kind, files := range usecase.DefaultOutputFiles() {
		v.SetDefault("files."+string(kind)+".csv", files.CSV)
		v.SetDefault("files."+string(kind)+".chart", files.Chart)
	}
}

// initConfig reads .env, the config file and COVSTATS_* environment
// variables into the global viper instance.
func initConfig() {
	// A missing .env is normal.
	_ = godotenv.Load()

	v := viper.GetViper()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigName(configName)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Fprintln(os.Stderr, "Error reading config file:", v.ConfigFileUsed(), "-", err)
		}
	}
}

// loadConfig unmarshals and validates the configuration held by v.
func loadConfig(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
