package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"pystructure/internal/extract"
)

// Config — значения по умолчанию для запуска. Флаги командной строки важнее.
type Config struct {
	APIKey      string   `yaml:"api_key"`
	Model       string   `yaml:"model"`
	DirPerm     Perm     `yaml:"dir_perm"`
	FilePerm    Perm     `yaml:"file_perm"`
	ExecGlobs   []string `yaml:"exec_globs"`
	DBMode0600  bool     `yaml:"db_0600"`
	Strict      bool     `yaml:"strict"`
	SkipSummary bool     `yaml:"skip_summary"`
}

// Perm — права доступа, в YAML и env записываются восьмерично ("0755").
type Perm os.FileMode

func (p *Perm) UnmarshalYAML(n *yaml.Node) error {
	v, err := ParsePerm(n.Value, 0)
	if err != nil {
		return fmt.Errorf("строка %d: %w", n.Line, err)
	}
	*p = Perm(v)
	return nil
}

func (p Perm) Mode() os.FileMode { return os.FileMode(p) }

// Default — встроенные значения.
func Default() Config {
	return Config{
		Model:    extract.DefaultModel,
		DirPerm:  0o755,
		FilePerm: 0o644,
	}
}

// Load собирает конфигурацию: встроенные значения, затем YAML (если path не пуст),
// затем переменные окружения (включая .env в текущем каталоге).
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("конфиг %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("конфиг %s: %w", path, err)
		}
	}

	// .env не обязателен
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf(".env: %w", err)
	}

	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("PYSTRUCTURE_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("PYSTRUCTURE_DPERM"); v != "" {
		m, err := ParsePerm(v, 0o755)
		if err != nil {
			return cfg, fmt.Errorf("PYSTRUCTURE_DPERM: %w", err)
		}
		cfg.DirPerm = Perm(m)
	}
	if v := os.Getenv("PYSTRUCTURE_FPERM"); v != "" {
		m, err := ParsePerm(v, 0o644)
		if err != nil {
			return cfg, fmt.Errorf("PYSTRUCTURE_FPERM: %w", err)
		}
		cfg.FilePerm = Perm(m)
	}
	return cfg, nil
}

// ParsePerm разбирает права: base=0 понимает 0755/755/0o755.
func ParsePerm(s string, def os.FileMode) (os.FileMode, error) {
	ss := strings.TrimSpace(s)
	if ss == "" {
		return def, nil
	}
	// "755" без ведущего нуля — тоже восьмерично
	if !strings.HasPrefix(ss, "0") {
		ss = "0" + ss
	}
	u, err := strconv.ParseUint(ss, 0, 32)
	if err != nil {
		return 0, err
	}
	if u > 0o7777 {
		return 0, fmt.Errorf("права вне диапазона: %s", s)
	}
	return os.FileMode(u), nil
}

// SplitGlobs режет список шаблонов через запятую.
func SplitGlobs(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
