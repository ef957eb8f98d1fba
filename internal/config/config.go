package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type BackendConfig struct {
	BaseURL string `json:"base_url"`
	APIPath string `json:"api_path"`
	// TimeoutMS 为 0 时不设置客户端超时，沿用底层传输默认值。
	// TimeoutMS of 0 leaves the transport default (no client-level timeout).
	TimeoutMS int `json:"timeout_ms"`
}

// APIBase 拼接 base_url 与 api_path
// APIBase joins base_url and api_path into the endpoint prefix
func (b BackendConfig) APIBase() string {
	base := strings.TrimRight(strings.TrimSpace(b.BaseURL), "/")
	path := strings.Trim(strings.TrimSpace(b.APIPath), "/")
	if path == "" {
		return base
	}
	return base + "/" + path
}

type StorageConfig struct {
	BaseDir    string `json:"base_dir"`
	SessionKey string `json:"session_key"`
}

type UIConfig struct {
	// Mode: tui | plain | auto
	Mode      string `json:"mode"`
	Locale    string `json:"locale"`
	AltScreen bool   `json:"alt_screen"`
}

type LogConfig struct {
	Level string `json:"level"`
	File  string `json:"file"`
}

type StubConfig struct {
	Addr string `json:"addr"`
}

type Config struct {
	Backend BackendConfig `json:"backend"`
	Storage StorageConfig `json:"storage"`
	UI      UIConfig      `json:"ui"`
	Log     LogConfig     `json:"log"`
	Stub    StubConfig    `json:"stub"`
}

type fileUIConfig struct {
	Mode      *string `json:"mode"`
	Locale    *string `json:"locale"`
	AltScreen *bool   `json:"alt_screen"`
}

type fileConfig struct {
	Backend *BackendConfig `json:"backend"`
	Storage *StorageConfig `json:"storage"`
	UI      *fileUIConfig  `json:"ui"`
	Log     *LogConfig     `json:"log"`
	Stub    *StubConfig    `json:"stub"`
}

const (
	UIModeAuto  = "auto"
	UIModeTUI   = "tui"
	UIModePlain = "plain"
)

func Default() Config {
	return Config{
		Backend: BackendConfig{
			BaseURL: DefaultBackendBaseURL,
			APIPath: DefaultBackendAPIPath,
		},
		Storage: StorageConfig{
			BaseDir:    "~/.riskchat",
			SessionKey: DefaultSessionKey,
		},
		UI: UIConfig{
			Mode:      UIModeAuto,
			AltScreen: true,
		},
		Log: LogConfig{
			Level: "info",
			File:  "riskchat.log",
		},
		Stub: StubConfig{
			Addr: "127.0.0.1:5000",
		},
	}
}

// Load 依次合并：默认值 → 全局配置 → 项目配置 → .env/环境变量
// Load merges defaults, the global file, the project file, then .env and environment
func Load(path string) (Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return Config{}, err
	}

	cfg := Default()
	for _, globalPath := range globalConfigPaths() {
		if err := mergeFromFile(&cfg, globalPath); err != nil {
			return Config{}, err
		}
	}

	resolvedPath := strings.TrimSpace(path)
	if envPath := strings.TrimSpace(os.Getenv("RISKCHAT_CONFIG_PATH")); envPath != "" {
		resolvedPath = envPath
	}
	if resolvedPath == "" {
		resolvedPath = findProjectConfigPath()
	}
	if err := mergeFromFile(&cfg, resolvedPath); err != nil {
		return Config{}, err
	}

	if err := normalize(&cfg); err != nil {
		return Config{}, err
	}
	return applyEnv(cfg)
}

// loadDotEnv 读取 .env；文件不存在不报错，已有环境变量不被覆盖
// loadDotEnv reads a .env file; a missing file is fine and existing variables win
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func globalConfigPaths() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	return []string{filepath.Join(home, ".riskchat", "config.json")}
}

func findProjectConfigPath() string {
	candidates := []string{
		"riskchat.config.json",
		".riskchat/config.json",
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

func mergeFromFile(cfg *Config, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}

	resolved, err := expandPath(path)
	if err != nil {
		return fmt.Errorf("expand config path %q: %w", path, err)
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %q: %w", resolved, err)
	}

	cleaned := stripJSONComments(data)
	var fileCfg fileConfig
	if err := json.Unmarshal(cleaned, &fileCfg); err != nil {
		return fmt.Errorf("parse config %q: %w", resolved, err)
	}
	applyFileConfig(cfg, fileCfg)
	return nil
}

func applyFileConfig(cfg *Config, fc fileConfig) {
	if fc.Backend != nil {
		cfg.Backend = mergeBackend(cfg.Backend, *fc.Backend)
	}
	if fc.Storage != nil {
		if strings.TrimSpace(fc.Storage.BaseDir) != "" {
			cfg.Storage.BaseDir = fc.Storage.BaseDir
		}
		if strings.TrimSpace(fc.Storage.SessionKey) != "" {
			cfg.Storage.SessionKey = fc.Storage.SessionKey
		}
	}
	if fc.UI != nil {
		if fc.UI.Mode != nil {
			cfg.UI.Mode = *fc.UI.Mode
		}
		if fc.UI.Locale != nil {
			cfg.UI.Locale = *fc.UI.Locale
		}
		if fc.UI.AltScreen != nil {
			cfg.UI.AltScreen = *fc.UI.AltScreen
		}
	}
	if fc.Log != nil {
		if strings.TrimSpace(fc.Log.Level) != "" {
			cfg.Log.Level = fc.Log.Level
		}
		if strings.TrimSpace(fc.Log.File) != "" {
			cfg.Log.File = fc.Log.File
		}
	}
	if fc.Stub != nil && strings.TrimSpace(fc.Stub.Addr) != "" {
		cfg.Stub.Addr = fc.Stub.Addr
	}
}

func mergeBackend(base BackendConfig, override BackendConfig) BackendConfig {
	if strings.TrimSpace(override.BaseURL) != "" {
		base.BaseURL = override.BaseURL
	}
	if strings.TrimSpace(override.APIPath) != "" {
		base.APIPath = override.APIPath
	}
	if override.TimeoutMS > 0 {
		base.TimeoutMS = override.TimeoutMS
	}
	return base
}

func normalize(cfg *Config) error {
	cfg.Backend.BaseURL = strings.TrimSpace(cfg.Backend.BaseURL)
	if cfg.Backend.BaseURL == "" {
		cfg.Backend.BaseURL = Default().Backend.BaseURL
	}
	if !strings.HasPrefix(cfg.Backend.BaseURL, "http://") && !strings.HasPrefix(cfg.Backend.BaseURL, "https://") {
		return fmt.Errorf("invalid backend.base_url %q: scheme must be http or https", cfg.Backend.BaseURL)
	}
	cfg.Backend.APIPath = strings.TrimSpace(cfg.Backend.APIPath)
	if cfg.Backend.TimeoutMS < 0 {
		cfg.Backend.TimeoutMS = 0
	}

	if strings.TrimSpace(cfg.Storage.BaseDir) == "" {
		cfg.Storage.BaseDir = Default().Storage.BaseDir
	}
	storageDir, err := expandPath(cfg.Storage.BaseDir)
	if err != nil {
		return err
	}
	cfg.Storage.BaseDir = storageDir
	cfg.Storage.SessionKey = strings.TrimSpace(cfg.Storage.SessionKey)
	if cfg.Storage.SessionKey == "" {
		cfg.Storage.SessionKey = Default().Storage.SessionKey
	}

	switch mode := strings.ToLower(strings.TrimSpace(cfg.UI.Mode)); mode {
	case UIModeTUI, UIModePlain, UIModeAuto:
		cfg.UI.Mode = mode
	case "":
		cfg.UI.Mode = UIModeAuto
	default:
		return fmt.Errorf("invalid ui.mode %q: want tui, plain or auto", cfg.UI.Mode)
	}
	cfg.UI.Locale = strings.TrimSpace(cfg.UI.Locale)

	switch level := strings.ToLower(strings.TrimSpace(cfg.Log.Level)); level {
	case "debug", "info", "warn", "error":
		cfg.Log.Level = level
	case "":
		cfg.Log.Level = Default().Log.Level
	default:
		return fmt.Errorf("invalid log.level %q", cfg.Log.Level)
	}
	cfg.Log.File = strings.TrimSpace(cfg.Log.File)
	if cfg.Log.File == "" {
		cfg.Log.File = Default().Log.File
	}
	if strings.TrimSpace(cfg.Stub.Addr) == "" {
		cfg.Stub.Addr = Default().Stub.Addr
	}
	return nil
}

func applyEnv(cfg Config) (Config, error) {
	if v := strings.TrimSpace(os.Getenv("RISKCHAT_BASE_URL")); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v, ok := os.LookupEnv("RISKCHAT_API_PATH"); ok {
		cfg.Backend.APIPath = strings.TrimSpace(v)
	}
	if v := strings.TrimSpace(os.Getenv("RISKCHAT_TIMEOUT_MS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Config{}, fmt.Errorf("invalid RISKCHAT_TIMEOUT_MS: %q", v)
		}
		cfg.Backend.TimeoutMS = n
	}
	if v := strings.TrimSpace(os.Getenv("RISKCHAT_HOME")); v != "" {
		cfg.Storage.BaseDir = v
	}
	if v := strings.TrimSpace(os.Getenv("RISKCHAT_LANG")); v != "" {
		cfg.UI.Locale = v
	}
	if v := strings.TrimSpace(os.Getenv("RISKCHAT_UI")); v != "" {
		cfg.UI.Mode = v
	}
	if v := strings.TrimSpace(os.Getenv("RISKCHAT_LOG_LEVEL")); v != "" {
		cfg.Log.Level = v
	}
	if v := strings.TrimSpace(os.Getenv("RISKCHAT_STUB_ADDR")); v != "" {
		cfg.Stub.Addr = v
	}

	return cfg, normalize(&cfg)
}

// LogPath 返回日志文件绝对路径（相对路径基于存储目录）
// LogPath resolves the log file; relative names live under the storage dir
func (c Config) LogPath() string {
	if filepath.IsAbs(c.Log.File) {
		return c.Log.File
	}
	return filepath.Join(c.Storage.BaseDir, c.Log.File)
}

// DBPath 返回本地 SQLite 文件路径 / DBPath returns the local SQLite file
func (c Config) DBPath() string {
	return filepath.Join(c.Storage.BaseDir, "riskchat.db")
}

func expandPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	if strings.HasPrefix(path, "~/") || path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		if path == "~" {
			path = home
		} else {
			path = filepath.Join(home, strings.TrimPrefix(path, "~/"))
		}
	}
	return filepath.Abs(path)
}

func stripJSONComments(data []byte) []byte {
	const (
		stateNormal = iota
		stateString
		stateLineComment
		stateBlockComment
	)

	state := stateNormal
	escaped := false
	out := bytes.Buffer{}

	for i := 0; i < len(data); i++ {
		c := data[i]
		next := byte(0)
		if i+1 < len(data) {
			next = data[i+1]
		}

		switch state {
		case stateNormal:
			if c == '"' {
				state = stateString
				out.WriteByte(c)
				continue
			}
			if c == '/' && next == '/' {
				state = stateLineComment
				i++
				continue
			}
			if c == '/' && next == '*' {
				state = stateBlockComment
				i++
				continue
			}
			out.WriteByte(c)
		case stateString:
			out.WriteByte(c)
			if escaped {
				escaped = false
				continue
			}
			if c == '\\' {
				escaped = true
				continue
			}
			if c == '"' {
				state = stateNormal
			}
		case stateLineComment:
			if c == '\n' {
				state = stateNormal
				out.WriteByte(c)
			}
		case stateBlockComment:
			if c == '*' && next == '/' {
				state = stateNormal
				i++
			}
		}
	}

	return out.Bytes()
}
