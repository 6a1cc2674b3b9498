// Пакет config отвечает за сбор и предоставление конфигурации шлюза.
// Он:
//  1. читает переменные окружения из .env (через godotenv), если файл есть,
//  2. нормализует и валидирует входные значения,
//  3. копит предупреждения о подставленных значениях по умолчанию,
//  4. предоставляет потокобезопасный доступ к результату через R/W мьютекс.
//
// Бизнес-контекст: шлюз держит одну пользовательскую MTProto-сессию и пересылает
// запросы фиксированному боту. Конфиг среды управляет подключением к Telegram API,
// общим секретом HTTP, расположением файла сессии, параметрами пересылки и логированием.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// EnvConfig описывает параметры, приходящие из окружения (.env).
//
// NB: значения уже проходят минимальную валидацию и нормализацию в loadConfig.
type EnvConfig struct {
	APIID       int
	APIHash     string
	APIKey      string
	SessionFile string
	// SessionBackend: "file" или "bolt".
	SessionBackend string
	TestDC         bool
	ThrottleRPS    int
	CallTimeout    time.Duration
	// Пересылка запросов боту
	TargetBot          string
	LookupReplyWait    time.Duration
	LookupHistoryLimit int
	LookupStrictReply  bool
	// HTTP
	HTTPAddress      string
	CORSAllowOrigins []string
	// Логирование
	LogLevel          string
	LogFile           string
	LogFileLevel      string
	LogFileMaxSize    int
	LogFileMaxBackups int
	LogFileMaxAge     int
	LogFileCompress   bool
}

// Redacted возвращает копию без секретов: пригодна для вывода в лог.
func (e EnvConfig) Redacted() EnvConfig {
	out := e
	out.APIHash = mask(e.APIHash)
	out.APIKey = mask(e.APIKey)
	out.CORSAllowOrigins = cloneStrings(e.CORSAllowOrigins)
	return out
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "***"
}

// Config хранит конфигурацию среды.
type Config struct {
	Env      EnvConfig
	warnings []string     // предупреждения, накопленные при чтении окружения
	mu       sync.RWMutex // защита конкурентного доступа к конфигурации
}

// Значения по умолчанию для параметров окружения.
const (
	SessionBackendFile = "file"
	SessionBackendBolt = "bolt"

	defaultSessionFile        = "session.txt"
	defaultSessionBackend     = SessionBackendFile
	defaultThrottleRPS        = 5
	defaultCallTimeoutSec     = 30
	defaultTargetBot          = "AtlasDubaiBot"
	defaultLookupReplyWaitMS  = 3000
	defaultLookupHistoryLimit = 5
	defaultHTTPAddress        = "0.0.0.0:8000"
	defaultCORSAllowOrigins   = "*"
	defaultLogLevel           = "info"
	// Файловое логирование (LOG_FILE не имеет дефолта - должен быть явно указан для активации)
	defaultLogFileLevel      = "debug"
	defaultLogFileMaxSize    = 50
	defaultLogFileMaxBackups = 3
	defaultLogFileMaxAge     = 7
	defaultLogFileCompress   = true
)

var (
	cfgInstance *Config
	cfgDone     bool
)

// Load: точка входа для инициализации глобальной конфигурации.
// Повторный вызов запрещен (возвращается ошибка), чтобы избежать гонок
// конфигурации на старте.
func Load(envPath string) error {
	if cfgDone {
		return errors.New("config already loaded")
	}
	newCfg, err := loadConfig(envPath)
	if err != nil {
		return err
	}
	cfgInstance = newCfg
	cfgDone = true
	return nil
}

// loadConfig выполняет фактическую загрузку/валидацию без установки глобального
// состояния. Удобно для тестов: можно собрать временный Config и проверить его.
func loadConfig(envPath string) (*Config, error) {
	var warnings []string

	if strings.TrimSpace(envPath) != "" {
		if err := godotenv.Load(envPath); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to load .env: %w", err)
			}
			appendWarningf(&warnings, "env file %q not found; using process environment only", envPath)
		}
	}

	apiID, err := parseRequiredInt("TELEGRAM_API_ID")
	if err != nil {
		return nil, err
	}
	if apiID <= 0 {
		return nil, errors.New("env TELEGRAM_API_ID must be positive")
	}

	apiHash := strings.TrimSpace(os.Getenv("TELEGRAM_API_HASH"))
	if apiHash == "" {
		return nil, errors.New("env TELEGRAM_API_HASH must be set")
	}

	apiKey := strings.TrimSpace(os.Getenv("API_KEY"))
	if apiKey == "" {
		return nil, errors.New("env API_KEY must be set")
	}

	sessionFile := sanitizeValue("SESSION_FILE", os.Getenv("SESSION_FILE"), defaultSessionFile, &warnings)
	sessionBackend := sanitizeSessionBackend(os.Getenv("SESSION_BACKEND"), &warnings)
	testDC := parseBoolDefault("TEST_DC", false, &warnings)
	throttleRPS := parseIntDefault("THROTTLE_RPS", defaultThrottleRPS, greaterThanZero, &warnings)
	callTimeoutSec := parseIntDefault("TELEGRAM_CALL_TIMEOUT_SEC", defaultCallTimeoutSec, greaterThanZero, &warnings)
	targetBot := strings.TrimPrefix(
		sanitizeValue("TARGET_BOT", os.Getenv("TARGET_BOT"), defaultTargetBot, &warnings), "@")
	replyWaitMS := parseIntDefault("LOOKUP_REPLY_WAIT_MS", defaultLookupReplyWaitMS, greaterThanZero, &warnings)
	historyLimit := parseIntDefault("LOOKUP_HISTORY_LIMIT", defaultLookupHistoryLimit, greaterThanZero, &warnings)
	strictReply := parseBoolDefault("LOOKUP_STRICT_REPLY", false, &warnings)
	httpAddress := sanitizeValue("HTTP_ADDRESS", os.Getenv("HTTP_ADDRESS"), defaultHTTPAddress, &warnings)
	corsOrigins := splitCSV(sanitizeValue("CORS_ALLOW_ORIGINS", os.Getenv("CORS_ALLOW_ORIGINS"),
		defaultCORSAllowOrigins, &warnings))
	logLevel := sanitizeLogLevel("LOG_LEVEL", os.Getenv("LOG_LEVEL"), defaultLogLevel, &warnings)
	logFile := strings.TrimSpace(os.Getenv("LOG_FILE"))
	logFileLevel := sanitizeLogLevel("LOG_FILE_LEVEL", os.Getenv("LOG_FILE_LEVEL"), defaultLogFileLevel, &warnings)
	logFileMaxSize := parseIntDefault("LOG_FILE_MAX_SIZE_MB", defaultLogFileMaxSize, greaterThanZero, &warnings)
	logFileMaxBackups := parseIntDefault("LOG_FILE_MAX_BACKUPS", defaultLogFileMaxBackups, nonNegative, &warnings)
	logFileMaxAge := parseIntDefault("LOG_FILE_MAX_AGE_DAYS", defaultLogFileMaxAge, nonNegative, &warnings)
	logFileCompress := parseBoolDefault("LOG_FILE_COMPRESS", defaultLogFileCompress, &warnings)

	env := EnvConfig{
		APIID:              apiID,
		APIHash:            apiHash,
		APIKey:             apiKey,
		SessionFile:        sessionFile,
		SessionBackend:     sessionBackend,
		TestDC:             testDC,
		ThrottleRPS:        throttleRPS,
		CallTimeout:        time.Duration(callTimeoutSec) * time.Second,
		TargetBot:          targetBot,
		LookupReplyWait:    time.Duration(replyWaitMS) * time.Millisecond,
		LookupHistoryLimit: historyLimit,
		LookupStrictReply:  strictReply,
		HTTPAddress:        httpAddress,
		CORSAllowOrigins:   corsOrigins,
		LogLevel:           logLevel,
		LogFile:            logFile,
		LogFileLevel:       logFileLevel,
		LogFileMaxSize:     logFileMaxSize,
		LogFileMaxBackups:  logFileMaxBackups,
		LogFileMaxAge:      logFileMaxAge,
		LogFileCompress:    logFileCompress,
	}

	return &Config{Env: env, warnings: warnings}, nil
}

// Warnings возвращает накопленные предупреждения, возникшие при загрузке .env
// (например, когда подставлено значение по умолчанию). Возвращается копия.
func Warnings() []string {
	cfgInstance.mu.RLock()
	defer cfgInstance.mu.RUnlock()
	result := make([]string, len(cfgInstance.warnings))
	copy(result, cfgInstance.warnings)
	return result
}

// Env возвращает EnvConfig из глобального singleton. Это неизменяемый снимок
// на момент загрузки.
func Env() EnvConfig {
	cfgInstance.mu.RLock()
	defer cfgInstance.mu.RUnlock()
	return cfgInstance.Env
}

// parseRequiredInt читает обязательную целочисленную переменную окружения name.
func parseRequiredInt(name string) (int, error) {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return 0, fmt.Errorf("env %s must be set", name)
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("env %s must be a valid integer: %w", name, err)
	}
	return v, nil
}

// parseIntDefault читает name как int. Если пусто/некорректно/не проходит
// validator: возвращает defaultVal и пишет предупреждение.
func parseIntDefault(name string, defaultVal int, validator func(int) bool, warnings *[]string) int {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		appendWarningf(warnings, "env %s is not set; using default %d", name, defaultVal)
		return defaultVal
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		appendWarningf(warnings, "env %s value %q is not a valid integer; using default %d", name, value, defaultVal)
		return defaultVal
	}
	if validator != nil && !validator(v) {
		appendWarningf(warnings, "env %s value %d does not satisfy constraints; using default %d", name, v, defaultVal)
		return defaultVal
	}
	return v
}

func appendWarningf(warnings *[]string, format string, args ...any) {
	if warnings == nil {
		return
	}
	*warnings = append(*warnings, fmt.Sprintf(format, args...))
}

func greaterThanZero(v int) bool { return v > 0 }
func nonNegative(v int) bool     { return v >= 0 }

// parseBoolDefault читает name как bool. Пустое значение молча даёт defaultVal,
// некорректное: defaultVal и предупреждение.
func parseBoolDefault(name string, defaultVal bool, warnings *[]string) bool {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return defaultVal
	}
	v, err := strconv.ParseBool(value)
	if err != nil {
		appendWarningf(warnings, "env %s value %q is not a valid boolean; using default %v", name, value, defaultVal)
		return defaultVal
	}
	return v
}

// sanitizeLogLevel ограничивает уровень набором {debug, info, warn, error}.
func sanitizeLogLevel(name, level, defaultVal string, warnings *[]string) string {
	lvl := strings.ToLower(strings.TrimSpace(level))
	if lvl == "" {
		return defaultVal
	}
	switch lvl {
	case "debug", "info", "warn", "error":
		return lvl
	default:
		appendWarningf(warnings, "env %s value %q is invalid; using default %q", name, level, defaultVal)
		return defaultVal
	}
}

// sanitizeSessionBackend выбирает хранилище сессии (file|bolt).
func sanitizeSessionBackend(value string, warnings *[]string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	switch v {
	case "":
		return defaultSessionBackend
	case SessionBackendFile, SessionBackendBolt:
		return v
	default:
		appendWarningf(warnings, "env SESSION_BACKEND value %q is invalid; using default %q", value, defaultSessionBackend)
		return defaultSessionBackend
	}
}

// sanitizeValue возвращает непустое значение. Если переменная не задана,
// подставляет fallback и пишет предупреждение.
func sanitizeValue(name, value, fallback string, warnings *[]string) string {
	v := strings.TrimSpace(value)
	if v == "" {
		appendWarningf(warnings, "env %s is not set; using default %q", name, fallback)
		return fallback
	}
	return v
}

// splitCSV режет строку по запятым, отбрасывая пустые элементы и дубликаты.
func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	seen := make(map[string]struct{}, len(parts))
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		token := strings.TrimSpace(part)
		if token == "" {
			continue
		}
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		out = append(out, token)
	}
	return out
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
