// Package version хранит версию сборки. Значение подменяется при сборке через
// -ldflags "-X rera-gateway/internal/support/version.Version=v1.2.3".
package version

// Version: версия приложения, передаётся в Telegram как AppVersion устройства.
var Version = "dev"
