package config

import (
	"bytes"
	"errors"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables overriding file values.
// The key app.server.http.address is read from WAPILOT_APP_SERVER_HTTP_ADDRESS.
const EnvPrefix = "WAPILOT"

// Viper guards a viper instance so reads never overlap a reload.
type Viper struct {
	mu        sync.RWMutex
	v         *viper.Viper
	listeners []func()

	watcher *fsnotify.Watcher
	stopped chan struct{}
}

// NewViper reads the file at pathFile; the format follows its extension.
// The file is watched and reloaded on change. A watcher that cannot start
// only disables reloading.
func NewViper(pathFile string) (*Viper, error) {
	v := newViper()
	v.SetConfigFile(pathFile)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	vc := &Viper{v: v}
	if err := vc.watch(pathFile); err != nil {
		slog.Warn("config hot reload disabled", "path", pathFile, "error", err)
	}

	return vc, nil
}

// NewViperFromBytes reads configuration from memory. It is never reloaded.
func NewViperFromBytes(configType string, data []byte) (*Viper, error) {
	if strings.TrimSpace(configType) == "" {
		return nil, errors.New("config type is required")
	}

	v := newViper()
	v.SetConfigType(configType)
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, err
	}

	return &Viper{v: v}, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// watch follows the directory, since editors and volume mounts replace the
// file instead of writing it in place.
func (vc *Viper) watch(pathFile string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	file := filepath.Clean(pathFile)
	if err := w.Add(filepath.Dir(file)); err != nil {
		return errors.Join(err, w.Close())
	}

	vc.watcher = w
	vc.stopped = make(chan struct{})

	go func() {
		defer close(vc.stopped)
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) == file && ev.Has(fsnotify.Write|fsnotify.Create) {
					vc.reload(file)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.Warn("config watcher error", "path", file, "error", err)
			}
		}
	}()

	return nil
}

func (vc *Viper) reload(file string) {
	vc.mu.Lock()
	err := vc.v.ReadInConfig()
	listeners := slices.Clone(vc.listeners)
	vc.mu.Unlock()

	if err != nil {
		slog.Error("config reload failed", "path", file, "error", err)
		return
	}

	slog.Info("config reloaded", "path", file)
	for _, fn := range listeners {
		fn()
	}
}

func (vc *Viper) OnChange(fn func()) {
	vc.mu.Lock()
	vc.listeners = append(vc.listeners, fn)
	vc.mu.Unlock()
}

func get[T any](vc *Viper, fn func(*viper.Viper, string) T, key string) T {
	vc.mu.RLock()
	defer vc.mu.RUnlock()
	return fn(vc.v, key)
}

func (vc *Viper) GetString(key string) string {
	return get(vc, (*viper.Viper).GetString, key)
}

func (vc *Viper) GetBool(key string) bool {
	return get(vc, (*viper.Viper).GetBool, key)
}

func (vc *Viper) GetInt(key string) int {
	return get(vc, (*viper.Viper).GetInt, key)
}

func (vc *Viper) GetFloat64(key string) float64 {
	return get(vc, (*viper.Viper).GetFloat64, key)
}

func (vc *Viper) duration(key string, unit time.Duration) time.Duration {
	return time.Duration(get(vc, (*viper.Viper).GetInt64, key)) * unit
}

func (vc *Viper) GetMillisecond(key string) time.Duration { return vc.duration(key, time.Millisecond) }
func (vc *Viper) GetSecond(key string) time.Duration      { return vc.duration(key, time.Second) }
func (vc *Viper) GetMinute(key string) time.Duration      { return vc.duration(key, time.Minute) }
func (vc *Viper) GetHour(key string) time.Duration        { return vc.duration(key, time.Hour) }

func (vc *Viper) GetArray(key string) []string {
	var items []string
	switch raw := get(vc, (*viper.Viper).Get, key).(type) {
	case string:
		items = strings.Split(raw, ",")
	default:
		items = cast.ToStringSlice(raw)
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func (vc *Viper) GetMap(key string) map[string]string {
	raw := get(vc, (*viper.Viper).Get, key)
	text, ok := raw.(string)
	if !ok {
		if m := cast.ToStringMapString(raw); m != nil {
			return m
		}
		return map[string]string{}
	}

	m := make(map[string]string)
	for _, pair := range strings.Split(text, ",") {
		if k, v, found := strings.Cut(pair, ":"); found {
			m[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
	}
	return m
}

// Close stops the file watcher.
func (vc *Viper) Close() error {
	vc.mu.Lock()
	w := vc.watcher
	vc.watcher = nil
	vc.mu.Unlock()

	if w == nil {
		return nil
	}
	err := w.Close()
	<-vc.stopped
	return err
}
