package tlsroots

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/yndnr/qrtoken-go/internal/telemetry/logger"
)

// Watcher serves a certificate pair and reloads it when either file
// changes. A failed reload keeps the previous certificate.
type Watcher struct {
	certFile string
	keyFile  string
	log      logger.Logger
	debounce time.Duration

	mu   sync.RWMutex
	cert *tls.Certificate

	reloadMu   sync.Mutex
	lastReload time.Time

	watcher  *fsnotify.Watcher
	done     chan struct{}
	stopOnce sync.Once
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithLogger sets the logger for the watcher.
func WithLogger(l logger.Logger) WatcherOption {
	return func(w *Watcher) {
		if l != nil {
			w.log = l
		}
	}
}

// WithDebounce sets the minimum gap between reloads.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// NewWatcher loads the pair once. Call Start or StartAsync to follow
// changes.
func NewWatcher(certFile, keyFile string, opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		certFile: certFile,
		keyFile:  keyFile,
		log:      logger.Nop(),
		debounce: 500 * time.Millisecond,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if err := w.Reload(); err != nil {
		return nil, fmt.Errorf("tlsroots: initial load: %w", err)
	}
	return w, nil
}

// Start watches the directories holding the pair, which also catches
// rename-into-place updates. It blocks until Stop.
func (w *Watcher) Start() error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("tlsroots: create watcher: %w", err)
	}
	w.watcher = fw

	dirs := map[string]struct{}{
		filepath.Dir(w.certFile): {},
		filepath.Dir(w.keyFile):  {},
	}
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return fmt.Errorf("tlsroots: watch %s: %w", dir, err)
		}
	}
	w.log.Info("certificate watcher started", "cert_file", w.certFile)

	certPath, _ := filepath.Abs(w.certFile)
	keyPath, _ := filepath.Abs(w.keyFile)

	for {
		select {
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			name, _ := filepath.Abs(event.Name)
			if name != certPath && name != keyPath {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := w.debouncedReload(); err != nil {
				w.log.Error("certificate reload failed", "error", err, "cert_file", w.certFile)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("certificate watcher error", "error", err)

		case <-w.done:
			return fw.Close()
		}
	}
}

// StartAsync runs Start in a goroutine.
func (w *Watcher) StartAsync() {
	go func() {
		if err := w.Start(); err != nil {
			w.log.Error("certificate watcher stopped", "error", err)
		}
	}()
}

// Stop stops watching. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.done) })
}

// GetCertificate implements tls.Config.GetCertificate.
func (w *Watcher) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.cert, nil
}

func (w *Watcher) debouncedReload() error {
	w.reloadMu.Lock()
	defer w.reloadMu.Unlock()
	now := time.Now()
	if now.Sub(w.lastReload) < w.debounce {
		return nil
	}
	w.lastReload = now
	return w.Reload()
}

// Reload re-reads the pair from disk.
func (w *Watcher) Reload() error {
	cert, err := tls.LoadX509KeyPair(w.certFile, w.keyFile)
	if err != nil {
		return fmt.Errorf("load key pair: %w", err)
	}
	if len(cert.Certificate) > 0 {
		if leaf, err := x509.ParseCertificate(cert.Certificate[0]); err == nil {
			cert.Leaf = leaf
			w.log.Info("certificate loaded",
				"cert_file", w.certFile,
				"subject", leaf.Subject.CommonName,
				"not_after", leaf.NotAfter)
		}
	}

	w.mu.Lock()
	w.cert = &cert
	w.mu.Unlock()
	return nil
}
