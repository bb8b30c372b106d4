package utilities

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FrameArchive guarda cada paquete recibido como una línea hex en un
// archivo que rota por tamaño.
type FrameArchive struct {
	mu  sync.Mutex
	out io.WriteCloser
	now func() time.Time
}

func NewFrameArchive(path string) (*FrameArchive, error) {
	// Crear carpeta si no existe
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("archive dir: %w", err)
	}
	return &FrameArchive{
		out: &lumberjack.Logger{
			Filename:   path,
			MaxSize:    50, // MB
			MaxBackups: 10,
			MaxAge:     30, // días
			Compress:   true,
		},
		now: time.Now,
	}, nil
}

// Write agrega "2006-01-02T15:04:05Z imei hex".
func (a *FrameArchive) Write(imei string, data []byte) error {
	line := fmt.Sprintf("%s %s %s\n", a.now().UTC().Format(time.RFC3339), imei, hex.EncodeToString(data))
	a.mu.Lock()
	defer a.mu.Unlock()
	_, err := io.WriteString(a.out, line)
	return err
}

func (a *FrameArchive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.out.Close()
}
