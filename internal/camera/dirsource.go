package camera

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/fitmirror/streaming-server/internal/logger"
	"github.com/fitmirror/streaming-server/pkg/types"
)

const dirFrameWait = 5 * time.Second

// DirOpener reads frames dropped as image files into a directory by an
// external producer. Useful when the capture process runs out of tree.
type DirOpener struct {
	Path string
}

// Name identifies the device for logs.
func (o *DirOpener) Name() string { return "dir:" + o.Path }

// Open starts watching the directory for new image files.
func (o *DirOpener) Open() (Device, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(o.Path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", o.Path, err)
	}
	return &dirDevice{watcher: watcher}, nil
}

type dirDevice struct {
	watcher *fsnotify.Watcher
	number  uint64
}

// ReadFrame blocks until the producer writes a new image file, bounded by
// dirFrameWait. Partially written or undecodable files are skipped.
func (d *dirDevice) ReadFrame() (*types.Frame, error) {
	deadline := time.After(dirFrameWait)
	for {
		select {
		case event, ok := <-d.watcher.Events:
			if !ok {
				return nil, fmt.Errorf("watcher closed")
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !isImageFile(event.Name) {
				continue
			}
			frame, err := decodeImageFile(event.Name)
			if err != nil {
				logger.Debug("Camera", "Skipping %s: %v", event.Name, err)
				continue
			}
			d.number++
			frame.Number = d.number
			frame.Timestamp = time.Now()
			return frame, nil
		case err, ok := <-d.watcher.Errors:
			if !ok {
				return nil, fmt.Errorf("watcher closed")
			}
			logger.Warn("Camera", "Watcher error: %v", err)
		case <-deadline:
			return nil, fmt.Errorf("no frame file within %v", dirFrameWait)
		}
	}
}

func (d *dirDevice) Close() error {
	return d.watcher.Close()
}

func isImageFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png":
		return true
	}
	return false
}

func decodeImageFile(path string) (*types.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}
	bounds := img.Bounds()
	frame := types.NewFrame(bounds.Dx(), bounds.Dy())
	draw.Draw(frame.RGBA(), frame.RGBA().Rect, img, bounds.Min, draw.Src)
	return frame, nil
}
