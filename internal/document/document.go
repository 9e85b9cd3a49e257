// Package document decodes submitted documents and manages the local files
// that stand in for them while they are being viewed.
package document

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/m-mizutani/goerr/v2"

	"github.com/reportview/reportview/pkg/client"
)

// Decode turns the standard-base64 payload served by the API into the raw
// document bytes. Malformed input is reported as client.ErrDecode.
func Decode(payload string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return nil, goerr.Wrap(fmt.Errorf("%w: %w", client.ErrDecode, err), "decode document",
			goerr.V("payload_len", len(payload)))
	}
	return data, nil
}

// Resource is a document written to a private temp file. It must be released
// once it is no longer displayed.
type Resource struct {
	Name        string
	Path        string
	Size        int
	ContentType string

	mu       sync.Mutex
	released bool
}

// Acquire writes data to a new temp file in dir ("" means the OS default).
// name labels the resource and seeds the file name.
func Acquire(dir, name string, data []byte) (*Resource, error) {
	f, err := os.CreateTemp(dir, "reportview-"+fileSafe(name)+"-*.pdf")
	if err != nil {
		return nil, goerr.Wrap(err, "create document file", goerr.V("name", name))
	}
	if _, err := f.Write(data); err != nil {
		f.Close()           //nolint:errcheck
		os.Remove(f.Name()) //nolint:errcheck
		return nil, goerr.Wrap(err, "write document file", goerr.V("path", f.Name()))
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name()) //nolint:errcheck
		return nil, goerr.Wrap(err, "close document file", goerr.V("path", f.Name()))
	}
	return &Resource{
		Name:        name,
		Path:        f.Name(),
		Size:        len(data),
		ContentType: http.DetectContentType(data),
	}, nil
}

// IsPDF reports whether the content sniffed as a PDF.
func (r *Resource) IsPDF() bool {
	return r.ContentType == "application/pdf"
}

// Release deletes the backing file. It is safe to call more than once.
func (r *Resource) Release() error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return nil
	}
	r.released = true
	if err := os.Remove(r.Path); err != nil && !os.IsNotExist(err) {
		return goerr.Wrap(err, "remove document file", goerr.V("path", r.Path))
	}
	return nil
}

// Released reports whether Release has run.
func (r *Resource) Released() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.released
}

// ErrClosed is returned by Track once the holder has been closed.
var ErrClosed = goerr.New("document holder closed")

// Holder keeps at most one live Resource and releases the previous one
// whenever it is superseded. Resources still being loaded are tracked too,
// so Close can clean up after fetches that never got installed.
type Holder struct {
	mu      sync.Mutex
	current *Resource
	pending map[*Resource]struct{}
	closed  bool
}

// Track registers r as loaded but not yet installed. After Close, r is
// released at once and ErrClosed is returned.
func (h *Holder) Track(r *Resource) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		if err := r.Release(); err != nil {
			return err
		}
		return goerr.Wrap(ErrClosed, "track document", goerr.V("path", r.Path))
	}
	if h.pending == nil {
		h.pending = make(map[*Resource]struct{})
	}
	h.pending[r] = struct{}{}
	h.mu.Unlock()
	return nil
}

// Discard releases a tracked resource that will never be installed.
func (h *Holder) Discard(r *Resource) error {
	h.mu.Lock()
	delete(h.pending, r)
	h.mu.Unlock()
	return r.Release()
}

// Install makes r the live resource and releases the one it replaces.
func (h *Holder) Install(r *Resource) error {
	h.mu.Lock()
	if r != nil {
		delete(h.pending, r)
	}
	if h.closed && r != nil {
		h.mu.Unlock()
		return r.Release()
	}
	prev := h.current
	h.current = r
	h.mu.Unlock()
	if prev != nil && prev != r {
		return prev.Release()
	}
	return nil
}

// Current returns the live resource, or nil.
func (h *Holder) Current() *Resource {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// Release drops and releases the live resource.
func (h *Holder) Release() error {
	return h.Install(nil)
}

// Close releases the live resource and every tracked one. Resources tracked
// afterwards are released immediately.
func (h *Holder) Close() error {
	h.mu.Lock()
	h.closed = true
	victims := make([]*Resource, 0, len(h.pending)+1)
	if h.current != nil {
		victims = append(victims, h.current)
		h.current = nil
	}
	for r := range h.pending {
		victims = append(victims, r)
	}
	h.pending = nil
	h.mu.Unlock()

	var errs []error
	for _, r := range victims {
		if err := r.Release(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func fileSafe(name string) string {
	s := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, name)
	if len(s) > 40 {
		s = s[:40]
	}
	return s
}
