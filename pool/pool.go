// SPDX-License-Identifier: EPL-2.0

package pool

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ik5/sampler/audio"
	"github.com/ik5/sampler/config"
	"github.com/ik5/sampler/formats/aiff"
	"github.com/ik5/sampler/formats/mp3"
	"github.com/ik5/sampler/formats/vorbis"
	"github.com/ik5/sampler/formats/wav"
)

// workerWake bounds how long a worker sleeps before re-checking the quit
// and empty flags.
const workerWake = 50 * time.Millisecond

type preloadedFile struct {
	data       *audio.Buffer
	sampleRate float64 // native rate times the oversampling factor
}

// FilePool bridges the audio thread and the background loader workers. It
// keeps a preload head resident per file and serves promises whose tails
// are decoded by the worker pool.
//
// Thread contract: Preload, SetPreloadSize, SetOversampling, Clear and
// Close belong to a control thread and may block. Promise and
// CleanupPromises belong to the audio thread and never do. Reconfiguration
// must not run concurrently with the audio thread.
type FilePool struct {
	root     string
	registry *audio.Registry
	logger   *slog.Logger

	preloadSize  int
	oversampling int

	preloaded map[string]*preloadedFile

	pending chan *Promise
	filled  chan *Promise

	quit           chan struct{}
	emptyRequested atomic.Bool
	loading        atomic.Int32
	wg             sync.WaitGroup

	temporary []*Promise
	toClean   []*Promise
}

// DefaultRegistry returns a registry with all built-in formats registered.
func DefaultRegistry() *audio.Registry {
	reg := audio.NewRegistry()
	reg.Register("wav", wav.Decoder{})
	reg.Register("wave", wav.Decoder{})
	reg.Register("aiff", aiff.Decoder{})
	reg.Register("aif", aiff.Decoder{})
	reg.Register("mp3", mp3.Decoder{})
	reg.Register("ogg", vorbis.Decoder{})
	reg.Register("oga", vorbis.Decoder{})
	return reg
}

// NewFilePool creates a pool rooted at the given directory and starts
// config.NumBackgroundThreads loader workers.
func NewFilePool(root string) *FilePool {
	p := &FilePool{
		root:         root,
		registry:     DefaultRegistry(),
		logger:       slog.Default(),
		preloadSize:  config.DefaultPreloadSize,
		oversampling: config.DefaultOversampling,
		preloaded:    make(map[string]*preloadedFile),
		pending:      make(chan *Promise, config.MaxVoices),
		filled:       make(chan *Promise, config.MaxVoices),
		quit:         make(chan struct{}),
		temporary:    make([]*Promise, 0, config.MaxVoices),
		toClean:      make([]*Promise, 0, config.MaxVoices),
	}

	for i := 0; i < config.NumBackgroundThreads; i++ {
		p.wg.Add(1)
		go p.loadingWorker()
	}
	return p
}

// Close signals the workers, joins them and drains the queues. Promises
// in flight at shutdown are dropped unfulfilled.
func (p *FilePool) Close() {
	close(p.quit)
	p.wg.Wait()

	for {
		select {
		case pr := <-p.pending:
			pr.Release()
		case pr := <-p.filled:
			pr.Release()
		default:
			return
		}
	}
}

// FileInformation describes a sample file's geometry and rate before
// oversampling.
type FileInformation struct {
	Frames     int
	SampleRate float64
	Channels   int
	LoopStart  int
	LoopEnd    int
	HasLoop    bool
}

// FileInformation reads a file's metadata without loading sample data.
func (p *FilePool) FileInformation(name string) (FileInformation, error) {
	f, err := os.Open(filepath.Join(p.root, name))
	if err != nil {
		return FileInformation{}, fmt.Errorf("%w", err)
	}
	defer f.Close()

	dec, ok := p.registry.ForFile(name)
	if !ok {
		return FileInformation{}, ErrUnknownFormat
	}

	src, err := dec.Decode(f)
	if err != nil {
		return FileInformation{}, fmt.Errorf("%w", err)
	}
	defer src.Close()

	info := FileInformation{
		Frames:     src.Frames(),
		SampleRate: float64(src.SampleRate()),
		Channels:   src.Channels(),
	}
	if looper, ok := src.(audio.Looper); ok {
		info.LoopStart, info.LoopEnd, info.HasLoop = looper.LoopPoints()
	}
	return info, nil
}

// Preload ensures the first min(fileFrames, maxOffset+preloadSize) frames
// of the file are resident. A file already resident with an equal or larger
// prefix is a no-op; a smaller prefix is extended by reloading. It reports
// false when the file is missing, cannot be decoded, or has a channel count
// other than one or two.
func (p *FilePool) Preload(name string, maxOffset int) bool {
	info, err := p.FileInformation(name)
	if err != nil {
		p.logger.Warn("preload failed", "file", name, "err", err)
		return false
	}
	if info.Channels != 1 && info.Channels != 2 {
		p.logger.Warn("unsupported channel count, discarding sample",
			"file", name, "channels", info.Channels)
		return false
	}

	framesToLoad := info.Frames
	if p.preloadSize != 0 {
		framesToLoad = min(info.Frames, maxOffset+p.preloadSize)
	}

	if existing, ok := p.preloaded[name]; ok {
		if framesToLoad*p.oversampling <= existing.data.Frames() {
			return true
		}
	}

	buf, rate, err := p.loadFile(name, framesToLoad)
	if err != nil {
		p.logger.Warn("preload failed", "file", name, "err", err)
		return false
	}
	p.preloaded[name] = &preloadedFile{
		data:       buf,
		sampleRate: rate * float64(p.oversampling),
	}
	return true
}

// PreloadedData returns the resident head and its effective sample rate.
func (p *FilePool) PreloadedData(name string) (*audio.Buffer, float64, bool) {
	pf, ok := p.preloaded[name]
	if !ok {
		return nil, 0, false
	}
	return pf.data, pf.sampleRate, true
}

// NumPreloadedFiles is the number of resident preload heads.
func (p *FilePool) NumPreloadedFiles() int { return len(p.preloaded) }

// PreloadSize is the configured preload prefix in frames.
func (p *FilePool) PreloadSize() int { return p.preloadSize }

// Oversampling is the active oversampling factor.
func (p *FilePool) Oversampling() int { return p.oversampling }

// Promise returns a fresh promise for a file. If the file is preloaded the
// promise carries the head immediately and is queued for background
// loading; otherwise the promise is empty and the caller degrades to the
// region's own data. Called on the audio thread: when the pending queue is
// full the promise is returned without a tail instead of blocking.
func (p *FilePool) Promise(name string) *Promise {
	promise := &Promise{}
	promise.refs.Store(1)

	pf, ok := p.preloaded[name]
	if !ok {
		return promise
	}

	promise.filename = name
	promise.preloaded = pf.data
	promise.sampleRate = pf.sampleRate
	promise.oversampling = p.oversampling

	promise.retain()
	select {
	case p.pending <- promise:
	default:
		promise.Release()
		p.logger.Warn("pending promise queue full, no tail will be loaded", "file", name)
	}
	return promise
}

// CleanupPromises drains the filled queue into a linear list and destroys
// every promise only the pool still references. This is the single place
// promises die, so sample buffers are never freed on a worker. Call between
// blocks on the audio thread.
func (p *FilePool) CleanupPromises() {
	p.toClean = p.toClean[:0]

drain:
	for {
		select {
		case pr := <-p.filled:
			p.temporary = append(p.temporary, pr)
		default:
			break drain
		}
	}

	i := 0
	for i < len(p.temporary) {
		if p.temporary[i].RefCount() == 1 {
			pr := p.temporary[i]
			last := len(p.temporary) - 1
			p.temporary[i] = p.temporary[last]
			p.temporary[last] = nil
			p.temporary = p.temporary[:last]
			pr.Release()
			p.toClean = append(p.toClean, pr)
		} else {
			i++
		}
	}
}

// EmptyFileLoadingQueues asks the workers to drain the pending queue
// without doing work and waits for the acknowledgement. Not for the audio
// thread: the wait spins at millisecond granularity.
func (p *FilePool) EmptyFileLoadingQueues() {
	p.emptyRequested.Store(true)
	for p.emptyRequested.Load() {
		select {
		case <-p.quit:
			return
		default:
		}
		time.Sleep(time.Millisecond)
	}
}

// WaitForBackgroundLoading blocks until the pending queue is empty and no
// worker is decoding.
func (p *FilePool) WaitForBackgroundLoading() {
	// The dequeue-to-counter window means a single observation can race a
	// worker picking up work; require two quiet readings in a row.
	quiet := 0
	for quiet < 2 {
		if len(p.pending) == 0 && p.loading.Load() == 0 {
			quiet++
		} else {
			quiet = 0
		}
		time.Sleep(100 * time.Microsecond)
	}
}

// SetPreloadSize reloads every resident head for the new preload prefix.
// Control thread only.
func (p *FilePool) SetPreloadSize(size int) {
	for name, pf := range p.preloaded {
		numFrames := pf.data.Frames() / p.oversampling
		maxOffset := 0
		if numFrames > p.preloadSize {
			maxOffset = numFrames - p.preloadSize
		}
		buf, rate, err := p.loadFile(name, size+maxOffset)
		if err != nil {
			p.logger.Warn("preload resize failed", "file", name, "err", err)
			continue
		}
		pf.data = buf
		pf.sampleRate = rate * float64(p.oversampling)
	}
	p.preloadSize = size
}

// SetOversampling reloads every resident head at the new factor and
// rescales the stored sample rates so voices observe a coherent pair.
// Factors outside {1, 2, 4, 8} are ignored. Control thread only.
func (p *FilePool) SetOversampling(factor int) {
	switch factor {
	case 1, 2, 4, 8:
	default:
		p.logger.Warn("ignoring invalid oversampling factor", "factor", factor)
		return
	}

	previous := p.oversampling
	p.oversampling = factor
	for name, pf := range p.preloaded {
		numFrames := pf.data.Frames() / previous
		maxOffset := 0
		if numFrames > p.preloadSize {
			maxOffset = numFrames - p.preloadSize
		}
		buf, rate, err := p.loadFile(name, p.preloadSize+maxOffset)
		if err != nil {
			p.logger.Warn("oversampling reload failed", "file", name, "err", err)
			continue
		}
		pf.data = buf
		pf.sampleRate = rate * float64(factor)
	}
}

// Clear empties the loading queues and drops all resident data.
func (p *FilePool) Clear() {
	p.EmptyFileLoadingQueues()
	p.preloaded = make(map[string]*preloadedFile)
	p.temporary = p.temporary[:0]
	p.toClean = p.toClean[:0]
}

// loadFile decodes up to maxFrames frames (everything when maxFrames <= 0)
// and applies the active oversampling factor. The returned rate is the
// file's native rate.
func (p *FilePool) loadFile(name string, maxFrames int) (*audio.Buffer, float64, error) {
	f, err := os.Open(filepath.Join(p.root, name))
	if err != nil {
		return nil, 0, fmt.Errorf("%w", err)
	}
	defer f.Close()

	dec, ok := p.registry.ForFile(name)
	if !ok {
		return nil, 0, ErrUnknownFormat
	}

	src, err := dec.Decode(f)
	if err != nil {
		return nil, 0, fmt.Errorf("%w", err)
	}
	defer src.Close()

	if src.Channels() != 1 && src.Channels() != 2 {
		return nil, 0, ErrUnsupportedChannels
	}

	frames := src.Frames()
	if maxFrames > 0 && maxFrames < frames {
		frames = maxFrames
	}

	buf := audio.NewBuffer(src.Channels(), frames)
	if _, err := buf.ReadFrom(src); err != nil {
		return nil, 0, fmt.Errorf("%w", err)
	}

	return Oversample(buf, p.oversampling), float64(src.SampleRate()), nil
}

func (p *FilePool) loadingWorker() {
	defer p.wg.Done()

	for {
		if p.emptyRequested.Load() {
			p.drainPending()
			p.emptyRequested.Store(false)
			continue
		}

		select {
		case <-p.quit:
			return
		case pr := <-p.pending:
			p.loading.Add(1)
			p.fulfill(pr)
			p.loading.Add(-1)
		case <-time.After(workerWake):
		}
	}
}

func (p *FilePool) drainPending() {
	for {
		select {
		case pr := <-p.pending:
			pr.Release()
		default:
			return
		}
	}
}

// fulfill decodes the promise's file unless the voice already abandoned it,
// then hands the promise back to the audio thread through the filled queue.
func (p *FilePool) fulfill(pr *Promise) {
	if pr.RefCount() != 1 {
		buf, _, err := p.loadFile(pr.filename, 0)
		if err != nil {
			p.logger.Warn("background load failed", "file", pr.filename, "err", err)
		} else {
			pr.fileData = buf
			pr.dataReady.Store(true)
		}
	}

	for {
		select {
		case p.filled <- pr:
			return
		default:
		}

		select {
		case <-p.quit:
			return
		default:
		}

		p.logger.Warn("filled promise queue full, retrying", "file", pr.filename)
		time.Sleep(time.Millisecond)
	}
}
