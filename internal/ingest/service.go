// Package ingest runs the per-camera capture, sampling and publication
// pipeline of the stream ingestor.
package ingest

import (
	"log"
	"sort"
	"sync"

	"github.com/trinetra-retail/trinetra/internal/config"
	"github.com/trinetra-retail/trinetra/internal/framebus"
)

// defaultCaptureFPS seeds the sampler baseline; retail RTSP cameras
// deliver 30fps and the adaptive interval corrects any mismatch at runtime.
const defaultCaptureFPS = 30

// Service owns one reader and one publisher pair per configured camera.
type Service struct {
	bus     *framebus.Bus
	cameras []config.Camera

	stop chan struct{}
	wg   sync.WaitGroup

	mu    sync.Mutex
	tasks map[string]bool
}

func NewService(bus *framebus.Bus, cameras []config.Camera) *Service {
	return &Service{
		bus:     bus,
		cameras: cameras,
		stop:    make(chan struct{}),
		tasks:   make(map[string]bool),
	}
}

// Start spawns the per-camera goroutine pairs and returns immediately.
func (s *Service) Start() {
	log.Printf("[Ingestor] Starting ingestion for %d cameras", len(s.cameras))

	for _, cam := range s.cameras {
		queue := make(chan queuedFrame, queueCapacity)
		sampler := NewSampler(defaultCaptureFPS, cam.TargetFPS)

		reader := NewReader(cam, queue, s.stop)
		publisher := NewPublisher(cam, s.bus, queue, sampler, s.stop)

		s.spawn("reader-"+cam.ID, reader.Run)
		s.spawn("publisher-"+cam.ID, publisher.Run)
	}
}

func (s *Service) spawn(name string, run func()) {
	s.mu.Lock()
	s.tasks[name] = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			s.tasks[name] = false
			s.mu.Unlock()
		}()
		run()
	}()
}

// Stop signals every task and waits for readers to close their captures
// and publishers to drain their queues.
func (s *Service) Stop() {
	close(s.stop)
	s.wg.Wait()
	log.Printf("[Ingestor] All camera tasks stopped")
}

// ActiveTasks lists the names of currently running camera tasks,
// served by GET /cameras.
func (s *Service) ActiveTasks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var names []string
	for name, running := range s.tasks {
		if running {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
