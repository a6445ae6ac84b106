package manager

import (
	"github.com/go-kit/kit/metrics"

	"github.com/numbleroot/bintree/message"
)

type metricsService struct {
	service  Service
	inserts  metrics.Counter
	contains metrics.Counter
	removes  metrics.Counter
	epochs   metrics.Counter
}

// NewMetricsService wraps a provided existing service
// with counters for the operations it performs.
func NewMetricsService(s Service, inserts metrics.Counter, contains metrics.Counter, removes metrics.Counter, epochs metrics.Counter) Service {
	return &metricsService{
		service:  s,
		inserts:  inserts,
		contains: contains,
		removes:  removes,
		epochs:   epochs,
	}
}

func (s *metricsService) Run() error {
	return s.service.Run()
}

func (s *metricsService) Inbox() chan<- message.Message {
	return s.service.Inbox()
}

func (s *metricsService) Insert(elem int64) {

	s.service.Insert(elem)

	s.inserts.Add(1)
}

func (s *metricsService) Contains(elem int64) bool {

	found := s.service.Contains(elem)

	s.contains.Add(1)

	return found
}

func (s *metricsService) Remove(elem int64) {

	s.service.Remove(elem)

	s.removes.Add(1)
}

func (s *metricsService) GC() {

	s.service.GC()

	s.epochs.Add(1)
}
