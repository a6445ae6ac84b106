package manager

import (
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"

	"github.com/numbleroot/bintree/message"
)

type loggingService struct {
	logger  log.Logger
	service Service
}

// NewLoggingService wraps a provided existing
// service with the provided logger.
func NewLoggingService(s Service, logger log.Logger) Service {
	return &loggingService{logger, s}
}

// Run wraps this service's Run method
// with added logging capabilities.
func (s *loggingService) Run() error {

	err := s.service.Run()

	level.Warn(s.logger).Log(
		"msg", "manager loop returned",
		"err", err,
	)

	return err
}

func (s *loggingService) Inbox() chan<- message.Message {
	return s.service.Inbox()
}

// Insert wraps this service's Insert method
// with added logging capabilities.
func (s *loggingService) Insert(elem int64) {

	s.service.Insert(elem)

	level.Debug(s.logger).Log(
		"method", "INSERT",
		"elem", elem,
	)
}

// Contains wraps this service's Contains method
// with added logging capabilities.
func (s *loggingService) Contains(elem int64) bool {

	found := s.service.Contains(elem)

	level.Debug(s.logger).Log(
		"method", "CONTAINS",
		"elem", elem,
		"found", found,
	)

	return found
}

// Remove wraps this service's Remove method
// with added logging capabilities.
func (s *loggingService) Remove(elem int64) {

	s.service.Remove(elem)

	level.Debug(s.logger).Log(
		"method", "REMOVE",
		"elem", elem,
	)
}

// GC wraps this service's GC method
// with added logging capabilities.
func (s *loggingService) GC() {

	s.service.GC()

	level.Info(s.logger).Log(
		"method", "GC",
		"msg", "compaction epoch requested",
	)
}
