package stationdb

import (
	"aprsd/internal/providers"
	"aprsd/internal/stationdb/interfaces"
	"aprsd/internal/structures"
	"errors"
	"github.com/roylee0704/gron"
	"sync"
	"time"
)

type Scheduler struct {
	config *structures.Config
	logger providers.Logger
	store  StoreInterface
	cron   *gron.Cron
	opsMu  sync.Mutex
	now    func() time.Time
}

func (s *Scheduler) Init() {
	s.cron = gron.New()

	s.cron.AddFunc(gron.Every(s.config.Persistence.CheckInterval), func() {
		s.opsMu.Lock()
		defer s.opsMu.Unlock()

		if s.store.CheckMoving() {
			s.logger.Debugf(providers.TypeStore, "Points moved since last check")
		}
	})

	s.cron.AddFunc(gron.Every(s.config.Persistence.GcInterval), func() {
		s.opsMu.Lock()
		defer s.opsMu.Unlock()

		s.store.GarbageCollect(s.now())
		if err := s.store.Checkpoint(); err != nil {
			s.logger.Errorf(providers.TypeStore, "Error while persisting data: %s", err)
		}
	})

	s.cron.Start()
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// Restore loads the last checkpoint. A corrupt checkpoint is logged by the
// store and leaves it empty, which is not fatal.
func (s *Scheduler) Restore() error {
	s.opsMu.Lock()
	defer s.opsMu.Unlock()

	err := s.store.Restore()
	if errors.Is(err, ErrCorruptSnapshot) {
		return nil
	}
	return err
}

func (s *Scheduler) Persist() error {
	s.opsMu.Lock()
	defer s.opsMu.Unlock()

	s.logger.Infof(providers.TypeStore, "Persisting stations to file...")
	err := s.store.Checkpoint()
	if err != nil {
		s.logger.Errorf(providers.TypeStore, "Error while persisting data: %s", err)
		return err
	}
	return nil
}

func NewScheduler(config *structures.Config, logger providers.Logger, store StoreInterface) interfaces.SchedulerInterface {
	return &Scheduler{
		config: config,
		logger: logger,
		store:  store,
		now:    time.Now,
	}
}
