package interfaces

import (
	"aprsd/internal/models"
	"time"
)

// Persistable is state saved in the same checkpoint stream as the store.
// Restore decodes its records and returns a commit function that installs
// the decoded state; nothing changes until commit is called.
type Persistable interface {
	Changed() bool
	Save(w *models.RecordWriter) error
	Restore(r *models.RecordReader) (commit func(), err error)
}

type MessageProcessorInterface interface {
	Persistable
}

// OwnObjectsInterface is the registry of objects announced by this server.
type OwnObjectsInterface interface {
	Persistable
	Add(spec models.ObjectSpec)
	Delete(name string) bool
	List() []models.ObjectSpec
}

// HistoryInterface answers point in time queries.
type HistoryInterface interface {
	Record(p models.AprsPoint) error
	ItemAt(id string, t time.Time) (models.AprsPoint, error)
	Prune(before time.Time) (int64, error)
}
