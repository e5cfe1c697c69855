package services

import (
	"aprsd/internal/models"
	"fmt"
	"sync"
)

// OwnObjects is the registry of objects announced by this server, kept in
// the order they were added.
type OwnObjects struct {
	mu      sync.Mutex
	specs   []models.ObjectSpec
	changed bool
}

func NewOwnObjects() *OwnObjects {
	return &OwnObjects{}
}

func (o *OwnObjects) index(name string) int {
	for i, s := range o.specs {
		if s.Name == name {
			return i
		}
	}
	return -1
}

// Add registers spec, replacing an object with the same name.
func (o *OwnObjects) Add(spec models.ObjectSpec) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if i := o.index(spec.Name); i >= 0 {
		o.specs[i] = spec
	} else {
		o.specs = append(o.specs, spec)
	}
	o.changed = true
}

func (o *OwnObjects) Delete(name string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	i := o.index(name)
	if i < 0 {
		return false
	}
	o.specs = append(o.specs[:i], o.specs[i+1:]...)
	o.changed = true
	return true
}

func (o *OwnObjects) List() []models.ObjectSpec {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]models.ObjectSpec, len(o.specs))
	copy(out, o.specs)
	return out
}

func (o *OwnObjects) Changed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.changed
}

func (o *OwnObjects) Save(w *models.RecordWriter) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	specs := o.specs
	if specs == nil {
		specs = []models.ObjectSpec{}
	}
	if err := w.Write(models.RecordOwnObjects, specs); err != nil {
		return err
	}
	o.changed = false
	return nil
}

func (o *OwnObjects) Restore(r *models.RecordReader) (func(), error) {
	var specs []models.ObjectSpec
	if err := r.Expect(models.RecordOwnObjects, &specs); err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(specs))
	for _, s := range specs {
		if s.Name == "" || seen[s.Name] {
			return nil, fmt.Errorf("invalid own object %q", s.Name)
		}
		seen[s.Name] = true
	}
	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		o.specs = specs
		o.changed = false
	}, nil
}
