package interfaces

// SchedulerInterface runs the periodic store maintenance.
type SchedulerInterface interface {
	Init()
	Stop()
	Restore() error
	Persist() error
}
