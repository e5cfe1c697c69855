package controllers

import (
	"aprsd/internal/channel"
	"aprsd/internal/stationdb"
	"fmt"
	"github.com/dustin/go-humanize"
	json "github.com/goccy/go-json"
	"net/http"
	"time"
)

type HealthController struct {
	manager   channel.ManagerInterface
	store     stationdb.StoreInterface
	startTime time.Time
}

type healthResponse struct {
	Status        string            `json:"status"`
	Started       string            `json:"started"`
	Uptime        string            `json:"uptime"`
	UptimeSeconds float64           `json:"uptime_seconds"`
	Stations      int               `json:"stations"`
	Channels      map[string]string `json:"channels"`
}

func (hc *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(hc.startTime)
	resp := healthResponse{
		Status:        "ok",
		Started:       humanize.Time(hc.startTime),
		Uptime:        formatDuration(uptime),
		UptimeSeconds: uptime.Seconds(),
		Stations:      hc.store.Len(),
		Channels:      make(map[string]string),
	}
	active := 0
	for _, s := range hc.manager.Stats() {
		resp.Channels[s.Id] = s.State
		if s.State == channel.StateRunning.String() {
			active++
		}
	}
	if len(resp.Channels) > 0 && active == 0 {
		resp.Status = "degraded"
	}

	gson, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(gson)
}

func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
}

func NewHealthController(manager channel.ManagerInterface, store stationdb.StoreInterface) *HealthController {
	return &HealthController{
		manager:   manager,
		store:     store,
		startTime: time.Now(),
	}
}
