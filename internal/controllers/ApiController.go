package controllers

import (
	"aprsd/internal/channel"
	"aprsd/internal/models"
	"aprsd/internal/providers"
	"aprsd/internal/services"
	"aprsd/internal/stationdb"
	"context"
	"errors"
	"fmt"
	json "github.com/goccy/go-json"
	"github.com/spf13/cast"
	"net/http"
	"strings"
	"time"
)

const maxRequestBodySize = 1 << 20 // 1 MB

type ApiController struct {
	logger  providers.Logger
	manager channel.ManagerInterface
	store   stationdb.StoreInterface
	msgs    services.MessageProcessorInterface
	cache   providers.CacheProviderInterface
}

func NewApiController(logger providers.Logger, manager channel.ManagerInterface, store stationdb.StoreInterface, msgs services.MessageProcessorInterface, cache providers.CacheProviderInterface) *ApiController {
	return &ApiController{
		logger:  logger,
		manager: manager,
		store:   store,
		msgs:    msgs,
		cache:   cache,
	}
}

var errNotFound = errors.New("not found")

type badRequest struct {
	msg string
}

func (e *badRequest) Error() string { return e.msg }

func writeJSON(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (ac *ApiController) serveFromCacheOrCompute(w http.ResponseWriter, cacheKey string, compute func() (any, error)) {
	if data, ok := ac.cache.Get(cacheKey); ok {
		writeJSON(w, data)
		return
	}

	result, err := compute()
	if err != nil {
		var br *badRequest
		switch {
		case errors.As(err, &br):
			http.Error(w, br.msg, http.StatusBadRequest)
		case errors.Is(err, errNotFound):
			http.Error(w, "Not Found", http.StatusNotFound)
		default:
			ac.logger.Errorf(providers.TypeApp, "Request failed: %s", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
		return
	}

	gson, err := json.Marshal(result)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	ac.cache.Set(cacheKey, gson)
	writeJSON(w, gson)
}

func snapshots(points []models.AprsPoint) []models.PointRecord {
	out := make([]models.PointRecord, 0, len(points))
	for _, p := range points {
		out = append(out, p.Snapshot())
	}
	return out
}

func (ac *ApiController) GetChannels(w http.ResponseWriter, r *http.Request) {
	ac.serveFromCacheOrCompute(w, "channels", func() (any, error) {
		return ac.manager.Stats(), nil
	})
}

// RestartChannel closes a channel and starts it again with a fresh retry
// budget.
func (ac *ApiController) RestartChannel(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if ac.manager.Get(id) == nil {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	if err := ac.manager.Restart(context.WithoutCancel(r.Context()), id); err != nil {
		ac.logger.Errorf(providers.TypeApp, "Restart of channel %s failed: %s", id, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	ac.logger.Infof(providers.TypeApp, "Channel %s restarted", id)
	w.WriteHeader(http.StatusAccepted)
}

// parseBox reads "lat1,lon1,lat2,lon2" (upper left, lower right) into UTM
// corners in the zone of the upper left corner.
func parseBox(s string) (*models.UTMRef, *models.UTMRef, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, nil, &badRequest{msg: "box needs four coordinates"}
	}
	var v [4]float64
	for i, p := range parts {
		f, err := cast.ToFloat64E(strings.TrimSpace(p))
		if err != nil {
			return nil, nil, &badRequest{msg: fmt.Sprintf("invalid coordinate %q", p)}
		}
		v[i] = f
	}
	uleft, err := models.ToUTM(models.LatLng{Lat: v[0], Lon: v[1]}, 0)
	if err != nil {
		return nil, nil, &badRequest{msg: err.Error()}
	}
	lright, err := models.ToUTM(models.LatLng{Lat: v[2], Lon: v[3]}, uleft.Zone)
	if err != nil {
		return nil, nil, &badRequest{msg: err.Error()}
	}
	return &uleft, &lright, nil
}

// SearchStations answers ?q= (wildcard or REG: pattern), ?prefix= and
// ?box=lat1,lon1,lat2,lon2.
func (ac *ApiController) SearchStations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ac.serveFromCacheOrCompute(w, "stations:"+q.Encode(), func() (any, error) {
		switch {
		case q.Has("q"):
			points, err := ac.store.SearchPattern(q.Get("q"))
			if err != nil {
				return nil, &badRequest{msg: err.Error()}
			}
			return snapshots(points), nil
		case q.Has("prefix"):
			return snapshots(ac.store.SearchPrefix(q.Get("prefix"))), nil
		case q.Has("box"):
			uleft, lright, err := parseBox(q.Get("box"))
			if err != nil {
				return nil, err
			}
			return snapshots(ac.store.SearchBox(uleft, lright)), nil
		default:
			return nil, &badRequest{msg: "one of q, prefix or box is required"}
		}
	})
}

// GetStation returns one point, optionally as it was at time ?at= (RFC 3339).
func (ac *ApiController) GetStation(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id := q.Get("id")
	key := "station:" + id
	if q.Has("at") {
		key += "?at=" + q.Get("at")
	}
	ac.serveFromCacheOrCompute(w, key, func() (any, error) {
		var at time.Time
		if s := q.Get("at"); s != "" {
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				return nil, &badRequest{msg: "invalid time " + s}
			}
			at = t
		}
		p := ac.store.GetAt(id, at)
		if p == nil {
			return nil, errNotFound
		}
		return p.Snapshot(), nil
	})
}

func (ac *ApiController) GetMessages(w http.ResponseWriter, r *http.Request) {
	ac.serveFromCacheOrCompute(w, "messages", func() (any, error) {
		return ac.msgs.Inbox(), nil
	})
}

func (ac *ApiController) ListObjects(w http.ResponseWriter, r *http.Request) {
	ac.serveFromCacheOrCompute(w, "objects", func() (any, error) {
		return ac.store.OwnObjects().List(), nil
	})
}

// objectChanged drops cached answers that mention the own object id.
func (ac *ApiController) objectChanged(id string) {
	ac.cache.Del("objects")
	ac.cache.Del("station:" + id)
}

// AddObject announces an own object posted as JSON.
func (ac *ApiController) AddObject(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var spec models.ObjectSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	spec.Name = strings.TrimSpace(spec.Name)
	if spec.Name == "" || len(spec.Name) > 9 {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	o := ac.store.AddOwnObject(spec)
	ac.objectChanged(o.Ident())
	ac.logger.Infof(providers.TypeApp, "Own object added: %s", o.Ident())
	w.WriteHeader(http.StatusCreated)
}

func (ac *ApiController) DeleteObject(w http.ResponseWriter, r *http.Request) {
	id := models.ObjectIdent(r.URL.Query().Get("name"), ac.store.OwnCall())
	if ac.store.Get(id) == nil {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	ac.store.Remove(id)
	ac.objectChanged(id)
	ac.logger.Infof(providers.TypeApp, "Own object removed: %s", id)
	w.WriteHeader(http.StatusNoContent)
}
