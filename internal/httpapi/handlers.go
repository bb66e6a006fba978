package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/DoyleJ11/lol-draft-rooms/internal/catalog"
	"github.com/DoyleJ11/lol-draft-rooms/internal/hub"
	"github.com/DoyleJ11/lol-draft-rooms/internal/types"
)

// ListRooms serves the same directory that roomList carries.
func ListRooms(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply := make(chan []types.RoomSummary, 1)
		if !h.Send(hub.ListRooms{Reply: reply}) {
			http.Error(w, "shutting down", http.StatusServiceUnavailable)
			return
		}

		var rooms []types.RoomSummary
		select {
		case rooms = <-reply:
		case <-h.Done():
			http.Error(w, "shutting down", http.StatusServiceUnavailable)
			return
		case <-r.Context().Done():
			return
		}
		if rooms == nil {
			rooms = []types.RoomSummary{}
		}
		writeJSON(w, http.StatusOK, rooms)
	}
}

func ListChampions(cat *catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, cat.Snapshot())
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
