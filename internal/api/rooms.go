package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Gabweb/climate-schedule/internal/model"
	"github.com/Gabweb/climate-schedule/internal/persist"
)

func (s *Server) listRooms(c *gin.Context) {
	doc, err := s.store.LoadRooms()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, doc)
}

// replaceRooms swaps the entire rooms document in one write. The import
// path for backups and bulk edits.
func (s *Server) replaceRooms(c *gin.Context) {
	var doc model.RoomsFile
	if err := c.ShouldBindJSON(&doc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format"})
		return
	}
	if err := s.store.SaveRooms(&doc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if s.sink != nil {
		for _, room := range doc.Rooms {
			s.sink.PublishDiscovery(room)
		}
	}
	c.JSON(http.StatusOK, doc)
}

func (s *Server) createRoom(c *gin.Context) {
	var payload struct {
		Name     string                `json:"name"`
		Floor    model.FloorLevel      `json:"floor"`
		Entities []model.ClimateEntity `json:"entities"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format"})
		return
	}
	if payload.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	if !payload.Floor.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid floor %q", payload.Floor)})
		return
	}

	doc, err := s.store.LoadRooms()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	room := persist.NewRoom(payload.Name, payload.Floor, payload.Entities)
	for _, existing := range doc.Rooms {
		if existing.Key() == room.Key() {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("room %q already exists", room.Key())})
			return
		}
	}

	doc.Rooms = append(doc.Rooms, room)
	if err := s.store.SaveRooms(&doc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if s.sink != nil {
		s.sink.PublishDiscovery(room)
	}
	log.Info().Str("room", room.Key()).Msg("Room created")
	c.JSON(http.StatusCreated, room)
}

func (s *Server) replaceRoom(c *gin.Context) {
	roomKey := c.Param("roomKey")

	var updated model.RoomConfig
	if err := c.ShouldBindJSON(&updated); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format"})
		return
	}

	doc, err := s.store.LoadRooms()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	idx := roomIndex(doc.Rooms, roomKey)
	if idx < 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("room %q not found", roomKey)})
		return
	}
	previous := doc.Rooms[idx]

	// Renaming a room changes its key; the new key must stay unique.
	if updated.Key() != roomKey {
		for i, existing := range doc.Rooms {
			if i != idx && existing.Key() == updated.Key() {
				c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("room %q already exists", updated.Key())})
				return
			}
		}
	}

	doc.Rooms[idx] = updated
	if err := s.store.SaveRooms(&doc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if s.sink != nil {
		if updated.Key() != previous.Key() {
			s.sink.RemoveDiscovery(previous)
		}
		s.sink.PublishDiscovery(updated)
	}
	s.publishRoomState(updated)
	log.Info().Str("room", updated.Key()).Msg("Room updated")
	c.JSON(http.StatusOK, updated)
}

func (s *Server) deleteRoom(c *gin.Context) {
	roomKey := c.Param("roomKey")

	doc, err := s.store.LoadRooms()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	idx := roomIndex(doc.Rooms, roomKey)
	if idx < 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("room %q not found", roomKey)})
		return
	}
	removed := doc.Rooms[idx]

	doc.Rooms = append(doc.Rooms[:idx], doc.Rooms[idx+1:]...)
	if err := s.store.SaveRooms(&doc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if s.sink != nil {
		s.sink.RemoveDiscovery(removed)
	}
	log.Info().Str("room", removed.Key()).Msg("Room deleted")
	c.Status(http.StatusNoContent)
}

func (s *Server) setRoomActiveMode(c *gin.Context) {
	roomKey := c.Param("roomKey")

	var payload struct {
		ActiveModeName string `json:"activeModeName"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format"})
		return
	}

	doc, err := s.store.LoadRooms()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	idx := roomIndex(doc.Rooms, roomKey)
	if idx < 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("room %q not found", roomKey)})
		return
	}
	if modeIndex(doc.Rooms[idx].Modes, payload.ActiveModeName) < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("mode %q not found", payload.ActiveModeName)})
		return
	}

	doc.Rooms[idx].ActiveModeName = payload.ActiveModeName
	if err := s.store.SaveRooms(&doc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.publishRoomState(doc.Rooms[idx])
	log.Info().Str("room", roomKey).Str("mode", payload.ActiveModeName).Msg("Active mode changed")
	c.JSON(http.StatusOK, doc.Rooms[idx])
}

func (s *Server) createRoomMode(c *gin.Context) {
	roomKey := c.Param("roomKey")

	var payload struct {
		Name     string                `json:"name"`
		Schedule []model.ScheduleBlock `json:"schedule"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format"})
		return
	}
	if payload.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	doc, err := s.store.LoadRooms()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	idx := roomIndex(doc.Rooms, roomKey)
	if idx < 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("room %q not found", roomKey)})
		return
	}
	if modeIndex(doc.Rooms[idx].Modes, payload.Name) >= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("mode %q already exists", payload.Name)})
		return
	}

	mode := persist.NewMode(payload.Name)
	if len(payload.Schedule) > 0 {
		mode.Schedule = payload.Schedule
	}

	doc.Rooms[idx].Modes = append(doc.Rooms[idx].Modes, mode)
	if err := s.store.SaveRooms(&doc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if s.sink != nil {
		// The preset list changed; re-announce so the bus offers the new mode.
		s.sink.PublishDiscovery(doc.Rooms[idx])
	}
	log.Info().Str("room", roomKey).Str("mode", mode.Name).Msg("Room mode created")
	c.JSON(http.StatusCreated, mode)
}

func (s *Server) deleteRoomMode(c *gin.Context) {
	roomKey := c.Param("roomKey")
	modeName := c.Param("modeName")

	doc, err := s.store.LoadRooms()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	idx := roomIndex(doc.Rooms, roomKey)
	if idx < 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("room %q not found", roomKey)})
		return
	}
	room := &doc.Rooms[idx]

	if len(room.Modes) <= 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot delete the last mode"})
		return
	}
	mIdx := modeIndex(room.Modes, modeName)
	if mIdx < 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("mode %q not found", modeName)})
		return
	}

	room.Modes = append(room.Modes[:mIdx], room.Modes[mIdx+1:]...)
	if room.ActiveModeName == modeName {
		room.ActiveModeName = room.Modes[0].Name
	}
	if err := s.store.SaveRooms(&doc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if s.sink != nil {
		s.sink.PublishDiscovery(*room)
	}
	s.publishRoomState(*room)
	log.Info().Str("room", roomKey).Str("mode", modeName).Msg("Room mode deleted")
	c.Status(http.StatusNoContent)
}

func (s *Server) replaceRoomModeSchedule(c *gin.Context) {
	roomKey := c.Param("roomKey")
	modeName := c.Param("modeName")

	var blocks []model.ScheduleBlock
	if err := c.ShouldBindJSON(&blocks); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format"})
		return
	}

	doc, err := s.store.LoadRooms()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	idx := roomIndex(doc.Rooms, roomKey)
	if idx < 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("room %q not found", roomKey)})
		return
	}
	mIdx := modeIndex(doc.Rooms[idx].Modes, modeName)
	if mIdx < 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("mode %q not found", modeName)})
		return
	}

	doc.Rooms[idx].Modes[mIdx].Schedule = blocks
	if err := s.store.SaveRooms(&doc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if doc.Rooms[idx].ActiveModeName == modeName {
		s.publishRoomState(doc.Rooms[idx])
	}
	log.Info().Str("room", roomKey).Str("mode", modeName).Msg("Room schedule updated")
	c.JSON(http.StatusOK, doc.Rooms[idx].Modes[mIdx])
}

func roomIndex(rooms []model.RoomConfig, key string) int {
	for i, room := range rooms {
		if room.Key() == key {
			return i
		}
	}
	return -1
}

func modeIndex(modes []model.RoomMode, name string) int {
	for i, mode := range modes {
		if mode.Name == name {
			return i
		}
	}
	return -1
}
