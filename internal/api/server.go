// Package api exposes the configuration documents over a small REST
// surface. Every mutation goes through the persist layer, so validation
// and atomic rewrite semantics are identical for HTTP edits and internal
// writers.
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Gabweb/climate-schedule/internal/model"
	"github.com/Gabweb/climate-schedule/internal/persist"
	"github.com/Gabweb/climate-schedule/internal/schedule"
	"github.com/Gabweb/climate-schedule/internal/scheduler"
	"github.com/Gabweb/climate-schedule/internal/temperature"
)

// DiscoverySink receives room lifecycle events so the smart-home bus can
// track configuration edits. All methods are fire-and-forget.
type DiscoverySink interface {
	PublishDiscovery(room model.RoomConfig)
	RemoveDiscovery(room model.RoomConfig)
	PublishRoomState(room model.RoomConfig, targetC float64, currentTemp *float64)
}

type Options struct {
	Store *persist.Store
	Sink  DiscoverySink // optional

	Location    *time.Location
	StepMinutes int

	// StartupSuccessful reports whether device validation at boot passed.
	StartupSuccessful bool

	// Now is a test seam; defaults to time.Now.
	Now func() time.Time
}

type Server struct {
	store     *persist.Store
	sink      DiscoverySink
	loc       *time.Location
	step      int
	startupOK bool
	now       func() time.Time
}

func NewServer(opts Options) *Server {
	loc := opts.Location
	if loc == nil {
		loc, _ = time.LoadLocation(scheduler.DefaultTimeZone)
		if loc == nil {
			loc = time.UTC
		}
	}
	step := opts.StepMinutes
	if step <= 0 {
		step = schedule.DefaultStepMinutes
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Server{
		store:     opts.Store,
		sink:      opts.Sink,
		loc:       loc,
		step:      step,
		startupOK: opts.StartupSuccessful,
		now:       now,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	api := router.Group("/api")
	{
		api.GET("/rooms", s.listRooms)
		api.PUT("/rooms", s.replaceRooms)
		api.POST("/rooms", s.createRoom)
		api.PUT("/rooms/:roomKey", s.replaceRoom)
		api.DELETE("/rooms/:roomKey", s.deleteRoom)
		api.PATCH("/rooms/:roomKey/active-mode", s.setRoomActiveMode)
		api.POST("/rooms/:roomKey/modes", s.createRoomMode)
		api.DELETE("/rooms/:roomKey/modes/:modeName", s.deleteRoomMode)
		api.PUT("/rooms/:roomKey/modes/:modeName/schedule", s.replaceRoomModeSchedule)

		api.GET("/water-heater", s.getWaterHeater)
		api.PUT("/water-heater", s.replaceWaterHeater)
		api.PATCH("/water-heater/active-mode", s.setWaterHeaterActiveMode)
		api.POST("/water-heater/modes", s.createWaterHeaterMode)
		api.DELETE("/water-heater/modes/:modeName", s.deleteWaterHeaterMode)
		api.PUT("/water-heater/modes/:modeName/schedule", s.replaceWaterHeaterModeSchedule)

		api.GET("/settings", s.getSettings)
		api.PUT("/settings", s.replaceSettings)

		api.GET("/status", s.getStatus)
	}

	return router
}

// Start serves the API on the given port and blocks.
func (s *Server) Start(port int) error {
	return s.Router().Run(fmt.Sprintf(":%d", port))
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func (s *Server) getSettings(c *gin.Context) {
	settings, err := s.store.LoadSettings()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (s *Server) replaceSettings(c *gin.Context) {
	var payload struct {
		HolidayModeEnabled bool `json:"holidayModeEnabled"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format"})
		return
	}

	settings, err := s.store.LoadSettings()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	settings.HolidayModeEnabled = payload.HolidayModeEnabled
	if err := s.store.SaveSettings(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	log.Info().Bool("holiday_mode", settings.HolidayModeEnabled).Msg("Settings updated")
	c.JSON(http.StatusOK, settings)
}

// getStatus reports the runtime state plus each room's currently resolved
// target, which makes the endpoint useful as a one-call health view.
func (s *Server) getStatus(c *gin.Context) {
	nowMinute := schedule.MinuteOfDayInZone(s.now(), s.loc)
	status := gin.H{
		"startupSuccessful": s.startupOK,
		"time":              schedule.MinutesToTime(nowMinute),
	}

	roomsFile, roomsErr := s.store.LoadRooms()
	settings, settingsErr := s.store.LoadSettings()
	if roomsErr == nil && settingsErr == nil {
		rooms := make([]gin.H, 0, len(roomsFile.Rooms))
		for _, room := range roomsFile.Rooms {
			entry := gin.H{"key": room.Key(), "activeMode": room.ActiveModeName}
			if targetC, err := resolveRoomTarget(room, settings, nowMinute); err != nil {
				entry["error"] = err.Error()
			} else {
				entry["targetC"] = targetC
			}
			rooms = append(rooms, entry)
		}
		status["rooms"] = rooms
		status["holidayModeEnabled"] = settings.HolidayModeEnabled
	}

	c.JSON(http.StatusOK, status)
}

func resolveRoomTarget(room model.RoomConfig, settings model.GlobalSettings, nowMinute int) (float64, error) {
	mode, ok := room.ActiveMode()
	if !ok {
		return 0, fmt.Errorf("active mode %q not found", room.ActiveModeName)
	}
	idx, err := schedule.FindBlockAtMinute(mode.Schedule, nowMinute)
	if err != nil {
		return 0, err
	}
	if idx < 0 {
		return 0, fmt.Errorf("no schedule block covers minute %d", nowMinute)
	}
	return temperature.ApplyGlobalSettings(mode.Schedule[idx].TargetC, settings), nil
}

// publishRoomState mirrors a freshly edited room to the bus. Best effort:
// a missing sink or an unresolvable schedule never fails the HTTP request.
func (s *Server) publishRoomState(room model.RoomConfig) {
	if s.sink == nil {
		return
	}
	settings, err := s.store.LoadSettings()
	if err != nil {
		log.Warn().Err(err).Str("room", room.Key()).Msg("Skipping state publish, settings unavailable")
		return
	}
	nowMinute := schedule.MinuteOfDayInZone(s.now(), s.loc)
	targetC, err := resolveRoomTarget(room, settings, nowMinute)
	if err != nil {
		log.Warn().Err(err).Str("room", room.Key()).Msg("Skipping state publish, target unresolved")
		return
	}
	s.sink.PublishRoomState(room, targetC, nil)
}
