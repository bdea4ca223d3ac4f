package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Gabweb/climate-schedule/internal/model"
	"github.com/Gabweb/climate-schedule/internal/persist"
)

func (s *Server) getWaterHeater(c *gin.Context) {
	doc, err := s.store.LoadWaterHeater()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (s *Server) replaceWaterHeater(c *gin.Context) {
	var doc model.WaterHeaterConfig
	if err := c.ShouldBindJSON(&doc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format"})
		return
	}
	if err := s.store.SaveWaterHeater(&doc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	log.Info().Str("entity_id", doc.EntityID).Msg("Water heater config updated")
	c.JSON(http.StatusOK, doc)
}

func (s *Server) setWaterHeaterActiveMode(c *gin.Context) {
	var payload struct {
		ActiveModeName string `json:"activeModeName"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format"})
		return
	}

	doc, err := s.store.LoadWaterHeater()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if waterHeaterModeIndex(doc.Modes, payload.ActiveModeName) < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("mode %q not found", payload.ActiveModeName)})
		return
	}

	doc.ActiveModeName = payload.ActiveModeName
	if err := s.store.SaveWaterHeater(&doc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	log.Info().Str("mode", payload.ActiveModeName).Msg("Water heater active mode changed")
	c.JSON(http.StatusOK, doc)
}

func (s *Server) createWaterHeaterMode(c *gin.Context) {
	var payload struct {
		Name     string                           `json:"name"`
		Schedule []model.WaterHeaterScheduleBlock `json:"schedule"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format"})
		return
	}
	if payload.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	doc, err := s.store.LoadWaterHeater()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if waterHeaterModeIndex(doc.Modes, payload.Name) >= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("mode %q already exists", payload.Name)})
		return
	}

	mode := persist.NewWaterHeaterMode(payload.Name)
	if len(payload.Schedule) > 0 {
		mode.Schedule = payload.Schedule
	}

	doc.Modes = append(doc.Modes, mode)
	if err := s.store.SaveWaterHeater(&doc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	log.Info().Str("mode", mode.Name).Msg("Water heater mode created")
	c.JSON(http.StatusCreated, mode)
}

func (s *Server) deleteWaterHeaterMode(c *gin.Context) {
	modeName := c.Param("modeName")

	doc, err := s.store.LoadWaterHeater()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(doc.Modes) <= 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot delete the last mode"})
		return
	}
	idx := waterHeaterModeIndex(doc.Modes, modeName)
	if idx < 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("mode %q not found", modeName)})
		return
	}

	doc.Modes = append(doc.Modes[:idx], doc.Modes[idx+1:]...)
	if doc.ActiveModeName == modeName {
		doc.ActiveModeName = doc.Modes[0].Name
	}
	if err := s.store.SaveWaterHeater(&doc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	log.Info().Str("mode", modeName).Msg("Water heater mode deleted")
	c.Status(http.StatusNoContent)
}

func (s *Server) replaceWaterHeaterModeSchedule(c *gin.Context) {
	modeName := c.Param("modeName")

	var blocks []model.WaterHeaterScheduleBlock
	if err := c.ShouldBindJSON(&blocks); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format"})
		return
	}

	doc, err := s.store.LoadWaterHeater()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	idx := waterHeaterModeIndex(doc.Modes, modeName)
	if idx < 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("mode %q not found", modeName)})
		return
	}

	doc.Modes[idx].Schedule = blocks
	if err := s.store.SaveWaterHeater(&doc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	log.Info().Str("mode", modeName).Msg("Water heater schedule updated")
	c.JSON(http.StatusOK, doc.Modes[idx])
}

func waterHeaterModeIndex(modes []model.WaterHeaterMode, name string) int {
	for i, mode := range modes {
		if mode.Name == name {
			return i
		}
	}
	return -1
}
