package persist

import (
	"github.com/Gabweb/climate-schedule/internal/model"
	"github.com/Gabweb/climate-schedule/internal/validate"
)

const CurrentRoomsVersion = 1

// DefaultScheduleBlocks is the schedule every newly created mode starts with.
var DefaultScheduleBlocks = []model.ScheduleBlock{
	{Start: "00:00", End: "08:00", TargetC: 19},
	{Start: "08:00", End: "20:00", TargetC: 20},
	{Start: "20:00", End: "23:59", TargetC: 19},
}

const DefaultModeName = "Default"

func NewMode(name string) model.RoomMode {
	blocks := make([]model.ScheduleBlock, len(DefaultScheduleBlocks))
	copy(blocks, DefaultScheduleBlocks)
	return model.RoomMode{Name: name, Schedule: blocks}
}

// NewRoom builds a room with the default mode active.
func NewRoom(name string, floor model.FloorLevel, entities []model.ClimateEntity) model.RoomConfig {
	mode := NewMode(DefaultModeName)
	return model.RoomConfig{
		Name:           name,
		Floor:          floor,
		Entities:       entities,
		Modes:          []model.RoomMode{mode},
		ActiveModeName: mode.Name,
	}
}

func DefaultRoomsFile() model.RoomsFile {
	return model.RoomsFile{
		Version:   CurrentRoomsVersion,
		Rooms:     []model.RoomConfig{},
		UpdatedAt: nowTimestamp(),
	}
}

var roomsMigrator = migrator{
	kind:    "rooms",
	current: CurrentRoomsVersion,
	steps:   map[int]MigrationStep{},
	looksLikeV1: func(doc map[string]any) bool {
		_, ok := doc["rooms"].([]any)
		return ok
	},
}

// LoadRooms reads the rooms document, creating the default on first access
// and migrating and re-persisting older schema versions.
func (s *Store) LoadRooms() (model.RoomsFile, error) {
	raw, found, err := s.readRaw(roomsFileName)
	if err != nil {
		return model.RoomsFile{}, err
	}
	if !found {
		doc := DefaultRoomsFile()
		if err := s.SaveRooms(&doc); err != nil {
			return model.RoomsFile{}, err
		}
		return doc, nil
	}

	migrated, changed, err := roomsMigrator.migrate(raw)
	if err != nil {
		return model.RoomsFile{}, err
	}
	var doc model.RoomsFile
	if err := decodeInto(migrated, &doc); err != nil {
		return model.RoomsFile{}, err
	}
	if err := validate.RoomsFile(&doc, s.stepMinutes); err != nil {
		return model.RoomsFile{}, err
	}
	if changed {
		if err := s.SaveRooms(&doc); err != nil {
			return model.RoomsFile{}, err
		}
	}
	return doc, nil
}

// SaveRooms validates and rewrites the whole document with a fresh
// updatedAt. The document on disk is never partially written.
func (s *Store) SaveRooms(doc *model.RoomsFile) error {
	if doc.Version == 0 {
		doc.Version = CurrentRoomsVersion
	}
	if err := validate.RoomsFile(doc, s.stepMinutes); err != nil {
		return err
	}
	doc.UpdatedAt = nowTimestamp()
	return s.writeJSON(roomsFileName, doc)
}
