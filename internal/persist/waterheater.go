package persist

import (
	"fmt"

	"github.com/Gabweb/climate-schedule/internal/model"
	"github.com/Gabweb/climate-schedule/internal/schedule"
	"github.com/Gabweb/climate-schedule/internal/validate"
	"github.com/Gabweb/climate-schedule/internal/waterheater"
)

const CurrentWaterHeaterVersion = 2

// enabledThresholdC decides how a v1 numeric block target maps onto the v2
// boolean flag: targets at or above the heater minimum meant "on".
const enabledThresholdC = waterheater.MinTemperatureC

// NewWaterHeaterMode builds a mode that keeps the heater off all day.
func NewWaterHeaterMode(name string) model.WaterHeaterMode {
	return model.WaterHeaterMode{
		Name: name,
		Schedule: []model.WaterHeaterScheduleBlock{
			{Start: schedule.StartOfDay, End: schedule.EndOfDay, Enabled: false},
		},
	}
}

func DefaultWaterHeaterConfig() model.WaterHeaterConfig {
	return model.WaterHeaterConfig{
		Version:             CurrentWaterHeaterVersion,
		EntityID:            "",
		HeatingTemperatureC: waterheater.DefaultTemperatureC,
		ActiveModeName:      DefaultModeName,
		Modes:               []model.WaterHeaterMode{NewWaterHeaterMode(DefaultModeName)},
		UpdatedAt:           nowTimestamp(),
	}
}

// migrateWaterHeaterV1 converts the v1 numeric-target schema: each block's
// targetC becomes enabled (>= 30 meant on), and the new top-level
// heatingTemperatureC is introduced at its default.
func migrateWaterHeaterV1(doc map[string]any) (map[string]any, error) {
	modes, ok := doc["modes"].([]any)
	if !ok {
		return nil, fmt.Errorf("modes must be an array")
	}
	for m, rawMode := range modes {
		mode, ok := rawMode.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("modes[%d] must be an object", m)
		}
		blocks, ok := mode["schedule"].([]any)
		if !ok {
			return nil, fmt.Errorf("modes[%d].schedule must be an array", m)
		}
		for b, rawBlock := range blocks {
			block, ok := rawBlock.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("modes[%d].schedule[%d] must be an object", m, b)
			}
			targetC, ok := block["targetC"].(float64)
			if !ok {
				return nil, fmt.Errorf("modes[%d].schedule[%d].targetC must be a number", m, b)
			}
			block["enabled"] = targetC >= enabledThresholdC
			delete(block, "targetC")
		}
	}
	doc["heatingTemperatureC"] = waterheater.DefaultTemperatureC
	return doc, nil
}

var waterHeaterMigrator = migrator{
	kind:    "water heater",
	current: CurrentWaterHeaterVersion,
	steps: map[int]MigrationStep{
		1: migrateWaterHeaterV1,
	},
	looksLikeV1: func(doc map[string]any) bool {
		_, ok := doc["modes"].([]any)
		return ok
	},
}

func (s *Store) LoadWaterHeater() (model.WaterHeaterConfig, error) {
	raw, found, err := s.readRaw(waterHeaterFileName)
	if err != nil {
		return model.WaterHeaterConfig{}, err
	}
	if !found {
		doc := DefaultWaterHeaterConfig()
		if err := s.SaveWaterHeater(&doc); err != nil {
			return model.WaterHeaterConfig{}, err
		}
		return doc, nil
	}

	migrated, changed, err := waterHeaterMigrator.migrate(raw)
	if err != nil {
		return model.WaterHeaterConfig{}, err
	}
	var doc model.WaterHeaterConfig
	if err := decodeInto(migrated, &doc); err != nil {
		return model.WaterHeaterConfig{}, err
	}
	if err := validate.WaterHeaterConfig(&doc, s.stepMinutes); err != nil {
		return model.WaterHeaterConfig{}, err
	}
	if changed {
		if err := s.SaveWaterHeater(&doc); err != nil {
			return model.WaterHeaterConfig{}, err
		}
	}
	return doc, nil
}

func (s *Store) SaveWaterHeater(doc *model.WaterHeaterConfig) error {
	if doc.Version == 0 {
		doc.Version = CurrentWaterHeaterVersion
	}
	if err := validate.WaterHeaterConfig(doc, s.stepMinutes); err != nil {
		return err
	}
	doc.UpdatedAt = nowTimestamp()
	return s.writeJSON(waterHeaterFileName, doc)
}
