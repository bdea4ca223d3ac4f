package persist

import (
	"github.com/Gabweb/climate-schedule/internal/model"
	"github.com/Gabweb/climate-schedule/internal/validate"
)

const CurrentSettingsVersion = 1

func DefaultSettings() model.GlobalSettings {
	return model.GlobalSettings{
		Version:            CurrentSettingsVersion,
		HolidayModeEnabled: false,
		UpdatedAt:          nowTimestamp(),
	}
}

var settingsMigrator = migrator{
	kind:    "settings",
	current: CurrentSettingsVersion,
	steps:   map[int]MigrationStep{},
	looksLikeV1: func(doc map[string]any) bool {
		_, ok := doc["holidayModeEnabled"].(bool)
		return ok
	},
}

func (s *Store) LoadSettings() (model.GlobalSettings, error) {
	raw, found, err := s.readRaw(settingsFileName)
	if err != nil {
		return model.GlobalSettings{}, err
	}
	if !found {
		doc := DefaultSettings()
		if err := s.SaveSettings(&doc); err != nil {
			return model.GlobalSettings{}, err
		}
		return doc, nil
	}

	migrated, changed, err := settingsMigrator.migrate(raw)
	if err != nil {
		return model.GlobalSettings{}, err
	}
	var doc model.GlobalSettings
	if err := decodeInto(migrated, &doc); err != nil {
		return model.GlobalSettings{}, err
	}
	if err := validate.Settings(&doc); err != nil {
		return model.GlobalSettings{}, err
	}
	if changed {
		if err := s.SaveSettings(&doc); err != nil {
			return model.GlobalSettings{}, err
		}
	}
	return doc, nil
}

func (s *Store) SaveSettings(doc *model.GlobalSettings) error {
	if doc.Version == 0 {
		doc.Version = CurrentSettingsVersion
	}
	if err := validate.Settings(doc); err != nil {
		return err
	}
	doc.UpdatedAt = nowTimestamp()
	return s.writeJSON(settingsFileName, doc)
}
