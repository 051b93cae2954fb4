package services

import (
	"encoding/json"

	"gorm.io/datatypes"
)

func jsonPayload(v map[string]any) datatypes.JSON {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}
