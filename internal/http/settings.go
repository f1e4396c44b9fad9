package http

import (
	"github.com/gin-gonic/gin"

	"github.com/carrelhq/carrel/internal/settings"
)

type SettingsController struct {
	settings *settings.Service
	version  string
}

func NewSettingsController(settings *settings.Service, version string) *SettingsController {
	return &SettingsController{
		settings: settings,
		version:  version,
	}
}

func (controller *SettingsController) ListSettings(c *gin.Context) {
	all, err := controller.settings.GetAll()
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, all)
}

func (controller *SettingsController) GetSetting(c *gin.Context) {
	key := c.Param("key")
	setting, err := controller.settings.Get(key)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, setting)
}

func (controller *SettingsController) UpdateSetting(c *gin.Context) {
	key := c.Param("key")

	var body struct {
		Value       any     `json:"value"`
		Description *string `json:"description"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	if err := controller.settings.Set(key, body.Value, body.Description); err != nil {
		respondError(c, err)
		return
	}

	setting, err := controller.settings.Get(key)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, setting)
}

// BatchUpdateSettings applies a map of settings atomically: any invalid
// entry rejects the whole request.
func (controller *SettingsController) BatchUpdateSettings(c *gin.Context) {
	var body struct {
		Settings map[string]any `json:"settings"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	if len(body.Settings) == 0 {
		respondBadRequest(c, "settings must not be empty")
		return
	}

	if err := controller.settings.SetMany(body.Settings); err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, "settings updated", nil)
}

func (controller *SettingsController) ResetSettings(c *gin.Context) {
	var body struct {
		Keys []string `json:"keys"`
	}
	// An empty body resets everything.
	_ = c.ShouldBindJSON(&body)

	count, err := controller.settings.Reset(body.Keys)
	if err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, "settings reset", gin.H{"reset": count})
}

func (controller *SettingsController) GetSystemInfo(c *gin.Context) {
	info, err := controller.settings.SystemInfo()
	if err != nil {
		respondError(c, err)
		return
	}
	info.Version = controller.version
	respondOK(c, info)
}
