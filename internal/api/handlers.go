package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"pv-configurator/internal/equipment"
	"pv-configurator/internal/recommend"
	"pv-configurator/internal/stringing"
	"pv-configurator/internal/sysconfig"
)

// writeError maps domain errors onto HTTP status codes.
func writeError(c *gin.Context, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, sysconfig.ErrProjectNotFound),
		errors.Is(err, sysconfig.ErrConfigurationNotFound):
		code = http.StatusNotFound
	case sysconfig.IsRequestError(err):
		code = http.StatusBadRequest
	case errors.Is(err, equipment.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, sysconfig.ErrInfeasibleStringing):
		code = http.StatusUnprocessableEntity
	case errors.Is(err, sysconfig.ErrConfigurationBlocked):
		code = http.StatusConflict
	}
	c.JSON(code, gin.H{"error": err.Error()})
}

func projectID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("projectID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project id"})
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) accessoriesHandler(c *gin.Context) {
	accessories, err := s.db.ReadyAccessories(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, accessories)
}

func (s *Server) recommendPVModulesHandler(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	ranked, err := s.ranker.RankPVModules(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ranked)
}

func (s *Server) recommendInvertersHandler(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}

	moduleID, err := uuid.Parse(c.Query("pv_module_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'pv_module_id'"})
		return
	}
	panelCount, err := strconv.Atoi(c.Query("panel_count"))
	if err != nil || panelCount < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'panel_count'"})
		return
	}
	q := recommend.InverterQuery{ProjectID: id, PVModuleID: moduleID, PanelCount: panelCount}
	if raw := c.Query("battery_id"); raw != "" {
		batteryID, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'battery_id'"})
			return
		}
		q.BatteryID = &batteryID
	}

	ranked, err := s.ranker.RankInverters(c.Request.Context(), q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ranked)
}

func (s *Server) recommendBatteriesHandler(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	ranked, err := s.ranker.RankBatteries(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ranked)
}

func (s *Server) getConfigurationHandler(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	cfg, err := s.engine.GetConfiguration(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// configureHandler replaces the project's configuration. The project id in
// the path overrides any id in the body.
func (s *Server) configureHandler(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	var req sysconfig.ConfigureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.ProjectID = id

	cfg, err := s.engine.Configure(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (s *Server) quoteGateHandler(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	if err := s.engine.CheckQuoteGate(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quotable": true})
}

type panelCountRequest struct {
	PanelCount int `json:"panel_count" binding:"required,min=1"`
}

func (s *Server) updatePanelCountHandler(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	var req panelCountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.respondConfiguration(c)(s.engine.UpdatePanelCount(c.Request.Context(), id, req.PanelCount))
}

type swapInverterRequest struct {
	InverterID uuid.UUID `json:"inverter_id" binding:"required"`
}

func (s *Server) swapInverterHandler(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	var req swapInverterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.respondConfiguration(c)(s.engine.SwapInverter(c.Request.Context(), id, req.InverterID))
}

type parallelUnitsRequest struct {
	Count int `json:"count" binding:"required,min=1"`
}

func (s *Server) setParallelUnitsHandler(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	var req parallelUnitsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.respondConfiguration(c)(s.engine.SetParallelUnits(c.Request.Context(), id, req.Count))
}

type batteryRequest struct {
	BatteryID uuid.UUID `json:"battery_id" binding:"required"`
	Count     int       `json:"count" binding:"min=0"`
}

func (s *Server) setBatteryHandler(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	var req batteryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.respondConfiguration(c)(s.engine.SetBattery(c.Request.Context(), id, req.BatteryID, req.Count))
}

func (s *Server) removeBatteryHandler(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	s.respondConfiguration(c)(s.engine.RemoveBattery(c.Request.Context(), id))
}

func (s *Server) setAccessoriesHandler(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	var lines []equipment.AccessoryLine
	if err := c.ShouldBindJSON(&lines); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.respondConfiguration(c)(s.engine.SetAccessories(c.Request.Context(), id, lines))
}

func (s *Server) respondConfiguration(c *gin.Context) func(*sysconfig.Configuration, error) {
	return func(cfg *sysconfig.Configuration, err error) {
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, cfg)
	}
}

type stringingRequest struct {
	MaxDCVoltage float64 `json:"max_dc_voltage" binding:"required,gt=0"`
	Voc          float64 `json:"voc" binding:"required,gt=0"`
	PanelCount   int     `json:"panel_count" binding:"required,min=1"`
	MPPTInputs   int     `json:"mppt_inputs" binding:"required,min=1"`
}

// stringingHandler runs the stringing calculator on raw electrical values.
func (s *Server) stringingHandler(c *gin.Context) {
	var req stringingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	maxPerString := stringing.MaxPanelsPerString(req.MaxDCVoltage, req.Voc)
	layout, ok := stringing.Compute(req.PanelCount, maxPerString, req.MPPTInputs)
	if !ok {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":                 stringing.Diagnose(req.PanelCount, maxPerString, req.MPPTInputs).Error(),
			"max_panels_per_string": maxPerString,
			"required_strings":      stringing.RequiredStrings(req.PanelCount, maxPerString),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"max_panels_per_string": maxPerString,
		"layout":                layout,
	})
}
