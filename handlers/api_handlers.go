package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"cluster-dashboard-go/classify"
	"cluster-dashboard-go/cluster"
	"cluster-dashboard-go/db"
	"cluster-dashboard-go/export"
	"cluster-dashboard-go/models"
	"cluster-dashboard-go/orchestrator"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Slot statuses reported by GetCurrent
const (
	StatusNoData  = "no_data"
	StatusRunning = "running"
	StatusError   = "error"
	StatusEmpty   = "empty"
	StatusReady   = "ready"
)

// APIHandler holds the dependencies for API handlers
type APIHandler struct {
	Orchestrator *orchestrator.Orchestrator
	Generator    *cluster.Generator
	Logger       *zap.Logger
}

// NewAPIHandler creates a new APIHandler
func NewAPIHandler(o *orchestrator.Orchestrator, gen *cluster.Generator, logger *zap.Logger) *APIHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIHandler{
		Orchestrator: o,
		Generator:    gen,
		Logger:       logger,
	}
}

// DatasetResponse is a dataset ready for plotting and reading
type DatasetResponse struct {
	Mode      models.Mode                `json:"mode"`
	RunID     string                     `json:"runId"`
	K         int                        `json:"k"`
	XAxis     models.Axis                `json:"xAxis"`
	YAxis     models.Axis                `json:"yAxis"`
	Points    []models.PlotPoint         `json:"points"`
	Centroids []models.Point             `json:"centroids"`
	Clusters  []orchestrator.ClusterView `json:"clusters"`
}

// SlotResponse is the current state of one mode
type SlotResponse struct {
	Mode      models.Mode      `json:"mode"`
	Status    string           `json:"status"`
	Error     string           `json:"error,omitempty"`
	ErrorKind string           `json:"errorKind,omitempty"`
	Dataset   *DatasetResponse `json:"dataset,omitempty"`
}

func (h *APIHandler) datasetResponse(ds *models.ClusterDataset) *DatasetResponse {
	if ds == nil {
		return nil
	}
	return &DatasetResponse{
		Mode:      ds.Mode,
		RunID:     ds.RunID,
		K:         ds.K,
		XAxis:     ds.XAxis,
		YAxis:     ds.YAxis,
		Points:    nonNilPoints(ds.Points),
		Centroids: nonNilCentroids(ds.Centroids),
		Clusters:  orchestrator.BuildViews(h.Generator, ds),
	}
}

// --- View State Handlers ---

// GetState handles GET /api/view
func (h *APIHandler) GetState(c *gin.Context) {
	c.JSON(http.StatusOK, h.Orchestrator.State())
}

// viewRequest is the body of POST /api/view
type viewRequest struct {
	Action string      `json:"action" binding:"required"`
	Mode   models.Mode `json:"mode"`
	K      int         `json:"k"`
	X      string      `json:"x"`
	Y      string      `json:"y"`
}

func (r viewRequest) toAction() (orchestrator.Action, error) {
	switch r.Action {
	case "set_mode":
		return orchestrator.SetMode{Mode: r.Mode}, nil
	case "set_k":
		return orchestrator.SetK{K: r.K}, nil
	case "set_features":
		return orchestrator.SetFeatures{X: r.X, Y: r.Y}, nil
	}
	return nil, fmt.Errorf("unknown action %q", r.Action)
}

// UpdateView handles POST /api/view
func (h *APIHandler) UpdateView(c *gin.Context) {
	var req viewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	action, err := req.toAction()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	state, res, err := h.Orchestrator.Dispatch(c.Request.Context(), action)
	if err != nil {
		h.runFailed(c, err, gin.H{"state": state})
		return
	}
	body := gin.H{"state": state, "ran": res != nil}
	if res != nil {
		body["applied"] = res.Applied
		body["dataset"] = h.datasetResponse(res.Dataset)
	}
	c.JSON(http.StatusOK, body)
}

// --- Run Handlers ---

// RefreshOfficial handles POST /api/clusters/official/refresh
func (h *APIHandler) RefreshOfficial(c *gin.Context) {
	h.run(c, []orchestrator.Action{orchestrator.SetMode{Mode: models.ModeOfficial}})
}

// RunPlayground handles POST /api/clusters/playground/run?k=
func (h *APIHandler) RunPlayground(c *gin.Context) {
	actions := []orchestrator.Action{orchestrator.SetMode{Mode: models.ModePlayground}}
	if raw := c.Query("k"); raw != "" {
		k, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "k must be an integer"})
			return
		}
		actions = append(actions, orchestrator.SetK{K: k})
	}
	h.run(c, actions)
}

// RunPairwise handles POST /api/clusters/pairwise/run?x=&y=&k=
func (h *APIHandler) RunPairwise(c *gin.Context) {
	actions := []orchestrator.Action{orchestrator.SetMode{Mode: models.ModePairwise}}
	x, y := c.Query("x"), c.Query("y")
	if x != "" || y != "" {
		actions = append(actions, orchestrator.SetFeatures{X: x, Y: y})
	}
	if raw := c.Query("k"); raw != "" {
		k, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "k must be an integer"})
			return
		}
		actions = append(actions, orchestrator.SetK{K: k})
	}
	h.run(c, actions)
}

// run applies actions and makes sure the resulting mode is fetched exactly once.
func (h *APIHandler) run(c *gin.Context, actions []orchestrator.Action) {
	ctx := c.Request.Context()
	state, res, err := h.Orchestrator.Dispatch(ctx, actions...)
	if err == nil && res == nil {
		res, err = h.Orchestrator.Run(ctx, state)
		state = h.Orchestrator.State()
	}
	if err != nil {
		h.runFailed(c, err, gin.H{"state": state})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"state":   state,
		"applied": res.Applied,
		"dataset": h.datasetResponse(res.Dataset),
	})
}

// runFailed writes a RunError as 400 (validation) or 502 (transport)
func (h *APIHandler) runFailed(c *gin.Context, err error, body gin.H) {
	status := http.StatusInternalServerError
	message := err.Error()
	var re *orchestrator.RunError
	if errors.As(err, &re) {
		message = re.Message()
		switch re.Kind {
		case orchestrator.KindValidation:
			status = http.StatusBadRequest
		case orchestrator.KindTransport:
			status = http.StatusBadGateway
		}
	}
	h.Logger.Warn("Clustering request failed", zap.Int("status", status), zap.Error(err))
	body["error"] = message
	c.JSON(status, body)
}

// --- Current Dataset Handlers ---

func (h *APIHandler) loadSlot(c *gin.Context) (models.Mode, db.Slot, bool, bool) {
	mode := models.Mode(c.Param("mode"))
	if !mode.Valid() {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown mode"})
		return mode, db.Slot{}, false, false
	}
	slot, ok, err := h.Orchestrator.Current(c.Request.Context(), mode)
	if err != nil {
		h.Logger.Error("Error loading current dataset", zap.String("mode", string(mode)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load dataset"})
		return mode, db.Slot{}, false, false
	}
	return mode, slot, ok, true
}

// GetCurrent handles GET /api/clusters/:mode
func (h *APIHandler) GetCurrent(c *gin.Context) {
	mode, slot, ok, handled := h.loadSlot(c)
	if !handled {
		return
	}
	resp := SlotResponse{Mode: mode, Status: StatusNoData}
	if ok {
		resp.Dataset = h.datasetResponse(slot.Dataset)
		switch {
		case slot.Error != "":
			resp.Status = StatusError
			resp.Error = slot.Error
			resp.ErrorKind = slot.ErrorKind
		case slot.Pending:
			resp.Status = StatusRunning
		case slot.Dataset.Empty():
			resp.Status = StatusEmpty
		default:
			resp.Status = StatusReady
		}
	}
	c.JSON(http.StatusOK, resp)
}

// ExportCurrent handles GET /api/clusters/:mode/export
func (h *APIHandler) ExportCurrent(c *gin.Context) {
	mode, slot, ok, handled := h.loadSlot(c)
	if !handled {
		return
	}
	if !ok || slot.Dataset == nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "No dataset for this mode"})
		return
	}

	var buf bytes.Buffer
	views := orchestrator.BuildViews(h.Generator, slot.Dataset)
	if err := export.WriteWorkbook(&buf, slot.Dataset, views, h.Generator.Rules); err != nil {
		h.Logger.Error("Error exporting dataset", zap.String("mode", string(mode)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export dataset"})
		return
	}
	filename := fmt.Sprintf("clusters-%s-%s.xlsx", mode, shortRunID(slot.Dataset.RunID))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// --- Classification Handlers ---

// Classify handles GET /api/classify?municipality=&gwa=&income=
func (h *APIHandler) Classify(c *gin.Context) {
	student := models.Student{Municipality: c.Query("municipality")}
	for _, p := range []struct {
		name string
		dst  **float64
	}{{"gwa", &student.GWA}, {"income", &student.Income}} {
		raw := strings.TrimSpace(c.Query(p.name))
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": p.name + " must be a number"})
			return
		}
		*p.dst = &v
	}
	c.JSON(http.StatusOK, h.Generator.Rules.ClassifyStudent(student))
}

// GetRules handles GET /api/rules
func (h *APIHandler) GetRules(c *gin.Context) {
	c.JSON(http.StatusOK, h.Generator.Rules)
}

// GetFeatures handles GET /api/features
func (h *APIHandler) GetFeatures(c *gin.Context) {
	features := make([]gin.H, 0, len(models.Features))
	for _, f := range models.Features {
		features = append(features, gin.H{"name": f, "label": models.FeatureDisplayName(f)})
	}
	c.JSON(http.StatusOK, gin.H{"features": features, "minK": orchestrator.MinK, "maxK": orchestrator.MaxK})
}

// GetUplandMunicipalities handles GET /api/municipalities/upland
func (h *APIHandler) GetUplandMunicipalities(c *gin.Context) {
	c.JSON(http.StatusOK, classify.UplandMunicipalities())
}

// --- Ping Handler ---
func PingHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Pong!"})
}

func nonNilPoints(p []models.PlotPoint) []models.PlotPoint {
	if p == nil {
		return []models.PlotPoint{}
	}
	return p
}

func nonNilCentroids(p []models.Point) []models.Point {
	if p == nil {
		return []models.Point{}
	}
	return p
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
