package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"dorm-electricity/internal/api/models"
	"dorm-electricity/internal/bot"
	"dorm-electricity/internal/campus"
	"dorm-electricity/internal/model"
)

// RoomsHandler serves the read-only admin endpoints over stored history and
// the campus directory.
type RoomsHandler struct {
	service *bot.Service
}

func NewRoomsHandler(service *bot.Service) *RoomsHandler {
	return &RoomsHandler{service: service}
}

// ListCampuses handles GET /api/v1/campuses.
func (h *RoomsHandler) ListCampuses(c *gin.Context) {
	c.JSON(http.StatusOK, models.CampusesResponse{
		Campuses: h.service.Fetcher.CampusNames(),
	})
}

// ListBuildings handles GET /api/v1/campuses/:campus/buildings.
func (h *RoomsHandler) ListBuildings(c *gin.Context) {
	campusName := c.Param("campus")
	buildings, err := h.service.Fetcher.Buildings(c.Request.Context(), campusName)
	if err != nil {
		writeUpstreamError(c, err)
		return
	}
	names := make([]string, len(buildings))
	for i, b := range buildings {
		names[i] = b.Name
	}
	c.JSON(http.StatusOK, models.BuildingsResponse{Campus: campusName, Buildings: names})
}

// GetHistory handles GET /api/v1/rooms/:campus/:building/:room/history.
func (h *RoomsHandler) GetHistory(c *gin.Context) {
	key, ok := roomKeyFromPath(c)
	if !ok {
		return
	}
	series, err := h.service.History.Series(c.Request.Context(), key)
	if err != nil {
		writeInternalError(c, err)
		return
	}
	rows := make([]models.ReadingRow, len(series))
	for i, r := range series {
		rows[i] = models.ReadingRow{Time: r.Time, Value: r.Value}
	}
	c.JSON(http.StatusOK, models.HistoryResponse{
		Campus:   key.Campus,
		Building: key.Building,
		Room:     key.Room,
		Readings: rows,
	})
}

// GetPrediction handles GET /api/v1/rooms/:campus/:building/:room/prediction.
func (h *RoomsHandler) GetPrediction(c *gin.Context) {
	key, ok := roomKeyFromPath(c)
	if !ok {
		return
	}
	res, err := h.service.PredictDepletion(c.Request.Context(), key)
	if err != nil {
		writeInternalError(c, err)
		return
	}
	resp := models.PredictionResponse{
		Campus:   key.Campus,
		Building: key.Building,
		Room:     key.Room,
	}
	if res != nil {
		exhaustion := res.ExhaustionTime.UTC()
		resp.Predicted = true
		resp.KWhPerHour = -res.SlopePerSecond * 3600
		resp.ExhaustionUTC = &exhaustion
	}
	c.JSON(http.StatusOK, resp)
}

func roomKeyFromPath(c *gin.Context) (model.RoomKey, bool) {
	key := model.RoomKey{
		Campus:   c.Param("campus"),
		Building: c.Param("building"),
		Room:     c.Param("room"),
	}
	if err := key.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INVALID_REQUEST",
				Message: err.Error(),
			},
		})
		return model.RoomKey{}, false
	}
	return key, true
}

func writeUpstreamError(c *gin.Context, err error) {
	var uerr *campus.Error
	if errors.As(err, &uerr) {
		switch uerr.Kind {
		case campus.ErrNotFound:
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Error: models.ErrorDetail{Code: "NOT_FOUND", Message: uerr.Message},
			})
		default:
			c.JSON(http.StatusBadGateway, models.ErrorResponse{
				Error: models.ErrorDetail{Code: "UPSTREAM_ERROR", Message: uerr.Message},
			})
		}
		return
	}
	writeInternalError(c, err)
}

func writeInternalError(c *gin.Context, err error) {
	c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Error: models.ErrorDetail{Code: "INTERNAL_ERROR", Message: err.Error()},
	})
}
