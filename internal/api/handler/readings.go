package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/breatheroute/ambee/internal/api/models"
	"github.com/breatheroute/ambee/internal/api/response"
	"github.com/breatheroute/ambee/internal/readings"
	"github.com/breatheroute/ambee/pkg/ambee"
)

const maxListLimit = 500

// ReadingsHandler serves readings stored by the poller.
type ReadingsHandler struct {
	repo readings.Repository
}

// NewReadingsHandler creates a new ReadingsHandler.
func NewReadingsHandler(repo readings.Repository) *ReadingsHandler {
	return &ReadingsHandler{repo: repo}
}

// GetLatest handles GET /v1/readings/{resource}/latest - the newest reading for a point.
func (h *ReadingsHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	resource, err := ambee.ParseResource(chi.URLParam(r, "resource"))
	if err != nil {
		response.NotFound(w, r, err.Error())
		return
	}

	point := r.URL.Query().Get("point")
	if point == "" {
		response.BadRequest(w, r, "point is required", []models.FieldError{
			{Field: "point", Message: "is required", Code: "required"},
		})
		return
	}

	reading, err := h.repo.Latest(r.Context(), resource, point)
	if errors.Is(err, readings.ErrNotFound) {
		response.NotFound(w, r, "no "+string(resource)+" reading stored for point "+point)
		return
	}
	if err != nil {
		response.InternalError(w, r, "failed to load reading")
		return
	}

	response.JSON(w, r, http.StatusOK, models.NewReading(reading))
}

// ListReadings handles GET /v1/readings/{resource} - stored readings, newest first.
func (h *ReadingsHandler) ListReadings(w http.ResponseWriter, r *http.Request) {
	resource, err := ambee.ParseResource(chi.URLParam(r, "resource"))
	if err != nil {
		response.NotFound(w, r, err.Error())
		return
	}

	limit := readings.DefaultListLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		limit, err = strconv.Atoi(s)
		if err != nil || limit < 1 || limit > maxListLimit {
			response.BadRequest(w, r, "invalid limit", []models.FieldError{
				{Field: "limit", Message: "must be an integer between 1 and 500", Code: "invalid"},
			})
			return
		}
	}

	items, err := h.repo.List(r.Context(), readings.ListOptions{
		Resource: resource,
		Point:    r.URL.Query().Get("point"),
		Limit:    limit,
	})
	if err != nil {
		response.InternalError(w, r, "failed to list readings")
		return
	}

	list := models.ReadingList{Items: make([]models.Reading, 0, len(items)), Limit: limit}
	for _, item := range items {
		list.Items = append(list.Items, models.NewReading(item))
	}
	response.JSON(w, r, http.StatusOK, list)
}
